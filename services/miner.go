package services

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"gov-auditor/models"
	"gov-auditor/storage"
)

var (
	// 12.345.678/0001-90
	cnpjRegex = regexp.MustCompile(`\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2}`)
	// R$ 1.234,56 | R$10,00 | R$ 500
	valorRegex = regexp.MustCompile(`R\$\s*\d+(?:\.\d{3})*(?:,\d{2})?`)
)

// MinerStore ist der Teil des Stores, den der Miner braucht.
type MinerStore interface {
	EachWithBody(ctx context.Context, batchSize int, fn func(storage.TextRow) error) error
	Enrich(ctx context.Context, id uint, cnpjs, valores string) error
}

// MineResult beschreibt eine angereicherte Zeile.
type MineResult struct {
	ID      uint
	Titulo  string
	CNPJs   []string
	Valores []string
}

// MineReport fasst einen Miner-Lauf zusammen.
type MineReport struct {
	Scanned  int
	Enriched int
}

// Miner extrahiert CNPJs und Geldbeträge aus gespeicherten Texten und schreibt sie zurück.
type Miner struct {
	Store  MinerStore
	Logger *zap.Logger
}

// NewMiner erstellt einen neuen Miner.
func NewMiner(store MinerStore, logger *zap.Logger) *Miner {
	return &Miner{Store: store, Logger: logger}
}

// Extract findet alle CNPJs (dedupliziert, Reihenfolge des ersten Auftretens) und alle Beträge
// (in Textreihenfolge, mit Duplikaten).
func Extract(text string) (cnpjs, valores []string) {
	seen := make(map[string]bool)
	for _, m := range cnpjRegex.FindAllString(text, -1) {
		if seen[m] {
			continue
		}
		seen[m] = true
		cnpjs = append(cnpjs, m)
	}
	valores = valorRegex.FindAllString(text, -1)
	return cnpjs, valores
}

// MineOne reichert eine frisch gespeicherte Publicacao direkt an (vor der Benachrichtigung).
// Liefert true, wenn etwas gefunden wurde.
func (m *Miner) MineOne(ctx context.Context, pub *models.Publicacao) (bool, error) {
	if pub.Conteudo == nil {
		return false, nil
	}
	cnpjs, valores := Extract(*pub.Conteudo)
	if len(cnpjs) == 0 && len(valores) == 0 {
		return false, nil
	}
	c, v := strings.Join(cnpjs, ", "), strings.Join(valores, ", ")
	if err := m.Store.Enrich(ctx, pub.ID, c, v); err != nil {
		return false, err
	}
	pub.CNPJs, pub.Valores = optional(c), optional(v)
	return true, nil
}

// Run durchläuft alle Zeilen mit Inhalt. onRow wird für jede angereicherte Zeile aufgerufen (darf nil sein).
func (m *Miner) Run(ctx context.Context, onRow func(MineResult)) (MineReport, error) {
	var report MineReport
	err := m.Store.EachWithBody(ctx, 200, func(row storage.TextRow) error {
		report.Scanned++
		cnpjs, valores := Extract(row.Conteudo)
		if len(cnpjs) == 0 && len(valores) == 0 {
			return nil
		}
		if err := m.Store.Enrich(ctx, row.ID, strings.Join(cnpjs, ", "), strings.Join(valores, ", ")); err != nil {
			m.Logger.Error("Anreicherung fehlgeschlagen", zap.Uint("id", row.ID), zap.Error(err))
			return nil
		}
		report.Enriched++
		m.Logger.Debug("Zeile angereichert", zap.Uint("id", row.ID),
			zap.Int("cnpjs", len(cnpjs)), zap.Int("valores", len(valores)))
		if onRow != nil {
			onRow(MineResult{ID: row.ID, Titulo: row.Titulo, CNPJs: cnpjs, Valores: valores})
		}
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("miner: %w", err)
	}
	m.Logger.Info("Miner-Lauf abgeschlossen", zap.Int("scanned", report.Scanned), zap.Int("enriched", report.Enriched))
	return report, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
