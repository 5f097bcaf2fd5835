package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"gov-auditor/models"
)

// additiveColumns sind Spalten, die ältere Varianten der Tabelle noch nicht haben.
// Sie werden beim Öffnen ergänzt, nie gelöscht oder umtypisiert.
var additiveColumns = []string{"fonte", "url", "numero_processo", "cnpjs", "valores", "notificado"}

// TextRow ist eine Zeile mit Inhalt, wie sie der Miner braucht.
type TextRow struct {
	ID       uint
	Titulo   string
	Conteudo string
}

// Filter für Abfragen über die Status-API.
type Filter struct {
	Fonte      string
	Termo      string
	Notificado *bool
	Minerado   *bool
	Limit      int
}

// Store kapselt den Zugriff auf die eingebettete SQLite-Datenbank.
type Store struct {
	db     *gorm.DB
	logger *zap.Logger

	mu          sync.Mutex
	lastCaptura time.Time
	now         func() time.Time
}

// Open öffnet (oder erstellt) die Datenbank unter path inklusive Verzeichnis und Tabelle.
func Open(path string, logger *zap.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: verzeichnis %s: %w", dir, err)
		}
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("store: öffnen %s: %w", path, err)
	}

	// Kurzlebige Verbindungen: nach jeder Operation wird die Verbindung geschlossen.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("store: sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(0)

	s := &Store{db: db, logger: logger, now: time.Now}
	if err := s.ensureSchema(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	if err := s.loadLastCaptura(); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// loadLastCaptura übernimmt data_captura der zuletzt eingefügten Zeile, damit die Ordnung
// auch über einen Neustart mit zurückgestellter Uhr erhalten bleibt.
func (s *Store) loadLastCaptura() error {
	var last []models.Publicacao
	err := s.db.Model(&models.Publicacao{}).
		Select("id", "data_captura").
		Order("id desc").
		Limit(1).
		Find(&last).Error
	if err != nil {
		return fmt.Errorf("store: letzte data_captura: %w", err)
	}
	if len(last) == 1 {
		s.lastCaptura = last[0].DataCaptura
	}
	return nil
}

// Close schließt den Verbindungspool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Snapshot schreibt eine konsistente Kopie der Datenbank nach dst (VACUUM INTO). dst darf nicht existieren.
func (s *Store) Snapshot(ctx context.Context, dst string) error {
	if err := s.db.WithContext(ctx).Exec("VACUUM INTO ?", dst).Error; err != nil {
		return fmt.Errorf("store: snapshot %s: %w", dst, err)
	}
	return nil
}

func (s *Store) ensureSchema() error {
	m := s.db.Migrator()
	if !m.HasTable(&models.Publicacao{}) {
		if err := m.CreateTable(&models.Publicacao{}); err != nil {
			return fmt.Errorf("store: tabelle anlegen: %w", err)
		}
		s.logger.Info("Tabelle publicacoes angelegt.")
		return nil
	}

	for _, col := range additiveColumns {
		if m.HasColumn(&models.Publicacao{}, col) {
			continue
		}
		if err := m.AddColumn(&models.Publicacao{}, col); err != nil {
			// Ein paralleler Prozess kann die Spalte schon ergänzt haben.
			if strings.Contains(strings.ToLower(err.Error()), "duplicate column") {
				continue
			}
			return fmt.Errorf("store: spalte %s ergänzen: %w", col, err)
		}
		s.logger.Info("Fehlende Spalte ergänzt", zap.String("column", col))
	}
	return nil
}

// Seen prüft, ob der Identifikator bereits gespeichert ist.
func (s *Store) Seen(ctx context.Context, identificador string) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Publicacao{}).
		Where("link = ?", identificador).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("store: seen: %w", err)
	}
	return n > 0, nil
}

// Insert speichert pub, falls der Identifikator neu ist. Liefert false, wenn er schon existiert.
// DataCaptura wird vom Store gesetzt.
func (s *Store) Insert(ctx context.Context, pub *models.Publicacao) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	captura := s.now()
	if captura.Before(s.lastCaptura) {
		captura = s.lastCaptura
	}
	pub.DataCaptura = captura

	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "link"}}, DoNothing: true}).
		Create(pub)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return false, nil
		}
		return false, fmt.Errorf("store: insert: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		pub.ID = 0
		return false, nil
	}
	s.lastCaptura = captura
	return true, nil
}

// Enrich schreibt die Miner-Ergebnisse in die Zeile. Leere Strings werden als NULL gespeichert.
// Existiert die Zeile nicht mehr, passiert nichts.
func (s *Store) Enrich(ctx context.Context, id uint, cnpjs, valores string) error {
	err := s.db.WithContext(ctx).Model(&models.Publicacao{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"cnpjs":   nullable(cnpjs),
			"valores": nullable(valores),
		}).Error
	if err != nil {
		return fmt.Errorf("store: enrich %d: %w", id, err)
	}
	return nil
}

// MarkNotified setzt das notificado-Flag nach erfolgreicher Webhook-Zustellung.
func (s *Store) MarkNotified(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Model(&models.Publicacao{}).
		Where("id = ?", id).
		Update("notificado", true).Error
	if err != nil {
		return fmt.Errorf("store: mark notified %d: %w", id, err)
	}
	return nil
}

// EachWithBody ruft fn für jede Zeile mit nicht-leerem Inhalt auf, in ID-Reihenfolge.
// Kann beliebig oft aufgerufen werden.
func (s *Store) EachWithBody(ctx context.Context, batchSize int, fn func(TextRow) error) error {
	if batchSize <= 0 {
		batchSize = 100
	}
	var lastID uint
	for {
		var batch []TextRow
		err := s.db.WithContext(ctx).Model(&models.Publicacao{}).
			Select("id", "titulo", "conteudo").
			Where("conteudo IS NOT NULL AND id > ?", lastID).
			Order("id").
			Limit(batchSize).
			Scan(&batch).Error
		if err != nil {
			return fmt.Errorf("store: iterate: %w", err)
		}
		if len(batch) == 0 {
			return nil
		}
		for _, row := range batch {
			if err := fn(row); err != nil {
				return err
			}
		}
		lastID = batch[len(batch)-1].ID
	}
}

// Get liefert eine Publicacao per ID (gorm.ErrRecordNotFound, falls nicht vorhanden).
func (s *Store) Get(ctx context.Context, id uint) (*models.Publicacao, error) {
	var pub models.Publicacao
	if err := s.db.WithContext(ctx).First(&pub, id).Error; err != nil {
		return nil, err
	}
	return &pub, nil
}

// GetByIdentificador liefert eine Publicacao per Identifikator.
func (s *Store) GetByIdentificador(ctx context.Context, identificador string) (*models.Publicacao, error) {
	var pub models.Publicacao
	if err := s.db.WithContext(ctx).Where("link = ?", identificador).First(&pub).Error; err != nil {
		return nil, err
	}
	return &pub, nil
}

// Count zählt alle gespeicherten Publicacoes.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Publicacao{}).Count(&n).Error
	return n, err
}

// LatestMined liefert die letzten limit Zeilen mit Miner-Ergebnissen, neueste zuerst.
func (s *Store) LatestMined(ctx context.Context, limit int) ([]models.Publicacao, error) {
	var pubs []models.Publicacao
	err := s.db.WithContext(ctx).
		Where("cnpjs IS NOT NULL OR valores IS NOT NULL").
		Order("id desc").
		Limit(limit).
		Find(&pubs).Error
	return pubs, err
}

// Query filtert Publicacoes für die Status-API.
func (s *Store) Query(ctx context.Context, f Filter) ([]models.Publicacao, error) {
	query := s.db.WithContext(ctx).Model(&models.Publicacao{})
	if f.Fonte != "" {
		query = query.Where("fonte = ?", f.Fonte)
	}
	if f.Termo != "" {
		query = query.Where("termo_busca = ?", f.Termo)
	}
	if f.Notificado != nil {
		query = query.Where("notificado = ?", *f.Notificado)
	}
	if f.Minerado != nil {
		if *f.Minerado {
			query = query.Where("cnpjs IS NOT NULL OR valores IS NOT NULL")
		} else {
			query = query.Where("cnpjs IS NULL AND valores IS NULL")
		}
	}
	if f.Limit > 0 {
		query = query.Limit(f.Limit)
	}

	var pubs []models.Publicacao
	err := query.Order("id desc").Find(&pubs).Error
	return pubs, err
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
