package services

import (
	"context"
	"io"
	"sync"
	"time"

	"go.uber.org/zap"

	"gov-auditor/models"
	"gov-auditor/providers"
	"gov-auditor/storage"
)

// CycleReport fasst einen Durchlauf über alle aktiven Provider zusammen.
type CycleReport struct {
	Providers int
	Skipped   int
	Failed    int
	Inserted  int
	Notified  int
}

// Orchestrator setzt Collector, Miner und Notifier zu einem wiederkehrenden Job zusammen.
type Orchestrator struct {
	Store        *storage.Store
	Providers    []providers.Provider
	Notifier     *Notifier
	Miner        *Miner
	Logger       *zap.Logger
	ModoAutonomo bool

	mu sync.Mutex
}

// NewOrchestrator erstellt eine neue Instanz des Orchestrators.
func NewOrchestrator(store *storage.Store, provs []providers.Provider, notifier *Notifier, logger *zap.Logger, modoAutonomo bool) *Orchestrator {
	return &Orchestrator{
		Store:        store,
		Providers:    provs,
		Notifier:     notifier,
		Miner:        NewMiner(store, logger),
		Logger:       logger,
		ModoAutonomo: modoAutonomo,
	}
}

// RunCycle führt einen Zyklus aus. Läuft bereits ein Zyklus, wird nichts getan und ran ist false.
func (o *Orchestrator) RunCycle(ctx context.Context) (report CycleReport, ran bool) {
	if !o.mu.TryLock() {
		o.Logger.Warn("Zyklus läuft bereits, Auslösung wird ignoriert.")
		cyclesCounter.WithLabelValues("ignorado").Inc()
		return report, false
	}
	defer o.mu.Unlock()

	start := time.Now()
	o.Logger.Info("Starte Zyklus", zap.Int("providers", len(o.Providers)))

	for _, p := range o.Providers {
		if ctx.Err() != nil {
			break
		}
		if gated, ok := p.(providers.HumanGated); ok && gated.RequiresHuman() && o.ModoAutonomo {
			o.Logger.Warn("Provider benötigt menschliche Bestätigung, im modo_autonomo übersprungen.",
				zap.String("provider", p.Name()))
			report.Skipped++
			continue
		}
		report.Providers++
		o.runProvider(ctx, p, &report)
	}

	result := "ok"
	if report.Failed > 0 {
		result = "parcial"
	}
	cyclesCounter.WithLabelValues(result).Inc()
	cycleDuration.Observe(time.Since(start).Seconds())
	o.Logger.Info("Zyklus abgeschlossen",
		zap.Int("providers", report.Providers),
		zap.Int("skipped", report.Skipped),
		zap.Int("failed", report.Failed),
		zap.Int("inserted", report.Inserted),
		zap.Int("notified", report.Notified),
		zap.Duration("duration", time.Since(start)))
	return report, true
}

func (o *Orchestrator) runProvider(ctx context.Context, p providers.Provider, report *CycleReport) {
	log := o.Logger.With(zap.String("provider", p.Name()))
	if closer, ok := p.(io.Closer); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				log.Warn("Provider konnte nicht sauber geschlossen werden", zap.Error(err))
			}
		}()
	}

	fresh, err := Collect(ctx, p, o.Store, o.Logger)
	if err != nil {
		report.Failed++
		return
	}
	report.Inserted += len(fresh)
	newPublicationsCounter.WithLabelValues(p.Name()).Add(float64(len(fresh)))

	for i := range fresh {
		if o.notify(ctx, &fresh[i]) {
			report.Notified++
		}
	}
}

func (o *Orchestrator) notify(ctx context.Context, pub *models.Publicacao) bool {
	log := o.Logger.With(zap.String("identificador", pub.Identificador))
	if _, err := o.Miner.MineOne(ctx, pub); err != nil {
		log.Warn("Inline-Anreicherung fehlgeschlagen", zap.Error(err))
	}

	sent, err := o.Notifier.Notify(ctx, pub)
	switch {
	case err != nil:
		webhookDeliveries.WithLabelValues("erro").Inc()
		return false
	case !sent:
		webhookDeliveries.WithLabelValues("ignorado").Inc()
		return false
	}
	webhookDeliveries.WithLabelValues("ok").Inc()
	if err := o.Store.MarkNotified(ctx, pub.ID); err != nil {
		log.Error("notificado-Flag konnte nicht gesetzt werden", zap.Error(err))
	}
	pub.Notificado = true
	return true
}
