package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"gov-auditor/api"
	"gov-auditor/config"
	"gov-auditor/providers"
	"gov-auditor/providers/browser"
	"gov-auditor/providers/jusbrasil"
	"gov-auditor/services"
	"gov-auditor/storage"
)

func newLogger(dev bool) (*zap.Logger, error) {
	if dev {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// cronLogger leitet die Meldungen von robfig/cron an zap weiter.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config load error: %v", err)
	}

	logging, err := newLogger(cfg.LogDev)
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	settings, err := config.LoadSettings(cfg.ConfigPath)
	if err != nil {
		logging.Fatal("Settings load error", zap.String("path", cfg.ConfigPath), zap.Error(err))
	}
	if missing := cfg.MissingSecrets(); len(missing) > 0 {
		logging.Warn("Secrets fehlen, externe Integrationen sind deaktiviert", zap.Strings("missing", missing))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Setup Store
	store, err := storage.Open(cfg.DBPath, logging)
	if err != nil {
		logging.Fatal("Failed to open database", zap.String("path", cfg.DBPath), zap.Error(err))
	}
	defer store.Close()
	logging.Info("Datenbank geöffnet", zap.String("path", cfg.DBPath))

	// Setup Providers
	browserOpts := browser.Options{
		RemoteURL:      cfg.ChromeRemoteURL,
		Headless:       cfg.BrowserHeadless,
		DiagnosticoDir: cfg.DiagnosticoDir,
	}
	artifacts, err := storage.NewArtifactStore(ctx, cfg)
	if err != nil {
		logging.Warn("S3 client creation failed, Diagnose bleibt lokal", zap.Error(err))
	} else if artifacts != nil {
		browserOpts.Artifacts = artifacts
	}

	enabledProviders, unknown := providers.Build(settings.Scrapers, providers.Options{
		Terms:    settings.TermosBusca,
		DOUBase:  settings.DOU.URLBase,
		TJSPBase: settings.TJSP.URLBase,
		Browser:  browserOpts,
		Prompter: jusbrasil.Stdin(),
	}, logging)
	for _, name := range unknown {
		logging.Warn("Unknown provider in config", zap.String("provider_name", name))
	}
	if len(enabledProviders) == 0 {
		logging.Fatal("No valid providers enabled. Check scrapers in config.yaml")
	}
	logging.Info("Active providers loaded", zap.Strings("providers", settings.Scrapers), zap.Int("termos", len(settings.TermosBusca)))

	// Setup Services
	notifier := services.NewNotifier(settings.WebhookURL, settings.WebhookTimeout(), logging)
	if !notifier.Configured() {
		logging.Warn("webhook_url leer, neue Publicacoes werden nur gespeichert")
	}
	orchestrator := services.NewOrchestrator(store, enabledProviders, notifier, logging, settings.ModoAutonomo)

	// Setup Router
	var srv *http.Server
	var apiServer *api.Server
	if cfg.HTTPPort != "" {
		apiServer = &api.Server{
			Store:     store,
			Cycles:    orchestrator,
			SecretKey: cfg.APISecretKey,
			Logger:    logging,
			BaseCtx:   ctx,
		}
		router := api.NewRouter(apiServer)
		srv = &http.Server{
			Addr:              ":" + cfg.HTTPPort,
			Handler:           router,
			ReadTimeout:       30 * time.Second,
			ReadHeaderTimeout: 15 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		}
		go func() {
			logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logging.Error("Failed to run server", zap.Error(err))
			}
		}()
	}

	// Setup Cron
	cronScheduler := cron.New(
		cron.WithLogger(cronLogger{s: logging.Sugar()}),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{s: logging.Sugar()})),
	)
	spec := settings.CronSpec()
	if _, err := cronScheduler.AddFunc(spec, func() {
		logging.Info("Running scheduled cycle...")
		orchestrator.RunCycle(ctx)
	}); err != nil {
		logging.Fatal("Invalid cron schedule", zap.String("spec", spec), zap.Error(err))
	}

	var first sync.WaitGroup
	first.Add(1)
	go func() {
		defer first.Done()
		logging.Info("Erster Zyklus beim Start")
		orchestrator.RunCycle(ctx)
	}()
	cronScheduler.Start()
	logging.Info("Scheduler gestartet", zap.String("spec", spec))

	<-ctx.Done()
	logging.Info("Signal empfangen, fahre herunter")

	<-cronScheduler.Stop().Done()
	first.Wait()
	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logging.Warn("Server shutdown", zap.Error(err))
		}
		apiServer.Wait()
	}
	logging.Info("Beendet")
}
