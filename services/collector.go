package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"gov-auditor/models"
	"gov-auditor/providers"
)

// CollectorStore ist der Teil des Stores, den das Collector-Template braucht.
type CollectorStore interface {
	Seen(ctx context.Context, identificador string) (bool, error)
	Insert(ctx context.Context, pub *models.Publicacao) (bool, error)
}

// Collect führt für einen Provider Login → Fetch → Dedupe → Persistieren aus und liefert die
// frisch gespeicherten Publicacoes in Quellreihenfolge. Ein Fehler bedeutet, dass Login oder
// Fetch gescheitert sind; Fehler einzelner Treffer werden nur geloggt.
func Collect(ctx context.Context, p providers.Provider, store CollectorStore, logger *zap.Logger) ([]models.Publicacao, error) {
	log := logger.With(zap.String("provider", p.Name()))

	if err := safeCall(func() error { return p.Login(ctx) }); err != nil {
		log.Error("Login fehlgeschlagen, Provider wird übersprungen", zap.Error(err))
		return nil, fmt.Errorf("%s: login: %w", p.Name(), err)
	}

	var records []models.RawRecord
	err := safeCall(func() error {
		var ferr error
		records, ferr = p.Fetch(ctx)
		return ferr
	})
	if err != nil {
		log.Error("Fetch fehlgeschlagen", zap.Error(err))
		return nil, fmt.Errorf("%s: fetch: %w", p.Name(), err)
	}
	log.Info("Provider hat Ergebnisse geliefert", zap.Int("count", len(records)))

	var fresh []models.Publicacao
	for _, rec := range records {
		if ctx.Err() != nil {
			log.Warn("Abbruch während der Verarbeitung", zap.Error(ctx.Err()))
			break
		}
		pub, ok, err := processRecord(ctx, p.Name(), rec, store)
		if err != nil {
			log.Error("Treffer konnte nicht verarbeitet werden",
				zap.String("identificador", pub.Identificador), zap.Error(err))
			continue
		}
		if !ok {
			log.Debug("Treffer bereits bekannt, wird übersprungen.", zap.String("identificador", pub.Identificador))
			continue
		}
		log.Info("Neue Publicacao gespeichert",
			zap.Uint("id", pub.ID), zap.String("identificador", pub.Identificador), zap.String("termo", pub.TermoBusca))
		fresh = append(fresh, pub)
	}
	return fresh, nil
}

func processRecord(ctx context.Context, fonte string, rec models.RawRecord, store CollectorStore) (pub models.Publicacao, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok, err = false, fmt.Errorf("panic: %v", r)
		}
	}()

	rec.Conteudo = Normalize(rec.Conteudo)
	rec.Titulo = NormalizeLine(rec.Titulo)

	pub = models.Publicacao{
		Fonte:          fonte,
		TermoBusca:     rec.TermoBusca,
		Titulo:         rec.Titulo,
		Identificador:  DeriveIdentifier(rec),
		URL:            rec.URL,
		NumeroProcesso: rec.NumeroProcesso,
		DataPublicacao: rec.DataPublicacao,
	}
	if pub.Identificador == "" {
		return pub, false, fmt.Errorf("treffer ohne Inhalt, URL und ID")
	}
	if rec.Conteudo != "" {
		conteudo := rec.Conteudo
		pub.Conteudo = &conteudo
	}

	seen, err := store.Seen(ctx, pub.Identificador)
	if err != nil {
		return pub, false, err
	}
	if seen {
		return pub, false, nil
	}
	ok, err = store.Insert(ctx, &pub)
	return pub, ok, err
}

// safeCall wandelt Panics eines Providers in Fehler um.
func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}
