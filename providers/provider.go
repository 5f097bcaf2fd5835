package providers

import (
	"context"

	"gov-auditor/models"
)

// Provider ist das Interface, das jede Quelle (z.B. Diário Oficial, TJSP) implementieren muss.
type Provider interface {
	// Name gibt den eindeutigen Namen des Providers zurück (z.B. "dou"). Landet als fonte in der DB.
	Name() string

	// Login bereitet die Sitzung vor. Idempotent, darf ein No-op sein.
	Login(ctx context.Context) error

	// Fetch führt einen Suchdurchlauf über alle konfigurierten Suchbegriffe aus.
	Fetch(ctx context.Context) ([]models.RawRecord, error)
}

// HumanGated wird von Providern implementiert, die unterwegs auf einen Menschen warten können
// (Captcha). Im modo_autonomo werden sie übersprungen.
type HumanGated interface {
	RequiresHuman() bool
}
