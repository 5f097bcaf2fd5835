package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"gov-auditor/models"
)

const userAgent = "gov-auditor/1.0 (+webhook)"

// userAgentTransport fügt jeder Anfrage einen User-Agent-Header hinzu.
type userAgentTransport struct {
	Transport http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", userAgent)
	return t.Transport.RoundTrip(req)
}

// Notifier schickt frisch gespeicherte Publicacoes als JSON-Event an genau einen Webhook.
// Kein Retry, keine Queue.
type Notifier struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewNotifier erstellt einen Notifier. Ein leerer url ist erlaubt (dann wird nichts gesendet).
func NewNotifier(url string, timeout time.Duration, logger *zap.Logger) *Notifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Notifier{
		url:    url,
		client: &http.Client{
			Timeout:   timeout,
			Transport: &userAgentTransport{Transport: http.DefaultTransport},
		},
		logger: logger,
	}
}

// Configured meldet, ob ein Webhook gesetzt ist.
func (n *Notifier) Configured() bool {
	return n.url != ""
}

// Notify sendet das Event zu pub. sent ist nur bei einer 2xx-Antwort true.
// Ohne konfigurierten Webhook wird eine Warnung geloggt und (false, nil) geliefert.
func (n *Notifier) Notify(ctx context.Context, pub *models.Publicacao) (sent bool, err error) {
	log := n.logger.With(zap.String("identificador", pub.Identificador))
	if n.url == "" {
		log.Warn("webhook_url nicht konfiguriert, Event wird nicht gesendet.")
		return false, nil
	}

	body, err := json.Marshal(models.NewEvento(pub))
	if err != nil {
		return false, fmt.Errorf("notifier: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("notifier: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		log.Error("Webhook-Zustellung fehlgeschlagen", zap.Error(err))
		return false, fmt.Errorf("notifier: post: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Error("Webhook antwortet mit Fehlerstatus", zap.Int("status", resp.StatusCode))
		return false, fmt.Errorf("notifier: status %d", resp.StatusCode)
	}
	log.Info("Webhook-Event zugestellt", zap.Int("status", resp.StatusCode))
	return true, nil
}
