// Package browser kapselt eine Chrome-Instanz (via Rod) pro Provider und Zyklus:
// verzögerter Start beim Login, Freigabe beim Close, Diagnose-Dumps bei Fehlern.
package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"go.uber.org/zap"
)

// ArtifactUploader lädt Diagnose-Artefakte hoch (z.B. S3). Optional.
type ArtifactUploader interface {
	Upload(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// Options konfigurieren eine Session.
type Options struct {
	// RemoteURL ist die WebSocket-URL eines externen Chrome. Leer = lokal starten.
	RemoteURL string
	Headless  bool
	// Stealth öffnet Tabs mit go-rod/stealth (Anti-Bot).
	Stealth bool

	DiagnosticoDir string
	Artifacts      ArtifactUploader
	Logger         *zap.Logger
}

// Session besitzt höchstens einen Browser zur Zeit.
type Session struct {
	opts Options

	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
}

// NewSession erstellt eine Session. Chrome wird erst mit Start gestartet.
func NewSession(opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Session{opts: opts}
}

// Start startet Chrome (oder verbindet sich mit einer Remote-Instanz). Idempotent.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.browser != nil {
		return nil
	}

	wsURL := s.opts.RemoteURL
	if wsURL == "" {
		l := launcher.New().
			Headless(s.opts.Headless).
			Set("disable-blink-features", "AutomationControlled")
		u, err := l.Launch()
		if err != nil {
			return fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		s.lnch = l
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		s.cleanupLocked()
		return fmt.Errorf("browser: connect: %w", err)
	}
	s.browser = b
	s.opts.Logger.Debug("Browser gestartet", zap.String("url", wsURL), zap.Bool("stealth", s.opts.Stealth))
	return nil
}

// Close beendet Chrome. Kann mehrfach aufgerufen werden.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleanupLocked()
}

func (s *Session) cleanupLocked() error {
	var err error
	if s.browser != nil {
		err = s.browser.Close()
		s.browser = nil
	}
	if s.lnch != nil {
		s.lnch.Cleanup()
		s.lnch = nil
	}
	return err
}

// NewPage öffnet einen leeren Tab (mit Stealth, falls konfiguriert).
func (s *Session) NewPage() (*rod.Page, error) {
	s.mu.Lock()
	b := s.browser
	s.mu.Unlock()
	if b == nil {
		return nil, fmt.Errorf("browser: nicht gestartet")
	}
	if s.opts.Stealth {
		return stealth.Page(b)
	}
	return b.Page(proto.TargetCreateTarget{URL: ""})
}

// Navigate lädt pageURL mit Timeout und wartet auf das load-Event.
// Ein Timeout beim Warten ist kein Fehler, die Seite ist dann eben teilweise geladen.
func (s *Session) Navigate(ctx context.Context, page *rod.Page, pageURL string, timeout time.Duration) error {
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := page.Context(navCtx).Navigate(pageURL); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		s.opts.Logger.Debug("WaitLoad-Timeout", zap.String("url", pageURL), zap.Error(err))
	}
	return nil
}

// WaitAny pollt bis zum Deadline, bis einer der Selektoren auf der Seite existiert,
// und liefert den ersten Treffer. Leerer String = nichts gefunden.
func WaitAny(ctx context.Context, page *rod.Page, timeout time.Duration, selectors ...string) string {
	deadline := time.Now().Add(timeout)
	for {
		for _, sel := range selectors {
			if has, _, err := page.Context(ctx).Has(sel); err == nil && has {
				return sel
			}
		}
		if time.Now().After(deadline) || ctx.Err() != nil {
			return ""
		}
		time.Sleep(250 * time.Millisecond)
	}
}

// FirstVisible liefert das erste sichtbare Element zu selector.
func FirstVisible(ctx context.Context, page *rod.Page, selector string) (*rod.Element, error) {
	els, err := page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, err
	}
	for _, el := range els {
		if visible, err := el.Visible(); err == nil && visible {
			return el, nil
		}
	}
	return nil, fmt.Errorf("browser: kein sichtbares Element für %q", selector)
}

// BodyText liefert document.body.innerText.
func BodyText(ctx context.Context, page *rod.Page) (string, error) {
	res, err := page.Context(ctx).Eval(`() => document.body ? document.body.innerText : ""`)
	if err != nil {
		return "", err
	}
	return res.Value.Str(), nil
}

// Dump schreibt Screenshot und HTML der Seite nach DiagnosticoDir (und optional in den Bucket).
func (s *Session) Dump(ctx context.Context, page *rod.Page, fonte, motivo string) {
	if page == nil || s.opts.DiagnosticoDir == "" {
		return
	}
	log := s.opts.Logger.With(zap.String("fonte", fonte), zap.String("motivo", motivo))
	if err := os.MkdirAll(s.opts.DiagnosticoDir, 0o755); err != nil {
		log.Warn("Diagnose-Verzeichnis nicht anlegbar", zap.Error(err))
		return
	}
	base := fmt.Sprintf("%s-%s-%s", fonte, motivo, time.Now().Format("20060102-150405"))

	artifacts := map[string][]byte{}
	if png, err := page.Screenshot(true, nil); err == nil {
		artifacts[base+".png"] = png
	} else {
		log.Warn("Screenshot fehlgeschlagen", zap.Error(err))
	}
	if html, err := page.HTML(); err == nil {
		artifacts[base+".html"] = []byte(html)
	}

	s.store(ctx, log, artifacts)
}

// store legt die Artefakte lokal ab und lädt sie, falls konfiguriert, hoch.
func (s *Session) store(ctx context.Context, log *zap.Logger, artifacts map[string][]byte) {
	for name, data := range artifacts {
		path := filepath.Join(s.opts.DiagnosticoDir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			log.Warn("Diagnose-Datei nicht schreibbar", zap.String("path", path), zap.Error(err))
			continue
		}
		log.Info("Diagnose-Datei geschrieben", zap.String("path", path))
		if s.opts.Artifacts != nil {
			ct := "text/html"
			if filepath.Ext(name) == ".png" {
				ct = "image/png"
			}
			if link, err := s.opts.Artifacts.Upload(ctx, "diagnostico/"+name, ct, data); err != nil {
				log.Warn("Upload des Diagnose-Artefakts fehlgeschlagen", zap.Error(err))
			} else {
				log.Info("Diagnose-Artefakt hochgeladen", zap.String("link", link))
			}
		}
	}
}
