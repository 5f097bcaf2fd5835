// Package jusbrasil erstellt pro Suchbegriff ein Dossiê aus dem Personenprofil bei Jusbrasil.
// Die Seite blockt Bots, daher Stealth-Tabs und ggf. manuelle Captcha-Lösung.
package jusbrasil

import (
	"context"
	"fmt"
	"math/rand"
	"net/url"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"gov-auditor/models"
	"gov-auditor/providers/browser"
)

// DefaultBaseURL ist das Portal.
const DefaultBaseURL = "https://www.jusbrasil.com.br"

const (
	navTimeout = 20 * time.Second
	scrolls    = 6
)

// Provider liefert einen Dossiê-Datensatz pro Begriff.
type Provider struct {
	terms    []string
	base     string
	session  *browser.Session
	prompter Prompter
	logger   *zap.Logger
}

// New erstellt den Provider. prompter nil = Stdin().
func New(terms []string, base string, session *browser.Session, prompter Prompter, logger *zap.Logger) *Provider {
	if base == "" {
		base = DefaultBaseURL
	}
	if prompter == nil {
		prompter = Stdin()
	}
	return &Provider{
		terms:    terms,
		base:     base,
		session:  session,
		prompter: prompter,
		logger:   logger.With(zap.String("provider", "jusbrasil")),
	}
}

// Name gibt den Namen des Providers zurück.
func (p *Provider) Name() string {
	return "jusbrasil"
}

// RequiresHuman: Captchas müssen von Hand gelöst werden.
func (p *Provider) RequiresHuman() bool {
	return true
}

// Login startet den Browser.
func (p *Provider) Login(ctx context.Context) error {
	return p.session.Start(ctx)
}

// Close gibt den Browser frei.
func (p *Provider) Close() error {
	return p.session.Close()
}

// ConsultaURL baut die Such-URL für einen Namen.
func ConsultaURL(base, term string) string {
	return fmt.Sprintf("%s/busca?q=%s", base, url.QueryEscape(term))
}

// Fetch erstellt für jeden Begriff ein Dossiê.
func (p *Provider) Fetch(ctx context.Context) ([]models.RawRecord, error) {
	var records []models.RawRecord
	for _, term := range p.terms {
		if ctx.Err() != nil {
			return records, ctx.Err()
		}
		rec, err := p.dossie(ctx, term)
		if err != nil {
			p.logger.Error("Dossiê fehlgeschlagen", zap.String("termo", term), zap.Error(err))
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

func (p *Provider) dossie(ctx context.Context, term string) (models.RawRecord, error) {
	page, err := p.session.NewPage()
	if err != nil {
		return models.RawRecord{}, err
	}
	defer page.Close()

	if err := p.session.Navigate(ctx, page, ConsultaURL(p.base, term), navTimeout); err != nil {
		p.session.Dump(ctx, page, p.Name(), "navegacao")
		return models.RawRecord{}, err
	}
	if err := p.passChallenge(ctx, page); err != nil {
		return models.RawRecord{}, err
	}

	html, err := page.HTML()
	if err != nil {
		return models.RawRecord{}, fmt.Errorf("jusbrasil: html: %w", err)
	}
	if link := FindProfileLink(html, term, p.base); link != "" {
		p.openProfile(ctx, page, link)
		if err := p.passChallenge(ctx, page); err != nil {
			return models.RawRecord{}, err
		}
	} else {
		p.logger.Info("Kein Profil gefunden, werte Suchseite aus", zap.String("termo", term))
	}

	p.roll(ctx, page)

	text, err := browser.BodyText(ctx, page)
	if err != nil {
		p.session.Dump(ctx, page, p.Name(), "texto")
		return models.RawRecord{}, fmt.Errorf("jusbrasil: texto: %w", err)
	}
	d := ParseDossie(term, text)

	pageURL := ConsultaURL(p.base, term)
	if info, err := page.Info(); err == nil && info.URL != "" {
		pageURL = info.URL
	}
	p.logger.Info("Dossiê erstellt", zap.String("termo", term), zap.Int("processos", d.Processos), zap.Int("empresas", len(d.Empresas)))
	return models.RawRecord{
		TermoBusca: term,
		Titulo:     d.Summary(),
		URL:        pageURL,
	}, nil
}

// passChallenge hält an, solange eine Captcha-Seite angezeigt wird.
func (p *Provider) passChallenge(ctx context.Context, page *rod.Page) error {
	info, err := page.Info()
	if err != nil || !IsChallenge(info.Title) {
		return nil
	}
	p.logger.Warn("Captcha erkannt, warte auf Bestätigung", zap.String("titulo", info.Title))
	if err := p.prompter.Confirm(ctx, "Captcha no Jusbrasil: resolva no navegador."); err != nil {
		return fmt.Errorf("jusbrasil: captcha: %w", err)
	}
	if info, err := page.Info(); err == nil && IsChallenge(info.Title) {
		p.session.Dump(ctx, page, p.Name(), "captcha")
		return fmt.Errorf("jusbrasil: captcha persiste")
	}
	return nil
}

// openProfile klickt den Profil-Link, notfalls direkte Navigation.
func (p *Provider) openProfile(ctx context.Context, page *rod.Page, link string) {
	if els, err := page.Context(ctx).Elements("a[href]"); err == nil {
		for _, el := range els {
			href, err := el.Property("href")
			if err != nil || href.Str() != link {
				continue
			}
			if err := el.Click(proto.InputMouseButtonLeft, 1); err == nil {
				_ = page.Context(ctx).Timeout(navTimeout).WaitLoad()
				return
			}
			break
		}
	}
	if err := p.session.Navigate(ctx, page, link, navTimeout); err != nil {
		p.logger.Warn("Profil nicht erreichbar", zap.String("url", link), zap.Error(err))
	}
}

// roll scrollt in zufälligen Schritten, damit nachgeladene Abschnitte erscheinen.
func (p *Provider) roll(ctx context.Context, page *rod.Page) {
	for i := 0; i < scrolls; i++ {
		if ctx.Err() != nil {
			return
		}
		_ = page.Mouse.Scroll(0, float64(300+rand.Intn(500)), 3)
		time.Sleep(time.Duration(400+rand.Intn(600)) * time.Millisecond)
	}
}
