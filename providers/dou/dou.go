// Package dou implementiert den Provider für das Diário Oficial da União (in.gov.br) per Headless-Browser.
package dou

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/go-rod/rod/lib/input"
	"go.uber.org/zap"

	"gov-auditor/models"
	"gov-auditor/providers/browser"
)

// DefaultBaseURL ist das Portal der Imprensa Nacional.
const DefaultBaseURL = "https://www.in.gov.br"

const (
	searchInput    = "input#search-bar"
	resultMarker   = ".resultado"
	navTimeout     = 20 * time.Second
	resultsTimeout = 10 * time.Second
)

// Provider sucht Atos im DOU und liest deren Volltext.
type Provider struct {
	terms   []string
	base    string
	session *browser.Session
	logger  *zap.Logger
}

// New erstellt einen DOU-Provider. base leer = DefaultBaseURL.
func New(terms []string, base string, session *browser.Session, logger *zap.Logger) *Provider {
	if base == "" {
		base = DefaultBaseURL
	}
	return &Provider{terms: terms, base: base, session: session, logger: logger.With(zap.String("provider", "dou"))}
}

// Name gibt den Namen des Providers zurück.
func (p *Provider) Name() string {
	return "dou"
}

// Login startet den Browser.
func (p *Provider) Login(ctx context.Context) error {
	return p.session.Start(ctx)
}

// Close gibt den Browser frei.
func (p *Provider) Close() error {
	return p.session.Close()
}

// SearchURL baut die Such-URL für einen Begriff.
func SearchURL(base, term string) string {
	return fmt.Sprintf("%s/consulta/-/buscar/dou?q=%s&s=todos&exactDate=all&sortType=0",
		base, url.QueryEscape(`"`+term+`"`))
}

// Fetch sucht jeden Begriff und liest anschließend jeden Treffer.
func (p *Provider) Fetch(ctx context.Context) ([]models.RawRecord, error) {
	var records []models.RawRecord
	for _, term := range p.terms {
		if ctx.Err() != nil {
			return records, ctx.Err()
		}
		links, err := p.search(ctx, term)
		if err != nil {
			p.logger.Error("Suche fehlgeschlagen", zap.String("termo", term), zap.Error(err))
			continue
		}
		p.logger.Info("Suche abgeschlossen", zap.String("termo", term), zap.Int("links", len(links)))

		for _, link := range links {
			art, err := p.read(ctx, link.URL)
			if err != nil {
				p.logger.Warn("Ato konnte nicht gelesen werden", zap.String("url", link.URL), zap.Error(err))
			}
			date := art.Date
			if date == "" {
				date = link.PubDate
			}
			records = append(records, models.RawRecord{
				TermoBusca:     term,
				Titulo:         link.Title,
				URL:            link.URL,
				Conteudo:       art.Text,
				DataPublicacao: date,
			})
		}
	}
	return records, nil
}

func (p *Provider) search(ctx context.Context, term string) ([]Link, error) {
	page, err := p.session.NewPage()
	if err != nil {
		return nil, err
	}
	defer page.Close()

	if err := p.session.Navigate(ctx, page, SearchURL(p.base, term), navTimeout); err != nil {
		p.session.Dump(ctx, page, p.Name(), "navegacao")
		return nil, err
	}

	// Das Portal füllt die Ergebnisse erst nach erneuter Eingabe im Suchfeld.
	if box, err := page.Timeout(resultsTimeout).Element(searchInput); err == nil {
		_ = box.SelectAllText()
		if err := box.Input(term); err == nil {
			_ = box.Type(input.Enter)
		}
	} else {
		p.logger.Debug("Suchfeld nicht gefunden, nutze URL-Ergebnisse", zap.Error(err))
	}

	if browser.WaitAny(ctx, page, resultsTimeout, resultMarker) == "" {
		p.logger.Info("Keine Ergebnisse", zap.String("termo", term))
		return nil, nil
	}
	_ = page.Mouse.Scroll(0, 400, 4)
	time.Sleep(time.Second)

	html, err := page.HTML()
	if err != nil {
		p.session.Dump(ctx, page, p.Name(), "html")
		return nil, fmt.Errorf("dou: html: %w", err)
	}
	return ExtractDocumentLinks(html, p.base), nil
}

func (p *Provider) read(ctx context.Context, link string) (Article, error) {
	page, err := p.session.NewPage()
	if err != nil {
		return Article{}, err
	}
	defer page.Close()

	if err := p.session.Navigate(ctx, page, link, navTimeout); err != nil {
		return Article{}, err
	}
	browser.WaitAny(ctx, page, 5*time.Second, ".texto-dou")
	html, err := page.HTML()
	if err != nil {
		return Article{}, err
	}
	art := ParseArticle(html, link)
	if art.Text == "" {
		p.session.Dump(ctx, page, p.Name(), "sem-texto")
	}
	return art, nil
}
