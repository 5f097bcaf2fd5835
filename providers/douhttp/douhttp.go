// Package douhttp liest das Diário Oficial ohne Browser: Suchseite und Atos per HTTP (colly),
// Auswertung mit denselben Parsern wie der Browser-Provider.
package douhttp

import (
	"context"
	"fmt"
	"time"

	"github.com/gocolly/colly"
	"go.uber.org/zap"

	"gov-auditor/models"
	"gov-auditor/providers/dou"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"

// Provider implementiert die Suche im DOU über HTTP.
type Provider struct {
	terms   []string
	base    string
	timeout time.Duration
	logger  *zap.Logger
}

// New erstellt den HTTP-Provider. base leer = dou.DefaultBaseURL.
func New(terms []string, base string, logger *zap.Logger) *Provider {
	if base == "" {
		base = dou.DefaultBaseURL
	}
	return &Provider{
		terms:   terms,
		base:    base,
		timeout: 20 * time.Second,
		logger:  logger.With(zap.String("provider", "dou_http")),
	}
}

// Name gibt den Namen des Providers zurück.
func (p *Provider) Name() string {
	return "dou_http"
}

// Login ist für das öffentliche Portal nicht nötig.
func (p *Provider) Login(ctx context.Context) error {
	return nil
}

// Fetch sucht jeden Begriff und liest jeden gefundenen Ato.
func (p *Provider) Fetch(ctx context.Context) ([]models.RawRecord, error) {
	var records []models.RawRecord
	for _, term := range p.terms {
		if ctx.Err() != nil {
			return records, ctx.Err()
		}
		links, err := p.search(term)
		if err != nil {
			p.logger.Error("Suche fehlgeschlagen", zap.String("termo", term), zap.Error(err))
			continue
		}
		p.logger.Info("Suche abgeschlossen", zap.String("termo", term), zap.Int("links", len(links)))

		for _, link := range links {
			if ctx.Err() != nil {
				return records, ctx.Err()
			}
			art, err := p.read(link.URL)
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

func (p *Provider) newCollector() *colly.Collector {
	c := colly.NewCollector(
		colly.UserAgent(userAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(p.timeout)
	c.OnError(func(r *colly.Response, err error) {
		p.logger.Debug("HTTP-Fehler", zap.String("url", r.Request.URL.String()), zap.Int("status", r.StatusCode), zap.Error(err))
	})
	return c
}

func (p *Provider) search(term string) ([]dou.Link, error) {
	var links []dou.Link
	c := p.newCollector()
	c.OnResponse(func(r *colly.Response) {
		links = dou.ExtractSearchResults(string(r.Body), p.base)
	})
	if err := c.Visit(dou.SearchURL(p.base, term)); err != nil {
		return nil, fmt.Errorf("douhttp: busca: %w", err)
	}
	return links, nil
}

func (p *Provider) read(link string) (dou.Article, error) {
	var art dou.Article
	c := p.newCollector()
	c.OnResponse(func(r *colly.Response) {
		art = dou.ParseArticle(string(r.Body), r.Request.URL.String())
	})
	if err := c.Visit(link); err != nil {
		return art, fmt.Errorf("douhttp: ato: %w", err)
	}
	return art, nil
}
