// Package tjsp implementiert den Provider für die Jurisprudenzsuche (e-SAJ) des TJSP.
package tjsp

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"gov-auditor/models"
	"gov-auditor/providers/browser"
)

// DefaultBaseURL ist das e-SAJ des TJSP.
const DefaultBaseURL = "https://esaj.tjsp.jus.br"

const (
	homePath = "/cjsg/consultaCompleta.do"

	inputSelector          = `[id="iddados.buscaInteiroTeor"]`
	fallbackInputSelector  = `input[type="text"]`
	buttonSelector         = `input[value="Consultar"]`
	fallbackButtonSelector = ".spwBotaoDefault"

	navTimeout     = 20 * time.Second
	elementTimeout = 5 * time.Second
	resultsTimeout = 15 * time.Second
)

// Provider durchsucht die Jurisprudenz nach den konfigurierten Begriffen.
type Provider struct {
	terms   []string
	base    string
	session *browser.Session
	logger  *zap.Logger
}

// New erstellt einen TJSP-Provider. base leer = DefaultBaseURL.
func New(terms []string, base string, session *browser.Session, logger *zap.Logger) *Provider {
	if base == "" {
		base = DefaultBaseURL
	}
	return &Provider{terms: terms, base: base, session: session, logger: logger.With(zap.String("provider", "tjsp"))}
}

// Name gibt den Namen des Providers zurück.
func (p *Provider) Name() string {
	return "tjsp"
}

// Login startet den Browser.
func (p *Provider) Login(ctx context.Context) error {
	return p.session.Start(ctx)
}

// Close gibt den Browser frei.
func (p *Provider) Close() error {
	return p.session.Close()
}

// Fetch führt pro Begriff eine Suche aus und liefert alle Ergebniszeilen.
func (p *Provider) Fetch(ctx context.Context) ([]models.RawRecord, error) {
	var records []models.RawRecord
	for _, term := range p.terms {
		if ctx.Err() != nil {
			return records, ctx.Err()
		}
		results, err := p.search(ctx, term)
		if err != nil {
			p.logger.Error("Suche fehlgeschlagen", zap.String("termo", term), zap.Error(err))
			continue
		}
		p.logger.Info("Suche abgeschlossen", zap.String("termo", term), zap.Int("treffer", len(results)))
		for _, r := range results {
			records = append(records, models.RawRecord{
				TermoBusca:     term,
				Titulo:         r.Title,
				Conteudo:       r.Text,
				URL:            r.URL,
				NumeroProcesso: r.NumeroProcesso,
				DataPublicacao: r.Data,
			})
		}
	}
	return records, nil
}

func (p *Provider) search(ctx context.Context, term string) ([]Result, error) {
	page, err := p.session.NewPage()
	if err != nil {
		return nil, err
	}
	defer page.Close()

	if err := p.session.Navigate(ctx, page, p.base+homePath, navTimeout); err != nil {
		p.session.Dump(ctx, page, p.Name(), "navegacao")
		return nil, err
	}

	box, err := p.element(ctx, page, inputSelector, fallbackInputSelector)
	if err != nil {
		p.session.Dump(ctx, page, p.Name(), "campo-busca")
		return nil, fmt.Errorf("tjsp: campo de busca: %w", err)
	}
	if err := box.Input(term); err != nil {
		return nil, fmt.Errorf("tjsp: digitar termo: %w", err)
	}

	btn, err := p.element(ctx, page, buttonSelector, fallbackButtonSelector)
	if err != nil {
		p.session.Dump(ctx, page, p.Name(), "botao")
		return nil, fmt.Errorf("tjsp: botão consultar: %w", err)
	}
	if err := btn.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return nil, fmt.Errorf("tjsp: clicar consultar: %w", err)
	}

	if browser.WaitAny(ctx, page, resultsTimeout, rowSelector, "#divDadosResultado-A", "#mensagemRetorno") == "" {
		p.session.Dump(ctx, page, p.Name(), "sem-resultado")
		return nil, fmt.Errorf("tjsp: página de resultados não carregou")
	}

	html, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("tjsp: html: %w", err)
	}
	results, empty := ParseResults(html, p.base)
	if empty {
		p.logger.Info("Keine Ergebnisse", zap.String("termo", term))
		return nil, nil
	}
	if len(results) == 0 {
		p.session.Dump(ctx, page, p.Name(), "linhas")
	}
	return results, nil
}

// element sucht erst primary, dann das erste sichtbare fallback-Element.
func (p *Provider) element(ctx context.Context, page *rod.Page, primary, fallback string) (*rod.Element, error) {
	if el, err := page.Context(ctx).Timeout(elementTimeout).Element(primary); err == nil {
		return el.CancelTimeout(), nil
	}
	p.logger.Debug("Primärer Selektor fehlt, nutze Fallback", zap.String("selector", primary))
	return browser.FirstVisible(ctx, page, fallback)
}
