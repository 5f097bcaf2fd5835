package jusbrasil

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	profileHref  = regexp.MustCompile(`/(pessoa|nome)s?/`)
	processCount = regexp.MustCompile(`(?i)(\d[\d.]*)\s+processos?\b`)

	companySuffixes = []string{" LTDA", " LTDA.", " S.A.", " S/A", " EIRELI", " ME", " EPP"}
	companyIgnore   = []string{"JUSBRASIL", "TRIBUNAL", "MINISTÉRIO PÚBLICO", "DEFENSORIA", "PREFEITURA", "ESTADO DE", "UNIÃO FEDERAL"}

	challengeTitles = []string{"just a moment", "attention required", "captcha", "verificação", "verifique", "acesso negado"}
)

const (
	minCompanyLen = 5
	maxCompanyLen = 120
)

// Dossie fasst die Profilseite zu einem Begriff zusammen.
type Dossie struct {
	Termo     string
	Processos int
	ComoAutor int
	ComoReu   int
	Empresas  []string
}

// Summary liefert die einzeilige Zusammenfassung, die als Titel gespeichert wird.
func (d Dossie) Summary() string {
	s := fmt.Sprintf("Dossiê %s: %d processos (%d como autor, %d como réu)", d.Termo, d.Processos, d.ComoAutor, d.ComoReu)
	if len(d.Empresas) > 0 {
		s += "; empresas: " + strings.Join(d.Empresas, ", ")
	}
	return s
}

// IsChallenge erkennt Captcha- und Zwischenseiten am Seitentitel.
func IsChallenge(title string) bool {
	t := strings.ToLower(title)
	for _, c := range challengeTitles {
		if strings.Contains(t, c) {
			return true
		}
	}
	return false
}

// FindProfileLink sucht den ersten Personen-Link, dessen Text den Begriff enthält.
func FindProfileLink(html, term, base string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}
	needle := strings.ToLower(strings.TrimSpace(term))
	var link string
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		href, _ := a.Attr("href")
		if !profileHref.MatchString(href) {
			return true
		}
		if !strings.Contains(strings.ToLower(a.Text()), needle) {
			return true
		}
		link = resolve(base, href)
		return false
	})
	return link
}

// ParseDossie wertet den Seitentext zeilenweise aus.
func ParseDossie(term, text string) Dossie {
	d := Dossie{Termo: term}
	seen := map[string]bool{}
	for _, raw := range strings.Split(text, "\n") {
		line := strings.Join(strings.Fields(raw), " ")
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)

		if d.Processos == 0 {
			if m := processCount.FindStringSubmatch(line); m != nil {
				if n, err := strconv.Atoi(strings.ReplaceAll(m[1], ".", "")); err == nil {
					d.Processos = n
				}
			}
		}

		switch {
		case strings.Contains(lower, "autor") || strings.Contains(lower, "requerente"):
			d.ComoAutor++
		case strings.Contains(lower, "réu") || strings.Contains(lower, "requerido"):
			d.ComoReu++
		}

		if company, ok := companyLine(line); ok && !seen[company] {
			seen[company] = true
			d.Empresas = append(d.Empresas, company)
		}
	}
	return d
}

func companyLine(line string) (string, bool) {
	if len(line) < minCompanyLen || len(line) > maxCompanyLen {
		return "", false
	}
	upper := strings.ToUpper(line)
	for _, ign := range companyIgnore {
		if strings.Contains(upper, ign) {
			return "", false
		}
	}
	for _, suf := range companySuffixes {
		if strings.HasSuffix(upper, suf) {
			return upper, true
		}
	}
	return "", false
}

func resolve(base, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	b, err := url.Parse(base)
	if err != nil || ref.IsAbs() {
		return ref.String()
	}
	return b.ResolveReference(ref).String()
}
