package tjsp

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// NoResultsSentinel erscheint, wenn die Suche keine Acórdãos liefert.
const NoResultsSentinel = "Não foi encontrado nenhum resultado"

const (
	rowSelector         = ".fundocinza1"
	fallbackRowSelector = "table tr"
	minRowLen           = 20
	maxTitleLen         = 160
)

var (
	processoRegex = regexp.MustCompile(`\d{7}-\d{2}\.\d{4}\.\d\.\d{2}\.\d{4}`)
	publicadoEm   = regexp.MustCompile(`(?i)data de publica[çc][ãa]o:\s*(\d{2}/\d{2}/\d{4})`)
	anyDate       = regexp.MustCompile(`\d{2}/\d{2}/\d{4}`)
)

// Result ist eine Ergebniszeile der Jurisprudenzsuche.
type Result struct {
	Title          string
	Text           string
	URL            string
	NumeroProcesso string
	Data           string
}

// ParseResults liest die Ergebniszeilen einer Trefferseite. empty ist true, wenn die
// Seite ausdrücklich "keine Ergebnisse" meldet.
func ParseResults(html, base string) (results []Result, empty bool) {
	if strings.Contains(html, NoResultsSentinel) {
		return nil, true
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, false
	}

	rows := doc.Find(rowSelector)
	if rows.Length() == 0 {
		rows = doc.Find(fallbackRowSelector)
	}

	seen := map[string]bool{}
	rows.Each(func(_ int, row *goquery.Selection) {
		text := cleanText(row.Text())
		if len(text) < minRowLen {
			return
		}
		link := inteiroTeor(row, base)
		if link == "" {
			link = PseudoLink(base, text)
		}
		if seen[link] {
			return
		}
		seen[link] = true

		res := Result{
			Text:           text,
			URL:            link,
			NumeroProcesso: processoRegex.FindString(text),
		}
		if m := publicadoEm.FindStringSubmatch(text); m != nil {
			res.Data = m[1]
		} else {
			res.Data = anyDate.FindString(text)
		}
		res.Title = title(res)
		results = append(results, res)
	})
	return results, false
}

// PseudoLink erzeugt einen stabilen Link für Zeilen ohne Inteiro-Teor.
func PseudoLink(base, text string) string {
	sum := sha256.Sum256([]byte(text))
	return strings.TrimRight(base, "/") + "/cjsg/resultadoCompleta.do#" + hex.EncodeToString(sum[:8])
}

func inteiroTeor(row *goquery.Selection, base string) string {
	var link string
	row.Find("a").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if cd, ok := a.Attr("cdacordao"); ok && strings.TrimSpace(cd) != "" {
			link = strings.TrimRight(base, "/") + "/cjsg/getArquivo.do?cdAcordao=" + url.QueryEscape(strings.TrimSpace(cd)) + "&cdForo=0"
			return false
		}
		href, _ := a.Attr("href")
		if strings.Contains(href, "getArquivo.do") || strings.Contains(strings.ToLower(href), "cdacordao") {
			link = resolve(base, href)
			return false
		}
		return true
	})
	return link
}

func title(r Result) string {
	if r.NumeroProcesso != "" {
		return "Acórdão " + r.NumeroProcesso
	}
	runes := []rune(r.Text)
	if len(runes) > maxTitleLen {
		return string(runes[:maxTitleLen]) + "…"
	}
	return r.Text
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
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
