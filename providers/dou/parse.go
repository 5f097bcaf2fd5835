package dou

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

const (
	// DocumentPath kennzeichnet Links auf einzelne Atos im Portal.
	DocumentPath = "/web/dou/-/"

	minTitleLen     = 5
	minParagraphLen = 20

	resultsScriptSelector = "script#_br_com_seatecnologia_in_buscadou_BuscaDouPortlet_params"
)

// Link ist ein Suchtreffer (Titel + absolute URL).
type Link struct {
	Title   string
	URL     string
	PubDate string
}

// Article ist der gelesene Inhalt eines Atos.
type Article struct {
	Text string
	Date string
}

type searchParams struct {
	JSONArray []struct {
		URLTitle string `json:"urlTitle"`
		Title    string `json:"title"`
		PubDate  string `json:"pubDate"`
	} `json:"jsonArray"`
}

// ExtractSearchResults liest die Treffer einer Suchseite: zuerst aus dem eingebetteten
// JSON-Skript, sonst aus den Ankern.
func ExtractSearchResults(html, base string) []Link {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	if raw := strings.TrimSpace(doc.Find(resultsScriptSelector).First().Text()); raw != "" {
		var params searchParams
		if err := json.Unmarshal([]byte(raw), &params); err == nil && len(params.JSONArray) > 0 {
			var links []Link
			seen := map[string]bool{}
			for _, item := range params.JSONArray {
				title := cleanLine(item.Title)
				if item.URLTitle == "" || len(title) < minTitleLen {
					continue
				}
				link := resolve(base, DocumentPath+item.URLTitle)
				if seen[link] {
					continue
				}
				seen[link] = true
				links = append(links, Link{Title: title, URL: link, PubDate: item.PubDate})
			}
			return links
		}
	}
	return documentLinks(doc, base)
}

// ExtractDocumentLinks sammelt alle Anker, deren href auf ein Ato zeigt, dedupliziert nach Link.
func ExtractDocumentLinks(html, base string) []Link {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	return documentLinks(doc, base)
}

func documentLinks(doc *goquery.Document, base string) []Link {
	var links []Link
	seen := map[string]bool{}
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if !strings.Contains(href, DocumentPath) {
			return
		}
		title := cleanLine(s.Text())
		if len(title) < minTitleLen {
			return
		}
		link := resolve(base, href)
		if seen[link] {
			return
		}
		seen[link] = true
		links = append(links, Link{Title: title, URL: link})
	})
	return links
}

// ParseArticle extrahiert den Text eines Atos: Klasse .texto-dou, sonst alle Absätze mit
// Mindestlänge, zuletzt Readability.
func ParseArticle(html, pageURL string) Article {
	var art Article
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return art
	}
	art.Date = cleanLine(doc.Find(".publicado-dou-data").First().Text())

	if main := doc.Find(".texto-dou").First(); main.Length() > 0 {
		var parts []string
		main.Find("p").Each(func(_ int, s *goquery.Selection) {
			if t := cleanLine(s.Text()); t != "" {
				parts = append(parts, t)
			}
		})
		if len(parts) == 0 {
			parts = append(parts, cleanLine(main.Text()))
		}
		art.Text = strings.TrimSpace(strings.Join(parts, "\n"))
		if art.Text != "" {
			return art
		}
	}

	var parts []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if t := cleanLine(s.Text()); len(t) >= minParagraphLen {
			parts = append(parts, t)
		}
	})
	if len(parts) > 0 {
		art.Text = strings.Join(parts, "\n")
		return art
	}

	if u, err := url.Parse(pageURL); err == nil {
		if article, err := readability.FromReader(strings.NewReader(html), u); err == nil {
			content, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
			if err == nil {
				if t := cleanLine(content.Text()); len(t) >= minParagraphLen {
					art.Text = t
				}
			}
		}
	}
	return art
}

func cleanLine(s string) string {
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
