package services

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	ligatureReplacer = strings.NewReplacer(
		"ﬁ", "fi",
		"ﬂ", "fl",
		"ﬀ", "ff",
		"ﬃ", "ffi",
		"ﬄ", "ffl",
		"ﬆ", "st",
	)
	hyphenationRegex = regexp.MustCompile(`(?m)([\p{L}\p{N}])-(?:\r?\n)([\p{Ll}])`)
	spaceRegex       = regexp.MustCompile("[\t\f\v\u00A0\u200B]+")
	multiSpaceRegex  = regexp.MustCompile(` {2,}`)
	multiNewlines    = regexp.MustCompile(`\n{3,}`)
	anyWhitespace    = regexp.MustCompile(`\s+`)
)

// Normalize bereinigt erfassten Text: NFC, Ligaturen, Silbentrennung am Zeilenende, Leerraum.
// Gleicher sichtbarer Text ergibt damit denselben Hash.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	s = normalizeUnicodeAndLigatures(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = hyphenationRegex.ReplaceAllString(s, "$1$2")
	return collapseWhitespace(s)
}

// NormalizeLine reduziert jeden Leerraum (auch Zeilenumbrüche) auf ein Leerzeichen.
func NormalizeLine(s string) string {
	s = normalizeUnicodeAndLigatures(s)
	return strings.TrimSpace(anyWhitespace.ReplaceAllString(s, " "))
}

// normalizeUnicodeAndLigatures führt NFC-Normalisierung durch und ersetzt gängige Ligaturen
func normalizeUnicodeAndLigatures(s string) string {
	s = ligatureReplacer.Replace(s)
	normalized, _, err := transform.String(norm.NFC, s)
	if err != nil {
		return s
	}
	return normalized
}

func collapseWhitespace(s string) string {
	s = spaceRegex.ReplaceAllString(s, " ")
	s = multiSpaceRegex.ReplaceAllString(s, " ")
	s = multiNewlines.ReplaceAllString(s, "\n\n")
	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimRightFunc(lines[i], unicode.IsSpace)
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
