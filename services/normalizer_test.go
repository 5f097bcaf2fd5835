package services

import (
	"strings"
	"testing"

	"gov-auditor/models"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"  texto  simples \n", "texto simples"},
		{"ﬁnanceiro e ﬂuxo", "financeiro e fluxo"},
		{"dispensa de licita-\nção", "dispensa de licitação"},
		{"e\u0301dital", "\u00e9dital"},
		{"valor de\tR$ 10,00", "valor de R$ 10,00"},
		{"a\r\nb\n\n\n\nc", "a\nb\n\nc"},
		{"linha   \nseguinte", "linha\nseguinte"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeLine(t *testing.T) {
	if got := NormalizeLine(" EXTRATO\nDE   CONTRATO "); got != "EXTRATO DE CONTRATO" {
		t.Errorf("NormalizeLine = %q", got)
	}
}

func TestDeriveIdentifier(t *testing.T) {
	hashed := DeriveIdentifier(models.RawRecord{Conteudo: "corpo  do ato"})
	tests := []struct {
		name string
		rec  models.RawRecord
		want string
	}{
		{"id vor url", models.RawRecord{ID: "abc", URL: "https://x/1", Conteudo: "x"}, "abc"},
		{"url vor hash", models.RawRecord{URL: " https://x/1 ", Conteudo: "x"}, "https://x/1"},
		{"hash", models.RawRecord{Conteudo: "corpo do ato"}, hashed},
		{"leer", models.RawRecord{Titulo: "nur titel", Conteudo: "  \n "}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveIdentifier(tt.rec); got != tt.want {
				t.Errorf("DeriveIdentifier = %q, want %q", got, tt.want)
			}
		})
	}
	if !strings.HasPrefix(hashed, HashPrefix) || len(hashed) != len(HashPrefix)+64 {
		t.Errorf("hash identifier = %q", hashed)
	}
}
