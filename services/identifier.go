package services

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"gov-auditor/models"
)

// HashPrefix markiert Identifikatoren, die aus dem Inhalt abgeleitet wurden.
const HashPrefix = "sha256:"

// DeriveIdentifier bestimmt den stabilen Schlüssel eines Treffers:
// Provider-ID, sonst URL, sonst Hash des (normalisierten) Inhalts. Leer, wenn nichts davon vorhanden ist.
func DeriveIdentifier(rec models.RawRecord) string {
	if id := strings.TrimSpace(rec.ID); id != "" {
		return id
	}
	if u := strings.TrimSpace(rec.URL); u != "" {
		return u
	}
	body := Normalize(rec.Conteudo)
	if body == "" {
		return ""
	}
	return ContentHash(body)
}

// ContentHash liefert den Hash-Identifikator für einen bereits normalisierten Text.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return HashPrefix + hex.EncodeToString(sum[:])
}
