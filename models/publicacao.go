package models

import (
	"time"
)

// Publicacao repräsentiert einen einmal gespeicherten Treffer einer Quelle (Diário Oficial, Tribunal, ...).
type Publicacao struct {
	ID uint `json:"id" gorm:"primaryKey;autoIncrement"`

	Fonte      string `json:"fonte" gorm:"column:fonte;index"`
	TermoBusca string `json:"termo_busca" gorm:"column:termo_busca"`
	Titulo     string `json:"titulo" gorm:"column:titulo"`

	// Identificador liegt aus Kompatibilitätsgründen in der Spalte "link" (Unique-Key der Alt-Tabelle).
	Identificador string `json:"identificador" gorm:"column:link;uniqueIndex;not null"`
	URL           string `json:"url,omitempty" gorm:"column:url"`

	Conteudo       *string `json:"conteudo,omitempty" gorm:"column:conteudo;type:text"`
	NumeroProcesso string  `json:"numero_processo,omitempty" gorm:"column:numero_processo"`

	// Vom Miner nachträglich befüllt
	CNPJs   *string `json:"cnpjs,omitempty" gorm:"column:cnpjs;type:text"`
	Valores *string `json:"valores,omitempty" gorm:"column:valores;type:text"`

	DataPublicacao string    `json:"data_publicacao,omitempty" gorm:"column:data_publicacao"`
	DataCaptura    time.Time `json:"data_captura" gorm:"column:data_captura"`

	Notificado bool `json:"notificado" gorm:"column:notificado;not null;default:false"`
}

// TableName gibt den expliziten Tabellennamen für GORM an.
func (Publicacao) TableName() string {
	return "publicacoes"
}

// Texto liefert den Inhalt oder einen leeren String, falls nur der Link erfasst wurde.
func (p *Publicacao) Texto() string {
	if p.Conteudo == nil {
		return ""
	}
	return *p.Conteudo
}
