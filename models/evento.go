package models

import "time"

// Evento ist die kanonische Form, die an den Webhook geschickt wird. Alle Werte sind Strings oder null.
type Evento struct {
	Fonte              string  `json:"fonte"`
	DataColeta         string  `json:"data_coleta"`
	TermoEncontrado    string  `json:"termo_encontrado"`
	TextoPublicacao    *string `json:"texto_publicacao"`
	LinkOficial        *string `json:"link_oficial"`
	IdentificadorUnico string  `json:"identificador_unico"`
	CNPJsEncontrados   *string `json:"cnpjs_encontrados"`
	ValoresEncontrados *string `json:"valores_encontrados"`
}

// NewEvento baut das Webhook-Event aus einer gespeicherten Publicacao.
func NewEvento(p *Publicacao) Evento {
	ev := Evento{
		Fonte:              p.Fonte,
		DataColeta:         p.DataCaptura.Format(time.RFC3339),
		TermoEncontrado:    p.TermoBusca,
		IdentificadorUnico: p.Identificador,
		CNPJsEncontrados:   p.CNPJs,
		ValoresEncontrados: p.Valores,
	}
	switch {
	case p.Conteudo != nil:
		ev.TextoPublicacao = p.Conteudo
	case p.Titulo != "":
		// Dossiês haben nur einen Titel
		titulo := p.Titulo
		ev.TextoPublicacao = &titulo
	}
	if p.URL != "" {
		link := p.URL
		ev.LinkOficial = &link
	}
	return ev
}
