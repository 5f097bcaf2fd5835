package models

// RawRecord ist das, was ein Provider pro Treffer liefert. Mindestens Conteudo oder URL ist gesetzt,
// alle anderen Felder sind optional.
type RawRecord struct {
	// ID ist ein optionaler, vom Provider vergebener Schlüssel (hat Vorrang vor URL und Hash).
	ID             string
	TermoBusca     string
	Titulo         string
	Conteudo       string
	URL            string
	NumeroProcesso string
	DataPublicacao string
}
