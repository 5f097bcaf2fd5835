// inspecionar zeigt die zuletzt angereicherten Publicacoes.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"go.uber.org/zap"

	"gov-auditor/config"
	"gov-auditor/models"
	"gov-auditor/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config load error: %v", err)
	}
	dbPath := flag.String("db", cfg.DBPath, "Pfad zur SQLite-Datenbank")
	n := flag.Int("n", 5, "Anzahl der Zeilen")
	flag.Parse()

	store, err := storage.Open(*dbPath, zap.NewNop())
	if err != nil {
		log.Fatalf("Datenbank %s: %v", *dbPath, err)
	}
	defer store.Close()

	pubs, err := store.LatestMined(context.Background(), *n)
	if err != nil {
		log.Fatalf("Abfrage: %v", err)
	}
	render(os.Stdout, pubs)
}

func render(out io.Writer, pubs []models.Publicacao) {
	if len(pubs) == 0 {
		fmt.Fprintln(out, "Nenhum registro minerado.")
		return
	}
	for _, p := range pubs {
		fmt.Fprintf(out, "#%d [%s] %s\n", p.ID, p.Fonte, p.Titulo)
		fmt.Fprintf(out, "  link:    %s\n", p.Identificador)
		fmt.Fprintf(out, "  cnpjs:   %s\n", deref(p.CNPJs))
		fmt.Fprintf(out, "  valores: %s\n", deref(p.Valores))
	}
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
