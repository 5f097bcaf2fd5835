// minerar reichert alle gespeicherten Publicacoes einmalig mit CNPJs und Beträgen an.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"go.uber.org/zap"

	"gov-auditor/config"
	"gov-auditor/services"
	"gov-auditor/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Config load error: %v", err)
	}
	dbPath := flag.String("db", cfg.DBPath, "Pfad zur SQLite-Datenbank")
	verbose := flag.Bool("v", false, "zap-Logs auf stderr ausgeben")
	flag.Parse()

	logging := zap.NewNop()
	if *verbose {
		if logging, err = zap.NewDevelopment(); err != nil {
			log.Fatalf("can't initialize zap logger: %v", err)
		}
	}
	defer logging.Sync()

	store, err := storage.Open(*dbPath, logging)
	if err != nil {
		log.Fatalf("Datenbank %s: %v", *dbPath, err)
	}
	defer store.Close()

	if err := run(context.Background(), store, logging, os.Stdout); err != nil {
		log.Fatalf("Miner: %v", err)
	}
}

func run(ctx context.Context, store services.MinerStore, logging *zap.Logger, out io.Writer) error {
	miner := services.NewMiner(store, logging)
	report, err := miner.Run(ctx, func(r services.MineResult) {
		fmt.Fprintf(out, "#%d cnpjs=[%s] valores=[%s]\n", r.ID, strings.Join(r.CNPJs, ", "), strings.Join(r.Valores, ", "))
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%d de %d registros enriquecidos\n", report.Enriched, report.Scanned)
	return nil
}
