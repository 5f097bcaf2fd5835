package main

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	"go.uber.org/zap"

	"gov-auditor/models"
	"gov-auditor/storage"
)

func TestRunPrintsRowsAndSummary(t *testing.T) {
	store, err := storage.Open(filepath.Join(t.TempDir(), "p.db"), zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	ctx := context.Background()
	body := "CNPJ 12.345.678/0001-90, R$ 1,00 e R$ 2,00"
	plain := "sem dados"
	for i, b := range []*string{&body, &plain} {
		if _, err := store.Insert(ctx, &models.Publicacao{Identificador: string(rune('a' + i)), Conteudo: b}); err != nil {
			t.Fatal(err)
		}
	}

	var out bytes.Buffer
	if err := run(ctx, store, zap.NewNop(), &out); err != nil {
		t.Fatal(err)
	}
	want := "#1 cnpjs=[12.345.678/0001-90] valores=[R$ 1,00, R$ 2,00]\n1 de 2 registros enriquecidos\n"
	if out.String() != want {
		t.Errorf("output = %q, want %q", out.String(), want)
	}
}
