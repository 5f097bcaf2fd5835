package services

import (
	"context"
	"strings"
	"testing"

	"go.uber.org/zap"

	"gov-auditor/models"
)

func TestCollectDedupesByURL(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	p := &fakeProvider{name: "dou", records: []models.RawRecord{
		{TermoBusca: "dispensa", Titulo: "Extrato 1", URL: "https://x/1", Conteudo: "texto um"},
		{TermoBusca: "inexigibilidade", Titulo: "Extrato 1", URL: "https://x/1", Conteudo: "texto um"},
	}}

	fresh, err := Collect(ctx, p, store, zap.NewNop())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(fresh) != 1 {
		t.Fatalf("fresh = %d, want 1", len(fresh))
	}
	if fresh[0].TermoBusca != "dispensa" || fresh[0].Fonte != "dou" || fresh[0].ID == 0 {
		t.Errorf("fresh = %+v", fresh[0])
	}
	if n, _ := store.Count(ctx); n != 1 {
		t.Errorf("rows = %d, want 1", n)
	}
}

func TestCollectDedupesByBodyHash(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	p := &fakeProvider{name: "tjsp", records: []models.RawRecord{
		{TermoBusca: "a", Conteudo: "Acórdão   sobre  contrato\n"},
		{TermoBusca: "b", Conteudo: "Acórdão sobre contrato"},
	}}

	fresh, err := Collect(ctx, p, store, zap.NewNop())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(fresh) != 1 {
		t.Fatalf("fresh = %d, want 1", len(fresh))
	}
	id := fresh[0].Identificador
	if !strings.HasPrefix(id, HashPrefix) || id != ContentHash("Acórdão sobre contrato") {
		t.Errorf("identificador = %q", id)
	}
	if n, _ := store.Count(ctx); n != 1 {
		t.Errorf("rows = %d, want 1", n)
	}
}

func TestCollectSkipsEmptyRecords(t *testing.T) {
	store := openTestStore(t)
	p := &fakeProvider{name: "dou", records: []models.RawRecord{
		{TermoBusca: "a", Titulo: "so titulo"},
		{TermoBusca: "a", URL: "https://x/2"},
	}}
	fresh, err := Collect(context.Background(), p, store, zap.NewNop())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(fresh) != 1 || fresh[0].Identificador != "https://x/2" {
		t.Errorf("fresh = %+v", fresh)
	}
	if fresh[0].Conteudo != nil {
		t.Error("empty body must be stored as NULL")
	}
}

func TestCollectLoginFailure(t *testing.T) {
	store := openTestStore(t)
	p := &fakeProvider{name: "tjsp", loginErr: errLogin, records: []models.RawRecord{{URL: "https://x/3"}}}

	fresh, err := Collect(context.Background(), p, store, zap.NewNop())
	if err == nil || fresh != nil {
		t.Fatalf("fresh = %v, err = %v", fresh, err)
	}
	if p.fetches != 0 {
		t.Error("fetch must not run after failed login")
	}
}

func TestCollectRecoversPanic(t *testing.T) {
	p := &fakeProvider{name: "jusbrasil", panicMsg: "boom"}
	if _, err := Collect(context.Background(), p, openTestStore(t), zap.NewNop()); err == nil || !strings.Contains(err.Error(), "boom") {
		t.Errorf("err = %v", err)
	}
}
