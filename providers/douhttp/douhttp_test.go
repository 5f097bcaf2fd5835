package douhttp

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func newPortal(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/consulta/-/buscar/dou", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") != `"inexigibilidade"` {
			fmt.Fprint(w, `<html><body><p>Nenhum resultado</p></body></html>`)
			return
		}
		fmt.Fprint(w, `<html><body>
<a href="/web/dou/-/extrato-1">EXTRATO DE INEXIGIBILIDADE 1</a>
<a href="/web/dou/-/extrato-2">EXTRATO DE INEXIGIBILIDADE 2</a>
<a href="/web/dou/-/quebrado">LINK QUEBRADO NO PORTAL</a>
</body></html>`)
	})
	mux.HandleFunc("/web/dou/-/extrato-1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><span class="publicado-dou-data">01/02/2025</span>
<div class="texto-dou"><p>Contratada: 12.345.678/0001-90, valor R$ 10,00.</p></div></body></html>`)
	})
	mux.HandleFunc("/web/dou/-/extrato-2", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><div class="texto-dou"><p>Segundo extrato publicado.</p></div></body></html>`)
	})
	mux.HandleFunc("/web/dou/-/quebrado", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchReadsEveryResult(t *testing.T) {
	srv := newPortal(t)
	p := New([]string{"inexigibilidade", "nada"}, srv.URL, zap.NewNop())

	if err := p.Login(context.Background()); err != nil {
		t.Fatal(err)
	}
	records, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %+v, want 3", records)
	}

	first := records[0]
	if first.URL != srv.URL+"/web/dou/-/extrato-1" || first.TermoBusca != "inexigibilidade" {
		t.Errorf("first record = %+v", first)
	}
	if first.Conteudo != "Contratada: 12.345.678/0001-90, valor R$ 10,00." || first.DataPublicacao != "01/02/2025" {
		t.Errorf("first record content = %+v", first)
	}
	if records[1].Conteudo != "Segundo extrato publicado." {
		t.Errorf("second content = %q", records[1].Conteudo)
	}
	// Ein nicht lesbarer Ato bleibt als Link-Treffer ohne Inhalt erhalten.
	if records[2].Conteudo != "" || records[2].URL == "" {
		t.Errorf("broken record = %+v", records[2])
	}
}

func TestFetchSearchFailureIsLogged(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "indisponível", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := New([]string{"x"}, srv.URL, zap.NewNop())
	records, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch should swallow per-term errors, got %v", err)
	}
	if len(records) != 0 {
		t.Errorf("records = %+v", records)
	}
}
