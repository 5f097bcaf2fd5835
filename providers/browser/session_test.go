package browser

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	"go.uber.org/zap"
)

type fakeUploader struct {
	mu    sync.Mutex
	types map[string]string
	fail  bool
}

func (f *fakeUploader) Upload(ctx context.Context, key, contentType string, data []byte) (string, error) {
	if f.fail {
		return "", errors.New("bucket indisponível")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.types == nil {
		f.types = map[string]string{}
	}
	f.types[key] = contentType
	return "s3://diag/" + key, nil
}

func TestDumpWithoutPageOrDirIsNoop(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "diag")
	s := NewSession(Options{DiagnosticoDir: dir})
	s.Dump(context.Background(), nil, "tjsp", "sem_resultado")
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("diagnostic dir created for nil page: %v", err)
	}
}

func TestStoreArtifacts(t *testing.T) {
	dir := t.TempDir()
	up := &fakeUploader{}
	s := NewSession(Options{DiagnosticoDir: dir, Artifacts: up})

	s.store(context.Background(), zap.NewNop(), map[string][]byte{
		"dou-timeout.png":  []byte("png"),
		"dou-timeout.html": []byte("<html></html>"),
	})

	got, err := os.ReadFile(filepath.Join(dir, "dou-timeout.html"))
	if err != nil || string(got) != "<html></html>" {
		t.Fatalf("html = %q, err = %v", got, err)
	}
	if up.types["diagnostico/dou-timeout.png"] != "image/png" || up.types["diagnostico/dou-timeout.html"] != "text/html" {
		t.Errorf("uploads = %v", up.types)
	}
}

func TestStoreArtifactsKeepsLocalCopyWhenUploadFails(t *testing.T) {
	dir := t.TempDir()
	s := NewSession(Options{DiagnosticoDir: dir, Artifacts: &fakeUploader{fail: true}})
	s.store(context.Background(), zap.NewNop(), map[string][]byte{"x.html": []byte("x")})
	if _, err := os.Stat(filepath.Join(dir, "x.html")); err != nil {
		t.Errorf("local artifact missing: %v", err)
	}
}

func TestNewPageRequiresStart(t *testing.T) {
	if _, err := NewSession(Options{}).NewPage(); err == nil {
		t.Error("NewPage before Start must fail")
	}
}

func TestPageHelpers(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping browser test in short mode")
	}
	if _, ok := launcher.LookPath(); !ok {
		t.Skip("no Chrome/Chromium installed")
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`<html><body>
<button class="btn" style="display:none">oculto</button>
<button class="btn" id="visivel">Consultar</button>
<div id="mensagemRetorno">Nenhum resultado</div>
</body></html>`))
	}))
	defer srv.Close()

	dir := t.TempDir()
	s := NewSession(Options{Headless: true, DiagnosticoDir: dir})
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Skipf("browser did not start: %v", err)
	}
	defer s.Close()

	page, err := s.NewPage()
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Navigate(ctx, page, srv.URL, 15*time.Second); err != nil {
		t.Fatal(err)
	}

	if got := WaitAny(ctx, page, time.Second, ".fundocinza1", "#mensagemRetorno"); got != "#mensagemRetorno" {
		t.Errorf("WaitAny = %q", got)
	}
	if got := WaitAny(ctx, page, 300*time.Millisecond, ".nada"); got != "" {
		t.Errorf("WaitAny on missing selector = %q", got)
	}

	el, err := FirstVisible(ctx, page, ".btn")
	if err != nil {
		t.Fatal(err)
	}
	if id, _ := el.Attribute("id"); id == nil || *id != "visivel" {
		t.Errorf("FirstVisible picked %v", id)
	}
	if _, err := FirstVisible(ctx, page, ".nada"); err == nil {
		t.Error("FirstVisible on missing selector must fail")
	}

	text, err := BodyText(ctx, page)
	if err != nil || !strings.Contains(text, "Nenhum resultado") {
		t.Errorf("body = %q, err = %v", text, err)
	}

	s.Dump(ctx, page, "tjsp", "teste")
	files, _ := filepath.Glob(filepath.Join(dir, "tjsp-teste-*"))
	if len(files) != 2 {
		t.Errorf("dump files = %v, want png and html", files)
	}
}
