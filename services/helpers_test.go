package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"go.uber.org/zap"

	"gov-auditor/models"
	"gov-auditor/storage"
)

func openTestStore(t *testing.T) *storage.Store {
	t.Helper()
	s, err := storage.Open(filepath.Join(t.TempDir(), "publicacoes.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// fakeProvider liefert vorgegebene Treffer und zählt die Aufrufe.
type fakeProvider struct {
	name     string
	records  []models.RawRecord
	loginErr error
	panicMsg string
	human    bool

	mu      sync.Mutex
	logins  int
	fetches int
	closed  int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Login(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins++
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	return f.loginErr
}

func (f *fakeProvider) Fetch(ctx context.Context) ([]models.RawRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetches++
	out := make([]models.RawRecord, len(f.records))
	copy(out, f.records)
	return out, nil
}

func (f *fakeProvider) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeProvider) RequiresHuman() bool { return f.human }

var errLogin = errors.New("login recusado")
