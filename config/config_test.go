package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestParseSettingsDefaults(t *testing.T) {
	s, err := ParseSettings([]byte("scrapers: [dou]\ntermos_busca: [\"dispensa de licitação\"]\n"))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if s.FrequenciaCron != "08:00" {
		t.Errorf("frequencia_cron = %q, want 08:00", s.FrequenciaCron)
	}
	if s.FusoHorario != "America/Sao_Paulo" {
		t.Errorf("fuso_horario = %q", s.FusoHorario)
	}
	if s.WebhookTimeout() != 10*time.Second {
		t.Errorf("webhook timeout = %v", s.WebhookTimeout())
	}
	if len(s.Scrapers) != 1 || s.Scrapers[0] != "dou" {
		t.Errorf("scrapers = %v", s.Scrapers)
	}
	if s.WebhookURL != "" {
		t.Errorf("webhook_url = %q, want empty", s.WebhookURL)
	}
}

func TestParseSettingsRejectsBadTime(t *testing.T) {
	for _, in := range []string{"24:00", "8h", "08:60", "abc"} {
		if _, err := ParseSettings([]byte("frequencia_cron: \"" + in + "\"\n")); err == nil {
			t.Errorf("frequencia_cron %q: expected error", in)
		}
	}
}

func TestParseSettingsRejectsBadTimezone(t *testing.T) {
	if _, err := ParseSettings([]byte("fuso_horario: Marte/Olympus\n")); err == nil {
		t.Fatal("expected error for unknown timezone")
	}
}

func TestCronSpec(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"08:00", "CRON_TZ=America/Sao_Paulo 0 8 * * *"},
		{"23:45", "CRON_TZ=America/Sao_Paulo 45 23 * * *"},
		{"7:05", "CRON_TZ=America/Sao_Paulo 5 7 * * *"},
	}
	for _, tt := range tests {
		s, err := ParseSettings([]byte("frequencia_cron: \"" + tt.in + "\"\n"))
		if err != nil {
			t.Fatalf("parse %q: %v", tt.in, err)
		}
		if got := s.CronSpec(); got != tt.want {
			t.Errorf("CronSpec(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoadSettingsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `frequencia_cron: "06:30"
scrapers:
  - dou
  - tjsp
termos_busca:
  - "inexigibilidade"
webhook_url: "http://localhost:5678/webhook/publicacoes"
modo_autonomo: true
tjsp:
  url_base: "https://esaj.example.test"
`
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := LoadSettings(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !s.ModoAutonomo || s.TJSP.URLBase != "https://esaj.example.test" || len(s.Scrapers) != 2 {
		t.Errorf("unexpected settings: %+v", s)
	}
}

func TestLoadSettingsMissingFile(t *testing.T) {
	if _, err := LoadSettings(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DB_PATH", "/tmp/x.db")
	t.Setenv("API_KEY_GOVERNO", "abc")
	t.Setenv("GEMINI_API_KEY", "")
	c, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.DBPath != "/tmp/x.db" || c.HTTPPort != "4242" {
		t.Errorf("unexpected config: %+v", c)
	}
	if missing := c.MissingSecrets(); len(missing) != 1 || missing[0] != "GEMINI_API_KEY" {
		t.Errorf("missing secrets = %v", missing)
	}
	if c.S3Enabled() {
		t.Error("S3 should be disabled without credentials")
	}
}

func TestSampleConfigParses(t *testing.T) {
	s, err := LoadSettings("../config.yaml")
	if err != nil {
		t.Fatalf("sample config: %v", err)
	}
	if len(s.Scrapers) == 0 || len(s.TermosBusca) == 0 || !s.ModoAutonomo {
		t.Errorf("settings = %+v", s)
	}
	if s.CronSpec() != "CRON_TZ=America/Sao_Paulo 0 8 * * *" {
		t.Errorf("cron = %q", s.CronSpec())
	}
}
