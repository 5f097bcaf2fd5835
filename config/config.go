package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config enthält Secrets und Prozessparameter aus Umgebungsvariablen.
type Config struct {
	// Werden nur an externe Kollaborateure (Portal da Transparência, Gemini) durchgereicht.
	APIKeyGoverno string `envconfig:"API_KEY_GOVERNO"`
	GeminiAPIKey  string `envconfig:"GEMINI_API_KEY"`

	ConfigPath string `envconfig:"CONFIG_PATH" default:"config.yaml"`
	DBPath     string `envconfig:"DB_PATH" default:"dados/publicacoes.db"`

	HTTPPort     string `envconfig:"HTTP_PORT" default:"4242"`
	APISecretKey string `envconfig:"API_SECRET_KEY"`

	DiagnosticoDir  string `envconfig:"DIAGNOSTICO_DIR" default:"diagnostico"`
	ChromeRemoteURL string `envconfig:"CHROME_REMOTE_URL"`
	BrowserHeadless bool   `envconfig:"BROWSER_HEADLESS" default:"true"`

	// Optional: Diagnose-Artefakte nach S3 hochladen
	S3Key    string `envconfig:"S3_KEY"`
	S3Secret string `envconfig:"S3_SECRET"`
	S3URL    string `envconfig:"S3_URL"`
	S3Region string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Bucket string `envconfig:"S3_BUCKET"`

	LogDev bool `envconfig:"LOG_DEV" default:"false"`
}

// S3Enabled meldet, ob alle S3-Parameter gesetzt sind.
func (c *Config) S3Enabled() bool {
	return c.S3URL != "" && c.S3Bucket != "" && c.S3Key != "" && c.S3Secret != ""
}

// MissingSecrets listet die nicht gesetzten Secrets auf.
func (c *Config) MissingSecrets() []string {
	var missing []string
	if c.APIKeyGoverno == "" {
		missing = append(missing, "API_KEY_GOVERNO")
	}
	if c.GeminiAPIKey == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}
	return missing
}

// Load lädt die Konfiguration aus den Umgebungsvariablen (optional aus .env).
func Load() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	err := envconfig.Process("", &c)
	return &c, err
}

// SourceSettings sind quellspezifische Overrides aus dem YAML-Dokument.
type SourceSettings struct {
	URLBase string `yaml:"url_base"`
}

// Settings ist das Laufzeitdokument (config.yaml).
type Settings struct {
	FrequenciaCron string   `yaml:"frequencia_cron"`
	Scrapers       []string `yaml:"scrapers"`
	TermosBusca    []string `yaml:"termos_busca"`
	WebhookURL     string   `yaml:"webhook_url"`

	FusoHorario            string `yaml:"fuso_horario"`
	ModoAutonomo           bool   `yaml:"modo_autonomo"`
	WebhookTimeoutSegundos int    `yaml:"webhook_timeout_segundos"`

	DOU  SourceSettings `yaml:"dou"`
	TJSP SourceSettings `yaml:"tjsp"`
}

var hhmmRegex = regexp.MustCompile(`^([01]?\d|2[0-3]):([0-5]\d)$`)

// LoadSettings liest und validiert das YAML-Dokument.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: lesen von %s: %w", path, err)
	}
	return ParseSettings(data)
}

// ParseSettings dekodiert ein YAML-Dokument und setzt Defaults.
func ParseSettings(data []byte) (*Settings, error) {
	var s Settings
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("config: yaml: %w", err)
	}
	if s.FrequenciaCron == "" {
		s.FrequenciaCron = "08:00"
	}
	if !hhmmRegex.MatchString(s.FrequenciaCron) {
		return nil, fmt.Errorf("config: frequencia_cron %q ist kein HH:MM", s.FrequenciaCron)
	}
	if s.FusoHorario == "" {
		s.FusoHorario = "America/Sao_Paulo"
	}
	if _, err := time.LoadLocation(s.FusoHorario); err != nil {
		return nil, fmt.Errorf("config: fuso_horario %q: %w", s.FusoHorario, err)
	}
	if s.WebhookTimeoutSegundos <= 0 {
		s.WebhookTimeoutSegundos = 10
	}
	return &s, nil
}

// CronSpec wandelt "HH:MM" in einen täglichen Cron-Ausdruck um ("MM HH * * *").
func (s *Settings) CronSpec() string {
	m := hhmmRegex.FindStringSubmatch(s.FrequenciaCron)
	if m == nil {
		return "0 8 * * *"
	}
	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])
	return fmt.Sprintf("CRON_TZ=%s %d %d * * *", s.FusoHorario, minute, hour)
}

// WebhookTimeout liefert das Timeout für den Notifier.
func (s *Settings) WebhookTimeout() time.Duration {
	return time.Duration(s.WebhookTimeoutSegundos) * time.Second
}
