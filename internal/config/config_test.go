package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nyashahama/vitalwatch-backend/internal/config"
)

var allKeys = []string{
	"PORT", "ENV", "BASE_URL", "REQUEST_TIMEOUT", "DATABASE_URL", "SEED_MOCK_DATA",
	"AI_PROVIDER", "AI_TIMEOUT", "GEMINI_API_KEY", "GEMINI_MODEL", "ANTHROPIC_API_KEY",
	"ANTHROPIC_MODEL", "DEEPSEEK_API_KEY", "DEEPSEEK_MODEL", "OPENAI_API_KEY", "OPENAI_MODEL",
	"RESEND_API_KEY", "ALERT_EMAIL_TO", "EMAIL_FROM_ADDR", "EMAIL_FROM_NAME",
	"WORKER_COUNT", "QUEUE_SIZE", "JOB_TIMEOUT", "MAX_RETRIES",
}

// cleanEnv blanks every variable Load reads and moves into an empty
// directory so no stray .env is picked up.
func cleanEnv(t *testing.T) {
	t.Helper()
	for _, k := range allKeys {
		t.Setenv(k, "")
	}
	t.Chdir(t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	cleanEnv(t)
	t.Setenv("GEMINI_API_KEY", "g-key")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Port != "8080" || cfg.Env != "development" {
		t.Errorf("server defaults: %+v", cfg)
	}
	if cfg.RequestTimeout != 60*time.Second || cfg.AITimeout != 90*time.Second {
		t.Errorf("timeouts: request=%s ai=%s", cfg.RequestTimeout, cfg.AITimeout)
	}
	if !cfg.SeedMockData {
		t.Error("SeedMockData should default to true")
	}
	if cfg.WorkerCount != 3 || cfg.MaxRetries != 3 {
		t.Errorf("worker defaults: %d workers, %d retries", cfg.WorkerCount, cfg.MaxRetries)
	}
	if cfg.AlertsEnabled() {
		t.Error("alerts should be disabled without Resend key and recipient")
	}

	ai := cfg.AI()
	if ai.GeminiAPIKey != "g-key" || ai.Timeout != 90*time.Second {
		t.Errorf("AI config: %+v", ai)
	}
}

func TestLoad_Overrides(t *testing.T) {
	cleanEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "a-key")
	t.Setenv("AI_PROVIDER", " Anthropic ")
	t.Setenv("REQUEST_TIMEOUT", "15")
	t.Setenv("AI_TIMEOUT", "2m")
	t.Setenv("SEED_MOCK_DATA", "false")
	t.Setenv("RESEND_API_KEY", "re_key")
	t.Setenv("ALERT_EMAIL_TO", "oncall@clinic.example")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AIProvider != "anthropic" {
		t.Errorf("AIProvider: got %q", cfg.AIProvider)
	}
	if cfg.RequestTimeout != 15*time.Second {
		t.Errorf("integer durations are seconds, got %s", cfg.RequestTimeout)
	}
	if cfg.AITimeout != 2*time.Minute {
		t.Errorf("AITimeout: got %s", cfg.AITimeout)
	}
	if cfg.SeedMockData {
		t.Error("SeedMockData should be false")
	}
	if !cfg.AlertsEnabled() {
		t.Error("alerts should be enabled")
	}
}

func TestLoad_AggregatesProblems(t *testing.T) {
	cleanEnv(t)
	t.Setenv("AI_PROVIDER", "llama")
	t.Setenv("ALERT_EMAIL_TO", "not an address")
	t.Setenv("WORKER_COUNT", "0")

	_, err := config.Load()
	if err == nil {
		t.Fatal("expected an error")
	}
	for _, want := range []string{"GEMINI_API_KEY", "AI_PROVIDER", "ALERT_EMAIL_TO", "WORKER_COUNT"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %s: %v", want, err)
		}
	}
}

func TestLoad_DotEnvDoesNotOverrideEnvironment(t *testing.T) {
	cleanEnv(t)
	t.Setenv("PORT", "9090")
	// godotenv only fills variables that are absent, not ones set to "".
	// cleanEnv's t.Setenv restores the original value afterwards.
	os.Unsetenv("GEMINI_API_KEY")

	dotenv := "GEMINI_API_KEY=from-file\nPORT=7070\n"
	if err := os.WriteFile(filepath.Join(".", ".env"), []byte(dotenv), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.GeminiAPIKey != "from-file" {
		t.Errorf("GeminiAPIKey: got %q", cfg.GeminiAPIKey)
	}
	if cfg.Port != "9090" {
		t.Errorf("real env should win, got port %q", cfg.Port)
	}
}

func TestLoadDatabaseURL(t *testing.T) {
	cleanEnv(t)
	if _, err := config.LoadDatabaseURL(); err == nil {
		t.Fatal("expected error when DATABASE_URL is empty")
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/vitalwatch")
	dsn, err := config.LoadDatabaseURL()
	if err != nil || dsn != "postgres://localhost/vitalwatch" {
		t.Fatalf("got %q, %v", dsn, err)
	}
}
