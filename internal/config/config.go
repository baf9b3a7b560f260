// Package config loads and validates all environment variables at startup.
// Every other package receives typed values; nothing reads os.Getenv directly.
package config

import (
	"errors"
	"fmt"
	"net/mail"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/nyashahama/vitalwatch-backend/internal/ai"
)

// Config is the fully-parsed application configuration.
type Config struct {
	// ── Server ────────────────────────────────────────────────────────────────
	Port           string        // default "8080"; HTTP and gRPC share it
	Env            string        // "development" | "staging" | "production"
	BaseURL        string        // dashboard origin, used for links in alert emails
	RequestTimeout time.Duration // default 60s; bounds each HTTP request

	// ── Database ──────────────────────────────────────────────────────────────
	// Optional. When empty the registry is held in memory.
	DatabaseURL  string
	SeedMockData bool // default true

	// ── AI ────────────────────────────────────────────────────────────────────
	// AIProvider forces one of gemini, anthropic, deepseek, openai. Empty
	// picks the first provider with a key.
	AIProvider      string
	AITimeout       time.Duration // default 90s
	GeminiAPIKey    string
	GeminiModel     string // default "gemini-2.5-flash"
	AnthropicAPIKey string
	AnthropicModel  string // default "claude-sonnet-4-5"
	DeepSeekAPIKey  string
	DeepSeekModel   string // default "deepseek-chat"
	OpenAIAPIKey    string
	OpenAIModel     string // default "gpt-4o-mini"

	// ── Alerts (Resend) ───────────────────────────────────────────────────────
	// Alerts are enabled only when both RESEND_API_KEY and ALERT_EMAIL_TO
	// are set.
	ResendAPIKey  string
	AlertEmailTo  string
	EmailFromAddr string // e.g. "alerts@vitalwatch.health"
	EmailFromName string // e.g. "VitalWatch"

	// ── Worker ────────────────────────────────────────────────────────────────
	WorkerCount int           // default 3
	QueueSize   int           // default 100
	JobTimeout  time.Duration // default 30s
	MaxRetries  int           // default 3
}

// Load reads all environment variables and returns a validated Config.
// It loads a .env file from the working directory when present, so plain
// `go run ./cmd/api` works in development. Real environment variables always
// take precedence over .env values.
func Load() (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	c := &Config{
		Port:            getEnv("PORT", "8080"),
		Env:             getEnv("ENV", "development"),
		BaseURL:         getEnv("BASE_URL", "http://localhost:5173"),
		RequestTimeout:  getEnvAsDuration("REQUEST_TIMEOUT", 60*time.Second),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		SeedMockData:    getEnvAsBool("SEED_MOCK_DATA", true),
		AIProvider:      strings.ToLower(strings.TrimSpace(os.Getenv("AI_PROVIDER"))),
		AITimeout:       getEnvAsDuration("AI_TIMEOUT", 90*time.Second),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
		AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:  getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-5"),
		DeepSeekAPIKey:  os.Getenv("DEEPSEEK_API_KEY"),
		DeepSeekModel:   getEnv("DEEPSEEK_MODEL", "deepseek-chat"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		ResendAPIKey:    os.Getenv("RESEND_API_KEY"),
		AlertEmailTo:    os.Getenv("ALERT_EMAIL_TO"),
		EmailFromAddr:   getEnv("EMAIL_FROM_ADDR", "alerts@vitalwatch.health"),
		EmailFromName:   getEnv("EMAIL_FROM_NAME", "VitalWatch"),
		WorkerCount:     getEnvAsInt("WORKER_COUNT", 3),
		QueueSize:       getEnvAsInt("QUEUE_SIZE", 100),
		JobTimeout:      getEnvAsDuration("JOB_TIMEOUT", 30*time.Second),
		MaxRetries:      getEnvAsInt("MAX_RETRIES", 3),
	}

	return c, c.validate()
}

// LoadDatabaseURL returns DATABASE_URL alone, for tools that only touch the
// database and need no AI provider.
func LoadDatabaseURL() (string, error) {
	if err := loadDotEnv(); err != nil {
		return "", err
	}
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return "", errors.New("missing required env var: DATABASE_URL")
	}
	return dsn, nil
}

// loadDotEnv reads .env when present. godotenv.Load never overrides
// variables that are already set.
func loadDotEnv() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("config: read .env: %w", err)
	}
	return nil
}

// AI returns the provider settings for ai.New.
func (c *Config) AI() ai.ProviderConfig {
	return ai.ProviderConfig{
		Provider:        c.AIProvider,
		GeminiAPIKey:    c.GeminiAPIKey,
		GeminiModel:     c.GeminiModel,
		AnthropicAPIKey: c.AnthropicAPIKey,
		AnthropicModel:  c.AnthropicModel,
		DeepSeekAPIKey:  c.DeepSeekAPIKey,
		DeepSeekModel:   c.DeepSeekModel,
		OpenAIAPIKey:    c.OpenAIAPIKey,
		OpenAIModel:     c.OpenAIModel,
		Timeout:         c.AITimeout,
	}
}

// AlertsEnabled reports whether high-risk alert emails can be sent.
func (c *Config) AlertsEnabled() bool {
	return c.ResendAPIKey != "" && c.AlertEmailTo != ""
}

// HasAIProvider reports whether any provider key is configured.
func (c *Config) HasAIProvider() bool {
	return c.GeminiAPIKey != "" || c.AnthropicAPIKey != "" || c.DeepSeekAPIKey != "" || c.OpenAIAPIKey != ""
}

func (c *Config) validate() error {
	var errs []error

	if !c.HasAIProvider() {
		errs = append(errs, errors.New("at least one of GEMINI_API_KEY, ANTHROPIC_API_KEY, DEEPSEEK_API_KEY or OPENAI_API_KEY must be set"))
	}

	switch c.AIProvider {
	case "", "gemini", "anthropic", "deepseek", "openai":
	default:
		errs = append(errs, fmt.Errorf("AI_PROVIDER %q is not one of gemini, anthropic, deepseek, openai", c.AIProvider))
	}

	if c.AlertEmailTo != "" {
		if _, err := mail.ParseAddress(c.AlertEmailTo); err != nil {
			errs = append(errs, fmt.Errorf("ALERT_EMAIL_TO: %w", err))
		}
	}

	positive := map[string]int{
		"WORKER_COUNT": c.WorkerCount,
		"QUEUE_SIZE":   c.QueueSize,
	}
	for name, val := range positive {
		if val <= 0 {
			errs = append(errs, fmt.Errorf("%s must be greater than 0", name))
		}
	}
	if c.MaxRetries < 0 {
		errs = append(errs, errors.New("MAX_RETRIES must not be negative"))
	}

	return errors.Join(errs...)
}

// ─── HELPERS ─────────────────────────────────────────────────────────────────

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	// A plain integer is seconds.
	if value, err := strconv.Atoi(valueStr); err == nil {
		return time.Duration(value) * time.Second
	}
	// Fall back to Go duration syntax: "30s", "5m", "1h", etc.
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
