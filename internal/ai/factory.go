package ai

import (
	"fmt"
	"strings"
	"time"
)

// Provider names accepted by AI_PROVIDER.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderDeepSeek  = "deepseek"
	ProviderOpenAI    = "openai"
)

// ProviderConfig carries the credentials for every supported provider. Only
// the selected provider's key is required.
type ProviderConfig struct {
	// Provider forces a specific backend. Empty means auto-select.
	Provider string

	GeminiAPIKey    string
	GeminiModel     string
	AnthropicAPIKey string
	AnthropicModel  string
	DeepSeekAPIKey  string
	DeepSeekModel   string
	OpenAIAPIKey    string
	OpenAIModel     string

	// Timeout is the HTTP client timeout. Zero keeps the 90s default.
	Timeout time.Duration
}

// New returns the single Generator selected by cfg. When cfg.Provider is
// empty the first provider with a key wins, in the order gemini, anthropic,
// deepseek, openai. No fallback chain is built: a failed call surfaces to the
// caller unchanged.
func New(cfg ProviderConfig) (Generator, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if name == "" {
		name = autoSelect(cfg)
		if name == "" {
			return nil, fmt.Errorf("ai: no provider API key configured")
		}
	}

	opts := []Option{WithTimeout(cfg.Timeout)}

	switch name {
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("ai: provider %q selected but GEMINI_API_KEY is empty", name)
		}
		return NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel, opts...), nil
	case ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("ai: provider %q selected but ANTHROPIC_API_KEY is empty", name)
		}
		return NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, opts...), nil
	case ProviderDeepSeek:
		if cfg.DeepSeekAPIKey == "" {
			return nil, fmt.Errorf("ai: provider %q selected but DEEPSEEK_API_KEY is empty", name)
		}
		return NewDeepSeekClient(cfg.DeepSeekAPIKey, cfg.DeepSeekModel, opts...), nil
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("ai: provider %q selected but OPENAI_API_KEY is empty", name)
		}
		return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, opts...), nil
	default:
		return nil, fmt.Errorf("ai: unknown provider %q", cfg.Provider)
	}
}

func autoSelect(cfg ProviderConfig) string {
	switch {
	case cfg.GeminiAPIKey != "":
		return ProviderGemini
	case cfg.AnthropicAPIKey != "":
		return ProviderAnthropic
	case cfg.DeepSeekAPIKey != "":
		return ProviderDeepSeek
	case cfg.OpenAIAPIKey != "":
		return ProviderOpenAI
	default:
		return ""
	}
}
