package llm

import (
	"fmt"

	"github.com/sant0-9/promptit/internal/config"
)

// NewProvider creates the configured provider using apiKey as the credential.
func NewProvider(cfg *config.Config, apiKey string) (Provider, error) {
	switch cfg.Provider {
	case "ollama":
		return NewOllamaProvider(cfg.BaseURL, cfg.Model), nil

	case "groq":
		if apiKey == "" {
			return nil, fmt.Errorf("groq requires an API key")
		}
		p := NewGroqProvider(apiKey, cfg.Model)
		if cfg.BaseURL != "" {
			p.baseURL = cfg.BaseURL
		}
		return p, nil

	case "openai", "":
		if apiKey == "" {
			return nil, fmt.Errorf("openai requires an API key")
		}
		return NewOpenAIProvider(apiKey, cfg.Model, cfg.BaseURL), nil

	case "anthropic":
		if apiKey == "" {
			return nil, fmt.Errorf("anthropic requires an API key")
		}
		return NewAnthropicProvider(apiKey, cfg.Model, cfg.BaseURL), nil

	case "openrouter":
		if apiKey == "" {
			return nil, fmt.Errorf("openrouter requires an API key")
		}
		p := NewOpenRouterProvider(apiKey, cfg.Model)
		if cfg.BaseURL != "" {
			p.baseURL = cfg.BaseURL
		}
		return p, nil

	case "custom":
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("custom provider requires base_url")
		}
		return NewCustomProvider(cfg.BaseURL, apiKey, cfg.Model), nil

	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}

// NeedsAPIKey reports whether the provider refuses to run without a key.
func NeedsAPIKey(provider string) bool {
	if provider == "" {
		return true
	}
	info := config.GetProvider(provider)
	return info != nil && info.NeedsAPIKey
}
