package llm

import (
	"context"
	"fmt"

	"github.com/pohaoc29/GroceryShopperAI/internal/config"
)

// Provider kinds accepted in configuration.
const (
	KindOpenAI    = "openai"
	KindGemini    = "gemini"
	KindOllama    = "ollama"
	KindAnthropic = "anthropic"
)

// NewProviders builds one provider per configuration entry, keyed by name.
func NewProviders(ctx context.Context, cfgs []config.ProviderConfig) (map[string]Provider, error) {
	providers := make(map[string]Provider, len(cfgs))
	for _, c := range cfgs {
		if c.Name == "" || c.Model == "" {
			return nil, fmt.Errorf("provider entry missing name or model")
		}
		if _, dup := providers[c.Name]; dup {
			return nil, fmt.Errorf("duplicate provider %q", c.Name)
		}
		p, err := newProvider(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("provider %q: %w", c.Name, err)
		}
		providers[c.Name] = p
	}
	return providers, nil
}

func newProvider(ctx context.Context, c config.ProviderConfig) (Provider, error) {
	switch c.Kind {
	case KindOpenAI:
		return NewOpenAIProvider(c.APIKey, c.BaseURL, c.Model), nil
	case KindGemini:
		if c.APIKey == "" {
			return nil, fmt.Errorf("api_key is required for gemini kind")
		}
		return NewGeminiProvider(ctx, c.APIKey, c.Model)
	case KindOllama:
		return NewOllamaProvider(c.BaseURL, c.Model)
	case KindAnthropic:
		return NewAnthropicProvider(c.APIKey, c.Model)
	default:
		return nil, fmt.Errorf("unsupported kind %q", c.Kind)
	}
}
