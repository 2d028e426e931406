package llm

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/pohaoc29/GroceryShopperAI/internal/metrics"
)

// Gateway routes completion requests to one of a static set of providers.
type Gateway struct {
	providers   map[string]Provider
	defaultName string
	timeout     time.Duration
	logger      zerolog.Logger
}

// NewGateway creates a gateway over providers. defaultName is used when a
// request does not name a provider; timeout bounds every provider call
// (zero disables the bound).
func NewGateway(providers map[string]Provider, defaultName string, timeout time.Duration, logger zerolog.Logger) *Gateway {
	return &Gateway{
		providers:   providers,
		defaultName: defaultName,
		timeout:     timeout,
		logger:      logger,
	}
}

// Complete sends transcript to the provider named by key, or to the default
// provider when key is empty. Every failure is returned as *ProviderError.
func (g *Gateway) Complete(ctx context.Context, transcript []Turn, params Params, key string) (string, error) {
	if key == "" {
		key = g.defaultName
	}
	p, ok := g.providers[key]
	if !ok {
		return "", &ProviderError{Provider: key, Err: fmt.Errorf("%w: %q", ErrUnknownProvider, key)}
	}
	if len(transcript) == 0 {
		return "", &ProviderError{Provider: key, Err: errors.New("empty transcript")}
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	text, err := p.Complete(ctx, transcript, params)
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metrics.LLMRequestDuration.WithLabelValues(key, outcome).Observe(elapsed.Seconds())

	if err != nil {
		g.logger.Warn().
			Err(err).
			Str("provider", key).
			Dur("latency", elapsed).
			Msg("completion failed")
		return "", &ProviderError{Provider: key, Err: err}
	}

	g.logger.Debug().
		Str("provider", key).
		Dur("latency", elapsed).
		Int("reply_len", len(text)).
		Msg("completion done")
	return text, nil
}

// Default returns the default provider key.
func (g *Gateway) Default() string {
	return g.defaultName
}

// Providers returns the configured provider keys, sorted.
func (g *Gateway) Providers() []string {
	names := make([]string, 0, len(g.providers))
	for name := range g.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
