package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
)

var _ Provider = (*LangChainProvider)(nil)

// LangChainProvider adapts a langchaingo model. It backs the local Ollama
// and the Anthropic providers.
type LangChainProvider struct {
	llm   llms.Model
	model string
}

// NewOllamaProvider creates a provider for a model served by a local Ollama
// instance at serverURL.
func NewOllamaProvider(serverURL, model string) (*LangChainProvider, error) {
	m, err := ollama.New(
		ollama.WithModel(model),
		ollama.WithServerURL(serverURL),
	)
	if err != nil {
		return nil, fmt.Errorf("create ollama model: %w", err)
	}
	return &LangChainProvider{llm: m, model: model}, nil
}

// NewAnthropicProvider creates a provider for an Anthropic model.
func NewAnthropicProvider(apiKey, model string) (*LangChainProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic API key required")
	}
	m, err := anthropic.New(
		anthropic.WithToken(apiKey),
		anthropic.WithModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("create anthropic model: %w", err)
	}
	return &LangChainProvider{llm: m, model: model}, nil
}

func (p *LangChainProvider) Complete(ctx context.Context, transcript []Turn, params Params) (string, error) {
	messages, err := langChainMessages(transcript)
	if err != nil {
		return "", err
	}

	var opts []llms.CallOption
	if params.Temperature > 0 {
		opts = append(opts, llms.WithTemperature(params.Temperature))
	}
	if params.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(params.MaxTokens))
	}

	resp, err := p.llm.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response choices")
	}
	return resp.Choices[0].Content, nil
}

func langChainMessages(transcript []Turn) ([]llms.MessageContent, error) {
	out := make([]llms.MessageContent, 0, len(transcript))
	for _, t := range transcript {
		var typ llms.ChatMessageType
		switch t.Role {
		case RoleSystem:
			typ = llms.ChatMessageTypeSystem
		case RoleUser:
			typ = llms.ChatMessageTypeHuman
		case RoleAssistant:
			typ = llms.ChatMessageTypeAI
		default:
			return nil, fmt.Errorf("unexpected role: %q", t.Role)
		}
		out = append(out, llms.TextParts(typ, t.Content))
	}
	return out, nil
}
