package llm

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
)

var _ Provider = (*OpenAIProvider)(nil)

// OpenAIProvider talks to the OpenAI chat completions API or to any server
// exposing the same API, such as a local Ollama instance under /v1.
type OpenAIProvider struct {
	Client *openai.Client
	Model  string
}

// NewOpenAIProvider creates a provider for model. baseURL may be empty to
// use the public OpenAI endpoint.
func NewOpenAIProvider(apiKey, baseURL, model string, opts ...option.RequestOption) *OpenAIProvider {
	reqOpts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(baseURL))
	}
	reqOpts = append(reqOpts, opts...)
	client := openai.NewClient(reqOpts...)
	return &OpenAIProvider{Client: &client, Model: model}
}

func (p *OpenAIProvider) Complete(ctx context.Context, transcript []Turn, params Params) (string, error) {
	msgs, err := openAIMessages(transcript)
	if err != nil {
		return "", err
	}
	req := openai.ChatCompletionNewParams{
		Messages: msgs,
		Model:    p.Model,
	}
	if params.Temperature > 0 {
		req.Temperature = param.NewOpt(params.Temperature)
	}
	if params.MaxTokens > 0 {
		req.MaxTokens = param.NewOpt(int64(params.MaxTokens))
	}

	resp, err := p.Client.Chat.Completions.New(ctx, req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices")
	}
	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		return "", fmt.Errorf("refused: %s", choice.Message.Refusal)
	}
	return choice.Message.Content, nil
}

func openAIMessages(transcript []Turn) ([]openai.ChatCompletionMessageParamUnion, error) {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(transcript))
	for _, t := range transcript {
		switch t.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(t.Content))
		case RoleUser:
			out = append(out, openai.UserMessage(t.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(t.Content))
		default:
			return nil, fmt.Errorf("unexpected role: %q", t.Role)
		}
	}
	return out, nil
}
