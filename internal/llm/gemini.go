package llm

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

var _ Provider = (*GeminiProvider)(nil)

// FilteredReply is returned when Gemini produced no text, which happens when
// a reply is blocked by its safety policies.
const FilteredReply = "[Response was filtered by Gemini safety policies]"

// GeminiProvider implements Provider using the Google Gemini API.
type GeminiProvider struct {
	Client *genai.Client

	// Model should not start with "models/"
	Model string
}

// NewGeminiProvider creates a Gemini client authenticated with apiKey.
func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiProvider{Client: client, Model: model}, nil
}

func (p *GeminiProvider) Complete(ctx context.Context, transcript []Turn, params Params) (string, error) {
	cfg, contents, err := geminiContents(transcript, params)
	if err != nil {
		return "", err
	}
	resp, err := p.Client.Models.GenerateContent(ctx, p.Model, contents, cfg)
	if err != nil {
		return "", err
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return FilteredReply, nil
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	if sb.Len() == 0 {
		return FilteredReply, nil
	}
	return sb.String(), nil
}

// geminiContents converts a transcript: system turns become the system
// instruction, assistant turns use the "model" role, and consecutive turns
// of the same role are merged into one content.
func geminiContents(transcript []Turn, params Params) (*genai.GenerateContentConfig, []*genai.Content, error) {
	cfg := &genai.GenerateContentConfig{}
	if params.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(params.MaxTokens)
	}
	if params.Temperature > 0 {
		temp := float32(params.Temperature)
		cfg.Temperature = &temp
	}

	var (
		system   []*genai.Part
		contents []*genai.Content
		last     *genai.Content
	)
	for _, t := range transcript {
		var role string
		switch t.Role {
		case RoleSystem:
			system = append(system, genai.NewPartFromText(t.Content))
			continue
		case RoleUser:
			role = "user"
		case RoleAssistant:
			role = "model"
		default:
			return nil, nil, fmt.Errorf("unexpected role: %q", t.Role)
		}
		part := genai.NewPartFromText(t.Content)
		if last != nil && last.Role == role {
			last.Parts = append(last.Parts, part)
			continue
		}
		last = &genai.Content{Role: role, Parts: []*genai.Part{part}}
		contents = append(contents, last)
	}
	if len(system) > 0 {
		cfg.SystemInstruction = &genai.Content{Parts: system}
	}
	if len(contents) == 0 {
		return nil, nil, fmt.Errorf("no contents")
	}
	return cfg, contents, nil
}
