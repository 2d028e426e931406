// Package llm invokes configured language-model providers with a chat
// transcript and returns the raw reply text.
package llm

import (
	"context"
	"errors"
	"fmt"
)

// Role is the speaker of a transcript turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry of a transcript.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Params are the generation parameters sent with a transcript.
type Params struct {
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
}

// Provider completes a transcript into reply text. Each implementation maps
// the transcript roles onto its own back-end conventions.
type Provider interface {
	Complete(ctx context.Context, transcript []Turn, params Params) (string, error)
}

// ErrUnknownProvider is returned when a provider key is not configured.
var ErrUnknownProvider = errors.New("unknown provider")

// ProviderError wraps any failure raised while completing a transcript.
type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// System returns a system turn.
func System(content string) Turn { return Turn{Role: RoleSystem, Content: content} }

// User returns a user turn.
func User(content string) Turn { return Turn{Role: RoleUser, Content: content} }

// Assistant returns an assistant turn.
func Assistant(content string) Turn { return Turn{Role: RoleAssistant, Content: content} }
