package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog"
	"github.com/tmc/langchaingo/llms"

	"github.com/pohaoc29/GroceryShopperAI/internal/config"
)

type stubProvider struct {
	reply string
	err   error
	delay time.Duration

	got    []Turn
	params Params
}

func (s *stubProvider) Complete(ctx context.Context, transcript []Turn, params Params) (string, error) {
	s.got = transcript
	s.params = params
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.reply, s.err
}

func transcript() []Turn {
	return []Turn{System("be brief"), User("hi")}
}

func TestGatewayDefaultProvider(t *testing.T) {
	local := &stubProvider{reply: "hello"}
	g := NewGateway(map[string]Provider{"tinyllama": local}, "tinyllama", time.Second, zerolog.Nop())

	got, err := g.Complete(context.Background(), transcript(), Params{Temperature: 0.2, MaxTokens: 64}, "")
	if err != nil {
		t.Fatal(err)
	}
	if got != "hello" {
		t.Fatalf("reply = %q", got)
	}
	if local.params.MaxTokens != 64 || local.params.Temperature != 0.2 {
		t.Fatalf("params not forwarded: %+v", local.params)
	}
	if !reflect.DeepEqual(local.got, transcript()) {
		t.Fatalf("transcript not forwarded: %+v", local.got)
	}
}

func TestGatewayUnknownProvider(t *testing.T) {
	g := NewGateway(map[string]Provider{"tinyllama": &stubProvider{}}, "tinyllama", 0, zerolog.Nop())

	_, err := g.Complete(context.Background(), transcript(), Params{}, "nope")
	if !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
	var pe *ProviderError
	if !errors.As(err, &pe) || pe.Provider != "nope" {
		t.Fatalf("expected ProviderError for nope, got %#v", err)
	}
}

func TestGatewayWrapsProviderFailure(t *testing.T) {
	boom := errors.New("connection refused")
	g := NewGateway(map[string]Provider{"openai": &stubProvider{err: boom}}, "openai", 0, zerolog.Nop())

	_, err := g.Complete(context.Background(), transcript(), Params{}, "openai")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	var pe *ProviderError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ProviderError, got %T", err)
	}
}

func TestGatewayTimeout(t *testing.T) {
	slow := &stubProvider{reply: "late", delay: time.Second}
	g := NewGateway(map[string]Provider{"slow": slow}, "slow", 20*time.Millisecond, zerolog.Nop())

	_, err := g.Complete(context.Background(), transcript(), Params{}, "")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestGatewayEmptyTranscript(t *testing.T) {
	g := NewGateway(map[string]Provider{"a": &stubProvider{}}, "a", 0, zerolog.Nop())
	if _, err := g.Complete(context.Background(), nil, Params{}, ""); err == nil {
		t.Fatal("expected error for empty transcript")
	}
}

func TestGatewayProviders(t *testing.T) {
	g := NewGateway(map[string]Provider{"openai": &stubProvider{}, "gemini": &stubProvider{}, "tinyllama": &stubProvider{}}, "tinyllama", 0, zerolog.Nop())
	if got := g.Providers(); !reflect.DeepEqual(got, []string{"gemini", "openai", "tinyllama"}) {
		t.Fatalf("Providers() = %v", got)
	}
	if g.Default() != "tinyllama" {
		t.Fatalf("Default() = %q", g.Default())
	}
}

func TestOpenAIProviderAgainstCompatibleServer(t *testing.T) {
	var body struct {
		Model       string  `json:"model"`
		Temperature float64 `json:"temperature"`
		MaxTokens   int     `json:"max_tokens"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			http.NotFound(w, r)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "tinyllama",
			"choices": [{
				"index": 0,
				"message": {"role": "assistant", "content": "Try tacos."},
				"finish_reason": "stop"
			}]
		}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider("ollama", srv.URL+"/v1/", "tinyllama", option.WithMaxRetries(0))
	got, err := p.Complete(context.Background(), []Turn{System("sys"), User("dinner?"), Assistant("pizza"), User("else?")}, Params{Temperature: 0.2, MaxTokens: 512})
	if err != nil {
		t.Fatal(err)
	}
	if got != "Try tacos." {
		t.Fatalf("reply = %q", got)
	}
	if body.Model != "tinyllama" || body.MaxTokens != 512 || body.Temperature != 0.2 {
		t.Fatalf("unexpected request body: %+v", body)
	}
	roles := make([]string, len(body.Messages))
	for i, m := range body.Messages {
		roles[i] = m.Role
	}
	if !reflect.DeepEqual(roles, []string{"system", "user", "assistant", "user"}) {
		t.Fatalf("roles = %v", roles)
	}
}

func TestOpenAIProviderServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	p := NewOpenAIProvider("bad", srv.URL, "gpt-4o-mini", option.WithMaxRetries(0))
	if _, err := p.Complete(context.Background(), transcript(), Params{}); err == nil {
		t.Fatal("expected error on 401")
	}
}

func TestGeminiRoleTranslation(t *testing.T) {
	cfg, contents, err := geminiContents([]Turn{
		System("rules"),
		User("a"),
		User("b"),
		Assistant("c"),
		User("d"),
	}, Params{Temperature: 0.5, MaxTokens: 100})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SystemInstruction == nil || cfg.SystemInstruction.Parts[0].Text != "rules" {
		t.Fatalf("system instruction = %+v", cfg.SystemInstruction)
	}
	if cfg.MaxOutputTokens != 100 || cfg.Temperature == nil || *cfg.Temperature != 0.5 {
		t.Fatalf("generation config = %+v", cfg)
	}
	var roles []string
	for _, c := range contents {
		roles = append(roles, c.Role)
	}
	if !reflect.DeepEqual(roles, []string{"user", "model", "user"}) {
		t.Fatalf("roles = %v", roles)
	}
	if len(contents[0].Parts) != 2 {
		t.Fatalf("consecutive user turns should merge, got %d parts", len(contents[0].Parts))
	}
}

func TestGeminiRequiresNonSystemTurn(t *testing.T) {
	if _, _, err := geminiContents([]Turn{System("only rules")}, Params{}); err == nil {
		t.Fatal("expected error without user content")
	}
}

func TestLangChainRoleTranslation(t *testing.T) {
	msgs, err := langChainMessages([]Turn{System("s"), User("u"), Assistant("a")})
	if err != nil {
		t.Fatal(err)
	}
	want := []llms.ChatMessageType{llms.ChatMessageTypeSystem, llms.ChatMessageTypeHuman, llms.ChatMessageTypeAI}
	for i, m := range msgs {
		if m.Role != want[i] {
			t.Fatalf("message %d role = %s, want %s", i, m.Role, want[i])
		}
	}
	if _, err := langChainMessages([]Turn{{Role: "tool", Content: "x"}}); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestNewProviders(t *testing.T) {
	providers, err := NewProviders(context.Background(), []config.ProviderConfig{
		{Name: "tinyllama", Kind: KindOllama, BaseURL: "http://localhost:11434", Model: "tinyllama"},
		{Name: "local-openai", Kind: KindOpenAI, BaseURL: "http://localhost:11434/v1", Model: "tinyllama"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := providers["tinyllama"].(*LangChainProvider); !ok {
		t.Fatalf("tinyllama = %T", providers["tinyllama"])
	}
	if _, ok := providers["local-openai"].(*OpenAIProvider); !ok {
		t.Fatalf("local-openai = %T", providers["local-openai"])
	}

	if _, err := NewProviders(context.Background(), []config.ProviderConfig{{Name: "x", Kind: "mystery", Model: "m"}}); err == nil {
		t.Fatal("expected error for unsupported kind")
	}
	if _, err := NewProviders(context.Background(), []config.ProviderConfig{{Name: "g", Kind: KindGemini, Model: "gemini-pro"}}); err == nil {
		t.Fatal("expected error for gemini without key")
	}
}
