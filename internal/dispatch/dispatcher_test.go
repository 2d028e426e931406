package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pohaoc29/GroceryShopperAI/internal/hub"
	"github.com/pohaoc29/GroceryShopperAI/internal/llm"
	"github.com/pohaoc29/GroceryShopperAI/internal/models"
)

type memStore struct {
	mu       sync.Mutex
	next     int64
	messages []models.Message
}

func (s *memStore) CreateMessage(_ context.Context, roomID int64, authorID *int64, content string, isBot bool) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	m := models.Message{ID: s.next, RoomID: roomID, UserID: authorID, Content: content, IsBot: isBot, CreatedAt: time.Now()}
	s.messages = append(s.messages, m)
	return &m, nil
}

func (s *memStore) all() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Message(nil), s.messages...)
}

type fakeCompleter struct {
	mu    sync.Mutex
	reply string
	err   error
	block chan struct{}
	calls [][]llm.Turn
}

func (f *fakeCompleter) Complete(ctx context.Context, transcript []llm.Turn, _ llm.Params, _ string) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, transcript)
	f.mu.Unlock()
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.reply, f.err
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type recordingConn struct {
	mu     sync.Mutex
	events []models.Event
}

func (c *recordingConn) Send(_ context.Context, data []byte) error {
	var ev models.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return err
	}
	c.mu.Lock()
	c.events = append(c.events, ev)
	c.mu.Unlock()
	return nil
}

func (c *recordingConn) Close() error { return nil }

func (c *recordingConn) received() []models.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Event(nil), c.events...)
}

type fixture struct {
	store *memStore
	llm   *fakeCompleter
	conn  *recordingConn
	tasks *TaskSet
	d     *Dispatcher
}

func newFixture(t *testing.T, completer *fakeCompleter) *fixture {
	t.Helper()
	registry := hub.NewRegistry(zerolog.Nop())
	conn := &recordingConn{}
	registry.Subscribe(7, conn)
	f := &fixture{
		store: &memStore{},
		llm:   completer,
		conn:  conn,
		tasks: NewTaskSet(context.Background()),
	}
	f.d = New(f.store, completer, registry, f.tasks, Options{Params: llm.Params{Temperature: 0.2, MaxTokens: 64}}, zerolog.Nop())
	t.Cleanup(func() { _ = f.tasks.Shutdown(context.Background()) })
	return f
}

var alice = models.User{ID: 1, Username: "alice"}

func TestTrigger(t *testing.T) {
	tests := []struct {
		in     string
		prompt string
		ok     bool
	}{
		{"@gro what time", "what time", true},
		{"hey @gro   suggest dinner  ", "hey    suggest dinner", true},
		{"@gro @gro twice", "twice", true},
		{"@gro", "", true},
		{"@GRO shouting", "", false},
		{"no marker", "", false},
	}
	for _, tt := range tests {
		prompt, ok := Trigger(tt.in)
		if ok != tt.ok || prompt != tt.prompt {
			t.Errorf("Trigger(%q) = %q, %v; want %q, %v", tt.in, prompt, ok, tt.prompt, tt.ok)
		}
	}
}

func TestHandleInboundWithoutMarker(t *testing.T) {
	f := newFixture(t, &fakeCompleter{reply: "unused"})

	msg, err := f.d.HandleInbound(context.Background(), 7, alice, "just chatting")
	if err != nil {
		t.Fatal(err)
	}
	if msg.UserID == nil || *msg.UserID != 1 || msg.IsBot {
		t.Fatalf("unexpected message %+v", msg)
	}

	events := f.conn.received()
	if len(events) != 1 || events[0].Message.DisplayName != "alice" || events[0].Type != "message" {
		t.Fatalf("events = %+v", events)
	}

	f.tasks.Wait()
	if f.llm.callCount() != 0 {
		t.Fatal("model called without marker")
	}
	if len(f.store.all()) != 1 {
		t.Fatal("only the human message should be stored")
	}
}

func TestHandleInboundBroadcastsBeforeBotReply(t *testing.T) {
	completer := &fakeCompleter{reply: "Try tacos.", block: make(chan struct{})}
	f := newFixture(t, completer)

	msg, err := f.d.HandleInbound(context.Background(), 7, alice, "@gro suggest dinner")
	if err != nil {
		t.Fatal(err)
	}

	// The model is still blocked, so only the human message can be out.
	events := f.conn.received()
	if len(events) != 1 || events[0].Message.ID != msg.ID {
		t.Fatalf("human message not broadcast immediately: %+v", events)
	}
	if len(f.tasks.Pending()) != 1 {
		t.Fatalf("pending = %d", len(f.tasks.Pending()))
	}

	close(completer.block)
	f.tasks.Wait()

	events = f.conn.received()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	bot := events[1].Message
	if !bot.IsBot || bot.DisplayName != "LLM Bot" || bot.Content != "Try tacos." {
		t.Fatalf("bot event = %+v", bot)
	}

	stored := f.store.all()
	if len(stored) != 2 || !stored[1].IsBot || stored[1].UserID != nil {
		t.Fatalf("bot message not persisted without author: %+v", stored)
	}

	calls := completer.calls
	if len(calls) != 1 || len(calls[0]) != 2 {
		t.Fatalf("calls = %+v", calls)
	}
	if calls[0][0].Role != llm.RoleSystem || calls[0][1].Content != "suggest dinner" {
		t.Fatalf("transcript = %+v", calls[0])
	}
	if len(f.tasks.Pending()) != 0 {
		t.Fatal("task still pending after Wait")
	}
}

func TestHandleInboundModelFailure(t *testing.T) {
	f := newFixture(t, &fakeCompleter{err: errors.New("connection refused")})

	if _, err := f.d.HandleInbound(context.Background(), 7, alice, "@gro hello"); err != nil {
		t.Fatal(err)
	}
	f.tasks.Wait()

	events := f.conn.received()
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if got := events[1].Message.Content; !strings.HasPrefix(got, "(LLM error)") || !strings.Contains(got, "connection refused") {
		t.Fatalf("bot content = %q", got)
	}
	if !events[1].Message.IsBot {
		t.Fatal("error reply should still be a bot message")
	}
}

func TestHandleInboundAfterShutdown(t *testing.T) {
	f := newFixture(t, &fakeCompleter{reply: "late"})
	if err := f.tasks.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}

	msg, err := f.d.HandleInbound(context.Background(), 7, alice, "@gro anyone?")
	if err != nil {
		t.Fatal(err)
	}
	if msg == nil || len(f.conn.received()) != 1 {
		t.Fatal("human message should still be stored and broadcast")
	}
	if f.llm.callCount() != 0 {
		t.Fatal("no augmentation should run after shutdown")
	}
}

func TestTaskSetShutdownCancelsOnDeadline(t *testing.T) {
	tasks := NewTaskSet(context.Background())
	cancelled := make(chan struct{})
	if _, ok := tasks.Go(1, func(ctx context.Context) {
		<-ctx.Done()
		close(cancelled)
	}); !ok {
		t.Fatal("Go rejected task")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := tasks.Shutdown(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Shutdown error = %v", err)
	}
	select {
	case <-cancelled:
	default:
		t.Fatal("task was not cancelled")
	}
	if _, ok := tasks.Go(1, func(context.Context) {}); ok {
		t.Fatal("Go accepted a task after Shutdown")
	}
}

func TestTaskSetPendingOrder(t *testing.T) {
	tasks := NewTaskSet(context.Background())
	release := make(chan struct{})
	first, _ := tasks.Go(1, func(context.Context) { <-release })
	second, _ := tasks.Go(2, func(context.Context) { <-release })

	pending := tasks.Pending()
	if len(pending) != 2 {
		t.Fatalf("pending = %+v", pending)
	}
	ids := map[string]int64{pending[0].ID: pending[0].RoomID, pending[1].ID: pending[1].RoomID}
	if ids[first] != 1 || ids[second] != 2 {
		t.Fatalf("pending = %+v", pending)
	}
	close(release)
	if err := tasks.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
}
