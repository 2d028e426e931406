// Package dispatch turns inbound room messages into broadcasts and, when a
// message mentions the bot, into detached augmentation tasks.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pohaoc29/GroceryShopperAI/internal/llm"
	"github.com/pohaoc29/GroceryShopperAI/internal/metrics"
	"github.com/pohaoc29/GroceryShopperAI/internal/models"
)

// TriggerMarker activates bot augmentation when present in a message.
const TriggerMarker = "@gro"

// SystemPrompt is the fixed instruction sent with every bot request.
const SystemPrompt = "You are a helpful assistant participating in a small group chat. " +
	"Provide concise, accurate answers suitable for a shared chat context. " +
	"Cite facts succinctly when helpful and avoid extremely long messages."

// LLMErrorPrefix starts the content of a bot reply synthesized from a
// provider failure.
const LLMErrorPrefix = "(LLM error) "

// Store is the persistence the dispatcher needs.
type Store interface {
	CreateMessage(ctx context.Context, roomID int64, authorID *int64, content string, isBot bool) (*models.Message, error)
}

// Completer runs a transcript through a model provider.
type Completer interface {
	Complete(ctx context.Context, transcript []llm.Turn, params llm.Params, provider string) (string, error)
}

// Broadcaster delivers a payload to a room's live subscribers.
type Broadcaster interface {
	Broadcast(ctx context.Context, roomID int64, payload any) error
}

// Options tune the bot replies.
type Options struct {
	BotName  string
	Provider string // empty selects the gateway default
	Params   llm.Params
}

// Dispatcher handles inbound messages for every room.
type Dispatcher struct {
	store  Store
	llm    Completer
	hub    Broadcaster
	tasks  *TaskSet
	opts   Options
	logger zerolog.Logger
}

// New creates a dispatcher. Augmentation tasks are scheduled on tasks.
func New(store Store, completer Completer, hub Broadcaster, tasks *TaskSet, opts Options, logger zerolog.Logger) *Dispatcher {
	if opts.BotName == "" {
		opts.BotName = "LLM Bot"
	}
	return &Dispatcher{
		store:  store,
		llm:    completer,
		hub:    hub,
		tasks:  tasks,
		opts:   opts,
		logger: logger,
	}
}

// BotName returns the display label used for bot messages.
func (d *Dispatcher) BotName() string {
	return d.opts.BotName
}

// Trigger reports whether content mentions the bot and returns the prompt
// with every marker removed and surrounding whitespace trimmed.
func Trigger(content string) (string, bool) {
	if !strings.Contains(content, TriggerMarker) {
		return "", false
	}
	return strings.TrimSpace(strings.ReplaceAll(content, TriggerMarker, "")), true
}

// HandleInbound persists a human message and broadcasts it before returning.
// When the message mentions the bot, an augmentation task is scheduled and
// HandleInbound returns without waiting for it.
func (d *Dispatcher) HandleInbound(ctx context.Context, roomID int64, author models.User, content string) (*models.Message, error) {
	authorID := author.ID
	msg, err := d.store.CreateMessage(ctx, roomID, &authorID, content, false)
	if err != nil {
		return nil, fmt.Errorf("persist message: %w", err)
	}
	if msg.Username == "" {
		msg.Username = author.Username
	}
	metrics.MessagesPosted.WithLabelValues("human").Inc()

	if err := d.hub.Broadcast(ctx, roomID, models.NewMessageEvent(msg, d.opts.BotName)); err != nil {
		return msg, fmt.Errorf("broadcast message %d: %w", msg.ID, err)
	}

	prompt, ok := Trigger(content)
	if !ok {
		return msg, nil
	}

	taskID, ok := d.tasks.Go(roomID, func(ctx context.Context) {
		d.augment(ctx, roomID, prompt)
	})
	if !ok {
		d.logger.Warn().
			Int64("room_id", roomID).
			Int64("message_id", msg.ID).
			Msg("shutting down, augmentation skipped")
		return msg, nil
	}
	d.logger.Debug().
		Str("task_id", taskID).
		Int64("room_id", roomID).
		Int64("message_id", msg.ID).
		Msg("augmentation scheduled")
	return msg, nil
}

// augment produces, persists and broadcasts one bot reply. Provider failures
// become the reply text so the room always gets an answer.
func (d *Dispatcher) augment(ctx context.Context, roomID int64, prompt string) {
	metrics.AugmentationsInFlight.Inc()
	defer metrics.AugmentationsInFlight.Dec()
	start := time.Now()

	transcript := []llm.Turn{llm.System(SystemPrompt), llm.User(prompt)}
	outcome := "ok"
	reply, err := d.llm.Complete(ctx, transcript, d.opts.Params, d.opts.Provider)
	if err != nil {
		outcome = "llm_error"
		reply = LLMErrorPrefix + err.Error()
		d.logger.Warn().Err(err).Int64("room_id", roomID).Msg("model call failed")
	}

	msg, err := d.store.CreateMessage(ctx, roomID, nil, reply, true)
	if err != nil {
		metrics.Augmentations.WithLabelValues("store_error").Inc()
		d.logger.Error().Err(err).Int64("room_id", roomID).Msg("persist bot message")
		return
	}
	metrics.MessagesPosted.WithLabelValues("bot").Inc()
	metrics.Augmentations.WithLabelValues(outcome).Inc()

	if err := d.hub.Broadcast(ctx, roomID, models.NewMessageEvent(msg, d.opts.BotName)); err != nil {
		d.logger.Error().Err(err).Int64("room_id", roomID).Int64("message_id", msg.ID).Msg("broadcast bot message")
		return
	}
	d.logger.Info().
		Int64("room_id", roomID).
		Int64("message_id", msg.ID).
		Str("outcome", outcome).
		Dur("latency", time.Since(start)).
		Msg("bot replied")
}
