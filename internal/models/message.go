package models

import "time"

// Message represents a persisted chat message.
// Bot messages never carry an author.
type Message struct {
	ID        int64     `json:"id"`
	RoomID    int64     `json:"room_id"`
	UserID    *int64    `json:"user_id,omitempty"`
	Username  string    `json:"username,omitempty"` // joined from users, empty for bot messages
	Content   string    `json:"content"`
	IsBot     bool      `json:"is_bot"`
	CreatedAt time.Time `json:"created_at"`
}

// EventTypeMessage tags a message event delivered to room subscribers.
const EventTypeMessage = "message"

// MessageView is the public shape of a message on the wire.
type MessageView struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
	Content     string `json:"content"`
	IsBot       bool   `json:"is_bot"`
	CreatedAt   string `json:"created_at"`
}

// Event is the payload broadcast to every connection of a room.
type Event struct {
	Type    string      `json:"type"`
	RoomID  int64       `json:"room_id"`
	Message MessageView `json:"message"`
}

// View builds the public view of m. botName labels bot messages; human
// messages fall back to "unknown" when the author name is missing.
func (m *Message) View(botName string) MessageView {
	name := m.Username
	if m.IsBot {
		name = botName
	} else if name == "" {
		name = "unknown"
	}
	return MessageView{
		ID:          m.ID,
		DisplayName: name,
		Content:     m.Content,
		IsBot:       m.IsBot,
		CreatedAt:   m.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// NewMessageEvent wraps m into the room broadcast payload.
func NewMessageEvent(m *Message, botName string) Event {
	return Event{
		Type:    EventTypeMessage,
		RoomID:  m.RoomID,
		Message: m.View(botName),
	}
}
