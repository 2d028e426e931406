package handlers

import (
	"net/http"
	"strings"

	"github.com/pohaoc29/GroceryShopperAI/internal/models"
	"github.com/pohaoc29/GroceryShopperAI/internal/store"
)

// maxContentLen bounds a single message body, in bytes.
const maxContentLen = 4000

// PostMessageRequest represents the post message request.
type PostMessageRequest struct {
	Content string `json:"content"`
}

// PostMessageResponse represents the post message response.
type PostMessageResponse struct {
	OK bool  `json:"ok"`
	ID int64 `json:"id"`
}

// GetMessages returns the most recent messages of a room, oldest first.
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	room := h.loadRoom(w, r)
	if room == nil {
		return
	}

	limit := queryInt(r, "limit", 50)
	if limit <= 0 {
		limit = 50
	}
	if limit > store.MaxRecent {
		limit = store.MaxRecent
	}

	msgs, err := h.db.ReadRecent(r.Context(), room.ID, limit)
	if err != nil {
		h.logger.Error().Err(err).Int64("room_id", room.ID).Msg("read messages")
		h.Error(w, http.StatusInternalServerError, "failed to fetch messages")
		return
	}

	botName := h.dispatcher.BotName()
	out := make([]models.MessageView, 0, len(msgs))
	for i := range msgs {
		out = append(out, msgs[i].View(botName))
	}
	h.JSON(w, http.StatusOK, map[string]any{"messages": out})
}

// PostMessage stores a message from the caller and fans it out to the room.
// A message mentioning the bot also schedules a bot reply, which arrives
// later over the room's live connections.
func (h *Handler) PostMessage(w http.ResponseWriter, r *http.Request) {
	room := h.loadRoom(w, r)
	if room == nil {
		return
	}
	user := h.currentUser(w, r)
	if user == nil {
		return
	}
	if !h.requireMember(r.Context(), w, room.ID, user.ID) {
		return
	}

	var req PostMessageRequest
	if !h.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		h.Error(w, http.StatusBadRequest, "content is required")
		return
	}
	if len(req.Content) > maxContentLen {
		h.Error(w, http.StatusBadRequest, "content too long")
		return
	}

	msg, err := h.dispatcher.HandleInbound(r.Context(), room.ID, *user, req.Content)
	if msg == nil {
		h.logger.Error().Err(err).Int64("room_id", room.ID).Msg("post message")
		h.Error(w, http.StatusInternalServerError, "failed to post message")
		return
	}
	if err != nil {
		h.logger.Warn().Err(err).Int64("room_id", room.ID).Int64("message_id", msg.ID).Msg("message stored but not delivered")
	}

	h.JSON(w, http.StatusOK, PostMessageResponse{OK: true, ID: msg.ID})
}
