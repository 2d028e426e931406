package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/pohaoc29/GroceryShopperAI/internal/models"
	"github.com/pohaoc29/GroceryShopperAI/internal/store"
)

// RoomInfo is a room as listed to its members.
type RoomInfo struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CreatedAt string `json:"created_at,omitempty"`
}

// CreateRoomRequest represents the room creation request.
type CreateRoomRequest struct {
	Name string `json:"name"`
}

// InviteRequest names the user to add to a room.
type InviteRequest struct {
	Username string `json:"username"`
}

// ListRooms returns the rooms the caller belongs to.
func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}

	rooms, err := h.db.ListRoomsForUser(r.Context(), user.ID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to list rooms")
		return
	}

	out := make([]RoomInfo, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, RoomInfo{
			ID:        room.ID,
			Name:      room.Name,
			CreatedAt: room.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	h.JSON(w, http.StatusOK, map[string]any{"rooms": out})
}

// CreateRoom creates a room owned by the caller, who becomes its first member.
func (h *Handler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	user := h.currentUser(w, r)
	if user == nil {
		return
	}

	var req CreateRoomRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.Name = sanitizeName(req.Name)
	if req.Name == "" {
		h.Error(w, http.StatusBadRequest, "name is required")
		return
	}

	room, err := h.db.CreateRoom(r.Context(), req.Name, user.ID)
	if errors.Is(err, store.ErrConflict) {
		h.Error(w, http.StatusBadRequest, "Room name already taken")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("name", req.Name).Msg("create room")
		h.Error(w, http.StatusInternalServerError, "failed to create room")
		return
	}

	h.logger.Info().Int64("room_id", room.ID).Int64("owner_id", user.ID).Msg("room created")
	h.JSON(w, http.StatusOK, map[string]any{
		"ok":   true,
		"room": RoomInfo{ID: room.ID, Name: room.Name},
	})
}

// RoomMembers lists the members of a room.
func (h *Handler) RoomMembers(w http.ResponseWriter, r *http.Request) {
	room := h.loadRoom(w, r)
	if room == nil {
		return
	}

	members, err := h.db.ListRoomMembers(r.Context(), room.ID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to list members")
		return
	}
	if members == nil {
		members = []models.Member{}
	}
	h.JSON(w, http.StatusOK, map[string]any{"members": members})
}

// Invite adds a user to a room. Only the room owner may invite.
func (h *Handler) Invite(w http.ResponseWriter, r *http.Request) {
	room := h.loadRoom(w, r)
	if room == nil {
		return
	}
	user := h.currentUser(w, r)
	if user == nil {
		return
	}
	if room.OwnerID != user.ID {
		h.Error(w, http.StatusForbidden, "Only room owner can invite")
		return
	}

	var req InviteRequest
	if !h.decode(w, r, &req) {
		return
	}

	invitee, err := h.db.GetUserByUsername(r.Context(), sanitizeName(req.Username))
	if errors.Is(err, store.ErrNotFound) {
		h.Error(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}

	err = h.db.AddRoomMember(r.Context(), room.ID, invitee.ID)
	if errors.Is(err, store.ErrConflict) {
		h.Error(w, http.StatusBadRequest, "User already in room")
		return
	}
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to add member")
		return
	}

	h.logger.Info().Int64("room_id", room.ID).Int64("user_id", invitee.ID).Msg("member added")
	h.JSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"message": fmt.Sprintf("User %s added to room", invitee.Username),
	})
}
