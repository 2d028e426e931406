// Package handlers implements the REST and WebSocket endpoints.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/pohaoc29/GroceryShopperAI/internal/auth"
	"github.com/pohaoc29/GroceryShopperAI/internal/dispatch"
	"github.com/pohaoc29/GroceryShopperAI/internal/hub"
	"github.com/pohaoc29/GroceryShopperAI/internal/models"
	"github.com/pohaoc29/GroceryShopperAI/internal/planner"
	"github.com/pohaoc29/GroceryShopperAI/internal/store"
)

// Models lists the configured model providers.
type Models interface {
	Default() string
	Providers() []string
}

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	db         store.DataStore
	redis      *store.RedisStore // nil when Redis is not configured
	hub        *hub.Registry
	dispatcher *dispatch.Dispatcher
	tasks      *dispatch.TaskSet
	models     Models
	planner    *planner.Planner
	jwtSecret  string
	jwtTTL     time.Duration
	logger     zerolog.Logger
}

// Deps bundles the collaborators of a Handler.
type Deps struct {
	DB         store.DataStore
	Redis      *store.RedisStore
	Hub        *hub.Registry
	Dispatcher *dispatch.Dispatcher
	Tasks      *dispatch.TaskSet
	Models     Models
	Planner    *planner.Planner
	JWTSecret  string
	JWTTTL     time.Duration
}

// NewHandler creates a new Handler.
func NewHandler(d Deps, logger zerolog.Logger) *Handler {
	return &Handler{
		db:         d.DB,
		redis:      d.Redis,
		hub:        d.Hub,
		dispatcher: d.Dispatcher,
		tasks:      d.Tasks,
		models:     d.Models,
		planner:    d.Planner,
		jwtSecret:  d.JWTSecret,
		jwtTTL:     d.JWTTTL,
		logger:     logger,
	}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}

// currentUser returns the authenticated user named by the request token.
// It writes the error response itself and returns nil on failure.
func (h *Handler) currentUser(w http.ResponseWriter, r *http.Request) *models.User {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		h.Error(w, http.StatusUnauthorized, "authentication required")
		return nil
	}
	user, err := h.db.GetUserByID(r.Context(), claims.UserID)
	if errors.Is(err, store.ErrNotFound) {
		h.Error(w, http.StatusUnauthorized, "Invalid user")
		return nil
	}
	if err != nil {
		h.logger.Error().Err(err).Int64("user_id", claims.UserID).Msg("load user")
		h.Error(w, http.StatusInternalServerError, "database error")
		return nil
	}
	return user
}

// loadRoom resolves the {id} URL parameter to a room, writing 400/404/500
// responses itself.
func (h *Handler) loadRoom(w http.ResponseWriter, r *http.Request) *models.Room {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid room ID format")
		return nil
	}
	room, err := h.db.GetRoom(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		h.Error(w, http.StatusNotFound, "Room not found")
		return nil
	}
	if err != nil {
		h.logger.Error().Err(err).Int64("room_id", id).Msg("load room")
		h.Error(w, http.StatusInternalServerError, "database error")
		return nil
	}
	return room
}

// requireMember writes 403 unless userID belongs to the room.
func (h *Handler) requireMember(ctx context.Context, w http.ResponseWriter, roomID, userID int64) bool {
	ok, err := h.db.IsRoomMember(ctx, roomID, userID)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "database error")
		return false
	}
	if !ok {
		h.Error(w, http.StatusForbidden, "Not a member of this room")
		return false
	}
	return true
}

// decode reads a JSON request body into v, writing 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.Error(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// sanitizeName trims and limits name to 100 characters, removing control characters.
func sanitizeName(name string) string {
	name = strings.TrimSpace(name)

	// Remove control characters
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)

	// Limit to 100 characters
	if runes := []rune(name); len(runes) > 100 {
		name = string(runes[:100])
	}

	return name
}

// queryInt parses an integer query parameter, returning def when absent or
// malformed.
func queryInt(r *http.Request, key string, def int) int {
	if v, err := strconv.Atoi(r.URL.Query().Get(key)); err == nil {
		return v
	}
	return def
}
