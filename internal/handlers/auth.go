package handlers

import (
	"errors"
	"net/http"
	"unicode/utf8"

	"github.com/pohaoc29/GroceryShopperAI/internal/auth"
	"github.com/pohaoc29/GroceryShopperAI/internal/metrics"
	"github.com/pohaoc29/GroceryShopperAI/internal/store"
)

const maxUsernameLen = 50

// AuthRequest is the signup and login request body.
type AuthRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse carries a freshly issued access token.
type AuthResponse struct {
	OK    bool   `json:"ok"`
	Token string `json:"token"`
}

// Signup creates a user and returns an access token.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req AuthRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.Username = sanitizeName(req.Username)
	if req.Username == "" || req.Password == "" {
		h.Error(w, http.StatusBadRequest, "username and password are required")
		return
	}
	if utf8.RuneCountInString(req.Username) > maxUsernameLen {
		h.Error(w, http.StatusBadRequest, "username must be at most 50 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to hash password")
		return
	}

	user, err := h.db.CreateUser(r.Context(), req.Username, hash)
	if errors.Is(err, store.ErrConflict) {
		h.Error(w, http.StatusBadRequest, "Username already taken")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("username", req.Username).Msg("create user")
		h.Error(w, http.StatusInternalServerError, "failed to create user")
		return
	}
	metrics.UsersRegistered.Inc()

	token, err := auth.NewAccessToken(user.ID, user.Username, h.jwtSecret, h.jwtTTL)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	h.logger.Info().Int64("user_id", user.ID).Str("username", user.Username).Msg("user registered")
	h.JSON(w, http.StatusOK, AuthResponse{OK: true, Token: token})
}

// Login verifies credentials and returns an access token.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req AuthRequest
	if !h.decode(w, r, &req) {
		return
	}

	user, err := h.db.GetUserByUsername(r.Context(), sanitizeName(req.Username))
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.Error(w, http.StatusInternalServerError, "database error")
		return
	}
	if user == nil || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		h.Error(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := auth.NewAccessToken(user.ID, user.Username, h.jwtSecret, h.jwtTTL)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	h.JSON(w, http.StatusOK, AuthResponse{OK: true, Token: token})
}
