package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"

	"github.com/pohaoc29/GroceryShopperAI/internal/auth"
)

// AuthMiddleware verifies bearer access tokens.
type AuthMiddleware struct {
	secret string
	logger zerolog.Logger
}

// NewAuthMiddleware creates a new auth middleware.
func NewAuthMiddleware(secret string, logger zerolog.Logger) *AuthMiddleware {
	return &AuthMiddleware{secret: secret, logger: logger}
}

// RequireAuth rejects requests without a valid "Authorization: Bearer"
// token and stores the token claims in the request context.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			jsonError(w, http.StatusUnauthorized, "authorization header required")
			return
		}

		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "bearer") || token == "" {
			jsonError(w, http.StatusUnauthorized, "malformed authorization header (expected: Bearer <token>)")
			return
		}

		claims, err := auth.ParseToken(token, m.secret)
		if err != nil {
			m.logger.Debug().Err(err).Str("remote_addr", r.RemoteAddr).Msg("token rejected")
			switch {
			case errors.Is(err, jwt.ErrTokenExpired):
				jsonError(w, http.StatusUnauthorized, "token has expired")
			case errors.Is(err, jwt.ErrTokenMalformed):
				jsonError(w, http.StatusUnauthorized, "malformed token")
			default:
				jsonError(w, http.StatusUnauthorized, "invalid token")
			}
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
	})
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
