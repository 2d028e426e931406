package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/pohaoc29/GroceryShopperAI/internal/auth"
)

func TestNormalizePath(t *testing.T) {
	tests := map[string]string{
		"/api/rooms":             "/api/rooms",
		"/api/rooms/":            "/api/rooms/",
		"/api/rooms/12":          "/api/rooms/:id",
		"/api/rooms/12/messages": "/api/rooms/:id/messages",
		"/ws":                    "/ws",
	}
	for in, want := range tests {
		if got := normalizePath(in); got != want {
			t.Errorf("normalizePath(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRequireAuth(t *testing.T) {
	m := NewAuthMiddleware("secret", zerolog.Nop())
	var seen int64
	h := m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, _ := auth.ClaimsFromContext(r.Context())
		seen = claims.UserID
	}))

	token, err := auth.NewAccessToken(9, "ivy", "secret", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		header string
		status int
	}{
		{"", http.StatusUnauthorized},
		{"Token " + token, http.StatusUnauthorized},
		{"Bearer garbage", http.StatusUnauthorized},
		{"Bearer " + token, http.StatusOK},
	}
	for _, tt := range tests {
		req := httptest.NewRequest("GET", "/api/rooms", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tt.status {
			t.Fatalf("header %q: status = %d, want %d", tt.header, rec.Code, tt.status)
		}
	}
	if seen != 9 {
		t.Fatalf("handler saw user %d", seen)
	}
}

func TestRateLimitRules(t *testing.T) {
	rl := NewRateLimiter(nil, zerolog.Nop(), RateLimiterConfig{Whitelist: []string{"10.0.0.0/8", "127.0.0.1", "bogus/99"}})

	tests := []struct {
		method, path string
		requests     int
	}{
		{"POST", "/api/signup", 10},
		{"POST", "/api/rooms/3/messages", 30},
		{"POST", "/api/rooms", 10},
		{"GET", "/api/rooms/3/messages", 120},
	}
	for _, tt := range tests {
		l := rl.findLimit(httptest.NewRequest(tt.method, tt.path, nil))
		if l == nil || l.Requests != tt.requests {
			t.Fatalf("%s %s: limit = %+v", tt.method, tt.path, l)
		}
	}
	if l := rl.findLimit(httptest.NewRequest("GET", "/health", nil)); l != nil {
		t.Fatalf("/health limited: %+v", l)
	}

	if !rl.isWhitelisted("10.1.2.3") || !rl.isWhitelisted("127.0.0.1") || rl.isWhitelisted("192.168.0.1") {
		t.Fatal("whitelist mismatch")
	}
}

func TestUserOrIPKey(t *testing.T) {
	token, _ := auth.NewAccessToken(5, "eve", "whatever", time.Hour)
	req := httptest.NewRequest("POST", "/api/rooms", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	if got := userOrIPKey(req); got != "ratelimit:ip:192.0.2.1" {
		t.Fatalf("anonymous key = %q", got)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if got := userOrIPKey(req); got != "ratelimit:user:5" {
		t.Fatalf("user key = %q", got)
	}
}

func TestValidateRequest(t *testing.T) {
	h := ValidateRequest(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	tests := []struct {
		name        string
		target      string
		contentType string
		body        string
		status      int
	}{
		{"json post", "/api/login", "application/json", `{}`, http.StatusOK},
		{"form post", "/api/login", "application/x-www-form-urlencoded", "a=b", http.StatusUnsupportedMediaType},
		{"traversal", "/api/rooms/..%2f", "", "", http.StatusBadRequest},
		{"script in query", "/ws?room_id=<script>", "", "", http.StatusBadRequest},
	}
	for _, tt := range tests {
		method := "GET"
		if tt.body != "" {
			method = "POST"
		}
		req := httptest.NewRequest(method, tt.target, strings.NewReader(tt.body))
		if tt.contentType != "" {
			req.Header.Set("Content-Type", tt.contentType)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tt.status {
			t.Fatalf("%s: status = %d, want %d", tt.name, rec.Code, tt.status)
		}
	}
}
