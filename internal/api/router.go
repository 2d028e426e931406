// Package api wires the HTTP middleware stack and routes.
package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/pohaoc29/GroceryShopperAI/internal/api/middleware"
	"github.com/pohaoc29/GroceryShopperAI/internal/handlers"
	"github.com/pohaoc29/GroceryShopperAI/internal/store"
)

// Options configure the router.
type Options struct {
	JWTSecret          string
	Redis              *store.RedisStore // nil disables rate limiting
	RateLimitWhitelist []string
}

// NewRouter creates and configures the HTTP router.
func NewRouter(logger zerolog.Logger, h *handlers.Handler, opts Options) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware (order matters!)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(64 * 1024))
	r.Use(middleware.ValidateRequest)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// Rate limiting needs Redis
	if opts.Redis != nil {
		limiter := middleware.NewRateLimiter(opts.Redis.Client(), logger, middleware.RateLimiterConfig{
			Whitelist: opts.RateLimitWhitelist,
		})
		r.Use(limiter.Middleware)
	}

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	auth := middleware.NewAuthMiddleware(opts.JWTSecret, logger)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/api", h.Root)
	r.Get("/health", h.Health)
	r.Get("/ws", h.WebSocket)

	// Public routes
	r.Post("/api/signup", h.Signup)
	r.Post("/api/login", h.Login)
	r.Get("/api/models", h.ListModels)
	r.Get("/api/stats", h.Stats)
	r.Get("/api/rooms/{id}/members", h.RoomMembers)
	r.Get("/api/rooms/{id}/messages", h.GetMessages)

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)

		r.Get("/api/rooms", h.ListRooms)
		r.Post("/api/rooms", h.CreateRoom)
		r.Post("/api/rooms/{id}/invite", h.Invite)
		r.Post("/api/rooms/{id}/messages", h.PostMessage)
		r.Post("/api/rooms/{id}/plan", h.Plan)
	})

	return r
}
