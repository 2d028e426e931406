package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/pohaoc29/GroceryShopperAI/internal/api"
	"github.com/pohaoc29/GroceryShopperAI/internal/config"
	"github.com/pohaoc29/GroceryShopperAI/internal/dispatch"
	"github.com/pohaoc29/GroceryShopperAI/internal/handlers"
	"github.com/pohaoc29/GroceryShopperAI/internal/hub"
	"github.com/pohaoc29/GroceryShopperAI/internal/llm"
	"github.com/pohaoc29/GroceryShopperAI/internal/planner"
	"github.com/pohaoc29/GroceryShopperAI/internal/store"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	var logger zerolog.Logger
	if cfg.IsDevelopment() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
			With().
			Timestamp().
			Logger()
	} else {
		logger = zerolog.New(os.Stdout).
			With().
			Timestamp().
			Logger()
	}
	if level, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && level != zerolog.NoLevel {
		logger = logger.Level(level)
	}

	ctx := context.Background()

	// Database: PostgreSQL when configured, SQLite otherwise
	var db store.DataStore
	if cfg.DatabaseURL != "" {
		logger.Info().Msg("running database migrations...")
		if err := store.RunMigrations(cfg.DatabaseURL); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
		logger.Info().Msg("migrations completed")

		pgStore, err := store.NewPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("postgres connection failed")
		}
		db = pgStore
		logger.Info().Msg("connected to PostgreSQL")
	} else {
		sqliteStore, err := store.NewSQLiteStore(ctx, cfg.SQLitePath)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.SQLitePath).Msg("sqlite open failed")
		}
		db = sqliteStore
		logger.Info().Str("path", cfg.SQLitePath).Msg("using SQLite")
	}
	defer db.Close()

	// Redis is optional: room tail cache and rate limiting
	var redisStore *store.RedisStore
	if cfg.RedisURL != "" {
		var err error
		redisStore, err = store.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisStore.Close()
		db = store.NewCachedStore(db, redisStore, logger)
		logger.Info().Msg("connected to Redis")
	}

	// Model gateway
	providers, err := llm.NewProviders(ctx, cfg.LLM.Providers)
	if err != nil {
		logger.Fatal().Err(err).Msg("model provider setup failed")
	}
	if _, ok := providers[cfg.LLM.DefaultProvider]; !ok {
		logger.Warn().Str("provider", cfg.LLM.DefaultProvider).Msg("default model provider is not configured")
	}
	gateway := llm.NewGateway(providers, cfg.LLM.DefaultProvider, cfg.LLM.Timeout, logger)
	params := llm.Params{Temperature: cfg.LLM.Temperature, MaxTokens: cfg.LLM.MaxTokens}

	// Fan-out and bot replies
	registry := hub.NewRegistry(logger)
	tasks := dispatch.NewTaskSet(ctx)
	dispatcher := dispatch.New(db, gateway, registry, tasks, dispatch.Options{
		BotName: cfg.BotName,
		Params:  params,
	}, logger)

	h := handlers.NewHandler(handlers.Deps{
		DB:         db,
		Redis:      redisStore,
		Hub:        registry,
		Dispatcher: dispatcher,
		Tasks:      tasks,
		Models:     gateway,
		Planner:    planner.New(gateway, "", params),
		JWTSecret:  cfg.JWTSecret,
		JWTTTL:     cfg.JWTTTL,
	}, logger)

	router := api.NewRouter(logger, h, api.Options{
		JWTSecret:          cfg.JWTSecret,
		Redis:              redisStore,
		RateLimitWhitelist: cfg.RateLimitWhitelist,
	})

	// Plan requests wait on the model, so writes may take up to the model timeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.LLM.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("env", cfg.Env).
			Strs("providers", gateway.Providers()).
			Str("default_provider", gateway.Default()).
			Msg("starting GroceryShopperAI server")

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}

	// Let in-flight bot replies finish, then drop live connections.
	pending := len(tasks.Pending())
	if err := tasks.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Int("pending", pending).Msg("bot replies cancelled")
	}
	registry.CloseAll()

	logger.Info().Msg("server stopped")
}
