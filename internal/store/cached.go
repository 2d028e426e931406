package store

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/pohaoc29/GroceryShopperAI/internal/metrics"
	"github.com/pohaoc29/GroceryShopperAI/internal/models"
)

// TailCache holds the newest messages of each room. RedisStore implements it.
type TailCache interface {
	AppendMessage(ctx context.Context, msg *models.Message) error
	RecentMessages(ctx context.Context, roomID int64, limit int) ([]models.Message, error)
	TailLen(ctx context.Context, roomID int64) (int64, error)
	Seed(ctx context.Context, roomID int64, msgs []models.Message, complete bool) error
	Complete(ctx context.Context, roomID int64) bool
	Invalidate(ctx context.Context, roomID int64) error
}

// CachedStore serves recent history from a TailCache and everything else
// from the wrapped DataStore. Cache failures never fail a call.
type CachedStore struct {
	DataStore
	cache  TailCache
	logger zerolog.Logger
}

// NewCachedStore wraps db with cache.
func NewCachedStore(db DataStore, cache TailCache, logger zerolog.Logger) *CachedStore {
	return &CachedStore{DataStore: db, cache: cache, logger: logger}
}

// CreateMessage persists through the database and appends to the cached
// tail. A failed append drops the room's tail so it is rebuilt on the next
// read.
func (s *CachedStore) CreateMessage(ctx context.Context, roomID int64, authorID *int64, content string, isBot bool) (*models.Message, error) {
	msg, err := s.DataStore.CreateMessage(ctx, roomID, authorID, content, isBot)
	if err != nil {
		return nil, err
	}
	if err := s.cache.AppendMessage(ctx, msg); err != nil {
		s.logger.Warn().Err(err).Int64("room_id", roomID).Msg("tail cache append failed")
		if err := s.cache.Invalidate(ctx, roomID); err != nil {
			s.logger.Warn().Err(err).Int64("room_id", roomID).Msg("tail cache invalidate failed")
		}
	}
	return msg, nil
}

// ReadRecent serves from the cache when it holds enough messages, otherwise
// reads the database and reseeds the cache.
func (s *CachedStore) ReadRecent(ctx context.Context, roomID int64, limit int) ([]models.Message, error) {
	limit = clampLimit(limit)

	if n, err := s.cache.TailLen(ctx, roomID); err == nil && (n >= int64(limit) || (n > 0 && s.cache.Complete(ctx, roomID))) {
		if msgs, err := s.cache.RecentMessages(ctx, roomID, limit); err == nil {
			metrics.CacheReads.WithLabelValues("hit").Inc()
			return msgs, nil
		}
	}
	metrics.CacheReads.WithLabelValues("miss").Inc()

	msgs, err := s.DataStore.ReadRecent(ctx, roomID, MaxRecent)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Seed(ctx, roomID, msgs, len(msgs) < MaxRecent); err != nil {
		s.logger.Warn().Err(err).Int64("room_id", roomID).Msg("tail cache seed failed")
	}
	if len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}
