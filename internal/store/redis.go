package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pohaoc29/GroceryShopperAI/internal/metrics"
	"github.com/pohaoc29/GroceryShopperAI/internal/models"
)

const (
	tailTTL  = 24 * time.Hour
	tailSize = MaxRecent
)

// RedisStore keeps a short tail of every room's history in Redis so history
// reads and planner transcripts skip the database.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a new Redis store.
func NewRedisStore(ctx context.Context, redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// NewRedisStoreFromClient wraps an existing client.
func NewRedisStoreFromClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Client exposes the underlying client for the rate limiter.
func (s *RedisStore) Client() *redis.Client {
	return s.client
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Ping checks the Redis connection.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// roomTailKey returns the key for a room's message sorted set.
func roomTailKey(roomID int64) string {
	return fmt.Sprintf("room:%d:tail", roomID)
}

// AppendMessage adds msg to its room's tail, scored by id, and trims the
// tail to the newest entries.
func (s *RedisStore) AppendMessage(ctx context.Context, msg *models.Message) error {
	defer observe(time.Now())

	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	key := roomTailKey(msg.RoomID)
	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(msg.ID), Member: string(data)})
	pipe.ZRemRangeByRank(ctx, key, 0, -tailSize-1)
	pipe.Expire(ctx, key, tailTTL)
	_, err = pipe.Exec(ctx)
	return err
}

// RecentMessages returns up to limit of the newest cached messages, oldest
// first.
func (s *RedisStore) RecentMessages(ctx context.Context, roomID int64, limit int) ([]models.Message, error) {
	defer observe(time.Now())

	results, err := s.client.ZRevRangeByScore(ctx, roomTailKey(roomID), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   "+inf",
		Count: int64(limit),
	}).Result()
	if err != nil {
		return nil, err
	}

	msgs := make([]models.Message, 0, len(results))
	for _, data := range results {
		var m models.Message
		if err := json.Unmarshal([]byte(data), &m); err != nil {
			continue
		}
		msgs = append(msgs, m)
	}
	reverse(msgs)
	return msgs, nil
}

// TailLen returns the number of cached messages for roomID.
func (s *RedisStore) TailLen(ctx context.Context, roomID int64) (int64, error) {
	return s.client.ZCard(ctx, roomTailKey(roomID)).Result()
}

// Seed replaces the cached tail of roomID with msgs. complete marks msgs as
// the room's entire history.
func (s *RedisStore) Seed(ctx context.Context, roomID int64, msgs []models.Message, complete bool) error {
	defer observe(time.Now())

	key := roomTailKey(roomID)
	members := make([]redis.Z, 0, len(msgs))
	for i := range msgs {
		data, err := json.Marshal(&msgs[i])
		if err != nil {
			return err
		}
		members = append(members, redis.Z{Score: float64(msgs[i].ID), Member: string(data)})
	}

	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key, completeKey(roomID))
	if len(members) > 0 {
		pipe.ZAdd(ctx, key, members...)
		pipe.ZRemRangeByRank(ctx, key, 0, -tailSize-1)
		pipe.Expire(ctx, key, tailTTL)
	}
	if complete {
		pipe.Set(ctx, completeKey(roomID), strconv.Itoa(len(members)), tailTTL)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Complete reports whether the cached tail holds the room's entire history.
func (s *RedisStore) Complete(ctx context.Context, roomID int64) bool {
	n, err := s.client.Exists(ctx, completeKey(roomID)).Result()
	return err == nil && n > 0
}

// Invalidate drops the cached tail of roomID.
func (s *RedisStore) Invalidate(ctx context.Context, roomID int64) error {
	return s.client.Del(ctx, roomTailKey(roomID), completeKey(roomID)).Err()
}

func completeKey(roomID int64) string {
	return fmt.Sprintf("room:%d:tail:complete", roomID)
}

func observe(start time.Time) {
	metrics.RedisLatency.Observe(time.Since(start).Seconds())
}
