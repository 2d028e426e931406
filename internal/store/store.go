package store

import (
	"context"
	"errors"

	"github.com/pohaoc29/GroceryShopperAI/internal/models"
)

var (
	// ErrNotFound is returned when a looked-up record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique constraint would be violated.
	ErrConflict = errors.New("already exists")
	// ErrBotAuthor is returned when a bot message is given an author.
	ErrBotAuthor = errors.New("bot messages cannot have an author")
)

// MaxRecent caps the number of messages a single ReadRecent returns.
const MaxRecent = 200

// DataStore defines the interface for persistent storage of users, rooms
// and messages. PostgresStore, SQLiteStore and CachedStore implement it.
type DataStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// User operations
	CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)

	// Room operations
	CreateRoom(ctx context.Context, name string, ownerID int64) (*models.Room, error)
	GetRoom(ctx context.Context, id int64) (*models.Room, error)
	ListRoomsForUser(ctx context.Context, userID int64) ([]models.Room, error)
	AddRoomMember(ctx context.Context, roomID, userID int64) error
	IsRoomMember(ctx context.Context, roomID, userID int64) (bool, error)
	ListRoomMembers(ctx context.Context, roomID int64) ([]models.Member, error)

	// Message operations
	CreateMessage(ctx context.Context, roomID int64, authorID *int64, content string, isBot bool) (*models.Message, error)
	ReadRecent(ctx context.Context, roomID int64, limit int) ([]models.Message, error)
}

func checkAuthor(authorID *int64, isBot bool) error {
	if isBot && authorID != nil {
		return ErrBotAuthor
	}
	if !isBot && authorID == nil {
		return errors.New("human messages need an author")
	}
	return nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > MaxRecent {
		return MaxRecent
	}
	return limit
}

// reverse turns a newest-first page into oldest-first order.
func reverse(msgs []models.Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}
