package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pohaoc29/GroceryShopperAI/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func pgError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrConflict
	}
	return err
}

// CreateUser creates a new user record.
func (s *PostgresStore) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	u := &models.User{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (username, password_hash)
		VALUES ($1, $2)
		RETURNING id, username, password_hash, created_at
	`, username, passwordHash).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, pgError(err)
	}
	return u, nil
}

// GetUserByID retrieves a user by ID.
func (s *PostgresStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	u := &models.User{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, created_at
		FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, pgError(err)
	}
	return u, nil
}

// GetUserByUsername retrieves a user by username.
func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	u := &models.User{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, created_at
		FROM users WHERE username = $1
	`, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, pgError(err)
	}
	return u, nil
}

// CreateRoom creates a room and adds its owner as the first member.
func (s *PostgresStore) CreateRoom(ctx context.Context, name string, ownerID int64) (*models.Room, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	room := &models.Room{}
	err = tx.QueryRow(ctx, `
		INSERT INTO rooms (name, owner_id)
		VALUES ($1, $2)
		RETURNING id, name, owner_id, created_at
	`, name, ownerID).Scan(&room.ID, &room.Name, &room.OwnerID, &room.CreatedAt)
	if err != nil {
		return nil, pgError(err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO room_members (room_id, user_id) VALUES ($1, $2)
	`, room.ID, ownerID); err != nil {
		return nil, pgError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return room, nil
}

// GetRoom retrieves a room by ID.
func (s *PostgresStore) GetRoom(ctx context.Context, id int64) (*models.Room, error) {
	room := &models.Room{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, owner_id, created_at
		FROM rooms WHERE id = $1
	`, id).Scan(&room.ID, &room.Name, &room.OwnerID, &room.CreatedAt)
	if err != nil {
		return nil, pgError(err)
	}
	return room, nil
}

// ListRoomsForUser returns the rooms userID belongs to.
func (s *PostgresStore) ListRoomsForUser(ctx context.Context, userID int64) ([]models.Room, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT r.id, r.name, r.owner_id, r.created_at
		FROM rooms r
		JOIN room_members m ON m.room_id = r.id
		WHERE m.user_id = $1
		ORDER BY r.id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rooms := []models.Room{}
	for rows.Next() {
		var room models.Room
		if err := rows.Scan(&room.ID, &room.Name, &room.OwnerID, &room.CreatedAt); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

// AddRoomMember adds userID to roomID.
func (s *PostgresStore) AddRoomMember(ctx context.Context, roomID, userID int64) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO room_members (room_id, user_id) VALUES ($1, $2)
	`, roomID, userID)
	return pgError(err)
}

// IsRoomMember reports whether userID belongs to roomID.
func (s *PostgresStore) IsRoomMember(ctx context.Context, roomID, userID int64) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM room_members WHERE room_id = $1 AND user_id = $2)
	`, roomID, userID).Scan(&exists)
	return exists, err
}

// ListRoomMembers lists the members of roomID.
func (s *PostgresStore) ListRoomMembers(ctx context.Context, roomID int64) ([]models.Member, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT u.id, u.username
		FROM users u
		JOIN room_members m ON m.user_id = u.id
		WHERE m.room_id = $1
		ORDER BY m.joined_at, u.id
	`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	members := []models.Member{}
	for rows.Next() {
		var m models.Member
		if err := rows.Scan(&m.ID, &m.Username); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// CreateMessage appends a message to a room's history.
func (s *PostgresStore) CreateMessage(ctx context.Context, roomID int64, authorID *int64, content string, isBot bool) (*models.Message, error) {
	if err := checkAuthor(authorID, isBot); err != nil {
		return nil, err
	}

	m := &models.Message{}
	err := s.pool.QueryRow(ctx, `
		WITH inserted AS (
			INSERT INTO messages (room_id, user_id, content, is_bot)
			VALUES ($1, $2, $3, $4)
			RETURNING id, room_id, user_id, content, is_bot, created_at
		)
		SELECT i.id, i.room_id, i.user_id, COALESCE(u.username, ''), i.content, i.is_bot, i.created_at
		FROM inserted i
		LEFT JOIN users u ON u.id = i.user_id
	`, roomID, authorID, content, isBot).Scan(
		&m.ID,
		&m.RoomID,
		&m.UserID,
		&m.Username,
		&m.Content,
		&m.IsBot,
		&m.CreatedAt,
	)
	if err != nil {
		return nil, pgError(err)
	}
	return m, nil
}

// ReadRecent returns up to limit of the newest messages in roomID, oldest
// first.
func (s *PostgresStore) ReadRecent(ctx context.Context, roomID int64, limit int) ([]models.Message, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT m.id, m.room_id, m.user_id, COALESCE(u.username, ''), m.content, m.is_bot, m.created_at
		FROM messages m
		LEFT JOIN users u ON u.id = m.user_id
		WHERE m.room_id = $1
		ORDER BY m.id DESC
		LIMIT $2
	`, roomID, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []models.Message{}
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.RoomID, &m.UserID, &m.Username, &m.Content, &m.IsBot, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	reverse(msgs)
	return msgs, nil
}
