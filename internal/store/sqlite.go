package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/pohaoc29/GroceryShopperAI/internal/models"
)

// SQLiteStore handles SQLite database operations.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/gro.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/gro.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	store := &SQLiteStore{db: db}

	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS rooms (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		owner_id INTEGER NOT NULL REFERENCES users(id),
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS room_members (
		room_id INTEGER NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
		user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		joined_at DATETIME NOT NULL,
		PRIMARY KEY (room_id, user_id)
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		room_id INTEGER NOT NULL REFERENCES rooms(id) ON DELETE CASCADE,
		user_id INTEGER REFERENCES users(id) ON DELETE SET NULL,
		content TEXT NOT NULL,
		is_bot BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		CHECK (NOT is_bot OR user_id IS NULL)
	);

	CREATE INDEX IF NOT EXISTS idx_messages_room_id ON messages(room_id, id);
	CREATE INDEX IF NOT EXISTS idx_room_members_user ON room_members(user_id);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func sqliteError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var sqErr sqlite3.Error
	if errors.As(err, &sqErr) &&
		(sqErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
		return ErrConflict
	}
	return err
}

// CreateUser creates a new user record.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password_hash, created_at)
		VALUES (?, ?, ?)
	`, username, passwordHash, time.Now().UTC())
	if err != nil {
		return nil, sqliteError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	u := &models.User{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, created_at
		FROM users WHERE id = ?
	`, id).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, sqliteError(err)
	}
	return u, nil
}

// GetUserByUsername retrieves a user by username.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	u := &models.User{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, created_at
		FROM users WHERE username = ?
	`, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return nil, sqliteError(err)
	}
	return u, nil
}

// CreateRoom creates a room and adds its owner as the first member.
func (s *SQLiteStore) CreateRoom(ctx context.Context, name string, ownerID int64) (*models.Room, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO rooms (name, owner_id, created_at) VALUES (?, ?, ?)
	`, name, ownerID, now)
	if err != nil {
		return nil, sqliteError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO room_members (room_id, user_id, joined_at) VALUES (?, ?, ?)
	`, id, ownerID, now); err != nil {
		return nil, sqliteError(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &models.Room{ID: id, Name: name, OwnerID: ownerID, CreatedAt: now}, nil
}

// GetRoom retrieves a room by ID.
func (s *SQLiteStore) GetRoom(ctx context.Context, id int64) (*models.Room, error) {
	room := &models.Room{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, owner_id, created_at FROM rooms WHERE id = ?
	`, id).Scan(&room.ID, &room.Name, &room.OwnerID, &room.CreatedAt)
	if err != nil {
		return nil, sqliteError(err)
	}
	return room, nil
}

// ListRoomsForUser returns the rooms userID belongs to.
func (s *SQLiteStore) ListRoomsForUser(ctx context.Context, userID int64) ([]models.Room, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.name, r.owner_id, r.created_at
		FROM rooms r
		JOIN room_members m ON m.room_id = r.id
		WHERE m.user_id = ?
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
func (s *SQLiteStore) AddRoomMember(ctx context.Context, roomID, userID int64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO room_members (room_id, user_id, joined_at) VALUES (?, ?, ?)
	`, roomID, userID, time.Now().UTC())
	return sqliteError(err)
}

// IsRoomMember reports whether userID belongs to roomID.
func (s *SQLiteStore) IsRoomMember(ctx context.Context, roomID, userID int64) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM room_members WHERE room_id = ? AND user_id = ?
	`, roomID, userID).Scan(&n)
	return n > 0, err
}

// ListRoomMembers lists the members of roomID.
func (s *SQLiteStore) ListRoomMembers(ctx context.Context, roomID int64) ([]models.Member, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.username
		FROM users u
		JOIN room_members m ON m.user_id = u.id
		WHERE m.room_id = ?
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
func (s *SQLiteStore) CreateMessage(ctx context.Context, roomID int64, authorID *int64, content string, isBot bool) (*models.Message, error) {
	if err := checkAuthor(authorID, isBot); err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (room_id, user_id, content, is_bot, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, roomID, authorID, content, isBot, time.Now().UTC())
	if err != nil {
		return nil, sqliteError(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	m, err := scanMessage(s.db.QueryRowContext(ctx, messageSelect+` WHERE m.id = ?`, id))
	if err != nil {
		return nil, sqliteError(err)
	}
	return m, nil
}

// ReadRecent returns up to limit of the newest messages in roomID, oldest
// first.
func (s *SQLiteStore) ReadRecent(ctx context.Context, roomID int64, limit int) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, messageSelect+`
		WHERE m.room_id = ?
		ORDER BY m.id DESC
		LIMIT ?
	`, roomID, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	msgs := []models.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	reverse(msgs)
	return msgs, nil
}

const messageSelect = `
	SELECT m.id, m.room_id, m.user_id, COALESCE(u.username, ''), m.content, m.is_bot, m.created_at
	FROM messages m
	LEFT JOIN users u ON u.id = m.user_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMessage(row rowScanner) (*models.Message, error) {
	var (
		m      models.Message
		userID sql.NullInt64
	)
	if err := row.Scan(&m.ID, &m.RoomID, &userID, &m.Username, &m.Content, &m.IsBot, &m.CreatedAt); err != nil {
		return nil, err
	}
	if userID.Valid {
		id := userID.Int64
		m.UserID = &id
	}
	return &m, nil
}
