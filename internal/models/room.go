package models

import "time"

// Room represents a channel grouping messages and live subscribers.
type Room struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	OwnerID   int64     `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Member is a user listed as part of a room.
type Member struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}
