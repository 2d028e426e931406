// Package hub tracks the live subscribers of each room and fans messages
// out to them.
package hub

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/pohaoc29/GroceryShopperAI/internal/metrics"
)

// Conn is one subscriber's transport handle. Implementations must be
// comparable (pointer types) since the handle is its own identity.
type Conn interface {
	Send(ctx context.Context, data []byte) error
	Close() error
}

// Registry owns the room -> {Conn} relation for the life of the process.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[int64]map[Conn]struct{}
	logger zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		rooms:  make(map[int64]map[Conn]struct{}),
		logger: logger,
	}
}

// Subscribe registers conn under roomID. Subscribing the same conn twice is
// a no-op.
func (r *Registry) Subscribe(roomID int64, conn Conn) {
	r.mu.Lock()
	conns, ok := r.rooms[roomID]
	if !ok {
		conns = make(map[Conn]struct{})
		r.rooms[roomID] = conns
	}
	_, existed := conns[conn]
	conns[conn] = struct{}{}
	inRoom, total := len(conns), r.totalLocked()
	r.mu.Unlock()

	if !existed {
		metrics.LiveConnections.Inc()
	}
	r.logger.Info().
		Int64("room_id", roomID).
		Int("in_room", inRoom).
		Int("total", total).
		Msg("connection subscribed")
}

// Unsubscribe removes conn from roomID. The room entry is dropped once its
// last connection leaves. Removing an unknown conn is a no-op.
func (r *Registry) Unsubscribe(roomID int64, conn Conn) {
	r.mu.Lock()
	conns, ok := r.rooms[roomID]
	if !ok {
		r.mu.Unlock()
		return
	}
	if _, ok := conns[conn]; !ok {
		r.mu.Unlock()
		return
	}
	delete(conns, conn)
	if len(conns) == 0 {
		delete(r.rooms, roomID)
	}
	total := r.totalLocked()
	r.mu.Unlock()

	metrics.LiveConnections.Dec()
	r.logger.Info().
		Int64("room_id", roomID).
		Int("total", total).
		Msg("connection unsubscribed")
}

// Broadcast delivers payload to every connection currently subscribed to
// roomID. It iterates over a snapshot of the room's set: a connection whose
// send fails is closed and unsubscribed from the live set while delivery
// continues to the others. Broadcast to an empty room does nothing.
func (r *Registry) Broadcast(ctx context.Context, roomID int64, payload any) error {
	targets := r.snapshot(roomID)
	if len(targets) == 0 {
		return nil
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	metrics.Broadcasts.Inc()

	for _, conn := range targets {
		if err := conn.Send(ctx, data); err != nil {
			metrics.DeliveryFailures.Inc()
			r.logger.Warn().
				Err(err).
				Int64("room_id", roomID).
				Msg("delivery failed, dropping connection")
			_ = conn.Close()
			r.Unsubscribe(roomID, conn)
		}
	}
	return nil
}

// Count returns the number of live connections in roomID.
func (r *Registry) Count(roomID int64) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[roomID])
}

// Total returns the number of live connections across all rooms.
func (r *Registry) Total() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.totalLocked()
}

// Rooms returns the number of rooms with at least one live connection.
func (r *Registry) Rooms() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// CloseAll closes and forgets every connection. Used at shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	rooms := r.rooms
	r.rooms = make(map[int64]map[Conn]struct{})
	r.mu.Unlock()

	for _, conns := range rooms {
		for conn := range conns {
			_ = conn.Close()
			metrics.LiveConnections.Dec()
		}
	}
}

func (r *Registry) snapshot(roomID int64) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conns := r.rooms[roomID]
	out := make([]Conn, 0, len(conns))
	for c := range conns {
		out = append(out, c)
	}
	return out
}

func (r *Registry) totalLocked() int {
	n := 0
	for _, conns := range r.rooms {
		n += len(conns)
	}
	return n
}
