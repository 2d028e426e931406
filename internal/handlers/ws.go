package handlers

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	closeGrace = time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// wsConn adapts a WebSocket connection to hub.Conn. Writes are serialised.
type wsConn struct {
	id   string
	conn *websocket.Conn

	mu     sync.Mutex
	closed bool
}

func (c *wsConn) Send(ctx context.Context, payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	c.conn.SetWriteDeadline(deadline)
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

func (c *wsConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
		time.Now().Add(closeGrace))
	return c.conn.Close()
}

// closePolicy closes conn with a policy-violation frame carrying reason.
func closePolicy(conn *websocket.Conn, reason string) {
	conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason),
		time.Now().Add(closeGrace))
	conn.Close()
}

// WebSocket subscribes a connection to the room named by the room_id query
// parameter. Frames sent by the client are read and discarded; the
// subscription ends when reading fails.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	raw := r.URL.Query().Get("room_id")
	if raw == "" {
		closePolicy(conn, "room_id required")
		return
	}
	roomID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		closePolicy(conn, "room_id must be integer")
		return
	}

	c := &wsConn{id: uuid.NewString(), conn: conn}
	h.hub.Subscribe(roomID, c)
	defer func() {
		h.hub.Unsubscribe(roomID, c)
		c.Close()
	}()

	h.logger.Debug().Str("conn_id", c.id).Int64("room_id", roomID).Msg("websocket connected")
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug().Err(err).Str("conn_id", c.id).Msg("websocket read error")
			}
			return
		}
	}
}
