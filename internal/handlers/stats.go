package handlers

import (
	"net/http"
	"time"
)

// TaskStats describes one pending bot reply.
type TaskStats struct {
	ID      string `json:"id"`
	RoomID  int64  `json:"room_id"`
	Running string `json:"running"`
}

// StatsResponse represents the response from the stats endpoint.
type StatsResponse struct {
	LiveConnections int         `json:"live_connections"`
	ActiveRooms     int         `json:"active_rooms"`
	PendingTasks    []TaskStats `json:"pending_tasks"`
}

// Stats reports live fan-out and pending bot replies for this process.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	pending := h.tasks.Pending()
	tasks := make([]TaskStats, 0, len(pending))
	for _, t := range pending {
		tasks = append(tasks, TaskStats{
			ID:      t.ID,
			RoomID:  t.RoomID,
			Running: time.Since(t.StartedAt).Round(time.Millisecond).String(),
		})
	}

	h.JSON(w, http.StatusOK, StatsResponse{
		LiveConnections: h.hub.Total(),
		ActiveRooms:     h.hub.Rooms(),
		PendingTasks:    tasks,
	})
}
