package dispatch

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"
)

// TaskInfo describes one pending augmentation task.
type TaskInfo struct {
	ID        string    `json:"id"`
	RoomID    int64     `json:"room_id"`
	StartedAt time.Time `json:"started_at"`
}

// TaskSet supervises detached work. Tasks run on a context owned by the set,
// so they outlive the request that scheduled them but not the set itself.
type TaskSet struct {
	ctx    context.Context
	cancel context.CancelFunc
	group  errgroup.Group

	mu      sync.Mutex
	pending map[string]TaskInfo
	closed  bool
}

// NewTaskSet creates a task set whose tasks are cancelled when parent is.
func NewTaskSet(parent context.Context) *TaskSet {
	ctx, cancel := context.WithCancel(parent)
	return &TaskSet{
		ctx:     ctx,
		cancel:  cancel,
		pending: make(map[string]TaskInfo),
	}
}

// Go starts fn in its own goroutine and returns the task id. It reports false
// without running fn once Shutdown has begun.
func (s *TaskSet) Go(roomID int64, fn func(ctx context.Context)) (string, bool) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return "", false
	}
	defer s.mu.Unlock()

	id := ulid.Make().String()
	s.pending[id] = TaskInfo{ID: id, RoomID: roomID, StartedAt: time.Now()}

	// Registered under mu so Shutdown never waits on a half-added task.
	s.group.Go(func() error {
		defer func() {
			s.mu.Lock()
			delete(s.pending, id)
			s.mu.Unlock()
		}()
		fn(s.ctx)
		return nil
	})
	return id, true
}

// Pending lists running tasks, oldest first.
func (s *TaskSet) Pending() []TaskInfo {
	s.mu.Lock()
	out := make([]TaskInfo, 0, len(s.pending))
	for _, t := range s.pending {
		out = append(out, t)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Wait blocks until every task started so far has returned.
func (s *TaskSet) Wait() {
	_ = s.group.Wait()
}

// Shutdown stops accepting tasks and waits for the running ones. If ctx ends
// first, the remaining tasks are cancelled and awaited before returning
// ctx's error.
func (s *TaskSet) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}
