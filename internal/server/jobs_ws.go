package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/hfarouk/docdex/internal/queue"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const jobsPollInterval = time.Second

// jobEvent is one job status update pushed to the client.
type jobEvent struct {
	Type string      `json:"type"` // "snapshot" or "update"
	Jobs []queue.Job `json:"jobs"`
}

// jobsWebSocketHandler streams job status changes. The client gets a
// full snapshot on connect, then only the jobs whose status or error
// changed since the last tick.
func (s *Server) jobsWebSocketHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.deps.Log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// Drain client frames so pings and closes are handled.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ctx := r.Context()
	seen := make(map[int64]queue.JobStatus)

	jobs, err := s.deps.Queue.List(ctx, 100)
	if err != nil {
		s.deps.Log.Error("listing jobs for websocket", "error", err)
		return
	}
	for _, j := range jobs {
		seen[j.ID] = j.Status
	}
	if err := conn.WriteJSON(jobEvent{Type: "snapshot", Jobs: jobs}); err != nil {
		return
	}

	ticker := time.NewTicker(jobsPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		jobs, err := s.deps.Queue.List(ctx, 100)
		if err != nil {
			s.deps.Log.Error("listing jobs for websocket", "error", err)
			return
		}
		var changed []queue.Job
		for _, j := range jobs {
			if prev, ok := seen[j.ID]; !ok || prev != j.Status {
				changed = append(changed, j)
				seen[j.ID] = j.Status
			}
		}
		if len(changed) == 0 {
			continue
		}
		if err := conn.WriteJSON(jobEvent{Type: "update", Jobs: changed}); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.deps.Log.Warn("websocket write failed", "error", err)
			}
			return
		}
	}
}
