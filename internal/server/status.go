package server

import (
	"cmp"
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/zeusync/contentpack/internal/core/events/bus"
)

// Status is the snapshot served by StatusHandler.
type Status struct {
	Sessions []SessionStatus `json:"sessions"`
	Tick     uint64          `json:"tick"`
	Paused   bool            `json:"paused"`
	Metrics  MetricsSnapshot `json:"metrics"`
	Events   bus.Stats       `json:"events"`
}

type SessionStatus struct {
	ID          string    `json:"id"`
	ConnectedAt time.Time `json:"connectedAt"`
}

// Status reports connected sessions and the simulation clock.
func (s *Server) Status() Status {
	s.mu.RLock()
	st := Status{Sessions: make([]SessionStatus, 0, len(s.sessions))}
	for _, sess := range s.sessions {
		st.Sessions = append(st.Sessions, SessionStatus{ID: sess.ID, ConnectedAt: sess.ConnectedAt})
	}
	s.mu.RUnlock()
	slices.SortFunc(st.Sessions, func(a, b SessionStatus) int {
		return cmp.Or(a.ConnectedAt.Compare(b.ConnectedAt), strings.Compare(a.ID, b.ID))
	})
	st.Tick = s.game.Loop.Tick()
	st.Paused = s.game.Loop.Paused()
	st.Metrics = s.metrics.Snapshot()
	st.Events = s.game.World.Bus().Stats()
	return st
}

// StatusHandler serves /status as JSON and /health as plain text.
func (s *Server) StatusHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(s.Status())
	})
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
