// Package server connects remote sessions to the simulation: it spawns an
// actor per session, routes window traffic into the tick and pushes window
// state back out.
package server

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/zeusync/contentpack/internal/core/ecs"
	"github.com/zeusync/contentpack/internal/core/observability/log"
	"github.com/zeusync/contentpack/internal/core/protocol"
	"github.com/zeusync/contentpack/internal/game"
)

// Config holds server tuning.
type Config struct {
	PingInterval   time.Duration
	ActorPrototype string
	SpawnMap       ecs.MapID
	// Admin enables the copy and power requests.
	Admin bool
	// AdminToken, when set, must be presented in hello to use admin requests.
	AdminToken string
	// SendQueue bounds the pushes waiting for a slow session.
	SendQueue int
}

// DefaultConfig returns the configuration used by tests and tools.
func DefaultConfig() Config {
	return Config{
		PingInterval:   5 * time.Second,
		ActorPrototype: "MobHuman",
		SpawnMap:       1,
		SendQueue:      256,
	}
}

// Server serves sessions over any number of listeners.
type Server struct {
	game   *game.Game
	config Config
	logger log.Log

	mu        sync.RWMutex
	sessions  map[string]*Session
	listeners map[protocol.Listener]struct{}

	handlers sync.WaitGroup
	closed   atomic.Bool
	metrics  Metrics
}

// New creates a server for g and hooks window pushes into its loop.
func New(g *game.Game, config Config, logger log.Log) *Server {
	if logger == nil {
		logger = log.NewNop()
	}
	if config.SendQueue <= 0 {
		config.SendQueue = DefaultConfig().SendQueue
	}
	if config.PingInterval <= 0 {
		config.PingInterval = DefaultConfig().PingInterval
	}
	s := &Server{
		game:      g,
		config:    config,
		logger:    logger.Named("server"),
		sessions:  make(map[string]*Session),
		listeners: make(map[protocol.Listener]struct{}),
	}
	g.Loop.OnTickEnd(s.flush)
	return s
}

// Serve accepts sessions from ln until ctx ends, ln closes or Close is
// called, then waits for the sessions it started.
func (s *Server) Serve(ctx context.Context, ln protocol.Listener) error {
	if !s.track(ln) {
		return ErrServerClosed
	}
	defer s.untrack(ln)
	s.logger.Info("serving", log.String("addr", ln.Addr().String()))
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()
	defer s.handlers.Wait()

	for {
		conn, err := ln.Accept(ctx)
		if err != nil {
			if ctx.Err() != nil || s.closed.Load() || errors.Is(err, protocol.ErrListenerClosed) {
				return nil
			}
			return err
		}
		if s.closed.Load() {
			_ = conn.Close()
			return nil
		}
		s.handlers.Add(1)
		go func() {
			defer s.handlers.Done()
			s.handle(ctx, conn)
		}()
	}
}

func (s *Server) track(ln protocol.Listener) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed.Load() {
		return false
	}
	s.listeners[ln] = struct{}{}
	return true
}

func (s *Server) untrack(ln protocol.Listener) {
	s.mu.Lock()
	delete(s.listeners, ln)
	s.mu.Unlock()
}

// Close stops accepting new sessions: it closes every listener being served
// and makes later Serve calls fail with ErrServerClosed. Sessions already
// running end with their Serve context.
func (s *Server) Close() {
	s.mu.Lock()
	s.closed.Store(true)
	listeners := make([]protocol.Listener, 0, len(s.listeners))
	for ln := range s.listeners {
		listeners = append(listeners, ln)
	}
	s.mu.Unlock()
	for _, ln := range listeners {
		_ = ln.Close()
	}
}

// Metrics returns the traffic counters.
func (s *Server) Metrics() MetricsSnapshot { return s.metrics.Snapshot() }

// SessionCount returns the number of connected sessions.
func (s *Server) SessionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Server) register(conn protocol.Conn) *Session {
	sess := &Session{
		ID:          uuid.NewString(),
		ConnectedAt: time.Now(),
		conn:        conn,
		out:         make(chan protocol.Envelope, s.config.SendQueue),
	}
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

func (s *Server) unregister(sess *Session) {
	s.mu.Lock()
	delete(s.sessions, sess.ID)
	s.mu.Unlock()
}

func (s *Server) session(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// flush runs on the simulation goroutine after every tick.
func (s *Server) flush(uint64) {
	for _, out := range s.game.UI.Flush() {
		sess, ok := s.session(out.Session)
		if !ok {
			continue
		}
		env := protocol.Envelope{
			Kind:    protocol.KindUiState,
			Entity:  uint64(out.Target),
			Key:     string(out.Key),
			Payload: out.State,
		}
		if out.Closed {
			env.Kind = protocol.KindUiClosed
			env.Payload = nil
		}
		ok = sess.push(env)
		s.metrics.recordPush(ok)
		if !ok {
			s.logger.Warn("dropping session", log.String("session", sess.ID), log.Error(ErrSlowConsumer))
			_ = sess.conn.Close()
		}
	}
}
