package server

import (
	"context"
	"errors"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zeusync/contentpack/internal/core/ecs"
	"github.com/zeusync/contentpack/internal/core/observability/log"
	"github.com/zeusync/contentpack/internal/core/protocol"
)

const cleanupTimeout = 5 * time.Second

// Session is one connected client.
type Session struct {
	ID          string
	Name        string
	Locale      string
	ConnectedAt time.Time

	// actor and token are only touched by the session's read goroutine.
	actor ecs.EntityID
	token string

	conn protocol.Conn
	out  chan protocol.Envelope
}

// push queues env without blocking. It reports false when the queue is full.
func (sess *Session) push(env protocol.Envelope) bool {
	select {
	case sess.out <- env:
		return true
	default:
		return false
	}
}

func (s *Server) handle(ctx context.Context, conn protocol.Conn) {
	sess := s.register(conn)
	s.metrics.recordSession()
	logger := s.logger.With(log.String("session", sess.ID), log.String("remote_addr", conn.RemoteAddr().String()))
	logger.Info("session connected")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.writeLoop(gctx, sess) })
	g.Go(func() error { return s.pingLoop(gctx, sess) })
	g.Go(func() error {
		err := s.readLoop(gctx, sess, logger)
		// the writer and pinger only stop with the group context
		_ = conn.Close()
		return err
	})
	err := g.Wait()

	s.unregister(sess)
	s.cleanup(sess, logger)
	_ = conn.Close()
	if err != nil && !errors.Is(err, protocol.ErrConnectionClosed) && !errors.Is(err, context.Canceled) {
		logger.Warn("session ended with error", log.Error(err))
		return
	}
	logger.Info("session disconnected")
}

// cleanup closes the session's windows and deletes its actor.
func (s *Server) cleanup(sess *Session, logger log.Log) {
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()
	actor := sess.actor
	err := s.game.Loop.Do(ctx, func() error {
		s.game.UI.CloseSession(sess.ID)
		if actor.Valid() {
			s.game.World.DeleteEntity(actor)
		}
		return nil
	})
	if err != nil {
		logger.Debug("session cleanup skipped", log.Error(err))
	}
}

func (s *Server) writeLoop(ctx context.Context, sess *Session) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case env := <-sess.out:
			if err := sess.conn.Send(ctx, env); err != nil {
				return err
			}
		}
	}
}

func (s *Server) pingLoop(ctx context.Context, sess *Session) error {
	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			env, err := protocol.NewEnvelope(protocol.KindPing, protocol.Ping{SentUnixNano: now.UnixNano()})
			if err != nil {
				return err
			}
			if err = s.send(ctx, sess, env); err != nil {
				return err
			}
		}
	}
}

// send queues env, waiting while the queue is full.
func (s *Server) send(ctx context.Context, sess *Session, env protocol.Envelope) error {
	select {
	case sess.out <- env:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Server) readLoop(ctx context.Context, sess *Session, logger log.Log) error {
	for {
		env, err := sess.conn.Receive(ctx)
		if err != nil {
			if errors.Is(err, protocol.ErrInvalidEnvelope) {
				logger.Debug("malformed envelope", log.Error(err))
				if err = s.replyError(ctx, sess, protocol.Envelope{}, err); err != nil {
					return err
				}
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		start := time.Now()
		reply, err := s.dispatch(ctx, sess, env)
		s.metrics.recordRequest(time.Since(start), err)
		if err != nil {
			logger.Debug("request failed", log.String("kind", string(env.Kind)), log.Error(err))
			if err = s.replyError(ctx, sess, env, err); err != nil {
				return err
			}
			continue
		}
		if reply == nil {
			continue
		}
		if err = s.send(ctx, sess, *reply); err != nil {
			return err
		}
	}
}

func (s *Server) replyError(ctx context.Context, sess *Session, req protocol.Envelope, cause error) error {
	reply, err := req.Reply(protocol.KindError, protocol.Error{Message: cause.Error()})
	if err != nil {
		return err
	}
	return s.send(ctx, sess, reply)
}

// pingMillis converts a round trip to whole milliseconds, saturating at the
// largest value the actor component holds.
func pingMillis(rtt time.Duration) uint16 {
	ms := rtt.Milliseconds()
	switch {
	case ms < 0:
		return 0
	case ms > math.MaxUint16:
		return math.MaxUint16
	default:
		return uint16(ms)
	}
}
