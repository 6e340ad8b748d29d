package server

import (
	"context"
	"fmt"
	"time"

	"github.com/zeusync/contentpack/internal/content/entitycopy"
	"github.com/zeusync/contentpack/internal/core/ecs"
	"github.com/zeusync/contentpack/internal/core/observability/log"
	"github.com/zeusync/contentpack/internal/core/protocol"
	"github.com/zeusync/contentpack/internal/core/ui"
)

// dispatch handles one request. A nil reply means nothing is sent back.
func (s *Server) dispatch(ctx context.Context, sess *Session, env protocol.Envelope) (*protocol.Envelope, error) {
	switch env.Kind {
	case protocol.KindHello:
		return s.handleHello(ctx, sess, env)
	case protocol.KindPing:
		reply := env
		reply.Kind = protocol.KindPong
		return &reply, nil
	case protocol.KindPong:
		return nil, s.handlePong(ctx, sess, env)
	}

	if !sess.actor.Valid() {
		return nil, ErrNoHello
	}
	switch env.Kind {
	case protocol.KindList:
		return s.handleList(ctx, env)
	case protocol.KindUiOpen:
		return ack(env, s.game.Loop.Do(ctx, func() error {
			return s.game.UI.Open(sess.ID, sess.actor, ecs.EntityID(env.Entity), ui.Key(env.Key))
		}))
	case protocol.KindUiClose:
		return ack(env, s.game.Loop.Do(ctx, func() error {
			s.game.UI.Close(sess.ID, ecs.EntityID(env.Entity), ui.Key(env.Key))
			return nil
		}))
	case protocol.KindUiMessage:
		return s.handleUiMessage(ctx, sess, env)
	case protocol.KindCopy:
		return s.handleCopy(ctx, sess, env)
	case protocol.KindPower:
		return s.handlePower(ctx, sess, env)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, env.Kind)
	}
}

func ack(env protocol.Envelope, err error) (*protocol.Envelope, error) {
	if err != nil {
		return nil, err
	}
	reply, err := env.Reply(protocol.KindOK, nil)
	if err != nil {
		return nil, err
	}
	return &reply, nil
}

func (s *Server) handleHello(ctx context.Context, sess *Session, env protocol.Envelope) (*protocol.Envelope, error) {
	if sess.actor.Valid() {
		return nil, ErrAlreadyWelcomed
	}
	var hello protocol.Hello
	if len(env.Payload) > 0 {
		if err := env.DecodePayload(&hello); err != nil {
			return nil, err
		}
	}

	var actor ecs.EntityID
	err := s.game.Loop.Do(ctx, func() error {
		id, err := s.game.World.Spawn(s.config.ActorPrototype, ecs.MapCoordinates(s.config.SpawnMap, 0, 0))
		if err != nil {
			if id.Valid() {
				s.game.World.DeleteEntity(id)
			}
			return err
		}
		comp, err := ecs.Ensure[ecs.ActorComponent](s.game.World, id)
		if err != nil {
			s.game.World.DeleteEntity(id)
			return err
		}
		comp.Session = sess.ID
		if meta, ok := s.game.World.Meta(id); ok && hello.Name != "" {
			meta.Name = hello.Name
		}
		actor = id
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("spawn actor: %w", err)
	}
	sess.actor = actor
	sess.Name = hello.Name
	sess.Locale = hello.Locale
	sess.token = hello.Token

	s.logger.Info("session welcomed",
		log.String("session", sess.ID),
		log.String("name", hello.Name),
		log.Uint64("actor", uint64(actor)))

	reply, err := env.Reply(protocol.KindWelcome, protocol.Welcome{Session: sess.ID, Actor: uint64(actor)})
	if err != nil {
		return nil, err
	}
	return &reply, nil
}

func (s *Server) handlePong(ctx context.Context, sess *Session, env protocol.Envelope) error {
	var p protocol.Ping
	if err := env.DecodePayload(&p); err != nil {
		return err
	}
	if !sess.actor.Valid() {
		return nil
	}
	rtt := time.Since(time.Unix(0, p.SentUnixNano))
	actor := sess.actor
	return s.game.Loop.Post(ctx, func() {
		if comp, ok := ecs.Get[ecs.ActorComponent](s.game.World, actor); ok {
			comp.PingMillis = pingMillis(rtt)
		}
	})
}

func (s *Server) handleList(ctx context.Context, env protocol.Envelope) (*protocol.Envelope, error) {
	var list protocol.Entities
	err := s.game.Loop.Do(ctx, func() error {
		w := s.game.World
		for _, id := range w.Entities() {
			meta, ok := w.Meta(id)
			if !ok || meta.Prototype == "" {
				continue
			}
			info := protocol.EntityInfo{
				ID:         uint64(id),
				Name:       meta.Name,
				Prototype:  meta.Prototype,
				Appearance: w.Appearance(id),
			}
			if m, pos, err := w.MapPosition(id); err == nil {
				info.Map = uint32(m)
				info.Position = [2]float64{pos.X(), pos.Y()}
			}
			if xform, ok := w.Transform(id); ok {
				info.Anchored = xform.Anchored
			}
			for _, key := range s.game.UI.Interfaces(id) {
				info.Interfaces = append(info.Interfaces, string(key))
			}
			list.Entities = append(list.Entities, info)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	reply, err := env.Reply(protocol.KindEntities, list)
	if err != nil {
		return nil, err
	}
	return &reply, nil
}

func (s *Server) handleUiMessage(ctx context.Context, sess *Session, env protocol.Envelope) (*protocol.Envelope, error) {
	msg, err := s.game.Messages.Decode(env.Type, env.Payload)
	if err != nil {
		return nil, err
	}
	err = s.game.Loop.Do(ctx, func() error {
		return s.game.UI.Receive(sess.ID, ecs.EntityID(env.Entity), ui.Key(env.Key), msg)
	})
	if env.Seq == 0 && err == nil {
		return nil, nil
	}
	return ack(env, err)
}

func (s *Server) handleCopy(ctx context.Context, sess *Session, env protocol.Envelope) (*protocol.Envelope, error) {
	if err := s.authorizeAdmin(sess); err != nil {
		return nil, err
	}
	var req protocol.CopyRequest
	if len(env.Payload) > 0 {
		if err := env.DecodePayload(&req); err != nil {
			return nil, err
		}
	}
	opts := []entitycopy.Option{entitycopy.WithRotation(ecs.Degrees(req.Rotation))}
	if req.Initialize != nil {
		opts = append(opts, entitycopy.WithInitialize(*req.Initialize))
	}

	source := ecs.EntityID(env.Entity)
	var copied ecs.EntityID
	err := s.game.Loop.Do(ctx, func() error {
		if !s.game.Copier.CanCopy(source) {
			return fmt.Errorf("%s: %w", source, ErrCopyNotPermitted)
		}
		var err error
		if req.Nullspace {
			copied, err = s.game.Copier.CopyToNullspace(source, opts...)
		} else {
			copied, err = s.game.Copier.Copy(source, ecs.MapCoordinates(ecs.MapID(req.Map), req.Position[0], req.Position[1]), opts...)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	reply, err := env.Reply(protocol.KindCopied, protocol.Copied{Entity: uint64(copied)})
	if err != nil {
		return nil, err
	}
	return &reply, nil
}

func (s *Server) handlePower(ctx context.Context, sess *Session, env protocol.Envelope) (*protocol.Envelope, error) {
	if err := s.authorizeAdmin(sess); err != nil {
		return nil, err
	}
	var req protocol.PowerRequest
	if err := env.DecodePayload(&req); err != nil {
		return nil, err
	}
	return ack(env, s.game.Loop.Do(ctx, func() error {
		return s.game.Power.SetPowered(ecs.EntityID(env.Entity), req.Powered)
	}))
}
