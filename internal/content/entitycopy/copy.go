// Package entitycopy clones live entities: every component the source carries
// and every persisted value of those components, without entity references.
package entitycopy

import (
	"errors"
	"fmt"

	"github.com/zeusync/contentpack/internal/core/ecs"
	"github.com/zeusync/contentpack/internal/core/observability/log"
)

var (
	// ErrSourceNotFound is returned when the source has no metadata or
	// transform, which includes entities that do not exist.
	ErrSourceNotFound = errors.New("copy source not found")
	// ErrNoPrototype is returned when the source was not spawned from a
	// prototype, so there is nothing to create the copy from.
	ErrNoPrototype = errors.New("copy source has no prototype")
)

type options struct {
	rotation   ecs.Angle
	initialize bool
}

// Option tweaks one copy.
type Option func(*options)

// WithRotation sets the copy's rotation. The default is zero.
func WithRotation(a ecs.Angle) Option {
	return func(o *options) { o.rotation = a }
}

// WithInitialize controls whether the copy runs init, startup and map init.
func WithInitialize(initialize bool) Option {
	return func(o *options) { o.initialize = initialize }
}

// System copies entities within one world.
type System struct {
	w   *ecs.World
	log log.Log
}

func NewSystem(w *ecs.World, logger log.Log) *System {
	return &System{w: w, log: logger.Named("entitycopy")}
}

// CanCopy reports whether Copy would accept id as a source.
func (s *System) CanCopy(id ecs.EntityID) bool {
	meta, ok := s.w.Meta(id)
	if !ok {
		return false
	}
	if _, ok := s.w.Transform(id); !ok {
		return false
	}
	return meta.Prototype != ""
}

// Copy creates a copy of source at coords. The copy is initialized unless
// WithInitialize(false) is given.
func (s *System) Copy(source ecs.EntityID, coords ecs.Coordinates, opts ...Option) (ecs.EntityID, error) {
	o := options{initialize: true}
	for _, opt := range opts {
		opt(&o)
	}
	return s.copy(source, coords, o)
}

// CopyToNullspace creates a copy outside of every map. The copy is left
// uninitialized unless WithInitialize(true) is given.
func (s *System) CopyToNullspace(source ecs.EntityID, opts ...Option) (ecs.EntityID, error) {
	o := options{initialize: false}
	for _, opt := range opts {
		opt(&o)
	}
	return s.copy(source, ecs.Nullspace(), o)
}

// TryCopy is Copy reporting failure as false.
func (s *System) TryCopy(source ecs.EntityID, coords ecs.Coordinates, opts ...Option) (ecs.EntityID, bool) {
	id, err := s.Copy(source, coords, opts...)
	if err != nil {
		s.log.Debug("copy failed", log.String("source", source.String()), log.Error(err))
		return ecs.InvalidEntity, false
	}
	return id, true
}

func (s *System) copy(source ecs.EntityID, coords ecs.Coordinates, o options) (ecs.EntityID, error) {
	srcMeta, ok := s.w.Meta(source)
	if !ok {
		return ecs.InvalidEntity, fmt.Errorf("%s: %w", source, ErrSourceNotFound)
	}
	srcXform, ok := s.w.Transform(source)
	if !ok {
		return ecs.InvalidEntity, fmt.Errorf("%s: %w", source, ErrSourceNotFound)
	}
	if srcMeta.Prototype == "" {
		return ecs.InvalidEntity, fmt.Errorf("%s: %w", source, ErrNoPrototype)
	}

	dst, err := s.w.CreateEntityUninitialized(srcMeta.Prototype, coords, o.rotation)
	if err != nil {
		return ecs.InvalidEntity, fmt.Errorf("copy %s: %w", source, err)
	}
	if err := s.syncComponents(source, dst); err != nil {
		s.w.DeleteEntity(dst)
		return ecs.InvalidEntity, fmt.Errorf("copy %s: %w", source, err)
	}

	dstMeta, _ := s.w.Meta(dst)
	dstMeta.Name = srcMeta.Name
	dstMeta.Description = srcMeta.Description
	dstMeta.Flags |= srcMeta.Flags

	dstXform, _ := s.w.Transform(dst)
	switch {
	case srcXform.Anchored && !dstXform.Anchored:
		err = s.w.Anchor(dst)
	case !srcXform.Anchored && dstXform.Anchored:
		err = s.w.Unanchor(dst)
	}
	if err != nil {
		s.log.Warn("copy anchoring failed", log.String("copy", dst.String()), log.Error(err))
	}

	if o.initialize {
		if err := s.w.InitializeAndStartEntity(dst, true); err != nil {
			s.log.Warn("copy initialization reported errors", log.String("copy", dst.String()), log.Error(err))
		}
	}

	s.log.Debug("entity copied",
		log.String("source", source.String()),
		log.String("copy", dst.String()),
		log.String("prototype", srcMeta.Prototype))
	return dst, nil
}

// syncComponents makes dst carry exactly source's copyable component types,
// then copies every persisted value member.
func (s *System) syncComponents(source, dst ecs.EntityID) error {
	srcTypes := copyable(s.w.Components(source))
	present := make(map[ecs.ComponentID]bool)
	for _, t := range copyable(s.w.Components(dst)) {
		present[t.ID()] = true
	}

	wanted := make(map[ecs.ComponentID]bool, len(srcTypes))
	for _, t := range srcTypes {
		wanted[t.ID()] = true
		if present[t.ID()] {
			continue
		}
		if _, err := s.w.AddComponent(dst, t); err != nil {
			return err
		}
	}
	for _, t := range copyable(s.w.Components(dst)) {
		if wanted[t.ID()] {
			continue
		}
		if err := s.w.RemoveComponent(dst, t); err != nil {
			return err
		}
	}

	for _, t := range srcTypes {
		src, _ := s.w.Component(source, t)
		cp, ok := s.w.Component(dst, t)
		if !ok {
			continue
		}
		if written := t.Fields().CopyInto(src, cp); len(written) > 0 {
			s.log.Debug("component fields copied",
				log.String("copy", dst.String()),
				log.String("component", t.Name()),
				log.Strings("fields", written))
		}
	}
	return nil
}

func copyable(types []*ecs.ComponentType) []*ecs.ComponentType {
	out := make([]*ecs.ComponentType, 0, len(types))
	for _, t := range types {
		if !t.Excluded() {
			out = append(out, t)
		}
	}
	return out
}
