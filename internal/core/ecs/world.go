package ecs

import (
	"errors"
	"fmt"
	"slices"

	"github.com/zeusync/contentpack/internal/core/events/bus"
	"github.com/zeusync/contentpack/internal/core/observability/log"
	"github.com/zeusync/contentpack/internal/core/prototype"
)

type entityData struct {
	components map[ComponentID]any
}

// World stores entities and their components.
type World struct {
	log    log.Log
	reg    *Registry
	protos *prototype.Manager
	bus    bus.EventBus

	next     EntityID
	entities map[EntityID]*entityData
	dirty    map[EntityID]struct{}

	metaType      *ComponentType
	transformType *ComponentType
}

// NewWorld creates an empty world with the built-in components registered.
func NewWorld(logger log.Log, protos *prototype.Manager, b bus.EventBus) *World {
	if logger == nil {
		logger = log.NewNop()
	}
	if protos == nil {
		protos = prototype.NewManager()
	}
	if b == nil {
		b = bus.New()
	}
	w := &World{
		log:      logger.Named("ecs"),
		reg:      newRegistry(),
		protos:   protos,
		bus:      b,
		entities: make(map[EntityID]*entityData),
		dirty:    make(map[EntityID]struct{}),
	}
	registerBuiltins(w.reg)
	w.metaType, _ = TypeOf[MetaDataComponent](w.reg)
	w.transformType, _ = TypeOf[TransformComponent](w.reg)
	return w
}

func (w *World) Registry() *Registry            { return w.reg }
func (w *World) Prototypes() *prototype.Manager { return w.protos }
func (w *World) Bus() bus.EventBus              { return w.bus }
func (w *World) Logger() log.Log                { return w.log }
func (w *World) Exists(id EntityID) bool        { _, ok := w.entities[id]; return ok }
func (w *World) EntityCount() int               { return len(w.entities) }

// Entities returns every live entity id in ascending order.
func (w *World) Entities() []EntityID {
	out := make([]EntityID, 0, len(w.entities))
	for id := range w.entities {
		out = append(out, id)
	}
	slices.Sort(out)
	return out
}

// CreateEntityUninitialized allocates an entity from protoID at coords without
// running any lifecycle. An empty protoID creates a bare entity.
func (w *World) CreateEntityUninitialized(protoID string, coords Coordinates, rotation Angle) (EntityID, error) {
	var (
		proto   *EntityPrototype
		decoded []decodedComponent
	)
	if protoID != "" {
		p, ok := prototype.Index[*EntityPrototype](w.protos, protoID)
		if !ok {
			return InvalidEntity, fmt.Errorf("%w: %s", ErrUnknownPrototype, protoID)
		}
		var err error
		if decoded, err = w.decodeComponents(p); err != nil {
			return InvalidEntity, err
		}
		proto = p
	}
	if coords.Parent.Valid() && !w.Exists(coords.Parent) {
		return InvalidEntity, fmt.Errorf("parent %s: %w", coords.Parent, ErrEntityNotFound)
	}

	w.next++
	id := w.next
	e := &entityData{components: make(map[ComponentID]any, len(decoded)+2)}
	w.entities[id] = e

	meta := &MetaDataComponent{LifeStage: StagePreInit}
	if proto != nil {
		meta.Prototype = proto.ID
		meta.Name = proto.Name
		meta.Description = proto.Description
	}
	e.components[w.metaType.id] = meta
	e.components[w.transformType.id] = &TransformComponent{
		Map:      coords.Map,
		Parent:   coords.Parent,
		Local:    coords.Position,
		Rotation: rotation,
	}
	for _, dc := range decoded {
		if dc.typ.id == w.transformType.id {
			// Prototype transform data only contributes anchoring.
			e.components[dc.typ.id].(*TransformComponent).Anchored = dc.value.(*TransformComponent).Anchored
			continue
		}
		if dc.typ.id == w.metaType.id {
			continue
		}
		e.components[dc.typ.id] = dc.value
	}
	w.Dirty(id)
	return id, nil
}

// InitializeAndStartEntity runs init and startup on every component, then map
// init when mapInit is set.
func (w *World) InitializeAndStartEntity(id EntityID, mapInit bool) error {
	meta, ok := w.Meta(id)
	if !ok {
		return fmt.Errorf("initialize %s: %w", id, ErrEntityNotFound)
	}
	if meta.LifeStage != StagePreInit {
		return fmt.Errorf("initialize %s: %w", id, ErrEntityInitialized)
	}

	var errs error
	meta.LifeStage = StageInitializing
	errs = errors.Join(errs, w.raiseLifecycleAll(id, LifecycleInit))
	meta.LifeStage = StageInitialized
	errs = errors.Join(errs, w.raiseLifecycleAll(id, LifecycleStartup))
	if mapInit {
		errs = errors.Join(errs, w.raiseLifecycleAll(id, LifecycleMapInit))
		meta.LifeStage = StageMapInitialized
	}
	if errs != nil {
		w.log.Warn("entity lifecycle reported errors", log.String("entity", id.String()), log.Error(errs))
	}
	return errs
}

// Spawn creates and fully initializes an entity.
func (w *World) Spawn(protoID string, coords Coordinates) (EntityID, error) {
	id, err := w.CreateEntityUninitialized(protoID, coords, 0)
	if err != nil {
		return InvalidEntity, err
	}
	if err = w.InitializeAndStartEntity(id, true); err != nil {
		return id, err
	}
	return id, nil
}

// DeleteEntity shuts down every component in reverse order and forgets the
// entity. Deleting an unknown entity is a no-op.
func (w *World) DeleteEntity(id EntityID) {
	e, ok := w.entities[id]
	if !ok {
		return
	}
	meta := e.components[w.metaType.id].(*MetaDataComponent)
	if meta.LifeStage == StageTerminating {
		return
	}
	initialized := meta.LifeStage >= StageInitializing
	meta.LifeStage = StageTerminating
	if initialized {
		types := w.Components(id)
		slices.Reverse(types)
		for _, t := range types {
			comp, present := e.components[t.id]
			if !present {
				continue
			}
			if err := w.raiseLifecycle(id, t, comp, LifecycleShutdown); err != nil {
				w.log.Warn("component shutdown failed",
					log.String("entity", id.String()), log.String("component", t.name), log.Error(err))
			}
		}
	}
	meta.LifeStage = StageDeleted
	delete(w.entities, id)
	delete(w.dirty, id)
}

// Components returns the types attached to id ordered by ComponentID.
func (w *World) Components(id EntityID) []*ComponentType {
	e, ok := w.entities[id]
	if !ok {
		return nil
	}
	out := make([]*ComponentType, 0, len(e.components))
	for cid := range e.components {
		if t, ok := w.reg.ByID(cid); ok {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b *ComponentType) int { return int(a.id) - int(b.id) })
	return out
}

// Component returns id's instance of t.
func (w *World) Component(id EntityID, t *ComponentType) (any, bool) {
	e, ok := w.entities[id]
	if !ok || t == nil {
		return nil, false
	}
	c, ok := e.components[t.id]
	return c, ok
}

// HasComponent reports whether id has t attached.
func (w *World) HasComponent(id EntityID, t *ComponentType) bool {
	_, ok := w.Component(id, t)
	return ok
}

// AddComponent attaches a default instance of t. Components added to an
// entity that already started run their init and startup immediately.
func (w *World) AddComponent(id EntityID, t *ComponentType) (any, error) {
	e, ok := w.entities[id]
	if !ok {
		return nil, fmt.Errorf("add %s to %s: %w", t, id, ErrEntityNotFound)
	}
	if _, exists := e.components[t.id]; exists {
		return nil, fmt.Errorf("add %s to %s: %w", t, id, ErrComponentExists)
	}
	comp := t.New()
	e.components[t.id] = comp
	w.Dirty(id)

	stage := e.components[w.metaType.id].(*MetaDataComponent).LifeStage
	if stage < StageInitialized || stage >= StageTerminating {
		return comp, nil
	}
	var errs error
	errs = errors.Join(errs, w.raiseLifecycle(id, t, comp, LifecycleInit))
	errs = errors.Join(errs, w.raiseLifecycle(id, t, comp, LifecycleStartup))
	if stage == StageMapInitialized {
		errs = errors.Join(errs, w.raiseLifecycle(id, t, comp, LifecycleMapInit))
	}
	return comp, errs
}

// RemoveComponent shuts down and detaches id's instance of t.
func (w *World) RemoveComponent(id EntityID, t *ComponentType) error {
	e, ok := w.entities[id]
	if !ok {
		return fmt.Errorf("remove %s from %s: %w", t, id, ErrEntityNotFound)
	}
	comp, exists := e.components[t.id]
	if !exists {
		return fmt.Errorf("remove %s from %s: %w", t, id, ErrComponentMissing)
	}
	var err error
	if stage := e.components[w.metaType.id].(*MetaDataComponent).LifeStage; stage >= StageInitializing {
		err = w.raiseLifecycle(id, t, comp, LifecycleShutdown)
	}
	delete(e.components, t.id)
	w.Dirty(id)
	return err
}

// Meta returns the entity's metadata.
func (w *World) Meta(id EntityID) (*MetaDataComponent, bool) {
	c, ok := w.Component(id, w.metaType)
	if !ok {
		return nil, false
	}
	return c.(*MetaDataComponent), true
}

// Name returns the entity's display name, or its id when it has none.
func (w *World) Name(id EntityID) string {
	if meta, ok := w.Meta(id); ok && meta.Name != "" {
		return meta.Name
	}
	return id.String()
}

// Dirty flags id for the next state push.
func (w *World) Dirty(id EntityID) {
	if _, ok := w.entities[id]; ok {
		w.dirty[id] = struct{}{}
	}
}

// TakeDirty drains the dirty set in ascending order.
func (w *World) TakeDirty() []EntityID {
	if len(w.dirty) == 0 {
		return nil
	}
	out := make([]EntityID, 0, len(w.dirty))
	for id := range w.dirty {
		out = append(out, id)
	}
	clear(w.dirty)
	slices.Sort(out)
	return out
}
