package ecs

import (
	"fmt"
	"reflect"

	"github.com/zeusync/contentpack/internal/core/fields"
)

// ComponentType describes one registered component type.
type ComponentType struct {
	id       ComponentID
	name     string
	typ      reflect.Type
	fields   fields.Set
	excluded bool
	factory  func() any
}

func (t *ComponentType) ID() ComponentID { return t.id }
func (t *ComponentType) Name() string    { return t.name }

// Fields returns the persisted members declared at registration.
func (t *ComponentType) Fields() fields.Set { return t.fields }

// Excluded reports whether the type carries identity, placement or session
// state that must never be duplicated onto another entity.
func (t *ComponentType) Excluded() bool { return t.excluded }

// New returns a default instance, a pointer to the component struct.
func (t *ComponentType) New() any { return t.factory() }

func (t *ComponentType) String() string { return t.name }

type componentConfig struct {
	fields   []fields.Field
	excluded bool
	factory  func() any
}

// ComponentOption customises a component registration.
type ComponentOption func(*componentConfig)

// WithFields declares the persisted members of the component.
func WithFields(fs ...fields.Field) ComponentOption {
	return func(c *componentConfig) { c.fields = append(c.fields, fs...) }
}

// WithFactory overrides the zero-value constructor, for components whose
// defaults are not their zero values.
func WithFactory[T any](fn func() *T) ComponentOption {
	return func(c *componentConfig) { c.factory = func() any { return fn() } }
}

// Excluded marks the component as never copied between entities.
func Excluded() ComponentOption {
	return func(c *componentConfig) { c.excluded = true }
}

// Registry maps component names and Go types to ComponentTypes.
type Registry struct {
	types  []*ComponentType
	byName map[string]*ComponentType
	byType map[reflect.Type]*ComponentType
}

func newRegistry() *Registry {
	return &Registry{
		byName: make(map[string]*ComponentType),
		byType: make(map[reflect.Type]*ComponentType),
	}
}

// RegisterComponent registers *T under name. Registering the same Go type or
// name twice fails.
func RegisterComponent[T any](r *Registry, name string, opts ...ComponentOption) (*ComponentType, error) {
	typ := reflect.TypeFor[T]()
	if _, dup := r.byName[name]; dup {
		return nil, fmt.Errorf("%w: %s", ErrComponentConflict, name)
	}
	if prev, dup := r.byType[typ]; dup {
		return nil, fmt.Errorf("%w: %s already registered as %s", ErrComponentConflict, typ, prev.name)
	}

	cfg := componentConfig{factory: func() any { return new(T) }}
	for _, opt := range opts {
		opt(&cfg)
	}
	set, err := fields.NewSet(cfg.fields...)
	if err != nil {
		return nil, fmt.Errorf("register %s: %w", name, err)
	}

	t := &ComponentType{
		id:       ComponentID(len(r.types) + 1),
		name:     name,
		typ:      typ,
		fields:   set,
		excluded: cfg.excluded,
		factory:  cfg.factory,
	}
	r.types = append(r.types, t)
	r.byName[name] = t
	r.byType[typ] = t
	return t, nil
}

// MustRegisterComponent is RegisterComponent for package-level setup where a
// failure is a programming error.
func MustRegisterComponent[T any](r *Registry, name string, opts ...ComponentOption) *ComponentType {
	t, err := RegisterComponent[T](r, name, opts...)
	if err != nil {
		panic(err)
	}
	return t
}

// ByName resolves a component type by its registered name.
func (r *Registry) ByName(name string) (*ComponentType, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// ByID resolves a component type by id.
func (r *Registry) ByID(id ComponentID) (*ComponentType, bool) {
	if id == 0 || int(id) > len(r.types) {
		return nil, false
	}
	return r.types[id-1], true
}

// Types returns every registered type in registration order.
func (r *Registry) Types() []*ComponentType {
	out := make([]*ComponentType, len(r.types))
	copy(out, r.types)
	return out
}

// TypeOf resolves the registration of T.
func TypeOf[T any](r *Registry) (*ComponentType, bool) {
	t, ok := r.byType[reflect.TypeFor[T]()]
	return t, ok
}
