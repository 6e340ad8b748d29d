// Package fields declares the persisted members of component types.
//
// A component type lists its persisted members once, at registration, as a Set
// of typed descriptors. Anything not listed is runtime state: it is neither
// loaded from prototypes nor copied between entities. Entity references are
// declared with Ref/Refs so that consumers can tell them apart from plain
// values and skip them.
package fields

import (
	"maps"
	"slices"
)

// Kind classifies a persisted member.
type Kind uint8

const (
	// KindValue is a self-contained value that may be copied freely.
	KindValue Kind = iota
	// KindRef holds a single entity identifier.
	KindRef
	// KindRefs holds a collection of entity identifiers.
	KindRefs
)

func (k Kind) String() string {
	switch k {
	case KindValue:
		return "value"
	case KindRef:
		return "ref"
	case KindRefs:
		return "refs"
	default:
		return "unknown"
	}
}

// Field describes one persisted member of a component type. The src and dst
// arguments are pointers to the owning component struct; passing any other
// type panics, which is a registration bug rather than a runtime condition.
type Field interface {
	Name() string
	Kind() Kind
	// Equal reports whether the member holds structurally equal values in a and b.
	Equal(a, b any) bool
	// CopyTo writes an independent copy of src's member into dst.
	CopyTo(src, dst any)
	// Get returns the member's current value.
	Get(c any) any
}

type field[C any, V any] struct {
	name  string
	kind  Kind
	ref   func(*C) *V
	equal func(a, b V) bool
	clone func(V) V
}

func (f *field[C, V]) Name() string { return f.name }
func (f *field[C, V]) Kind() Kind   { return f.kind }

func (f *field[C, V]) Equal(a, b any) bool {
	return f.equal(*f.ref(a.(*C)), *f.ref(b.(*C)))
}

func (f *field[C, V]) CopyTo(src, dst any) {
	*f.ref(dst.(*C)) = f.clone(*f.ref(src.(*C)))
}

func (f *field[C, V]) Get(c any) any {
	return *f.ref(c.(*C))
}

func identity[V any](v V) V { return v }

func comparableEqual[V comparable](a, b V) bool { return a == b }

// Value declares a comparable member copied by assignment.
func Value[C any, V comparable](name string, ref func(*C) *V) Field {
	return &field[C, V]{name: name, kind: KindValue, ref: ref, equal: comparableEqual[V], clone: identity[V]}
}

// Slice declares a slice member; copies get their own backing array.
func Slice[C any, V comparable](name string, ref func(*C) *[]V) Field {
	return &field[C, []V]{
		name:  name,
		kind:  KindValue,
		ref:   ref,
		equal: func(a, b []V) bool { return slices.Equal(a, b) },
		clone: func(v []V) []V {
			if v == nil {
				return nil
			}
			return slices.Clone(v)
		},
	}
}

// Map declares a map member; copies get their own map.
func Map[C any, K comparable, V comparable](name string, ref func(*C) *map[K]V) Field {
	return &field[C, map[K]V]{
		name:  name,
		kind:  KindValue,
		ref:   ref,
		equal: func(a, b map[K]V) bool { return maps.Equal(a, b) },
		clone: func(v map[K]V) map[K]V {
			if v == nil {
				return nil
			}
			return maps.Clone(v)
		},
	}
}

// Custom declares a member whose equality and copy semantics are supplied by
// the caller, for nested structs holding slices and similar.
func Custom[C any, V any](name string, ref func(*C) *V, equal func(a, b V) bool, clone func(V) V) Field {
	if clone == nil {
		clone = identity[V]
	}
	return &field[C, V]{name: name, kind: KindValue, ref: ref, equal: equal, clone: clone}
}

// Ref declares a member holding a single entity identifier.
func Ref[C any, ID comparable](name string, ref func(*C) *ID) Field {
	return &field[C, ID]{name: name, kind: KindRef, ref: ref, equal: comparableEqual[ID], clone: identity[ID]}
}

// Refs declares a member holding a collection of entity identifiers.
func Refs[C any, ID comparable](name string, ref func(*C) *[]ID) Field {
	return &field[C, []ID]{
		name:  name,
		kind:  KindRefs,
		ref:   ref,
		equal: func(a, b []ID) bool { return slices.Equal(a, b) },
		clone: func(v []ID) []ID { return slices.Clone(v) },
	}
}
