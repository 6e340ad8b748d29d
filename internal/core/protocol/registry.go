package protocol

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
)

// Registry maps bound UI message types to their wire names.
type Registry struct {
	byName map[string]reflect.Type
	byType map[reflect.Type]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName: make(map[string]reflect.Type),
		byType: make(map[reflect.Type]string),
	}
}

// Register makes M travel under name. M must be a struct type.
func Register[M any](r *Registry, name string) error {
	typ := reflect.TypeFor[M]()
	if typ.Kind() != reflect.Struct {
		return fmt.Errorf("register %s: %s is not a struct", name, typ)
	}
	if _, dup := r.byName[name]; dup {
		return fmt.Errorf("%w: %s", ErrTypeConflict, name)
	}
	if prev, dup := r.byType[typ]; dup {
		return fmt.Errorf("%w: %s already travels as %s", ErrTypeConflict, typ, prev)
	}
	r.byName[name] = typ
	r.byType[typ] = name
	return nil
}

// Encode returns the wire name and JSON body of msg, a registered message
// or a pointer to one.
func (r *Registry) Encode(msg any) (string, json.RawMessage, error) {
	typ := reflect.TypeOf(msg)
	if typ != nil && typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	name, ok := r.byType[typ]
	if !ok {
		return "", nil, fmt.Errorf("%w: %T", ErrUnknownType, msg)
	}
	raw, err := json.Marshal(msg)
	if err != nil {
		return "", nil, fmt.Errorf("encode %s: %w", name, err)
	}
	return name, raw, nil
}

// Decode returns a pointer to a fresh message of the type registered as
// name, filled from raw.
func (r *Registry) Decode(name string, raw json.RawMessage) (any, error) {
	typ, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, name)
	}
	v := reflect.New(typ)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, v.Interface()); err != nil {
			return nil, fmt.Errorf("decode %s: %w", name, err)
		}
	}
	return v.Interface(), nil
}

// Names lists every registered name.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.byName))
	for name := range r.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
