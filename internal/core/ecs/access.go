package ecs

import (
	"fmt"
	"slices"
)

func typeFor[T any](w *World) (*ComponentType, error) {
	t, ok := TypeOf[T](w.reg)
	if !ok {
		var zero T
		return nil, fmt.Errorf("%w: %T", ErrUnknownComponent, zero)
	}
	return t, nil
}

// Get returns id's T component.
func Get[T any](w *World, id EntityID) (*T, bool) {
	t, ok := TypeOf[T](w.reg)
	if !ok {
		return nil, false
	}
	c, ok := w.Component(id, t)
	if !ok {
		return nil, false
	}
	return c.(*T), true
}

// Has reports whether id has a T component.
func Has[T any](w *World, id EntityID) bool {
	_, ok := Get[T](w, id)
	return ok
}

// Add attaches a default T to id.
func Add[T any](w *World, id EntityID) (*T, error) {
	t, err := typeFor[T](w)
	if err != nil {
		return nil, err
	}
	c, err := w.AddComponent(id, t)
	if c == nil {
		return nil, err
	}
	return c.(*T), err
}

// Ensure returns id's T component, attaching a default one when missing.
func Ensure[T any](w *World, id EntityID) (*T, error) {
	if c, ok := Get[T](w, id); ok {
		return c, nil
	}
	return Add[T](w, id)
}

// Remove detaches id's T component.
func Remove[T any](w *World, id EntityID) error {
	t, err := typeFor[T](w)
	if err != nil {
		return err
	}
	return w.RemoveComponent(id, t)
}

// Query returns every entity with a T component, in ascending id order.
func Query[T any](w *World) []EntityID {
	t, ok := TypeOf[T](w.reg)
	if !ok {
		return nil
	}
	var out []EntityID
	for id, e := range w.entities {
		if _, ok := e.components[t.id]; ok {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

// Each calls fn for every entity with a T component, in ascending id order.
// Entities deleted by an earlier call are skipped.
func Each[T any](w *World, fn func(EntityID, *T)) {
	for _, id := range Query[T](w) {
		if c, ok := Get[T](w, id); ok {
			fn(id, c)
		}
	}
}
