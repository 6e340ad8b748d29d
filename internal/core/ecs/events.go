package ecs

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/zeusync/contentpack/internal/core/events/bus"
)

// Lifecycle names a component lifecycle step.
type Lifecycle uint8

const (
	LifecycleInit Lifecycle = iota
	LifecycleStartup
	LifecycleMapInit
	LifecycleShutdown
)

func (l Lifecycle) String() string {
	switch l {
	case LifecycleInit:
		return "init"
	case LifecycleStartup:
		return "startup"
	case LifecycleMapInit:
		return "mapinit"
	case LifecycleShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

const eventSource = "ecs"

type directed struct {
	target EntityID
	comp   any
	event  any
}

func lifecycleTopic(t *ComponentType, l Lifecycle) string {
	return fmt.Sprintf("ecs.lifecycle.%s.%s", l, t.name)
}

func localTopic[E any]() string {
	return "ecs.local." + reflect.TypeFor[E]().String()
}

// SubscribeLifecycle runs fn whenever a C component passes through step l.
func SubscribeLifecycle[C any](w *World, l Lifecycle, fn func(id EntityID, comp *C)) error {
	t, err := typeFor[C](w)
	if err != nil {
		return err
	}
	_, err = w.bus.Subscribe(lifecycleTopic(t, l), func(ev bus.Event) error {
		d := ev.Data().(directed)
		fn(d.target, d.comp.(*C))
		return nil
	})
	return err
}

func (w *World) raiseLifecycle(id EntityID, t *ComponentType, comp any, l Lifecycle) error {
	topic := lifecycleTopic(t, l)
	if !w.bus.HasSubscribers(topic) {
		return nil
	}
	return w.bus.Publish(bus.NewEvent(topic, eventSource, directed{target: id, comp: comp}))
}

func (w *World) raiseLifecycleAll(id EntityID, l Lifecycle) error {
	var errs []error
	for _, t := range w.Components(id) {
		comp, ok := w.Component(id, t)
		if !ok {
			// Removed by an earlier handler.
			continue
		}
		if err := w.raiseLifecycle(id, t, comp, l); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// SubscribeLocal runs fn for every E raised on an entity that has a C
// component. Handlers run in subscription order.
func SubscribeLocal[C any, E any](w *World, fn func(id EntityID, comp *C, ev *E)) error {
	if _, err := typeFor[C](w); err != nil {
		return err
	}
	_, err := w.bus.Subscribe(localTopic[E](), func(event bus.Event) error {
		d := event.Data().(directed)
		comp, ok := Get[C](w, d.target)
		if !ok {
			return nil
		}
		fn(d.target, comp, d.event.(*E))
		return nil
	})
	return err
}

// RaiseLocalEvent delivers ev to every SubscribeLocal handler whose component
// is attached to id.
func RaiseLocalEvent[E any](w *World, id EntityID, ev *E) error {
	if !w.Exists(id) {
		return fmt.Errorf("raise %T on %s: %w", ev, id, ErrEntityNotFound)
	}
	topic := localTopic[E]()
	if !w.bus.HasSubscribers(topic) {
		return nil
	}
	return w.bus.Publish(bus.NewEvent(topic, eventSource, directed{target: id, event: ev}))
}
