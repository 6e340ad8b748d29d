// Package power models whether machines receive power. There is no grid:
// receivers are switched directly by admin tooling and tests.
package power

import (
	"fmt"

	"github.com/zeusync/contentpack/internal/core/ecs"
	"github.com/zeusync/contentpack/internal/core/fields"
	"github.com/zeusync/contentpack/internal/core/observability/log"
)

// ReceiverComponent marks a machine that needs power to run.
type ReceiverComponent struct {
	Powered bool `yaml:"powered"`
	// Load is the draw in watts while powered.
	Load float32 `yaml:"load"`
}

// ChangedEvent is raised on a receiver whose powered state flipped.
type ChangedEvent struct {
	Powered bool
}

// System switches receivers.
type System struct {
	w   *ecs.World
	log log.Log
}

// NewSystem registers the receiver component on w.
func NewSystem(w *ecs.World, logger log.Log) (*System, error) {
	_, err := ecs.RegisterComponent[ReceiverComponent](w.Registry(), "PowerReceiver",
		ecs.WithFactory(func() *ReceiverComponent { return &ReceiverComponent{Powered: true, Load: 5} }),
		ecs.WithFields(
			fields.Value("powered", func(c *ReceiverComponent) *bool { return &c.Powered }),
			fields.Value("load", func(c *ReceiverComponent) *float32 { return &c.Load }),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("power: %w", err)
	}
	return &System{w: w, log: logger.Named("power")}, nil
}

// IsPowered reports whether id runs. Entities without a receiver always do.
func (s *System) IsPowered(id ecs.EntityID) bool {
	r, ok := ecs.Get[ReceiverComponent](s.w, id)
	return !ok || r.Powered
}

// SetPowered switches id's receiver and raises ChangedEvent when the state
// flips.
func (s *System) SetPowered(id ecs.EntityID, powered bool) error {
	r, ok := ecs.Get[ReceiverComponent](s.w, id)
	if !ok {
		return fmt.Errorf("power %s: %w", id, ecs.ErrComponentMissing)
	}
	if r.Powered == powered {
		return nil
	}
	r.Powered = powered
	s.w.Dirty(id)
	s.log.Debug("power changed", log.String("entity", id.String()), log.Bool("powered", powered))
	return ecs.RaiseLocalEvent(s.w, id, &ChangedEvent{Powered: powered})
}
