package ecs

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// maxParentDepth bounds parent-chain walks.
const maxParentDepth = 64

// AnchorStateChangedEvent is raised on an entity whose anchoring flipped.
type AnchorStateChangedEvent struct {
	Anchored bool
}

// Transform returns the entity's transform.
func (w *World) Transform(id EntityID) (*TransformComponent, bool) {
	c, ok := w.Component(id, w.transformType)
	if !ok {
		return nil, false
	}
	return c.(*TransformComponent), true
}

// MapPosition resolves id's absolute map and position by walking its parents.
func (w *World) MapPosition(id EntityID) (MapID, mgl64.Vec2, error) {
	var pos mgl64.Vec2
	cur := id
	for depth := 0; depth < maxParentDepth; depth++ {
		xf, ok := w.Transform(cur)
		if !ok {
			return NullspaceMap, pos, fmt.Errorf("%s: %w", cur, ErrNoTransform)
		}
		pos = pos.Add(xf.Local)
		if !xf.Parent.Valid() {
			return xf.Map, pos, nil
		}
		cur = xf.Parent
	}
	return NullspaceMap, pos, fmt.Errorf("%s: parent chain deeper than %d", id, maxParentDepth)
}

// SetCoordinates moves id to coords.
func (w *World) SetCoordinates(id EntityID, coords Coordinates, rotation Angle) error {
	xf, ok := w.Transform(id)
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrNoTransform)
	}
	if coords.Parent == id {
		return fmt.Errorf("%s: cannot parent to itself", id)
	}
	xf.Map, xf.Parent, xf.Local, xf.Rotation = coords.Map, coords.Parent, coords.Position, rotation
	w.Dirty(id)
	return nil
}

// Anchor pins id to the centre of its current tile.
func (w *World) Anchor(id EntityID) error {
	xf, ok := w.Transform(id)
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrNoTransform)
	}
	xf.Local = mgl64.Vec2{snapToTile(xf.Local.X()), snapToTile(xf.Local.Y())}
	if xf.Anchored {
		return nil
	}
	xf.Anchored = true
	w.Dirty(id)
	return RaiseLocalEvent(w, id, &AnchorStateChangedEvent{Anchored: true})
}

// Unanchor frees id to move.
func (w *World) Unanchor(id EntityID) error {
	xf, ok := w.Transform(id)
	if !ok {
		return fmt.Errorf("%s: %w", id, ErrNoTransform)
	}
	if !xf.Anchored {
		return nil
	}
	xf.Anchored = false
	w.Dirty(id)
	return RaiseLocalEvent(w, id, &AnchorStateChangedEvent{Anchored: false})
}

func snapToTile(v float64) float64 {
	return math.Floor(v) + 0.5
}
