// Package ecs is the entity/component host the content features run on.
//
// The World is owned by a single simulation goroutine: none of its methods
// lock, and callers on other goroutines must hop onto the tick through the
// simulation inbox.
package ecs

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// EntityID identifies an entity. The zero value never names a live entity.
type EntityID uint64

// InvalidEntity is the zero EntityID.
const InvalidEntity EntityID = 0

// Valid reports whether id is not the zero id.
func (id EntityID) Valid() bool { return id != InvalidEntity }

func (id EntityID) String() string {
	if id == InvalidEntity {
		return "invalid"
	}
	return fmt.Sprintf("e%d", uint64(id))
}

// ComponentID identifies a registered component type within one World.
type ComponentID uint32

// MapID identifies a map. NullspaceMap is the absence of a map.
type MapID uint32

const NullspaceMap MapID = 0

// Angle is a rotation in radians.
type Angle float64

// Degrees builds an Angle from degrees.
func Degrees(d float64) Angle { return Angle(d * math.Pi / 180) }

// Coordinates place an entity either on a map or relative to a parent entity.
// The zero value is nullspace.
type Coordinates struct {
	Map      MapID
	Parent   EntityID
	Position mgl64.Vec2
}

// MapCoordinates places something at an absolute position on a map.
func MapCoordinates(m MapID, x, y float64) Coordinates {
	return Coordinates{Map: m, Position: mgl64.Vec2{x, y}}
}

// EntityCoordinates places something at an offset from a parent entity.
func EntityCoordinates(parent EntityID, x, y float64) Coordinates {
	return Coordinates{Parent: parent, Position: mgl64.Vec2{x, y}}
}

// Nullspace returns coordinates outside of every map.
func Nullspace() Coordinates { return Coordinates{} }

// IsNullspace reports whether c names no map and no parent.
func (c Coordinates) IsNullspace() bool {
	return c.Map == NullspaceMap && !c.Parent.Valid()
}

func (c Coordinates) String() string {
	switch {
	case c.Parent.Valid():
		return fmt.Sprintf("%s+(%.2f, %.2f)", c.Parent, c.Position.X(), c.Position.Y())
	case c.Map != NullspaceMap:
		return fmt.Sprintf("map%d(%.2f, %.2f)", c.Map, c.Position.X(), c.Position.Y())
	default:
		return "nullspace"
	}
}
