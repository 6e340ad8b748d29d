package ecs

import (
	"maps"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/zeusync/contentpack/internal/core/fields"
)

// LifeStage tracks how far an entity has progressed through its lifecycle.
type LifeStage uint8

const (
	StagePreInit LifeStage = iota
	StageInitializing
	StageInitialized
	StageMapInitialized
	StageTerminating
	StageDeleted
)

func (s LifeStage) String() string {
	switch s {
	case StagePreInit:
		return "pre-init"
	case StageInitializing:
		return "initializing"
	case StageInitialized:
		return "initialized"
	case StageMapInitialized:
		return "map-initialized"
	case StageTerminating:
		return "terminating"
	case StageDeleted:
		return "deleted"
	default:
		return "unknown"
	}
}

// MetaFlags are per-entity networking hints.
type MetaFlags uint8

const (
	FlagNone                 MetaFlags = 0
	FlagPvsPriority          MetaFlags = 1 << 0
	FlagSessionSpecific      MetaFlags = 1 << 1
	FlagExtraTransformEvents MetaFlags = 1 << 2
)

// MetaDataComponent carries identity: display strings, origin prototype and
// lifecycle stage.
type MetaDataComponent struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Prototype   string    `yaml:"-"`
	Flags       MetaFlags `yaml:"flags"`
	LifeStage   LifeStage `yaml:"-"`
}

// TransformComponent places the entity in the world.
type TransformComponent struct {
	Map      MapID
	Parent   EntityID
	Local    mgl64.Vec2
	Rotation Angle
	Anchored bool `yaml:"anchored"`
}

// Coordinates returns the placement the transform encodes.
func (t *TransformComponent) Coordinates() Coordinates {
	return Coordinates{Map: t.Map, Parent: t.Parent, Position: t.Local}
}

// ActorComponent links an entity to a connected player session.
type ActorComponent struct {
	Session string
	// PingMillis is the most recent round-trip estimate for the session.
	PingMillis uint16
}

// AppearanceComponent is a small key/value bag clients use to pick visuals.
type AppearanceComponent struct {
	Data map[string]string `yaml:"data"`
}

func registerBuiltins(r *Registry) {
	MustRegisterComponent[MetaDataComponent](r, "MetaData", Excluded())
	MustRegisterComponent[TransformComponent](r, "Transform", Excluded())
	MustRegisterComponent[ActorComponent](r, "Actor", Excluded())
	MustRegisterComponent[AppearanceComponent](r, "Appearance",
		WithFactory(func() *AppearanceComponent {
			return &AppearanceComponent{Data: make(map[string]string)}
		}),
		WithFields(
			fields.Map("data", func(c *AppearanceComponent) *map[string]string { return &c.Data }),
		),
	)
}

// SetAppearance stores key=value on the entity's appearance, attaching the
// component if needed, and marks the entity dirty when the value changed.
func (w *World) SetAppearance(id EntityID, key, value string) {
	app, err := Ensure[AppearanceComponent](w, id)
	if err != nil {
		return
	}
	if app.Data == nil {
		app.Data = make(map[string]string)
	}
	if cur, ok := app.Data[key]; ok && cur == value {
		return
	}
	app.Data[key] = value
	w.Dirty(id)
}

// Appearance returns a snapshot of the entity's appearance data.
func (w *World) Appearance(id EntityID) map[string]string {
	app, ok := Get[AppearanceComponent](w, id)
	if !ok {
		return nil
	}
	return maps.Clone(app.Data)
}
