package entitycopy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/contentpack/internal/core/ecs"
	"github.com/zeusync/contentpack/internal/core/fields"
	"github.com/zeusync/contentpack/internal/core/observability/log"
	"github.com/zeusync/contentpack/internal/core/prototype"
)

type labelComponent struct {
	Text    string         `yaml:"text"`
	Tags    []string       `yaml:"tags"`
	Props   map[string]int `yaml:"props"`
	Owner   ecs.EntityID   `yaml:"-"`
	Friends []ecs.EntityID `yaml:"-"`
	// Scratch is runtime state and is not declared as a field.
	Scratch int `yaml:"-"`
}

type extraComponent struct {
	Level int `yaml:"level"`
}

type staleComponent struct {
	Note string `yaml:"note"`
}

const prototypes = `
- type: entity
  id: Sign
  name: sign
  description: a plain sign
  components:
  - type: Label
    text: hello
    tags: [a]
  - type: Stale
    note: from prototype
`

type fixture struct {
	w   *ecs.World
	sys *System
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	protos := prototype.NewManager()
	require.NoError(t, ecs.RegisterPrototypeKinds(protos))
	require.NoError(t, protos.LoadString(prototypes))

	w := ecs.NewWorld(log.NewNop(), protos, nil)
	reg := w.Registry()
	_, err := ecs.RegisterComponent[labelComponent](reg, "Label", ecs.WithFields(
		fields.Value("text", func(c *labelComponent) *string { return &c.Text }),
		fields.Slice("tags", func(c *labelComponent) *[]string { return &c.Tags }),
		fields.Map("props", func(c *labelComponent) *map[string]int { return &c.Props }),
		fields.Ref("owner", func(c *labelComponent) *ecs.EntityID { return &c.Owner }),
		fields.Refs("friends", func(c *labelComponent) *[]ecs.EntityID { return &c.Friends }),
	))
	require.NoError(t, err)
	_, err = ecs.RegisterComponent[extraComponent](reg, "Extra", ecs.WithFields(
		fields.Value("level", func(c *extraComponent) *int { return &c.Level }),
	))
	require.NoError(t, err)
	_, err = ecs.RegisterComponent[staleComponent](reg, "Stale", ecs.WithFields(
		fields.Value("note", func(c *staleComponent) *string { return &c.Note }),
	))
	require.NoError(t, err)

	return fixture{w: w, sys: NewSystem(w, log.NewNop())}
}

// customizedSign spawns a Sign and diverges it from its prototype.
func (f fixture) customizedSign(t *testing.T) ecs.EntityID {
	t.Helper()
	src, err := f.w.Spawn("Sign", ecs.MapCoordinates(1, 3.2, 4.9))
	require.NoError(t, err)
	other, err := f.w.Spawn("", ecs.Nullspace())
	require.NoError(t, err)

	label, _ := ecs.Get[labelComponent](f.w, src)
	label.Text = "changed"
	label.Tags = []string{"x", "y"}
	label.Props = map[string]int{"size": 2}
	label.Owner = other
	label.Friends = []ecs.EntityID{other}
	label.Scratch = 42

	extra, err := ecs.Add[extraComponent](f.w, src)
	require.NoError(t, err)
	extra.Level = 7
	require.NoError(t, ecs.Remove[staleComponent](f.w, src))

	meta, _ := f.w.Meta(src)
	meta.Name = "renamed sign"
	meta.Description = "custom"
	meta.Flags = ecs.FlagPvsPriority
	require.NoError(t, f.w.Anchor(src))
	return src
}

func componentNames(w *ecs.World, id ecs.EntityID) []string {
	var names []string
	for _, t := range w.Components(id) {
		if !t.Excluded() {
			names = append(names, t.Name())
		}
	}
	return names
}

func TestCopyMirrorsComponentSet(t *testing.T) {
	f := newFixture(t)
	src := f.customizedSign(t)

	cp, err := f.sys.Copy(src, ecs.MapCoordinates(2, 0, 0))
	require.NoError(t, err)
	assert.NotEqual(t, src, cp)
	assert.Equal(t, componentNames(f.w, src), componentNames(f.w, cp))
	assert.False(t, ecs.Has[staleComponent](f.w, cp), "types only on the copy are removed")
	assert.False(t, ecs.Has[ecs.ActorComponent](f.w, cp))
}

func TestCopyCopiesValueFields(t *testing.T) {
	f := newFixture(t)
	src := f.customizedSign(t)

	cp, err := f.sys.Copy(src, ecs.MapCoordinates(2, 0, 0))
	require.NoError(t, err)

	srcLabel, _ := ecs.Get[labelComponent](f.w, src)
	cpLabel, ok := ecs.Get[labelComponent](f.w, cp)
	require.True(t, ok)
	assert.Equal(t, "changed", cpLabel.Text)
	assert.Equal(t, []string{"x", "y"}, cpLabel.Tags)
	assert.Equal(t, map[string]int{"size": 2}, cpLabel.Props)

	cpExtra, ok := ecs.Get[extraComponent](f.w, cp)
	require.True(t, ok)
	assert.Equal(t, 7, cpExtra.Level, "attached components receive values too")

	// Copies do not share backing storage with the source.
	srcLabel.Tags[0] = "mutated"
	srcLabel.Props["size"] = 9
	assert.Equal(t, "x", cpLabel.Tags[0])
	assert.Equal(t, 2, cpLabel.Props["size"])
}

func TestCopyNeverTouchesReferencesOrRuntimeState(t *testing.T) {
	f := newFixture(t)
	src := f.customizedSign(t)

	cp, err := f.sys.Copy(src, ecs.MapCoordinates(2, 0, 0))
	require.NoError(t, err)

	cpLabel, _ := ecs.Get[labelComponent](f.w, cp)
	assert.Equal(t, ecs.InvalidEntity, cpLabel.Owner)
	assert.Nil(t, cpLabel.Friends)
	assert.Zero(t, cpLabel.Scratch)

	srcLabel, _ := ecs.Get[labelComponent](f.w, src)
	assert.True(t, srcLabel.Owner.Valid())
	assert.Len(t, srcLabel.Friends, 1)
}

func TestCopyMetadataAndPlacement(t *testing.T) {
	f := newFixture(t)
	src := f.customizedSign(t)

	cp, err := f.sys.Copy(src, ecs.MapCoordinates(2, 5.7, 1.1), WithRotation(ecs.Degrees(180)))
	require.NoError(t, err)

	meta, ok := f.w.Meta(cp)
	require.True(t, ok)
	assert.Equal(t, "renamed sign", meta.Name)
	assert.Equal(t, "custom", meta.Description)
	assert.Equal(t, "Sign", meta.Prototype)
	assert.NotZero(t, meta.Flags&ecs.FlagPvsPriority)
	assert.Equal(t, ecs.StageMapInitialized, meta.LifeStage)

	xf, _ := f.w.Transform(cp)
	assert.Equal(t, ecs.MapID(2), xf.Map)
	assert.True(t, xf.Anchored)
	assert.InDelta(t, 5.5, xf.Local.X(), 1e-9)
	assert.InDelta(t, 1.5, xf.Local.Y(), 1e-9)
	assert.InDelta(t, float64(ecs.Degrees(180)), float64(xf.Rotation), 1e-9)
}

func TestCopyUnanchorsWhenSourceIsFree(t *testing.T) {
	f := newFixture(t)
	src, err := f.w.Spawn("Sign", ecs.MapCoordinates(1, 0, 0))
	require.NoError(t, err)
	cp, err := f.sys.Copy(src, ecs.MapCoordinates(1, 1, 1))
	require.NoError(t, err)
	xf, _ := f.w.Transform(cp)
	assert.False(t, xf.Anchored)
}

func TestCopyToNullspaceDefaultsToUninitialized(t *testing.T) {
	f := newFixture(t)
	src := f.customizedSign(t)

	cp, err := f.sys.CopyToNullspace(src)
	require.NoError(t, err)
	meta, _ := f.w.Meta(cp)
	assert.Equal(t, ecs.StagePreInit, meta.LifeStage)
	xf, _ := f.w.Transform(cp)
	assert.True(t, xf.Coordinates().IsNullspace())

	cp, err = f.sys.CopyToNullspace(src, WithInitialize(true))
	require.NoError(t, err)
	meta, _ = f.w.Meta(cp)
	assert.Equal(t, ecs.StageMapInitialized, meta.LifeStage)
}

func TestCopyFailures(t *testing.T) {
	f := newFixture(t)

	_, err := f.sys.Copy(999, ecs.Nullspace())
	assert.ErrorIs(t, err, ErrSourceNotFound)
	assert.False(t, f.sys.CanCopy(999))

	bare, err := f.w.Spawn("", ecs.Nullspace())
	require.NoError(t, err)
	_, err = f.sys.Copy(bare, ecs.Nullspace())
	assert.ErrorIs(t, err, ErrNoPrototype)
	assert.False(t, f.sys.CanCopy(bare))

	id, ok := f.sys.TryCopy(bare, ecs.Nullspace())
	assert.False(t, ok)
	assert.Equal(t, ecs.InvalidEntity, id)

	before := f.w.EntityCount()
	_, err = f.sys.Copy(bare, ecs.EntityCoordinates(12345, 0, 0))
	assert.Error(t, err)
	assert.Equal(t, before, f.w.EntityCount(), "failed copies leave nothing behind")
}

func TestTryCopySucceeds(t *testing.T) {
	f := newFixture(t)
	src := f.customizedSign(t)
	assert.True(t, f.sys.CanCopy(src))
	cp, ok := f.sys.TryCopy(src, ecs.MapCoordinates(1, 0, 0), WithInitialize(false))
	require.True(t, ok)
	meta, _ := f.w.Meta(cp)
	assert.Equal(t, ecs.StagePreInit, meta.LifeStage)
}
