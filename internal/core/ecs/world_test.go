package ecs

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/contentpack/internal/core/fields"
	"github.com/zeusync/contentpack/internal/core/observability/log"
	"github.com/zeusync/contentpack/internal/core/prototype"
)

type counterComponent struct {
	Count int      `yaml:"count"`
	Tags  []string `yaml:"tags"`
	Owner EntityID `yaml:"-"`
}

type markerComponent struct{}

const testPrototypes = `
- type: entity
  id: Counter
  name: counter
  description: counts things
  components:
  - type: Counter
    count: 3
    tags: [a, b]
  - type: Transform
    anchored: true
- type: entity
  id: Broken
  components:
  - type: Missing
`

func newTestWorld(t *testing.T) *World {
	t.Helper()
	protos := prototype.NewManager()
	require.NoError(t, RegisterPrototypeKinds(protos))
	require.NoError(t, protos.LoadString(testPrototypes))

	w := NewWorld(log.NewNop(), protos, nil)
	_, err := RegisterComponent[counterComponent](w.Registry(), "Counter", WithFields(
		fields.Value("count", func(c *counterComponent) *int { return &c.Count }),
		fields.Slice("tags", func(c *counterComponent) *[]string { return &c.Tags }),
		fields.Ref("owner", func(c *counterComponent) *EntityID { return &c.Owner }),
	))
	require.NoError(t, err)
	_, err = RegisterComponent[markerComponent](w.Registry(), "Marker")
	require.NoError(t, err)
	return w
}

func TestCreateFromPrototype(t *testing.T) {
	w := newTestWorld(t)

	id, err := w.CreateEntityUninitialized("Counter", MapCoordinates(1, 2.2, 3.7), Degrees(90))
	require.NoError(t, err)

	meta, ok := w.Meta(id)
	require.True(t, ok)
	assert.Equal(t, "counter", meta.Name)
	assert.Equal(t, "counts things", meta.Description)
	assert.Equal(t, "Counter", meta.Prototype)
	assert.Equal(t, StagePreInit, meta.LifeStage)

	c, ok := Get[counterComponent](w, id)
	require.True(t, ok)
	assert.Equal(t, 3, c.Count)
	assert.Equal(t, []string{"a", "b"}, c.Tags)

	xf, ok := w.Transform(id)
	require.True(t, ok)
	assert.True(t, xf.Anchored)
	assert.Equal(t, MapID(1), xf.Map)
	assert.Equal(t, mgl64.Vec2{2.2, 3.7}, xf.Local)

	// Each spawn decodes its own instances.
	other, err := w.Spawn("Counter", Nullspace())
	require.NoError(t, err)
	c2, _ := Get[counterComponent](w, other)
	c2.Tags[0] = "z"
	assert.Equal(t, "a", c.Tags[0])
}

func TestCreateErrors(t *testing.T) {
	w := newTestWorld(t)

	_, err := w.CreateEntityUninitialized("Nope", Nullspace(), 0)
	assert.ErrorIs(t, err, ErrUnknownPrototype)

	_, err = w.CreateEntityUninitialized("Broken", Nullspace(), 0)
	assert.ErrorIs(t, err, ErrUnknownComponent)

	_, err = w.CreateEntityUninitialized("", EntityCoordinates(99, 0, 0), 0)
	assert.ErrorIs(t, err, ErrEntityNotFound)
}

func TestLifecycleOrder(t *testing.T) {
	w := newTestWorld(t)
	var steps []string
	for _, l := range []Lifecycle{LifecycleInit, LifecycleStartup, LifecycleMapInit, LifecycleShutdown} {
		step := l
		require.NoError(t, SubscribeLifecycle(w, step, func(EntityID, *counterComponent) {
			steps = append(steps, step.String())
		}))
	}

	id, err := w.CreateEntityUninitialized("Counter", Nullspace(), 0)
	require.NoError(t, err)
	assert.Empty(t, steps)

	require.NoError(t, w.InitializeAndStartEntity(id, false))
	assert.Equal(t, []string{"init", "startup"}, steps)
	assert.ErrorIs(t, w.InitializeAndStartEntity(id, true), ErrEntityInitialized)

	w.DeleteEntity(id)
	assert.Equal(t, []string{"init", "startup", "shutdown"}, steps)
	assert.False(t, w.Exists(id))
	w.DeleteEntity(id)
}

func TestAddRemoveComponents(t *testing.T) {
	w := newTestWorld(t)
	id, err := w.Spawn("", Nullspace())
	require.NoError(t, err)

	inits := 0
	require.NoError(t, SubscribeLifecycle(w, LifecycleInit, func(EntityID, *markerComponent) { inits++ }))

	_, err = Add[markerComponent](w, id)
	require.NoError(t, err)
	assert.Equal(t, 1, inits, "late components are initialized on attach")

	_, err = Add[markerComponent](w, id)
	assert.ErrorIs(t, err, ErrComponentExists)

	got, err := Ensure[markerComponent](w, id)
	require.NoError(t, err)
	assert.NotNil(t, got)

	assert.Equal(t, []EntityID{id}, Query[markerComponent](w))
	require.NoError(t, Remove[markerComponent](w, id))
	assert.False(t, Has[markerComponent](w, id))
	assert.ErrorIs(t, Remove[markerComponent](w, id), ErrComponentMissing)

	type unregistered struct{}
	_, err = Add[unregistered](w, id)
	assert.ErrorIs(t, err, ErrUnknownComponent)
}

type pokeEvent struct{ N int }

func TestLocalEventsReachOnlyMatchingEntities(t *testing.T) {
	w := newTestWorld(t)
	withCounter, err := w.Spawn("Counter", Nullspace())
	require.NoError(t, err)
	bare, err := w.Spawn("", Nullspace())
	require.NoError(t, err)

	var hits []EntityID
	require.NoError(t, SubscribeLocal(w, func(id EntityID, c *counterComponent, ev *pokeEvent) {
		c.Count += ev.N
		hits = append(hits, id)
	}))

	require.NoError(t, RaiseLocalEvent(w, withCounter, &pokeEvent{N: 2}))
	require.NoError(t, RaiseLocalEvent(w, bare, &pokeEvent{N: 2}))
	assert.Equal(t, []EntityID{withCounter}, hits)

	c, _ := Get[counterComponent](w, withCounter)
	assert.Equal(t, 5, c.Count)

	assert.ErrorIs(t, RaiseLocalEvent(w, 999, &pokeEvent{}), ErrEntityNotFound)
}

func TestAnchorSnapsToTileCentre(t *testing.T) {
	w := newTestWorld(t)
	id, err := w.Spawn("", MapCoordinates(1, 2.2, -0.3))
	require.NoError(t, err)

	var flips []bool
	require.NoError(t, SubscribeLocal(w, func(_ EntityID, _ *TransformComponent, ev *AnchorStateChangedEvent) {
		flips = append(flips, ev.Anchored)
	}))

	require.NoError(t, w.Anchor(id))
	xf, _ := w.Transform(id)
	assert.True(t, xf.Anchored)
	assert.Equal(t, mgl64.Vec2{2.5, -0.5}, xf.Local)

	require.NoError(t, w.Anchor(id))
	require.NoError(t, w.Unanchor(id))
	assert.False(t, xf.Anchored)
	assert.Equal(t, []bool{true, false}, flips)
}

func TestMapPositionFollowsParents(t *testing.T) {
	w := newTestWorld(t)
	parent, err := w.Spawn("", MapCoordinates(4, 10, 10))
	require.NoError(t, err)
	child, err := w.Spawn("", EntityCoordinates(parent, 1, -1))
	require.NoError(t, err)

	m, pos, err := w.MapPosition(child)
	require.NoError(t, err)
	assert.Equal(t, MapID(4), m)
	assert.Equal(t, mgl64.Vec2{11, 9}, pos)
}

func TestDirtyTracking(t *testing.T) {
	w := newTestWorld(t)
	a, _ := w.Spawn("", Nullspace())
	b, _ := w.Spawn("", Nullspace())
	assert.Equal(t, []EntityID{a, b}, w.TakeDirty())
	assert.Nil(t, w.TakeDirty())

	w.SetAppearance(b, "state", "on")
	w.SetAppearance(b, "state", "on")
	assert.Equal(t, []EntityID{b}, w.TakeDirty())
	w.SetAppearance(b, "state", "on")
	assert.Nil(t, w.TakeDirty())
	assert.Equal(t, map[string]string{"state": "on"}, w.Appearance(b))
}

func TestRegistryConflicts(t *testing.T) {
	w := newTestWorld(t)
	_, err := RegisterComponent[counterComponent](w.Registry(), "Other")
	assert.ErrorIs(t, err, ErrComponentConflict)
	_, err = RegisterComponent[struct{ X int }](w.Registry(), "Counter")
	assert.ErrorIs(t, err, ErrComponentConflict)

	meta, ok := w.Registry().ByName("MetaData")
	require.True(t, ok)
	assert.True(t, meta.Excluded())
	counter, ok := w.Registry().ByName("Counter")
	require.True(t, ok)
	assert.False(t, counter.Excluded())
	assert.Len(t, counter.Fields().CopyEligible(), 2)
}
