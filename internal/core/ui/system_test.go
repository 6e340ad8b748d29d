package ui

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/contentpack/internal/core/ecs"
	"github.com/zeusync/contentpack/internal/core/observability/log"
)

const (
	panelKey Key = "panel"
	otherKey Key = "other"
)

type panelComponent struct {
	Label string
}

type renameMessage struct {
	Label string
}

type panelState struct {
	Label string `json:"label"`
}

type fixture struct {
	w      *ecs.World
	sys    *System
	actor  ecs.EntityID
	target ecs.EntityID
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	w := ecs.NewWorld(log.NewNop(), nil, nil)
	_, err := ecs.RegisterComponent[panelComponent](w.Registry(), "Panel")
	require.NoError(t, err)

	sys := NewSystem(w, log.NewNop())
	sys.RegisterStateProvider(panelKey, func(target ecs.EntityID) (any, bool) {
		p, ok := ecs.Get[panelComponent](w, target)
		if !ok {
			return nil, false
		}
		return panelState{Label: p.Label}, true
	})
	require.NoError(t, Subscribe(sys, panelKey, func(id ecs.EntityID, c *panelComponent, msg *Received[renameMessage]) {
		c.Label = msg.Message.Label
		w.Dirty(id)
	}))

	actor, err := w.Spawn("", ecs.Nullspace())
	require.NoError(t, err)
	target, err := w.Spawn("", ecs.Nullspace())
	require.NoError(t, err)
	_, err = ecs.Add[panelComponent](w, target)
	require.NoError(t, err)
	w.TakeDirty()
	return fixture{w: w, sys: sys, actor: actor, target: target}
}

func decodeLabel(t *testing.T, raw json.RawMessage) string {
	t.Helper()
	var st panelState
	require.NoError(t, json.Unmarshal(raw, &st))
	return st.Label
}

func TestOpenPushesCurrentState(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.sys.Open("s1", f.actor, f.target, panelKey))
	assert.True(t, f.sys.IsOpen("s1", f.target, panelKey))

	out := f.sys.Flush()
	require.Len(t, out, 1)
	assert.Equal(t, "s1", out[0].Session)
	assert.Equal(t, f.target, out[0].Target)
	assert.Equal(t, "", decodeLabel(t, out[0].State))
}

func TestReceiveRequiresOpenWindow(t *testing.T) {
	f := newFixture(t)
	err := f.sys.Receive("s1", f.target, panelKey, &renameMessage{Label: "x"})
	assert.ErrorIs(t, err, ErrNotOpen)

	require.NoError(t, f.sys.Open("s1", f.actor, f.target, panelKey))
	err = f.sys.Receive("s1", f.target, panelKey, &struct{}{})
	assert.ErrorIs(t, err, ErrUnknownMessage)
}

func TestMessagesUpdateStateForEveryViewer(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.sys.Open("s1", f.actor, f.target, panelKey))
	require.NoError(t, f.sys.Open("s2", f.actor, f.target, panelKey))
	f.sys.Flush()

	require.NoError(t, f.sys.Receive("s1", f.target, panelKey, &renameMessage{Label: "hello"}))
	out := f.sys.Flush()
	require.Len(t, out, 2)
	assert.Equal(t, []string{"s1", "s2"}, []string{out[0].Session, out[1].Session})
	assert.Equal(t, "hello", decodeLabel(t, out[1].State))

	// Identical content is not pushed twice.
	f.sys.SetUiState(f.target, panelKey, panelState{Label: "hello"})
	assert.Empty(t, f.sys.Flush())
}

func TestForceUiStateRepeatsIdenticalContent(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.sys.Open("s1", f.actor, f.target, panelKey))
	f.sys.Flush()

	f.sys.ForceUiState(f.target, panelKey, panelState{Label: ""})
	out := f.sys.Flush()
	require.Len(t, out, 1)
	assert.Equal(t, "", decodeLabel(t, out[0].State))

	// a later plain update with the same content stays de-duplicated
	f.sys.SetUiState(f.target, panelKey, panelState{Label: ""})
	assert.Empty(t, f.sys.Flush())
}

func TestMessagesForOtherKeysAreIgnored(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.sys.Open("s1", f.actor, f.target, otherKey))
	require.NoError(t, f.sys.Receive("s1", f.target, otherKey, &renameMessage{Label: "nope"}))
	p, _ := ecs.Get[panelComponent](f.w, f.target)
	assert.Empty(t, p.Label)
}

func TestDeletedTargetClosesWindows(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.sys.Open("s1", f.actor, f.target, panelKey))
	f.sys.Flush()

	f.w.DeleteEntity(f.target)
	out := f.sys.Flush()
	require.Len(t, out, 1)
	assert.True(t, out[0].Closed)
	assert.False(t, f.sys.IsOpen("s1", f.target, panelKey))
}

func TestCloseSession(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.sys.Open("s1", f.actor, f.target, panelKey))
	require.NoError(t, f.sys.Open("s1", f.actor, f.target, otherKey))
	f.sys.CloseSession("s1")
	assert.False(t, f.sys.IsOpen("s1", f.target, panelKey))
	assert.False(t, f.sys.IsOpen("s1", f.target, otherKey))
	assert.Empty(t, f.sys.Sessions(f.target, panelKey))

	assert.ErrorIs(t, f.sys.Open("s1", 999, f.target, panelKey), ErrNoActor)
	assert.ErrorIs(t, f.sys.Open("s1", f.actor, 999, panelKey), ecs.ErrEntityNotFound)
}

func TestInterfaces(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, []Key{panelKey}, f.sys.Interfaces(f.target))
	assert.Empty(t, f.sys.Interfaces(f.actor))
}
