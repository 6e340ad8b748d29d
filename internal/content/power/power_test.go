package power

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/contentpack/internal/core/ecs"
	"github.com/zeusync/contentpack/internal/core/observability/log"
)

func TestSetPoweredRaisesOnChange(t *testing.T) {
	w := ecs.NewWorld(log.NewNop(), nil, nil)
	sys, err := NewSystem(w, log.NewNop())
	require.NoError(t, err)

	bare, err := w.Spawn("", ecs.Nullspace())
	require.NoError(t, err)
	assert.True(t, sys.IsPowered(bare))
	assert.ErrorIs(t, sys.SetPowered(bare, false), ecs.ErrComponentMissing)

	machine, err := w.Spawn("", ecs.Nullspace())
	require.NoError(t, err)
	_, err = ecs.Add[ReceiverComponent](w, machine)
	require.NoError(t, err)
	assert.True(t, sys.IsPowered(machine))

	var seen []bool
	require.NoError(t, ecs.SubscribeLocal(w, func(_ ecs.EntityID, _ *ReceiverComponent, ev *ChangedEvent) {
		seen = append(seen, ev.Powered)
	}))

	require.NoError(t, sys.SetPowered(machine, false))
	require.NoError(t, sys.SetPowered(machine, false))
	require.NoError(t, sys.SetPowered(machine, true))
	assert.Equal(t, []bool{false, true}, seen)
	assert.True(t, sys.IsPowered(machine))
}
