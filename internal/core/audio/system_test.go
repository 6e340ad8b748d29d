package audio

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zeusync/contentpack/internal/core/ecs"
	"github.com/zeusync/contentpack/internal/core/observability/log"
)

const track = "/Audio/test.ogg"

func newTestSystem(t *testing.T) (*ecs.World, *System, ecs.EntityID) {
	t.Helper()
	w := ecs.NewWorld(log.NewNop(), nil, nil)
	sys, err := NewSystem(w, Manifest{track: 10 * time.Second}, log.NewNop())
	require.NoError(t, err)
	source, err := w.Spawn("", ecs.MapCoordinates(1, 0, 0))
	require.NoError(t, err)
	return w, sys, source
}

func TestGainVolumeConversion(t *testing.T) {
	assert.Equal(t, MinVolume, GainToVolume(0))
	assert.Equal(t, MinVolume, GainToVolume(-1))
	assert.InDelta(t, 0, GainToVolume(1), 1e-6)
	assert.InDelta(t, -3.0103, GainToVolume(0.5), 1e-3)
	assert.InDelta(t, 0.5, VolumeToGain(GainToVolume(0.5)), 1e-6)
	assert.Equal(t, float32(0), VolumeToGain(MinVolume))
}

func TestPlayAndStop(t *testing.T) {
	w, sys, source := newTestSystem(t)

	stream, err := sys.PlayPvs(track, source, DefaultParams().WithVolume(GainToVolume(0.5)).WithMaxDistance(10))
	require.NoError(t, err)
	c, ok := sys.Stream(stream)
	require.True(t, ok)
	assert.Equal(t, StatePlaying, c.State)
	assert.Equal(t, float32(10), c.MaxDistance)
	assert.InDelta(t, 10.0, c.Length, 1e-9)
	assert.InDelta(t, 0.5, c.Gain(), 1e-6)

	xf, ok := w.Transform(stream)
	require.True(t, ok)
	assert.Equal(t, source, xf.Parent)

	assert.Equal(t, ecs.InvalidEntity, sys.Stop(stream))
	_, ok = sys.Stream(stream)
	assert.False(t, ok)
	assert.Equal(t, ecs.InvalidEntity, sys.Stop(stream), "stopping twice is harmless")
}

func TestPlayUnknownAsset(t *testing.T) {
	_, sys, source := newTestSystem(t)
	_, err := sys.PlayPvs("/Audio/missing.ogg", source, DefaultParams())
	assert.ErrorIs(t, err, ErrUnknownAsset)
	_, err = sys.PlayPvs(track, 999, DefaultParams())
	assert.ErrorIs(t, err, ecs.ErrEntityNotFound)
}

func TestStateAndSeek(t *testing.T) {
	_, sys, source := newTestSystem(t)
	stream, err := sys.PlayPvs(track, source, DefaultParams())
	require.NoError(t, err)

	sys.SetPlaybackPosition(stream, 4)
	c, _ := sys.Stream(stream)
	assert.InDelta(t, 4, c.PlaybackPosition, 1e-9)
	sys.SetPlaybackPosition(stream, 99)
	assert.InDelta(t, 10, c.PlaybackPosition, 1e-9)

	sys.SetState(stream, StatePaused)
	assert.Equal(t, StatePaused, c.State)
	sys.SetState(stream, StateStopped)
	assert.Equal(t, StateStopped, c.State)
	assert.Zero(t, c.PlaybackPosition)

	sys.SetGain(stream, 0)
	assert.Equal(t, MinVolume, c.Volume)
}

func TestUpdateFinishesAndLoops(t *testing.T) {
	w, sys, source := newTestSystem(t)
	once, err := sys.PlayPvs(track, source, DefaultParams())
	require.NoError(t, err)
	looped, err := sys.PlayPvs(track, source, DefaultParams().WithLoop(true))
	require.NoError(t, err)
	paused, err := sys.PlayPvs(track, source, DefaultParams())
	require.NoError(t, err)
	sys.SetState(paused, StatePaused)

	var finished []ecs.EntityID
	require.NoError(t, ecs.SubscribeLocal(w, func(id ecs.EntityID, _ *Component, _ *FinishedEvent) {
		finished = append(finished, id)
	}))

	sys.Update(6)
	sys.Update(6)

	assert.Equal(t, []ecs.EntityID{once}, finished)
	assert.False(t, w.Exists(once))

	c, ok := sys.Stream(looped)
	require.True(t, ok)
	assert.InDelta(t, 2, c.PlaybackPosition, 1e-9)

	p, ok := sys.Stream(paused)
	require.True(t, ok)
	assert.Zero(t, p.PlaybackPosition)
}

func TestLoadManifest(t *testing.T) {
	m, err := LoadManifest(strings.NewReader(`
- path: /Audio/a.ogg
  length: 3m2s
- path: /Audio/b.ogg
  length: 45s
`))
	require.NoError(t, err)
	d, ok := m.Length("/Audio/a.ogg")
	require.True(t, ok)
	assert.Equal(t, 3*time.Minute+2*time.Second, d)

	_, err = LoadManifest(strings.NewReader("- path: /a\n  length: 0s\n"))
	assert.Error(t, err)
	_, err = LoadManifest(strings.NewReader("- path: /a\n  length: 1s\n- path: /a\n  length: 1s\n"))
	assert.Error(t, err)
}
