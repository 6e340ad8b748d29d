package audio

import (
	"errors"
	"fmt"
	"time"

	"github.com/zeusync/contentpack/internal/core/ecs"
	"github.com/zeusync/contentpack/internal/core/observability/log"
)

var ErrUnknownAsset = errors.New("unknown audio asset")

// FinishedEvent is raised on a stream entity that reached its end.
type FinishedEvent struct{}

// System owns every audio stream in a world.
type System struct {
	w   *ecs.World
	lib Library
	log log.Log
}

// NewSystem registers the audio component on w.
func NewSystem(w *ecs.World, lib Library, logger log.Log) (*System, error) {
	if lib == nil {
		lib = Manifest{}
	}
	if _, err := ecs.RegisterComponent[Component](w.Registry(), "Audio", ecs.Excluded()); err != nil {
		return nil, fmt.Errorf("audio: %w", err)
	}
	return &System{w: w, lib: lib, log: logger.Named("audio")}, nil
}

// Length returns the duration of the asset at path, zero when unknown.
func (s *System) Length(path string) time.Duration {
	d, _ := s.lib.Length(path)
	return d
}

// PlayPvs starts a stream of path attached to source, audible to players near
// it. It returns the new stream entity.
func (s *System) PlayPvs(path string, source ecs.EntityID, p Params) (ecs.EntityID, error) {
	length, ok := s.lib.Length(path)
	if !ok {
		return ecs.InvalidEntity, fmt.Errorf("%w: %s", ErrUnknownAsset, path)
	}
	if !s.w.Exists(source) {
		return ecs.InvalidEntity, fmt.Errorf("play %s: source %s: %w", path, source, ecs.ErrEntityNotFound)
	}
	stream, err := s.w.Spawn("", ecs.EntityCoordinates(source, 0, 0))
	if err != nil {
		return ecs.InvalidEntity, fmt.Errorf("play %s: %w", path, err)
	}
	comp, err := ecs.Add[Component](s.w, stream)
	if err != nil {
		s.w.DeleteEntity(stream)
		return ecs.InvalidEntity, fmt.Errorf("play %s: %w", path, err)
	}
	comp.FileName = path
	comp.State = StatePlaying
	comp.Volume = p.Volume
	comp.MaxDistance = p.MaxDistance
	comp.Loop = p.Loop
	comp.Length = length.Seconds()

	s.log.Debug("stream started",
		log.String("stream", stream.String()),
		log.String("source", source.String()),
		log.String("path", path))
	return stream, nil
}

// Stream returns the live stream component. Streams that were deleted, or
// ids that never named a stream, report false.
func (s *System) Stream(stream ecs.EntityID) (*Component, bool) {
	if !stream.Valid() {
		return nil, false
	}
	return ecs.Get[Component](s.w, stream)
}

// Stop deletes the stream and returns InvalidEntity so callers can clear
// their reference in one assignment.
func (s *System) Stop(stream ecs.EntityID) ecs.EntityID {
	if _, ok := s.Stream(stream); ok {
		s.w.DeleteEntity(stream)
	}
	return ecs.InvalidEntity
}

// SetState changes the playback state. Stopping rewinds the stream.
func (s *System) SetState(stream ecs.EntityID, state State) {
	c, ok := s.Stream(stream)
	if !ok {
		return
	}
	if state == StateStopped {
		c.PlaybackPosition = 0
	}
	if c.State == state {
		return
	}
	c.State = state
	s.w.Dirty(stream)
}

// SetGain applies a linear gain.
func (s *System) SetGain(stream ecs.EntityID, gain float32) {
	c, ok := s.Stream(stream)
	if !ok {
		return
	}
	c.Volume = GainToVolume(gain)
	s.w.Dirty(stream)
}

// SetPlaybackPosition seeks to pos seconds, clamped to the stream length.
func (s *System) SetPlaybackPosition(stream ecs.EntityID, pos float64) {
	c, ok := s.Stream(stream)
	if !ok {
		return
	}
	c.PlaybackPosition = min(max(pos, 0), c.Length)
	s.w.Dirty(stream)
}

// Update advances every playing stream by dt seconds. Streams that reach
// their end wrap when looping, otherwise they raise FinishedEvent and are
// deleted.
func (s *System) Update(dt float64) {
	var finished []ecs.EntityID
	ecs.Each(s.w, func(id ecs.EntityID, c *Component) {
		if c.State != StatePlaying {
			return
		}
		c.PlaybackPosition += dt
		if c.PlaybackPosition < c.Length {
			return
		}
		if c.Loop && c.Length > 0 {
			for c.PlaybackPosition >= c.Length {
				c.PlaybackPosition -= c.Length
			}
			return
		}
		finished = append(finished, id)
	})
	for _, id := range finished {
		if err := ecs.RaiseLocalEvent(s.w, id, &FinishedEvent{}); err != nil {
			s.log.Warn("finished handlers failed", log.String("stream", id.String()), log.Error(err))
		}
		s.w.DeleteEntity(id)
	}
}
