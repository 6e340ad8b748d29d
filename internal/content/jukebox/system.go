package jukebox

import (
	"fmt"
	"math"

	"github.com/zeusync/contentpack/internal/content/power"
	"github.com/zeusync/contentpack/internal/core/audio"
	"github.com/zeusync/contentpack/internal/core/ecs"
	"github.com/zeusync/contentpack/internal/core/fields"
	"github.com/zeusync/contentpack/internal/core/observability/log"
	"github.com/zeusync/contentpack/internal/core/prototype"
	"github.com/zeusync/contentpack/internal/core/ui"
)

const (
	// SelectDelay is how long the select lights stay on after a new pick.
	SelectDelay = 0.5
	// MaxDistance is how far the music carries.
	MaxDistance = 10
	// DefaultGain is the gain of a freshly built machine.
	DefaultGain = 0.5

	volumeTolerance = 1e-7
	// seek latency compensation, as a multiple of the actor's ping
	pingCompensation = 1.5
)

// Component is the per-machine playback state.
type Component struct {
	SelectedSongID string  `yaml:"selectedSongId"`
	Gain           float32 `yaml:"gain"`

	// AudioStream is the live stream entity, if any. It may go stale when the
	// stream finishes on its own.
	AudioStream ecs.EntityID `yaml:"-"`

	Selecting         bool    `yaml:"-"`
	SelectAccumulator float64 `yaml:"-"`
}

// System runs every jukebox in a world.
type System struct {
	w     *ecs.World
	audio *audio.System
	power *power.System
	ui    *ui.System
	log   log.Log
}

// NewSystem registers the jukebox component and wires its handlers.
func NewSystem(w *ecs.World, a *audio.System, p *power.System, u *ui.System, logger log.Log) (*System, error) {
	_, err := ecs.RegisterComponent[Component](w.Registry(), "Jukebox",
		ecs.WithFactory(func() *Component { return &Component{Gain: DefaultGain} }),
		ecs.WithFields(
			fields.Value("selectedSongId", func(c *Component) *string { return &c.SelectedSongID }),
			fields.Value("gain", func(c *Component) *float32 { return &c.Gain }),
			fields.Ref("audioStream", func(c *Component) *ecs.EntityID { return &c.AudioStream }),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("jukebox: %w", err)
	}
	s := &System{w: w, audio: a, power: p, ui: u, log: logger.Named("jukebox")}

	if err = s.subscribe(); err != nil {
		return nil, fmt.Errorf("jukebox: %w", err)
	}
	u.RegisterStateProvider(UiKey, func(target ecs.EntityID) (any, bool) {
		return s.State(target)
	})
	return s, nil
}

func (s *System) subscribe() error {
	return firstErr(
		ecs.SubscribeLifecycle(s.w, ecs.LifecycleInit, func(id ecs.EntityID, _ *Component) {
			if ecs.Has[power.ReceiverComponent](s.w, id) {
				s.updateVisual(id)
			}
		}),
		ecs.SubscribeLifecycle(s.w, ecs.LifecycleShutdown, func(_ ecs.EntityID, c *Component) {
			c.AudioStream = s.audio.Stop(c.AudioStream)
		}),
		ecs.SubscribeLocal(s.w, func(id ecs.EntityID, _ *Component, ev *power.ChangedEvent) {
			s.updateVisual(id)
			if !ev.Powered {
				s.Stop(id)
			}
		}),
		ui.Subscribe(s.ui, UiKey, func(id ecs.EntityID, _ *Component, m *ui.Received[SelectedMessage]) {
			s.Select(id, m.Message.SongID)
		}),
		ui.Subscribe(s.ui, UiKey, func(id ecs.EntityID, _ *Component, _ *ui.Received[PlayingMessage]) {
			s.Play(id)
		}),
		ui.Subscribe(s.ui, UiKey, func(id ecs.EntityID, _ *Component, _ *ui.Received[PauseMessage]) {
			s.Pause(id)
		}),
		ui.Subscribe(s.ui, UiKey, func(id ecs.EntityID, _ *Component, _ *ui.Received[StopMessage]) {
			s.Stop(id)
		}),
		ui.Subscribe(s.ui, UiKey, func(id ecs.EntityID, _ *Component, m *ui.Received[SetTimeMessage]) {
			s.SetTime(id, m.Actor, m.Message.SongTime)
		}),
		ui.Subscribe(s.ui, UiKey, func(id ecs.EntityID, _ *Component, m *ui.Received[VolumeChangedMessage]) {
			s.SetVolume(id, m.Message.Volume)
		}),
	)
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Play resumes a live stream, or starts the selected track from the top.
func (s *System) Play(id ecs.EntityID) {
	c, ok := ecs.Get[Component](s.w, id)
	if !ok {
		return
	}
	if _, live := s.audio.Stream(c.AudioStream); live {
		s.audio.SetState(c.AudioStream, audio.StatePlaying)
		s.w.Dirty(id)
		return
	}
	c.AudioStream = s.audio.Stop(c.AudioStream)
	s.startPlaying(id, c)
	s.w.Dirty(id)
}

// Pause pauses the live stream.
func (s *System) Pause(id ecs.EntityID) {
	c, ok := ecs.Get[Component](s.w, id)
	if !ok {
		return
	}
	s.audio.SetState(c.AudioStream, audio.StatePaused)
	s.w.Dirty(id)
}

// Stop stops and rewinds the live stream. The stream entity is kept so that
// a later Play resumes from the start.
func (s *System) Stop(id ecs.EntityID) {
	c, ok := ecs.Get[Component](s.w, id)
	if !ok {
		return
	}
	s.audio.SetState(c.AudioStream, audio.StateStopped)
	s.w.Dirty(id)
}

// SetTime seeks the live stream, compensating for the requesting actor's
// latency. Requests from entities without an actor are ignored.
func (s *System) SetTime(id, actor ecs.EntityID, songTime float32) {
	c, ok := ecs.Get[Component](s.w, id)
	if !ok {
		return
	}
	a, ok := ecs.Get[ecs.ActorComponent](s.w, actor)
	if !ok {
		return
	}
	offset := float64(a.PingMillis) * pingCompensation / 1000
	s.audio.SetPlaybackPosition(c.AudioStream, float64(songTime)+offset)
	s.w.Dirty(id)
}

// SetVolume applies gain, clamped to [0, 1]. Changes within float tolerance
// are ignored.
func (s *System) SetVolume(id ecs.EntityID, gain float32) {
	c, ok := ecs.Get[Component](s.w, id)
	if !ok {
		return
	}
	gain = min(max(gain, 0), 1)
	if math.Abs(float64(c.Gain-gain)) < volumeTolerance {
		return
	}
	c.Gain = gain
	s.audio.SetGain(c.AudioStream, gain)
	s.w.Dirty(id)
}

// Select picks songID. Picking the track that is already loaded toggles
// between playing and paused; any other pick restarts playback.
func (s *System) Select(id ecs.EntityID, songID string) {
	c, ok := ecs.Get[Component](s.w, id)
	if !ok {
		return
	}
	if stream, live := s.audio.Stream(c.AudioStream); live && c.SelectedSongID == songID {
		next := audio.StateStopped
		switch stream.State {
		case audio.StatePlaying:
			next = audio.StatePaused
		case audio.StatePaused:
			next = audio.StatePlaying
		}
		if next != audio.StateStopped {
			s.audio.SetState(c.AudioStream, next)
			s.endSelecting(id, c)
			s.w.Dirty(id)
			return
		}
	}

	if _, live := s.audio.Stream(c.AudioStream); live {
		s.audio.SetState(c.AudioStream, audio.StateStopped)
	}
	c.AudioStream = s.audio.Stop(c.AudioStream)
	c.SelectedSongID = songID
	s.w.SetAppearance(id, VisualKey, string(VisualSelect))
	c.Selecting = true
	c.SelectAccumulator = 0
	s.startPlaying(id, c)
	s.w.Dirty(id)
}

func (s *System) startPlaying(id ecs.EntityID, c *Component) {
	if c.SelectedSongID == "" {
		return
	}
	track, ok := prototype.Index[*Track](s.w.Prototypes(), c.SelectedSongID)
	if !ok {
		s.log.Debug("unknown track", log.String("entity", id.String()), log.String("song", c.SelectedSongID))
		return
	}
	params := audio.DefaultParams().
		WithVolume(audio.GainToVolume(c.Gain)).
		WithMaxDistance(MaxDistance)
	stream, err := s.audio.PlayPvs(track.Path, id, params)
	if err != nil {
		s.log.Warn("start track", log.String("entity", id.String()), log.String("song", track.ID), log.Error(err))
		return
	}
	c.AudioStream = stream
}

// Update ends the select lights once SelectDelay has passed.
func (s *System) Update(dt float64) {
	ecs.Each(s.w, func(id ecs.EntityID, c *Component) {
		if !c.Selecting {
			return
		}
		c.SelectAccumulator += dt
		if c.SelectAccumulator < SelectDelay {
			return
		}
		s.endSelecting(id, c)
		s.w.Dirty(id)
	})
}

// endSelecting drops the select lights so the status follows the stream.
func (s *System) endSelecting(id ecs.EntityID, c *Component) {
	if !c.Selecting {
		return
	}
	c.SelectAccumulator = 0
	c.Selecting = false
	s.updateVisual(id)
}

func (s *System) updateVisual(id ecs.EntityID) {
	v := VisualOn
	if !s.power.IsPowered(id) {
		v = VisualOff
	}
	s.w.SetAppearance(id, VisualKey, string(v))
}

// Status derives the displayed playback state.
func (s *System) Status(id ecs.EntityID) Status {
	c, ok := ecs.Get[Component](s.w, id)
	if !ok {
		return StatusStopped
	}
	if c.Selecting {
		return StatusSelecting
	}
	stream, live := s.audio.Stream(c.AudioStream)
	if !live {
		return StatusStopped
	}
	switch stream.State {
	case audio.StatePlaying:
		return StatusPlaying
	case audio.StatePaused:
		return StatusPaused
	default:
		return StatusStopped
	}
}

// Songs lists every loaded track.
func (s *System) Songs() []Song {
	tracks := prototype.Enumerate[*Track](s.w.Prototypes())
	out := make([]Song, 0, len(tracks))
	for _, t := range tracks {
		out = append(out, Song{ID: t.ID, Representation: t.Representation()})
	}
	return out
}

// State builds the window snapshot of id.
func (s *System) State(id ecs.EntityID) (State, bool) {
	c, ok := ecs.Get[Component](s.w, id)
	if !ok {
		return State{}, false
	}
	st := State{
		SelectedSongID: c.SelectedSongID,
		Gain:           c.Gain,
		Status:         s.Status(id),
		Powered:        s.power.IsPowered(id),
		Songs:          s.Songs(),
	}
	if track, ok := prototype.Index[*Track](s.w.Prototypes(), c.SelectedSongID); ok {
		st.Author = track.Author
		st.Name = track.Name
		st.Length = s.audio.Length(track.Path).Seconds()
	}
	if stream, live := s.audio.Stream(c.AudioStream); live {
		st.Position = stream.PlaybackPosition
	}
	return st, true
}
