// Package jukebox is the client side of the jukebox window: it mirrors the
// snapshots the server pushes, extrapolates the playhead between them and
// turns button presses into window messages.
package jukebox

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/zeusync/contentpack/internal/client/bui"
	"github.com/zeusync/contentpack/internal/content/jukebox"
	"github.com/zeusync/contentpack/internal/core/i18n"
)

// BUI is one open jukebox window.
type BUI struct {
	bui.Base
	loc i18n.Localizer
	now func() time.Time

	mu       sync.Mutex
	state    jukebox.State
	received time.Time
	hasState bool
}

// Option configures a BUI.
type Option func(*BUI)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(b *BUI) { b.now = now }
}

func New(entity uint64, sender bui.Sender, loc i18n.Localizer, opts ...Option) *BUI {
	b := &BUI{
		Base: bui.NewBase(entity, jukebox.UiKey, sender),
		loc:  loc,
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// UpdateState replaces the mirrored snapshot with raw.
func (b *BUI) UpdateState(raw json.RawMessage) error {
	var st jukebox.State
	if err := json.Unmarshal(raw, &st); err != nil {
		return fmt.Errorf("decode jukebox state: %w", err)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = st
	b.received = b.now()
	b.hasState = true
	return nil
}

// State returns the last snapshot.
func (b *BUI) State() (jukebox.State, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state, b.hasState
}

// Position is the playhead in seconds, advanced by the time passed since the
// last snapshot while playing and clamped to the track length.
func (b *BUI) Position() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.position()
}

func (b *BUI) position() float64 {
	pos := b.state.Position
	if b.state.Status == jukebox.StatusPlaying {
		pos += b.now().Sub(b.received).Seconds()
	}
	if b.state.Length > 0 && pos > b.state.Length {
		pos = b.state.Length
	}
	return max(pos, 0)
}

// TogglePlay sends Pause while playing and Playing otherwise.
func (b *BUI) TogglePlay(ctx context.Context) error {
	b.mu.Lock()
	playing := b.state.Status == jukebox.StatusPlaying
	b.mu.Unlock()
	if playing {
		return b.SendMessage(ctx, &jukebox.PauseMessage{})
	}
	return b.SendMessage(ctx, &jukebox.PlayingMessage{})
}

func (b *BUI) Stop(ctx context.Context) error {
	return b.SendMessage(ctx, &jukebox.StopMessage{})
}

func (b *BUI) Select(ctx context.Context, songID string) error {
	return b.SendMessage(ctx, &jukebox.SelectedMessage{SongID: songID})
}

// SetTime moves the local playhead at once and asks the server to seek.
func (b *BUI) SetTime(ctx context.Context, seconds float64) error {
	b.mu.Lock()
	seconds = max(seconds, 0)
	if b.state.Length > 0 {
		seconds = min(seconds, b.state.Length)
	}
	b.state.Position = seconds
	b.received = b.now()
	b.mu.Unlock()
	return b.SendMessage(ctx, &jukebox.SetTimeMessage{SongTime: float32(seconds)})
}

// SetVolume sends a gain in [0, 1].
func (b *BUI) SetVolume(ctx context.Context, gain float32) error {
	gain = min(max(gain, 0), 1)
	return b.SendMessage(ctx, &jukebox.VolumeChangedMessage{Volume: gain})
}

// View is what a renderer draws.
type View struct {
	Title      string
	Selected   string
	PlayLabel  string
	StopLabel  string
	Time       string
	Volume     string
	Progress   float64
	Powered    bool
	Status     jukebox.Status
	Songs      []jukebox.Song
	SelectedID string
}

// View renders the current snapshot with localized labels.
func (b *BUI) View() View {
	b.mu.Lock()
	defer b.mu.Unlock()
	st := b.state
	pos := b.position()

	v := View{
		Title:      b.loc.GetString("jukebox-menu-title"),
		StopLabel:  b.loc.GetString("jukebox-menu-buttonstop"),
		Time:       b.loc.GetString("jukebox-menu-time", FormatTime(pos), FormatTime(st.Length)),
		Volume:     b.loc.GetString("jukebox-menu-volume", int(st.Gain*100+0.5)),
		Powered:    st.Powered,
		Status:     st.Status,
		Songs:      st.Songs,
		SelectedID: st.SelectedSongID,
	}
	if st.SelectedSongID == "" {
		v.Selected = b.loc.GetString("jukebox-menu-nothing-selected")
	} else {
		author := st.Author
		if author == "" {
			author = b.loc.GetString("jukebox-unknown-artist")
		}
		v.Selected = b.loc.GetString("jukebox-menu-selectedsong", author+" - "+st.Name)
	}
	if st.Status == jukebox.StatusPlaying {
		v.PlayLabel = b.loc.GetString("jukebox-menu-buttonpause")
	} else {
		v.PlayLabel = b.loc.GetString("jukebox-menu-buttonplay")
	}
	if st.Length > 0 {
		v.Progress = pos / st.Length
	}
	return v
}

// FormatTime renders seconds as m:ss.
func FormatTime(seconds float64) string {
	total := max(int(seconds), 0)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
