// Package jukebox implements the music machine: track prototypes, the
// per-entity playback state machine and the messages its window exchanges.
package jukebox

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zeusync/contentpack/internal/core/protocol"
	"github.com/zeusync/contentpack/internal/core/prototype"
	"github.com/zeusync/contentpack/internal/core/ui"
)

// UiKey identifies the jukebox window.
const UiKey ui.Key = "jukebox"

// TrackKind is the `type:` discriminator of track prototypes.
const TrackKind = "jukebox"

// VisualKey is the appearance key clients read the machine's lights from.
const VisualKey = "jukebox.visual"

// Visual is the machine's lit state.
type Visual string

const (
	VisualOn     Visual = "on"
	VisualOff    Visual = "off"
	VisualSelect Visual = "select"
)

// Status is the playback state shown to users.
type Status string

const (
	StatusStopped   Status = "stopped"
	StatusPlaying   Status = "playing"
	StatusPaused    Status = "paused"
	StatusSelecting Status = "selecting"
)

const unknownArtist = "Unknown Artist"

var ErrInvalidTrack = errors.New("invalid jukebox track")

// Track is one song the machine can play.
//
//	# prototypes/jukebox.yml
//	- type: jukebox
//	  id: NeonDreams
//	  author: Synthwave Ensemble
//	  name: Neon Dreams
//	  path: /Audio/Jukebox/neon_dreams.ogg
type Track struct {
	ID     string `yaml:"id"`
	Author string `yaml:"author"`
	Name   string `yaml:"name"`
	Path   string `yaml:"path"`
}

func (t *Track) PrototypeID() string { return t.ID }

func (t *Track) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("%w: %s has no name", ErrInvalidTrack, t.ID)
	}
	if strings.TrimSpace(t.Path) == "" {
		return fmt.Errorf("%w: %s has no path", ErrInvalidTrack, t.ID)
	}
	return nil
}

// Representation is the label a track is listed under.
func (t *Track) Representation() string {
	return SongRepresentation(t.Author, t.Name)
}

// SongRepresentation joins author and name, naming an unknown artist when
// author is empty.
func SongRepresentation(author, name string) string {
	if author == "" {
		author = unknownArtist
	}
	return author + " - " + name
}

// RegisterPrototypeKinds teaches m to load track prototypes.
func RegisterPrototypeKinds(m *prototype.Manager) error {
	return prototype.RegisterKind[Track](m, TrackKind)
}

// SelectedMessage asks the machine to play SongID, or to toggle pause when it
// is already playing it.
type SelectedMessage struct {
	SongID string `json:"songId"`
}

// PlayingMessage resumes or restarts playback.
type PlayingMessage struct{}

// PauseMessage pauses playback.
type PauseMessage struct{}

// StopMessage stops playback and rewinds.
type StopMessage struct{}

// SetTimeMessage seeks to SongTime seconds.
type SetTimeMessage struct {
	SongTime float32 `json:"songTime"`
}

// VolumeChangedMessage sets the linear gain.
type VolumeChangedMessage struct {
	Volume float32 `json:"volume"`
}

// Song is one entry of the selectable track list.
type Song struct {
	ID             string `json:"id"`
	Representation string `json:"representation"`
}

// State is the window snapshot pushed to viewers.
type State struct {
	SelectedSongID string  `json:"selectedSongId,omitempty"`
	Author         string  `json:"author,omitempty"`
	Name           string  `json:"name,omitempty"`
	Length         float64 `json:"length"`
	Position       float64 `json:"position"`
	Gain           float32 `json:"gain"`
	Status         Status  `json:"status"`
	Powered        bool    `json:"powered"`
	Songs          []Song  `json:"songs"`
}

// RegisterMessages makes the window messages travel over the wire.
func RegisterMessages(r *protocol.Registry) error {
	return errors.Join(
		protocol.Register[SelectedMessage](r, "jukebox.selected"),
		protocol.Register[PlayingMessage](r, "jukebox.playing"),
		protocol.Register[PauseMessage](r, "jukebox.pause"),
		protocol.Register[StopMessage](r, "jukebox.stop"),
		protocol.Register[SetTimeMessage](r, "jukebox.set-time"),
		protocol.Register[VolumeChangedMessage](r, "jukebox.volume"),
	)
}
