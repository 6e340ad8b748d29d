// Package audio keeps playback bookkeeping for positional audio streams.
//
// Streams are entities carrying an AudioComponent, parented to the entity
// they play from. Nothing is mixed: the server tracks state and position and
// clients render the sound.
package audio

import (
	"math"
)

// State is a stream's playback state.
type State uint8

const (
	StateStopped State = iota
	StatePlaying
	StatePaused
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	default:
		return "unknown"
	}
}

// MinVolume is the volume, in decibels, reported for a silent gain.
const MinVolume float32 = -1000

// GainToVolume converts a linear gain to decibels.
func GainToVolume(gain float32) float32 {
	if gain <= 0 {
		return MinVolume
	}
	v := float32(10 * math.Log10(float64(gain)))
	if v < MinVolume {
		return MinVolume
	}
	return v
}

// VolumeToGain converts decibels to a linear gain.
func VolumeToGain(volume float32) float32 {
	if volume <= MinVolume {
		return 0
	}
	return float32(math.Pow(10, float64(volume)/10))
}

// Params are the playback parameters of a new stream.
type Params struct {
	// Volume in decibels.
	Volume      float32
	MaxDistance float32
	Loop        bool
}

// DefaultParams plays at unity gain audible up to 15 tiles.
func DefaultParams() Params {
	return Params{Volume: 0, MaxDistance: 15}
}

func (p Params) WithVolume(v float32) Params      { p.Volume = v; return p }
func (p Params) WithMaxDistance(d float32) Params { p.MaxDistance = d; return p }
func (p Params) WithLoop(loop bool) Params        { p.Loop = loop; return p }

// Component is attached to every stream entity.
type Component struct {
	FileName    string
	State       State
	Volume      float32
	MaxDistance float32
	Loop        bool
	// PlaybackPosition and Length are in seconds.
	PlaybackPosition float64
	Length           float64
}

// Gain returns the stream volume as a linear gain.
func (c *Component) Gain() float32 { return VolumeToGain(c.Volume) }
