package computer

import "time"

// DefaultBlink is the default visible and hidden span of the caret.
const DefaultBlink = 500 * time.Millisecond

// Caret is the blinking input cursor. It keeps its own clock so a renderer
// only has to feed it frame times.
type Caret struct {
	visible, hidden time.Duration
	enabled         bool
	acc             time.Duration
}

func NewCaret() *Caret {
	return &Caret{visible: DefaultBlink, hidden: DefaultBlink, enabled: true}
}

// SetDurations sets the visible and hidden spans. Both are kept at one
// millisecond or more.
func (c *Caret) SetDurations(visible, hidden time.Duration) {
	c.visible = max(visible.Truncate(time.Millisecond), time.Millisecond)
	c.hidden = max(hidden.Truncate(time.Millisecond), time.Millisecond)
}

func (c *Caret) Durations() (visible, hidden time.Duration) {
	return c.visible, c.hidden
}

// SetEnabled starts or stops blinking. Starting restarts the cycle; a
// stopped caret is always shown.
func (c *Caret) SetEnabled(enabled bool) {
	if enabled && !c.enabled {
		c.acc = 0
	}
	c.enabled = enabled
}

func (c *Caret) Enabled() bool { return c.enabled }

// Reset restarts the cycle in its visible phase.
func (c *Caret) Reset() { c.acc = 0 }

// Advance moves the cycle forward by dt.
func (c *Caret) Advance(dt time.Duration) {
	if !c.enabled || dt <= 0 {
		return
	}
	c.acc = (c.acc + dt) % (c.visible + c.hidden)
}

// Visible reports whether the caret is drawn this frame.
func (c *Caret) Visible() bool {
	if !c.enabled {
		return true
	}
	return c.acc%(c.visible+c.hidden) < c.visible
}
