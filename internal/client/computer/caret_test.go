package computer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCaretBlinks(t *testing.T) {
	c := NewCaret()
	assert.True(t, c.Visible())

	c.Advance(499 * time.Millisecond)
	assert.True(t, c.Visible())
	c.Advance(time.Millisecond)
	assert.False(t, c.Visible())
	c.Advance(500 * time.Millisecond)
	assert.True(t, c.Visible())

	c.Advance(2750 * time.Millisecond)
	assert.False(t, c.Visible())
	c.Reset()
	assert.True(t, c.Visible())
}

func TestCaretDisabledIsShown(t *testing.T) {
	c := NewCaret()
	c.Advance(600 * time.Millisecond)
	assert.False(t, c.Visible())

	c.SetEnabled(false)
	assert.True(t, c.Visible())
	c.Advance(600 * time.Millisecond)
	assert.True(t, c.Visible())

	c.SetEnabled(true)
	assert.True(t, c.Visible())
}

func TestCaretDurationsHaveFloor(t *testing.T) {
	c := NewCaret()
	c.SetDurations(0, -time.Second)
	visible, hidden := c.Durations()
	assert.Equal(t, time.Millisecond, visible)
	assert.Equal(t, time.Millisecond, hidden)

	c.SetDurations(100*time.Millisecond, 300*time.Millisecond)
	c.Advance(150 * time.Millisecond)
	assert.False(t, c.Visible())
	c.Advance(250 * time.Millisecond)
	assert.True(t, c.Visible())
}
