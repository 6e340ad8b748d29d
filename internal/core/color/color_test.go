package color

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromName(t *testing.T) {
	c, ok := FromName(" Red ")
	require.True(t, ok)
	assert.Equal(t, color.RGBA{R: 0xff, A: 0xff}, c)

	_, ok = FromName("notacolour")
	assert.False(t, ok)
}

func TestFromHex(t *testing.T) {
	cases := map[string]color.RGBA{
		"#fff":      {R: 0xff, G: 0xff, B: 0xff, A: 0xff},
		"#00ff00":   {G: 0xff, A: 0xff},
		"#11223344": {R: 0x11, G: 0x22, B: 0x33, A: 0x44},
	}
	for in, want := range cases {
		got, err := FromHex(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"fff", "#ff", "#gggggg", "#12345"} {
		_, err := FromHex(bad)
		assert.ErrorIs(t, err, ErrInvalidHex, bad)
	}
}

func TestParseAndHex(t *testing.T) {
	c, ok := Parse("lime")
	require.True(t, ok)
	assert.Equal(t, "#00FF00", Hex(c))

	c, ok = Parse("#11223344")
	require.True(t, ok)
	assert.Equal(t, "#11223344", Hex(c))

	_, ok = Parse("blurple")
	assert.False(t, ok)
	assert.Equal(t, "#FFFFFF", Hex(White))
}
