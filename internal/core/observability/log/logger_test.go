package log

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   LevelDebug,
		"":        LevelInfo,
		"INFO":    LevelInfo,
		"warning": LevelWarn,
		"error":   LevelError,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestLoggerLevelRoundTrip(t *testing.T) {
	logger, err := NewWithOptions(Options{Level: LevelWarn, Encoding: "console", OutputPaths: []string{"stdout"}})
	require.NoError(t, err)
	assert.Equal(t, LevelWarn, logger.GetLevel())

	logger.SetLevel(LevelDebug)
	assert.Equal(t, LevelDebug, logger.GetLevel())

	scoped := logger.With(String("component", "test")).Named("sub")
	assert.Equal(t, LevelDebug, scoped.GetLevel())
}

func TestNopLoggerDiscards(t *testing.T) {
	logger := NewNop()
	logger.Info("ignored", Int("n", 1), Strings("tags", []string{"a"}))
	logger.Log(LevelError, "ignored", Error(assert.AnError))
}
