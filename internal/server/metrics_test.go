package server

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	var m Metrics
	m.recordSession()
	m.recordRequest(10*time.Millisecond, nil)
	m.recordRequest(20*time.Millisecond, errors.New("boom"))
	m.recordPush(true)
	m.recordPush(false)

	snap := m.Snapshot()
	assert.Equal(t, uint64(1), snap.SessionsAccepted)
	assert.Equal(t, uint64(2), snap.Requests)
	assert.Equal(t, uint64(1), snap.Failures)
	assert.Equal(t, uint64(1), snap.Pushes)
	assert.Equal(t, uint64(1), snap.DroppedSessions)
	// first sample seeds the average, the second moves it a tenth of the way
	assert.Equal(t, 11*time.Millisecond, snap.AvgLatency)
}
