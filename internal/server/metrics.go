package server

import (
	"sync/atomic"
	"time"
)

// Metrics counts server traffic. Every method is safe for concurrent use.
type Metrics struct {
	sessions   atomic.Uint64
	requests   atomic.Uint64
	failures   atomic.Uint64
	pushes     atomic.Uint64
	dropped    atomic.Uint64
	avgLatency atomic.Int64
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	SessionsAccepted uint64        `json:"sessionsAccepted"`
	Requests         uint64        `json:"requests"`
	Failures         uint64        `json:"failures"`
	Pushes           uint64        `json:"pushes"`
	DroppedSessions  uint64        `json:"droppedSessions"`
	AvgLatency       time.Duration `json:"avgLatency"`
}

func (m *Metrics) recordSession() { m.sessions.Add(1) }

// recordRequest counts one handled request and folds its latency into an
// exponential moving average.
func (m *Metrics) recordRequest(latency time.Duration, err error) {
	m.requests.Add(1)
	if err != nil {
		m.failures.Add(1)
	}
	for {
		cur := m.avgLatency.Load()
		next := int64(float64(cur)*0.9 + float64(latency)*0.1)
		if cur == 0 {
			next = int64(latency)
		}
		if m.avgLatency.CompareAndSwap(cur, next) {
			return
		}
	}
}

func (m *Metrics) recordPush(ok bool) {
	if ok {
		m.pushes.Add(1)
		return
	}
	m.dropped.Add(1)
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		SessionsAccepted: m.sessions.Load(),
		Requests:         m.requests.Load(),
		Failures:         m.failures.Load(),
		Pushes:           m.pushes.Load(),
		DroppedSessions:  m.dropped.Load(),
		AvgLatency:       time.Duration(m.avgLatency.Load()),
	}
}
