package cache

import (
	"sync/atomic"
	"time"
)

// Metrics tracks process-lifetime cache counters. It is constructed
// explicitly and injected into the Service so tests can use independent
// instances instead of sharing a package-level singleton.
//
// Counters use atomics: request handlers run on concurrent goroutines and
// increments must not lose updates.
type Metrics struct {
	hits   atomic.Int64
	misses atomic.Int64
	errors atomic.Int64

	// Running latency mean for get operations, tracked as a sum of
	// microseconds plus an observation count.
	latencyMicros atomic.Int64
	latencyCount  atomic.Int64
}

// NewMetrics returns a zero-valued metrics instance.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// Hit records a cache hit and its observed latency.
func (m *Metrics) Hit(latency time.Duration) {
	m.hits.Add(1)
	m.observeLatency(latency)
}

// Miss records a cache miss and its observed latency.
func (m *Metrics) Miss(latency time.Duration) {
	m.misses.Add(1)
	m.observeLatency(latency)
}

// Error records a failed cache operation and its observed latency. Errors
// are counted separately from hits and misses.
func (m *Metrics) Error(latency time.Duration) {
	m.errors.Add(1)
	m.observeLatency(latency)
}

func (m *Metrics) observeLatency(latency time.Duration) {
	m.latencyMicros.Add(latency.Microseconds())
	m.latencyCount.Add(1)
}

// Reset zeroes all counters. Used by monitoring tooling and test setup.
func (m *Metrics) Reset() {
	m.hits.Store(0)
	m.misses.Store(0)
	m.errors.Store(0)
	m.latencyMicros.Store(0)
	m.latencyCount.Store(0)
}

// Snapshot is a point-in-time copy of the counters with derived values.
type Snapshot struct {
	Hits             int64   `json:"hits"`
	Misses           int64   `json:"misses"`
	Errors           int64   `json:"errors"`
	TotalRequests    int64   `json:"totalRequests"`
	HitRate          float64 `json:"hitRate"`
	AverageLatencyMS float64 `json:"averageLatency"`
}

// Snapshot returns the current counter values. HitRate is a percentage,
// defined as 0 when no requests have been observed.
func (m *Metrics) Snapshot() Snapshot {
	hits := m.hits.Load()
	misses := m.misses.Load()
	total := hits + misses

	snap := Snapshot{
		Hits:          hits,
		Misses:        misses,
		Errors:        m.errors.Load(),
		TotalRequests: total,
	}
	if total > 0 {
		snap.HitRate = float64(hits) / float64(total) * 100
	}
	if count := m.latencyCount.Load(); count > 0 {
		snap.AverageLatencyMS = float64(m.latencyMicros.Load()) / float64(count) / 1000
	}
	return snap
}
