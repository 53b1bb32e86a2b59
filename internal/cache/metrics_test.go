package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.Hit(2 * time.Millisecond)
	m.Hit(4 * time.Millisecond)
	m.Miss(1 * time.Millisecond)
	m.Error(3 * time.Millisecond)

	snap := m.Snapshot()
	assert.Equal(t, int64(2), snap.Hits)
	assert.Equal(t, int64(1), snap.Misses)
	assert.Equal(t, int64(1), snap.Errors)
	// Errors are tracked separately; requests are hits plus misses.
	assert.Equal(t, int64(3), snap.TotalRequests)
	assert.InDelta(t, 100.0*2/3, snap.HitRate, 0.0001)
	assert.InDelta(t, 2.5, snap.AverageLatencyMS, 0.01)
}

func TestMetricsEmptySnapshot(t *testing.T) {
	snap := NewMetrics().Snapshot()
	assert.Zero(t, snap.TotalRequests)
	assert.Zero(t, snap.HitRate, "hit rate over zero requests is zero, not NaN")
	assert.Zero(t, snap.AverageLatencyMS)
}

func TestMetricsConcurrentUpdates(t *testing.T) {
	m := NewMetrics()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.Hit(time.Millisecond)
				m.Miss(time.Millisecond)
			}
		}()
	}
	wg.Wait()

	snap := m.Snapshot()
	assert.Equal(t, int64(800), snap.Hits)
	assert.Equal(t, int64(800), snap.Misses)
	assert.InDelta(t, 50.0, snap.HitRate, 0.0001)
}
