// Package monitor wraps durable-store operations with timing
// instrumentation: it keeps per-operation-type aggregates in memory,
// persists slow samples for later analysis, and answers health and
// diagnostics queries.
//
// The wrapped operation's own errors always propagate unchanged; the
// monitor's persistence and analysis failures are always absorbed.
package monitor

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/CodePnut/script-flow-sub001/internal/config"
	"github.com/CodePnut/script-flow-sub001/internal/observability"
)

// Sample is one persisted observation of a slow operation.
type Sample struct {
	ID            string         `json:"id"`
	OperationType string         `json:"operationType"`
	DurationMS    float64        `json:"duration"`
	Params        map[string]any `json:"params,omitempty"`
	ParamHash     string         `json:"paramHash"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// SlowQueryGroup is an aggregate over persisted samples sharing an
// operation type and parameter shape.
type SlowQueryGroup struct {
	OperationType string    `json:"operationType"`
	ParamHash     string    `json:"paramHash"`
	AverageMS     float64   `json:"averageDuration"`
	Count         int64     `json:"count"`
	LastSeen      time.Time `json:"lastSeen"`
}

// SampleStore is the durable backend for slow-query samples. It is consumed
// only for persistence and analysis, never for the monitored operation
// itself.
type SampleStore interface {
	InsertSample(ctx context.Context, sample Sample) error
	SlowQueryGroups(ctx context.Context, limit int) ([]SlowQueryGroup, error)
	DeleteSamplesBefore(ctx context.Context, cutoff time.Time) (int64, error)
	Ping(ctx context.Context) error
}

type typeAggregate struct {
	count   int64
	totalMS float64
}

// Monitor accumulates query timing aggregates and persists slow samples.
type Monitor struct {
	store     SampleStore
	logger    *zap.Logger
	collector *observability.Collector // optional prometheus mirror

	persistTimeout time.Duration

	mu        sync.Mutex
	perType   map[string]*typeAggregate
	total     typeAggregate
	threshold time.Duration

	// pending tracks in-flight sample writes so Close can drain them.
	pending sync.WaitGroup
}

// New builds a monitor over the given sample store.
func New(store SampleStore, cfg config.Monitor, logger *zap.Logger, collector *observability.Collector) *Monitor {
	return &Monitor{
		store:          store,
		logger:         logger,
		collector:      collector,
		persistTimeout: cfg.PersistTimeout,
		perType:        make(map[string]*typeAggregate),
		threshold:      cfg.SlowQueryThreshold,
	}
}

// SetSlowQueryThreshold swaps in a reloaded threshold without a restart.
func (m *Monitor) SetSlowQueryThreshold(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.threshold = d
}

func (m *Monitor) slowThreshold() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.threshold
}

// Execute runs fn under timing instrumentation. Aggregates are updated on
// both the success and the failure path, since a failing query still
// consumed time; the error itself is returned unchanged. A duration at or
// above the slow threshold triggers a detached, best-effort sample write
// that the caller never waits on.
//
// Methods cannot be generic, so this is a package-level function.
func Execute[T any](ctx context.Context, m *Monitor, operationType string, params map[string]any, fn func(context.Context) (T, error)) (T, error) {
	start := time.Now()
	result, err := fn(ctx)
	elapsed := time.Since(start)

	m.record(operationType, elapsed, err == nil)

	if elapsed >= m.slowThreshold() {
		m.persistSample(operationType, elapsed, params)
	}

	return result, err
}

func (m *Monitor) record(operationType string, elapsed time.Duration, success bool) {
	ms := float64(elapsed.Microseconds()) / 1000

	m.mu.Lock()
	agg, ok := m.perType[operationType]
	if !ok {
		agg = &typeAggregate{}
		m.perType[operationType] = agg
	}
	agg.count++
	agg.totalMS += ms
	m.total.count++
	m.total.totalMS += ms
	m.mu.Unlock()

	if m.collector != nil {
		status := "ok"
		if !success {
			status = "error"
		}
		m.collector.DBOperations.WithLabelValues(operationType, status).Inc()
		m.collector.DBDuration.WithLabelValues(operationType).Observe(elapsed.Seconds())
	}
}

// persistSample writes the sample from a detached goroutine with its own
// timeout. Failures are logged and dropped.
func (m *Monitor) persistSample(operationType string, elapsed time.Duration, params map[string]any) {
	sample := Sample{
		ID:            uuid.NewString(),
		OperationType: operationType,
		DurationMS:    float64(elapsed.Microseconds()) / 1000,
		Params:        params,
		ParamHash:     hashParams(operationType, params),
		CreatedAt:     time.Now().UTC(),
	}

	m.pending.Add(1)
	go func() {
		defer m.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), m.persistTimeout)
		defer cancel()
		if err := m.store.InsertSample(ctx, sample); err != nil {
			m.logger.Warn("failed to persist slow query sample",
				zap.String("operationType", operationType),
				zap.Float64("durationMs", sample.DurationMS),
				zap.Error(err),
			)
		}
	}()
}

// Close drains in-flight sample writes. Call on shutdown.
func (m *Monitor) Close() {
	m.pending.Wait()
}

// hashParams derives a stable grouping key from an operation type and its
// parameter snapshot.
func hashParams(operationType string, params map[string]any) string {
	data, err := json.Marshal(params)
	if err != nil {
		data = nil
	}
	sum := md5.Sum(append([]byte(operationType+":"), data...))
	return fmt.Sprintf("%x", sum)[:16]
}

// TypeStats is the per-operation-type aggregate exposed by Stats.
type TypeStats struct {
	Count     int64   `json:"count"`
	AverageMS float64 `json:"averageDuration"`
}

// DatabaseStats is the in-memory aggregate snapshot.
type DatabaseStats struct {
	TotalQueries       int64                `json:"totalQueries"`
	AverageQueryTimeMS float64              `json:"averageQueryTime"`
	QueryTypeBreakdown map[string]TypeStats `json:"queryTypeBreakdown"`
}

// Stats returns a snapshot of the aggregates. Pure read.
func (m *Monitor) Stats() DatabaseStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	breakdown := make(map[string]TypeStats, len(m.perType))
	for op, agg := range m.perType {
		breakdown[op] = TypeStats{
			Count:     agg.count,
			AverageMS: agg.totalMS / float64(agg.count),
		}
	}

	stats := DatabaseStats{
		TotalQueries:       m.total.count,
		QueryTypeBreakdown: breakdown,
	}
	if m.total.count > 0 {
		stats.AverageQueryTimeMS = m.total.totalMS / float64(m.total.count)
	}
	return stats
}

// Reset clears all in-memory aggregates, per-type and global.
func (m *Monitor) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.perType = make(map[string]*typeAggregate)
	m.total = typeAggregate{}
}

// HealthStatus reports durable store liveness.
type HealthStatus struct {
	Connected    bool          `json:"connected"`
	ResponseTime time.Duration `json:"responseTime"`
	Err          string        `json:"error,omitempty"`
}

// CheckHealth issues a trivial round-trip query against the store and
// measures its latency.
func (m *Monitor) CheckHealth(ctx context.Context) HealthStatus {
	start := time.Now()
	if err := m.store.Ping(ctx); err != nil {
		return HealthStatus{Connected: false, Err: err.Error()}
	}
	return HealthStatus{Connected: true, ResponseTime: time.Since(start)}
}

// CleanupSamples deletes persisted samples older than maxAgeDays and
// returns the number removed. Best-effort: failures log and return 0.
func (m *Monitor) CleanupSamples(ctx context.Context, maxAgeDays int) int64 {
	cutoff := time.Now().UTC().AddDate(0, 0, -maxAgeDays)
	deleted, err := m.store.DeleteSamplesBefore(ctx, cutoff)
	if err != nil {
		m.logger.Warn("performance log cleanup failed",
			zap.Int("maxAgeDays", maxAgeDays),
			zap.Error(err),
		)
		return 0
	}
	return deleted
}
