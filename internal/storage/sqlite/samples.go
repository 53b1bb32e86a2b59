package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/CodePnut/script-flow-sub001/internal/monitor"
)

// InsertSample persists one slow-query observation.
func (s *Store) InsertSample(ctx context.Context, sample monitor.Sample) error {
	params, err := json.Marshal(sample.Params)
	if err != nil {
		params = []byte("null")
	}
	_, err = s.db.ExecContext(ctx, `
INSERT INTO query_performance_logs (id, operation_type, duration_ms, params, param_hash, created_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		sample.ID, sample.OperationType, sample.DurationMS,
		string(params), sample.ParamHash, sample.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert performance sample: %w", err)
	}
	return nil
}

// SlowQueryGroups aggregates persisted samples by operation type and
// parameter hash, widest average durations first.
func (s *Store) SlowQueryGroups(ctx context.Context, limit int) ([]monitor.SlowQueryGroup, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT operation_type, param_hash, AVG(duration_ms), COUNT(*), MAX(created_at)
FROM query_performance_logs
GROUP BY operation_type, param_hash
ORDER BY AVG(duration_ms) DESC
LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("aggregate slow queries: %w", err)
	}
	defer rows.Close()

	var groups []monitor.SlowQueryGroup
	for rows.Next() {
		var g monitor.SlowQueryGroup
		var lastSeen int64
		if err := rows.Scan(&g.OperationType, &g.ParamHash, &g.AverageMS, &g.Count, &lastSeen); err != nil {
			return nil, fmt.Errorf("scan slow query group: %w", err)
		}
		g.LastSeen = time.Unix(lastSeen, 0).UTC()
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slow query groups: %w", err)
	}
	return groups, nil
}

// DeleteSamplesBefore removes samples older than cutoff and returns the
// number deleted.
func (s *Store) DeleteSamplesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM query_performance_logs WHERE created_at < ?", cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("delete old performance samples: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted samples: %w", err)
	}
	return deleted, nil
}
