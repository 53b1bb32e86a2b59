package monitor

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"go.uber.org/zap"
)

// How many groups to pull from storage before ranking. The store orders by
// average duration, the final ranking also weighs frequency, so fetch a
// wider window than the caller's limit.
const analysisFetchWindow = 200

// RankedSlowQuery is a slow-query group annotated with its severity score.
type RankedSlowQuery struct {
	OperationType string    `json:"operationType"`
	ParamHash     string    `json:"paramHash"`
	AverageMS     float64   `json:"averageDuration"`
	Count         int64     `json:"count"`
	LastSeen      time.Time `json:"lastSeen"`
	Score         float64   `json:"score"`
}

// Analysis is the slow-query diagnostics report.
type Analysis struct {
	Queries         []RankedSlowQuery `json:"queries"`
	Recommendations []string          `json:"recommendations"`
}

// severityScore ranks a group by avg * (1 + ln(count)): strictly increasing
// in both average duration and occurrence count, with duration dominating.
func severityScore(avgMS float64, count int64) float64 {
	return avgMS * (1 + math.Log(float64(count)))
}

// SlowQueryAnalysis returns the limit most severe slow-query groups with
// heuristic recommendations. On any storage failure it returns an empty
// list and a single fallback recommendation; it never returns an error.
func (m *Monitor) SlowQueryAnalysis(ctx context.Context, limit int) Analysis {
	if limit <= 0 {
		limit = 10
	}

	groups, err := m.store.SlowQueryGroups(ctx, analysisFetchWindow)
	if err != nil {
		m.logger.Warn("slow query analysis failed", zap.Error(err))
		return Analysis{
			Queries:         []RankedSlowQuery{},
			Recommendations: []string{"Slow query analysis is unavailable: could not read performance logs."},
		}
	}

	ranked := make([]RankedSlowQuery, 0, len(groups))
	for _, g := range groups {
		ranked = append(ranked, RankedSlowQuery{
			OperationType: g.OperationType,
			ParamHash:     g.ParamHash,
			AverageMS:     g.AverageMS,
			Count:         g.Count,
			LastSeen:      g.LastSeen,
			Score:         severityScore(g.AverageMS, g.Count),
		})
	}
	sort.Slice(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	return Analysis{
		Queries:         ranked,
		Recommendations: m.recommendations(ranked),
	}
}

// recommendations derives advice from the shape of the ranked groups.
func (m *Monitor) recommendations(ranked []RankedSlowQuery) []string {
	if len(ranked) == 0 {
		return []string{"No slow queries recorded. No action needed."}
	}

	thresholdMS := float64(m.slowThreshold().Milliseconds())

	var recs []string
	seen := make(map[string]bool)
	var totalCount int64
	for _, q := range ranked {
		totalCount += q.Count
	}

	for _, q := range ranked {
		if seen[q.OperationType] {
			continue
		}
		seen[q.OperationType] = true

		if q.AverageMS >= thresholdMS {
			recs = append(recs, fmt.Sprintf(
				"%q averages %.0fms, above the %.0fms slow threshold; consider adding an index or narrowing the query.",
				q.OperationType, q.AverageMS, thresholdMS))
		}
		// A single operation type dominating the sample volume is a
		// caching candidate even when its average is moderate.
		if totalCount >= 10 && q.Count*2 > totalCount {
			recs = append(recs, fmt.Sprintf(
				"%q accounts for %d of %d recorded slow samples; consider caching its results or batching callers.",
				q.OperationType, q.Count, totalCount))
		}
	}

	if len(recs) == 0 {
		recs = append(recs, "Slow query volume is low and evenly spread. No action needed.")
	}
	return recs
}
