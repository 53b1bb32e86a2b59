package cache

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/CodePnut/script-flow-sub001/internal/config"
	"github.com/CodePnut/script-flow-sub001/internal/domain"
	"github.com/CodePnut/script-flow-sub001/internal/observability"
	apperrors "github.com/CodePnut/script-flow-sub001/pkg/errors"
)

// Service is the typed, fail-soft cache for the three resource kinds.
//
// Error policy: a cache failure is never a request failure. Unavailability
// of the remote store is a transparent miss; a failed call on a live store
// is recorded in the error counter; neither ever reaches the caller. The
// client may be nil, which behaves as a permanently empty cache.
type Service struct {
	client    Client
	metrics   *Metrics
	logger    *zap.Logger
	collector *observability.Collector // optional prometheus mirror

	mu            sync.RWMutex
	transcriptTTL time.Duration
	videoTTL      time.Duration
	searchTTL     time.Duration
	prefix        string
}

// NewService builds a cache service. metrics must be non-nil; client and
// collector may be nil (no remote cache / no prometheus mirror).
func NewService(client Client, metrics *Metrics, cfg config.Cache, logger *zap.Logger, collector *observability.Collector) *Service {
	return &Service{
		client:        client,
		metrics:       metrics,
		logger:        logger,
		collector:     collector,
		transcriptTTL: cfg.TranscriptTTL,
		videoTTL:      cfg.VideoTTL,
		searchTTL:     cfg.SearchTTL,
		prefix:        cfg.KeyPrefix,
	}
}

// ApplyTunables swaps in reloaded TTLs without a restart.
func (s *Service) ApplyTunables(cfg config.Cache) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transcriptTTL = cfg.TranscriptTTL
	s.videoTTL = cfg.VideoTTL
	s.searchTTL = cfg.SearchTTL
}

func (s *Service) ttls() (transcript, video, search time.Duration) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.transcriptTTL, s.videoTTL, s.searchTTL
}

// GetTranscript returns the cached transcript for a video, or (nil, false)
// on a miss. It never returns an error.
func (s *Service) GetTranscript(ctx context.Context, videoID string) (*domain.Transcript, bool) {
	return lookup[domain.Transcript](ctx, s, TranscriptKey(s.prefix, videoID))
}

// SetTranscript stores a transcript under its 24h-class TTL. Failures are
// swallowed.
func (s *Service) SetTranscript(ctx context.Context, videoID string, t *domain.Transcript) {
	ttl, _, _ := s.ttls()
	s.store(ctx, TranscriptKey(s.prefix, videoID), t, ttl)
}

// GetVideoMetadata returns the cached metadata view for a video, or
// (nil, false) on a miss.
func (s *Service) GetVideoMetadata(ctx context.Context, videoID string) (*domain.VideoMetadata, bool) {
	return lookup[domain.VideoMetadata](ctx, s, VideoKey(s.prefix, videoID))
}

// SetVideoMetadata stores a metadata view under its 12h-class TTL.
func (s *Service) SetVideoMetadata(ctx context.Context, videoID string, v *domain.VideoMetadata) {
	_, ttl, _ := s.ttls()
	s.store(ctx, VideoKey(s.prefix, videoID), v, ttl)
}

// GetSearchResults returns cached results for a query, or (nil, false) on a
// miss.
func (s *Service) GetSearchResults(ctx context.Context, query string) ([]domain.SearchResult, bool) {
	res, ok := lookup[[]domain.SearchResult](ctx, s, SearchKey(s.prefix, query))
	if !ok {
		return nil, false
	}
	return *res, true
}

// SetSearchResults stores results for a query under the short search TTL.
func (s *Service) SetSearchResults(ctx context.Context, query string, results []domain.SearchResult) {
	_, _, ttl := s.ttls()
	s.store(ctx, SearchKey(s.prefix, query), results, ttl)
}

// Invalidate evicts both the transcript and the video metadata entries for
// a video id. The two keys form a consistency group: the metadata view is
// derived from the transcript record, so updating either must drop both.
func (s *Service) Invalidate(ctx context.Context, videoID string) {
	if s.client == nil {
		return
	}
	err := s.client.Delete(ctx, TranscriptKey(s.prefix, videoID), VideoKey(s.prefix, videoID))
	if err != nil {
		s.logger.Debug("cache invalidate failed", zap.String("videoId", videoID), zap.Error(err))
	}
}

// InvalidateSearchResults evicts every cached search result set. Called
// after any mutation that could change search relevance.
func (s *Service) InvalidateSearchResults(ctx context.Context) {
	s.deleteByPattern(ctx, s.prefix+searchNamespace+"*")
}

// Flush evicts every key this service owns.
func (s *Service) Flush(ctx context.Context) {
	s.deleteByPattern(ctx, s.prefix+"*")
}

func (s *Service) deleteByPattern(ctx context.Context, pattern string) {
	if s.client == nil {
		return
	}
	keys, err := s.client.ScanKeys(ctx, pattern)
	if err != nil {
		s.logger.Debug("cache scan failed", zap.String("pattern", pattern), zap.Error(err))
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := s.client.Delete(ctx, keys...); err != nil {
		s.logger.Debug("cache bulk delete failed", zap.Int("keys", len(keys)), zap.Error(err))
	}
}

// Metrics returns the current counter snapshot.
func (s *Service) Metrics() Snapshot {
	return s.metrics.Snapshot()
}

// ResetMetrics zeroes the counters.
func (s *Service) ResetMetrics() {
	s.metrics.Reset()
}

// Stats reports aggregate information about the remote store.
type Stats struct {
	KeyCount    int    `json:"keyCount"`
	MemoryUsage string `json:"memoryUsage,omitempty"`
	Err         string `json:"error,omitempty"`
}

// Stats counts the service's keys and extracts memory usage from the store
// diagnostics. Any failure degrades to a zero count with the error message
// attached; it never returns an error.
func (s *Service) Stats(ctx context.Context) Stats {
	if s.client == nil {
		return Stats{Err: "cache disabled"}
	}

	keys, err := s.client.ScanKeys(ctx, s.prefix+"*")
	if err != nil {
		return Stats{Err: err.Error()}
	}

	stats := Stats{KeyCount: len(keys)}
	if info, err := s.client.Info(ctx); err == nil {
		stats.MemoryUsage = parseMemoryUsage(info)
	}
	return stats
}

// parseMemoryUsage pulls the human-readable used-memory figure out of a
// Redis INFO memory section.
func parseMemoryUsage(info string) string {
	for _, line := range strings.Split(info, "\n") {
		if rest, ok := strings.CutPrefix(line, "used_memory_human:"); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}

// lookup is the shared read path. Every resolution records latency;
// unavailability counts as a miss, everything else that fails counts as an
// error. Methods on Service cannot be generic, hence the package function.
func lookup[T any](ctx context.Context, s *Service, key string) (*T, bool) {
	start := time.Now()

	if s.client == nil {
		s.recordMiss(time.Since(start))
		return nil, false
	}

	raw, found, err := s.client.Get(ctx, key)
	if err != nil {
		if apperrors.IsUnavailable(err) {
			s.recordMiss(time.Since(start))
			return nil, false
		}
		s.logger.Debug("cache get failed", zap.String("key", key), zap.Error(err))
		s.recordError(time.Since(start))
		return nil, false
	}
	if !found {
		s.recordMiss(time.Since(start))
		return nil, false
	}

	var value T
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		s.logger.Warn("cache entry corrupt", zap.String("key", key), zap.Error(err))
		s.recordError(time.Since(start))
		return nil, false
	}

	s.recordHit(time.Since(start))
	return &value, true
}

// store is the shared write path. Serialization and store failures are
// logged and swallowed; a nil client is a silent no-op.
func (s *Service) store(ctx context.Context, key string, value any, ttl time.Duration) {
	if s.client == nil {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("cache marshal failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.client.Set(ctx, key, string(data), ttl); err != nil {
		s.logger.Debug("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

func (s *Service) recordHit(latency time.Duration) {
	s.metrics.Hit(latency)
	if s.collector != nil {
		s.collector.CacheHits.Inc()
	}
}

func (s *Service) recordMiss(latency time.Duration) {
	s.metrics.Miss(latency)
	if s.collector != nil {
		s.collector.CacheMisses.Inc()
	}
}

func (s *Service) recordError(latency time.Duration) {
	s.metrics.Error(latency)
	if s.collector != nil {
		s.collector.CacheErrors.Inc()
	}
}
