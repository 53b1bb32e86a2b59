package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/CodePnut/script-flow-sub001/internal/cache"
	"github.com/CodePnut/script-flow-sub001/internal/config"
	"github.com/CodePnut/script-flow-sub001/internal/domain"
	"github.com/CodePnut/script-flow-sub001/internal/monitor"
	apperrors "github.com/CodePnut/script-flow-sub001/pkg/errors"
)

// memClient is a minimal in-memory cache.Client for handler tests.
type memClient struct {
	data map[string]string
}

func newMemClient() *memClient { return &memClient{data: make(map[string]string)} }

func (c *memClient) Get(ctx context.Context, key string) (string, bool, error) {
	val, ok := c.data[key]
	return val, ok, nil
}

func (c *memClient) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	c.data[key] = value
	return nil
}

func (c *memClient) Delete(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(c.data, key)
	}
	return nil
}

func (c *memClient) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	prefix := strings.TrimSuffix(pattern, "*")
	var keys []string
	for key := range c.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (c *memClient) Ping(ctx context.Context) error           { return nil }
func (c *memClient) Info(ctx context.Context) (string, error) { return "", nil }

// nullSampleStore satisfies monitor.SampleStore for tests that don't care
// about persistence.
type nullSampleStore struct{}

func (nullSampleStore) InsertSample(ctx context.Context, s monitor.Sample) error { return nil }
func (nullSampleStore) SlowQueryGroups(ctx context.Context, limit int) ([]monitor.SlowQueryGroup, error) {
	return nil, nil
}
func (nullSampleStore) DeleteSamplesBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}
func (nullSampleStore) Ping(ctx context.Context) error { return nil }

type fakeRepo struct {
	transcripts map[string]*domain.Transcript
	getCalls    int
	searchCalls int
	saved       []*domain.Transcript
	saveErr     error

	searchResults []domain.SearchResult
	listResults   []domain.VideoMetadata
}

func (r *fakeRepo) SaveTranscript(ctx context.Context, t *domain.Transcript) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saved = append(r.saved, t)
	if r.transcripts == nil {
		r.transcripts = make(map[string]*domain.Transcript)
	}
	r.transcripts[t.VideoID] = t
	return nil
}

func (r *fakeRepo) GetTranscript(ctx context.Context, videoID string) (*domain.Transcript, error) {
	r.getCalls++
	if t, ok := r.transcripts[videoID]; ok {
		return t, nil
	}
	return nil, apperrors.NewNotFound("transcript not found: " + videoID)
}

func (r *fakeRepo) SearchTranscripts(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	r.searchCalls++
	return r.searchResults, nil
}

func (r *fakeRepo) ListRecent(ctx context.Context, limit, offset int) ([]domain.VideoMetadata, error) {
	return r.listResults, nil
}

type fakeTranscriber struct {
	transcript *domain.Transcript
	err        error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, videoURL string) (*domain.Transcript, error) {
	return f.transcript, f.err
}

type fakeMetadata struct {
	meta *domain.VideoMetadata
	err  error
}

func (f *fakeMetadata) FetchMetadata(ctx context.Context, videoID string) (*domain.VideoMetadata, error) {
	return f.meta, f.err
}

type testEnv struct {
	client  *memClient
	cache   *cache.Service
	monitor *monitor.Monitor
	repo    *fakeRepo
}

func newTestEnv() *testEnv {
	client := newMemClient()
	logger := zap.NewNop()
	svc := cache.NewService(client, cache.NewMetrics(), config.Cache{
		TranscriptTTL: time.Hour,
		VideoTTL:      time.Hour,
		SearchTTL:     time.Minute,
	}, logger, nil)
	mon := monitor.New(nullSampleStore{}, config.Monitor{
		SlowQueryThreshold: time.Second,
		PersistTimeout:     time.Second,
	}, logger, nil)
	return &testEnv{client: client, cache: svc, monitor: mon, repo: &fakeRepo{}}
}

func requestWithParam(method, target, param, value string) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(param, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

const testVideoID = "abc123def45"

func storedTranscript() *domain.Transcript {
	return &domain.Transcript{
		VideoID:  testVideoID,
		Title:    "Understanding Goroutines",
		Channel:  "GopherCon",
		Language: "en",
		Duration: 900,
		Segments: []domain.TranscriptSegment{{Start: 0, End: 3, Text: "hello"}},
	}
}

func TestGetTranscript(t *testing.T) {
	env := newTestEnv()
	env.repo.transcripts = map[string]*domain.Transcript{testVideoID: storedTranscript()}
	h := NewTranscriptHandler(env.cache, env.repo, &fakeTranscriber{}, env.monitor, zap.NewNop())

	t.Run("store miss then cache hit", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.GetTranscript(rec, requestWithParam(http.MethodGet, "/transcripts/"+testVideoID, "videoID", testVideoID))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, env.repo.getCalls)

		var got domain.Transcript
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "Understanding Goroutines", got.Title)

		// The first response backfilled the cache; the store is not hit again.
		rec = httptest.NewRecorder()
		h.GetTranscript(rec, requestWithParam(http.MethodGet, "/transcripts/"+testVideoID, "videoID", testVideoID))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, env.repo.getCalls)
	})

	t.Run("invalid id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.GetTranscript(rec, requestWithParam(http.MethodGet, "/transcripts/nope", "videoID", "nope"))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.GetTranscript(rec, requestWithParam(http.MethodGet, "/transcripts/zzzzzzzzzz9", "videoID", "zzzzzzzzzz9"))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestTranscribe(t *testing.T) {
	t.Run("success persists and invalidates", func(t *testing.T) {
		env := newTestEnv()
		ctx := context.Background()

		// Pre-seed stale cache entries that ingest must evict.
		stale := storedTranscript()
		stale.Title = "old title"
		env.cache.SetTranscript(ctx, testVideoID, stale)
		env.cache.SetSearchResults(ctx, "goroutines", []domain.SearchResult{{VideoID: testVideoID}})

		h := NewTranscriptHandler(env.cache, env.repo,
			&fakeTranscriber{transcript: storedTranscript()}, env.monitor, zap.NewNop())

		body := strings.NewReader(`{"url":"https://www.youtube.com/watch?v=abc123def45"}`)
		req := httptest.NewRequest(http.MethodPost, "/transcribe", body)
		rec := httptest.NewRecorder()
		h.Transcribe(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		require.Len(t, env.repo.saved, 1)

		_, ok := env.cache.GetTranscript(ctx, testVideoID)
		assert.False(t, ok, "stale transcript entry must be evicted")
		_, ok = env.cache.GetSearchResults(ctx, "goroutines")
		assert.False(t, ok, "search results must be evicted on ingest")
	})

	t.Run("malformed body", func(t *testing.T) {
		env := newTestEnv()
		h := NewTranscriptHandler(env.cache, env.repo, &fakeTranscriber{}, env.monitor, zap.NewNop())

		rec := httptest.NewRecorder()
		h.Transcribe(rec, httptest.NewRequest(http.MethodPost, "/transcribe", strings.NewReader("{")))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("non-youtube url", func(t *testing.T) {
		env := newTestEnv()
		h := NewTranscriptHandler(env.cache, env.repo, &fakeTranscriber{}, env.monitor, zap.NewNop())

		body := strings.NewReader(`{"url":"https://example.com/video/42"}`)
		rec := httptest.NewRecorder()
		h.Transcribe(rec, httptest.NewRequest(http.MethodPost, "/transcribe", body))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("transcriber unavailable", func(t *testing.T) {
		env := newTestEnv()
		h := NewTranscriptHandler(env.cache, env.repo,
			&fakeTranscriber{err: apperrors.NewUnavailable("transcriber down", nil)}, env.monitor, zap.NewNop())

		body := strings.NewReader(`{"url":"https://www.youtube.com/watch?v=abc123def45"}`)
		rec := httptest.NewRecorder()
		h.Transcribe(rec, httptest.NewRequest(http.MethodPost, "/transcribe", body))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestSearch(t *testing.T) {
	env := newTestEnv()
	env.repo.searchResults = []domain.SearchResult{
		{VideoID: testVideoID, Title: "Understanding Goroutines", Score: 11},
	}
	h := NewSearchHandler(env.cache, env.repo, env.monitor, zap.NewNop())

	t.Run("store then cache", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Search(rec, httptest.NewRequest(http.MethodGet, "/search?q=goroutines", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, env.repo.searchCalls)
		assert.Contains(t, rec.Body.String(), "Understanding Goroutines")

		rec = httptest.NewRecorder()
		h.Search(rec, httptest.NewRequest(http.MethodGet, "/search?q=goroutines", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, env.repo.searchCalls, "repeat query must be served from cache")
	})

	t.Run("missing query", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Search(rec, httptest.NewRequest(http.MethodGet, "/search", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("query too short", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.Search(rec, httptest.NewRequest(http.MethodGet, "/search?q=g", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetVideo(t *testing.T) {
	t.Run("derived from transcript with thumbnail", func(t *testing.T) {
		env := newTestEnv()
		env.repo.transcripts = map[string]*domain.Transcript{testVideoID: storedTranscript()}
		fetcher := &fakeMetadata{meta: &domain.VideoMetadata{
			VideoID:      testVideoID,
			ThumbnailURL: "https://i.ytimg.com/vi/abc123def45/hqdefault.jpg",
		}}
		h := NewVideoHandler(env.cache, env.repo, fetcher, env.monitor, zap.NewNop())

		rec := httptest.NewRecorder()
		h.GetVideo(rec, requestWithParam(http.MethodGet, "/videos/"+testVideoID, "videoID", testVideoID))
		require.Equal(t, http.StatusOK, rec.Code)

		var got domain.VideoMetadata
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "Understanding Goroutines", got.Title)
		assert.Equal(t, fetcher.meta.ThumbnailURL, got.ThumbnailURL)
	})

	t.Run("no transcript falls back to remote metadata", func(t *testing.T) {
		env := newTestEnv()
		fetcher := &fakeMetadata{meta: &domain.VideoMetadata{VideoID: testVideoID, Title: "remote title"}}
		h := NewVideoHandler(env.cache, env.repo, fetcher, env.monitor, zap.NewNop())

		rec := httptest.NewRecorder()
		h.GetVideo(rec, requestWithParam(http.MethodGet, "/videos/"+testVideoID, "videoID", testVideoID))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "remote title")
	})

	t.Run("unknown everywhere", func(t *testing.T) {
		env := newTestEnv()
		fetcher := &fakeMetadata{err: apperrors.NewNotFound("no such video")}
		h := NewVideoHandler(env.cache, env.repo, fetcher, env.monitor, zap.NewNop())

		rec := httptest.NewRecorder()
		h.GetVideo(rec, requestWithParam(http.MethodGet, "/videos/"+testVideoID, "videoID", testVideoID))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestListVideos(t *testing.T) {
	env := newTestEnv()
	env.repo.listResults = []domain.VideoMetadata{{VideoID: testVideoID, Title: "t"}}
	h := NewVideoHandler(env.cache, env.repo, &fakeMetadata{}, env.monitor, zap.NewNop())

	rec := httptest.NewRecorder()
	h.ListVideos(rec, httptest.NewRequest(http.MethodGet, "/videos?limit=500", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got struct {
		Videos []domain.VideoMetadata `json:"videos"`
		Limit  int                    `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got.Videos, 1)
	assert.Equal(t, 100, got.Limit, "limit is clamped")
}

func TestAdminEndpoints(t *testing.T) {
	env := newTestEnv()
	h := NewAdminHandler(env.cache, env.monitor, zap.NewNop())

	t.Run("cache metrics", func(t *testing.T) {
		env.cache.GetTranscript(context.Background(), testVideoID) // one miss

		rec := httptest.NewRecorder()
		h.CacheMetrics(rec, httptest.NewRequest(http.MethodGet, "/admin/cache/metrics", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var snap cache.Snapshot
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
		assert.Equal(t, int64(1), snap.Misses)
	})

	t.Run("reset cache metrics", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ResetCacheMetrics(rec, httptest.NewRequest(http.MethodPost, "/admin/cache/metrics/reset", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Zero(t, env.cache.Metrics().Misses)
	})

	t.Run("db stats", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.DatabaseStats(rec, httptest.NewRequest(http.MethodGet, "/admin/db/stats", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "totalQueries")
	})

	t.Run("slow queries", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.SlowQueries(rec, httptest.NewRequest(http.MethodGet, "/admin/db/slow-queries?limit=5", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "recommendations")
	})

	t.Run("cleanup", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.CleanupLogs(rec, httptest.NewRequest(http.MethodPost, "/admin/db/cleanup?days=7", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"maxAgeDays":7`)
	})
}

func TestHealth(t *testing.T) {
	env := newTestEnv()

	t.Run("healthy with cache", func(t *testing.T) {
		h := NewHealthHandler(env.client, env.monitor, "test")
		rec := httptest.NewRecorder()
		h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"status":"healthy"`)
	})

	t.Run("degraded without cache", func(t *testing.T) {
		h := NewHealthHandler(nil, env.monitor, "test")
		rec := httptest.NewRecorder()
		h.Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"cache":{"status":"degraded"`)
	})
}
