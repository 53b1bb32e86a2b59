package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CodePnut/script-flow-sub001/internal/domain"
	"github.com/CodePnut/script-flow-sub001/internal/monitor"
	apperrors "github.com/CodePnut/script-flow-sub001/pkg/errors"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "scriptflow.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testTranscript(videoID, title, body string) *domain.Transcript {
	return &domain.Transcript{
		VideoID:  videoID,
		Title:    title,
		Channel:  "GopherCon",
		Language: "en",
		Duration: 900,
		Segments: []domain.TranscriptSegment{
			{Start: 0, End: 5, Text: body},
		},
	}
}

func TestStorePing(t *testing.T) {
	store := openTestStore(t)
	assert.NoError(t, store.Ping(context.Background()))
}

func TestSaveAndGetTranscript(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	want := testTranscript("abc123def45", "Understanding Goroutines", "goroutines are cheap")
	require.NoError(t, store.SaveTranscript(ctx, want))

	got, err := store.GetTranscript(ctx, "abc123def45")
	require.NoError(t, err)
	assert.Equal(t, want.VideoID, got.VideoID)
	assert.Equal(t, want.Title, got.Title)
	assert.Equal(t, want.Channel, got.Channel)
	assert.Equal(t, want.Segments, got.Segments)
	assert.False(t, got.CreatedAt.IsZero())
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestGetTranscriptNotFound(t *testing.T) {
	store := openTestStore(t)

	got, err := store.GetTranscript(context.Background(), "zzzzzzzzzzz")
	assert.Nil(t, got)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFound(err))
}

func TestSaveTranscriptUpsertPreservesCreatedAt(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first := testTranscript("abc123def45", "v1", "first pass")
	require.NoError(t, store.SaveTranscript(ctx, first))
	created := first.CreatedAt

	second := testTranscript("abc123def45", "v2", "second pass")
	second.CreatedAt = created
	require.NoError(t, store.SaveTranscript(ctx, second))

	got, err := store.GetTranscript(ctx, "abc123def45")
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Title)
	assert.Equal(t, created.Unix(), got.CreatedAt.Unix())
}

func TestSearchTranscripts(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveTranscript(ctx,
		testTranscript("aaaaaaaaaa1", "Understanding Goroutines", "goroutines goroutines everywhere")))
	require.NoError(t, store.SaveTranscript(ctx,
		testTranscript("bbbbbbbbbb2", "Intro to Channels", "a brief mention of goroutines")))
	require.NoError(t, store.SaveTranscript(ctx,
		testTranscript("cccccccccc3", "Rust Lifetimes", "no gophers here")))

	results, err := store.SearchTranscripts(ctx, "goroutines", 10)
	require.NoError(t, err)
	require.Len(t, results, 2)

	// The title match outranks the body-only match.
	assert.Equal(t, "aaaaaaaaaa1", results[0].VideoID)
	assert.Equal(t, "bbbbbbbbbb2", results[1].VideoID)
	assert.Greater(t, results[0].Score, results[1].Score)
	assert.Contains(t, results[1].Snippet, "goroutines")
}

func TestSearchTranscriptsEscapesLikeWildcards(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveTranscript(ctx,
		testTranscript("aaaaaaaaaa1", "Percent signs", "literal 100% match here")))
	require.NoError(t, store.SaveTranscript(ctx,
		testTranscript("bbbbbbbbbb2", "Other", "nothing relevant")))

	results, err := store.SearchTranscripts(ctx, "100%", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "aaaaaaaaaa1", results[0].VideoID)
}

func TestListRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"aaaaaaaaaa1", "bbbbbbbbbb2", "cccccccccc3"} {
		require.NoError(t, store.SaveTranscript(ctx, testTranscript(id, "t-"+id, "body")))
	}

	videos, err := store.ListRecent(ctx, 2, 0)
	require.NoError(t, err)
	assert.Len(t, videos, 2)

	rest, err := store.ListRecent(ctx, 2, 2)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}

func newSample(opType, hash string, durationMS float64, createdAt time.Time) monitor.Sample {
	return monitor.Sample{
		ID:            uuid.NewString(),
		OperationType: opType,
		DurationMS:    durationMS,
		Params:        map[string]any{"q": "goroutines"},
		ParamHash:     hash,
		CreatedAt:     createdAt,
	}
}

func TestInsertAndGroupSamples(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.InsertSample(ctx, newSample("transcript_search", "hash-a", 1200, now)))
	require.NoError(t, store.InsertSample(ctx, newSample("transcript_search", "hash-a", 1800, now)))
	require.NoError(t, store.InsertSample(ctx, newSample("video_list", "hash-b", 2500, now)))

	groups, err := store.SlowQueryGroups(ctx, 10)
	require.NoError(t, err)
	require.Len(t, groups, 2)

	// Ordered by average duration descending.
	assert.Equal(t, "video_list", groups[0].OperationType)
	assert.InDelta(t, 2500, groups[0].AverageMS, 0.001)
	assert.Equal(t, int64(1), groups[0].Count)

	assert.Equal(t, "transcript_search", groups[1].OperationType)
	assert.InDelta(t, 1500, groups[1].AverageMS, 0.001)
	assert.Equal(t, int64(2), groups[1].Count)
	assert.Equal(t, now.Unix(), groups[1].LastSeen.Unix())
}

func TestDeleteSamplesBefore(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, store.InsertSample(ctx, newSample("transcript_fetch", "h1", 1100, now.AddDate(0, 0, -40))))
	require.NoError(t, store.InsertSample(ctx, newSample("transcript_fetch", "h1", 1100, now.AddDate(0, 0, -35))))
	require.NoError(t, store.InsertSample(ctx, newSample("transcript_fetch", "h1", 1100, now)))

	deleted, err := store.DeleteSamplesBefore(ctx, now.AddDate(0, 0, -30))
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	groups, err := store.SlowQueryGroups(ctx, 10)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, int64(1), groups[0].Count)
}
