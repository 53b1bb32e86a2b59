package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/CodePnut/script-flow-sub001/internal/domain"
	apperrors "github.com/CodePnut/script-flow-sub001/pkg/errors"
)

// SaveTranscript inserts or replaces the transcript for a video. The
// original creation time is preserved on update.
func (s *Store) SaveTranscript(ctx context.Context, t *domain.Transcript) error {
	segments, err := json.Marshal(t.Segments)
	if err != nil {
		return fmt.Errorf("marshal segments: %w", err)
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	_, err = s.db.ExecContext(ctx, `
INSERT INTO transcripts (video_id, title, channel, language, duration_seconds, segments, full_text, summary, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(video_id) DO UPDATE SET
	title = excluded.title,
	channel = excluded.channel,
	language = excluded.language,
	duration_seconds = excluded.duration_seconds,
	segments = excluded.segments,
	full_text = excluded.full_text,
	summary = excluded.summary,
	updated_at = excluded.updated_at`,
		t.VideoID, t.Title, t.Channel, t.Language, t.Duration,
		string(segments), t.Text(), t.Summary,
		t.CreatedAt.Unix(), t.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("save transcript %s: %w", t.VideoID, err)
	}
	return nil
}

// GetTranscript fetches the transcript for a video id. Returns a NotFound
// application error when no record exists.
func (s *Store) GetTranscript(ctx context.Context, videoID string) (*domain.Transcript, error) {
	row := s.db.QueryRowContext(ctx, `
SELECT video_id, title, channel, language, duration_seconds, segments, summary, created_at, updated_at
FROM transcripts WHERE video_id = ?`, videoID)

	var (
		t         domain.Transcript
		segments  string
		createdAt int64
		updatedAt int64
	)
	err := row.Scan(&t.VideoID, &t.Title, &t.Channel, &t.Language, &t.Duration,
		&segments, &t.Summary, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFound("transcript not found: " + videoID)
	}
	if err != nil {
		return nil, fmt.Errorf("get transcript %s: %w", videoID, err)
	}

	if err := json.Unmarshal([]byte(segments), &t.Segments); err != nil {
		return nil, fmt.Errorf("decode segments for %s: %w", videoID, err)
	}
	t.CreatedAt = time.Unix(createdAt, 0).UTC()
	t.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return &t, nil
}

// SearchTranscripts matches the query against titles and transcript text
// and returns snippet-annotated results, best matches first.
func (s *Store) SearchTranscripts(ctx context.Context, query string, limit int) ([]domain.SearchResult, error) {
	pattern := "%" + escapeLike(query) + "%"
	rows, err := s.db.QueryContext(ctx, `
SELECT video_id, title, channel, full_text
FROM transcripts
WHERE title LIKE ? ESCAPE '\' OR full_text LIKE ? ESCAPE '\'
ORDER BY updated_at DESC
LIMIT ?`, pattern, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("search transcripts: %w", err)
	}
	defer rows.Close()

	needle := strings.ToLower(strings.TrimSpace(query))
	var results []domain.SearchResult
	for rows.Next() {
		var (
			r        domain.SearchResult
			fullText string
		)
		if err := rows.Scan(&r.VideoID, &r.Title, &r.Channel, &fullText); err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		r.Snippet = snippetAround(fullText, needle)
		r.Score = matchScore(r.Title, fullText, needle)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search results: %w", err)
	}

	// LIKE cannot rank; order by the derived score instead.
	for i := 1; i < len(results); i++ {
		for j := i; j > 0 && results[j].Score > results[j-1].Score; j-- {
			results[j], results[j-1] = results[j-1], results[j]
		}
	}
	return results, nil
}

// ListRecent returns metadata views of the most recently updated
// transcripts for the dashboard history.
func (s *Store) ListRecent(ctx context.Context, limit, offset int) ([]domain.VideoMetadata, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT video_id, title, channel, language, duration_seconds, created_at
FROM transcripts
ORDER BY updated_at DESC
LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list recent transcripts: %w", err)
	}
	defer rows.Close()

	var videos []domain.VideoMetadata
	for rows.Next() {
		var (
			v         domain.VideoMetadata
			createdAt int64
		)
		if err := rows.Scan(&v.VideoID, &v.Title, &v.Channel, &v.Language, &v.Duration, &createdAt); err != nil {
			return nil, fmt.Errorf("scan video metadata: %w", err)
		}
		v.CreatedAt = time.Unix(createdAt, 0).UTC()
		videos = append(videos, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent transcripts: %w", err)
	}
	return videos, nil
}

func escapeLike(q string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return replacer.Replace(q)
}

// snippetAround extracts a short window of text centered on the first
// occurrence of needle.
func snippetAround(text, needle string) string {
	const window = 120
	lower := strings.ToLower(text)
	idx := strings.Index(lower, needle)
	if idx < 0 {
		if len(text) <= window {
			return text
		}
		return text[:window] + "…"
	}

	start := idx - window/2
	if start < 0 {
		start = 0
	}
	end := idx + len(needle) + window/2
	if end > len(text) {
		end = len(text)
	}

	snippet := text[start:end]
	if start > 0 {
		snippet = "…" + snippet
	}
	if end < len(text) {
		snippet += "…"
	}
	return snippet
}

// matchScore weighs title matches above body matches, plus a small bonus
// per occurrence in the transcript text.
func matchScore(title, fullText, needle string) float64 {
	if needle == "" {
		return 0
	}
	var score float64
	if strings.Contains(strings.ToLower(title), needle) {
		score += 10
	}
	score += float64(strings.Count(strings.ToLower(fullText), needle))
	return score
}
