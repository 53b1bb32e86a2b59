// Package domain holds the entity shapes that flow between the durable
// store, the cache, and the HTTP layer. Every type here must round-trip
// through JSON without loss: the cache stores serialized renditions and
// re-hydrates them on a hit.
package domain

import "time"

// TranscriptSegment is one timed utterance within a transcript.
type TranscriptSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcript is the full transcription of a single YouTube video.
type Transcript struct {
	VideoID   string              `json:"videoId"`
	Title     string              `json:"title"`
	Channel   string              `json:"channel"`
	Language  string              `json:"language"`
	Duration  float64             `json:"duration"`
	Segments  []TranscriptSegment `json:"segments"`
	Summary   string              `json:"summary,omitempty"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

// Text concatenates all segment text into one searchable string.
func (t *Transcript) Text() string {
	if len(t.Segments) == 0 {
		return ""
	}
	out := t.Segments[0].Text
	for _, seg := range t.Segments[1:] {
		out += " " + seg.Text
	}
	return out
}

// VideoMetadata is the lightweight video view shown in listings. It is
// derived from the transcript record plus the oEmbed lookup, so it shares a
// cache consistency group with the transcript for the same video id.
type VideoMetadata struct {
	VideoID      string    `json:"videoId"`
	Title        string    `json:"title"`
	Channel      string    `json:"channel"`
	ThumbnailURL string    `json:"thumbnailUrl,omitempty"`
	Duration     float64   `json:"duration"`
	Language     string    `json:"language,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// SearchResult is one row of a transcript search response.
type SearchResult struct {
	VideoID string  `json:"videoId"`
	Title   string  `json:"title"`
	Channel string  `json:"channel"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}
