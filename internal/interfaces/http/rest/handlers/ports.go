// Package handlers contains the HTTP request handlers. They stay thin:
// validate input, consult the cache, fall back to the monitored store, and
// shape the response.
package handlers

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/CodePnut/script-flow-sub001/internal/domain"
)

// validate is shared across handlers; validator.Validate is safe for
// concurrent use.
var validate = validator.New()

// TranscriptRepository is the durable store surface the handlers consume.
type TranscriptRepository interface {
	SaveTranscript(ctx context.Context, t *domain.Transcript) error
	GetTranscript(ctx context.Context, videoID string) (*domain.Transcript, error)
	SearchTranscripts(ctx context.Context, query string, limit int) ([]domain.SearchResult, error)
	ListRecent(ctx context.Context, limit, offset int) ([]domain.VideoMetadata, error)
}

// Transcriber produces transcripts from video URLs.
type Transcriber interface {
	Transcribe(ctx context.Context, videoURL string) (*domain.Transcript, error)
}

// MetadataFetcher looks up public video metadata.
type MetadataFetcher interface {
	FetchMetadata(ctx context.Context, videoID string) (*domain.VideoMetadata, error)
}
