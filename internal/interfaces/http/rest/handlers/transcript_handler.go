package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/CodePnut/script-flow-sub001/internal/cache"
	"github.com/CodePnut/script-flow-sub001/internal/domain"
	"github.com/CodePnut/script-flow-sub001/internal/monitor"
	"github.com/CodePnut/script-flow-sub001/internal/youtube"
	"github.com/CodePnut/script-flow-sub001/pkg/api"
	apperrors "github.com/CodePnut/script-flow-sub001/pkg/errors"
)

// TranscriptHandler serves transcript reads and transcription ingest.
type TranscriptHandler struct {
	cache       *cache.Service
	repo        TranscriptRepository
	transcriber Transcriber
	monitor     *monitor.Monitor
	logger      *zap.Logger
}

// NewTranscriptHandler wires the transcript endpoints.
func NewTranscriptHandler(
	cacheSvc *cache.Service,
	repo TranscriptRepository,
	transcriber Transcriber,
	mon *monitor.Monitor,
	logger *zap.Logger,
) *TranscriptHandler {
	return &TranscriptHandler{
		cache:       cacheSvc,
		repo:        repo,
		transcriber: transcriber,
		monitor:     mon,
		logger:      logger,
	}
}

// GetTranscript handles GET /api/v1/transcripts/{videoID}: cache first,
// then the monitored store, backfilling the cache on a miss.
func (h *TranscriptHandler) GetTranscript(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")
	if !youtube.ValidVideoID(videoID) {
		api.Error(w, http.StatusBadRequest, "invalid video id")
		return
	}

	ctx := r.Context()
	if t, ok := h.cache.GetTranscript(ctx, videoID); ok {
		api.Success(w, http.StatusOK, t)
		return
	}

	t, err := monitor.Execute(ctx, h.monitor, "transcript_fetch",
		map[string]any{"videoId": videoID},
		func(ctx context.Context) (*domain.Transcript, error) {
			return h.repo.GetTranscript(ctx, videoID)
		})
	if err != nil {
		if apperrors.IsNotFound(err) {
			api.Error(w, http.StatusNotFound, "transcript not found")
			return
		}
		h.logger.Error("transcript fetch failed", zap.String("videoId", videoID), zap.Error(err))
		api.Error(w, http.StatusInternalServerError, "failed to load transcript")
		return
	}

	h.cache.SetTranscript(ctx, videoID, t)
	api.Success(w, http.StatusOK, t)
}

type transcribeRequest struct {
	URL string `json:"url" validate:"required,url"`
}

// Transcribe handles POST /api/v1/transcribe: runs the speech-to-text
// service, persists the transcript, and evicts every cache entry the new
// record invalidates (its consistency group plus all search results).
func (h *TranscriptHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	var req transcribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		api.Error(w, http.StatusBadRequest, "url is required and must be a valid URL")
		return
	}
	if _, err := youtube.ExtractVideoID(req.URL); err != nil {
		api.Error(w, http.StatusBadRequest, "not a recognizable YouTube URL")
		return
	}

	ctx := r.Context()
	transcript, err := h.transcriber.Transcribe(ctx, req.URL)
	if err != nil {
		h.logger.Error("transcription failed", zap.String("url", req.URL), zap.Error(err))
		if apperrors.IsUnavailable(err) {
			api.Error(w, http.StatusServiceUnavailable, "transcription service unavailable")
			return
		}
		api.Error(w, http.StatusBadGateway, "transcription failed")
		return
	}

	if _, err := monitor.Execute(ctx, h.monitor, "transcript_insert",
		map[string]any{"videoId": transcript.VideoID},
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, h.repo.SaveTranscript(ctx, transcript)
		}); err != nil {
		h.logger.Error("transcript save failed", zap.String("videoId", transcript.VideoID), zap.Error(err))
		api.Error(w, http.StatusInternalServerError, "failed to save transcript")
		return
	}

	h.cache.Invalidate(ctx, transcript.VideoID)
	h.cache.InvalidateSearchResults(ctx)

	api.Success(w, http.StatusCreated, transcript)
}
