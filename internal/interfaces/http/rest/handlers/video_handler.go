package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/CodePnut/script-flow-sub001/internal/cache"
	"github.com/CodePnut/script-flow-sub001/internal/domain"
	"github.com/CodePnut/script-flow-sub001/internal/monitor"
	"github.com/CodePnut/script-flow-sub001/internal/youtube"
	"github.com/CodePnut/script-flow-sub001/pkg/api"
	apperrors "github.com/CodePnut/script-flow-sub001/pkg/errors"
)

// VideoHandler serves the video metadata views used by the dashboard.
type VideoHandler struct {
	cache    *cache.Service
	repo     TranscriptRepository
	metadata MetadataFetcher
	monitor  *monitor.Monitor
	logger   *zap.Logger
}

// NewVideoHandler wires the video endpoints.
func NewVideoHandler(
	cacheSvc *cache.Service,
	repo TranscriptRepository,
	metadata MetadataFetcher,
	mon *monitor.Monitor,
	logger *zap.Logger,
) *VideoHandler {
	return &VideoHandler{
		cache:    cacheSvc,
		repo:     repo,
		metadata: metadata,
		monitor:  mon,
		logger:   logger,
	}
}

// GetVideo handles GET /api/v1/videos/{videoID}. The metadata view is
// derived from the stored transcript when one exists, with the public
// oEmbed lookup filling the thumbnail; videos without a transcript fall
// back to oEmbed alone.
func (h *VideoHandler) GetVideo(w http.ResponseWriter, r *http.Request) {
	videoID := chi.URLParam(r, "videoID")
	if !youtube.ValidVideoID(videoID) {
		api.Error(w, http.StatusBadRequest, "invalid video id")
		return
	}

	ctx := r.Context()
	if v, ok := h.cache.GetVideoMetadata(ctx, videoID); ok {
		api.Success(w, http.StatusOK, v)
		return
	}

	meta, err := h.buildMetadata(ctx, videoID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			api.Error(w, http.StatusNotFound, "video not found")
			return
		}
		h.logger.Error("video metadata lookup failed", zap.String("videoId", videoID), zap.Error(err))
		api.Error(w, http.StatusBadGateway, "failed to load video metadata")
		return
	}

	h.cache.SetVideoMetadata(ctx, videoID, meta)
	api.Success(w, http.StatusOK, meta)
}

func (h *VideoHandler) buildMetadata(ctx context.Context, videoID string) (*domain.VideoMetadata, error) {
	transcript, err := monitor.Execute(ctx, h.monitor, "video_fetch",
		map[string]any{"videoId": videoID},
		func(ctx context.Context) (*domain.Transcript, error) {
			return h.repo.GetTranscript(ctx, videoID)
		})
	if err == nil {
		meta := &domain.VideoMetadata{
			VideoID:   transcript.VideoID,
			Title:     transcript.Title,
			Channel:   transcript.Channel,
			Language:  transcript.Language,
			Duration:  transcript.Duration,
			CreatedAt: transcript.CreatedAt,
		}
		// Thumbnail only lives upstream; tolerate the lookup failing.
		if remote, remoteErr := h.metadata.FetchMetadata(ctx, videoID); remoteErr == nil {
			meta.ThumbnailURL = remote.ThumbnailURL
		}
		return meta, nil
	}
	if !apperrors.IsNotFound(err) {
		return nil, err
	}
	return h.metadata.FetchMetadata(ctx, videoID)
}

// ListVideos handles GET /api/v1/videos?limit=&offset= for the dashboard
// history, straight from the monitored store (the listing changes on every
// ingest, so it is not worth a cache entry).
func (h *VideoHandler) ListVideos(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20, 1, 100)
	offset := queryInt(r, "offset", 0, 0, 1<<30)

	videos, err := monitor.Execute(r.Context(), h.monitor, "video_list",
		map[string]any{"limit": limit, "offset": offset},
		func(ctx context.Context) ([]domain.VideoMetadata, error) {
			return h.repo.ListRecent(ctx, limit, offset)
		})
	if err != nil {
		h.logger.Error("video listing failed", zap.Error(err))
		api.Error(w, http.StatusInternalServerError, "failed to list videos")
		return
	}
	if videos == nil {
		videos = []domain.VideoMetadata{}
	}
	api.Success(w, http.StatusOK, map[string]any{
		"videos": videos,
		"limit":  limit,
		"offset": offset,
	})
}

// queryInt parses an integer query parameter with a default and clamping.
func queryInt(r *http.Request, name string, def, min, max int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
