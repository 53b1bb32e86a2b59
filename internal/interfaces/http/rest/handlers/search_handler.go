package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/CodePnut/script-flow-sub001/internal/cache"
	"github.com/CodePnut/script-flow-sub001/internal/domain"
	"github.com/CodePnut/script-flow-sub001/internal/monitor"
	"github.com/CodePnut/script-flow-sub001/pkg/api"
)

// SearchHandler serves transcript search.
type SearchHandler struct {
	cache   *cache.Service
	repo    TranscriptRepository
	monitor *monitor.Monitor
	logger  *zap.Logger
}

// NewSearchHandler wires the search endpoint.
func NewSearchHandler(cacheSvc *cache.Service, repo TranscriptRepository, mon *monitor.Monitor, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{
		cache:   cacheSvc,
		repo:    repo,
		monitor: mon,
		logger:  logger,
	}
}

type searchParams struct {
	Query string `validate:"required,min=2,max=100"`
	Limit int    `validate:"gte=1,lte=50"`
}

// Search handles GET /api/v1/search?q=&limit=. Result sets are cached under
// a hash of the normalized query with the short search TTL.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	params := searchParams{
		Query: r.URL.Query().Get("q"),
		Limit: queryInt(r, "limit", 20, 1, 50),
	}
	if err := validate.Struct(params); err != nil {
		api.Error(w, http.StatusBadRequest, "q must be between 2 and 100 characters")
		return
	}

	ctx := r.Context()
	if results, ok := h.cache.GetSearchResults(ctx, params.Query); ok {
		api.Success(w, http.StatusOK, map[string]any{"query": params.Query, "results": results})
		return
	}

	results, err := monitor.Execute(ctx, h.monitor, "transcript_search",
		map[string]any{"query": params.Query, "limit": params.Limit},
		func(ctx context.Context) ([]domain.SearchResult, error) {
			return h.repo.SearchTranscripts(ctx, params.Query, params.Limit)
		})
	if err != nil {
		h.logger.Error("search failed", zap.String("query", params.Query), zap.Error(err))
		api.Error(w, http.StatusInternalServerError, "search failed")
		return
	}
	if results == nil {
		results = []domain.SearchResult{}
	}

	h.cache.SetSearchResults(ctx, params.Query, results)
	api.Success(w, http.StatusOK, map[string]any{"query": params.Query, "results": results})
}
