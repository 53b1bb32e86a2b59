package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/CodePnut/script-flow-sub001/internal/cache"
	"github.com/CodePnut/script-flow-sub001/internal/monitor"
	"github.com/CodePnut/script-flow-sub001/pkg/api"
)

// AdminHandler exposes the operational surface: cache metrics and stats,
// query aggregates, slow-query analysis, and log cleanup.
type AdminHandler struct {
	cache   *cache.Service
	monitor *monitor.Monitor
	logger  *zap.Logger
}

// NewAdminHandler wires the admin endpoints.
func NewAdminHandler(cacheSvc *cache.Service, mon *monitor.Monitor, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{cache: cacheSvc, monitor: mon, logger: logger}
}

// CacheMetrics handles GET /admin/cache/metrics.
func (h *AdminHandler) CacheMetrics(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, h.cache.Metrics())
}

// ResetCacheMetrics handles POST /admin/cache/metrics/reset.
func (h *AdminHandler) ResetCacheMetrics(w http.ResponseWriter, r *http.Request) {
	h.cache.ResetMetrics()
	h.logger.Info("cache metrics reset")
	api.NoContent(w)
}

// CacheStats handles GET /admin/cache/stats.
func (h *AdminHandler) CacheStats(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, h.cache.Stats(r.Context()))
}

// FlushCache handles POST /admin/cache/flush.
func (h *AdminHandler) FlushCache(w http.ResponseWriter, r *http.Request) {
	h.cache.Flush(r.Context())
	h.logger.Info("cache flushed")
	api.NoContent(w)
}

// DatabaseStats handles GET /admin/db/stats.
func (h *AdminHandler) DatabaseStats(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, h.monitor.Stats())
}

// ResetDatabaseStats handles POST /admin/db/stats/reset.
func (h *AdminHandler) ResetDatabaseStats(w http.ResponseWriter, r *http.Request) {
	h.monitor.Reset()
	h.logger.Info("query stats reset")
	api.NoContent(w)
}

// SlowQueries handles GET /admin/db/slow-queries?limit=.
func (h *AdminHandler) SlowQueries(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 10, 1, 100)
	api.Success(w, http.StatusOK, h.monitor.SlowQueryAnalysis(r.Context(), limit))
}

// CleanupLogs handles POST /admin/db/cleanup?days=.
func (h *AdminHandler) CleanupLogs(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 30, 1, 3650)
	deleted := h.monitor.CleanupSamples(r.Context(), days)
	api.Success(w, http.StatusOK, map[string]any{"deleted": deleted, "maxAgeDays": days})
}
