package handlers

import (
	"net/http"
	"time"

	"github.com/CodePnut/script-flow-sub001/internal/cache"
	"github.com/CodePnut/script-flow-sub001/internal/monitor"
	"github.com/CodePnut/script-flow-sub001/pkg/api"
)

const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

// HealthHandler reports liveness of the service and its dependencies.
type HealthHandler struct {
	cacheClient cache.Client // nil when the remote cache is disabled
	monitor     *monitor.Monitor
	startTime   time.Time
	version     string
}

// NewHealthHandler wires the health endpoint.
func NewHealthHandler(cacheClient cache.Client, mon *monitor.Monitor, version string) *HealthHandler {
	return &HealthHandler{
		cacheClient: cacheClient,
		monitor:     mon,
		startTime:   time.Now(),
		version:     version,
	}
}

type healthCheck struct {
	Status       string `json:"status"`
	ResponseTime string `json:"responseTime,omitempty"`
	Error        string `json:"error,omitempty"`
}

type healthResponse struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime"`
	Checks    map[string]healthCheck `json:"checks"`
}

// Health handles GET /health. The durable store decides overall health; a
// missing cache only degrades, since the service runs correctly (if
// slower) without it.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	checks := make(map[string]healthCheck)
	overall := statusHealthy

	db := h.monitor.CheckHealth(ctx)
	if db.Connected {
		checks["database"] = healthCheck{
			Status:       statusHealthy,
			ResponseTime: db.ResponseTime.String(),
		}
	} else {
		checks["database"] = healthCheck{Status: statusUnhealthy, Error: db.Err}
		overall = statusUnhealthy
	}

	switch {
	case h.cacheClient == nil:
		checks["cache"] = healthCheck{Status: statusDegraded, Error: "cache disabled"}
	default:
		start := time.Now()
		if err := h.cacheClient.Ping(ctx); err != nil {
			checks["cache"] = healthCheck{Status: statusDegraded, Error: err.Error()}
			if overall == statusHealthy {
				overall = statusDegraded
			}
		} else {
			checks["cache"] = healthCheck{
				Status:       statusHealthy,
				ResponseTime: time.Since(start).String(),
			}
		}
	}

	statusCode := http.StatusOK
	if overall == statusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}

	api.Success(w, statusCode, healthResponse{
		Status:    overall,
		Timestamp: time.Now().UTC(),
		Version:   h.version,
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Checks:    checks,
	})
}
