// Package rest assembles the HTTP router.
package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/CodePnut/script-flow-sub001/internal/cache"
	"github.com/CodePnut/script-flow-sub001/internal/interfaces/http/rest/handlers"
	"github.com/CodePnut/script-flow-sub001/internal/monitor"
	"github.com/CodePnut/script-flow-sub001/internal/observability"
)

// Dependencies carries everything the router needs. All wiring happens in
// main; the router only arranges routes and middleware.
type Dependencies struct {
	Logger      *zap.Logger
	Collector   *observability.Collector
	Cache       *cache.Service
	CacheClient cache.Client // nil when the remote cache is disabled
	Monitor     *monitor.Monitor
	Repo        handlers.TranscriptRepository
	Transcriber handlers.Transcriber
	Metadata    handlers.MetadataFetcher

	AllowedOrigins []string
	Version        string
}

// New configures all routes and middleware.
func New(deps Dependencies) http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(observability.RequestLogger(deps.Logger))
	router.Use(observability.HTTPMetrics(deps.Collector))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	healthHandler := handlers.NewHealthHandler(deps.CacheClient, deps.Monitor, deps.Version)
	router.Get("/health", healthHandler.Health)
	router.Method(http.MethodGet, "/metrics", deps.Collector.Handler())

	router.Route("/api/v1", func(r chi.Router) {
		transcriptHandler := handlers.NewTranscriptHandler(
			deps.Cache, deps.Repo, deps.Transcriber, deps.Monitor, deps.Logger)
		r.Get("/transcripts/{videoID}", transcriptHandler.GetTranscript)
		r.Post("/transcribe", transcriptHandler.Transcribe)

		videoHandler := handlers.NewVideoHandler(
			deps.Cache, deps.Repo, deps.Metadata, deps.Monitor, deps.Logger)
		r.Get("/videos/{videoID}", videoHandler.GetVideo)
		r.Get("/videos", videoHandler.ListVideos)

		r.Get("/search", handlers.NewSearchHandler(
			deps.Cache, deps.Repo, deps.Monitor, deps.Logger).Search)

		r.Route("/admin", func(r chi.Router) {
			adminHandler := handlers.NewAdminHandler(deps.Cache, deps.Monitor, deps.Logger)
			r.Get("/cache/metrics", adminHandler.CacheMetrics)
			r.Post("/cache/metrics/reset", adminHandler.ResetCacheMetrics)
			r.Get("/cache/stats", adminHandler.CacheStats)
			r.Post("/cache/flush", adminHandler.FlushCache)
			r.Get("/db/stats", adminHandler.DatabaseStats)
			r.Post("/db/stats/reset", adminHandler.ResetDatabaseStats)
			r.Get("/db/slow-queries", adminHandler.SlowQueries)
			r.Post("/db/cleanup", adminHandler.CleanupLogs)
		})
	})

	return router
}
