// Command scriptflow runs the ScriptFlow backend: transcript, video, and
// search APIs fronted by a Redis cache, with query performance monitoring
// over the SQLite store.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/CodePnut/script-flow-sub001/internal/cache"
	"github.com/CodePnut/script-flow-sub001/internal/config"
	"github.com/CodePnut/script-flow-sub001/internal/interfaces/http/rest"
	"github.com/CodePnut/script-flow-sub001/internal/monitor"
	"github.com/CodePnut/script-flow-sub001/internal/observability"
	"github.com/CodePnut/script-flow-sub001/internal/storage/sqlite"
	"github.com/CodePnut/script-flow-sub001/internal/transcribe"
	"github.com/CodePnut/script-flow-sub001/internal/youtube"
)

var version = "dev" // set via -ldflags at build time

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "scriptflow: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := observability.NewLogger(cfg.Environment, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, "scriptflow", version)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	collector := observability.NewCollector("scriptflow")

	store, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	var cacheClient cache.Client
	var redisClient *cache.RedisClient
	if cfg.Redis.Enabled {
		redisClient = cache.NewRedisClient(cfg.Redis, logger)
		cacheClient = redisClient
		defer func() { _ = redisClient.Close() }()
	} else {
		logger.Warn("remote cache disabled; every lookup will miss")
	}

	cacheService := cache.NewService(cacheClient, cache.NewMetrics(), cfg.Cache, logger, collector)
	mon := monitor.New(store, cfg.Monitor, logger, collector)
	defer mon.Close()

	// Hot-reload TTLs and the slow-query threshold when the config file
	// changes on disk.
	if configPath != "" {
		watcher, werr := config.NewWatcher(configPath, config.Tunables{
			Cache:   cfg.Cache,
			Monitor: cfg.Monitor,
		}, logger)
		if werr != nil {
			logger.Warn("config watcher unavailable", zap.Error(werr))
		} else {
			watcher.OnChange(func(t config.Tunables) {
				cacheService.ApplyTunables(t.Cache)
				mon.SetSlowQueryThreshold(t.Monitor.SlowQueryThreshold)
			})
			watcher.Start()
			defer watcher.Stop()
		}
	}

	handler := rest.New(rest.Dependencies{
		Logger:         logger,
		Collector:      collector,
		Cache:          cacheService,
		CacheClient:    cacheClient,
		Monitor:        mon,
		Repo:           store,
		Transcriber:    transcribe.NewClient(cfg.Transcriber, logger),
		Metadata:       youtube.NewClient(),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Version:        version,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening",
			zap.String("addr", server.Addr),
			zap.String("environment", string(cfg.Environment)),
			zap.String("version", version),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}
