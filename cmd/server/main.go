// Package main is the entrypoint for the WardScope API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/wardscope/wardscope/internal/api"
	"github.com/wardscope/wardscope/internal/api/handler"
	mw "github.com/wardscope/wardscope/internal/api/middleware"
	"github.com/wardscope/wardscope/internal/api/response"
	"github.com/wardscope/wardscope/internal/cache"
	"github.com/wardscope/wardscope/internal/config"
	"github.com/wardscope/wardscope/internal/queue"
	"github.com/wardscope/wardscope/internal/replay"
	"github.com/wardscope/wardscope/internal/store"
	"github.com/wardscope/wardscope/internal/sweeper"
	"github.com/wardscope/wardscope/internal/uploads"
	"golang.org/x/sync/errgroup"
)

// logLevel starts at info so config errors are logged, and is lowered once the
// environment is known.
var logLevel = new(slog.LevelVar)

// levelFor enables debug logs outside production.
func levelFor(cfg *config.Config) slog.Level {
	if cfg.IsProduction() {
		return slog.LevelInfo
	}
	return slog.LevelDebug
}

func main() {
	_ = godotenv.Load()

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config, failing fast on invalid values
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logLevel.Set(levelFor(cfg))
	logger := slog.Default()
	logger.Info("config loaded", "env", cfg.Server.Env, "upload_dir", cfg.Upload.Dir,
		"archive", cfg.Database.URL != "", "redis", cfg.Redis.URL != "")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var notifiers queue.Notifiers

	// 2. Optional analysis archive
	var archive store.Store
	if cfg.Database.URL != "" {
		pool, err := store.Connect(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()
		logger.Info("database connected")

		if err := store.RunMigrations(cfg.Database.URL, cfg.Database.MigrationsDir); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		logger.Info("database migrations applied")

		pgStore := store.NewPostgresStore(pool)
		archive = pgStore
		notifiers = append(notifiers, store.NewArchiver(pgStore, logger))
	}

	// 3. Optional Redis status mirror and upload rate limit
	var statusCache cache.Cache
	var rateLimit *mw.RateLimit
	if cfg.Redis.URL != "" {
		redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("create redis cache: %w", err)
		}
		defer redisCache.Close()

		if err := redisCache.Ping(ctx); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		logger.Info("redis connected")

		statusCache = redisCache
		rateLimit = mw.NewRateLimit(redisCache, cfg.Redis.RateLimitPerMinute, "upload")
		notifiers = append(notifiers, cache.NewStatusMirror(redisCache, cfg.Queue.Retention, logger))
	}

	// 4. Upload directory
	files := uploads.NewStore(cfg.Upload.Dir)
	if err := files.EnsureDir(); err != nil {
		return fmt.Errorf("prepare upload dir: %w", err)
	}

	// 5. Processing queue
	opts := []queue.Option{
		queue.WithLogger(logger),
		queue.WithUploadDir(cfg.Upload.Dir),
		queue.WithTimeScale(cfg.Queue.PhaseScale),
		queue.WithRetention(cfg.Queue.Retention),
	}
	if len(notifiers) > 0 {
		opts = append(opts, queue.WithNotifier(notifiers))
	}
	q := queue.New(replay.NewROFLParser(replay.DefaultMaxMetadataBytes), opts...)
	q.Start(ctx)
	defer q.Stop()

	// 6. Periodic cleanup of finished jobs and stale uploads
	sw := sweeper.New(cfg.Queue.CleanupInterval, logger,
		sweeper.Task{Name: "queue", Run: func(context.Context) error {
			if n := q.Cleanup(); n > 0 {
				logger.Info("queue cleanup", "removed", n)
			}
			return nil
		}},
		sweeper.Task{Name: "uploads", Run: func(ctx context.Context) error {
			res, err := files.Cleanup(ctx, cfg.Upload.MaxAge)
			if err != nil {
				return err
			}
			if res.DeletedCount > 0 || res.Errors > 0 {
				logger.Info("upload cleanup", "deleted", res.DeletedCount, "errors", res.Errors)
			}
			return nil
		}},
	)
	sw.Start(ctx)
	defer sw.Stop()

	// 7. Build router with dependencies
	uploadOpts := handler.UploadOptions{MaxBytes: cfg.Upload.MaxBytes}
	replays := handler.NewReplayHandlers(q, archive, statusCache, handler.DefaultReplayCacheTTL)

	deps := api.Dependencies{
		AdminAuth:      mw.NewAdminAuth(cfg.Admin.TokenHash),
		RateLimit:      rateLimit,
		AllowedOrigins: cfg.CORS.AllowedOrigins,

		HealthHandler:      healthHandler(q, archive, statusCache),
		UploadHandler:      handler.NewUploadHandler(q, files, queue.NewIDGenerator(nil), uploadOpts),
		UploadConfig:       handler.NewUploadConfigHandler(uploadOpts),
		QueueStatsHandler:  handler.NewQueueStatsHandler(q),
		GetJobHandler:      handler.NewGetJobHandler(q, statusCache),
		CancelJobHandler:   handler.NewCancelJobHandler(q),
		ListReplays:        replays.List,
		GetReplay:          replays.Get,
		CleanupHandler:     handler.NewCleanupHandler(files, cfg.Upload.MaxAge),
		UploadStatsHandler: handler.NewUploadStatsHandler(files, cfg.Upload.MaxAge),
	}
	if !deps.AdminAuth.Enabled() {
		logger.Warn("ADMIN_TOKEN_HASH not set, admin routes are disabled")
	}

	router := api.NewRouter(deps)

	// 8. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received, draining connections...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("server stopped gracefully")
	return nil
}

type queueState interface {
	Started() bool
}

type pinger interface {
	Ping(ctx context.Context) error
}

// healthHandler reports the worker state and the connectivity of the optional
// archive and cache. Unconfigured backends are reported as disabled.
func healthHandler(q queueState, archive store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"queue":    "ok",
			"database": pingStatus(r.Context(), archive),
			"cache":    pingStatus(r.Context(), c),
		}
		if !q.Started() {
			checks["queue"] = "stopped"
		}

		for _, v := range checks {
			if v != "ok" && v != "disabled" {
				response.Error(w, http.StatusServiceUnavailable, response.CodeDegraded,
					"One or more services degraded", checks)
				return
			}
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}

func pingStatus(ctx context.Context, p pinger) string {
	if p == nil {
		return "disabled"
	}
	if err := p.Ping(ctx); err != nil {
		return "degraded"
	}
	return "ok"
}
