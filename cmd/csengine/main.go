package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/rokysan7/Internal-SYS/internal/config"
	dbRedis "github.com/rokysan7/Internal-SYS/internal/db/redis"
	"github.com/rokysan7/Internal-SYS/internal/keyword"
	logpkg "github.com/rokysan7/Internal-SYS/internal/logger"
	"github.com/rokysan7/Internal-SYS/internal/metrics"
	casesrepo "github.com/rokysan7/Internal-SYS/internal/repository/cases"
	"github.com/rokysan7/Internal-SYS/internal/repository/modelcache"
	tagsrepo "github.com/rokysan7/Internal-SYS/internal/repository/tags"
	chiTransport "github.com/rokysan7/Internal-SYS/internal/transport/chi"
	healthuc "github.com/rokysan7/Internal-SYS/internal/usecase/health"
	similarityuc "github.com/rokysan7/Internal-SYS/internal/usecase/similarity"
	tagsuc "github.com/rokysan7/Internal-SYS/internal/usecase/tags"
	"github.com/rokysan7/Internal-SYS/internal/version"
	"github.com/rokysan7/Internal-SYS/internal/worker"
)

func main() {
	migrateTags := flag.Bool("migrate-tags", false, "register and learn tags from existing cases, then exit")
	flag.Parse()

	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting case similarity engine",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("cache_addrs", cfg.Cache.Addrs),
		zap.String("postgres", cfg.Postgres.Redacted()),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Cache.Addrs,
		Username: cfg.Cache.Username,
		Password: cfg.Cache.Password,
		DB:       cfg.Cache.DB,
	})
	if err != nil {
		logger.Fatal("Failed to create cache store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Cache not ready", zap.Error(err))
	}
	logger.Info("Connected to cache")

	pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
	if err != nil {
		logger.Fatal("Failed to create postgres pool", zap.Error(err))
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		logger.Fatal("Postgres not ready", zap.Error(err))
	}
	logger.Info("Connected to postgres")

	// Register engine metrics explicitly (no init())
	metrics.RegisterEngineMetrics()

	// Repositories
	caseRepo := casesrepo.New(pool)
	tagRepo := tagsrepo.New(pool)
	if err := tagRepo.EnsureSchema(ctx); err != nil {
		logger.Fatal("Failed to ensure tag schema", zap.Error(err))
	}
	cache := modelcache.New(store, logger)

	// Use case services
	extractor := keyword.NewExtractor()
	simSvc := similarityuc.New(caseRepo, cache, extractor, similarityuc.Options{
		Threshold:          cfg.Engine.Threshold,
		TopN:               cfg.Engine.TopN,
		NeighborTTL:        time.Duration(cfg.Engine.NeighborTTLSec) * time.Second,
		RealtimeCorpusCap:  cfg.Engine.RealtimeCorpusCap,
		MinQueryTitleRunes: cfg.Engine.MinQueryTitleRunes,
	}, logger)
	tagSvc := tagsuc.New(tagRepo, caseRepo, extractor, tagsuc.Options{
		SuggestTopK: cfg.Engine.SuggestTopK,
		SearchLimit: cfg.Engine.TagSearchLimit,
	}, logger)
	healthSvc := healthuc.New(store, pool)

	if _, _, err := tagSvc.SeedDefaults(ctx); err != nil {
		logger.Fatal("Failed to seed tags", zap.Error(err))
	}

	// One-shot migration mode: learn tag weights from the existing
	// corpus and exit.
	if *migrateTags {
		result, err := tagSvc.MigrateCaseTags(ctx)
		if err != nil {
			logger.Fatal("Tag migration failed", zap.Error(err))
		}
		logger.Info("Tag migration complete",
			zap.Int("cases", result.Cases),
			zap.Int("new_tags", result.NewTags),
			zap.Int("learns", result.Learns))
		return
	}

	// Background loops
	workerCtx, stopWorkers := context.WithCancel(ctx)
	runner := worker.NewRunner(simSvc, tagSvc, cache, store, worker.Options{
		RebuildInterval: time.Duration(cfg.Worker.RebuildIntervalSec) * time.Second,
		CleanupInterval: time.Duration(cfg.Worker.CleanupIntervalSec) * time.Second,
		DrainInterval:   time.Duration(cfg.Worker.DrainIntervalSec) * time.Second,
		QueueKey:        cfg.Worker.RecomputeQueueKey,
	}, logger)
	workersDone := make(chan struct{})
	go func() {
		runner.Run(workerCtx)
		close(workersDone)
	}()

	// HTTP server
	server := chiTransport.NewServer(simSvc, tagSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	stopWorkers()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	select {
	case <-workersDone:
	case <-shutdownCtx.Done():
		logger.Warn("Workers did not stop before the shutdown deadline")
	}

	logger.Info("Server stopped gracefully")
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
