// Copyright (c) 2026 Tosho. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the Tosho HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables.
//  3. Connect to PostgreSQL (pgxpool).
//  4. Run database migrations (idempotent).
//  5. Wire domain services: catalogue, reader cache, ingestion queue.
//  6. Start background workers (cache sweep, ingest worker).
//  7. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/buivan/tosho/internal/api"
	"github.com/buivan/tosho/internal/ingest"
	"github.com/buivan/tosho/internal/library"
	"github.com/buivan/tosho/internal/metadata"
	"github.com/buivan/tosho/internal/platform/config"
	"github.com/buivan/tosho/internal/platform/constants"
	"github.com/buivan/tosho/internal/platform/migration"
	pgstore "github.com/buivan/tosho/internal/platform/postgres"
	"github.com/buivan/tosho/internal/platform/sec"
	"github.com/buivan/tosho/internal/reader"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	rawLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	// Add global context to all log entries.
	log := rawLog.With(slog.String("app", "tosho"))
	slog.SetDefault(log)

	log.Info("[Tosho] service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		debugLog := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		log = debugLog.With(slog.String("app", "tosho"))
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("library_path", cfg.LibraryPath),
	)

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	// ── 3. PostgreSQL ─────────────────────────────────────────────────────
	pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
	must(log, err, "connect to postgres")
	defer func() {
		log.Info("closing postgres pool")
		pool.Close()
	}()

	// ── 4. Migrations ─────────────────────────────────────────────────────
	must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")

	// ── 5. Auth Service ───────────────────────────────────────────────────
	jwtSvc, err := sec.NewTokenService(cfg.JWTSecret, constants.AuthIssuer)
	must(log, err, "initialize jwt service")

	// ── 6. Health handlers (wired with real dependency checkers) ──────────
	liveness, readiness := api.NewHealthHandlers(api.HealthDependencies{
		CheckDatabase: func() error {
			return pgstore.Ping(context.Background(), pool)
		},
		CheckLibrary: func() error {
			_, statErr := os.Stat(cfg.LibraryPath)
			return statErr
		},
	}, log)

	// ── 7. Domain Wiring ──────────────────────────────────────────────────
	seriesRepository := library.NewSeriesRepository(pool)
	mediaRepository := library.NewMediaRepository(pool)
	progressRepository := library.NewProgressRepository(pool)
	catalogueService := library.NewService(seriesRepository, mediaRepository, progressRepository, log)

	aiClient := metadata.NewAIClient(cfg.AIURL, cfg.AIModel)
	resolver := metadata.NewResolver(aiClient, log)

	scanner := library.NewScanner(catalogueService, resolver, cfg.LibraryPath, log)
	libraryHandler := library.NewHandler(catalogueService, scanner)

	structureCache := reader.NewStructureCache(
		constants.StructureCacheMaxEntries,
		constants.StructureCacheTTL,
		constants.StructureCacheSweepInterval,
		time.Now,
		log,
	)
	readerService := reader.NewService(catalogueService, structureCache, log)
	readerHandler := reader.NewHandler(readerService)

	pipeline := ingest.NewPipeline(cfg.LibraryPath, cfg.TempPath, catalogueService, resolver, log)
	ingestQueue := ingest.NewQueue(pipeline, constants.IngestQueueDepth, log)
	ingestHandler := ingest.NewHandler(ingestQueue, cfg.TempPath)

	// ── 8. Background Workers ─────────────────────────────────────────────
	structureCache.Start()
	defer structureCache.Stop()

	ingestQueue.Start()
	defer func() {
		log.Info("draining ingestion queue")
		ingestQueue.Stop()
	}()

	// ── 9. HTTP Server ────────────────────────────────────────────────────
	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Ingest:    ingestHandler,
		Reader:    readerHandler,
		Library:   libraryHandler,
	}

	server := api.NewServer(startupCtx, cfg, log, jwtSvc, handlers)

	// ── 10. Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server startup error", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server stopped cleanly")
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is intentionally limited to startup wiring. After startup, all errors
// must be returned and handled explicitly (never panic).
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
