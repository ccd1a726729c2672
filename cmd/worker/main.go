package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/snow-ghost/geosynth/archive"
	"github.com/snow-ghost/geosynth/pkg/observability"
	"github.com/snow-ghost/geosynth/worker"
	"github.com/snow-ghost/geosynth/worker/telemetry"
)

func main() {
	config := worker.LoadConfig()

	// Setup logging, tracing and metrics
	obs, err := observability.NewManager(observability.Config{
		ServiceName:    "geosynth-worker",
		ServiceVersion: "1.0.0",
		Environment:    "production",
		JaegerEndpoint: config.JaegerEndpoint,
		LogLevel:       config.LogLevel,
		LogFormat:      config.LogFormat,
		LogOutput:      "stdout",
		RuntimeMetrics: true,
	})
	if err != nil {
		log.Fatalf("Failed to set up observability: %v", err)
	}
	defer func() { _ = obs.Shutdown(context.Background()) }()
	logger := obs.GetLogger()
	tracer := obs.GetTracer()
	m := obs.GetMetrics()

	// Wire components
	reg, err := worker.LoadRegistry(config)
	if err != nil {
		logger.Fatal("failed to load catalogue", "error", err)
	}
	defs, err := worker.LoadKnowledgeBase(config, reg)
	if err != nil {
		logger.Fatal("failed to load knowledge base", "error", err)
	}
	prover, err := worker.NewProver(config, worker.Dependencies{Defs: defs, Metrics: m, Tracer: tracer, Logger: logger})
	if err != nil {
		logger.Fatal("failed to create prover", "error", err)
	}

	var store worker.Store
	if config.ArchiveDB != "" {
		s, err := archive.Open(config.ArchiveDB)
		if err != nil {
			logger.Fatal("failed to open archive", "path", config.ArchiveDB, "error", err)
		}
		defer s.Close()
		store = s
	}

	tel := telemetry.NewTelemetry()
	solver := worker.NewSolver(reg, prover)
	solver.Metrics = m
	solver.Tracer = tracer
	solver.Telemetry = tel
	solver.Rules = defs.SolveRules()

	ing, err := worker.NewIngestor(solver, prover, reg, worker.IngestOptions{
		Store:     store,
		Telemetry: tel,
		Logger:    logger,
		Tracer:    tracer,
		Gatherer:  obs.Gatherer(),
		Observer:  m,
		Rules:     solver.Rules,
		CacheSize: config.CacheSize,
		Seed:      config.Seed,
	})
	if err != nil {
		logger.Fatal("failed to create ingestor", "error", err)
	}
	defer ing.Close()

	srv := &http.Server{
		Addr:              ":" + config.WorkerPort,
		Handler:           ing,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("worker starting",
		"port", config.WorkerPort,
		"prover_mode", config.ProverMode,
		"primitives", len(reg.Primitives),
		"rules", len(defs.Rules()),
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal("server failed", "error", err)
	}
	slog.Info("worker stopped")
}
