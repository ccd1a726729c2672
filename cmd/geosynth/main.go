package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/snow-ghost/geosynth/archive"
	"github.com/snow-ghost/geosynth/core"
	"github.com/snow-ghost/geosynth/pkg/observability"
	"github.com/snow-ghost/geosynth/pkg/registry"
	"github.com/snow-ghost/geosynth/worker"
)

func main() {
	config := worker.LoadConfig()

	var (
		count       = flag.Int("n", 1, "Number of problems to generate")
		seed        = flag.Int64("seed", config.Seed, "Base seed; problem i uses seed+i (0 picks one from the clock)")
		catalog     = flag.String("config", config.CatalogPath, "Generator catalogue YAML")
		proverMode  = flag.String("prover", config.ProverMode, "Prover: mock, remote")
		proverURL   = flag.String("prover-url", config.ProverURL, "Remote prover base URL")
		dbPath      = flag.String("db", config.ArchiveDB, "SQLite archive for accepted problems")
		outPath     = flag.String("out", "-", "JSONL output file, - for stdout")
		candidates  = flag.String("candidates", "", "Directory for candidates_5.txt / candidates_8.txt")
		defsFile    = flag.String("defs", config.DefsFile, "Definitions file (empty uses the built-in one)")
		rulesFile   = flag.String("rules", config.RulesFile, "Rules file (empty uses the built-in one)")
		concurrency = flag.Int("concurrency", 1, "Independent searches run in parallel")
		saveConfig  = flag.String("save-config", "", "Write the effective catalogue as YAML to this file and exit")
		verbose     = flag.Bool("verbose", false, "Debug logging")
	)
	flag.Parse()

	config.CatalogPath = *catalog
	config.ProverMode = *proverMode
	config.ProverURL = *proverURL
	config.ArchiveDB = *dbPath
	config.DefsFile = *defsFile
	config.RulesFile = *rulesFile
	if *verbose {
		config.LogLevel = "debug"
	}

	obs, err := observability.NewManager(observability.Config{
		ServiceName:    "geosynth",
		ServiceVersion: "1.0.0",
		Environment:    "batch",
		JaegerEndpoint: config.JaegerEndpoint,
		LogLevel:       config.LogLevel,
		LogFormat:      config.LogFormat,
		LogOutput:      "stderr",
	})
	if err != nil {
		log.Fatalf("Failed to set up observability: %v", err)
	}

	if *saveConfig != "" {
		if err := saveCatalogue(config, *saveConfig); err != nil {
			obs.GetLogger().Fatal("failed to write catalogue", "path", *saveConfig, "error", err)
		}
		slog.Info("catalogue written", "path", *saveConfig)
		_ = obs.Shutdown(context.Background())
		return
	}

	if err := run(config, *count, *seed, *concurrency, *outPath, *candidates, obs); err != nil {
		_ = obs.Shutdown(context.Background())
		obs.GetLogger().Fatal("generation failed", "error", err)
	}
	_ = obs.Shutdown(context.Background())
}

// saveCatalogue writes the catalogue the search would run with, environment
// overrides included.
func saveCatalogue(config *worker.Config, path string) error {
	reg, err := worker.LoadRegistry(config)
	if err != nil {
		return err
	}
	return registry.NewLoader(path).SaveRegistry(reg)
}

func run(config *worker.Config, count int, seed int64, concurrency int, outPath, candidates string, obs *observability.Manager) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg, err := worker.LoadRegistry(config)
	if err != nil {
		return err
	}
	defs, err := worker.LoadKnowledgeBase(config, reg)
	if err != nil {
		return err
	}

	prover, err := worker.NewProver(config, worker.Dependencies{
		Defs:    defs,
		Metrics: obs.GetMetrics(),
		Tracer:  obs.GetTracer(),
		Logger:  obs.GetLogger(),
	})
	if err != nil {
		return err
	}

	var store *archive.Store
	if config.ArchiveDB != "" {
		if store, err = archive.Open(config.ArchiveDB); err != nil {
			return err
		}
		defer store.Close()
	}

	var out io.Writer = os.Stdout
	if outPath != "-" && outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	solver := worker.NewSolver(reg, prover)
	solver.Metrics = obs.GetMetrics()
	solver.Tracer = obs.GetTracer()
	solver.Rules = defs.SolveRules()

	slog.Info("generation starting",
		"count", count,
		"seed", seed,
		"concurrency", concurrency,
		"prover_mode", config.ProverMode,
	)

	problems := make([]core.Problem, count)
	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}
	for i := 0; i < count; i++ {
		g.Go(func() error {
			rng := rand.New(rand.NewSource(seed + int64(i)))
			p, err := solver.Search(gctx, rng)
			if err != nil {
				return fmt.Errorf("problem %d: %w", i, err)
			}
			if store != nil {
				if err := store.Save(gctx, p); err != nil {
					return fmt.Errorf("archive problem %d: %w", i, err)
				}
			}
			problems[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	for _, p := range problems {
		if err := enc.Encode(p); err != nil {
			return err
		}
		if candidates != "" {
			path, err := appendCandidate(candidates, p)
			if err != nil {
				return err
			}
			if path != "" {
				slog.Info("candidate bucketed", "problem_id", p.ID, "proof_length", p.ProofLength, "file", path)
			}
		}
	}

	slog.Info("generation finished", "count", count)
	return nil
}
