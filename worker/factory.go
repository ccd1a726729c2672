package worker

import (
	"fmt"

	"github.com/snow-ghost/geosynth/core"
	"github.com/snow-ghost/geosynth/kb"
	"github.com/snow-ghost/geosynth/pkg/logging"
	"github.com/snow-ghost/geosynth/pkg/metrics"
	"github.com/snow-ghost/geosynth/pkg/registry"
	"github.com/snow-ghost/geosynth/pkg/tracing"
	"github.com/snow-ghost/geosynth/prover/mock"
	"github.com/snow-ghost/geosynth/prover/remote"
	"github.com/snow-ghost/geosynth/translate"
)

// LoadRegistry loads the generator catalogue and applies environment
// overrides.
func LoadRegistry(config *Config) (*registry.Registry, error) {
	reg, err := registry.NewLoader(config.CatalogPath).LoadRegistry()
	if err != nil {
		return nil, err
	}
	if config.SolveTimeout > 0 {
		reg.Search.SolveTimeout = config.SolveTimeout
	}
	return reg, nil
}

// LoadKnowledgeBase loads the definitions and rules and checks that every
// predicate the search can emit is defined.
func LoadKnowledgeBase(config *Config, reg *registry.Registry) (*kb.KnowledgeBase, error) {
	defs, err := kb.Load(config.DefsFile, config.RulesFile)
	if err != nil {
		return nil, fmt.Errorf("load knowledge base: %w", err)
	}
	names := append(reg.PrimitiveNames(), translate.ConstructiveNames()...)
	names = append(names, core.FreePredicate)
	if err := defs.Validate(names...); err != nil {
		return nil, fmt.Errorf("knowledge base: %w", err)
	}
	return defs, nil
}

// Dependencies are the shared observability handles passed to provers.
// Any field may be nil.
type Dependencies struct {
	Defs    *kb.KnowledgeBase
	Metrics *metrics.PrometheusMetrics
	Tracer  *tracing.Tracer
	Logger  *logging.Logger
}

// NewProver creates a prover based on config.ProverMode
func NewProver(config *Config, deps Dependencies) (core.Prover, error) {
	switch config.ProverMode {
	case ProverModeMock, "":
		p := mock.New(config.RejectPreds...)
		if deps.Defs != nil {
			p = p.WithDefinitions(deps.Defs)
		}
		return p, nil

	case ProverModeRemote:
		return remote.New(config.ProverURL, remote.Options{
			MaxRPM:    config.ProverMaxRPM,
			CacheSize: config.CacheSize,
			Metrics:   deps.Metrics,
			Tracer:    deps.Tracer,
			Logger:    deps.Logger,
		})

	default:
		return nil, fmt.Errorf("unknown prover mode %q", config.ProverMode)
	}
}
