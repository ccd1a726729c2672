// Package sampler draws random constraints on a new point and turns them into
// constructive predicates.
package sampler

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/snow-ghost/geosynth/core"
	"github.com/snow-ghost/geosynth/pkg/registry"
	"github.com/snow-ghost/geosynth/translate"
)

type family struct {
	translate.Family
	cfg registry.FamilyConfig
}

// Sampler is not safe for concurrent use; it shares the caller's random stream.
type Sampler struct {
	families []family
	weights  []float64
	minPreds int
	maxPreds int
	rng      *rand.Rand
}

// New builds a sampler over the registry's families.
func New(reg *registry.Registry, rng *rand.Rand) (*Sampler, error) {
	s := &Sampler{
		minPreds: reg.Search.MinPredicates,
		maxPreds: reg.Search.MaxPredicates,
		rng:      rng,
	}
	if s.minPreds < 1 {
		s.minPreds = 1
	}
	if s.maxPreds < s.minPreds {
		s.maxPreds = s.minPreds
	}
	for _, cfg := range reg.Families {
		f, err := translate.ParseFamily(cfg.Name)
		if err != nil {
			return nil, err
		}
		s.families = append(s.families, family{Family: f, cfg: cfg})
		s.weights = append(s.weights, cfg.Weight)
	}
	return s, nil
}

// Sample draws between MinPredicates and MaxPredicates families for point and
// returns the predicates that could be formed from pool. An empty result
// means no predicate could be formed. Errors are translation contract
// violations only.
func (s *Sampler) Sample(point string, pool []string) ([]core.Predicate, error) {
	n := s.minPreds + s.rng.Intn(s.maxPreds-s.minPreds+1)
	var preds []core.Predicate
	for _, idx := range Choices(s.rng, s.weights, n) {
		p, ok, err := s.build(s.families[idx], point, pool)
		if err != nil {
			return nil, err
		}
		if ok {
			preds = append(preds, p)
		}
	}
	return preds, nil
}

// Clause samples a full clause for point. ok is false when no predicate
// could be formed.
func (s *Sampler) Clause(point string, pool []string) (core.Clause, bool, error) {
	preds, err := s.Sample(point, pool)
	if err != nil || len(preds) == 0 {
		return core.Clause{}, false, err
	}
	return core.Clause{Points: []string{point}, Preds: preds}, true, nil
}

// Build draws dependency points for the named family and translates the
// constraint. Families that cannot be generated, or whose distinctness
// requirement the pool cannot meet, are skipped (ok=false) without retrying.
func (s *Sampler) Build(name, point string, pool []string) (core.Predicate, bool, error) {
	for _, f := range s.families {
		if f.cfg.Name == name {
			return s.build(f, point, pool)
		}
	}
	return core.Predicate{}, false, fmt.Errorf("%w: %q not configured", core.ErrUnsupportedFamily, name)
}

func (s *Sampler) build(f family, point string, pool []string) (core.Predicate, bool, error) {
	if !f.cfg.Generatable {
		slog.Debug("family not generatable", "family", f.cfg.Name, "point", point)
		return core.Predicate{}, false, nil
	}

	deps, err := s.dependencies(f.cfg, pool)
	if errors.Is(err, core.ErrInsufficientPoints) {
		slog.Debug("skipping family", "family", f.cfg.Name, "point", point, "pool", len(pool))
		return core.Predicate{}, false, nil
	}
	if err != nil {
		return core.Predicate{}, false, err
	}

	p, err := translate.Translate(point, f.Family, append([]string{point}, deps...))
	if err != nil {
		return core.Predicate{}, false, fmt.Errorf("translate %s for %s: %w", f.cfg.Name, point, err)
	}
	return p, true, nil
}

func (s *Sampler) dependencies(cfg registry.FamilyConfig, pool []string) ([]string, error) {
	if cfg.UniqueArgs {
		if cfg.Arity > len(pool)+1 {
			return nil, fmt.Errorf("%w: %s needs %d", core.ErrInsufficientPoints, cfg.Name, cfg.Arity-1)
		}
		return UniqueChoices(s.rng, pool, nil, cfg.Arity-1)
	}
	half := cfg.Arity / 2
	first, err := UniqueChoices(s.rng, pool, nil, half-1)
	if err != nil {
		return nil, err
	}
	second, err := UniqueChoices(s.rng, pool, nil, half)
	if err != nil {
		return nil, err
	}
	return append(first, second...), nil
}
