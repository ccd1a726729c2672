package worker

import (
	"context"
	"math/rand"

	"github.com/snow-ghost/geosynth/archive"
	"github.com/snow-ghost/geosynth/core"
)

// Generator produces one accepted problem per call. *Solver implements it.
type Generator interface {
	Search(ctx context.Context, rng *rand.Rand) (core.Problem, error)
}

// Store persists accepted problems. *archive.Store implements it.
type Store interface {
	Save(ctx context.Context, p core.Problem) error
	Get(ctx context.Context, id string) (core.Problem, error)
	List(ctx context.Context, filter archive.Filter) ([]core.Problem, error)
	Count(ctx context.Context, filter archive.Filter) (int64, error)
	StatsByPrimitive(ctx context.Context) ([]archive.PrimitiveStats, error)
}

var (
	_ Generator = (*Solver)(nil)
	_ Store     = (*archive.Store)(nil)
)
