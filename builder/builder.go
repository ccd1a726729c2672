// Package builder grows a construction script one validated clause at a time.
package builder

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/snow-ghost/geosynth/core"
	"github.com/snow-ghost/geosynth/sampler"
	"github.com/snow-ghost/geosynth/symbols"
)

// Outcome of a single growth step.
type Outcome int

const (
	Accepted Outcome = iota
	NoPredicates
	BuildFailed
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case NoPredicates:
		return "no_predicates"
	case BuildFailed:
		return "build_failed"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Builder owns the growing script and the pool of points later clauses may
// depend on. The script only ever grows by clauses the model builder accepted.
type Builder struct {
	models  core.ModelBuilder
	sampler *sampler.Sampler
	alloc   *symbols.Allocator

	script core.Script
	pool   []string
	model  core.Model
}

func New(models core.ModelBuilder, s *sampler.Sampler, alloc *symbols.Allocator) *Builder {
	return &Builder{models: models, sampler: s, alloc: alloc}
}

// Start resets the builder to the base figure. Base clauses are committed
// without consulting the model builder.
func (b *Builder) Start(base []core.Clause) error {
	s := core.Script{Base: len(base)}
	for _, c := range base {
		s.Clauses = append(s.Clauses, c.Clone())
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("base figure: %w", err)
	}
	b.script = s
	b.pool = s.Points()
	b.model = nil
	return nil
}

// TryAppend submits script+clause to the model builder. On success the clause
// is committed and its points join the pool; on a build failure nothing
// changes and accepted is false. Only context errors and malformed clauses
// are returned as errors.
func (b *Builder) TryAppend(ctx context.Context, clause core.Clause) (bool, error) {
	candidate := b.script.WithClause(clause)
	if err := candidate.Validate(); err != nil {
		return false, err
	}

	model, err := b.models.Build(ctx, candidate)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		slog.DebugContext(ctx, "clause rejected by model builder", "clause", clause.String(), "error", err)
		return false, nil
	}

	b.script = candidate
	b.pool = append(b.pool, clause.Points...)
	b.model = model
	return true, nil
}

// Step samples a clause around the next free name and tries to append it.
// The name is only consumed from the allocator when the clause is accepted.
func (b *Builder) Step(ctx context.Context) (Outcome, error) {
	name := b.alloc.Peek()
	clause, ok, err := b.sampler.Clause(name, b.pool)
	if err != nil {
		return NoPredicates, err
	}
	if !ok {
		return NoPredicates, nil
	}
	accepted, err := b.TryAppend(ctx, clause)
	if err != nil {
		return BuildFailed, err
	}
	if !accepted {
		return BuildFailed, nil
	}
	b.alloc.Advance()
	return Accepted, nil
}

// Script returns a copy of the committed script.
func (b *Builder) Script() core.Script {
	return b.script.Clone()
}

// Pool returns the points eligible as dependencies.
func (b *Builder) Pool() []string {
	return append([]string(nil), b.pool...)
}

// Model returns the model of the last accepted clause, nil if none.
func (b *Builder) Model() core.Model {
	return b.model
}
