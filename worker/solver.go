// worker/solver.go
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/snow-ghost/geosynth/builder"
	"github.com/snow-ghost/geosynth/core"
	"github.com/snow-ghost/geosynth/minimize"
	"github.com/snow-ghost/geosynth/pkg/metrics"
	"github.com/snow-ghost/geosynth/pkg/registry"
	"github.com/snow-ghost/geosynth/pkg/tracing"
	"github.com/snow-ghost/geosynth/proof"
	"github.com/snow-ghost/geosynth/sampler"
	"github.com/snow-ghost/geosynth/symbols"
	"github.com/snow-ghost/geosynth/worker/telemetry"
)

// Solver runs the difficulty search. Metrics is optional. Rules are handed
// to every Solve call. A Solver is safe for concurrent searches once
// configured.
type Solver struct {
	Registry  *registry.Registry
	Prover    core.Prover
	Rules     []core.Rule
	Critic    *core.RetryCritic
	Metrics   *metrics.PrometheusMetrics
	Tracer    *tracing.Tracer
	Telemetry *telemetry.Telemetry
}

// NewSolver wires a solver whose critic uses the registry's thresholds.
func NewSolver(reg *registry.Registry, prover core.Prover) *Solver {
	disc := core.NewDiscriminator(reg.Search.MinProofLength, reg.Search.MinScore)
	return &Solver{
		Registry:  reg,
		Prover:    prover,
		Critic:    core.NewRetryCritic(disc, reg.Search.MaxRejectedRounds),
		Tracer:    tracing.NewNoop(),
		Telemetry: telemetry.NewTelemetry(),
	}
}

// candidate is a solved, not yet minimized round.
type candidate struct {
	primitive registry.PrimitiveConfig
	script    core.Script
	goal      core.Predicate
	trace     core.ProofTrace
	aux       int
}

// Search samples rounds until one is accepted, then minimizes and re-solves
// it. Every call to Search owns its own allocator and sampler; rng is the
// only source of randomness.
func (s *Solver) Search(ctx context.Context, rng *rand.Rand) (core.Problem, error) {
	start := time.Now()
	ctx, span := s.tracer().StartSearchSpan(ctx)
	defer span.End()

	smp, err := sampler.New(s.Registry, rng)
	if err != nil {
		tracing.RecordSpanError(span, err)
		return core.Problem{}, err
	}

	cfg := s.Registry.Search
	rejected := 0
	for round := 1; cfg.MaxRounds <= 0 || round <= cfg.MaxRounds; round++ {
		if err := ctx.Err(); err != nil {
			tracing.RecordSpanError(span, err)
			return core.Problem{}, err
		}

		// 1) SAMPLING -> BUILT -> SOLVED
		c, err := s.round(ctx, rng, smp, round)
		if err != nil {
			if ctx.Err() != nil {
				tracing.RecordSpanError(span, ctx.Err())
				return core.Problem{}, ctx.Err()
			}
			if !isRoundFailure(err) {
				tracing.RecordSpanError(span, err)
				return core.Problem{}, err
			}
			s.telemetry().LogRoundAborted(ctx, round, err)
			s.recordRound("aborted")
			continue
		}

		// 2) ACCEPTED or RETRY
		proofLength := c.trace.Length()
		ok, reason := s.Critic.Accept(core.Verdict{
			ProofLength: proofLength,
			BaseArity:   c.primitive.Arity,
			AuxCount:    c.aux,
			Rejected:    rejected,
		})
		score := s.Critic.Disc.Score(proofLength, c.primitive.Arity, c.aux)
		s.telemetry().LogRoundEnd(ctx, round, c.primitive.Name, c.aux, proofLength, score, ok, reason)
		if !ok {
			rejected++
			s.recordRound("rejected")
			continue
		}
		forced := reason == core.ReasonForced

		// 3) MINIMIZING -> FINAL_SOLVE
		p, err := s.finalize(ctx, rng, c, round, forced)
		if err != nil {
			if ctx.Err() != nil {
				tracing.RecordSpanError(span, ctx.Err())
				return core.Problem{}, ctx.Err()
			}
			if !isRoundFailure(err) {
				tracing.RecordSpanError(span, err)
				return core.Problem{}, err
			}
			s.telemetry().LogRoundAborted(ctx, round, err)
			s.recordRound("aborted")
			continue
		}

		took := time.Since(start)
		if forced {
			s.recordRound("forced")
		} else {
			s.recordRound("accepted")
		}
		if s.Metrics != nil {
			s.Metrics.RecordProblem(p.Primitive, p.Forced, p.ProofLength, p.AuxCount, took)
		}
		s.telemetry().LogAccepted(ctx, p.ID, round, p.ProofLength, p.Score, forced, took)
		tracing.RecordSpanProof(span, p.ProofLength, p.Score, true)
		tracing.RecordSpanDuration(span, took)
		tracing.RecordSpanSuccess(span)
		return p, nil
	}

	tracing.RecordSpanError(span, core.ErrSearchExhausted)
	return core.Problem{}, fmt.Errorf("%w after %d rounds", core.ErrSearchExhausted, cfg.MaxRounds)
}

// round builds one random construction and solves it. The goal is the last
// fact the reasoner added.
func (s *Solver) round(ctx context.Context, rng *rand.Rand, smp *sampler.Sampler, round int) (*candidate, error) {
	cfg := s.Registry.Search

	prim, err := s.choosePrimitive(rng)
	if err != nil {
		return nil, err
	}
	target := cfg.MinAux
	if cfg.MaxAux > cfg.MinAux {
		target += rng.Intn(cfg.MaxAux - cfg.MinAux + 1)
	}

	ctx, span := s.tracer().StartRoundSpan(ctx, round, prim.Name, target)
	defer span.End()
	s.telemetry().LogRoundStart(ctx, round, prim.Name, target)

	alloc := symbols.New(s.Registry.Alphabet)
	base, err := prim.Expand(alloc.Take(prim.Arity))
	if err != nil {
		tracing.RecordSpanError(span, err)
		return nil, fmt.Errorf("primitive %s: %w", prim.Name, err)
	}
	b := builder.New(s.Prover, smp, alloc)
	if err := b.Start(base); err != nil {
		tracing.RecordSpanError(span, err)
		return nil, err
	}

	aux := 0
	for attempt := 0; aux < target && (cfg.MaxAttempts <= 0 || attempt < cfg.MaxAttempts); attempt++ {
		out, err := b.Step(ctx)
		if err != nil {
			tracing.RecordSpanError(span, err)
			return nil, err
		}
		switch out {
		case builder.Accepted:
			aux++
		case builder.BuildFailed:
			if s.Metrics != nil {
				s.Metrics.RecordRejection()
			}
			s.telemetry().LogClauseRejected(ctx, alloc.Peek())
		}
	}

	script := b.Script()
	model := b.Model()
	if model == nil {
		if model, err = s.Prover.Build(ctx, script); err != nil {
			tracing.RecordSpanError(span, err)
			return nil, fmt.Errorf("%w: %v", core.ErrSolveFailed, err)
		}
	}

	res, trace, err := s.solve(ctx, model, script, nil)
	if err != nil {
		tracing.RecordSpanError(span, err)
		return nil, err
	}
	tracing.RecordSpanProof(span, trace.Length(), s.Critic.Disc.Score(trace.Length(), prim.Arity, aux), false)
	return &candidate{
		primitive: prim,
		script:    script,
		goal:      res.LastFactAdded.Predicate(),
		trace:     trace,
		aux:       aux,
	}, nil
}

// solve runs the reasoner under the configured level bound and timeout and
// traces goal, or the last added fact when goal is nil.
func (s *Solver) solve(ctx context.Context, model core.Model, script core.Script, goal *core.Predicate) (core.SolveResult, core.ProofTrace, error) {
	cfg := s.Registry.Search
	if cfg.SolveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.SolveTimeout)
		defer cancel()
	}

	res, err := s.Prover.Solve(ctx, model, script, core.SolveOptions{Rules: s.Rules, MaxLevel: cfg.MaxLevel, Timeout: cfg.SolveTimeout})
	if err != nil {
		return core.SolveResult{}, core.ProofTrace{}, solveError(err)
	}
	if goal == nil {
		if res.LastFactAdded == nil {
			return core.SolveResult{}, core.ProofTrace{}, core.ErrNoGoal
		}
		g := res.LastFactAdded.Predicate()
		goal = &g
	}
	trace, err := s.Prover.ProofTrace(ctx, res.Model, *goal)
	if err != nil {
		return core.SolveResult{}, core.ProofTrace{}, solveError(err)
	}
	return res, trace, nil
}

// finalize minimizes the accepted candidate and solves it once more; the
// returned problem describes the minimized script.
func (s *Solver) finalize(ctx context.Context, rng *rand.Rand, c *candidate, round int, forced bool) (core.Problem, error) {
	withGoal := c.script.WithGoal(c.goal)
	minimized := minimize.Minimize(withGoal, minimize.KeepSet(withGoal, c.trace))
	slog.DebugContext(ctx, "minimized",
		"round", round,
		"before", len(withGoal.Points()),
		"after", len(minimized.Points()),
	)

	model, err := s.Prover.Build(ctx, minimized)
	if err != nil {
		return core.Problem{}, fmt.Errorf("%w: rebuild minimized: %v", core.ErrSolveFailed, err)
	}
	_, trace, err := s.solve(ctx, model, minimized, &c.goal)
	if err != nil {
		return core.Problem{}, err
	}

	id, err := uuid.NewRandomFromReader(rng)
	if err != nil {
		id = uuid.New()
	}
	aux := auxCount(minimized)
	return core.Problem{
		ID:          id.String(),
		Primitive:   c.primitive.Name,
		Original:    withGoal.String(),
		Script:      minimized.String(),
		Goal:        c.goal.String(),
		AuxCount:    aux,
		BaseArity:   c.primitive.Arity,
		ProofLength: trace.Length(),
		Score:       s.Critic.Disc.Score(trace.Length(), c.primitive.Arity, aux),
		Rounds:      round,
		Forced:      forced,
		Solution:    proof.WriteSolution(trace),
		Proof:       proof.BuildDict(trace),
		Trace:       trace,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

func (s *Solver) choosePrimitive(rng *rand.Rand) (registry.PrimitiveConfig, error) {
	prims := s.Registry.Primitives
	weights := make([]float64, len(prims))
	for i, p := range prims {
		weights[i] = p.Weight
	}
	idx := sampler.WeightedIndex(rng, weights, len(weights))
	if idx < 0 {
		return registry.PrimitiveConfig{}, errors.New("no primitive with positive weight")
	}
	return prims[idx], nil
}

// auxCount counts clauses past the base that still constrain their point.
func auxCount(s core.Script) int {
	n := 0
	for _, c := range s.Clauses[s.Base:] {
		for _, p := range c.Preds {
			if p.Name != core.FreePredicate {
				n++
				break
			}
		}
	}
	return n
}

func (s *Solver) recordRound(outcome string) {
	if s.Metrics != nil {
		s.Metrics.RecordRound(outcome)
	}
}

func (s *Solver) tracer() *tracing.Tracer {
	if s.Tracer == nil {
		return tracing.NewNoop()
	}
	return s.Tracer
}

func (s *Solver) telemetry() *telemetry.Telemetry {
	if s.Telemetry == nil {
		return telemetry.NewTelemetry()
	}
	return s.Telemetry
}

// solveError keeps context errors intact and marks everything else as a
// solve failure.
func solveError(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", core.ErrSolveFailed, err)
	}
	if errors.Is(err, core.ErrSolveFailed) || errors.Is(err, core.ErrNoGoal) {
		return err
	}
	return fmt.Errorf("%w: %v", core.ErrSolveFailed, err)
}

// isRoundFailure reports errors that abort a single round.
func isRoundFailure(err error) bool {
	return errors.Is(err, core.ErrSolveFailed) || errors.Is(err, core.ErrNoGoal)
}
