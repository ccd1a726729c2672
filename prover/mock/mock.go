// Package mock is a deterministic in-process model builder and reasoner.
//
// Every auxiliary predicate yields one derived fact at its own level, so the
// proof of the last derived fact is one step per auxiliary predicate. It is
// good enough to drive the search loop offline and in tests.
package mock

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/snow-ghost/geosynth/core"
	"github.com/snow-ghost/geosynth/kb"
)

const statusSaturated = "saturated"

// Prover implements core.Prover.
type Prover struct {
	reject map[string]bool
	defs   *kb.KnowledgeBase
	builds atomic.Int64
	solves atomic.Int64
}

type model struct {
	script  core.Script
	derived []derivation
}

type derivation struct {
	premise    core.Fact
	conclusion core.Fact
}

// New returns a prover that rejects any script using one of the named
// predicates, in addition to malformed and degenerate ones.
func New(reject ...string) *Prover {
	p := &Prover{reject: make(map[string]bool, len(reject))}
	for _, name := range reject {
		p.reject[name] = true
	}
	return p
}

// WithDefinitions makes Build reject predicates that are undefined in defs
// or used with the wrong number of arguments.
func (p *Prover) WithDefinitions(defs *kb.KnowledgeBase) *Prover {
	p.defs = defs
	return p
}

// Build checks well-formedness and rejects predicates with a repeated
// argument or a rejected name.
func (p *Prover) Build(ctx context.Context, script core.Script) (core.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.builds.Add(1)

	if err := script.Validate(); err != nil {
		return nil, core.NewBuildError(script.String(), err)
	}
	for _, c := range script.Clauses {
		for _, pr := range c.Preds {
			if p.reject[pr.Name] {
				return nil, core.NewBuildError(script.String(), fmt.Errorf("rejected predicate %q", pr.Name))
			}
			if p.defs != nil {
				n, ok := p.defs.Arity(pr.Name)
				if !ok {
					return nil, core.NewBuildError(script.String(), fmt.Errorf("%w: %s", kb.ErrUndefined, pr.Name))
				}
				if n != len(pr.Args) {
					return nil, core.NewBuildError(script.String(), fmt.Errorf("%w: %s takes %d", core.ErrBadArity, pr.Name, n))
				}
			}
			if repeated(pr.Args) {
				return nil, core.NewBuildError(script.String(), fmt.Errorf("degenerate %s", pr))
			}
		}
	}
	return &model{script: script.Clone()}, nil
}

// Solve derives one fact per auxiliary predicate, one level each, up to
// opts.MaxLevel levels. Level i is credited to opts.Rules[i mod len], or to
// the chase rules when no rules are given.
func (p *Prover) Solve(ctx context.Context, m core.Model, problem core.Script, opts core.SolveOptions) (core.SolveResult, error) {
	mm, ok := m.(*model)
	if !ok {
		return core.SolveResult{}, fmt.Errorf("%w: unknown model %T", core.ErrSolveFailed, m)
	}
	p.solves.Add(1)

	var deadline time.Time
	if opts.Timeout > 0 {
		deadline = time.Now().Add(opts.Timeout)
	}

	mm.derived = mm.derived[:0]
	res := core.SolveResult{Model: mm, Status: statusSaturated}
	level := 0
	for i := problem.Base; i < len(problem.Clauses); i++ {
		for _, pr := range problem.Clauses[i].Preds {
			if pr.Name == core.FreePredicate || len(pr.Args) == 0 {
				continue
			}
			if err := ctx.Err(); err != nil {
				return core.SolveResult{}, err
			}
			if !deadline.IsZero() && time.Now().After(deadline) {
				return core.SolveResult{}, fmt.Errorf("%w: timeout after %s", core.ErrSolveFailed, opts.Timeout)
			}
			if opts.MaxLevel > 0 && level >= opts.MaxLevel {
				res.Status = "max_level"
				return finish(res, mm), nil
			}
			start := time.Now()
			d := derive(pr, ruleName(opts.Rules, level))
			mm.derived = append(mm.derived, d)
			res.AllAdded = append(res.AllAdded, d.conclusion)
			res.Branches = append(res.Branches, 1)
			res.LevelTimes = append(res.LevelTimes, time.Since(start))
			level++
		}
	}
	return finish(res, mm), nil
}

func finish(res core.SolveResult, mm *model) core.SolveResult {
	if n := len(res.AllAdded); n > 0 {
		last := res.AllAdded[n-1]
		res.LastFactAdded = &last
	}
	res.Model = mm
	return res
}

// ProofTrace returns the chain of derivations ending at goal.
func (p *Prover) ProofTrace(ctx context.Context, m core.Model, goal core.Predicate) (core.ProofTrace, error) {
	if err := ctx.Err(); err != nil {
		return core.ProofTrace{}, err
	}
	mm, ok := m.(*model)
	if !ok {
		return core.ProofTrace{}, fmt.Errorf("%w: unknown model %T", core.ErrSolveFailed, m)
	}

	want := core.Fact{Name: goal.Name, Args: goal.Args}.Hash()
	end := -1
	for i, d := range mm.derived {
		if d.conclusion.Hash() == want {
			end = i
			break
		}
	}
	if end < 0 {
		return core.ProofTrace{}, fmt.Errorf("%w: %s not derived", core.ErrNoGoal, goal)
	}

	trace := core.ProofTrace{Refs: make(map[string]int)}
	ref := func(f core.Fact) {
		if _, ok := trace.Refs[f.Hash()]; !ok {
			trace.Refs[f.Hash()] = len(trace.Refs)
		}
	}
	steps := mm.derived[:end+1]
	used := make(map[string]bool)
	for _, d := range steps {
		for _, a := range d.premise.Args {
			used[a] = true
		}
	}
	for i, c := range mm.script.Clauses {
		if i >= mm.script.Base && !introducesAny(c, used) {
			continue
		}
		con := core.Construction{Points: append([]string(nil), c.Points...)}
		for _, pr := range c.Preds {
			if pr.Name == core.FreePredicate {
				continue
			}
			f := core.Fact{Name: pr.Name, Args: append([]string(nil), pr.Args...)}
			con.Premises = append(con.Premises, f)
			ref(f)
		}
		if i < mm.script.Base {
			trace.Setup = append(trace.Setup, con)
		} else {
			trace.Aux = append(trace.Aux, con)
		}
	}
	for _, d := range steps {
		trace.Steps = append(trace.Steps, core.ProofStep{
			Premises:    []core.Fact{d.premise},
			Conclusions: []core.Fact{d.conclusion},
		})
	}
	return trace, nil
}

// Builds reports how many Build calls were made.
func (p *Prover) Builds() int64 { return p.builds.Load() }

// Solves reports how many Solve calls were made.
func (p *Prover) Solves() int64 { return p.solves.Load() }

func ruleName(rules []core.Rule, level int) string {
	if len(rules) == 0 {
		return fmt.Sprintf("a%02d", level%3)
	}
	return rules[level%len(rules)].Name
}

// derive rotates the predicate's arguments.
func derive(pr core.Predicate, rule string) derivation {
	premise := core.Fact{Name: pr.Name, Args: append([]string(nil), pr.Args...)}
	args := append(append([]string(nil), pr.Args[1:]...), pr.Args[0])
	return derivation{
		premise:    premise,
		conclusion: core.Fact{Name: pr.Name, Args: args, Rule: rule},
	}
}

func repeated(args []string) bool {
	seen := make(map[string]bool, len(args))
	for _, a := range args {
		if seen[a] {
			return true
		}
		seen[a] = true
	}
	return false
}

func introducesAny(c core.Clause, used map[string]bool) bool {
	for _, p := range c.Points {
		if used[p] {
			return true
		}
	}
	return false
}

var _ core.Prover = (*Prover)(nil)
