// Package minimize prunes construction scripts down to the points a proof
// actually uses.
package minimize

import (
	"github.com/snow-ghost/geosynth/core"
)

// Set is a set of point names.
type Set map[string]bool

// NewSet builds a set from names.
func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, n := range names {
		s[n] = true
	}
	return s
}

// DeleteAuxAndDeps removes the clauses introducing points in toDelete and
// every predicate that mentions one of them. A clause left without predicates
// keeps its points as free points so later references stay defined. Base
// clauses are never touched. This is a single forward pass.
func DeleteAuxAndDeps(s core.Script, toDelete Set) core.Script {
	out := core.Script{Base: s.Base}
	for i, c := range s.Clauses {
		if i < s.Base {
			out.Clauses = append(out.Clauses, c.Clone())
			continue
		}

		var points []string
		for _, p := range c.Points {
			if !toDelete[p] {
				points = append(points, p)
			}
		}
		if len(points) == 0 {
			continue
		}

		pruned := core.Clause{Points: points}
		for _, pred := range c.Preds {
			if !mentions(pred, toDelete) {
				pruned.Preds = append(pruned.Preds, pred.Clone())
			}
		}
		if len(pruned.Preds) == 0 {
			for _, p := range points {
				pruned.Preds = append(pruned.Preds, core.FreePoint(p))
			}
		}
		out.Clauses = append(out.Clauses, pruned)
	}
	if s.Goal != nil && !mentions(*s.Goal, toDelete) {
		g := s.Goal.Clone()
		out.Goal = &g
	}
	return out
}

func mentions(p core.Predicate, set Set) bool {
	for _, a := range p.Args {
		if set[a] {
			return true
		}
	}
	return false
}

// KeepSet collects the points a proof relies on: the base figure, every point
// named by the trace's setup and auxiliary constructions, and the goal's
// points. Names that are not points of s (numeric constants) are ignored.
func KeepSet(s core.Script, trace core.ProofTrace) Set {
	points := NewSet(s.Points()...)
	keep := NewSet(s.BasePoints()...)
	add := func(names []string) {
		for _, n := range names {
			if points[n] {
				keep[n] = true
			}
		}
	}
	for _, group := range [][]core.Construction{trace.Setup, trace.Aux} {
		for _, c := range group {
			add(c.Points)
			for _, f := range c.Premises {
				add(f.Args)
			}
		}
	}
	if s.Goal != nil {
		add(s.Goal.Args)
	}
	return keep
}

// Minimize deletes every point of s outside keep.
func Minimize(s core.Script, keep Set) core.Script {
	toDelete := make(Set)
	for _, p := range s.Points() {
		if !keep[p] {
			toDelete[p] = true
		}
	}
	for _, p := range s.BasePoints() {
		delete(toDelete, p)
	}
	return DeleteAuxAndDeps(s, toDelete)
}
