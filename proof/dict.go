// Package proof lays out a reasoner's proof trace as the artifacts served to
// downstream consumers.
package proof

import (
	"strconv"
	"strings"

	"github.com/snow-ghost/geosynth/core"
)

// refIndex numbers facts in first-appearance order, starting from the
// reasoner's own reference index.
type refIndex struct {
	ids   map[string]int
	facts map[string]core.Fact
	next  int
}

func newRefIndex(trace core.ProofTrace) *refIndex {
	r := &refIndex{ids: make(map[string]int, len(trace.Refs)), facts: make(map[string]core.Fact)}
	for h, id := range trace.Refs {
		r.ids[h] = id
		if id >= r.next {
			r.next = id + 1
		}
	}
	for _, group := range [][]core.Construction{trace.Setup, trace.Aux} {
		for _, c := range group {
			for _, f := range c.Premises {
				r.facts[f.Hash()] = f
			}
		}
	}
	return r
}

// id returns the reference for f, assigning the next free one if needed.
func (r *refIndex) id(f core.Fact) int {
	h := f.Hash()
	if _, ok := r.facts[h]; !ok || f.Text != "" {
		r.facts[h] = f
	}
	if id, ok := r.ids[h]; ok {
		return id
	}
	id := r.next
	r.ids[h] = id
	r.next++
	return id
}

// BuildDict converts a trace into {preds, solution_steps}.
func BuildDict(trace core.ProofTrace) core.ProofDict {
	refs := newRefIndex(trace)
	dict := core.ProofDict{
		Preds:         make(map[string]core.PredEntry),
		SolutionSteps: make([]core.SolutionStep, 0, len(trace.Steps)),
	}

	for _, step := range trace.Steps {
		s := core.SolutionStep{Inputs: make([]int, 0, len(step.Premises))}
		for _, p := range step.Premises {
			s.Inputs = append(s.Inputs, refs.id(p))
		}
		for _, c := range step.Conclusions {
			s.Outputs = append(s.Outputs, refs.id(c))
		}
		dict.SolutionSteps = append(dict.SolutionSteps, s)
	}

	for h, id := range refs.ids {
		f, ok := refs.facts[h]
		if !ok {
			name, args, _ := strings.Cut(h, " ")
			f = core.Fact{Name: name, Args: strings.Fields(args)}
		}
		dict.Preds[strconv.Itoa(id)] = core.PredEntry{
			Text: Statement(f),
			Pred: f.Name,
			Args: append([]string{}, f.Args...),
		}
	}
	return dict
}

// Statement is the display text of f: the reasoner's rendering when present,
// otherwise the predicate with point labels.
func Statement(f core.Fact) string {
	if f.Text != "" {
		return f.Text
	}
	labels := make([]string, len(f.Args))
	for i, a := range f.Args {
		labels[i] = Label(a)
	}
	return f.Name + " " + strings.Join(labels, " ")
}

// Label upper-cases a point name and subscripts any suffix: "a2" -> "A_2".
func Label(name string) string {
	n := strings.ToUpper(name)
	if len(n) > 1 {
		return n[:1] + "_" + n[1:]
	}
	return n
}
