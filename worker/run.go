package worker

import (
	"context"
	"errors"

	"github.com/snow-ghost/geosynth/core"
	"github.com/snow-ghost/geosynth/proof"
)

// Solution placeholders for scripts that have no proof to show.
const (
	SolutionNoGoal = "No Goal"
	SolutionFalse  = "False"
)

// relationNames are always present in RunResult.Relations, empty or not.
var relationNames = []string{
	"coll", "para", "perp", "cong", "eqangle", "eqangle6",
	"eqratio", "eqratio6", "cyclic", "midp", "circle",
}

// RunResult is a solved script as served by the run endpoint.
type RunResult struct {
	Script      string                `json:"script"`
	Goal        string                `json:"goal,omitempty"`
	Status      string                `json:"status"`
	Proved      bool                  `json:"proved"`
	ProofLength int                   `json:"proof_length"`
	Relations   map[string][][]string `json:"relations"`
	Solution    string                `json:"solution"`
	Proof       *core.ProofDict       `json:"proof,omitempty"`
}

// RunScript builds and saturates a single script, then proves its goal.
// A script without a goal yields SolutionNoGoal and an unprovable goal
// yields SolutionFalse; both are results, not errors. Build rejections are
// returned unchanged; everything after is a solve failure.
func RunScript(ctx context.Context, p core.Prover, script core.Script, opts core.SolveOptions) (RunResult, error) {
	model, err := p.Build(ctx, script)
	if err != nil {
		return RunResult{}, err
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	res, err := p.Solve(ctx, model, script, opts)
	if err != nil {
		return RunResult{}, solveError(err)
	}

	out := RunResult{
		Script:    script.String(),
		Status:    res.Status,
		Relations: Relations(res.AllAdded),
		Solution:  SolutionNoGoal,
	}
	if script.Goal == nil {
		return out, nil
	}

	out.Goal = script.Goal.String()
	trace, err := p.ProofTrace(ctx, res.Model, *script.Goal)
	if errors.Is(err, core.ErrNoGoal) {
		out.Solution = SolutionFalse
		return out, nil
	}
	if err != nil {
		return RunResult{}, solveError(err)
	}

	dict := proof.BuildDict(trace)
	out.Proved = true
	out.ProofLength = trace.Length()
	out.Solution = proof.WriteSolution(trace)
	out.Proof = &dict
	return out, nil
}

// Relations groups facts by predicate name, keeping each fact's points in
// order. The common relation names are always present.
func Relations(facts []core.Fact) map[string][][]string {
	out := make(map[string][][]string, len(relationNames))
	for _, name := range relationNames {
		out[name] = [][]string{}
	}
	for _, f := range facts {
		out[f.Name] = append(out[f.Name], append([]string(nil), f.Args...))
	}
	return out
}
