package core

import "context"

// Model is an opaque handle to a configuration owned by the model builder.
type Model any

// ModelBuilder turns a script into a consistent configuration. Rejections are
// reported as *BuildError.
type ModelBuilder interface {
	Build(ctx context.Context, script Script) (Model, error)
}

// Reasoner computes the closure of derivable facts and traces proofs.
type Reasoner interface {
	Solve(ctx context.Context, model Model, problem Script, opts SolveOptions) (SolveResult, error)
	ProofTrace(ctx context.Context, model Model, goal Predicate) (ProofTrace, error)
}

// Prover bundles both external collaborators.
type Prover interface {
	ModelBuilder
	Reasoner
}
