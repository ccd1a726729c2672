package core

import (
	"strings"
	"time"
)

// Predicate is a named relation applied to point names, e.g. "on_line E A B".
type Predicate struct {
	Name string   `json:"name"`
	Args []string `json:"args"`
}

// Clause introduces one or more points constrained jointly by its predicates.
type Clause struct {
	Points []string    `json:"points"`
	Preds  []Predicate `json:"preds"`
}

// Script is an ordered sequence of clauses. The first Base clauses form the
// base figure and are never pruned.
type Script struct {
	Clauses []Clause   `json:"clauses"`
	Base    int        `json:"base"`
	Goal    *Predicate `json:"goal,omitempty"`
}

// Fact is a predicate instance emitted by the reasoner.
type Fact struct {
	Name string   `json:"name"`
	Args []string `json:"args"`
	Text string   `json:"text,omitempty"` // rendered by the reasoner
	Rule string   `json:"rule,omitempty"` // rule that derived it, e.g. "r32"
}

// Hash is the canonical key used by proof reference indexes.
func (f Fact) Hash() string {
	return f.Name + " " + strings.Join(f.Args, " ")
}

// Predicate converts the fact back into a script predicate.
func (f Fact) Predicate() Predicate {
	return Predicate{Name: f.Name, Args: append([]string(nil), f.Args...)}
}

// ProofStep derives Conclusions from Premises.
type ProofStep struct {
	Premises    []Fact `json:"premises"`
	Conclusions []Fact `json:"conclusions"`
}

// Construction lists the facts a group of points contributes to a proof.
type Construction struct {
	Premises []Fact   `json:"premises"`
	Points   []string `json:"points"`
}

// ProofTrace is the derivation of a goal as reported by the reasoner.
// Refs maps Fact.Hash to a reference number in first-appearance order.
type ProofTrace struct {
	Setup []Construction `json:"setup"`
	Aux   []Construction `json:"aux"`
	Steps []ProofStep    `json:"steps"`
	Refs  map[string]int `json:"refs"`
}

// Length is the proof length used by the discriminator.
func (t ProofTrace) Length() int {
	return len(t.Steps)
}

// Rule is a named deduction rule in the reasoner's text form,
// "premise, premise => conclusion".
type Rule struct {
	Name string `json:"name"`
	Text string `json:"text"`
}

// SolveOptions bounds a reasoner run. Rules are the deductions the reasoner
// may apply; an empty list leaves the choice to the reasoner.
type SolveOptions struct {
	Rules    []Rule
	MaxLevel int
	Timeout  time.Duration
}

// SolveResult is what the reasoner reports after saturating a model.
type SolveResult struct {
	Model         Model           `json:"-"`
	LevelTimes    []time.Duration `json:"level_times"`
	Status        string          `json:"status"`
	Branches      []int           `json:"branches"`
	AllAdded      []Fact          `json:"all_added"`
	LastFactAdded *Fact           `json:"last_fact_added,omitempty"`
}

// Problem is an accepted, minimized and re-solved construction.
type Problem struct {
	ID          string     `json:"id"`
	Primitive   string     `json:"primitive"`
	Original    string     `json:"original"`
	Script      string     `json:"script"`
	Goal        string     `json:"goal"`
	AuxCount    int        `json:"aux_count"`
	BaseArity   int        `json:"base_arity"`
	ProofLength int        `json:"proof_length"`
	Score       int        `json:"score"`
	Rounds      int        `json:"rounds"`
	Forced      bool       `json:"forced"`
	Solution    string     `json:"solution"`
	Proof       ProofDict  `json:"proof"`
	Trace       ProofTrace `json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ProofDict is the structured proof consumed by serving layers.
type ProofDict struct {
	Preds         map[string]PredEntry `json:"preds"`
	SolutionSteps []SolutionStep       `json:"solution_steps"`
}

type PredEntry struct {
	Text string   `json:"text"`
	Pred string   `json:"pred"`
	Args []string `json:"args"`
}

type SolutionStep struct {
	Inputs  []int `json:"inputs"`
	Outputs []int `json:"outputs"`
}
