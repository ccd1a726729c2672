package registry

import (
	"fmt"
	"strings"
	"time"

	"github.com/snow-ghost/geosynth/core"
	"github.com/snow-ghost/geosynth/translate"
)

// FamilyConfig describes a constrained predicate family available to the sampler.
type FamilyConfig struct {
	Name   string  `json:"name" yaml:"name"` // perp|para|cong|coll|eqangle|cyclic
	Arity  int     `json:"arity" yaml:"arity"`
	Weight float64 `json:"weight" yaml:"weight"`
	// UniqueArgs requires every dependency argument to be distinct.
	UniqueArgs bool `json:"unique_args" yaml:"unique_args"`
	// Generatable false keeps the family selectable but always skipped.
	Generatable bool `json:"generatable" yaml:"generatable"`
}

// PrimitiveConfig describes a base figure. Compound primitives carry clause
// templates with {a1}..{aN} placeholders.
type PrimitiveConfig struct {
	Name    string   `json:"name" yaml:"name"`
	Arity   int      `json:"arity" yaml:"arity"`
	Weight  float64  `json:"weight" yaml:"weight"`
	Clauses []string `json:"clauses,omitempty" yaml:"clauses,omitempty"`
}

// SearchConfig holds the difficulty search knobs.
type SearchConfig struct {
	MaxRejectedRounds int           `json:"max_rejected_rounds" yaml:"max_rejected_rounds"`
	MaxRounds         int           `json:"max_rounds" yaml:"max_rounds"`
	MinAux            int           `json:"min_aux" yaml:"min_aux"`
	MaxAux            int           `json:"max_aux" yaml:"max_aux"`
	MaxAttempts       int           `json:"max_attempts" yaml:"max_attempts"`
	MinPredicates     int           `json:"min_predicates" yaml:"min_predicates"`
	MaxPredicates     int           `json:"max_predicates" yaml:"max_predicates"`
	MaxLevel          int           `json:"max_level" yaml:"max_level"`
	SolveTimeout      time.Duration `json:"solve_timeout" yaml:"solve_timeout"`
	MinProofLength    int           `json:"min_proof_length" yaml:"min_proof_length"`
	MinScore          int           `json:"min_score" yaml:"min_score"`
}

// Registry is the generator catalogue.
type Registry struct {
	Alphabet   []string          `json:"alphabet" yaml:"alphabet"`
	Families   []FamilyConfig    `json:"families" yaml:"families"`
	Primitives []PrimitiveConfig `json:"primitives" yaml:"primitives"`
	Search     SearchConfig      `json:"search" yaml:"search"`
}

// FindFamily returns the family named name.
func (r *Registry) FindFamily(name string) *FamilyConfig {
	for i := range r.Families {
		if r.Families[i].Name == name {
			return &r.Families[i]
		}
	}
	return nil
}

// FindPrimitive returns the primitive named name.
func (r *Registry) FindPrimitive(name string) *PrimitiveConfig {
	for i := range r.Primitives {
		if r.Primitives[i].Name == name {
			return &r.Primitives[i]
		}
	}
	return nil
}

// PrimitiveNames returns the names the model builder must know for base
// figures, including those used inside compound templates.
func (r *Registry) PrimitiveNames() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(name string) {
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	for _, p := range r.Primitives {
		if len(p.Clauses) == 0 {
			add(p.Name)
			continue
		}
		for _, tmpl := range p.Clauses {
			c, err := core.ParseClause(tmpl)
			if err != nil {
				continue
			}
			for _, pred := range c.Preds {
				add(pred.Name)
			}
		}
	}
	return out
}

// Validate checks the catalogue for inconsistencies that would only surface
// mid-search.
func (r *Registry) Validate() error {
	if len(r.Families) == 0 {
		return fmt.Errorf("registry has no families")
	}
	if len(r.Primitives) == 0 {
		return fmt.Errorf("registry has no primitives")
	}
	for _, f := range r.Families {
		fam, err := translate.ParseFamily(f.Name)
		if err != nil {
			return fmt.Errorf("family %s: %w", f.Name, err)
		}
		if f.Arity != fam.Arity() {
			return fmt.Errorf("family %s: arity %d, translator expects %d", f.Name, f.Arity, fam.Arity())
		}
		if f.Weight < 0 {
			return fmt.Errorf("family %s: negative weight", f.Name)
		}
	}
	total := 0.0
	for _, p := range r.Primitives {
		if p.Arity <= 0 {
			return fmt.Errorf("primitive %s: arity must be positive", p.Name)
		}
		if p.Weight < 0 {
			return fmt.Errorf("primitive %s: negative weight", p.Name)
		}
		total += p.Weight
		if _, err := p.Expand(placeholderNames(p.Arity)); err != nil {
			return fmt.Errorf("primitive %s: %w", p.Name, err)
		}
	}
	if total == 0 {
		return fmt.Errorf("every primitive has zero weight")
	}
	s := r.Search
	if s.MinAux < 0 || s.MaxAux < s.MinAux {
		return fmt.Errorf("search: aux range [%d, %d] is empty", s.MinAux, s.MaxAux)
	}
	if s.MinPredicates < 1 || s.MaxPredicates < s.MinPredicates {
		return fmt.Errorf("search: predicate range [%d, %d] is empty", s.MinPredicates, s.MaxPredicates)
	}
	return nil
}

func placeholderNames(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("p%d", i+1)
	}
	return out
}

// Expand instantiates the primitive with names. Plain primitives become a single
// "<names> = <name> <names>" clause.
func (p PrimitiveConfig) Expand(names []string) ([]core.Clause, error) {
	if len(names) != p.Arity {
		return nil, fmt.Errorf("primitive %s needs %d names, got %d", p.Name, p.Arity, len(names))
	}
	if len(p.Clauses) == 0 {
		return []core.Clause{{
			Points: append([]string(nil), names...),
			Preds:  []core.Predicate{{Name: p.Name, Args: append([]string(nil), names...)}},
		}}, nil
	}

	pairs := make([]string, 0, 2*len(names))
	for i, n := range names {
		pairs = append(pairs, fmt.Sprintf("{a%d}", i+1), n)
	}
	r := strings.NewReplacer(pairs...)

	clauses := make([]core.Clause, 0, len(p.Clauses))
	for _, tmpl := range p.Clauses {
		text := r.Replace(tmpl)
		if strings.Contains(text, "{") {
			return nil, fmt.Errorf("template %q has unbound placeholders", tmpl)
		}
		c, err := core.ParseClause(text)
		if err != nil {
			return nil, err
		}
		clauses = append(clauses, c)
	}
	s := core.Script{Clauses: clauses, Base: len(clauses)}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if got := len(s.Points()); got != p.Arity {
		return nil, fmt.Errorf("template introduces %d points, arity is %d", got, p.Arity)
	}
	return clauses, nil
}
