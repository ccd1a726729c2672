package core

import (
	"fmt"
	"strings"
)

// FreePredicate keeps a point defined without constraining it.
const FreePredicate = "free"

// FreePoint returns the placeholder predicate for p.
func FreePoint(p string) Predicate {
	return Predicate{Name: FreePredicate, Args: []string{p}}
}

func (p Predicate) String() string {
	if len(p.Args) == 0 {
		return p.Name
	}
	return p.Name + " " + strings.Join(p.Args, " ")
}

func (c Clause) String() string {
	preds := make([]string, len(c.Preds))
	for i, p := range c.Preds {
		preds[i] = p.String()
	}
	return strings.Join(c.Points, " ") + " = " + strings.Join(preds, ", ")
}

// String renders the script in the text form accepted by the model builder.
func (s Script) String() string {
	clauses := make([]string, len(s.Clauses))
	for i, c := range s.Clauses {
		clauses[i] = c.String()
	}
	out := strings.Join(clauses, "; ")
	if s.Goal != nil {
		out += " ? " + s.Goal.String()
	}
	return out
}

// ParseScript parses "<pts> = <pred> <args>, ...; ... [? goal]".
// The first clause is taken as the base figure.
func ParseScript(text string) (Script, error) {
	body, goalText, hasGoal := strings.Cut(text, "?")
	var s Script
	for _, raw := range strings.Split(body, ";") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		c, err := ParseClause(raw)
		if err != nil {
			return Script{}, err
		}
		s.Clauses = append(s.Clauses, c)
	}
	if len(s.Clauses) == 0 {
		return Script{}, fmt.Errorf("%w: no clauses", ErrMalformedScript)
	}
	s.Base = 1
	if hasGoal {
		g, err := ParsePredicate(goalText)
		if err != nil {
			return Script{}, fmt.Errorf("goal: %w", err)
		}
		s.Goal = &g
	}
	return s, nil
}

// ParseClause parses a single "<pts> = <pred> <args>, ..." clause.
func ParseClause(text string) (Clause, error) {
	lhs, rhs, ok := strings.Cut(text, "=")
	if !ok {
		return Clause{}, fmt.Errorf("%w: clause %q has no '='", ErrMalformedScript, strings.TrimSpace(text))
	}
	points := strings.Fields(lhs)
	if len(points) == 0 {
		return Clause{}, fmt.Errorf("%w: clause %q introduces no points", ErrMalformedScript, strings.TrimSpace(text))
	}
	c := Clause{Points: points}
	for _, call := range strings.Split(rhs, ",") {
		p, err := ParsePredicate(call)
		if err != nil {
			return Clause{}, err
		}
		c.Preds = append(c.Preds, p)
	}
	return c, nil
}

func ParsePredicate(text string) (Predicate, error) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return Predicate{}, fmt.Errorf("%w: empty predicate", ErrMalformedScript)
	}
	return Predicate{Name: fields[0], Args: fields[1:]}, nil
}

// Points returns every introduced point name in clause order.
func (s Script) Points() []string {
	var out []string
	for _, c := range s.Clauses {
		out = append(out, c.Points...)
	}
	return out
}

// BasePoints returns the points introduced by the base figure.
func (s Script) BasePoints() []string {
	var out []string
	for i := 0; i < s.Base && i < len(s.Clauses); i++ {
		out = append(out, s.Clauses[i].Points...)
	}
	return out
}

// Clone returns a deep copy.
func (s Script) Clone() Script {
	out := Script{Base: s.Base, Clauses: make([]Clause, len(s.Clauses))}
	for i, c := range s.Clauses {
		out.Clauses[i] = c.Clone()
	}
	if s.Goal != nil {
		g := s.Goal.Clone()
		out.Goal = &g
	}
	return out
}

func (c Clause) Clone() Clause {
	out := Clause{Points: append([]string(nil), c.Points...), Preds: make([]Predicate, len(c.Preds))}
	for i, p := range c.Preds {
		out.Preds[i] = p.Clone()
	}
	return out
}

func (p Predicate) Clone() Predicate {
	return Predicate{Name: p.Name, Args: append([]string(nil), p.Args...)}
}

// WithClause returns a copy of s with c appended.
func (s Script) WithClause(c Clause) Script {
	out := s.Clone()
	out.Clauses = append(out.Clauses, c.Clone())
	return out
}

// WithGoal returns a copy of s asking for goal.
func (s Script) WithGoal(goal Predicate) Script {
	out := s.Clone()
	out.Goal = &goal
	return out
}

// Validate checks that every clause only references points introduced by an
// earlier clause or by itself, and that introduced names are pairwise distinct.
// Goal arguments are not checked since goals may carry constants.
func (s Script) Validate() error {
	defined := make(map[string]bool)
	for i, c := range s.Clauses {
		if len(c.Points) == 0 || len(c.Preds) == 0 {
			return fmt.Errorf("%w: clause %d is empty", ErrMalformedScript, i)
		}
		local := make(map[string]bool, len(c.Points))
		for _, p := range c.Points {
			if defined[p] || local[p] {
				return fmt.Errorf("%w: point %q introduced twice", ErrMalformedScript, p)
			}
			local[p] = true
		}
		for _, pred := range c.Preds {
			for _, a := range pred.Args {
				if !defined[a] && !local[a] {
					return fmt.Errorf("%w: clause %d (%s) references undefined point %q", ErrMalformedScript, i, c, a)
				}
			}
		}
		for p := range local {
			defined[p] = true
		}
	}
	return nil
}
