// Package kb loads the predicate definitions and deduction rules shared with
// the external prover. The knowledge base is read once and never mutated.
package kb

import (
	"bufio"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/snow-ghost/geosynth/core"
)

var (
	//go:embed defs.txt
	defaultDefs string
	//go:embed rules.txt
	defaultRules string
)

// ErrUndefined is returned by Validate for predicates without a definition.
var ErrUndefined = errors.New("undefined predicate")

// Definition is one block of the definitions file. Args are the formal
// arguments from the header line; Body holds the remaining lines verbatim.
type Definition struct {
	Name string
	Args []string
	Body []string
}

// Arity is the number of formal arguments.
func (d Definition) Arity() int { return len(d.Args) }

// Rule is one deduction rule, named by its position: r00, r01, ...
type Rule struct {
	Name       string
	Premises   []string
	Conclusion string
}

func (r Rule) String() string {
	return strings.Join(r.Premises, ", ") + " => " + r.Conclusion
}

// KnowledgeBase is the loaded definitions and rules.
type KnowledgeBase struct {
	defs  map[string]Definition
	rules []Rule
}

// Default returns the built-in knowledge base.
func Default() *KnowledgeBase {
	kb, err := Parse(strings.NewReader(defaultDefs), strings.NewReader(defaultRules))
	if err != nil {
		panic(fmt.Sprintf("kb: built-in knowledge base: %v", err))
	}
	return kb
}

// Load reads both files. An empty path selects the built-in content for
// that file.
func Load(defsPath, rulesPath string) (*KnowledgeBase, error) {
	defs, err := open(defsPath, defaultDefs)
	if err != nil {
		return nil, fmt.Errorf("open definitions: %w", err)
	}
	defer defs.Close()

	rules, err := open(rulesPath, defaultRules)
	if err != nil {
		return nil, fmt.Errorf("open rules: %w", err)
	}
	defer rules.Close()

	return Parse(defs, rules)
}

func open(path, fallback string) (io.ReadCloser, error) {
	if path == "" {
		return io.NopCloser(strings.NewReader(fallback)), nil
	}
	return os.Open(path)
}

// Parse reads definitions (blank-line separated blocks whose first line is
// "name arg...") and rules (one "premise, ... => conclusion" per line).
func Parse(defs, rules io.Reader) (*KnowledgeBase, error) {
	kb := &KnowledgeBase{defs: make(map[string]Definition)}

	blocks, err := readBlocks(defs)
	if err != nil {
		return nil, fmt.Errorf("read definitions: %w", err)
	}
	for _, block := range blocks {
		header := strings.Fields(block[0])
		d := Definition{Name: header[0], Args: header[1:], Body: block[1:]}
		if _, dup := kb.defs[d.Name]; dup {
			return nil, fmt.Errorf("definition %q appears twice", d.Name)
		}
		kb.defs[d.Name] = d
	}
	if len(kb.defs) == 0 {
		return nil, errors.New("no definitions")
	}

	sc := bufio.NewScanner(rules)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		lhs, rhs, ok := strings.Cut(text, "=>")
		if !ok {
			return nil, fmt.Errorf("rules line %d: missing '=>'", line)
		}
		r := Rule{Name: fmt.Sprintf("r%02d", len(kb.rules)), Conclusion: strings.TrimSpace(rhs)}
		for _, p := range strings.Split(lhs, ",") {
			if p = strings.TrimSpace(p); p != "" {
				r.Premises = append(r.Premises, p)
			}
		}
		if r.Conclusion == "" || len(r.Premises) == 0 {
			return nil, fmt.Errorf("rules line %d: empty side", line)
		}
		kb.rules = append(kb.rules, r)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	return kb, nil
}

func readBlocks(r io.Reader) ([][]string, error) {
	var blocks [][]string
	var cur []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \t\r")
		if strings.TrimSpace(line) == "" {
			if len(cur) > 0 {
				blocks = append(blocks, cur)
				cur = nil
			}
			continue
		}
		cur = append(cur, line)
	}
	if len(cur) > 0 {
		blocks = append(blocks, cur)
	}
	return blocks, sc.Err()
}

// Definition looks up a predicate by name.
func (kb *KnowledgeBase) Definition(name string) (Definition, bool) {
	d, ok := kb.defs[name]
	return d, ok
}

// Arity returns the formal argument count of a defined predicate.
func (kb *KnowledgeBase) Arity(name string) (int, bool) {
	d, ok := kb.defs[name]
	return d.Arity(), ok
}

// Names lists defined predicates, sorted.
func (kb *KnowledgeBase) Names() []string {
	names := make([]string, 0, len(kb.defs))
	for n := range kb.defs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Rules returns the deduction rules in file order.
func (kb *KnowledgeBase) Rules() []Rule {
	return append([]Rule(nil), kb.rules...)
}

// SolveRules returns the rules in the form handed to the reasoner.
func (kb *KnowledgeBase) SolveRules() []core.Rule {
	out := make([]core.Rule, len(kb.rules))
	for i, r := range kb.rules {
		out[i] = core.Rule{Name: r.Name, Text: r.String()}
	}
	return out
}

// Rule looks up a rule by its positional name.
func (kb *KnowledgeBase) Rule(name string) (Rule, bool) {
	for _, r := range kb.rules {
		if r.Name == name {
			return r, true
		}
	}
	return Rule{}, false
}

// Validate checks that every named predicate is defined, reporting all
// missing names at once.
func (kb *KnowledgeBase) Validate(names ...string) error {
	var missing []string
	seen := make(map[string]bool)
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		if _, ok := kb.defs[n]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: %s", ErrUndefined, strings.Join(missing, ", "))
	}
	return nil
}
