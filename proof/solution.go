package proof

import (
	"fmt"
	"strings"

	"github.com/snow-ghost/geosynth/core"
)

// ruleNames maps rules with a well-known name.
var ruleNames = map[string]string{
	"r32": "(SSS)",
	"r33": "(SAS)",
	"r34": "(Similar Triangles)",
	"r35": "(Similar Triangles)",
	"r36": "(ASA)",
	"r37": "(ASA)",
	"r38": "(Similar Triangles)",
	"r39": "(Similar Triangles)",
	"r40": "(Congruent Triangles)",
	"a00": "(Distance chase)",
	"a01": "(Ratio chase)",
	"a02": "(Angle chase)",
}

const rule = "=========================="

// WriteSolution renders the trace as premises, auxiliary constructions and
// numbered proof steps. Statements cite earlier facts as [NN].
func WriteSolution(trace core.ProofTrace) string {
	refs := newRefIndex(trace)
	var b strings.Builder

	b.WriteString("\n" + rule + "\n")
	b.WriteString(" * From theorem premises:\n")
	writeConstructions(&b, refs, trace.Setup)

	b.WriteString("\n\n * Auxiliary Constructions:\n")
	writeConstructions(&b, refs, trace.Aux)

	b.WriteString("\n\n * Proof steps:\n")
	for i, step := range trace.Steps {
		last := i == len(trace.Steps)-1
		fmt.Fprintf(&b, "%03d. %s\n", i+1, stepString(refs, step, last))
	}
	b.WriteString(rule + "\n")
	return b.String()
}

func writeConstructions(b *strings.Builder, refs *refIndex, group []core.Construction) {
	var premises []string
	for _, c := range group {
		for _, p := range c.Points {
			b.WriteString(strings.ToUpper(p) + " ")
		}
		for _, f := range c.Premises {
			premises = append(premises, fmt.Sprintf("%s [%02d]", Statement(f), refs.id(f)))
		}
	}
	b.WriteString(": Points\n")
	b.WriteString(strings.Join(premises, "\n"))
}

func stepString(refs *refIndex, step core.ProofStep, last bool) string {
	premises := make([]string, len(step.Premises))
	for i, p := range step.Premises {
		premises[i] = fmt.Sprintf("%s [%02d]", Statement(p), refs.id(p))
	}
	lhs := strings.Join(premises, " & ")
	if len(premises) == 0 {
		lhs = "similarly"
	}

	conclusions := make([]string, len(step.Conclusions))
	ruleName := ""
	for i, c := range step.Conclusions {
		id := refs.id(c)
		conclusions[i] = Statement(c)
		if !last {
			conclusions[i] += fmt.Sprintf(" [%02d]", id)
		}
		if n, ok := ruleNames[c.Rule]; ok {
			ruleName = n
		}
	}
	return fmt.Sprintf("%s %s⇒  %s", lhs, ruleName, strings.Join(conclusions, " & "))
}
