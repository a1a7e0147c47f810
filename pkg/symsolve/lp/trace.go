package lp

import (
	"fmt"
	"strings"

	"github.com/cognicore/symsolve/pkg/symsolve/answer"
	"github.com/cognicore/symsolve/pkg/symsolve/inference"
)

// tracer collects the derivations of one execution.
type tracer struct {
	derivations []inference.Derivation
}

func (t *tracer) Derived(d inference.Derivation) {
	t.derivations = append(t.derivations, d)
}

func (p *Program) renderTrace(tr *tracer, perStore [2]int, truth answer.Truth) string {
	var b strings.Builder
	b.WriteString("Facts:\n")
	for _, f := range p.facts {
		if f.skip {
			fmt.Fprintf(&b, "  %s  (skipped: mentions a variable)\n", f.line.Raw)
			continue
		}
		fmt.Fprintf(&b, "  %s\n", f.line.Raw)
	}
	b.WriteString("Rules:\n")
	for i, r := range p.rules {
		fmt.Fprintf(&b, "  %s: %s\n", r.Name, p.ruleLines[i].Raw)
	}
	b.WriteString("Derivations:\n")
	if len(tr.derivations) == 0 {
		b.WriteString("  (none)\n")
	}
	for i, d := range tr.derivations {
		premises := make([]string, len(d.Premises))
		for j, a := range d.Premises {
			premises[j] = a.String()
		}
		fmt.Fprintf(&b, "  [%d] %s: %s => %s", i+1, d.Rule.Name, strings.Join(premises, " && "), d.Conclusion)
		if d.Rule.Comment != "" {
			fmt.Fprintf(&b, " ::: %s", d.Rule.Comment)
		}
		b.WriteString("\n")
	}
	b.WriteString("Query:\n")
	fmt.Fprintf(&b, "  %s\n", p.query.line.Raw)
	fmt.Fprintf(&b, "  facts store: %d binding(s), rules store: %d binding(s)\n", perStore[0], perStore[1])
	fmt.Fprintf(&b, "Result: %s", truth)
	return b.String()
}
