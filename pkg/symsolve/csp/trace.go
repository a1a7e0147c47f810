package csp

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cognicore/symsolve/pkg/symsolve/csp/fd"
	"github.com/cognicore/symsolve/pkg/symsolve/internalerr"
)

const maxTracedSolutions = 10

// tracer keeps the first max search events of one execution.
type tracer struct {
	max    int
	events []fd.Event
	total  int
}

func (t *tracer) Event(e fd.Event) {
	t.total++
	if len(t.events) < t.max {
		t.events = append(t.events, e)
	}
}

func isTimeout(err error) bool { return errors.Is(err, internalerr.ErrTimeout) }

func (p *Program) renderTrace(tr *tracer, solutions []fd.Solution) string {
	var b strings.Builder
	if len(p.domain) > 0 {
		b.WriteString("Domain:\n")
		for _, l := range p.domain {
			fmt.Fprintf(&b, "  %s\n", l.Raw)
		}
	}
	b.WriteString("Variables:\n")
	for _, v := range p.variables {
		fmt.Fprintf(&b, "  %s\n", v.Line.Raw)
	}
	b.WriteString("Constraints:\n")
	for _, c := range p.constraints {
		fmt.Fprintf(&b, "  [%d] %s\n", c.Index, c.Line.Raw)
	}

	b.WriteString("Search:\n")
	for _, e := range tr.events {
		indent := strings.Repeat("  ", e.Depth+1)
		switch e.Kind {
		case fd.EventAssign:
			fmt.Fprintf(&b, "%s%s = %s\n", indent, e.Var, e.Value)
		case fd.EventFail:
			if e.Var == "" {
				fmt.Fprintf(&b, "%sfail: constraint [%d] %s\n", indent, e.Constraint.Index, e.Reason)
				continue
			}
			fmt.Fprintf(&b, "%s  fail: constraint [%d] %s\n", indent, e.Constraint.Index, e.Constraint.Text)
		case fd.EventSolution:
			fmt.Fprintf(&b, "%ssolution\n", indent)
		}
	}
	if tr.total > len(tr.events) {
		fmt.Fprintf(&b, "  ... %d more event(s)\n", tr.total-len(tr.events))
	}

	fmt.Fprintf(&b, "Solutions: %d\n", len(solutions))
	for i, s := range solutions {
		if i == maxTracedSolutions {
			fmt.Fprintf(&b, "  ... %d more solution(s)\n", len(solutions)-i)
			break
		}
		parts := make([]string, len(p.variables))
		for j, v := range p.variables {
			parts[j] = fmt.Sprintf("%s=%s", v.Name, s[v.Name])
		}
		fmt.Fprintf(&b, "  {%s}\n", strings.Join(parts, ", "))
	}
	b.WriteString("Options:\n")
	for _, o := range p.options {
		fmt.Fprintf(&b, "  %s\n", o.Line.Raw)
	}
	return strings.TrimRight(b.String(), "\n")
}
