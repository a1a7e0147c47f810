package fol

import (
	"fmt"
	"strings"
)

// Prover9 renders f in Prover9 syntax. Constants that Prover9 would read
// as free variables (leading u through z) are prefixed with "c_".
func (f *Formula) Prover9() string {
	switch f.Op {
	case OpAtom:
		if len(f.Args) == 0 {
			return f.Pred
		}
		names := make([]string, len(f.Args))
		for i, a := range f.Args {
			names[i] = prover9Term(a)
		}
		return f.Pred + "(" + strings.Join(names, ",") + ")"
	case OpNot:
		switch f.L.Op {
		case OpAtom, OpForall, OpExists:
			return "-" + f.L.Prover9()
		}
		return "-(" + f.L.Prover9() + ")"
	case OpForall:
		return "(all " + f.Var + " " + f.L.prover9Operand() + ")"
	case OpExists:
		return "(exists " + f.Var + " " + f.L.prover9Operand() + ")"
	case OpXor:
		return "-(" + f.L.prover9Operand() + " <-> " + f.R.prover9Operand() + ")"
	}
	var op string
	switch f.Op {
	case OpAnd:
		op = "&"
	case OpOr:
		op = "|"
	case OpImplies:
		op = "->"
	case OpIff:
		op = "<->"
	}
	return f.L.prover9Operand() + " " + op + " " + f.R.prover9Operand()
}

func (f *Formula) prover9Operand() string {
	if f.Binary() && f.Op != OpXor {
		return "(" + f.Prover9() + ")"
	}
	return f.Prover9()
}

func prover9Term(t Term) string {
	if t.Var {
		return t.Name
	}
	return Prover9Name(t.Name)
}

// Prover9Name renders a constant or function symbol so that Prover9 does
// not take it for a variable.
func Prover9Name(name string) string {
	if name != "" && name[0] >= 'u' && name[0] <= 'z' {
		return "c_" + name
	}
	return name
}

// Prover9Input renders a complete Prover9 input file. maxSeconds <= 0
// leaves the search unbounded.
func Prover9Input(goal *Formula, assumptions []*Formula, maxSeconds int) string {
	var b strings.Builder
	if maxSeconds > 0 {
		fmt.Fprintf(&b, "assign(max_seconds, %d).\n\n", maxSeconds)
	}
	b.WriteString("formulas(assumptions).\n")
	for _, a := range assumptions {
		fmt.Fprintf(&b, "%s.\n", a.Prover9())
	}
	b.WriteString("end_of_list.\n\n")
	b.WriteString("formulas(goals).\n")
	fmt.Fprintf(&b, "%s.\n", goal.Prover9())
	b.WriteString("end_of_list.\n")
	return b.String()
}
