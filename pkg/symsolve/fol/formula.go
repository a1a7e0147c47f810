package fol

import (
	"fmt"
	"sort"
	"strings"
)

// Op is the connective at the root of a formula.
type Op int

const (
	OpAtom Op = iota
	OpNot
	OpAnd
	OpOr
	OpXor
	OpImplies
	OpIff
	OpForall
	OpExists
)

var opSymbols = map[Op]string{
	OpNot: "¬", OpAnd: "∧", OpOr: "∨", OpXor: "⊕",
	OpImplies: "→", OpIff: "↔", OpForall: "∀", OpExists: "∃",
}

// Term is a constant or a variable bound by an enclosing quantifier.
type Term struct {
	Name string
	Var  bool
}

// Formula is a first-order formula without equality or function terms.
type Formula struct {
	Op   Op
	Pred string // OpAtom
	Args []Term // OpAtom
	Var  string // OpForall, OpExists
	L, R *Formula
}

func Atom(pred string, args ...Term) *Formula {
	return &Formula{Op: OpAtom, Pred: pred, Args: args}
}
func Not(f *Formula) *Formula        { return &Formula{Op: OpNot, L: f} }
func And(l, r *Formula) *Formula     { return &Formula{Op: OpAnd, L: l, R: r} }
func Or(l, r *Formula) *Formula      { return &Formula{Op: OpOr, L: l, R: r} }
func Xor(l, r *Formula) *Formula     { return &Formula{Op: OpXor, L: l, R: r} }
func Implies(l, r *Formula) *Formula { return &Formula{Op: OpImplies, L: l, R: r} }
func Iff(l, r *Formula) *Formula     { return &Formula{Op: OpIff, L: l, R: r} }
func Forall(v string, body *Formula) *Formula {
	return &Formula{Op: OpForall, Var: v, L: body}
}
func Exists(v string, body *Formula) *Formula {
	return &Formula{Op: OpExists, Var: v, L: body}
}

// Const and Var build terms.
func Const(name string) Term { return Term{Name: name} }
func Var(name string) Term   { return Term{Name: name, Var: true} }

// Binary reports whether f has two operands.
func (f *Formula) Binary() bool {
	switch f.Op {
	case OpAnd, OpOr, OpXor, OpImplies, OpIff:
		return true
	}
	return false
}

// String renders f with the input connectives, fully parenthesised below
// the root.
func (f *Formula) String() string {
	switch f.Op {
	case OpAtom:
		return atomString(f.Pred, f.Args)
	case OpNot:
		return "¬" + f.L.operand()
	case OpForall, OpExists:
		return opSymbols[f.Op] + f.Var + " " + f.L.operand()
	}
	return f.L.operand() + " " + opSymbols[f.Op] + " " + f.R.operand()
}

func (f *Formula) operand() string {
	if f.Binary() {
		return "(" + f.String() + ")"
	}
	return f.String()
}

func atomString(pred string, args []Term) string {
	if len(args) == 0 {
		return pred
	}
	names := make([]string, len(args))
	for i, a := range args {
		names[i] = a.Name
	}
	return pred + "(" + strings.Join(names, ", ") + ")"
}

// Arities records the arity of every predicate in f.
func (f *Formula) Arities(into map[string]int) error {
	switch f.Op {
	case OpAtom:
		if n, ok := into[f.Pred]; ok && n != len(f.Args) {
			return fmt.Errorf("predicate %s used with %d and %d arguments", f.Pred, n, len(f.Args))
		}
		into[f.Pred] = len(f.Args)
		return nil
	case OpNot, OpForall, OpExists:
		return f.L.Arities(into)
	}
	if err := f.L.Arities(into); err != nil {
		return err
	}
	return f.R.Arities(into)
}

// Constants lists the constant names in f, sorted.
func (f *Formula) Constants() []string {
	seen := make(map[string]bool)
	f.walkAtoms(func(a *Formula) {
		for _, t := range a.Args {
			if !t.Var {
				seen[t.Name] = true
			}
		}
	})
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

func (f *Formula) walkAtoms(fn func(*Formula)) {
	switch {
	case f.Op == OpAtom:
		fn(f)
	case f.Binary():
		f.L.walkAtoms(fn)
		f.R.walkAtoms(fn)
	default:
		f.L.walkAtoms(fn)
	}
}
