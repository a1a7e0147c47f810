package resolution

import (
	"fmt"

	"github.com/cognicore/symsolve/pkg/symsolve/fol"
)

// maxClausesPerFormula bounds the CNF expansion of a single formula.
const maxClausesPerFormula = 4096

type nnfKind int

const (
	nnfLit nnfKind = iota
	nnfAnd
	nnfOr
	nnfAll
	nnfEx
)

// nnf is a formula in negation normal form over the input atoms.
type nnf struct {
	kind nnfKind
	neg  bool
	atom *fol.Formula
	v    string
	l, r *nnf
}

func toNNF(f *fol.Formula, pos bool) *nnf {
	switch f.Op {
	case fol.OpAtom:
		return &nnf{kind: nnfLit, neg: !pos, atom: f}
	case fol.OpNot:
		return toNNF(f.L, !pos)
	case fol.OpAnd:
		return junction(pos, toNNF(f.L, pos), toNNF(f.R, pos))
	case fol.OpOr:
		return junction(!pos, toNNF(f.L, pos), toNNF(f.R, pos))
	case fol.OpImplies:
		return junction(!pos, toNNF(f.L, !pos), toNNF(f.R, pos))
	case fol.OpIff:
		return iff(f.L, f.R, pos)
	case fol.OpXor:
		return iff(f.L, f.R, !pos)
	case fol.OpForall:
		if pos {
			return &nnf{kind: nnfAll, v: f.Var, l: toNNF(f.L, pos)}
		}
		return &nnf{kind: nnfEx, v: f.Var, l: toNNF(f.L, pos)}
	case fol.OpExists:
		if pos {
			return &nnf{kind: nnfEx, v: f.Var, l: toNNF(f.L, pos)}
		}
		return &nnf{kind: nnfAll, v: f.Var, l: toNNF(f.L, pos)}
	}
	panic(fmt.Sprintf("resolution: unknown connective %d", f.Op))
}

// junction builds l ∧ r when and is set, l ∨ r otherwise.
func junction(and bool, l, r *nnf) *nnf {
	if and {
		return &nnf{kind: nnfAnd, l: l, r: r}
	}
	return &nnf{kind: nnfOr, l: l, r: r}
}

// iff expands a ↔ b (pos) or its negation.
func iff(a, b *fol.Formula, pos bool) *nnf {
	if pos {
		return junction(true,
			junction(false, toNNF(a, false), toNNF(b, true)),
			junction(false, toNNF(a, true), toNNF(b, false)))
	}
	return junction(false,
		junction(true, toNNF(a, true), toNNF(b, false)),
		junction(true, toNNF(a, false), toNNF(b, true)))
}

// clausifier turns formulas into clauses. Variable and Skolem counters are
// shared so that Skolem symbols are unique within one proof attempt.
type clausifier struct {
	nextVar   int
	constants int
	functions int
	taken     map[string]bool
}

func newClausifier(formulas []*fol.Formula) *clausifier {
	c := &clausifier{taken: make(map[string]bool)}
	for _, f := range formulas {
		for _, name := range f.Constants() {
			c.taken[name] = true
		}
	}
	return c
}

func (c *clausifier) skolemName(arity int) string {
	for {
		var name string
		if arity == 0 {
			c.constants++
			name = fmt.Sprintf("c%d", c.constants)
		} else {
			c.functions++
			name = fmt.Sprintf("f%d", c.functions)
		}
		if !c.taken[name] {
			c.taken[name] = true
			return name
		}
	}
}

// qf is a quantifier-free formula over resolution literals.
type qf struct {
	kind nnfKind
	lit  literal
	l, r *qf
}

func (c *clausifier) skolemize(n *nnf, env map[string]term, universals []term) (*qf, error) {
	switch n.kind {
	case nnfLit:
		lit := literal{neg: n.neg, pred: n.atom.Pred, args: make([]term, len(n.atom.Args))}
		for i, a := range n.atom.Args {
			if !a.Var {
				lit.args[i] = term{fn: a.Name}
				continue
			}
			t, ok := env[a.Name]
			if !ok {
				return nil, fmt.Errorf("variable %s is not bound", a.Name)
			}
			lit.args[i] = t
		}
		return &qf{kind: nnfLit, lit: lit}, nil
	case nnfAnd, nnfOr:
		l, err := c.skolemize(n.l, env, universals)
		if err != nil {
			return nil, err
		}
		r, err := c.skolemize(n.r, env, universals)
		if err != nil {
			return nil, err
		}
		return &qf{kind: n.kind, l: l, r: r}, nil
	}

	inner := make(map[string]term, len(env)+1)
	for k, v := range env {
		inner[k] = v
	}
	if n.kind == nnfAll {
		v := term{v: c.nextVar}
		c.nextVar++
		inner[n.v] = v
		return c.skolemize(n.l, inner, append(universals[:len(universals):len(universals)], v))
	}
	sk := term{fn: c.skolemName(len(universals))}
	if len(universals) > 0 {
		sk.args = append([]term(nil), universals...)
	}
	inner[n.v] = sk
	return c.skolemize(n.l, inner, universals)
}

func cnf(q *qf) ([][]literal, error) {
	switch q.kind {
	case nnfLit:
		return [][]literal{{q.lit}}, nil
	case nnfAnd:
		l, err := cnf(q.l)
		if err != nil {
			return nil, err
		}
		r, err := cnf(q.r)
		if err != nil {
			return nil, err
		}
		if len(l)+len(r) > maxClausesPerFormula {
			return nil, fmt.Errorf("clause form exceeds %d clauses", maxClausesPerFormula)
		}
		return append(l, r...), nil
	}
	l, err := cnf(q.l)
	if err != nil {
		return nil, err
	}
	r, err := cnf(q.r)
	if err != nil {
		return nil, err
	}
	if len(l)*len(r) > maxClausesPerFormula {
		return nil, fmt.Errorf("clause form exceeds %d clauses", maxClausesPerFormula)
	}
	out := make([][]literal, 0, len(l)*len(r))
	for _, a := range l {
		for _, b := range r {
			merged := make([]literal, 0, len(a)+len(b))
			merged = append(append(merged, a...), b...)
			out = append(out, merged)
		}
	}
	return out, nil
}

// clausify converts f (or its negation when pos is false) into clauses,
// dropping tautologies.
func (c *clausifier) clausify(f *fol.Formula, pos bool) ([][]literal, error) {
	q, err := c.skolemize(toNNF(f, pos), map[string]term{}, nil)
	if err != nil {
		return nil, err
	}
	raw, err := cnf(q)
	if err != nil {
		return nil, err
	}
	var out [][]literal
	for _, lits := range raw {
		norm, _, taut := normalize(lits)
		if taut {
			continue
		}
		out = append(out, norm)
	}
	return out, nil
}
