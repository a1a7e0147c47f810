package resolution

import (
	"strconv"
	"strings"

	"github.com/cognicore/symsolve/pkg/symsolve/fol"
)

// term is a variable (empty fn) or a constant or function application.
type term struct {
	fn   string
	v    int
	args []term
}

func (t term) isVar() bool { return t.fn == "" }

func (t term) depth() int {
	if len(t.args) == 0 {
		return 0
	}
	d := 0
	for _, a := range t.args {
		if ad := a.depth(); ad > d {
			d = ad
		}
	}
	return d + 1
}

func (t term) symbols() int {
	n := 1
	for _, a := range t.args {
		n += a.symbols()
	}
	return n
}

func (t term) shift(off int) term {
	if t.isVar() {
		return term{v: t.v + off}
	}
	if len(t.args) == 0 {
		return t
	}
	out := term{fn: t.fn, args: make([]term, len(t.args))}
	for i, a := range t.args {
		out.args[i] = a.shift(off)
	}
	return out
}

func equalTerms(a, b term) bool {
	if a.isVar() || b.isVar() {
		return a.isVar() && b.isVar() && a.v == b.v
	}
	if a.fn != b.fn || len(a.args) != len(b.args) {
		return false
	}
	for i := range a.args {
		if !equalTerms(a.args[i], b.args[i]) {
			return false
		}
	}
	return true
}

type literal struct {
	neg  bool
	pred string
	args []term
}

func (l literal) complementary(o literal) bool {
	return l.neg != o.neg && l.pred == o.pred && len(l.args) == len(o.args)
}

func (l literal) shift(off int) literal {
	out := literal{neg: l.neg, pred: l.pred, args: make([]term, len(l.args))}
	for i, a := range l.args {
		out.args[i] = a.shift(off)
	}
	return out
}

// clause is a disjunction of literals with variables numbered from 0.
type clause struct {
	id     int
	lits   []literal
	nvars  int
	weight int
	just   string
	parent []int
}

func (c *clause) empty() bool { return len(c.lits) == 0 }

// subst is a triangular substitution over variable numbers.
type subst map[int]term

func (s subst) clone() subst {
	out := make(subst, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

func (s subst) walk(t term) term {
	for t.isVar() {
		b, ok := s[t.v]
		if !ok {
			return t
		}
		t = b
	}
	return t
}

func (s subst) occurs(v int, t term) bool {
	t = s.walk(t)
	if t.isVar() {
		return t.v == v
	}
	for _, a := range t.args {
		if s.occurs(v, a) {
			return true
		}
	}
	return false
}

func (s subst) unify(a, b term) bool {
	a, b = s.walk(a), s.walk(b)
	switch {
	case a.isVar() && b.isVar() && a.v == b.v:
		return true
	case a.isVar():
		if s.occurs(a.v, b) {
			return false
		}
		s[a.v] = b
		return true
	case b.isVar():
		if s.occurs(b.v, a) {
			return false
		}
		s[b.v] = a
		return true
	}
	if a.fn != b.fn || len(a.args) != len(b.args) {
		return false
	}
	for i := range a.args {
		if !s.unify(a.args[i], b.args[i]) {
			return false
		}
	}
	return true
}

func (s subst) unifyArgs(a, b []term) bool {
	for i := range a {
		if !s.unify(a[i], b[i]) {
			return false
		}
	}
	return true
}

func (s subst) apply(t term) term {
	t = s.walk(t)
	if t.isVar() || len(t.args) == 0 {
		return t
	}
	out := term{fn: t.fn, args: make([]term, len(t.args))}
	for i, a := range t.args {
		out.args[i] = s.apply(a)
	}
	return out
}

func (s subst) applyLiteral(l literal) literal {
	out := literal{neg: l.neg, pred: l.pred, args: make([]term, len(l.args))}
	for i, a := range l.args {
		out.args[i] = s.apply(a)
	}
	return out
}

// normalize renumbers variables in order of first occurrence, drops
// repeated literals and reports tautologies.
func normalize(lits []literal) (out []literal, nvars int, tautology bool) {
	renum := make(map[int]int)
	var rename func(t term) term
	rename = func(t term) term {
		if t.isVar() {
			n, ok := renum[t.v]
			if !ok {
				n = len(renum)
				renum[t.v] = n
			}
			return term{v: n}
		}
		if len(t.args) == 0 {
			return t
		}
		r := term{fn: t.fn, args: make([]term, len(t.args))}
		for i, a := range t.args {
			r.args[i] = rename(a)
		}
		return r
	}
	seen := make(map[string]bool, len(lits))
	for _, l := range lits {
		key := atomKey(l)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, l)
	}
	for _, l := range out {
		if l.neg {
			continue
		}
		flipped := l
		flipped.neg = true
		if seen[atomKey(flipped)] {
			return nil, 0, true
		}
	}
	for i, l := range out {
		r := literal{neg: l.neg, pred: l.pred, args: make([]term, len(l.args))}
		for j, a := range l.args {
			r.args[j] = rename(a)
		}
		out[i] = r
	}
	return out, len(renum), false
}

// atomKey identifies a literal before variable renaming.
func atomKey(l literal) string {
	var b strings.Builder
	if l.neg {
		b.WriteByte('-')
	}
	b.WriteString(l.pred)
	b.WriteByte('(')
	for i, a := range l.args {
		if i > 0 {
			b.WriteByte(',')
		}
		writeKey(&b, a)
	}
	b.WriteByte(')')
	return b.String()
}

func writeKey(b *strings.Builder, t term) {
	if t.isVar() {
		b.WriteString("?" + strconv.Itoa(t.v))
		return
	}
	b.WriteString(t.fn)
	if len(t.args) == 0 {
		return
	}
	b.WriteByte('(')
	for i, a := range t.args {
		if i > 0 {
			b.WriteByte(',')
		}
		writeKey(b, a)
	}
	b.WriteByte(')')
}

func clauseKey(lits []literal) string {
	keys := make([]string, len(lits))
	for i, l := range lits {
		keys[i] = atomKey(l)
	}
	return strings.Join(keys, "|")
}

func weigh(lits []literal) (weight, depth int) {
	for _, l := range lits {
		weight++
		for _, a := range l.args {
			weight += a.symbols()
			if d := a.depth(); d > depth {
				depth = d
			}
		}
	}
	return weight, depth
}

// match binds only variables of the pattern side; target variables are
// treated as constants.
func match(p, t term, s subst) bool {
	if p.isVar() {
		if b, ok := s[p.v]; ok {
			return equalTerms(b, t)
		}
		s[p.v] = t
		return true
	}
	if t.isVar() || p.fn != t.fn || len(p.args) != len(t.args) {
		return false
	}
	for i := range p.args {
		if !match(p.args[i], t.args[i], s) {
			return false
		}
	}
	return true
}

// subsumes reports whether some instance of c is contained in d.
func subsumes(c, d []literal) bool {
	if len(c) > len(d) {
		return false
	}
	return subsumeFrom(c, d, 0, subst{})
}

func subsumeFrom(c, d []literal, i int, s subst) bool {
	if i == len(c) {
		return true
	}
	for _, dl := range d {
		if dl.neg != c[i].neg || dl.pred != c[i].pred || len(dl.args) != len(c[i].args) {
			continue
		}
		s2 := s.clone()
		ok := true
		for k := range dl.args {
			if !match(c[i].args[k], dl.args[k], s2) {
				ok = false
				break
			}
		}
		if ok && subsumeFrom(c, d, i+1, s2) {
			return true
		}
	}
	return false
}

var varNames = []string{"x", "y", "z", "u", "w"}

func varName(v int) string {
	if v < len(varNames) {
		return varNames[v]
	}
	return "v" + strconv.Itoa(v)
}

func formatTerm(b *strings.Builder, t term) {
	if t.isVar() {
		b.WriteString(varName(t.v))
		return
	}
	b.WriteString(fol.Prover9Name(t.fn))
	if len(t.args) == 0 {
		return
	}
	b.WriteByte('(')
	for i, a := range t.args {
		if i > 0 {
			b.WriteByte(',')
		}
		formatTerm(b, a)
	}
	b.WriteByte(')')
}

// formatClause renders lits the way Prover9 prints clauses.
func formatClause(lits []literal) string {
	if len(lits) == 0 {
		return "$F"
	}
	var b strings.Builder
	for i, l := range lits {
		if i > 0 {
			b.WriteString(" | ")
		}
		if l.neg {
			b.WriteByte('-')
		}
		b.WriteString(l.pred)
		if len(l.args) == 0 {
			continue
		}
		b.WriteByte('(')
		for j, a := range l.args {
			if j > 0 {
				b.WriteByte(',')
			}
			formatTerm(&b, a)
		}
		b.WriteByte(')')
	}
	return b.String()
}
