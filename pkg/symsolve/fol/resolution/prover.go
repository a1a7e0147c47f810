// Package resolution is a given-clause theorem prover for first-order logic
// without equality. It refutes the assumptions together with the denied
// goal using binary resolution and factoring, and writes its search in the
// layout of a Prover9 log.
package resolution

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/cognicore/symsolve/pkg/symsolve/fol"
)

const (
	DefaultMaxGiven  = 2000
	DefaultMaxWeight = 40
	DefaultMaxDepth  = 4
	DefaultMaxKept   = 20000

	// every ageRatio-th given clause is the oldest instead of the lightest
	ageRatio = 5
)

const (
	bannerInput      = "============================== INPUT ================================="
	bannerInputEnd   = "============================== end of input =========================="
	bannerClauses    = "============================== CLAUSES FOR SEARCH ===================="
	bannerClausesEnd = "============================== end of clauses for search ============="
	bannerSearch     = "============================== SEARCH ================================"
	bannerSearchEnd  = "============================== end of search ========================="
	bannerProof      = "============================== PROOF ================================="
	bannerProofEnd   = "============================== end of proof =========================="
)

// Options bounds the search. Zero values select the defaults.
type Options struct {
	MaxGiven  int
	MaxWeight int
	MaxDepth  int // deepest term nesting kept
	MaxKept   int
}

// Prover implements fol.Prover.
type Prover struct {
	opts Options
}

// New creates a prover.
func New(opts Options) *Prover {
	if opts.MaxGiven <= 0 {
		opts.MaxGiven = DefaultMaxGiven
	}
	if opts.MaxWeight <= 0 {
		opts.MaxWeight = DefaultMaxWeight
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.MaxKept <= 0 {
		opts.MaxKept = DefaultMaxKept
	}
	return &Prover{opts: opts}
}

// step is one numbered line of the log: an input formula or a kept clause.
type step struct {
	id      int
	text    string
	just    string
	parents []int
}

type search struct {
	opts  Options
	log   strings.Builder
	steps map[int]*step
	next  int

	usable []*clause
	sos    []*clause
	keys   map[string]bool
	given  int
}

// Prove implements fol.Prover.
func (p *Prover) Prove(ctx context.Context, goal *fol.Formula, assumptions []*fol.Formula) (fol.Proof, error) {
	s := &search{opts: p.opts, steps: make(map[int]*step), keys: make(map[string]bool), next: 1}

	s.log.WriteString(bannerInput + "\n\n")
	s.log.WriteString(fol.Prover9Input(goal, assumptions, 0))
	s.log.WriteString("\n" + bannerInputEnd + "\n\n")

	all := append(append([]*fol.Formula(nil), assumptions...), goal)
	cl := newClausifier(all)
	formulaIDs := make([]int, len(all))
	for i, f := range all {
		just := "assumption"
		if i == len(assumptions) {
			just = "goal"
		}
		formulaIDs[i] = s.record(f.Prover9(), just, nil)
	}

	s.log.WriteString(bannerClauses + "\n\n")
	var empty *clause
	for i, f := range all {
		pos, just := true, fmt.Sprintf("clausify(%d)", formulaIDs[i])
		if i == len(assumptions) {
			pos, just = false, fmt.Sprintf("deny(%d)", formulaIDs[i])
		}
		clauses, err := cl.clausify(f, pos)
		if err != nil {
			return fol.Proof{}, fmt.Errorf("clausify %s: %w", f.Prover9(), err)
		}
		for _, lits := range clauses {
			c := s.keep(lits, just, []int{formulaIDs[i]})
			if c != nil && c.empty() && empty == nil {
				empty = c
			}
		}
	}
	s.log.WriteString("\n" + bannerClausesEnd + "\n\n")
	s.log.WriteString(bannerSearch + "\n\n")

	var reason string
	if empty == nil {
		empty, reason = s.run(ctx)
		if reason == "" && empty == nil {
			reason = "sos_empty"
		}
	}
	s.log.WriteString("\n" + bannerSearchEnd + "\n")

	if ctx.Err() != nil {
		return fol.Proof{Log: s.log.String()}, ctx.Err()
	}
	if empty == nil {
		fmt.Fprintf(&s.log, "\nSEARCH FAILED\n\n%% Exiting with failure (%s).\n", reason)
		return fol.Proof{Log: s.log.String()}, nil
	}

	proof := s.proof(empty.id)
	s.log.WriteString("\nTHEOREM PROVED\n\n")
	s.log.WriteString(proof)
	return fol.Proof{Proved: true, Proof: proof, Log: s.log.String()}, nil
}

func (s *search) record(text, just string, parents []int) int {
	id := s.next
	s.next++
	s.steps[id] = &step{id: id, text: text, just: just, parents: parents}
	fmt.Fprintf(&s.log, "%d %s.  [%s].\n", id, text, just)
	return id
}

// keep normalizes lits and adds them to the set of support unless the
// clause is a tautology, a duplicate, too heavy or subsumed. Input clauses
// (no parents among clauses) are exempt from the weight and depth limits.
func (s *search) keep(lits []literal, just string, parents []int) *clause {
	norm, nvars, taut := normalize(lits)
	if taut {
		return nil
	}
	key := clauseKey(norm)
	if s.keys[key] {
		return nil
	}
	weight, depth := weigh(norm)
	if !strings.HasPrefix(just, "clausify") && !strings.HasPrefix(just, "deny") {
		if weight > s.opts.MaxWeight || depth > s.opts.MaxDepth {
			return nil
		}
	}
	for _, pool := range [][]*clause{s.usable, s.sos} {
		for _, old := range pool {
			if subsumes(old.lits, norm) {
				return nil
			}
		}
	}
	s.keys[key] = true
	c := &clause{lits: norm, nvars: nvars, weight: weight, just: just, parent: parents}
	c.id = s.record(formatClause(norm), just, parents)
	s.sos = append(s.sos, c)
	return c
}

// run is the given-clause loop. It returns the empty clause when found,
// or the name of the limit that stopped the search.
func (s *search) run(ctx context.Context) (*clause, string) {
	for len(s.sos) > 0 {
		if ctx.Err() != nil {
			return nil, "interrupted"
		}
		if s.given >= s.opts.MaxGiven {
			return nil, "max_given"
		}
		if len(s.usable)+len(s.sos) >= s.opts.MaxKept {
			return nil, "max_kept"
		}
		s.given++
		g, kind := s.pick()
		fmt.Fprintf(&s.log, "given #%d (%s,wt=%d): %d %s.  [%s].\n", s.given, kind, g.weight, g.id, formatClause(g.lits), g.just)
		s.usable = append(s.usable, g)

		for _, f := range factors(g) {
			if c := s.keep(f.lits, f.just, f.parents); c != nil && c.empty() {
				return c, ""
			}
		}
		for _, u := range append([]*clause(nil), s.usable...) {
			for _, r := range resolvents(g, u) {
				if c := s.keep(r.lits, r.just, r.parents); c != nil && c.empty() {
					return c, ""
				}
			}
			if ctx.Err() != nil {
				return nil, "interrupted"
			}
		}
	}
	return nil, "sos_empty"
}

// pick removes the next given clause from the set of support.
func (s *search) pick() (*clause, string) {
	best := 0
	kind := "T"
	if s.given%ageRatio == 0 {
		kind = "A"
	} else {
		for i, c := range s.sos {
			if c.weight < s.sos[best].weight {
				best = i
			}
		}
	}
	if strings.HasPrefix(s.sos[best].just, "clausify") || strings.HasPrefix(s.sos[best].just, "deny") {
		kind = "I"
	}
	c := s.sos[best]
	s.sos = append(s.sos[:best], s.sos[best+1:]...)
	return c, kind
}

type inference struct {
	lits    []literal
	just    string
	parents []int
}

func letter(i int) string { return string(rune('a' + i)) }

func factors(c *clause) []inference {
	var out []inference
	for i := range c.lits {
		for j := i + 1; j < len(c.lits); j++ {
			a, b := c.lits[i], c.lits[j]
			if a.neg != b.neg || a.pred != b.pred || len(a.args) != len(b.args) {
				continue
			}
			s := subst{}
			if !s.unifyArgs(a.args, b.args) {
				continue
			}
			var lits []literal
			for k, l := range c.lits {
				if k != j {
					lits = append(lits, s.applyLiteral(l))
				}
			}
			out = append(out, inference{
				lits:    lits,
				just:    fmt.Sprintf("factor(%d,%s,%s)", c.id, letter(i), letter(j)),
				parents: []int{c.id},
			})
		}
	}
	return out
}

func resolvents(g, u *clause) []inference {
	var out []inference
	for i, gl := range g.lits {
		for j, ul := range u.lits {
			if !gl.complementary(ul) {
				continue
			}
			shifted := ul.shift(g.nvars)
			s := subst{}
			if !s.unifyArgs(gl.args, shifted.args) {
				continue
			}
			var lits []literal
			for k, l := range g.lits {
				if k != i {
					lits = append(lits, s.applyLiteral(l))
				}
			}
			for k, l := range u.lits {
				if k != j {
					lits = append(lits, s.applyLiteral(l.shift(g.nvars)))
				}
			}
			parents := []int{g.id, u.id}
			if g.id == u.id {
				parents = []int{g.id}
			}
			out = append(out, inference{
				lits:    lits,
				just:    fmt.Sprintf("resolve(%d,%s,%d,%s)", g.id, letter(i), u.id, letter(j)),
				parents: parents,
			})
		}
	}
	return out
}

// proof renders the ancestors of the empty clause in numeric order.
func (s *search) proof(id int) string {
	used := make(map[int]bool)
	var visit func(int)
	visit = func(id int) {
		if used[id] {
			return
		}
		used[id] = true
		for _, p := range s.steps[id].parents {
			visit(p)
		}
	}
	visit(id)
	ids := make([]int, 0, len(used))
	for id := range used {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	var b strings.Builder
	b.WriteString(bannerProof + "\n\n")
	fmt.Fprintf(&b, "%% Length of proof is %d.\n\n", len(ids))
	for _, id := range ids {
		st := s.steps[id]
		fmt.Fprintf(&b, "%d %s.  [%s].\n", st.id, st.text, st.just)
	}
	b.WriteString("\n" + bannerProofEnd + "\n")
	return b.String()
}
