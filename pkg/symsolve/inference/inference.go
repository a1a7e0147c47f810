package inference

import (
	"context"
	"fmt"
	"strings"
)

// Engine provides forward-chaining inference over two stores: the base facts
// asserted by the caller and the atoms derived by rules.
// This interface allows swapping implementations (pure Go, Mangle, ...).
type Engine interface {
	// Assert adds a ground atom to the fact store.
	Assert(atom Atom) error

	// AddRule registers a forward rule. Premise order is join order.
	AddRule(rule Rule) error

	// Activate runs all rules to a fixpoint. Every new derivation is
	// reported to tr, which may be nil.
	Activate(ctx context.Context, tr Tracer) error

	// Prove returns one binding of pattern's variables per matching atom in store.
	Prove(store Store, pattern Atom) ([]Binding, error)
}

// Store names one of the two knowledge bases.
type Store string

const (
	Facts Store = "facts"
	Rules Store = "rules"
)

// Term is a constant or a variable.
type Term struct {
	Name string
	Var  bool
}

// Const returns a constant term.
func Const(name string) Term { return Term{Name: name} }

// Var returns a variable term.
func Var(name string) Term { return Term{Name: name, Var: true} }

func (t Term) String() string {
	if t.Var {
		return "$" + t.Name
	}
	return t.Name
}

// Atom represents a predicate applied to terms.
// Example: Furry(Bob, True)
type Atom struct {
	Predicate string
	Args      []Term
}

// NewAtom builds a ground atom from constants.
func NewAtom(predicate string, args ...string) Atom {
	terms := make([]Term, len(args))
	for i, a := range args {
		terms[i] = Const(a)
	}
	return Atom{Predicate: predicate, Args: terms}
}

func (a Atom) String() string {
	parts := make([]string, len(a.Args))
	for i, t := range a.Args {
		parts[i] = t.String()
	}
	return fmt.Sprintf("%s(%s)", a.Predicate, strings.Join(parts, ", "))
}

// Ground reports whether the atom has no variables.
func (a Atom) Ground() bool {
	for _, t := range a.Args {
		if t.Var {
			return false
		}
	}
	return true
}

// Vars returns variable names in first-occurrence order.
func (a Atom) Vars() []string {
	var out []string
	seen := make(map[string]bool)
	for _, t := range a.Args {
		if t.Var && !seen[t.Name] {
			seen[t.Name] = true
			out = append(out, t.Name)
		}
	}
	return out
}

// Rule represents a forward inference rule
// Example: Furry($x, True) && Quiet($x, True) >>> Red($x, True)
type Rule struct {
	Name        string
	Premises    []Atom
	Conclusions []Atom
	Comment     string
}

func (r Rule) String() string {
	return joinAtoms(r.Premises) + " >>> " + joinAtoms(r.Conclusions)
}

// Validate checks that the rule has premises and conclusions and that every
// conclusion variable is bound by some premise.
func (r Rule) Validate() error {
	if len(r.Premises) == 0 {
		return fmt.Errorf("rule %q: no premises", r.Name)
	}
	if len(r.Conclusions) == 0 {
		return fmt.Errorf("rule %q: no conclusions", r.Name)
	}
	bound := make(map[string]bool)
	for _, p := range r.Premises {
		for _, v := range p.Vars() {
			bound[v] = true
		}
	}
	for _, c := range r.Conclusions {
		for _, v := range c.Vars() {
			if !bound[v] {
				return fmt.Errorf("rule %q: variable $%s in conclusion %s is not bound by a premise", r.Name, v, c)
			}
		}
	}
	return nil
}

func joinAtoms(atoms []Atom) string {
	parts := make([]string, len(atoms))
	for i, a := range atoms {
		parts[i] = a.String()
	}
	return strings.Join(parts, " && ")
}

// Binding maps variable names to constants.
type Binding map[string]string

func (b Binding) clone() Binding {
	out := make(Binding, len(b)+1)
	for k, v := range b {
		out[k] = v
	}
	return out
}

// Derivation records one rule firing.
type Derivation struct {
	Rule       Rule
	Premises   []Atom // instantiated premises, in join order
	Conclusion Atom
	Round      int
}

// Tracer receives derivations as they happen.
type Tracer interface {
	Derived(d Derivation)
}

// TracerFunc adapts a function to Tracer.
type TracerFunc func(Derivation)

// Derived implements Tracer.
func (f TracerFunc) Derived(d Derivation) { f(d) }

// Match extends b so that pattern equals the ground atom.
func Match(pattern, ground Atom, b Binding) (Binding, bool) {
	if pattern.Predicate != ground.Predicate || len(pattern.Args) != len(ground.Args) {
		return nil, false
	}
	out := b.clone()
	for i, t := range pattern.Args {
		g := ground.Args[i].Name
		if !t.Var {
			if t.Name != g {
				return nil, false
			}
			continue
		}
		if prev, ok := out[t.Name]; ok {
			if prev != g {
				return nil, false
			}
			continue
		}
		out[t.Name] = g
	}
	return out, true
}

// Substitute replaces bound variables in a.
func Substitute(a Atom, b Binding) Atom {
	args := make([]Term, len(a.Args))
	for i, t := range a.Args {
		if v, ok := b[t.Name]; t.Var && ok {
			args[i] = Const(v)
			continue
		}
		args[i] = t
	}
	return Atom{Predicate: a.Predicate, Args: args}
}

// Select returns the bindings of pattern against atoms, in atom order.
func Select(atoms []Atom, pattern Atom) []Binding {
	var out []Binding
	for _, a := range atoms {
		if b, ok := Match(pattern, a, Binding{}); ok {
			out = append(out, b)
		}
	}
	return out
}
