package simple

import (
	"context"
	"fmt"

	"github.com/cognicore/symsolve/pkg/symsolve/inference"
)

// Engine is a minimal forward-chaining engine in pure Go.
// Rules are applied round by round until nothing new is derived.
type Engine struct {
	facts   []inference.Atom
	seen    map[string]bool
	rules   []inference.Rule
	derived []inference.Atom

	maxRounds int
}

// New creates a new simple inference engine
func New() *Engine {
	return &Engine{seen: make(map[string]bool)}
}

// WithMaxRounds bounds the number of forward-chaining rounds.
func (e *Engine) WithMaxRounds(n int) *Engine {
	e.maxRounds = n
	return e
}

// Assert adds a ground atom to the fact store, ignoring duplicates.
func (e *Engine) Assert(atom inference.Atom) error {
	if !atom.Ground() {
		return fmt.Errorf("assert %s: fact must be ground", atom)
	}
	key := atom.String()
	if e.seen[key] {
		return nil
	}
	e.seen[key] = true
	e.facts = append(e.facts, atom)
	return nil
}

// AddRule registers a forward rule.
func (e *Engine) AddRule(rule inference.Rule) error {
	if err := rule.Validate(); err != nil {
		return err
	}
	e.rules = append(e.rules, rule)
	return nil
}

// Activate forward-chains to a fixpoint.
func (e *Engine) Activate(ctx context.Context, tr inference.Tracer) error {
	derived, err := inference.Chain(ctx, e.facts, e.rules, inference.ChainOptions{
		Tracer:    tr,
		MaxRounds: e.maxRounds,
	})
	e.derived = derived
	return err
}

// Prove looks pattern up in the requested store.
func (e *Engine) Prove(store inference.Store, pattern inference.Atom) ([]inference.Binding, error) {
	switch store {
	case inference.Facts:
		return inference.Select(e.facts, pattern), nil
	case inference.Rules:
		return inference.Select(e.derived, pattern), nil
	default:
		return nil, fmt.Errorf("unknown store %q", store)
	}
}
