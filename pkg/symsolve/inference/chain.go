package inference

import "context"

// DefaultMaxRounds bounds Chain when ChainOptions.MaxRounds is zero.
const DefaultMaxRounds = 1000

// ChainOptions configures Chain.
type ChainOptions struct {
	// Admit filters conclusions before they enter the derived store. Nil admits all.
	Admit     func(Atom) bool
	Tracer    Tracer
	MaxRounds int
}

// Chain runs rules over the base atoms until no rule derives anything new and
// returns the derived store in derivation order. Premises match base and
// derived atoms alike. A conclusion already present in the base store is still
// recorded as derived.
func Chain(ctx context.Context, base []Atom, rules []Rule, opts ChainOptions) ([]Atom, error) {
	maxRounds := opts.MaxRounds
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}

	known := newIndex()
	for _, a := range base {
		known.add(a)
	}
	derived := newIndex()

	for round := 1; round <= maxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return derived.atoms, err
		}
		changed := false
		for _, rule := range rules {
			var fresh []Derivation
			join(rule.Premises, known, Binding{}, nil, func(b Binding, used []Atom) {
				for _, c := range rule.Conclusions {
					atom := Substitute(c, b)
					if !atom.Ground() || derived.has(atom) || containsConclusion(fresh, atom) {
						continue
					}
					if opts.Admit != nil && !opts.Admit(atom) {
						continue
					}
					fresh = append(fresh, Derivation{
						Rule:       rule,
						Premises:   append([]Atom(nil), used...),
						Conclusion: atom,
						Round:      round,
					})
				}
			})
			for _, d := range fresh {
				derived.add(d.Conclusion)
				known.add(d.Conclusion)
				if opts.Tracer != nil {
					opts.Tracer.Derived(d)
				}
				changed = true
			}
		}
		if !changed {
			break
		}
	}
	return derived.atoms, nil
}

func containsConclusion(ds []Derivation, a Atom) bool {
	key := atomKey(a)
	for _, d := range ds {
		if atomKey(d.Conclusion) == key {
			return true
		}
	}
	return false
}

// join walks premises left to right, calling emit for every complete binding.
func join(premises []Atom, known *index, b Binding, used []Atom, emit func(Binding, []Atom)) {
	if len(premises) == 0 {
		emit(b, used)
		return
	}
	p := premises[0]
	candidates := known.byPred[p.Predicate]
	for i := 0; i < len(candidates); i++ {
		next, ok := Match(p, candidates[i], b)
		if !ok {
			continue
		}
		join(premises[1:], known, next, append(used, candidates[i]), emit)
	}
}

type index struct {
	atoms  []Atom
	byPred map[string][]Atom
	seen   map[string]bool
}

func newIndex() *index {
	return &index{byPred: make(map[string][]Atom), seen: make(map[string]bool)}
}

func (ix *index) add(a Atom) {
	key := atomKey(a)
	if ix.seen[key] {
		return
	}
	ix.seen[key] = true
	ix.atoms = append(ix.atoms, a)
	ix.byPred[a.Predicate] = append(ix.byPred[a.Predicate], a)
}

func (ix *index) has(a Atom) bool { return ix.seen[atomKey(a)] }

func atomKey(a Atom) string { return a.String() }
