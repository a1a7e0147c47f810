// Package mangle runs forward rules on the Google Mangle Datalog engine.
//
// Each predicate P of arity n is compiled to three Datalog predicates:
// base_p (asserted facts), derived_p (rule conclusions) and holds_p, the
// union of both, which is what rule bodies join over.
package mangle

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/google/mangle/analysis"
	"github.com/google/mangle/ast"
	_ "github.com/google/mangle/builtin"
	"github.com/google/mangle/engine"
	"github.com/google/mangle/factstore"
	"github.com/google/mangle/parse"

	"github.com/cognicore/symsolve/pkg/symsolve/inference"
)

// DefaultFactLimit caps the number of facts one evaluation may create.
const DefaultFactLimit = 1_000_000

const (
	trueName  = "/true"
	falseName = "/false"
)

// Engine compiles facts and rules to a Mangle program and evaluates it.
type Engine struct {
	facts []inference.Atom
	seen  map[string]bool
	rules []inference.Rule

	factLimit int
	store     factstore.FactStore
	symbols   map[string]string // source predicate -> datalog stem
	arity     map[string]int
}

// New creates an empty Mangle-backed engine.
func New() *Engine {
	return &Engine{seen: make(map[string]bool), factLimit: DefaultFactLimit}
}

// WithFactLimit overrides DefaultFactLimit.
func (e *Engine) WithFactLimit(n int) *Engine {
	if n > 0 {
		e.factLimit = n
	}
	return e
}

// Assert adds a ground atom to the fact store.
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

// Source renders the Datalog program for the registered rules. The output
// only depends on the rules and facts, so it is stable across calls.
func (e *Engine) Source() (string, error) {
	symbols, arities, err := e.predicates()
	if err != nil {
		return "", err
	}
	names := make([]string, 0, len(symbols))
	for p := range symbols {
		names = append(names, p)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, p := range names {
		stem, n := symbols[p], arities[p]
		params := paramList(n)
		fmt.Fprintf(&b, "# %s/%d\n", p, n)
		fmt.Fprintf(&b, "Decl base_%s(%s).\n", stem, params)
		fmt.Fprintf(&b, "Decl derived_%s(%s).\n", stem, params)
		fmt.Fprintf(&b, "Decl holds_%s(%s).\n", stem, params)
		fmt.Fprintf(&b, "holds_%s(%s) :- base_%s(%s).\n", stem, params, stem, params)
		fmt.Fprintf(&b, "holds_%s(%s) :- derived_%s(%s).\n", stem, params, stem, params)
	}
	for i, r := range e.rules {
		fmt.Fprintf(&b, "\n# rule %d: %s\n", i+1, r)
		body, err := e.bodyText(r, symbols)
		if err != nil {
			return "", err
		}
		for _, c := range r.Conclusions {
			head, err := atomText("derived_"+symbols[c.Predicate], c)
			if err != nil {
				return "", fmt.Errorf("rule %d: %w", i+1, err)
			}
			fmt.Fprintf(&b, "%s :- %s.\n", head, body)
		}
	}
	return b.String(), nil
}

func (e *Engine) bodyText(r inference.Rule, symbols map[string]string) (string, error) {
	parts := make([]string, len(r.Premises))
	for i, p := range r.Premises {
		t, err := atomText("holds_"+symbols[p.Predicate], p)
		if err != nil {
			return "", err
		}
		parts[i] = t
	}
	return strings.Join(parts, ", "), nil
}

// Activate evaluates the program to a fixpoint. The derivation trace is
// reconstructed afterwards by replaying the rules over the facts Mangle derived.
func (e *Engine) Activate(ctx context.Context, tr inference.Tracer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	src, err := e.Source()
	if err != nil {
		return err
	}
	unit, err := parse.Unit(strings.NewReader(src))
	if err != nil {
		return fmt.Errorf("parse error: %w", err)
	}
	programInfo, err := analysis.AnalyzeOneUnit(unit, nil)
	if err != nil {
		return fmt.Errorf("analysis error: %w", err)
	}

	symbols, arity, err := e.predicates()
	if err != nil {
		return err
	}
	store := factstore.NewSimpleInMemoryStore()
	for _, f := range e.facts {
		atom, err := toMangle("base_"+symbols[f.Predicate], f)
		if err != nil {
			return err
		}
		store.Add(atom)
	}
	if _, err := engine.EvalProgramWithStats(programInfo, store, engine.WithCreatedFactLimit(e.factLimit)); err != nil {
		return fmt.Errorf("evaluation error: %w", err)
	}
	e.store = store
	e.symbols = symbols
	e.arity = arity

	if tr == nil {
		return nil
	}
	derived := make(map[string]bool)
	for p := range symbols {
		atoms, err := e.lookup(inference.Rules, p)
		if err != nil {
			return err
		}
		for _, a := range atoms {
			derived[a.String()] = true
		}
	}
	_, err = inference.Chain(ctx, e.facts, e.rules, inference.ChainOptions{
		Admit:  func(a inference.Atom) bool { return derived[a.String()] },
		Tracer: tr,
	})
	return err
}

// Prove queries base_p (Facts) or derived_p (Rules).
func (e *Engine) Prove(store inference.Store, pattern inference.Atom) ([]inference.Binding, error) {
	if e.store == nil {
		return nil, fmt.Errorf("prove %s: engine not activated", pattern)
	}
	atoms, err := e.lookup(store, pattern.Predicate)
	if err != nil {
		return nil, err
	}
	return inference.Select(atoms, pattern), nil
}

func (e *Engine) lookup(store inference.Store, predicate string) ([]inference.Atom, error) {
	var prefix string
	switch store {
	case inference.Facts:
		prefix = "base_"
	case inference.Rules:
		prefix = "derived_"
	default:
		return nil, fmt.Errorf("unknown store %q", store)
	}
	stem, ok := e.symbols[predicate]
	if !ok {
		return nil, nil
	}
	sym := ast.PredicateSym{Symbol: prefix + stem, Arity: e.arity[predicate]}
	var out []inference.Atom
	err := e.store.GetFacts(ast.NewQuery(sym), func(a ast.Atom) error {
		atom, err := fromMangle(predicate, a)
		if err != nil {
			return err
		}
		out = append(out, atom)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get facts: %w", err)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

// predicates maps every source predicate to its Datalog stem and arity.
func (e *Engine) predicates() (map[string]string, map[string]int, error) {
	symbols := make(map[string]string)
	arities := make(map[string]int)
	owners := make(map[string]string)
	visit := func(a inference.Atom) error {
		if n, ok := arities[a.Predicate]; ok {
			if n != len(a.Args) {
				return fmt.Errorf("predicate %s used with arity %d and %d", a.Predicate, n, len(a.Args))
			}
			return nil
		}
		stem, err := stemFor(a.Predicate)
		if err != nil {
			return err
		}
		if prev, ok := owners[stem]; ok {
			return fmt.Errorf("predicates %s and %s collide as %s", prev, a.Predicate, stem)
		}
		owners[stem] = a.Predicate
		symbols[a.Predicate] = stem
		arities[a.Predicate] = len(a.Args)
		return nil
	}
	for _, f := range e.facts {
		if err := visit(f); err != nil {
			return nil, nil, err
		}
	}
	for _, r := range e.rules {
		for _, a := range append(append([]inference.Atom(nil), r.Premises...), r.Conclusions...) {
			if err := visit(a); err != nil {
				return nil, nil, err
			}
		}
	}
	return symbols, arities, nil
}

func stemFor(predicate string) (string, error) {
	if predicate == "" {
		return "", fmt.Errorf("empty predicate name")
	}
	for _, r := range predicate {
		if !(r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return "", fmt.Errorf("predicate %q: unsupported character %q", predicate, r)
		}
	}
	return strings.ToLower(predicate), nil
}

func paramList(n int) string {
	params := make([]string, n)
	for i := range params {
		params[i] = "A" + strconv.Itoa(i)
	}
	return strings.Join(params, ", ")
}

func atomText(symbol string, a inference.Atom) (string, error) {
	args := make([]string, len(a.Args))
	for i, t := range a.Args {
		if t.Var {
			v, err := varName(t.Name)
			if err != nil {
				return "", err
			}
			args[i] = v
			continue
		}
		args[i] = constText(t.Name)
	}
	return fmt.Sprintf("%s(%s)", symbol, strings.Join(args, ", ")), nil
}

// varName maps a source variable to a Datalog variable. Mangle variables are
// an upper-case letter followed by letters and digits, so '_' is escaped as
// "Zu" and 'Z' as "Zz" to keep distinct names distinct.
func varName(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("empty variable name")
	}
	var b strings.Builder
	b.WriteByte('V')
	for _, r := range name {
		switch {
		case r == '_':
			b.WriteString("Zu")
		case r == 'Z':
			b.WriteString("Zz")
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		default:
			return "", fmt.Errorf("variable $%s: unsupported character %q", name, r)
		}
	}
	return b.String(), nil
}

func constText(name string) string {
	switch name {
	case "True":
		return trueName
	case "False":
		return falseName
	}
	return strconv.Quote(name)
}

func toMangle(symbol string, a inference.Atom) (ast.Atom, error) {
	terms := make([]ast.BaseTerm, len(a.Args))
	for i, t := range a.Args {
		switch t.Name {
		case "True", "False":
			name, err := ast.Name(constText(t.Name))
			if err != nil {
				return ast.Atom{}, err
			}
			terms[i] = name
		default:
			terms[i] = ast.String(t.Name)
		}
	}
	return ast.NewAtom(symbol, terms...), nil
}

func fromMangle(predicate string, a ast.Atom) (inference.Atom, error) {
	args := make([]string, len(a.Args))
	for i, arg := range a.Args {
		c, ok := arg.(ast.Constant)
		if !ok {
			return inference.Atom{}, fmt.Errorf("unexpected non-constant %v in %s", arg, predicate)
		}
		switch {
		case c.Type == ast.NameType && c.Symbol == trueName:
			args[i] = "True"
		case c.Type == ast.NameType && c.Symbol == falseName:
			args[i] = "False"
		default:
			args[i] = c.Symbol
		}
	}
	return inference.NewAtom(predicate, args...), nil
}
