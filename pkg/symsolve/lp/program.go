// Package lp is the logic-programming front end: facts and
// "premise && premise >>> conclusion" rules evaluated by forward chaining.
package lp

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/cognicore/symsolve/pkg/symsolve/answer"
	"github.com/cognicore/symsolve/pkg/symsolve/gateway"
	"github.com/cognicore/symsolve/pkg/symsolve/inference"
	"github.com/cognicore/symsolve/pkg/symsolve/inference/mangle"
	"github.com/cognicore/symsolve/pkg/symsolve/internalerr"
	"github.com/cognicore/symsolve/pkg/symsolve/segment"
	"github.com/cognicore/symsolve/pkg/symsolve/staging"
)

// Header keywords, searched from the last segment to the first.
const (
	KeywordQuery      = "Query:"
	KeywordRules      = "Rules:"
	KeywordFacts      = "Facts:"
	KeywordPredicates = "Predicates:"
)

// ParseStatus tells how the program text was understood.
type ParseStatus int

const (
	WellFormed ParseStatus = iota
	Repaired
	Unparseable
)

func (s ParseStatus) String() string {
	switch s {
	case WellFormed:
		return "well-formed"
	case Repaired:
		return "repaired"
	default:
		return "unparseable"
	}
}

// EngineFactory creates a fresh inference engine per execution.
type EngineFactory func() inference.Engine

// MangleEngine is the default EngineFactory.
func MangleEngine() inference.Engine { return mangle.New() }

// Options configures a Program.
type Options struct {
	Dataset   answer.Dataset // ProntoQA when empty
	NewEngine EngineFactory  // MangleEngine when nil
	// RejectRepaired treats programs that needed segment repair as unparsed.
	RejectRepaired bool
	Staging        staging.Options
	Logger         *zap.Logger
}

type fact struct {
	atom inference.Atom
	line segment.Line
	skip bool
}

type query struct {
	atom     inference.Atom
	asserted bool
	line     segment.Line
}

// Program is an immutable, compiled logic program.
type Program struct {
	opts Options

	predicates []segment.Line
	facts      []fact
	rules      []inference.Rule
	ruleLines  []segment.Line
	query      query

	status ParseStatus
	err    error
}

// New parses and compiles text. Failures are recorded on the program.
func New(text string, opts Options) *Program {
	if opts.Dataset == "" {
		opts.Dataset = answer.ProntoQA
	}
	if opts.NewEngine == nil {
		opts.NewEngine = MangleEngine
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	p := &Program{opts: opts}
	p.status, p.err = p.parse(text)
	return p
}

func (p *Program) parse(text string) (ParseStatus, error) {
	segs := segment.Split(text, KeywordQuery, KeywordRules, KeywordFacts, KeywordPredicates)
	p.predicates, _ = segs.Lines(KeywordPredicates)

	queryLines, err := segs.Lines(KeywordQuery)
	if err != nil {
		return Unparseable, fmt.Errorf("%w: %v", internalerr.ErrParse, err)
	}
	if len(queryLines) == 0 {
		return Unparseable, fmt.Errorf("%w: empty query", internalerr.ErrParse)
	}

	factLines, factErr := segs.Lines(KeywordFacts)
	ruleLines, ruleErr := segs.Lines(KeywordRules)
	status := WellFormed
	if factErr != nil || ruleErr != nil || len(factLines) == 0 || len(ruleLines) == 0 {
		if factErr != nil && ruleErr != nil {
			return Unparseable, fmt.Errorf("%w: neither %s nor %s present", internalerr.ErrParse, KeywordFacts, KeywordRules)
		}
		factLines, ruleLines = reclassify(append(append([]segment.Line(nil), factLines...), ruleLines...))
		status = Repaired
	}

	for _, line := range factLines {
		atom, ok, err := CompileFact(line)
		if err != nil {
			return status, err
		}
		p.facts = append(p.facts, fact{atom: atom, line: line, skip: !ok})
	}
	for i, line := range ruleLines {
		rule, err := CompileRule(fmt.Sprintf("rule%d", i+1), line)
		if err != nil {
			return status, err
		}
		p.rules = append(p.rules, rule)
		p.ruleLines = append(p.ruleLines, line)
	}

	q, err := ParseAtom(queryLines[0].Logic)
	if err != nil {
		return status, err
	}
	if !q.Ground() {
		return status, fmt.Errorf("%w: query %q must name a subject", internalerr.ErrTranslation, queryLines[0].Logic)
	}
	p.query = query{
		atom: inference.Atom{
			Predicate: q.Predicate,
			Args:      []inference.Term{q.Args[0], inference.Var("value")},
		},
		asserted: q.Args[1].Name == "True",
		line:     queryLines[0],
	}
	return status, nil
}

// reclassify sorts statements into facts and rules by the rule marker.
func reclassify(lines []segment.Line) (facts, rules []segment.Line) {
	for _, l := range lines {
		if strings.Contains(l.Logic, ruleMarker) {
			rules = append(rules, l)
		} else {
			facts = append(facts, l)
		}
	}
	return facts, rules
}

// Status reports how the segments were understood.
func (p *Program) Status() ParseStatus { return p.status }

// Err returns the construction error, if any.
func (p *Program) Err() error {
	if p.err == nil && p.status == Repaired && p.opts.RejectRepaired {
		return fmt.Errorf("%w: segments required repair", internalerr.ErrParse)
	}
	return p.err
}

// Parsed reports whether the program can be executed.
func (p *Program) Parsed() bool {
	return p.status != Unparseable && p.Err() == nil
}

// Rules returns the compiled rules.
func (p *Program) Rules() []inference.Rule {
	return append([]inference.Rule(nil), p.rules...)
}

// Facts returns the ground facts, skipping lines that mention variables.
func (p *Program) Facts() []inference.Atom {
	var out []inference.Atom
	for _, f := range p.facts {
		if !f.skip {
			out = append(out, f.atom)
		}
	}
	return out
}

// Artifacts renders the staged solver inputs keyed by file name. The
// rendering is deterministic: the same text always yields the same bytes.
func (p *Program) Artifacts() (map[string]string, error) {
	if !p.Parsed() {
		return nil, p.Err()
	}
	out := map[string]string{
		"facts.kfb": renderFacts(p.Facts()),
		"rules.krb": renderRules(p.rules),
	}
	eng := p.opts.NewEngine()
	if src, ok := eng.(interface{ Source() (string, error) }); ok {
		if err := p.load(eng); err != nil {
			return nil, err
		}
		text, err := src.Source()
		if err != nil {
			return nil, err
		}
		out["program.mg"] = text
	}
	return out, nil
}

func (p *Program) load(eng inference.Engine) error {
	for _, f := range p.Facts() {
		if err := eng.Assert(f); err != nil {
			return fmt.Errorf("%w: %v", internalerr.ErrExecution, err)
		}
	}
	for _, r := range p.rules {
		if err := eng.AddRule(r); err != nil {
			return fmt.Errorf("%w: %v", internalerr.ErrExecution, err)
		}
	}
	return nil
}

// Result is the outcome of forward chaining plus the query lookup.
type Result struct {
	Truth    answer.Truth
	Bindings []string // literal values found, facts store first
	Trace    string
}

// Infer stages the artifacts, chains the rules and resolves the query.
func (p *Program) Infer(ctx context.Context) (Result, error) {
	if !p.Parsed() {
		return Result{}, p.Err()
	}
	artifacts, err := p.Artifacts()
	if err != nil {
		return Result{}, err
	}
	area, err := staging.New(p.opts.Staging, "lp")
	if err != nil {
		return Result{}, err
	}
	defer area.Close()
	for _, name := range []string{"facts.kfb", "rules.krb", "program.mg"} {
		if text, ok := artifacts[name]; ok {
			if _, err := area.Write(name, text); err != nil {
				return Result{}, err
			}
		}
	}

	eng := p.opts.NewEngine()
	if err := p.load(eng); err != nil {
		return Result{}, err
	}
	tr := &tracer{}
	if err := eng.Activate(ctx, tr); err != nil {
		return Result{}, fmt.Errorf("%w: %v", internalerr.ErrExecution, err)
	}

	var values []string
	var perStore [2]int
	for i, store := range []inference.Store{inference.Facts, inference.Rules} {
		bindings, err := eng.Prove(store, p.query.atom)
		if err != nil {
			return Result{}, fmt.Errorf("%w: %v", internalerr.ErrExecution, err)
		}
		perStore[i] = len(bindings)
		for _, b := range bindings {
			values = append(values, b["value"])
		}
	}
	truth, err := Resolve(values)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", internalerr.ErrExecution, err)
	}
	p.opts.Logger.Debug("lp query resolved",
		zap.String("query", p.query.line.Logic),
		zap.Int("derivations", len(tr.derivations)),
		zap.Strings("bindings", values),
		zap.Stringer("truth", truth))

	return Result{
		Truth:    truth,
		Bindings: values,
		Trace:    p.renderTrace(tr, perStore, truth),
	}, nil
}

// Execute implements gateway.Program.
func (p *Program) Execute(ctx context.Context) (gateway.Answer, error) {
	res, err := p.Infer(ctx)
	if err != nil {
		return gateway.Answer{}, err
	}
	letter, err := answer.Query(p.opts.Dataset, res.Truth, p.query.asserted)
	if err != nil {
		return gateway.Answer{Verdict: res.Truth.String(), Trace: res.Trace}, fmt.Errorf("%w: %v", internalerr.ErrExecution, err)
	}
	return gateway.Answer{Letter: letter, Verdict: res.Truth.String(), Trace: res.Trace}, nil
}

// Resolve merges the literal values bound by the query. None is unknown,
// one is that value, two are combined with AND, and more than two must all
// agree or the result is unknown.
func Resolve(values []string) (answer.Truth, error) {
	bools := make([]bool, len(values))
	for i, v := range values {
		t, err := answer.ParseTruth(v)
		if err != nil || t == answer.Unknown {
			return answer.Unknown, fmt.Errorf("binding %q is not a boolean literal", v)
		}
		bools[i] = t == answer.True
	}
	switch len(bools) {
	case 0:
		return answer.Unknown, nil
	case 1:
		return answer.TruthOf(bools[0]), nil
	case 2:
		return answer.TruthOf(bools[0] && bools[1]), nil
	}
	for _, b := range bools[1:] {
		if b != bools[0] {
			return answer.Unknown, nil
		}
	}
	return answer.TruthOf(bools[0]), nil
}
