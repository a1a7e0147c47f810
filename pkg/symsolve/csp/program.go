// Package csp is the constraint-satisfaction front end: variables with
// finite domains, constraints over them, and multiple-choice options that
// are checked against every solution.
package csp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cognicore/symsolve/pkg/symsolve/csp/expr"
	"github.com/cognicore/symsolve/pkg/symsolve/csp/fd"
	"github.com/cognicore/symsolve/pkg/symsolve/gateway"
	"github.com/cognicore/symsolve/pkg/symsolve/internalerr"
	"github.com/cognicore/symsolve/pkg/symsolve/segment"
	"github.com/cognicore/symsolve/pkg/symsolve/staging"
)

// Header keywords, searched from the last segment to the first.
const (
	KeywordQuery       = "Query:"
	KeywordConstraints = "Constraints:"
	KeywordVariables   = "Variables:"
	KeywordDomain      = "Domain:"
)

const (
	DefaultTimeout        = 20 * time.Second
	DefaultMaxTraceEvents = 200
)

// Options configures a Program.
type Options struct {
	Timeout        time.Duration // DefaultTimeout when zero
	MaxTraceEvents int           // DefaultMaxTraceEvents when zero
	Staging        staging.Options
	Logger         *zap.Logger
}

// Program is an immutable, compiled constraint problem.
type Program struct {
	opts Options

	domain      []segment.Line
	variables   []Variable
	constraints []Constraint
	options     []Option
	queryLines  []segment.Line

	err error
}

// New parses and compiles text. Failures are recorded on the program.
func New(text string, opts Options) *Program {
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.MaxTraceEvents == 0 {
		opts.MaxTraceEvents = DefaultMaxTraceEvents
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	p := &Program{opts: opts}
	p.err = p.parse(text)
	return p
}

func (p *Program) parse(text string) error {
	segs := segment.Split(text, KeywordQuery, KeywordConstraints, KeywordVariables, KeywordDomain)
	if missing := segs.Missing(); len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", internalerr.ErrParse, strings.Join(missing, ", "))
	}
	p.domain, _ = segs.Lines(KeywordDomain)
	varLines, _ := segs.Lines(KeywordVariables)
	conLines, _ := segs.Lines(KeywordConstraints)
	p.queryLines, _ = segs.Lines(KeywordQuery)
	if len(varLines) == 0 {
		return fmt.Errorf("%w: no variables", internalerr.ErrParse)
	}

	declared := make(map[string]bool, len(varLines))
	for _, line := range varLines {
		v, err := ParseVariable(line)
		if err != nil {
			return err
		}
		if declared[v.Name] {
			return fmt.Errorf("%w: variable %s declared twice", internalerr.ErrTranslation, v.Name)
		}
		declared[v.Name] = true
		p.variables = append(p.variables, v)
	}
	for i, line := range conLines {
		c, err := ParseConstraint(i, line, declared)
		if err != nil {
			return err
		}
		p.constraints = append(p.constraints, c)
	}
	for _, line := range p.queryLines {
		if opt, ok := ParseOption(line); ok {
			p.options = append(p.options, opt)
		}
	}
	if len(p.options) == 0 {
		return fmt.Errorf("%w: no option of the form \"X) variable == value\"", internalerr.ErrTranslation)
	}
	return nil
}

// Err returns the construction error, if any.
func (p *Program) Err() error { return p.err }

// Parsed reports whether the program can be executed.
func (p *Program) Parsed() bool { return p.err == nil }

// Variables returns the declared variables.
func (p *Program) Variables() []Variable { return append([]Variable(nil), p.variables...) }

// Constraints returns the compiled constraints in source order.
func (p *Program) Constraints() []Constraint { return append([]Constraint(nil), p.constraints...) }

// Options returns the parsed answer options.
func (p *Program) Options() []Option { return append([]Option(nil), p.options...) }

// Script renders the compiled instance. The same text always yields the
// same bytes.
func (p *Program) Script() (string, error) {
	if p.err != nil {
		return "", p.err
	}
	var b strings.Builder
	b.WriteString("# variables\n")
	for _, v := range p.variables {
		fmt.Fprintf(&b, "var %s in %s\n", v.Name, expr.FormatList(v.Domain))
	}
	b.WriteString("# constraints\n")
	for _, c := range p.constraints {
		if c.Kind == KindAllDifferent {
			fmt.Fprintf(&b, "c%d all_different(%s)\n", c.Index, strings.Join(c.Scope, ", "))
			continue
		}
		fmt.Fprintf(&b, "c%d (%s) -> %s\n", c.Index, strings.Join(c.Scope, ", "), c.Expr)
	}
	b.WriteString("# options\n")
	for _, o := range p.options {
		fmt.Fprintf(&b, "%s %s == %s\n", o.Letter, o.Variable, o.Value)
	}
	return b.String(), nil
}

func (p *Program) problem() (*fd.Problem, error) {
	prob := fd.NewProblem()
	for _, v := range p.variables {
		if err := prob.AddVariable(v.Name, v.Domain); err != nil {
			return nil, fmt.Errorf("%w: %v", internalerr.ErrExecution, err)
		}
	}
	for _, c := range p.constraints {
		if err := prob.AddConstraint(c.fdConstraint()); err != nil {
			return nil, fmt.Errorf("%w: %v", internalerr.ErrExecution, err)
		}
	}
	return prob, nil
}

// Solve enumerates every solution under the configured timeout and returns
// them with the search trace.
func (p *Program) Solve(ctx context.Context) ([]fd.Solution, string, error) {
	if p.err != nil {
		return nil, "", p.err
	}
	script, err := p.Script()
	if err != nil {
		return nil, "", err
	}
	area, err := staging.New(p.opts.Staging, "csp")
	if err != nil {
		return nil, "", err
	}
	defer area.Close()
	if _, err := area.Write("problem.csp", script); err != nil {
		return nil, "", err
	}

	prob, err := p.problem()
	if err != nil {
		return nil, "", err
	}
	tr := &tracer{max: p.opts.MaxTraceEvents}
	solutions, err := gateway.WithTimeout(ctx, p.opts.Timeout, func(ctx context.Context) ([]fd.Solution, error) {
		return prob.Solutions(ctx, tr)
	})
	if err != nil {
		if ctx.Err() == nil && !isTimeout(err) {
			err = fmt.Errorf("%w: %v", internalerr.ErrExecution, err)
		}
		return nil, "", err
	}
	p.opts.Logger.Debug("csp solved",
		zap.Int("variables", len(p.variables)),
		zap.Int("constraints", len(p.constraints)),
		zap.Int("solutions", len(solutions)),
		zap.Int("events", tr.total))
	return solutions, p.renderTrace(tr, solutions), nil
}

// AnswerMapping returns the first option whose variable takes exactly the
// option's value in every solution.
func (p *Program) AnswerMapping(solutions []fd.Solution) (string, bool) {
	if len(solutions) == 0 {
		return "", false
	}
	for _, o := range p.options {
		values := valueSet(solutions, o.Variable)
		if len(values) == 1 && expr.Equal(values[0], o.Value) {
			return o.Letter, true
		}
	}
	return "", false
}

// valueSet collects the distinct values of name across solutions.
func valueSet(solutions []fd.Solution, name string) []expr.Value {
	var out []expr.Value
	for _, s := range solutions {
		v, ok := s[name]
		if !ok {
			return nil
		}
		dup := false
		for _, seen := range out {
			if expr.Equal(seen, v) {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, v)
		}
	}
	return out
}

// Execute implements gateway.Program.
func (p *Program) Execute(ctx context.Context) (gateway.Answer, error) {
	solutions, trace, err := p.Solve(ctx)
	if err != nil {
		return gateway.Answer{}, err
	}
	verdict := fmt.Sprintf("%d solution(s)", len(solutions))
	letter, ok := p.AnswerMapping(solutions)
	if !ok {
		return gateway.Answer{Verdict: verdict, Trace: trace + "\nAnswer: none"}, nil
	}
	return gateway.Answer{Letter: letter, Verdict: verdict, Trace: trace + "\nAnswer: " + letter}, nil
}
