// Package fol is the first-order-logic front end. Premises and a conclusion
// are parsed into formulas and handed to a theorem prover twice: once for
// the conclusion and once for its negation.
package fol

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cognicore/symsolve/pkg/symsolve/answer"
	"github.com/cognicore/symsolve/pkg/symsolve/gateway"
	"github.com/cognicore/symsolve/pkg/symsolve/internalerr"
	"github.com/cognicore/symsolve/pkg/symsolve/segment"
)

// Header keywords, searched from the last segment to the first.
const (
	KeywordConclusion = "Conclusion:"
	KeywordPremises   = "Premises:"
)

const DefaultTimeout = 10 * time.Second

const (
	headerGoal     = "=== trying to prove original conclusion ==="
	headerNegation = "=== trying to prove negation of original conclusion ==="
	footerUnknown  = "So: Unknown"
)

// Proof is the result of one prover run.
type Proof struct {
	Proved bool
	// Proof holds the proof section when Proved is set.
	Proof string
	// Log is the complete search output.
	Log string
}

// Prover attempts to derive goal from assumptions.
type Prover interface {
	Prove(ctx context.Context, goal *Formula, assumptions []*Formula) (Proof, error)
}

// Options configures a Program.
type Options struct {
	Dataset answer.Dataset // FOLIO when empty
	Prover  Prover
	Timeout time.Duration // per prover run; DefaultTimeout when zero
	Logger  *zap.Logger
}

// Statement is a parsed premise or conclusion.
type Statement struct {
	Formula *Formula
	Line    segment.Line
}

// Program is an immutable, translated first-order problem.
type Program struct {
	opts       Options
	premises   []Statement
	conclusion Statement
	err        error
}

// New parses text. Any premise or conclusion that fails to translate voids
// the whole program.
func New(text string, opts Options) *Program {
	if opts.Dataset == "" {
		opts.Dataset = answer.FOLIO
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	p := &Program{opts: opts}
	p.err = p.parse(text)
	return p
}

func (p *Program) parse(text string) error {
	segs := segment.Split(text, KeywordConclusion, KeywordPremises)
	if missing := segs.Missing(); len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", internalerr.ErrParse, strings.Join(missing, ", "))
	}
	premLines, _ := segs.Lines(KeywordPremises)
	concLines, _ := segs.Lines(KeywordConclusion)
	if len(premLines) == 0 {
		return fmt.Errorf("%w: no premises", internalerr.ErrParse)
	}
	if len(concLines) == 0 {
		return fmt.Errorf("%w: no conclusion", internalerr.ErrParse)
	}

	arities := make(map[string]int)
	translate := func(line segment.Line) (Statement, error) {
		f, err := Parse(line.Logic)
		if err != nil {
			return Statement{}, fmt.Errorf("%w: %v", internalerr.ErrTranslation, err)
		}
		if err := f.Arities(arities); err != nil {
			return Statement{}, fmt.Errorf("%w: %q: %v", internalerr.ErrTranslation, line.Logic, err)
		}
		return Statement{Formula: f, Line: line}, nil
	}
	for _, line := range premLines {
		st, err := translate(line)
		if err != nil {
			return err
		}
		p.premises = append(p.premises, st)
	}
	st, err := translate(concLines[0])
	if err != nil {
		return err
	}
	p.conclusion = st
	return nil
}

// Err returns the construction error, if any.
func (p *Program) Err() error { return p.err }

// Parsed reports whether the program can be executed.
func (p *Program) Parsed() bool { return p.err == nil }

// Premises returns the translated premises.
func (p *Program) Premises() []Statement { return append([]Statement(nil), p.premises...) }

// Conclusion returns the translated conclusion.
func (p *Program) Conclusion() Statement { return p.conclusion }

// Prover9Input renders the first proof attempt as a Prover9 input file.
func (p *Program) Prover9Input() (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return Prover9Input(p.conclusion.Formula, p.assumptions(), int(p.opts.Timeout/time.Second)), nil
}

func (p *Program) assumptions() []*Formula {
	out := make([]*Formula, len(p.premises))
	for i, st := range p.premises {
		out[i] = st.Formula
	}
	return out
}

// Adjudicate runs the two-sided protocol: the conclusion is True when it is
// provable, False when its negation is, and Unknown otherwise. A prover run
// that times out counts as not proved.
func (p *Program) Adjudicate(ctx context.Context) (answer.Truth, string, error) {
	if p.err != nil {
		return answer.Unknown, "", p.err
	}
	if p.opts.Prover == nil {
		return answer.Unknown, "", fmt.Errorf("%w: no prover configured", internalerr.ErrExecution)
	}
	goal := p.conclusion.Formula
	assumptions := p.assumptions()

	p.opts.Logger.Debug("fol proving conclusion", zap.String("goal", goal.String()))
	direct, err := p.prove(ctx, goal, assumptions)
	if err != nil {
		return answer.Unknown, "", err
	}
	if direct.Proved {
		return answer.True, strings.Join(Summarize(direct.Proof), "\n"), nil
	}

	p.opts.Logger.Debug("fol proving negation", zap.String("goal", goal.String()))
	negated, err := p.prove(ctx, Not(goal), assumptions)
	if err != nil {
		return answer.Unknown, "", err
	}
	if negated.Proved {
		return answer.False, strings.Join(Summarize(negated.Proof), "\n"), nil
	}

	p.opts.Logger.Debug("fol undetermined")
	var b strings.Builder
	b.WriteString(headerGoal + "\n")
	writeSummary(&b, direct)
	b.WriteString(headerNegation + "\n")
	writeSummary(&b, negated)
	b.WriteString(footerUnknown)
	return answer.Unknown, b.String(), nil
}

func writeSummary(b *strings.Builder, proof Proof) {
	lines := Summarize(proof.Log)
	if len(lines) == 0 {
		b.WriteString("(no search log)\n")
		return
	}
	for _, l := range lines {
		b.WriteString(l + "\n")
	}
}

func (p *Program) prove(ctx context.Context, goal *Formula, assumptions []*Formula) (Proof, error) {
	proof, err := gateway.WithTimeout(ctx, p.opts.Timeout, func(ctx context.Context) (Proof, error) {
		return p.opts.Prover.Prove(ctx, goal, assumptions)
	})
	switch {
	case err == nil:
		return proof, nil
	case errors.Is(err, internalerr.ErrTimeout):
		p.opts.Logger.Debug("fol prover timed out", zap.Duration("timeout", p.opts.Timeout))
		return Proof{}, nil
	case ctx.Err() != nil:
		return Proof{}, ctx.Err()
	}
	return Proof{}, fmt.Errorf("%w: prover: %v", internalerr.ErrExecution, err)
}

// Execute implements gateway.Program.
func (p *Program) Execute(ctx context.Context) (gateway.Answer, error) {
	truth, trace, err := p.Adjudicate(ctx)
	if err != nil {
		return gateway.Answer{}, err
	}
	letter, err := answer.Verdict(p.opts.Dataset, truth)
	if err != nil {
		return gateway.Answer{Verdict: truth.String(), Trace: trace}, fmt.Errorf("%w: %v", internalerr.ErrExecution, err)
	}
	return gateway.Answer{Letter: letter, Verdict: truth.String(), Trace: trace}, nil
}
