// Package sat is the raw solver-script front end. The program text is a
// complete script for an external interpreter (typically z3 driven from
// Python) that prints the accepted options as "(X)" lines.
package sat

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cognicore/symsolve/pkg/symsolve/gateway"
	"github.com/cognicore/symsolve/pkg/symsolve/internalerr"
	"github.com/cognicore/symsolve/pkg/symsolve/staging"
)

const (
	DefaultInterpreter = "python3"
	DefaultTimeout     = 60 * time.Second
	ScriptName         = "script.py"
)

var markerPattern = regexp.MustCompile(`^\(([A-Z])\)$`)

// Options configures a Program.
type Options struct {
	Interpreter string        // DefaultInterpreter when empty
	Timeout     time.Duration // DefaultTimeout when zero
	Staging     staging.Options
	Logger      *zap.Logger
}

// Program is a solver script.
type Program struct {
	opts   Options
	script string
	err    error
}

// New wraps text. Blank text does not parse.
func New(text string, opts Options) *Program {
	if opts.Interpreter == "" {
		opts.Interpreter = DefaultInterpreter
	}
	if opts.Timeout == 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	p := &Program{opts: opts, script: strings.TrimSpace(text) + "\n"}
	if strings.TrimSpace(text) == "" {
		p.err = fmt.Errorf("%w: empty solver script", internalerr.ErrParse)
	}
	return p
}

// Err returns the construction error, if any.
func (p *Program) Err() error { return p.err }

// Parsed reports whether the program can be executed.
func (p *Program) Parsed() bool { return p.err == nil }

// Script returns the staged script text.
func (p *Program) Script() string { return p.script }

// Markers extracts the option letters printed as "(X)" lines.
func Markers(output string) []string {
	var out []string
	for _, line := range strings.Split(output, "\n") {
		if m := markerPattern.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			out = append(out, m[1])
		}
	}
	return out
}

// Execute implements gateway.Program. Exactly one printed option is an
// answer; none or several leave the answer unresolved.
func (p *Program) Execute(ctx context.Context) (gateway.Answer, error) {
	if p.err != nil {
		return gateway.Answer{}, p.err
	}
	area, err := staging.New(p.opts.Staging, "sat")
	if err != nil {
		return gateway.Answer{}, err
	}
	defer area.Close()
	path, err := area.Write(ScriptName, p.script)
	if err != nil {
		return gateway.Answer{}, err
	}

	res, err := gateway.RunCommand(ctx, p.opts.Timeout, gateway.Command{
		Path: p.opts.Interpreter,
		Args: []string{path},
		Dir:  area.Dir(),
	})
	if err != nil {
		return gateway.Answer{Trace: res.Stdout + res.Stderr}, err
	}
	markers := Markers(res.Stdout)
	p.opts.Logger.Debug("sat script finished", zap.Strings("markers", markers))

	verdict := "(" + strings.Join(markers, ")(") + ")"
	if len(markers) == 0 {
		verdict = "no option"
	}
	ans := gateway.Answer{Verdict: verdict, Trace: strings.TrimRight(res.Stdout, "\n")}
	if len(markers) == 1 {
		ans.Letter = markers[0]
	}
	return ans, nil
}
