// Package prover9 runs the external Prover9 binary as a fol.Prover.
package prover9

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/cognicore/symsolve/pkg/symsolve/fol"
	"github.com/cognicore/symsolve/pkg/symsolve/gateway"
	"github.com/cognicore/symsolve/pkg/symsolve/internalerr"
	"github.com/cognicore/symsolve/pkg/symsolve/staging"
)

const (
	DefaultPath       = "prover9"
	DefaultMaxSeconds = 10

	proofStart = "============================== PROOF"
	proofEnd   = "============================== end of proof"
	proved     = "THEOREM PROVED"
)

// Exit codes with which Prover9 reports a search that ended without a
// proof: sos_empty, max_megs, max_seconds, max_given and max_kept.
var searchFailed = map[int]bool{2: true, 3: true, 4: true, 5: true, 6: true}

// Options configures the binary invocation.
type Options struct {
	Path       string // DefaultPath when empty
	MaxSeconds int    // search limit written into the input file
	// Timeout kills the process; MaxSeconds plus five seconds when zero.
	Timeout time.Duration
	Staging staging.Options
}

// Prover implements fol.Prover.
type Prover struct {
	opts Options
}

// New creates a prover.
func New(opts Options) *Prover {
	if opts.Path == "" {
		opts.Path = DefaultPath
	}
	if opts.MaxSeconds <= 0 {
		opts.MaxSeconds = DefaultMaxSeconds
	}
	if opts.Timeout == 0 {
		opts.Timeout = time.Duration(opts.MaxSeconds)*time.Second + 5*time.Second
	}
	return &Prover{opts: opts}
}

// Prove writes the input file to a fresh staging area and runs Prover9 on it.
func (p *Prover) Prove(ctx context.Context, goal *fol.Formula, assumptions []*fol.Formula) (fol.Proof, error) {
	area, err := staging.New(p.opts.Staging, "prover9")
	if err != nil {
		return fol.Proof{}, err
	}
	defer area.Close()
	input, err := area.Write("input.in", fol.Prover9Input(goal, assumptions, p.opts.MaxSeconds))
	if err != nil {
		return fol.Proof{}, err
	}

	res, err := gateway.RunCommand(ctx, p.opts.Timeout, gateway.Command{
		Path: p.opts.Path,
		Args: []string{"-f", input},
		Dir:  area.Dir(),
	})
	if err != nil {
		if errors.Is(err, internalerr.ErrExecution) && searchFailed[res.ExitCode] {
			return fol.Proof{Log: res.Stdout}, nil
		}
		return fol.Proof{Log: res.Stdout}, err
	}
	if !strings.Contains(res.Stdout, proved) {
		return fol.Proof{Log: res.Stdout}, nil
	}
	return fol.Proof{Proved: true, Proof: ExtractProof(res.Stdout), Log: res.Stdout}, nil
}

// ExtractProof returns the proof section of a Prover9 log, banners
// included, or "" when there is none.
func ExtractProof(log string) string {
	var b strings.Builder
	in := false
	for _, line := range strings.Split(log, "\n") {
		switch {
		case strings.HasPrefix(line, proofStart):
			in = true
		case !in:
			continue
		}
		b.WriteString(line + "\n")
		if strings.HasPrefix(line, proofEnd) {
			break
		}
	}
	return b.String()
}
