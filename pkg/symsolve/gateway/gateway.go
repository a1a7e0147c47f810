// Package gateway runs front-end programs under a uniform contract: a program
// that did not parse or did not produce an answer is replaced by a backup
// answer, and every outcome carries one of three status codes.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/cognicore/symsolve/pkg/symsolve/internalerr"
)

// Status is the per-program status code written to output records.
type Status string

const (
	StatusSuccess        Status = "success"
	StatusParsingError   Status = "parsing error"
	StatusExecutionError Status = "execution error"
)

// Answer is what a program produces when it runs to completion.
type Answer struct {
	Letter  string // multiple-choice letter; empty when unresolved
	Verdict string // raw solver verdict, e.g. "True" or "Unknown"
	Trace   string
}

// Program is implemented by every front end.
type Program interface {
	// Parsed reports whether construction succeeded.
	Parsed() bool
	// Err explains why Parsed is false.
	Err() error
	Execute(ctx context.Context) (Answer, error)
}

// Backup supplies a replacement answer. It must always return a letter.
type Backup func(ctx context.Context) string

// Outcome is the classified result of one program.
type Outcome struct {
	Letter  string
	Status  Status
	Detail  string
	Verdict string
	Trace   string
	Backup  bool
	Elapsed time.Duration
}

// Gateway executes programs and applies the backup policy.
type Gateway struct {
	logger *zap.Logger
}

// New creates a gateway. A nil logger disables logging.
func New(logger *zap.Logger) *Gateway {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{logger: logger}
}

// Execute runs p. Parse failures skip execution entirely.
func (g *Gateway) Execute(ctx context.Context, p Program, backup Backup) Outcome {
	start := time.Now()
	out := g.execute(ctx, p)
	if out.Status != StatusSuccess {
		out.Backup = true
		if backup != nil {
			out.Letter = backup(ctx)
		}
	}
	out.Elapsed = time.Since(start)
	return out
}

func (g *Gateway) execute(ctx context.Context, p Program) Outcome {
	if p == nil || !p.Parsed() {
		detail := "program not parsed"
		if p != nil && p.Err() != nil {
			detail = p.Err().Error()
		}
		return Outcome{Status: StatusParsingError, Detail: detail}
	}

	ans, err := safeExecute(ctx, p)
	if err != nil {
		if errors.Is(err, internalerr.ErrTimeout) {
			g.logger.Warn("program timed out", zap.Error(err))
		}
		return Outcome{Status: StatusExecutionError, Detail: Reason(err), Verdict: ans.Verdict, Trace: ans.Trace}
	}
	if ans.Letter == "" {
		return Outcome{
			Status:  StatusExecutionError,
			Detail:  internalerr.ErrAnswerUnresolved.Error(),
			Verdict: ans.Verdict,
			Trace:   ans.Trace,
		}
	}
	return Outcome{Letter: ans.Letter, Status: StatusSuccess, Verdict: ans.Verdict, Trace: ans.Trace}
}

func safeExecute(ctx context.Context, p Program) (ans Answer, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", internalerr.ErrExecution, r)
		}
	}()
	return p.Execute(ctx)
}

// Reason renders err as a short status detail. Timeouts read "timeout".
func Reason(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, internalerr.ErrTimeout):
		return "timeout"
	default:
		return err.Error()
	}
}

// WithTimeout runs fn with a deadline of d. When the deadline passes first
// the returned error wraps internalerr.ErrTimeout; fn keeps running until it
// observes its context. d <= 0 disables the deadline.
func WithTimeout[T any](ctx context.Context, d time.Duration, fn func(context.Context) (T, error)) (T, error) {
	if d <= 0 {
		return fn(ctx)
	}
	cctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		val T
		err error
	}
	done := make(chan result, 1)
	go func() {
		var r result
		defer func() {
			if p := recover(); p != nil {
				r.err = fmt.Errorf("%w: panic: %v", internalerr.ErrExecution, p)
			}
			done <- r
		}()
		r.val, r.err = fn(cctx)
	}()

	select {
	case r := <-done:
		if r.err != nil && errors.Is(cctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return r.val, fmt.Errorf("%w after %s", internalerr.ErrTimeout, d)
		}
		return r.val, r.err
	case <-cctx.Done():
		var zero T
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, fmt.Errorf("%w after %s", internalerr.ErrTimeout, d)
	}
}
