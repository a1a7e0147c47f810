package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/cognicore/symsolve/pkg/symsolve/internalerr"
)

// Command describes an external solver invocation.
type Command struct {
	Path  string
	Args  []string
	Dir   string
	Stdin string
}

// CommandResult holds the captured output of a finished command.
type CommandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// RunCommand runs c, killing it after timeout. A non-zero exit status is
// returned as an error wrapping internalerr.ErrExecution together with the
// captured output; callers that give exit codes a meaning can inspect it.
func RunCommand(ctx context.Context, timeout time.Duration, c Command) (CommandResult, error) {
	if c.Path == "" {
		return CommandResult{}, fmt.Errorf("%w: no command", internalerr.ErrExecution)
	}
	cctx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		cctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(cctx, c.Path, c.Args...)
	cmd.Dir = c.Dir
	cmd.WaitDelay = time.Second
	if c.Stdin != "" {
		cmd.Stdin = strings.NewReader(c.Stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := CommandResult{Stdout: stdout.String(), Stderr: stderr.String()}
	if cmd.ProcessState != nil {
		res.ExitCode = cmd.ProcessState.ExitCode()
	}
	if err == nil {
		return res, nil
	}
	if errors.Is(cctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return res, fmt.Errorf("%w: %s exceeded %s", internalerr.ErrTimeout, c.Path, timeout)
	}
	if ctx.Err() != nil {
		return res, ctx.Err()
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return res, fmt.Errorf("%w: %s exited with status %d: %s", internalerr.ErrExecution, c.Path, res.ExitCode, firstLine(res.Stderr))
	}
	return res, fmt.Errorf("%w: %v", internalerr.ErrExecution, err)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
