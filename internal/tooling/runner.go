// Package tooling runs platform utilities and hands their output to parsers.
// Every tool-backed probe goes through an Adapter, so collectors only parse
// lines and never deal with process failures themselves.
package tooling

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"
)

// Result is the captured outcome of one tool invocation
type Result struct {
	Stdout   []byte
	Stderr   string
	ExitCode int
}

// Runner launches a platform utility and waits for it to exit.
// A non-zero exit is reported through Result.ExitCode, not as an error;
// the error is reserved for failures where no output could be captured.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (Result, error)
}

// ExecRunner runs tools with os/exec, bounded by Timeout
type ExecRunner struct {
	Timeout time.Duration
}

// NewExecRunner creates a runner that kills tools running longer than timeout
func NewExecRunner(timeout time.Duration) *ExecRunner {
	return &ExecRunner{Timeout: timeout}
}

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) (Result, error) {
	path, err := exec.LookPath(name)
	if err != nil {
		return Result{ExitCode: -1}, &ToolError{Tool: name, Kind: ErrToolNotFound, ExitCode: -1, Err: err}
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, path, args...)
	// Don't wait forever on pipes held open by grandchildren after a kill
	cmd.WaitDelay = time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err = cmd.Run()
	res := Result{
		Stdout: stdout.Bytes(),
		Stderr: strings.TrimSpace(stderr.String()),
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		res.ExitCode = -1
		return res, &ToolError{Tool: name, Kind: ErrToolTimeout, ExitCode: -1, Stderr: res.Stderr, Err: ctxErr}
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		res.ExitCode = -1
		return res, &ToolError{Tool: name, Kind: ErrToolLaunch, ExitCode: -1, Stderr: res.Stderr, Err: err}
	}

	return res, nil
}
