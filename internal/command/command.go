package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Runner executes external programs and captures their standard output.
type Runner interface {
	// Output runs name with args and returns its stdout.
	Output(ctx context.Context, name string, args ...string) ([]byte, error)
	// Shell runs script through sh -c and returns its stdout. Stdout is
	// returned alongside the error when the script exits non-zero.
	Shell(ctx context.Context, script string) ([]byte, error)
}

const waitDelay = time.Second

// Exec runs real processes. A zero Timeout means no deadline beyond ctx.
type Exec struct {
	Timeout time.Duration
}

func (e *Exec) Output(ctx context.Context, name string, args ...string) ([]byte, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	return run(ctx, exec.CommandContext(ctx, name, args...))
}

func (e *Exec) Shell(ctx context.Context, script string) ([]byte, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	return run(ctx, exec.CommandContext(ctx, "sh", "-c", script))
}

func (e *Exec) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e == nil || e.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, e.Timeout)
}

func run(ctx context.Context, cmd *exec.Cmd) ([]byte, error) {
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	// Grandchildren can hold the pipes open after the direct child is killed.
	cmd.WaitDelay = waitDelay

	out, err := cmd.Output()
	if err == nil {
		return out, nil
	}
	// A killed process only reports "signal: killed"; surface the deadline.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return out, fmt.Errorf("%w: %w", ctxErr, err)
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, &StderrError{Err: err, Stderr: msg}
		}
	}
	return out, err
}

// StderrError attaches a failed process's diagnostic output to its exit error.
type StderrError struct {
	Err    error
	Stderr string
}

func (e *StderrError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Stderr)
}

func (e *StderrError) Unwrap() error { return e.Err }
