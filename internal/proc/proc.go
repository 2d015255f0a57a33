// Package proc runs shell commands with hard wall-clock timeouts.
//
// Every external process the harness launches, agent invocations and
// validation commands alike, goes through Run. The process is placed in its
// own process group so the whole tree can be killed when the timeout fires,
// and combined stdout/stderr is captured into a single buffer.
package proc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// Result holds the outcome of a completed (or killed) process.
type Result struct {
	ExitCode int
	Output   string
	Duration time.Duration
	TimedOut bool
}

// Run executes command via the shell in dir, enforcing timeout.
//
// A non-zero exit code is not an error: it is reported in Result.ExitCode so
// callers can decide what it means. An error is returned only when the
// process could not be started or observed at all.
func Run(ctx context.Context, command, dir string, timeout time.Duration) (*Result, error) {
	if timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive, got %v", timeout)
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	cmd.Dir = dir

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	setupProcessGroup(cmd)

	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start)

	timedOut := errors.Is(runCtx.Err(), context.DeadlineExceeded)

	result := &Result{
		Output:   output.String(),
		Duration: duration,
		TimedOut: timedOut,
	}

	switch {
	case runErr == nil:
		result.ExitCode = 0
	case timedOut:
		result.ExitCode = -1
	default:
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			// Nonzero exit or killed by signal; both carry a code.
			result.ExitCode = exitErr.ExitCode()
		} else {
			// The process never ran (shell missing, bad dir, ...).
			return nil, fmt.Errorf("running command: %w", runErr)
		}
	}

	return result, nil
}
