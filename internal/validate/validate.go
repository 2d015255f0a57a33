// Package validate runs a task's validation command inside a sandbox and
// maps its exit status to pass/fail.
//
// Validation always runs after the agent step whatever the agent's own exit
// code was: a crashed agent may still have left the codebase in a passing
// state, and only the validation command's exit code decides. Exit code 0 is
// the sole pass criterion.
package validate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/agentarena/agentarena/internal/docker"
	"github.com/agentarena/agentarena/internal/proc"
)

// Outcome is the result of one validation run.
type Outcome struct {
	Passed   bool
	ExitCode int
	Output   string
	Duration time.Duration
	TimedOut bool
}

// Validator executes validation commands, either directly on the host or
// inside a Docker container with the sandbox mounted.
type Validator struct {
	docker   *docker.Client // nil = host execution
	image    string
	autoPull bool
	logger   *slog.Logger
}

// New returns a host-executing Validator.
func New(logger *slog.Logger) *Validator {
	return &Validator{logger: logger}
}

// NewDocker returns a Validator that runs each validation command inside a
// throwaway container of image, with the sandbox bind-mounted at /workspace.
func NewDocker(client *docker.Client, image string, autoPull bool, logger *slog.Logger) *Validator {
	return &Validator{docker: client, image: image, autoPull: autoPull, logger: logger}
}

// Run executes command in dir with a hard timeout. A non-nil error means the
// validator itself could not run (infrastructure failure), not that
// validation failed.
func (v *Validator) Run(ctx context.Context, command, dir string, timeout time.Duration) (*Outcome, error) {
	v.logger.Debug("running validation", "command", command, "dir", dir, "timeout", timeout)

	if v.docker != nil {
		return v.runInContainer(ctx, command, dir, timeout)
	}

	res, err := proc.Run(ctx, command, dir, timeout)
	if err != nil {
		return nil, fmt.Errorf("validation command: %w", err)
	}
	return outcomeFrom(res.ExitCode, res.Output, res.Duration, res.TimedOut), nil
}

func (v *Validator) runInContainer(ctx context.Context, command, dir string, timeout time.Duration) (*Outcome, error) {
	if err := v.docker.EnsureImage(ctx, v.image, v.autoPull); err != nil {
		return nil, fmt.Errorf("ensuring image: %w", err)
	}

	name := fmt.Sprintf("arena-validate-%d", time.Now().UnixNano())
	containerID, err := v.docker.StartWorkspace(ctx, v.image, dir, name)
	if err != nil {
		return nil, fmt.Errorf("starting validation container: %w", err)
	}
	defer func() {
		if err := v.docker.RemoveContainer(context.Background(), containerID); err != nil {
			v.logger.Warn("failed to remove validation container", "id", containerID[:12], "error", err)
		}
	}()

	res, err := v.docker.Exec(ctx, containerID, []string{"sh", "-c", command}, timeout)
	if err != nil {
		return nil, fmt.Errorf("executing in container: %w", err)
	}
	return outcomeFrom(res.ExitCode, res.Output, res.Duration, res.TimedOut), nil
}

func outcomeFrom(exitCode int, output string, duration time.Duration, timedOut bool) *Outcome {
	return &Outcome{
		Passed:   !timedOut && exitCode == 0,
		ExitCode: exitCode,
		Output:   output,
		Duration: duration,
		TimedOut: timedOut,
	}
}
