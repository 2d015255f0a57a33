// Package agent invokes external coding agents as opaque subprocesses.
//
// An agent is nothing more than a command template with a prompt placeholder.
// Running one is a pure function from (template, prompt, working directory,
// timeout) to (exit code, captured output, elapsed time); everything
// unpredictable about third-party CLIs stays behind this boundary.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/agentarena/agentarena/internal/config"
	"github.com/agentarena/agentarena/internal/proc"
)

// Outcome is what came back from one agent invocation.
type Outcome struct {
	ExitCode int
	Output   string
	Duration time.Duration
	TimedOut bool
}

// Runner executes agent commands inside sandboxes.
type Runner struct {
	logger *slog.Logger
}

// NewRunner returns an agent Runner.
func NewRunner(logger *slog.Logger) *Runner {
	return &Runner{logger: logger}
}

// BuildCommand substitutes the prompt into the command template. Quoting is
// the template's job: write the placeholder as '{prompt}' when the agent
// expects a single argument.
func BuildCommand(template, prompt string) string {
	return strings.Replace(template, config.PromptPlaceholder, prompt, 1)
}

// Execute runs one agent on one task prompt inside dir, enforcing timeout.
// The agent's exit code is diagnostic only; the validator alone decides
// pass/fail. An error is returned only when the process could not run.
func (r *Runner) Execute(ctx context.Context, spec config.Agent, prompt, dir string, timeout time.Duration) (*Outcome, error) {
	command := BuildCommand(spec.Command, prompt)
	r.logger.Debug("running agent", "agent", spec.Name, "dir", dir, "timeout", timeout)

	res, err := proc.Run(ctx, command, dir, timeout)
	if err != nil {
		return nil, fmt.Errorf("agent %s: %w", spec.Name, err)
	}

	if res.TimedOut {
		r.logger.Debug("agent timed out", "agent", spec.Name, "after", res.Duration)
	} else if res.ExitCode != 0 {
		r.logger.Debug("agent exited nonzero", "agent", spec.Name, "exit_code", res.ExitCode)
	}

	return &Outcome{
		ExitCode: res.ExitCode,
		Output:   res.Output,
		Duration: res.Duration,
		TimedOut: res.TimedOut,
	}, nil
}
