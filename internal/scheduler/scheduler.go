// Package scheduler drives the task×agent run matrix.
//
// For every pair it acquires a sandbox, runs the agent, runs validation,
// extracts metrics, destroys the sandbox, and appends one result. Failures
// are caught at the pair boundary: whatever goes wrong inside a pair becomes
// that pair's result status and the matrix keeps going, so the report always
// covers every configured pair.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/agentarena/agentarena/internal/agent"
	"github.com/agentarena/agentarena/internal/config"
	"github.com/agentarena/agentarena/internal/history"
	"github.com/agentarena/agentarena/internal/metrics"
	"github.com/agentarena/agentarena/internal/result"
	"github.com/agentarena/agentarena/internal/sandbox"
	"github.com/agentarena/agentarena/internal/validate"
)

// SandboxManager creates and destroys isolated project copies. Destroy must
// be idempotent; the scheduler calls it from cleanup paths unconditionally.
type SandboxManager interface {
	Create(ctx context.Context, ref string) (*sandbox.Box, error)
	Destroy(box *sandbox.Box) error
	Snapshot(ctx context.Context, ref string) (string, error)
}

// AgentRunner invokes one agent command in a sandbox.
type AgentRunner interface {
	Execute(ctx context.Context, spec config.Agent, prompt, dir string, timeout time.Duration) (*agent.Outcome, error)
}

// Validator runs a validation command in a sandbox.
type Validator interface {
	Run(ctx context.Context, command, dir string, timeout time.Duration) (*validate.Outcome, error)
}

// Extractor derives metrics from captured agent output.
type Extractor interface {
	Extract(output string, patterns map[string]string) metrics.Record
}

// PairObserver is notified as pairs start and finish, in completion order.
// The CLI uses it for progress output; the scheduler itself renders nothing.
type PairObserver interface {
	PairStarted(task, agentName string)
	PairFinished(run result.Run)
}

// Scheduler executes the full matrix for one config.
type Scheduler struct {
	cfg       *config.Config
	sandboxes SandboxManager
	agents    AgentRunner
	validator Validator
	extractor Extractor
	observer  PairObserver
	logger    *slog.Logger
}

// Options carries the collaborators for a Scheduler.
type Options struct {
	Sandboxes SandboxManager
	Agents    AgentRunner
	Validator Validator
	Extractor Extractor
	Observer  PairObserver // optional
	Logger    *slog.Logger
}

// New returns a Scheduler for cfg.
func New(cfg *config.Config, opts Options) *Scheduler {
	obs := opts.Observer
	if obs == nil {
		obs = nopObserver{}
	}
	return &Scheduler{
		cfg:       cfg,
		sandboxes: opts.Sandboxes,
		agents:    opts.Agents,
		validator: opts.Validator,
		extractor: opts.Extractor,
		observer:  obs,
		logger:    opts.Logger,
	}
}

type nopObserver struct{}

func (nopObserver) PairStarted(string, string) {}
func (nopObserver) PairFinished(result.Run)    {}

// Run executes every configured (task, agent) pair and returns the completed
// matrix. parallel <= 1 runs pairs strictly one at a time in declared order;
// larger values bound the number of in-flight pairs. Per-pair failures never
// abort the matrix. Cancelling ctx stops new work, terminates in-flight
// subprocesses, and destroys their sandboxes before returning.
func (s *Scheduler) Run(ctx context.Context, parallel int) (*result.Matrix, error) {
	now := time.Now().UTC()
	matrix := &result.Matrix{
		RunID:     history.NewRunID(now),
		Timestamp: now,
		Project:   s.cfg.Project,
		BaseRef:   s.cfg.Base,
	}

	snapshot, err := s.sandboxes.Snapshot(ctx, s.cfg.Base)
	if err != nil {
		// Identity is informational; if it cannot be resolved here, sandbox
		// creation will surface the real failure per pair.
		s.logger.Warn("could not resolve project snapshot", "ref", s.cfg.Base, "error", err)
	}
	matrix.Snapshot = snapshot

	type pair struct {
		task  config.Task
		agent config.Agent
	}
	var pairs []pair
	for _, t := range s.cfg.Tasks {
		for _, a := range s.cfg.Agents {
			pairs = append(pairs, pair{task: t, agent: a})
		}
	}

	results := make([]result.Run, len(pairs))

	if parallel <= 1 {
		for i, p := range pairs {
			if ctx.Err() != nil {
				break
			}
			results[i] = s.runPair(ctx, p.task, p.agent)
		}
	} else {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(parallel)
		for i, p := range pairs {
			g.Go(func() error {
				if gctx.Err() != nil {
					return nil
				}
				// Each pair writes only its own slot, preserving declared
				// matrix order regardless of completion order.
				results[i] = s.runPair(gctx, p.task, p.agent)
				return nil
			})
		}
		// Pair functions never return errors; failures live in results.
		_ = g.Wait()
	}

	if err := ctx.Err(); err != nil {
		// Sandboxes of in-flight pairs are already destroyed by runPair's
		// cleanup; report the abort with the partial results attached.
		matrix.Results = nonEmpty(results)
		return matrix, err
	}

	matrix.Results = results
	matrix.Summary = result.Aggregate(results, taskNames(s.cfg.Tasks), agentNames(s.cfg.Agents))
	return matrix, nil
}

// runPair executes one (task, agent) pair. It never returns an error: every
// failure mode is folded into the returned result.
func (s *Scheduler) runPair(ctx context.Context, task config.Task, spec config.Agent) result.Run {
	s.observer.PairStarted(task.Name, spec.Name)

	run := result.Run{Task: task.Name, Agent: spec.Name}
	timeout := time.Duration(s.cfg.TaskTimeout(task)) * time.Second
	start := time.Now()

	defer func() {
		run.WallTime = time.Since(start)
		s.observer.PairFinished(run)
	}()

	box, err := s.sandboxes.Create(ctx, s.cfg.Base)
	if err != nil {
		s.logger.Error("sandbox creation failed", "task", task.Name, "agent", spec.Name, "error", err)
		run.Status = result.StatusError
		run.Cause = result.CauseFor("sandbox", err)
		return run
	}
	box.Task = task.Name
	box.Agent = spec.Name
	defer func() {
		if err := s.sandboxes.Destroy(box); err != nil {
			s.logger.Warn("sandbox destroy failed", "path", box.Path, "error", err)
		}
	}()

	outcome, err := s.agents.Execute(ctx, spec, task.Prompt, box.Path, timeout)
	if err != nil {
		s.logger.Error("agent could not run", "task", task.Name, "agent", spec.Name, "error", err)
		run.Status = result.StatusError
		run.Cause = result.CauseFor("agent", err)
		return run
	}

	run.ExitCode = outcome.ExitCode
	run.Metrics = s.extractor.Extract(outcome.Output, spec.Patterns)

	if outcome.TimedOut {
		run.Status = result.StatusTimeout
		run.Cause = []string{"agent exceeded timeout"}
		return run
	}
	// The agent's own exit code is diagnostic only; validation decides.

	vout, err := s.validator.Run(ctx, task.Validate, box.Path, timeout)
	if err != nil {
		// An unrunnable validation command counts as a failed validation,
		// not an infrastructure error; the cause says what happened.
		s.logger.Error("validator could not run", "task", task.Name, "agent", spec.Name, "error", err)
		run.Status = result.StatusFail
		run.Cause = result.CauseFor("validation", err)
		return run
	}

	switch {
	case vout.TimedOut:
		run.Status = result.StatusTimeout
		run.Cause = []string{"validation exceeded timeout"}
	case vout.Passed:
		run.Status = result.StatusPass
	default:
		run.Status = result.StatusFail
		run.Cause = validate.Summarize(vout.Output)
	}
	return run
}

func nonEmpty(results []result.Run) []result.Run {
	var out []result.Run
	for _, r := range results {
		if r.Task != "" {
			out = append(out, r)
		}
	}
	return out
}

func taskNames(tasks []config.Task) []string {
	names := make([]string, len(tasks))
	for i, t := range tasks {
		names[i] = t.Name
	}
	return names
}

func agentNames(agents []config.Agent) []string {
	names := make([]string, len(agents))
	for i, a := range agents {
		names[i] = a.Name
	}
	return names
}
