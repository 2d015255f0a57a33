package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/agentarena/agentarena/internal/agent"
	"github.com/agentarena/agentarena/internal/config"
	"github.com/agentarena/agentarena/internal/docker"
	"github.com/agentarena/agentarena/internal/metrics"
	"github.com/agentarena/agentarena/internal/sandbox"
	"github.com/agentarena/agentarena/internal/scheduler"
	"github.com/agentarena/agentarena/internal/validate"
)

var (
	runTasks    []string
	runAgents   []string
	runParallel int
	runDryRun   bool
	runDocker   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full task×agent matrix",
	Long: `Executes every (task, agent) pair from the bench file. Each pair gets a
fresh sandbox (a detached git worktree, or a directory copy for non-git
projects), the agent command runs inside it with the prompt substituted, and
the task's validation command decides pass or fail.

Examples:
  arena run
  arena run --tasks fix-auth,add-cache --agents claude
  arena run --parallel 4
  arena run --dry-run`,
	RunE: func(cmd *cobra.Command, args []string) error {
		selected, err := cfg.Filter(runTasks, runAgents)
		if err != nil {
			return err
		}

		parallel := runParallel
		if parallel == 0 {
			parallel = selected.Harness.Parallel
		}

		if runDryRun {
			printMatrixPlan(selected, parallel)
			return nil
		}

		validator, cleanup, err := buildValidator(selected)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigCh)
		go func() {
			select {
			case <-sigCh:
				fmt.Println("\nReceived interrupt, stopping...")
				cancel()
			case <-ctx.Done():
			}
		}()

		printRunHeader(selected, parallel)

		progress := newProgress(len(selected.Tasks) * len(selected.Agents))
		sched := scheduler.New(selected, scheduler.Options{
			Sandboxes: sandbox.NewManager(projectDir, logger),
			Agents:    agent.NewRunner(logger),
			Validator: validator,
			Extractor: metrics.NewExtractor(logger),
			Observer:  progress,
			Logger:    logger,
		})

		matrix, err := sched.Run(ctx, parallel)
		if err != nil {
			if ctx.Err() != nil && matrix != nil {
				fmt.Printf("\nInterrupted after %d of %d pairs; partial results not saved.\n",
					len(matrix.Results), progress.total)
				return nil
			}
			return err
		}

		printSummary(matrix)

		path, err := historyStore().Save(matrix)
		if err != nil {
			return fmt.Errorf("saving run: %w", err)
		}
		fmt.Printf(" Run saved to: %s\n\n", path)
		return nil
	},
}

// buildValidator returns the host validator, or the container-isolated one
// when docker mode is enabled in config or by flag.
func buildValidator(c *config.Config) (scheduler.Validator, func(), error) {
	if !c.Docker.Enabled && !runDocker {
		return validate.New(logger), func() {}, nil
	}
	if c.Docker.Image == "" {
		return nil, nil, fmt.Errorf("docker validation requires [docker] image in the bench file")
	}
	client, err := docker.NewClient()
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to docker: %w", err)
	}
	v := validate.NewDocker(client, c.Docker.Image, c.Docker.AutoPull, logger)
	return v, func() { _ = client.Close() }, nil
}

func init() {
	runCmd.Flags().StringSliceVar(&runTasks, "tasks", nil, "run only these tasks (comma-separated)")
	runCmd.Flags().StringSliceVar(&runAgents, "agents", nil, "run only these agents (comma-separated)")
	runCmd.Flags().IntVarP(&runParallel, "parallel", "p", 0, "max concurrent pairs (default from config)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "print the matrix without executing")
	runCmd.Flags().BoolVar(&runDocker, "docker", false, "run validation commands in a container")
}
