package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentarena/agentarena/internal/config"
	"github.com/agentarena/agentarena/internal/validate"
	"github.com/agentarena/agentarena/internal/watcher"
)

var (
	watchTask     string
	watchDir      string
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run a task's validation command on every file change",
	Long: `Watches a workspace and re-runs the named task's validation command each
time the files settle after a change. Useful while iterating on a task by
hand, or while a long-running agent works in a sandbox.

Example:
  arena watch --task fix-auth
  arena watch --task fix-auth --dir .agentarena/worktrees/run-a1b2c3d4e5f6`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var task *config.Task
		for i := range cfg.Tasks {
			if cfg.Tasks[i].Name == watchTask {
				task = &cfg.Tasks[i]
				break
			}
		}
		if task == nil {
			return fmt.Errorf("unknown task %q", watchTask)
		}

		dir := watchDir
		if dir == "" {
			dir = projectDir
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sigCh)
		go func() {
			select {
			case <-sigCh:
				fmt.Println("\nStopping watch...")
				cancel()
			case <-ctx.Done():
			}
		}()

		validator := validate.New(logger)
		timeout := time.Duration(cfg.TaskTimeout(*task)) * time.Second
		attempt := 0
		check := func() {
			attempt++
			fmt.Println(lightRule)
			fmt.Printf(" [%d] validating %s\n", attempt, task.Name)
			out, err := validator.Run(ctx, task.Validate, dir, timeout)
			switch {
			case err != nil:
				fmt.Printf(" ! could not run validation: %v\n", err)
			case out.TimedOut:
				fmt.Printf(" ⏱ TIMEOUT after %.1fs\n", out.Duration.Seconds())
			case out.Passed:
				fmt.Printf(" ✓ PASS (%.1fs)\n", out.Duration.Seconds())
			default:
				fmt.Printf(" ✗ FAIL (%.1fs)\n", out.Duration.Seconds())
				for _, line := range validate.Summarize(out.Output) {
					fmt.Printf("   %s\n", line)
				}
			}
		}

		fmt.Printf("Watching %s for task %q (Ctrl-C to stop)\n", dir, task.Name)
		check()

		w := watcher.New(dir, watchDebounce, check, logger)
		if err := w.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	watchCmd.Flags().StringVarP(&watchTask, "task", "t", "", "task whose validation command to run (required)")
	watchCmd.Flags().StringVarP(&watchDir, "dir", "d", "", "directory to watch (default: project dir)")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "quiet period before re-validating")
	_ = watchCmd.MarkFlagRequired("task")
}
