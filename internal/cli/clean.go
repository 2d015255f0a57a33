package cli

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/agentarena/agentarena/internal/sandbox"
)

var (
	cleanForce   bool
	cleanHistory bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove leftover sandboxes",
	Long: `Removes sandbox directories left behind by interrupted runs and prunes
stale git worktree registrations. With --history, also deletes the saved run
documents.

By default, shows what would be deleted and asks for confirmation.
Use --force to skip confirmation.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		worktrees := filepath.Join(projectDir, sandbox.WorktreeDir)

		var toDelete []string
		haveWorktrees := false
		if info, err := os.Stat(worktrees); err == nil && info.IsDir() {
			haveWorktrees = true
			toDelete = append(toDelete, worktrees)
		}
		historyDir := cfg.Harness.HistoryDir
		if !filepath.IsAbs(historyDir) {
			historyDir = filepath.Join(projectDir, historyDir)
		}
		if cleanHistory {
			if info, err := os.Stat(historyDir); err == nil && info.IsDir() {
				toDelete = append(toDelete, historyDir)
			}
		}

		if len(toDelete) == 0 {
			fmt.Println("Nothing to clean.")
			return nil
		}

		fmt.Println("The following directories will be deleted:")
		fmt.Println()
		for _, dir := range toDelete {
			fmt.Printf("  %s\n", dir)
		}
		fmt.Println()

		if !cleanForce {
			fmt.Print("Delete these directories? [y/N] ")
			reader := bufio.NewReader(os.Stdin)
			response, err := reader.ReadString('\n')
			if err != nil {
				return fmt.Errorf("reading response: %w", err)
			}
			response = strings.TrimSpace(strings.ToLower(response))
			if response != "y" && response != "yes" {
				fmt.Println("Cancelled.")
				return nil
			}
		}

		if haveWorktrees {
			// Prune covers the worktree dir and stale git registrations.
			if err := sandbox.NewManager(projectDir, logger).Prune(context.Background()); err != nil {
				return fmt.Errorf("pruning sandboxes: %w", err)
			}
			fmt.Printf("  Deleted %s\n", worktrees)
		}

		if cleanHistory {
			if err := os.RemoveAll(historyDir); err != nil {
				return fmt.Errorf("removing history: %w", err)
			}
			fmt.Printf("  Deleted %s\n", historyDir)
		}

		return nil
	},
}

func init() {
	cleanCmd.Flags().BoolVar(&cleanForce, "force", false, "skip confirmation prompts")
	cleanCmd.Flags().BoolVar(&cleanHistory, "history", false, "also delete saved runs")
}
