// Package cli provides the command-line interface for AgentArena.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/agentarena/agentarena/internal/config"
	"github.com/agentarena/agentarena/internal/history"
)

var (
	cfgFile    string
	projectDir string
	verbose    bool
	cfg        *config.Config
	logger     *slog.Logger
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "arena",
	Short: "Race CLI coding agents against each other on your codebase",
	Long: `AgentArena races external CLI coding agents (claude, aider, codex, ...)
against a set of tasks defined in a bench file. Every (task, agent) pair gets
a fresh isolated copy of the project, the agent's command runs with the task
prompt substituted in, and a validation command decides pass or fail. Results
are aggregated into a comparative report with a deterministic winner.

Agents are opaque: anything runnable as a shell command with a {prompt}
placeholder can compete. Cost and token metrics are scraped from agent output
with per-agent regex patterns.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Skip config loading for help
		if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "version" {
			return nil
		}

		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		}))

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		return nil
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "bench file (default: ./arena.toml)")
	rootCmd.PersistentFlags().StringVarP(&projectDir, "project-dir", "C", ".", "project directory to benchmark")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(compareCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(versionCmd)
}

// historyStore returns the run store rooted at the configured history dir,
// resolved against the project directory when relative.
func historyStore() *history.Store {
	dir := cfg.Harness.HistoryDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(projectDir, dir)
	}
	return history.NewStore(dir)
}

// Version information (set by build flags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("arena version %s\n", Version)
		fmt.Printf("  commit: %s\n", Commit)
		fmt.Printf("  built:  %s\n", BuildDate)
	},
}
