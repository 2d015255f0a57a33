package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var showJSON bool

var showCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Display a saved run",
	Long: `Shows the full results of a saved run.

Example:
  arena show 2026-08-28T141530-a1b2c3d4
  arena show 2026-08-28T141530-a1b2c3d4 --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := historyStore().Load(args[0])
		if err != nil {
			return fmt.Errorf("loading run: %w", err)
		}

		if showJSON {
			return outputJSON(m)
		}

		fmt.Println()
		fmt.Println(heavyRule)
		fmt.Printf(" RUN: %s\n", m.RunID)
		fmt.Println(heavyRule)
		fmt.Printf(" When:     %s\n", m.Timestamp.Local().Format("2006-01-02 15:04:05"))
		fmt.Printf(" Project:  %s\n", m.Project)
		fmt.Printf(" Base:     %s\n", m.BaseRef)
		if m.Snapshot != "" {
			fmt.Printf(" Snapshot: %s\n", m.Snapshot)
		}
		fmt.Println(lightRule)
		for _, r := range m.Results {
			fmt.Printf(" %-30s %-15s %s (%.1fs)\n",
				r.Task, r.Agent, statusMark(r.Status), r.WallTime.Seconds())
			if r.Metrics.CostUSD != nil {
				fmt.Printf("   cost: $%.4f\n", *r.Metrics.CostUSD)
			}
			if t := r.Metrics.TotalTokens(); t != nil {
				fmt.Printf("   tokens: %d\n", *t)
			}
			for _, line := range r.Cause {
				fmt.Printf("   %s\n", line)
			}
		}
		printSummary(m)
		return nil
	},
}

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "output as JSON")
}
