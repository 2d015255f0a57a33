package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var verifyAll bool

var verifyCmd = &cobra.Command{
	Use:   "verify [run-id]",
	Short: "Check the integrity of saved runs",
	Long: `Recomputes the results hash of a saved run and compares it with the hash
stored when the run was written. A mismatch means the document was modified
after the fact.

Example:
  arena verify 2026-08-28T141530-a1b2c3d4
  arena verify --all`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := historyStore()

		if verifyAll {
			runs, err := store.List()
			if err != nil {
				return fmt.Errorf("listing runs: %w", err)
			}
			if len(runs) == 0 {
				fmt.Println("No saved runs.")
				return nil
			}
			failed := 0
			for _, m := range runs {
				if err := store.Verify(m.RunID); err != nil {
					failed++
					fmt.Printf(" ✗ %s: %v\n", m.RunID, err)
				} else {
					fmt.Printf(" ✓ %s\n", m.RunID)
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d runs failed verification", failed, len(runs))
			}
			fmt.Printf("\nAll %d runs verified.\n", len(runs))
			return nil
		}

		if len(args) != 1 {
			return fmt.Errorf("provide a run id or --all")
		}
		if err := store.Verify(args[0]); err != nil {
			return fmt.Errorf("verification failed: %w", err)
		}
		fmt.Printf(" ✓ %s verified\n", args[0])
		return nil
	},
}

func init() {
	verifyCmd.Flags().BoolVar(&verifyAll, "all", false, "verify every saved run")
}
