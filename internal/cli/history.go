package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var historyJSON bool

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved runs, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		runs, err := historyStore().List()
		if err != nil {
			return fmt.Errorf("listing runs: %w", err)
		}

		if historyJSON {
			return outputJSON(runs)
		}

		if len(runs) == 0 {
			fmt.Println("No saved runs.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "RUN ID\tWHEN\tPROJECT\tPAIRS\tWINNER")
		fmt.Fprintln(w, "------\t----\t-------\t-----\t------")
		for _, m := range runs {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
				m.RunID,
				m.Timestamp.Local().Format("2006-01-02 15:04"),
				m.Project,
				len(m.Results),
				m.Summary.Winner)
		}
		return w.Flush()
	},
}

func init() {
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "output as JSON")
}
