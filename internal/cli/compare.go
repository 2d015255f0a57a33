package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/agentarena/agentarena/internal/result"
)

var compareCmd = &cobra.Command{
	Use:   "compare <run-id> <run-id> [run-id...]",
	Short: "Compare agent summaries across saved runs",
	Long: `Compare two or more saved runs side-by-side: one row per agent, one
column per run, showing pass rate and mean cost.

Example:
  arena compare 2026-08-27T101502-deadbeef 2026-08-28T141530-a1b2c3d4`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := historyStore()

		var runs []*result.Matrix
		for _, id := range args {
			m, err := store.Load(id)
			if err != nil {
				return fmt.Errorf("loading run %s: %w", id, err)
			}
			runs = append(runs, m)
		}

		// Union of agent names, in first-seen order.
		var agents []string
		seen := map[string]bool{}
		for _, m := range runs {
			for _, a := range m.Summary.Agents {
				if !seen[a.Agent] {
					seen[a.Agent] = true
					agents = append(agents, a.Agent)
				}
			}
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprint(w, "AGENT")
		for _, m := range runs {
			fmt.Fprintf(w, "\t%s", m.RunID)
		}
		fmt.Fprintln(w)
		for _, name := range agents {
			fmt.Fprint(w, name)
			for _, m := range runs {
				fmt.Fprintf(w, "\t%s", compareCell(m, name))
			}
			fmt.Fprintln(w)
		}
		fmt.Fprint(w, "winner")
		for _, m := range runs {
			fmt.Fprintf(w, "\t%s", m.Summary.Winner)
		}
		fmt.Fprintln(w)
		return w.Flush()
	},
}

func compareCell(m *result.Matrix, agentName string) string {
	for _, a := range m.Summary.Agents {
		if a.Agent == agentName {
			return fmt.Sprintf("%d/%d (%.0f%%) %s", a.Passed, a.Total, a.PassRate*100, fmtCost(a.MeanCost))
		}
	}
	return "-"
}
