package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the tasks and agents in the bench file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if listJSON {
			return outputJSON(map[string]any{
				"tasks":  cfg.Tasks,
				"agents": cfg.Agents,
			})
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TASK\tTIMEOUT\tVALIDATE")
		fmt.Fprintln(w, "----\t-------\t--------")
		for _, t := range cfg.Tasks {
			fmt.Fprintf(w, "%s\t%ds\t%s\n", t.Name, cfg.TaskTimeout(t), truncate(t.Validate, 50))
		}
		if err := w.Flush(); err != nil {
			return err
		}

		fmt.Println()
		w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "AGENT\tMETRICS\tCOMMAND")
		fmt.Fprintln(w, "-----\t-------\t-------")
		for _, a := range cfg.Agents {
			fmt.Fprintf(w, "%s\t%d\t%s\n", a.Name, len(a.Patterns), truncate(a.Command, 50))
		}
		return w.Flush()
	},
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output as JSON")
}

func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}
