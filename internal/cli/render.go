package cli

import (
	"fmt"
	"os"
	"sync"
	"text/tabwriter"

	"github.com/agentarena/agentarena/internal/config"
	"github.com/agentarena/agentarena/internal/result"
)

const (
	heavyRule = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"
	lightRule = "─────────────────────────────────────────────────────────────"
)

func printMatrixPlan(c *config.Config, parallel int) {
	fmt.Println(heavyRule)
	fmt.Println(" MATRIX PLAN (dry run)")
	fmt.Println(heavyRule)
	fmt.Printf(" Project:  %s\n", c.Project)
	fmt.Printf(" Base:     %s\n", c.Base)
	fmt.Printf(" Pairs:    %d (%d tasks × %d agents)\n",
		len(c.Tasks)*len(c.Agents), len(c.Tasks), len(c.Agents))
	fmt.Printf(" Parallel: %d\n", parallel)
	fmt.Println(lightRule)
	i := 0
	for _, t := range c.Tasks {
		for _, a := range c.Agents {
			i++
			fmt.Printf(" %3d. %-30s × %-15s [%ds]\n", i, t.Name, a.Name, c.TaskTimeout(t))
		}
	}
	fmt.Println(lightRule)
}

func printRunHeader(c *config.Config, parallel int) {
	fmt.Println()
	fmt.Println(heavyRule)
	fmt.Println(" AGENTARENA RUN")
	fmt.Println(heavyRule)
	fmt.Printf(" Project:  %s\n", c.Project)
	fmt.Printf(" Base:     %s\n", c.Base)
	fmt.Printf(" Tasks:    %d\n", len(c.Tasks))
	fmt.Printf(" Agents:   %d\n", len(c.Agents))
	if parallel > 1 {
		fmt.Printf(" Parallel: %d\n", parallel)
	}
	fmt.Println(lightRule)
}

// progress prints one line per finished pair, in completion order. Pairs can
// finish concurrently, so printing is serialized.
type progress struct {
	mu    sync.Mutex
	total int
	done  int
}

func newProgress(total int) *progress {
	return &progress{total: total}
}

func (p *progress) PairStarted(task, agentName string) {}

func (p *progress) PairFinished(run result.Run) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	fmt.Printf(" [%d/%d] %-30s %-15s %s (%.1fs)\n",
		p.done, p.total, run.Task, run.Agent, statusMark(run.Status), run.WallTime.Seconds())
	if run.Status != result.StatusPass {
		for _, line := range run.Cause {
			fmt.Printf("         %s\n", line)
		}
	}
}

func statusMark(s result.Status) string {
	switch s {
	case result.StatusPass:
		return "✓ PASS"
	case result.StatusFail:
		return "✗ FAIL"
	case result.StatusTimeout:
		return "⏱ TIMEOUT"
	default:
		return "! ERROR"
	}
}

func printSummary(m *result.Matrix) {
	fmt.Println()
	fmt.Println(heavyRule)
	fmt.Printf(" RESULTS: %s\n", m.RunID)
	fmt.Println(heavyRule)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, " AGENT\tPASSED\tRATE\tMEAN TIME\tMEAN COST\tTOKENS")
	for _, a := range m.Summary.Agents {
		fmt.Fprintf(w, " %s\t%d/%d\t%.0f%%\t%.1fs\t%s\t%s\n",
			a.Agent, a.Passed, a.Total, a.PassRate*100, a.MeanTime,
			fmtCost(a.MeanCost), fmtTokens(a.TotalTokens))
	}
	_ = w.Flush()

	fmt.Println(lightRule)
	w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, " TASK\tPASSED\tRATE\tMEAN TIME")
	for _, t := range m.Summary.Tasks {
		fmt.Fprintf(w, " %s\t%d/%d\t%.0f%%\t%.1fs\n",
			t.Task, t.Passed, t.Total, t.PassRate*100, t.MeanTime)
	}
	_ = w.Flush()

	fmt.Println(lightRule)
	if m.Summary.Winner != "" {
		fmt.Printf(" Winner: %s\n", m.Summary.Winner)
	}
	fmt.Println()
}

func fmtCost(c *float64) string {
	if c == nil {
		return "-"
	}
	return fmt.Sprintf("$%.2f", *c)
}

func fmtTokens(t *int64) string {
	if t == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *t)
}
