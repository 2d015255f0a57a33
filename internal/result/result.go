// Package result defines the per-pair and per-run result types and the
// aggregation that turns them into comparative summaries.
package result

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/agentarena/agentarena/internal/metrics"
)

// Status is the final status of one (task, agent) pair.
type Status string

const (
	StatusPass    Status = "pass"
	StatusFail    Status = "fail"
	StatusTimeout Status = "timeout"
	// StatusError marks infrastructure failures (sandbox, unrunnable
	// commands) so they are never mistaken for agent quality.
	StatusError Status = "error"
)

// Run is the outcome of one (task, agent) pair. Exactly one exists per pair
// in a completed matrix, whatever went wrong along the way.
type Run struct {
	Task   string `json:"task"`
	Agent  string `json:"agent"`
	Status Status `json:"status"`

	WallTime time.Duration `json:"wall_time_ns"`
	ExitCode int           `json:"exit_code"`

	Metrics metrics.Record `json:"metrics"`

	// Cause carries diagnostics when Status is not pass.
	Cause []string `json:"cause,omitempty"`
}

// Passed reports whether the pair passed validation.
func (r Run) Passed() bool {
	return r.Status == StatusPass
}

// Matrix is the durable artifact of one full run: metadata, the ordered
// per-pair results, and the derived summary.
type Matrix struct {
	RunID     string    `json:"run_id"`
	Timestamp time.Time `json:"timestamp"`
	Project   string    `json:"project"`
	BaseRef   string    `json:"base_ref"`
	Snapshot  string    `json:"snapshot"`

	Results []Run   `json:"results"`
	Summary Summary `json:"summary"`
}

// AgentSummary aggregates one agent's results across all tasks.
type AgentSummary struct {
	Agent       string   `json:"agent"`
	Passed      int      `json:"passed"`
	Total       int      `json:"total"`
	PassRate    float64  `json:"pass_rate"`
	MeanTime    float64  `json:"mean_time_seconds"`
	MeanCost    *float64 `json:"mean_cost_usd,omitempty"`
	TotalTokens *int64   `json:"total_tokens,omitempty"`
	MeanTokens  *float64 `json:"mean_tokens,omitempty"`
}

// TaskSummary aggregates one task's results across all agents.
type TaskSummary struct {
	Task     string   `json:"task"`
	Passed   int      `json:"passed"`
	Total    int      `json:"total"`
	PassRate float64  `json:"pass_rate"`
	MeanTime float64  `json:"mean_time_seconds"`
	MeanCost *float64 `json:"mean_cost_usd,omitempty"`
}

// Summary is the immutable aggregate view of a completed matrix.
type Summary struct {
	Agents []AgentSummary `json:"agents"`
	Tasks  []TaskSummary  `json:"tasks"`
	Winner string         `json:"winner,omitempty"`
}

// Aggregate computes per-agent and per-task summaries and picks the winner.
// agentOrder and taskOrder fix the output ordering (and winner tie-breaks
// beyond the ranking keys) to the declared config order.
func Aggregate(results []Run, taskOrder, agentOrder []string) Summary {
	byAgent := groupBy(results, func(r Run) string { return r.Agent })
	byTask := groupBy(results, func(r Run) string { return r.Task })

	summary := Summary{}
	for _, agent := range agentOrder {
		runs := byAgent[agent]
		s := AgentSummary{Agent: agent, Total: len(runs)}
		s.Passed, s.PassRate, s.MeanTime, s.MeanCost = basicStats(runs)
		s.TotalTokens, s.MeanTokens = tokenStats(runs)
		summary.Agents = append(summary.Agents, s)
	}
	for _, task := range taskOrder {
		runs := byTask[task]
		s := TaskSummary{Task: task, Total: len(runs)}
		s.Passed, s.PassRate, s.MeanTime, s.MeanCost = basicStats(runs)
		summary.Tasks = append(summary.Tasks, s)
	}

	summary.Winner = pickWinner(summary.Agents)
	return summary
}

// pickWinner ranks agents by pass rate descending, then mean cost ascending
// (unknown cost ranks last), then mean wall time ascending. Config order
// breaks any remaining tie, so the choice is deterministic.
func pickWinner(agents []AgentSummary) string {
	if len(agents) == 0 {
		return ""
	}

	best := agents[0]
	for _, a := range agents[1:] {
		if betterThan(a, best) {
			best = a
		}
	}
	return best.Agent
}

func betterThan(a, b AgentSummary) bool {
	if a.PassRate != b.PassRate {
		return a.PassRate > b.PassRate
	}
	ac, bc := costOrInf(a.MeanCost), costOrInf(b.MeanCost)
	if ac != bc {
		return ac < bc
	}
	return a.MeanTime < b.MeanTime
}

func costOrInf(c *float64) float64 {
	if c == nil {
		// Unknown cost never beats a known one.
		return math.Inf(1)
	}
	return *c
}

func groupBy(results []Run, key func(Run) string) map[string][]Run {
	groups := make(map[string][]Run)
	for _, r := range results {
		groups[key(r)] = append(groups[key(r)], r)
	}
	return groups
}

// basicStats computes pass count, pass rate, mean wall time, and mean cost.
// Mean cost is nil when no run reported a cost; runs with unknown cost are
// excluded from the mean rather than counted as zero.
func basicStats(runs []Run) (passed int, passRate, meanTime float64, meanCost *float64) {
	if len(runs) == 0 {
		return 0, 0, 0, nil
	}

	var totalTime float64
	var costSum float64
	var costN int
	for _, r := range runs {
		if r.Passed() {
			passed++
		}
		totalTime += r.WallTime.Seconds()
		if r.Metrics.CostUSD != nil {
			costSum += *r.Metrics.CostUSD
			costN++
		}
	}

	passRate = float64(passed) / float64(len(runs))
	meanTime = totalTime / float64(len(runs))
	if costN > 0 {
		mc := costSum / float64(costN)
		meanCost = &mc
	}
	return passed, passRate, meanTime, meanCost
}

// tokenStats sums and averages total tokens over the runs that reported
// both directions; nil when none did.
func tokenStats(runs []Run) (total *int64, mean *float64) {
	var sum int64
	var n int
	for _, r := range runs {
		if t := r.Metrics.TotalTokens(); t != nil {
			sum += *t
			n++
		}
	}
	if n == 0 {
		return nil, nil
	}
	m := float64(sum) / float64(n)
	return &sum, &m
}

// CauseFor formats a one-line failure cause for a step.
func CauseFor(step string, err error) []string {
	return []string{fmt.Sprintf("%s: %s", step, strings.TrimSpace(err.Error()))}
}
