package result

import (
	"testing"
	"time"

	"github.com/agentarena/agentarena/internal/metrics"
)

func ptrF(v float64) *float64 { return &v }
func ptrI(v int64) *int64     { return &v }

func run(task, agent string, status Status, seconds float64, cost *float64) Run {
	return Run{
		Task:     task,
		Agent:    agent,
		Status:   status,
		WallTime: time.Duration(seconds * float64(time.Second)),
		Metrics:  metrics.Record{CostUSD: cost},
	}
}

func TestAggregatePerAgent(t *testing.T) {
	t.Parallel()

	results := []Run{
		run("t1", "a", StatusPass, 10, ptrF(0.10)),
		run("t2", "a", StatusFail, 20, ptrF(0.30)),
		run("t1", "b", StatusPass, 5, nil),
		run("t2", "b", StatusPass, 15, nil),
	}

	s := Aggregate(results, []string{"t1", "t2"}, []string{"a", "b"})

	if len(s.Agents) != 2 {
		t.Fatalf("agents = %d, want 2", len(s.Agents))
	}
	a := s.Agents[0]
	if a.Agent != "a" || a.Passed != 1 || a.Total != 2 || a.PassRate != 0.5 {
		t.Errorf("agent a summary = %+v, want 1/2 passed", a)
	}
	if a.MeanTime != 15 {
		t.Errorf("agent a mean time = %v, want 15", a.MeanTime)
	}
	if a.MeanCost == nil || *a.MeanCost != 0.20 {
		t.Errorf("agent a mean cost = %v, want 0.20", a.MeanCost)
	}

	b := s.Agents[1]
	if b.PassRate != 1.0 {
		t.Errorf("agent b pass rate = %v, want 1.0", b.PassRate)
	}
	if b.MeanCost != nil {
		t.Errorf("agent b mean cost = %v, want nil (no costs reported)", b.MeanCost)
	}
}

func TestAggregatePerTask(t *testing.T) {
	t.Parallel()

	results := []Run{
		run("t1", "a", StatusPass, 10, nil),
		run("t1", "b", StatusFail, 30, nil),
		run("t2", "a", StatusTimeout, 60, nil),
		run("t2", "b", StatusError, 1, nil),
	}

	s := Aggregate(results, []string{"t1", "t2"}, []string{"a", "b"})

	if len(s.Tasks) != 2 {
		t.Fatalf("tasks = %d, want 2", len(s.Tasks))
	}
	if s.Tasks[0].Task != "t1" || s.Tasks[0].Passed != 1 || s.Tasks[0].PassRate != 0.5 {
		t.Errorf("task t1 summary = %+v, want 1/2 passed", s.Tasks[0])
	}
	if s.Tasks[1].Passed != 0 || s.Tasks[1].PassRate != 0 {
		t.Errorf("task t2 summary = %+v, want 0 passed (timeout and error never pass)", s.Tasks[1])
	}
}

func TestAggregateTokens(t *testing.T) {
	t.Parallel()

	withTokens := run("t1", "a", StatusPass, 1, nil)
	withTokens.Metrics.TokensIn = ptrI(100)
	withTokens.Metrics.TokensOut = ptrI(50)

	partial := run("t2", "a", StatusPass, 1, nil)
	partial.Metrics.TokensIn = ptrI(999) // missing output side: excluded

	s := Aggregate([]Run{withTokens, partial}, []string{"t1", "t2"}, []string{"a"})

	a := s.Agents[0]
	if a.TotalTokens == nil || *a.TotalTokens != 150 {
		t.Errorf("total tokens = %v, want 150", a.TotalTokens)
	}
	if a.MeanTokens == nil || *a.MeanTokens != 150 {
		t.Errorf("mean tokens = %v, want 150 (one reporting run)", a.MeanTokens)
	}
}

func TestWinnerByPassRate(t *testing.T) {
	t.Parallel()

	results := []Run{
		run("t1", "a", StatusPass, 10, nil),
		run("t1", "b", StatusFail, 1, nil),
	}
	s := Aggregate(results, []string{"t1"}, []string{"a", "b"})
	if s.Winner != "a" {
		t.Errorf("winner = %q, want a (higher pass rate)", s.Winner)
	}
}

func TestWinnerCostTieBreak(t *testing.T) {
	t.Parallel()

	// Both agents pass everything; cheaper one wins.
	results := []Run{
		run("t1", "a", StatusPass, 10, ptrF(0.20)),
		run("t2", "a", StatusPass, 10, ptrF(0.20)),
		run("t1", "b", StatusPass, 2, ptrF(0.35)),
		run("t2", "b", StatusPass, 2, ptrF(0.35)),
	}
	s := Aggregate(results, []string{"t1", "t2"}, []string{"b", "a"})
	if s.Winner != "a" {
		t.Errorf("winner = %q, want a (cost tie-break beats time)", s.Winner)
	}
}

func TestWinnerUnknownCostRanksLast(t *testing.T) {
	t.Parallel()

	results := []Run{
		run("t1", "mystery", StatusPass, 1, nil),
		run("t1", "known", StatusPass, 5, ptrF(9.99)),
	}
	s := Aggregate(results, []string{"t1"}, []string{"mystery", "known"})
	if s.Winner != "known" {
		t.Errorf("winner = %q, want known (unknown cost never beats a known one)", s.Winner)
	}
}

func TestWinnerTimeTieBreak(t *testing.T) {
	t.Parallel()

	results := []Run{
		run("t1", "slow", StatusPass, 30, ptrF(0.10)),
		run("t1", "fast", StatusPass, 5, ptrF(0.10)),
	}
	s := Aggregate(results, []string{"t1"}, []string{"slow", "fast"})
	if s.Winner != "fast" {
		t.Errorf("winner = %q, want fast (time tie-break)", s.Winner)
	}
}

func TestWinnerFullTieKeepsConfigOrder(t *testing.T) {
	t.Parallel()

	results := []Run{
		run("t1", "first", StatusPass, 10, ptrF(0.10)),
		run("t1", "second", StatusPass, 10, ptrF(0.10)),
	}
	s := Aggregate(results, []string{"t1"}, []string{"first", "second"})
	if s.Winner != "first" {
		t.Errorf("winner = %q, want first (declared order breaks full ties)", s.Winner)
	}
}

func TestAggregateEmpty(t *testing.T) {
	t.Parallel()

	s := Aggregate(nil, nil, nil)
	if s.Winner != "" || len(s.Agents) != 0 || len(s.Tasks) != 0 {
		t.Errorf("empty aggregate = %+v, want zero value", s)
	}
}
