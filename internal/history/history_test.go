package history

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/agentarena/agentarena/internal/result"
)

func sampleMatrix(runID string, ts time.Time) *result.Matrix {
	results := []result.Run{
		{Task: "t1", Agent: "a", Status: result.StatusPass, WallTime: 3 * time.Second},
		{Task: "t1", Agent: "b", Status: result.StatusFail, WallTime: 5 * time.Second, Cause: []string{"validation: exit 1"}},
	}
	return &result.Matrix{
		RunID:     runID,
		Timestamp: ts,
		Project:   "demo",
		BaseRef:   "HEAD",
		Snapshot:  "git:abc123",
		Results:   results,
		Summary:   result.Aggregate(results, []string{"t1"}, []string{"a", "b"}),
	}
}

func TestNewRunID(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	id := NewRunID(now)
	if !strings.HasPrefix(id, "2026-03-14T150926-") {
		t.Errorf("run id = %q, want timestamp prefix", id)
	}
	if id == NewRunID(now) {
		t.Error("two run ids from the same instant collided")
	}
}

func TestSaveAndLoad(t *testing.T) {
	t.Parallel()

	store := NewStore(filepath.Join(t.TempDir(), "runs"))
	m := sampleMatrix("run-1", time.Now().UTC())

	path, err := store.Save(m)
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if filepath.Base(path) != "run-1.json" {
		t.Errorf("saved path = %q, want run-1.json", path)
	}

	got, err := store.Load("run-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got.Project != "demo" || got.Snapshot != "git:abc123" {
		t.Errorf("loaded metadata = %+v, want original metadata", got)
	}
	if len(got.Results) != 2 || got.Results[0].Task != "t1" || got.Results[0].Agent != "a" {
		t.Errorf("loaded results = %+v, want original ordered results", got.Results)
	}
	if got.Summary.Winner != "a" {
		t.Errorf("loaded winner = %q, want a", got.Summary.Winner)
	}
}

func TestSaveIsAppendOnly(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	m := sampleMatrix("run-1", time.Now().UTC())

	if _, err := store.Save(m); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := store.Save(m); err == nil {
		t.Error("second Save() of same run id: expected error")
	}
}

func TestLoadMissing(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	if _, err := store.Load("nope"); err == nil {
		t.Error("Load() of missing run: expected error")
	}
}

func TestListNewestFirst(t *testing.T) {
	t.Parallel()

	store := NewStore(t.TempDir())
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "mid", "new"} {
		if _, err := store.Save(sampleMatrix(id, base.Add(time.Duration(i)*time.Hour))); err != nil {
			t.Fatalf("Save(%s): %v", id, err)
		}
	}

	got, err := store.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("List() = %d runs, want 3", len(got))
	}
	for i, want := range []string{"new", "mid", "old"} {
		if got[i].RunID != want {
			t.Errorf("List()[%d] = %q, want %q", i, got[i].RunID, want)
		}
	}
}

func TestListEmptyStore(t *testing.T) {
	t.Parallel()

	store := NewStore(filepath.Join(t.TempDir(), "never-created"))
	got, err := store.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("List() = %d runs, want 0", len(got))
	}
}

func TestListSkipsCorruptDocuments(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewStore(dir)
	if _, err := store.Save(sampleMatrix("good", time.Now().UTC())); err != nil {
		t.Fatalf("Save(): %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0644); err != nil {
		t.Fatalf("writing corrupt doc: %v", err)
	}

	got, err := store.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 1 || got[0].RunID != "good" {
		t.Errorf("List() = %+v, want just the good run", got)
	}
}

func TestVerify(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store := NewStore(dir)
	if _, err := store.Save(sampleMatrix("run-1", time.Now().UTC())); err != nil {
		t.Fatalf("Save(): %v", err)
	}

	if err := store.Verify("run-1"); err != nil {
		t.Errorf("Verify() on untouched run: %v", err)
	}

	// Tamper with a result and verification must fail.
	path := filepath.Join(dir, "run-1.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading document: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("parsing document: %v", err)
	}
	results := doc["results"].([]any)
	results[1].(map[string]any)["status"] = "pass"
	tampered, _ := json.Marshal(doc)
	if err := os.WriteFile(path, tampered, 0644); err != nil {
		t.Fatalf("writing tampered document: %v", err)
	}

	if err := store.Verify("run-1"); err == nil {
		t.Error("Verify() on tampered run: expected error")
	}
}
