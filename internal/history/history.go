// Package history persists run matrices as an append-only store of JSON
// documents, one per run id. Past runs survive process restarts and are
// retrieved by id for later comparison.
package history

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/agentarena/agentarena/internal/result"
)

// document wraps a matrix with its integrity hash on disk.
type document struct {
	result.Matrix
	ResultsHash string `json:"results_hash"`
}

// Store reads and writes run documents under one directory.
type Store struct {
	dir string
}

// NewStore returns a Store rooted at dir. The directory is created lazily on
// first save.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// NewRunID mints a unique, sortable run id: UTC timestamp plus a short
// random suffix against collisions.
func NewRunID(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return now.UTC().Format("2006-01-02T150405") + "-" + suffix
}

// Save writes the matrix as <dir>/<run-id>.json and returns the path. The
// document embeds a blake3 hash of the serialized results for later
// verification.
func (s *Store) Save(m *result.Matrix) (string, error) {
	if m.RunID == "" {
		return "", fmt.Errorf("matrix has no run id")
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return "", fmt.Errorf("creating history dir: %w", err)
	}

	hash, err := resultsHash(m.Results)
	if err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(document{Matrix: *m, ResultsHash: hash}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling run document: %w", err)
	}

	path := s.path(m.RunID)
	if _, err := os.Stat(path); err == nil {
		// The store is append-only; a run id is written once.
		return "", fmt.Errorf("run %s already saved", m.RunID)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing run document: %w", err)
	}
	return path, nil
}

// Load retrieves a saved matrix by run id.
func (s *Store) Load(runID string) (*result.Matrix, error) {
	doc, err := s.loadDocument(runID)
	if err != nil {
		return nil, err
	}
	return &doc.Matrix, nil
}

// List returns all saved matrices, newest first.
func (s *Store) List() ([]*result.Matrix, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading history dir: %w", err)
	}

	var matrices []*result.Matrix
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		m, err := s.Load(strings.TrimSuffix(entry.Name(), ".json"))
		if err != nil {
			// A corrupt document should not hide the rest of the history.
			continue
		}
		matrices = append(matrices, m)
	}

	sort.Slice(matrices, func(i, j int) bool {
		return matrices[i].Timestamp.After(matrices[j].Timestamp)
	})
	return matrices, nil
}

// Verify recomputes the results hash of a saved run and compares it with
// the stored one.
func (s *Store) Verify(runID string) error {
	doc, err := s.loadDocument(runID)
	if err != nil {
		return err
	}

	hash, err := resultsHash(doc.Results)
	if err != nil {
		return err
	}
	if hash != doc.ResultsHash {
		return fmt.Errorf("run %s: results hash mismatch (stored %s, computed %s)", runID, doc.ResultsHash, hash)
	}
	return nil
}

func (s *Store) loadDocument(runID string) (*document, error) {
	data, err := os.ReadFile(s.path(runID))
	if err != nil {
		return nil, fmt.Errorf("reading run %s: %w", runID, err)
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing run %s: %w", runID, err)
	}
	return &doc, nil
}

func (s *Store) path(runID string) string {
	return filepath.Join(s.dir, runID+".json")
}

func resultsHash(results []result.Run) (string, error) {
	data, err := json.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("marshaling results for hashing: %w", err)
	}
	h := blake3.Sum256(data)
	return "blake3:" + hex.EncodeToString(h[:]), nil
}
