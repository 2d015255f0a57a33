// Package sandbox creates and destroys isolated working copies of the
// project under test.
//
// Two backing mechanisms:
//   - git repositories get a detached worktree (shares history storage,
//     independent working copy)
//   - everything else gets a plain directory copy
//
// Either way each (task, agent) pair gets a clean workspace that no other
// pair can see, destroyed when the pair finishes.
package sandbox

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

// WorktreeDir is where sandboxes live, relative to the project root.
const WorktreeDir = ".agentarena/worktrees"

// copyIgnores are directory names skipped by the copy backend.
var copyIgnores = map[string]bool{
	".git":         true,
	".agentarena":  true,
	".venv":        true,
	"venv":         true,
	"__pycache__":  true,
	"node_modules": true,
}

// Backend identifies how a sandbox was produced.
type Backend string

const (
	BackendWorktree Backend = "worktree"
	BackendCopy     Backend = "copy"
)

// Box is one live sandbox. It is owned by exactly one (task, agent) pair and
// never reused.
type Box struct {
	Path    string
	Backend Backend

	// Owning pair, set by the scheduler for diagnostics.
	Task  string
	Agent string

	destroyed bool
}

// Manager creates and destroys sandboxes for one project.
type Manager struct {
	projectPath string
	logger      *slog.Logger
}

// NewManager returns a Manager rooted at projectPath.
func NewManager(projectPath string, logger *slog.Logger) *Manager {
	return &Manager{projectPath: projectPath, logger: logger}
}

func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s: %s: %w", args[0], strings.TrimSpace(string(out)), err)
	}
	return strings.TrimSpace(string(out)), nil
}

// isGitRepo reports whether the project is inside a git repository.
func (m *Manager) isGitRepo(ctx context.Context) bool {
	_, err := runGit(ctx, m.projectPath, "rev-parse", "--git-dir")
	return err == nil
}

// Create produces an isolated copy of the project at ref. For git projects
// ref is checked out into a detached worktree; for plain directories ref is
// ignored and the current tree is copied.
func (m *Manager) Create(ctx context.Context, ref string) (*Box, error) {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
	path := filepath.Join(m.projectPath, WorktreeDir, "run-"+id)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating sandbox parent: %w", err)
	}

	if m.isGitRepo(ctx) {
		if _, err := runGit(ctx, m.projectPath, "worktree", "add", path, "--detach", ref); err != nil {
			// A dead worktree registration may survive a failed add.
			_, _ = runGit(context.Background(), m.projectPath, "worktree", "prune")
			return nil, fmt.Errorf("creating worktree at %s: %w", path, err)
		}
		m.logger.Debug("sandbox created", "backend", BackendWorktree, "path", path, "ref", ref)
		return &Box{Path: path, Backend: BackendWorktree}, nil
	}

	if err := copyTree(m.projectPath, path); err != nil {
		// Leave nothing half-copied behind.
		_ = os.RemoveAll(path)
		return nil, fmt.Errorf("copying project to %s: %w", path, err)
	}
	m.logger.Debug("sandbox created", "backend", BackendCopy, "path", path)
	return &Box{Path: path, Backend: BackendCopy}, nil
}

// Destroy removes a sandbox and any registration created for it. It is
// idempotent and safe to call from cleanup paths even when Create only
// partially succeeded.
func (m *Manager) Destroy(box *Box) error {
	if box == nil || box.destroyed {
		return nil
	}
	box.destroyed = true

	if _, err := os.Stat(box.Path); os.IsNotExist(err) {
		return nil
	}

	if box.Backend == BackendWorktree {
		if _, err := runGit(context.Background(), m.projectPath, "worktree", "remove", box.Path, "--force"); err != nil {
			m.logger.Debug("worktree remove failed, pruning", "path", box.Path, "error", err)
			_ = os.RemoveAll(box.Path)
			if _, err := runGit(context.Background(), m.projectPath, "worktree", "prune"); err != nil {
				return fmt.Errorf("pruning worktrees: %w", err)
			}
		}
		return nil
	}

	if err := os.RemoveAll(box.Path); err != nil {
		return fmt.Errorf("removing sandbox %s: %w", box.Path, err)
	}
	return nil
}

// Snapshot identifies the project state a run is isolated from: the resolved
// commit hash for git projects, or a blake3 digest over the file tree for
// plain directories.
func (m *Manager) Snapshot(ctx context.Context, ref string) (string, error) {
	if m.isGitRepo(ctx) {
		sha, err := runGit(ctx, m.projectPath, "rev-parse", ref)
		if err != nil {
			return "", fmt.Errorf("resolving ref %q: %w", ref, err)
		}
		return "git:" + sha, nil
	}
	return treeDigest(m.projectPath)
}

// Prune removes every sandbox directory under the project and prunes stale
// worktree registrations. Used by cleanup paths after crashes.
func (m *Manager) Prune(ctx context.Context) error {
	dir := filepath.Join(m.projectPath, WorktreeDir)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("removing %s: %w", dir, err)
	}
	if m.isGitRepo(ctx) {
		if _, err := runGit(ctx, m.projectPath, "worktree", "prune"); err != nil {
			return err
		}
	}
	return nil
}

// copyTree copies src into dst, skipping ignored directories.
func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && copyIgnores[d.Name()] && path != src {
			return filepath.SkipDir
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		if !d.Type().IsRegular() {
			// Symlinks and other specials are not part of the benchmark
			// surface; skip rather than fail.
			return nil
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return os.WriteFile(target, data, info.Mode().Perm())
	})
}

// treeDigest hashes file paths and contents into a stable identity for
// non-git projects.
func treeDigest(root string) (string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if copyIgnores[d.Name()] && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("walking project tree: %w", err)
	}
	sort.Strings(files)

	h := blake3.New()
	for _, path := range files {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return "", err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", rel, err)
		}
		_, _ = h.Write([]byte(rel))
		_, _ = h.Write([]byte{0})
		_, _ = h.Write(data)
		_, _ = h.Write([]byte{0})
	}
	return "blake3:" + fmt.Sprintf("%x", h.Sum(nil)), nil
}
