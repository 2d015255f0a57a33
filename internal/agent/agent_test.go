package agent

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/agentarena/agentarena/internal/config"
)

func testRunner() *Runner {
	return NewRunner(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestBuildCommand(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		template string
		prompt   string
		want     string
	}{
		{"quoted placeholder", `claude -p '{prompt}'`, "fix the bug", `claude -p 'fix the bug'`},
		{"bare placeholder", `agent {prompt}`, "hello", `agent hello`},
		{"placeholder mid-command", `tool --msg={prompt} --yes`, "x", `tool --msg=x --yes`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := BuildCommand(tt.template, tt.prompt); got != tt.want {
				t.Errorf("BuildCommand() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExecuteCapturesOutput(t *testing.T) {
	t.Parallel()

	spec := config.Agent{Name: "echoer", Command: `echo agent says: '{prompt}'`}
	out, err := testRunner().Execute(context.Background(), spec, "do the thing", t.TempDir(), 10*time.Second)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out.ExitCode != 0 {
		t.Errorf("exit code = %d, want 0", out.ExitCode)
	}
	if !strings.Contains(out.Output, "agent says: do the thing") {
		t.Errorf("output = %q, want prompt substituted and echoed", out.Output)
	}
	if out.TimedOut {
		t.Error("TimedOut = true, want false")
	}
}

func TestExecuteRunsInSandbox(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	spec := config.Agent{Name: "writer", Command: `echo '{prompt}' > note.txt`}
	if _, err := testRunner().Execute(context.Background(), spec, "hi", dir, 10*time.Second); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	content, err := os.ReadFile(filepath.Join(dir, "note.txt"))
	if err != nil {
		t.Fatalf("agent did not write inside the sandbox dir: %v", err)
	}
	if strings.TrimSpace(string(content)) != "hi" {
		t.Errorf("note.txt = %q, want hi", content)
	}
}

func TestExecuteNonzeroExitIsNotAnError(t *testing.T) {
	t.Parallel()

	spec := config.Agent{Name: "crasher", Command: `echo '{prompt}' >/dev/null; exit 7`}
	out, err := testRunner().Execute(context.Background(), spec, "p", t.TempDir(), 10*time.Second)
	if err != nil {
		t.Fatalf("Execute() error = %v, want nil (nonzero exit is diagnostic only)", err)
	}
	if out.ExitCode != 7 {
		t.Errorf("exit code = %d, want 7", out.ExitCode)
	}
}

func TestExecuteTimeout(t *testing.T) {
	t.Parallel()

	spec := config.Agent{Name: "sleeper", Command: `echo '{prompt}' >/dev/null; sleep 30`}
	start := time.Now()
	out, err := testRunner().Execute(context.Background(), spec, "p", t.TempDir(), time.Second)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !out.TimedOut {
		t.Fatal("TimedOut = false, want true")
	}
	if elapsed > 10*time.Second {
		t.Errorf("Execute took %v, want termination near the 1s bound", elapsed)
	}
}
