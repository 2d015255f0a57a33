// Package config provides bench-file loading, validation, and selection
// filters for agentarena.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// PromptPlaceholder is the token in an agent command template that gets
// replaced with the task prompt. Exactly one occurrence is required.
const PromptPlaceholder = "{prompt}"

// Task is a single benchmark task: a prompt for the agent and a shell
// command whose exit code decides pass/fail.
type Task struct {
	Name     string `toml:"name"`
	Prompt   string `toml:"prompt"`
	Validate string `toml:"validate"`
	Timeout  int    `toml:"timeout"` // per-task override in seconds; 0 = use default
}

// Agent describes how to invoke one coding agent and, optionally, how to
// read metrics out of its output. Pattern values are regular expressions
// with a single capture group, keyed by metric name (tokens_in, tokens_out,
// cost, llm_calls).
type Agent struct {
	Name     string            `toml:"name"`
	Command  string            `toml:"command"`
	Patterns map[string]string `toml:"patterns"`
}

// HarnessConfig contains harness-level settings.
type HarnessConfig struct {
	HistoryDir string `toml:"history_dir"`
	Parallel   int    `toml:"parallel"`
}

// DockerConfig controls the optional container-isolated validation mode.
type DockerConfig struct {
	Enabled  bool   `toml:"enabled"`
	Image    string `toml:"image"`
	AutoPull bool   `toml:"auto_pull"`
}

// Config is the parsed bench file: the project under test plus the ordered
// task and agent lists that define the run matrix. Ordering is significant;
// it fixes matrix iteration order and reporting order.
type Config struct {
	Project string `toml:"project"`
	Base    string `toml:"base"`
	Timeout int    `toml:"timeout"` // default per-step timeout in seconds

	Harness HarnessConfig `toml:"harness"`
	Docker  DockerConfig  `toml:"docker"`

	Tasks  []Task  `toml:"tasks"`
	Agents []Agent `toml:"agents"`
}

// Default configuration values.
var Default = Config{
	Project: "default",
	Base:    "HEAD",
	Timeout: 120,
	Harness: HarnessConfig{
		HistoryDir: ".agentarena/runs",
		Parallel:   1,
	},
	Docker: DockerConfig{
		AutoPull: true,
	},
}

// configPaths returns the list of paths to search for bench files.
func configPaths() []string {
	paths := []string{"./arena.toml"}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".arena.toml"))
		paths = append(paths, filepath.Join(home, ".config", "arena", "config.toml"))
	}

	return paths
}

// Load loads a bench file from path, or discovers one in the standard
// locations when path is empty. The returned config has passed Validate.
func Load(path string) (*Config, error) {
	cfg := Default // start with defaults

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("bench file not found: %s", path)
		}
	} else {
		for _, p := range configPaths() {
			if _, err := os.Stat(p); err == nil {
				path = p
				break
			}
		}
		if path == "" {
			return nil, fmt.Errorf("no bench file found (searched %s)", strings.Join(configPaths(), ", "))
		}
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("parsing bench file %s: %w", path, err)
	}

	// Backfill fields a partial file may have zeroed out.
	if cfg.Project == "" {
		cfg.Project = Default.Project
	}
	if cfg.Base == "" {
		cfg.Base = Default.Base
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = Default.Timeout
	}
	if cfg.Harness.HistoryDir == "" {
		cfg.Harness.HistoryDir = Default.Harness.HistoryDir
	}
	if cfg.Harness.Parallel <= 0 {
		cfg.Harness.Parallel = Default.Harness.Parallel
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid bench file %s: %w", path, err)
	}

	return &cfg, nil
}

// Validate checks the structural invariants of a bench config. A failure
// here is fatal: nothing runs against a malformed matrix.
func (c *Config) Validate() error {
	if len(c.Tasks) == 0 {
		return fmt.Errorf("no tasks defined")
	}
	if len(c.Agents) == 0 {
		return fmt.Errorf("no agents defined")
	}

	seenTasks := make(map[string]bool)
	for i, t := range c.Tasks {
		if t.Name == "" {
			return fmt.Errorf("task %d: name is required", i)
		}
		if seenTasks[t.Name] {
			return fmt.Errorf("duplicate task name: %s", t.Name)
		}
		seenTasks[t.Name] = true
		if t.Prompt == "" {
			return fmt.Errorf("task %q: prompt is required", t.Name)
		}
		if t.Validate == "" {
			return fmt.Errorf("task %q: validate command is required", t.Name)
		}
		if t.Timeout < 0 {
			return fmt.Errorf("task %q: timeout must not be negative", t.Name)
		}
	}

	seenAgents := make(map[string]bool)
	for i, a := range c.Agents {
		if a.Name == "" {
			return fmt.Errorf("agent %d: name is required", i)
		}
		if seenAgents[a.Name] {
			return fmt.Errorf("duplicate agent name: %s", a.Name)
		}
		seenAgents[a.Name] = true
		if a.Command == "" {
			return fmt.Errorf("agent %q: command is required", a.Name)
		}
		if n := strings.Count(a.Command, PromptPlaceholder); n != 1 {
			return fmt.Errorf("agent %q: command must contain exactly one %s placeholder, found %d",
				a.Name, PromptPlaceholder, n)
		}
	}

	if c.Docker.Enabled && c.Docker.Image == "" {
		return fmt.Errorf("docker mode enabled but no image configured")
	}

	return nil
}

// TaskTimeout returns the effective timeout for a task in seconds: the
// per-task override when set, otherwise the run default.
func (c *Config) TaskTimeout(t Task) int {
	if t.Timeout > 0 {
		return t.Timeout
	}
	return c.Timeout
}

// Filter returns a copy of the config restricted to the named tasks and
// agents, preserving declared order. Empty slices keep everything. Unknown
// names are an error so typos do not silently shrink the matrix.
func (c *Config) Filter(taskNames, agentNames []string) (*Config, error) {
	out := *c

	if len(taskNames) > 0 {
		want, err := nameSet(taskNames)
		if err != nil {
			return nil, err
		}
		var kept []Task
		for _, t := range c.Tasks {
			if want[t.Name] {
				kept = append(kept, t)
				delete(want, t.Name)
			}
		}
		for name := range want {
			return nil, fmt.Errorf("unknown task: %s", name)
		}
		out.Tasks = kept
	}

	if len(agentNames) > 0 {
		want, err := nameSet(agentNames)
		if err != nil {
			return nil, err
		}
		var kept []Agent
		for _, a := range c.Agents {
			if want[a.Name] {
				kept = append(kept, a)
				delete(want, a.Name)
			}
		}
		for name := range want {
			return nil, fmt.Errorf("unknown agent: %s", name)
		}
		out.Agents = kept
	}

	return &out, nil
}

func nameSet(names []string) (map[string]bool, error) {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			continue
		}
		set[n] = true
	}
	if len(set) == 0 {
		return nil, fmt.Errorf("empty name list")
	}
	return set, nil
}
