// Package config loads and validates the optional .runchecks.yaml file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// FileName is the name of the configuration file at the project root.
const FileName = ".runchecks.yaml"

// DefaultMaxOutput caps captured output per stream for callers that keep
// results in memory, such as the MCP server. The CLI prints everything
// unless max_output is set.
const DefaultMaxOutput = 1 << 20 // 1 MB

// Toolchain presets.
const (
	Cargo = "cargo"
	Go    = "go"
)

// Phase names, in execution order.
const (
	Build = "build"
	Lint  = "lint"
	Test  = "test"
	Audit = "audit"
)

// PhaseOrder is the fixed order in which phases run.
var PhaseOrder = []string{Build, Lint, Test, Audit}

// presets holds the default command of every phase for each toolchain.
var presets = map[string]map[string]string{
	Cargo: {
		Build: "cargo build",
		Lint:  "cargo clippy -- -D warnings",
		Test:  "cargo test",
		Audit: "cargo audit",
	},
	Go: {
		Build: "go build ./...",
		Lint:  "golangci-lint run",
		Test:  "go test ./...",
		Audit: "govulncheck ./...",
	},
}

// rootMarkers identify a project root when walking up from the workspace.
var rootMarkers = []string{FileName, "Cargo.toml", "go.mod"}

// Config holds the parsed .runchecks.yaml configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version      int                    `yaml:"version"`
	Toolchain    string                 `yaml:"toolchain"`  // cargo (default) or go
	Shell        string                 `yaml:"shell"`      // interpreter used to run commands
	RawTimeout   string                 `yaml:"timeout"`    // e.g. "10m"; empty means none
	RawMaxOutput int                    `yaml:"max_output"` // bytes per stream; zero means unset
	Phases       map[string]PhaseConfig `yaml:"phases"`
}

// PhaseConfig overrides a single phase.
type PhaseConfig struct {
	Command      string `yaml:"command"`
	AllowFailure bool   `yaml:"allow_failure"`
	Dir          string `yaml:"dir"` // relative to the project root
}

// Phase is a resolved phase ready to run.
type Phase struct {
	Name         string
	Command      string
	AllowFailure bool
	Dir          string // empty means the project root
}

// Timeout returns the configured per-command timeout, or zero for none.
func (c *Config) Timeout() time.Duration {
	if c.RawTimeout == "" {
		return 0
	}
	d, err := time.ParseDuration(c.RawTimeout)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

// MaxOutputBytes returns the configured max output size, or fallback when
// max_output is unset. Zero means unlimited.
func (c *Config) MaxOutputBytes(fallback int) int {
	if c.RawMaxOutput > 0 {
		return c.RawMaxOutput
	}
	return fallback
}

// ToolchainName returns the configured toolchain, falling back to cargo.
func (c *Config) ToolchainName() string {
	if c.Toolchain != "" {
		return c.Toolchain
	}
	return Cargo
}

// ResolvedPhases returns the four phases in execution order, applying
// per-phase overrides on top of the toolchain preset.
func (c *Config) ResolvedPhases() []Phase {
	preset := presets[c.ToolchainName()]
	if preset == nil {
		preset = presets[Cargo]
	}

	phases := make([]Phase, 0, len(PhaseOrder))
	for _, name := range PhaseOrder {
		p := Phase{Name: name, Command: preset[name]}
		if o, ok := c.Phases[name]; ok {
			if o.Command != "" {
				p.Command = o.Command
			}
			p.AllowFailure = o.AllowFailure
			p.Dir = o.Dir
		}
		phases = append(phases, p)
	}
	return phases
}

// Validate reports every problem found in the configuration.
func (c *Config) Validate() error {
	var errs []error
	if _, ok := presets[c.ToolchainName()]; !ok {
		errs = append(errs, fmt.Errorf("unknown toolchain %q (want %s or %s)", c.Toolchain, Cargo, Go))
	}
	if c.RawTimeout != "" {
		d, err := time.ParseDuration(c.RawTimeout)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid timeout %q: %w", c.RawTimeout, err))
		} else if d < 0 {
			errs = append(errs, fmt.Errorf("invalid timeout %q: must not be negative", c.RawTimeout))
		}
	}
	if c.RawMaxOutput < 0 {
		errs = append(errs, fmt.Errorf("invalid max_output %d: must not be negative", c.RawMaxOutput))
	}
	for name, p := range c.Phases {
		if !isPhase(name) {
			errs = append(errs, fmt.Errorf("unknown phase %q (want one of %s)", name, strings.Join(PhaseOrder, ", ")))
			continue
		}
		if p.Command != "" && strings.TrimSpace(p.Command) == "" {
			errs = append(errs, fmt.Errorf("phase %s: command is blank", name))
		}
		if filepath.IsAbs(p.Dir) {
			errs = append(errs, fmt.Errorf("phase %s: dir %q must be relative to the project root", name, p.Dir))
		}
	}
	return errors.Join(errs...)
}

func isPhase(name string) bool {
	for _, p := range PhaseOrder {
		if p == name {
			return true
		}
	}
	return false
}

// LoadResult holds the parsed config and the discovered project root.
type LoadResult struct {
	Config   *Config
	RepoRoot string // directory holding a root marker; falls back to workspace
	Path     string // config file that was read; empty when defaults are used
}

// Load discovers the project root by walking upward from workspace and
// reads .runchecks.yaml from it. If no file exists, a default Config is returned.
func Load(fsys afero.Fs, workspace string) (*LoadResult, error) {
	root, err := findRepoRoot(fsys, workspace)
	if err != nil {
		root = workspace
	}

	path := filepath.Join(root, FileName)
	cfg, err := readFile(fsys, path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &LoadResult{Config: &Config{}, RepoRoot: root}, nil
		}
		return nil, err
	}
	return &LoadResult{Config: cfg, RepoRoot: root, Path: path}, nil
}

// LoadFile reads an explicit config file. The project root is the
// directory containing it.
func LoadFile(fsys afero.Fs, path string) (*LoadResult, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	cfg, err := readFile(fsys, abs)
	if err != nil {
		return nil, err
	}
	return &LoadResult{Config: cfg, RepoRoot: filepath.Dir(abs), Path: abs}, nil
}

func readFile(fsys afero.Fs, path string) (*Config, error) {
	data, err := afero.ReadFile(fsys, path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	return cfg, nil
}

// findRepoRoot walks upward from dir looking for a directory holding
// one of the root markers.
func findRepoRoot(fsys afero.Fs, dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		for _, m := range rootMarkers {
			if ok, _ := afero.Exists(fsys, filepath.Join(dir, m)); ok {
				return dir, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no project root found")
		}
		dir = parent
	}
}
