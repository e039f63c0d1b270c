package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, fsys afero.Fs, path, content string) {
	t.Helper()
	require.NoError(t, fsys.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, afero.WriteFile(fsys, path, []byte(content), 0o644))
}

func TestLoad_FromRepoRoot(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/project/Cargo.toml", "[package]\n")
	writeFile(t, fsys, "/project/.runchecks.yaml", "version: 1\ntimeout: 10m\n")

	res, err := Load(fsys, "/project")
	require.NoError(t, err)
	assert.Equal(t, "/project", res.RepoRoot)
	assert.Equal(t, "/project/.runchecks.yaml", res.Path)
	assert.Equal(t, 1, res.Config.Version)
	assert.Equal(t, 10*time.Minute, res.Config.Timeout())
}

func TestLoad_FromSubdirectory(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/project/go.mod", "module example.com/test\n")
	writeFile(t, fsys, "/project/.runchecks.yaml", "toolchain: go\n")
	require.NoError(t, fsys.MkdirAll("/project/pkg/foo", 0o755))

	res, err := Load(fsys, "/project/pkg/foo")
	require.NoError(t, err)
	assert.Equal(t, "/project", res.RepoRoot)
	assert.Equal(t, Go, res.Config.ToolchainName())
}

func TestLoad_ConfigFileIsItselfAMarker(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/project/.runchecks.yaml", "shell: bash\n")
	require.NoError(t, fsys.MkdirAll("/project/sub", 0o755))

	res, err := Load(fsys, "/project/sub")
	require.NoError(t, err)
	assert.Equal(t, "/project", res.RepoRoot)
	assert.Equal(t, "bash", res.Config.Shell)
}

func TestLoad_NoMarker(t *testing.T) {
	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll("/somewhere", 0o755))

	res, err := Load(fsys, "/somewhere")
	require.NoError(t, err)
	assert.Equal(t, "/somewhere", res.RepoRoot, "fallback to workspace")
	assert.Empty(t, res.Path)
	assert.Equal(t, &Config{}, res.Config)
}

func TestLoad_NoConfigFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/project/Cargo.toml", "")

	res, err := Load(fsys, "/project")
	require.NoError(t, err)
	assert.Equal(t, "/project", res.RepoRoot)
	assert.Equal(t, 0, res.Config.Version)
}

func TestLoad_InvalidYAML(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/project/.runchecks.yaml", "phases: [unterminated\n")

	_, err := Load(fsys, "/project")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing")
}

func TestLoad_InvalidConfig(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/project/.runchecks.yaml", "toolchain: make\n")

	_, err := Load(fsys, "/project")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown toolchain "make"`)
}

func TestLoadFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/etc/checks/ci.yaml", "phases:\n  audit:\n    allow_failure: true\n")

	res, err := LoadFile(fsys, "/etc/checks/ci.yaml")
	require.NoError(t, err)
	assert.Equal(t, "/etc/checks", res.RepoRoot)
	assert.True(t, res.Config.Phases[Audit].AllowFailure)
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(afero.NewMemMapFs(), "/nope.yaml")
	assert.Error(t, err)
}

func TestResolvedPhases_CargoDefaults(t *testing.T) {
	cfg := &Config{}
	got := cfg.ResolvedPhases()

	want := []Phase{
		{Name: Build, Command: "cargo build"},
		{Name: Lint, Command: "cargo clippy -- -D warnings"},
		{Name: Test, Command: "cargo test"},
		{Name: Audit, Command: "cargo audit"},
	}
	assert.Equal(t, want, got)
}

func TestResolvedPhases_GoPreset(t *testing.T) {
	cfg := &Config{Toolchain: Go}
	got := cfg.ResolvedPhases()

	require.Len(t, got, 4)
	assert.Equal(t, "go build ./...", got[0].Command)
	assert.Equal(t, "golangci-lint run", got[1].Command)
	assert.Equal(t, "go test ./...", got[2].Command)
	assert.Equal(t, "govulncheck ./...", got[3].Command)
}

func TestResolvedPhases_Overrides(t *testing.T) {
	cfg := &Config{Phases: map[string]PhaseConfig{
		Lint:  {Command: "cargo clippy --all-targets -- -D warnings"},
		Audit: {AllowFailure: true},
	}}
	got := cfg.ResolvedPhases()

	assert.Equal(t, "cargo build", got[0].Command)
	assert.Equal(t, "cargo clippy --all-targets -- -D warnings", got[1].Command)
	assert.False(t, got[1].AllowFailure)
	assert.Equal(t, "cargo audit", got[3].Command)
	assert.True(t, got[3].AllowFailure)
}

func TestResolvedPhases_Dir(t *testing.T) {
	cfg := &Config{Phases: map[string]PhaseConfig{Test: {Dir: "crates/core"}}}
	got := cfg.ResolvedPhases()

	assert.Empty(t, got[0].Dir)
	assert.Equal(t, "crates/core", got[2].Dir)
	assert.Equal(t, "cargo test", got[2].Command)
}

func TestLoad_UnknownKeys(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "misspelled top-level key", content: "timout: 10m\n", wantErr: "field timout not found"},
		{name: "phase instead of phases", content: "phase:\n  test:\n    command: make test\n", wantErr: "field phase not found"},
		{name: "unknown phase field", content: "phases:\n  test:\n    comand: make test\n", wantErr: "field comand not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := afero.NewMemMapFs()
			writeFile(t, fsys, "/project/.runchecks.yaml", tt.content)

			_, err := Load(fsys, "/project")
			require.Error(t, err)
			assert.Contains(t, err.Error(), "parsing")
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_EmptyFile(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFile(t, fsys, "/project/.runchecks.yaml", "")

	res, err := Load(fsys, "/project")
	require.NoError(t, err)
	assert.Equal(t, "/project/.runchecks.yaml", res.Path)
	assert.Equal(t, Cargo, res.Config.ToolchainName())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "empty", cfg: Config{}},
		{name: "go toolchain", cfg: Config{Toolchain: Go}},
		{name: "unknown toolchain", cfg: Config{Toolchain: "bazel"}, wantErr: "unknown toolchain"},
		{name: "bad timeout", cfg: Config{RawTimeout: "soon"}, wantErr: "invalid timeout"},
		{name: "negative timeout", cfg: Config{RawTimeout: "-1s"}, wantErr: "must not be negative"},
		{name: "negative max output", cfg: Config{RawMaxOutput: -1}, wantErr: "invalid max_output"},
		{name: "unknown phase", cfg: Config{Phases: map[string]PhaseConfig{"deploy": {}}}, wantErr: `unknown phase "deploy"`},
		{name: "blank command", cfg: Config{Phases: map[string]PhaseConfig{Test: {Command: "  "}}}, wantErr: "command is blank"},
		{name: "relative dir", cfg: Config{Phases: map[string]PhaseConfig{Test: {Dir: "crates/core"}}}},
		{name: "absolute dir", cfg: Config{Phases: map[string]PhaseConfig{Test: {Dir: "/srv/app"}}}, wantErr: "must be relative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDefaults(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, time.Duration(0), cfg.Timeout(), "no timeout by default")
	assert.Equal(t, 0, cfg.MaxOutputBytes(0), "unlimited unless configured")
	assert.Equal(t, DefaultMaxOutput, cfg.MaxOutputBytes(DefaultMaxOutput))
	assert.Equal(t, Cargo, cfg.ToolchainName())

	cfg.RawMaxOutput = 512
	assert.Equal(t, 512, cfg.MaxOutputBytes(0))
	assert.Equal(t, 512, cfg.MaxOutputBytes(DefaultMaxOutput))
}
