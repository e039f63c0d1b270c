package workflow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/deixis/runchecks/internal/config"
	"github.com/deixis/runchecks/internal/report"
	"github.com/deixis/runchecks/internal/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cargoCommands = []string{"cargo build", "cargo clippy -- -D warnings", "cargo test", "cargo audit"}

func passingRunner() *fakeRunner {
	return &fakeRunner{Results: map[string]*runner.Result{
		"cargo build":                 {Stdout: []byte("build output")},
		"cargo clippy -- -D warnings": {Stdout: []byte("lint output")},
		"cargo test":                  {Stdout: []byte("test output")},
		"cargo audit":                 {Stdout: []byte("audit output")},
	}}
}

func TestCheck_AllPass(t *testing.T) {
	fr := passingRunner()
	e, out := newTestEngine(fr, nil)

	result, err := e.Check(context.Background())
	require.NoError(t, err)

	assert.False(t, result.Failed())
	assert.NoError(t, result.Err)
	assert.Equal(t, cargoCommands, fr.Calls)

	rr := result.RunResult
	assert.NotEmpty(t, rr.ID)
	assert.Equal(t, string(StateDone), rr.State)
	assert.Empty(t, rr.Failed)
	for _, p := range rr.Phases {
		assert.Equal(t, report.StatusPass, p.Status, p.Name)
	}

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	assert.Equal(t, SuccessMessage, lines[len(lines)-1])

	// Phases print in order.
	s := out.String()
	assert.Less(t, strings.Index(s, "build output"), strings.Index(s, "lint output"))
	assert.Less(t, strings.Index(s, "lint output"), strings.Index(s, "test output"))
	assert.Less(t, strings.Index(s, "test output"), strings.Index(s, "audit output"))
}

func TestCheck_BuildFails(t *testing.T) {
	fr := passingRunner()
	fr.Results["cargo build"] = &runner.Result{ExitCode: 1, Stdout: []byte("build output"), Stderr: []byte("error[E0425]")}
	e, out := newTestEngine(fr, nil)

	result, err := e.Check(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, result.FailedIdx)
	assert.Equal(t, []string{"cargo build"}, fr.Calls)

	var failure *CommandFailure
	require.True(t, errors.As(result.Err, &failure))
	assert.Equal(t, 1, failure.ExitCode)

	rr := result.RunResult
	assert.Equal(t, string(StateFailed), rr.State)
	assert.Equal(t, config.Build, rr.Failed)
	assert.Equal(t, report.StatusFail, rr.Phases[0].Status)
	assert.Equal(t, report.KindCommandFailure, rr.Phases[0].ErrorKind)
	assert.Equal(t, "error[E0425]", rr.Phases[0].Stderr)
	for _, p := range rr.Phases[1:] {
		assert.Equal(t, report.StatusSkipped, p.Status, p.Name)
	}

	s := out.String()
	assert.Contains(t, s, "Command failed with error:")
	assert.NotContains(t, s, "lint output")
	assert.NotContains(t, s, SuccessMessage)
}

func TestCheck_LintFails(t *testing.T) {
	fr := passingRunner()
	fr.Results["cargo clippy -- -D warnings"] = &runner.Result{ExitCode: 2, Stderr: []byte("warning: unused")}
	e, out := newTestEngine(fr, nil)

	result, err := e.Check(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, result.FailedIdx)
	assert.Equal(t, cargoCommands[:2], fr.Calls)
	assert.Equal(t, 2, result.RunResult.Phases[1].ExitCode)

	s := out.String()
	assert.Less(t, strings.Index(s, "build output"), strings.Index(s, "Command failed with error"))
	assert.Contains(t, s, "returned non-zero exit status 2")
	assert.NotContains(t, s, "test output")
	assert.NotContains(t, s, SuccessMessage)
}

func TestCheck_InterpreterMissing(t *testing.T) {
	fr := &fakeRunner{Err: map[string]error{
		"cargo build": runner.ErrShellNotFound,
	}}
	e, out := newTestEngine(fr, nil)

	result, err := e.Check(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, result.FailedIdx)
	var missing *InterpreterMissing
	assert.True(t, errors.As(result.Err, &missing))
	assert.Equal(t, report.KindInterpreterMissing, result.RunResult.Phases[0].ErrorKind)
	assert.Contains(t, out.String(), "Command not found:")
	assert.Equal(t, []string{"cargo build"}, fr.Calls)
}

func TestCheck_AllowFailureContinues(t *testing.T) {
	fr := passingRunner()
	fr.Results["cargo audit"] = &runner.Result{ExitCode: 1, Stdout: []byte("audit output")}
	cfg := &config.Config{Phases: map[string]config.PhaseConfig{
		config.Audit: {AllowFailure: true},
	}}
	e, out := newTestEngine(fr, cfg)

	result, err := e.Check(context.Background())
	require.NoError(t, err)

	assert.False(t, result.Failed())
	assert.Equal(t, report.StatusIgnored, result.RunResult.Phases[3].Status)
	assert.Equal(t, string(StateDone), result.RunResult.State)
	assert.Contains(t, out.String(), SuccessMessage)
}

func TestCheck_CommandOverride(t *testing.T) {
	fr := &fakeRunner{}
	cfg := &config.Config{
		Toolchain: config.Go,
		Phases:    map[string]config.PhaseConfig{config.Lint: {Command: "go vet ./..."}},
	}
	e, _ := newTestEngine(fr, cfg)

	_, err := e.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"go build ./...", "go vet ./...", "go test ./...", "govulncheck ./..."}, fr.Calls)
}

func TestCheck_CancelledBeforeStart(t *testing.T) {
	fr := passingRunner()
	e, out := newTestEngine(fr, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := e.Check(ctx)
	require.NoError(t, err)

	assert.Equal(t, 0, result.FailedIdx)
	assert.True(t, errors.Is(result.Err, context.Canceled))
	assert.Empty(t, fr.Calls)
	assert.Equal(t, report.KindError, result.RunResult.Phases[0].ErrorKind)
	assert.NotContains(t, out.String(), SuccessMessage)
}

func TestCheck_Deterministic(t *testing.T) {
	var outcomes [2][]string
	for i := range outcomes {
		fr := passingRunner()
		fr.Results["cargo test"] = &runner.Result{ExitCode: 101}
		e, _ := newTestEngine(fr, nil)

		result, err := e.Check(context.Background())
		require.NoError(t, err)
		for _, p := range result.RunResult.Phases {
			outcomes[i] = append(outcomes[i], p.Status)
		}
	}
	assert.Equal(t, outcomes[0], outcomes[1])
	assert.Equal(t, []string{report.StatusPass, report.StatusPass, report.StatusFail, report.StatusSkipped}, outcomes[0])
}

func TestCheck_PhaseDir(t *testing.T) {
	fr := passingRunner()
	cfg := &config.Config{Phases: map[string]config.PhaseConfig{
		config.Test: {Dir: "crates/core"},
	}}
	e, _ := newTestEngine(fr, cfg)

	result, err := e.Check(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Failed())
	assert.Equal(t, []string{"", "", "crates/core", ""}, fr.Dirs)
}

func TestCheck_TimeoutRecordsPartialOutput(t *testing.T) {
	fr := passingRunner()
	fr.Results["cargo test"] = &runner.Result{ExitCode: -1, Stdout: []byte("running 12 tests")}
	fr.Err = map[string]error{"cargo test": context.DeadlineExceeded}
	e, _ := newTestEngine(fr, nil)

	result, err := e.Check(context.Background())
	require.NoError(t, err)
	require.True(t, result.Failed())
	assert.ErrorIs(t, result.Err, context.DeadlineExceeded)

	rec, err := result.RunResult.Phase(config.Test)
	require.NoError(t, err)
	assert.Equal(t, report.StatusFail, rec.Status)
	assert.Equal(t, report.KindError, rec.ErrorKind)
	assert.Equal(t, "running 12 tests", rec.Stdout)
	assert.Equal(t, -1, rec.ExitCode)
	audit, err := result.RunResult.Phase(config.Audit)
	require.NoError(t, err)
	assert.Equal(t, report.StatusSkipped, audit.Status)
}
