// Package workflow runs the check pipeline: build, lint, test and audit
// commands in a fixed order, printing their output and stopping at the
// first failure. It is consumed by both the CLI and the MCP server.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/deixis/runchecks/internal/config"
	"github.com/deixis/runchecks/internal/log"
	"github.com/deixis/runchecks/internal/runner"
)

// exitCommandNotFound is the status POSIX shells use when they cannot
// locate the command they were asked to run.
const exitCommandNotFound = 127

// SuccessMessage is printed once every phase has passed.
const SuccessMessage = "All checks completed successfully!"

// CommandRunner executes shell command lines within a workspace.
// Implemented by runner.Runner.
type CommandRunner interface {
	Run(ctx context.Context, command string, cwd string) (*runner.Result, error)
}

// Engine holds shared dependencies for all workflow operations.
type Engine struct {
	Config *config.Config
	Runner CommandRunner
	Out    io.Writer  // receives command output and status messages
	Logger log.Logger // nil disables logging
}

// Run executes a single command and prints its output: a "Running:" banner,
// then stdout, then stderr when non-empty.
//
// When check is true a non-zero exit status is reported and returned as a
// *CommandFailure. A shell that cannot be found, or a command the shell could
// not locate, is returned as an *InterpreterMissing. When check is false the
// result is returned whatever the exit status.
func (e *Engine) Run(ctx context.Context, command string, check bool) (*runner.Result, error) {
	return e.runIn(ctx, command, "", check)
}

// runIn is Run with the command started in dir, relative to the workspace.
func (e *Engine) runIn(ctx context.Context, command, dir string, check bool) (*runner.Result, error) {
	out := e.out()
	fmt.Fprintf(out, "Running: %s\n", command)

	res, err := e.Runner.Run(ctx, command, dir)
	if err != nil {
		if errors.Is(err, runner.ErrShellNotFound) {
			missing := &InterpreterMissing{Command: command, Shell: e.shell(), Err: err}
			fmt.Fprintf(out, "Command not found: %v\n", missing)
			return nil, missing
		}
		// Interrupted or timed out: show how far the command got.
		if res != nil {
			fmt.Fprintln(out, string(res.Stdout))
		}
		err = fmt.Errorf("running %q: %w", command, err)
		fmt.Fprintf(out, "Command failed with error: %v\n", err)
		if res != nil && len(res.Stderr) > 0 {
			fmt.Fprintf(out, "Error output:\n%s\n", res.Stderr)
		}
		return res, err
	}

	if res.Truncated {
		e.logger().Warn("output truncated", "command", command, "run_id", res.RunID)
	}

	fmt.Fprintln(out, string(res.Stdout))

	if check && res.ExitCode == exitCommandNotFound {
		missing := &InterpreterMissing{
			Command: command,
			Shell:   e.shell(),
			Stderr:  string(res.Stderr),
			Hint:    installHint(command),
		}
		fmt.Fprintf(out, "Command not found: %v\n", missing)
		fmt.Fprintf(out, "Error output:\n%s\n", res.Stderr)
		return res, missing
	}

	if check && res.ExitCode != 0 {
		failure := &CommandFailure{Command: command, ExitCode: res.ExitCode, Stderr: string(res.Stderr)}
		fmt.Fprintf(out, "Command failed with error: %v\n", failure)
		fmt.Fprintf(out, "Error output:\n%s\n", res.Stderr)
		return res, failure
	}

	if len(res.Stderr) > 0 {
		fmt.Fprintln(out, string(res.Stderr))
	}
	return res, nil
}

func (e *Engine) out() io.Writer {
	if e.Out == nil {
		return io.Discard
	}
	return e.Out
}

func (e *Engine) logger() log.Logger {
	if e.Logger == nil {
		return log.Nop()
	}
	return e.Logger
}

func (e *Engine) shell() string {
	if e.Config != nil && e.Config.Shell != "" {
		return e.Config.Shell
	}
	return runner.DefaultShell
}
