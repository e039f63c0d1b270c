// Package runner executes shell command lines synchronously, capturing
// stdout and stderr separately, with optional timeouts and output size limits.
package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultShell is used when Runner.Shell is empty.
const DefaultShell = "sh"

// waitDelay bounds how long Run waits for output pipes after the shell exits
// or is killed, so background children holding the pipes cannot hang it.
const waitDelay = 2 * time.Second

// ErrShellNotFound is returned when the subordinate shell cannot be located.
var ErrShellNotFound = errors.New("shell not found")

// Runner executes command lines through a subordinate shell.
type Runner struct {
	Workspace string
	Shell     string        // interpreter name or path; DefaultShell if empty
	Timeout   time.Duration // per command; zero means wait indefinitely
	MaxOutput int           // bytes per stream; zero means unlimited
}

// Run executes command through the shell and waits for it to exit.
// cwd is resolved relative to the workspace root and must remain within it.
//
// A non-zero exit status is not an error: it is reported in Result.ExitCode.
// An error is returned when the command could not be run at all, or when ctx
// ended before it finished. In the latter case the partial Result is returned
// alongside the error.
func (r *Runner) Run(ctx context.Context, command string, cwd string) (*Result, error) {
	if strings.TrimSpace(command) == "" {
		return nil, fmt.Errorf("empty command")
	}

	dir, err := r.resolveDir(cwd)
	if err != nil {
		return nil, err
	}

	shell := r.Shell
	if shell == "" {
		shell = DefaultShell
	}
	shellPath, err := exec.LookPath(shell)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrShellNotFound, shell, err)
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	runID := uuid.New().String()

	// #nosec G204 -- running the configured command line is the purpose of this package.
	cmd := exec.CommandContext(ctx, shellPath, shellArgs(shell, command)...)
	cmd.Dir = dir
	cmd.WaitDelay = waitDelay
	killProcessGroup(cmd)

	var stdout, stderr bytes.Buffer
	outW := &limitWriter{buf: &stdout, limit: r.MaxOutput}
	errW := &limitWriter{buf: &stderr, limit: r.MaxOutput}
	cmd.Stdout = outW
	cmd.Stderr = errW

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	res := &Result{
		RunID:     runID,
		Command:   command,
		Stdout:    stdout.Bytes(),
		Stderr:    stderr.Bytes(),
		Truncated: outW.dropped || errW.dropped,
		Duration:  elapsed,
	}

	if errors.Is(runErr, exec.ErrWaitDelay) {
		runErr = nil
	}
	if runErr != nil {
		var exitErr *exec.ExitError
		isExit := errors.As(runErr, &exitErr)
		if isExit {
			res.ExitCode = exitErr.ExitCode()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			if !isExit {
				res.ExitCode = -1
			}
			return res, fmt.Errorf("executing %s: %w", shell, ctxErr)
		}
		if !isExit {
			return nil, fmt.Errorf("executing %s: %w", shell, runErr)
		}
	}
	return res, nil
}

// shellArgs returns the argv passed to the shell binary for command.
func shellArgs(shell, command string) []string {
	base := strings.TrimSuffix(strings.ToLower(filepath.Base(shell)), ".exe")
	if base == "cmd" {
		return []string{"/C", command}
	}
	return []string{"-c", command}
}

// resolveDir resolves cwd relative to the workspace and validates it
// is within the workspace boundary.
func (r *Runner) resolveDir(cwd string) (string, error) {
	if cwd == "" {
		return r.Workspace, nil
	}

	var dir string
	if filepath.IsAbs(cwd) {
		dir = filepath.Clean(cwd)
	} else {
		dir = filepath.Clean(filepath.Join(r.Workspace, cwd))
	}

	rel, err := filepath.Rel(r.Workspace, dir)
	if err != nil {
		return "", fmt.Errorf("resolving cwd: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("cwd %q is outside workspace %q", cwd, r.Workspace)
	}
	return dir, nil
}

// limitWriter writes up to limit bytes to buf, then silently discards the rest.
// A limit of zero or less disables the cap.
type limitWriter struct {
	buf     *bytes.Buffer
	limit   int
	dropped bool
}

func (w *limitWriter) Write(p []byte) (int, error) {
	if w.limit <= 0 {
		return w.buf.Write(p)
	}
	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		if len(p) > 0 {
			w.dropped = true
		}
		return len(p), nil
	}
	if len(p) > remaining {
		// Report all bytes as consumed so the copy goroutine does not fail
		// with a short write.
		w.buf.Write(p[:remaining])
		w.dropped = true
		return len(p), nil
	}
	return w.buf.Write(p)
}
