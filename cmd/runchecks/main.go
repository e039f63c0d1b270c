// Command runchecks runs a project's build, lint, test and audit commands
// in sequence and exits non-zero on the first failure.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/afero"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr, afero.NewOsFs())
	stop()
	os.Exit(code)
}

// run executes the CLI and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, fsys afero.Fs) int {
	cmd := newRootCmd(fsys)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(ctx); err != nil {
		var reported *reportedError
		if !errors.As(err, &reported) {
			fmt.Fprintf(stderr, "runchecks: %v\n", err)
		}
		return 1
	}
	return 0
}

// reportedError marks a failure whose diagnostics were already printed.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string { return e.err.Error() }

func (e *reportedError) Unwrap() error { return e.err }
