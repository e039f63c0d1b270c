package workflow

import (
	"fmt"
	"strings"
)

// CommandFailure is returned when a checked command exits non-zero.
type CommandFailure struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *CommandFailure) Error() string {
	return fmt.Sprintf("command %q returned non-zero exit status %d", e.Command, e.ExitCode)
}

// InterpreterMissing is returned when the shell, or the program the shell
// was asked to start, cannot be located.
type InterpreterMissing struct {
	Command string
	Shell   string
	Stderr  string // shell diagnostics, when the shell itself ran
	Hint    string // install instructions for known tools
	Err     error
}

func (e *InterpreterMissing) Error() string {
	var b strings.Builder
	if e.Err != nil {
		fmt.Fprintf(&b, "cannot run %q: %v", e.Command, e.Err)
	} else {
		fmt.Fprintf(&b, "%s could not locate the program for %q", e.Shell, e.Command)
	}
	if e.Hint != "" {
		fmt.Fprintf(&b, "\n%s", e.Hint)
	}
	return b.String()
}

func (e *InterpreterMissing) Unwrap() error { return e.Err }

// toolInfo holds install metadata for a known tool.
type toolInfo struct {
	// Install is the command that installs the tool.
	Install string
	// AltInstall is an install URL, used when there is no install command.
	AltInstall string
}

// knownTools maps the program invoked by a phase preset to its install metadata.
var knownTools = map[string]toolInfo{
	"cargo":         {AltInstall: "https://rustup.rs"},
	"go":            {AltInstall: "https://go.dev/dl/"},
	"golangci-lint": {AltInstall: "https://golangci-lint.run/welcome/install/"},
	"govulncheck":   {Install: "go install golang.org/x/vuln/cmd/govulncheck@latest"},
}

// installHint returns install instructions for the program command starts,
// or "" when the program is unknown.
func installHint(command string) string {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	info, ok := knownTools[fields[0]]
	if !ok {
		return ""
	}
	if info.Install != "" {
		return "Install: " + info.Install
	}
	return "Install: " + info.AltInstall
}
