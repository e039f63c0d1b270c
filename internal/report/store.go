// Package report records the outcome of a check run: one entry per phase
// with its command, exit status and captured output. Results can be
// persisted, retrieved by run id, and compared with each other.
package report

import (
	"fmt"
	"time"
)

// Phase statuses.
const (
	StatusPass    = "pass"
	StatusFail    = "fail"
	StatusIgnored = "ignored" // non-zero exit on a phase allowed to fail
	StatusSkipped = "skipped"
)

// Error kinds recorded on failed phases.
const (
	KindCommandFailure     = "command_failure"
	KindInterpreterMissing = "interpreter_missing"
	KindError              = "error"
)

// Store persists and retrieves run results.
type Store interface {
	Save(result *RunResult) error
	Load(runID string) (*RunResult, error)
}

// RunResult holds the structured outcome of one pipeline run.
type RunResult struct {
	ID        string        `json:"id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	State     string        `json:"state"` // DONE or FAILED
	Failed    string        `json:"failed,omitempty"`
	Phases    []PhaseRecord `json:"phases"`
}

// PhaseRecord holds what happened in a single phase.
type PhaseRecord struct {
	Name         string        `json:"name"`
	Command      string        `json:"command"`
	AllowFailure bool          `json:"allow_failure,omitempty"`
	Status       string        `json:"status"`
	ExitCode     int           `json:"exit_code"`
	Stdout       string        `json:"stdout,omitempty"`
	Stderr       string        `json:"stderr,omitempty"`
	Truncated    bool          `json:"truncated,omitempty"`
	Duration     time.Duration `json:"duration,omitempty"`
	ErrorKind    string        `json:"error_kind,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// OK reports whether every phase passed or was allowed to fail.
func (r *RunResult) OK() bool {
	return r.Failed == ""
}

// Phase returns the record for the named phase.
func (r *RunResult) Phase(name string) (*PhaseRecord, error) {
	for i := range r.Phases {
		if r.Phases[i].Name == name {
			return &r.Phases[i], nil
		}
	}
	return nil, fmt.Errorf("run %s has no phase %q", r.ID, name)
}
