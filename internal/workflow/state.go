package workflow

import (
	"fmt"
	"strings"

	"github.com/deixis/runchecks/internal/config"
)

// State is a position in the check state machine:
// START, then one state per phase in order, then DONE. Any non-terminal
// state may move to FAILED instead of advancing.
type State string

const (
	StateStart  State = "START"
	StateDone   State = "DONE"
	StateFailed State = "FAILED"
)

// PhaseState returns the state the machine is in while the named phase runs.
func PhaseState(name string) State {
	return State(strings.ToUpper(name))
}

// IsTerminal reports whether no further transition is possible from s.
func IsTerminal(s State) bool {
	return s == StateDone || s == StateFailed
}

// Progress tracks a single run through the state machine.
type Progress struct {
	seq []State
	pos int
	cur State
}

// NewProgress returns a machine in START for the given phases.
func NewProgress(phases []config.Phase) *Progress {
	seq := make([]State, 0, len(phases)+2)
	seq = append(seq, StateStart)
	for _, p := range phases {
		seq = append(seq, PhaseState(p.Name))
	}
	seq = append(seq, StateDone)
	return &Progress{seq: seq, cur: StateStart}
}

// State returns the current state.
func (p *Progress) State() State {
	return p.cur
}

// Advance moves to the next phase, or to DONE after the last one.
func (p *Progress) Advance() error {
	if IsTerminal(p.cur) {
		return fmt.Errorf("invalid transition: %s is terminal", p.cur)
	}
	p.pos++
	p.cur = p.seq[p.pos]
	return nil
}

// Fail moves to FAILED.
func (p *Progress) Fail() error {
	if IsTerminal(p.cur) {
		return fmt.Errorf("invalid transition: %s -> %s", p.cur, StateFailed)
	}
	p.cur = StateFailed
	return nil
}
