package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/deixis/runchecks/internal/report"
	"github.com/deixis/runchecks/internal/runner"
	"github.com/google/uuid"
)

// CheckResult holds the full outcome of a check run.
type CheckResult struct {
	RunResult *report.RunResult
	FailedIdx int   // -1 if all phases passed
	Err       error // failure that stopped the run
}

// Failed reports whether the run stopped on a failure.
func (r *CheckResult) Failed() bool {
	return r.FailedIdx >= 0
}

// Check runs build, lint, test and audit in sequence, stopping on the
// first failure. Phases after the failing one are recorded as skipped and
// never started. The success message is printed only when every phase
// passed or was allowed to fail.
//
// The returned error reports a broken state machine, not a failed phase;
// phase failures are in CheckResult.
func (e *Engine) Check(ctx context.Context) (*CheckResult, error) {
	phases := e.Config.ResolvedPhases()
	logger := e.logger()
	start := time.Now()

	rr := &report.RunResult{
		ID:        uuid.New().String(),
		StartedAt: start.UTC(),
		Phases:    make([]report.PhaseRecord, len(phases)),
	}
	for i, p := range phases {
		rr.Phases[i] = report.PhaseRecord{
			Name:         p.Name,
			Command:      p.Command,
			AllowFailure: p.AllowFailure,
			Status:       report.StatusSkipped,
		}
	}

	result := &CheckResult{RunResult: rr, FailedIdx: -1}
	progress := NewProgress(phases)
	logger.Info("check started", "run_id", rr.ID, "toolchain", e.Config.ToolchainName())

	for i, p := range phases {
		if err := progress.Advance(); err != nil {
			return nil, err
		}
		rec := &rr.Phases[i]

		if err := ctx.Err(); err != nil {
			rec.Status = report.StatusFail
			rec.ErrorKind = report.KindError
			rec.Error = err.Error()
			result.FailedIdx, result.Err = i, err
			break
		}

		logger.Info("phase started", "phase", p.Name, "command", p.Command, "dir", p.Dir)
		res, err := e.runIn(ctx, p.Command, p.Dir, !p.AllowFailure)
		recordPhase(rec, res, err)

		if err != nil {
			logger.Error("phase failed", "phase", p.Name, "error_kind", rec.ErrorKind, "exit_code", rec.ExitCode)
			result.FailedIdx, result.Err = i, fmt.Errorf("%s phase: %w", p.Name, err)
			break
		}
		if rec.Status == report.StatusIgnored {
			logger.Warn("phase failed, continuing", "phase", p.Name, "exit_code", rec.ExitCode)
		}
		logger.Info("phase finished", "phase", p.Name, "duration", rec.Duration)
	}

	if result.Failed() {
		if err := progress.Fail(); err != nil {
			return nil, err
		}
		rr.Failed = phases[result.FailedIdx].Name
	} else {
		if err := progress.Advance(); err != nil {
			return nil, err
		}
		fmt.Fprintln(e.out(), SuccessMessage)
	}

	rr.State = string(progress.State())
	rr.Duration = time.Since(start)
	logger.Info("check finished", "run_id", rr.ID, "state", rr.State, "duration", rr.Duration)

	return result, nil
}

func recordPhase(rec *report.PhaseRecord, res *runner.Result, err error) {
	if res != nil {
		rec.ExitCode = res.ExitCode
		rec.Stdout = string(res.Stdout)
		rec.Stderr = string(res.Stderr)
		rec.Truncated = res.Truncated
		rec.Duration = res.Duration
	}

	var (
		failure *CommandFailure
		missing *InterpreterMissing
	)
	switch {
	case err == nil && res != nil && res.ExitCode != 0:
		rec.Status = report.StatusIgnored
	case err == nil:
		rec.Status = report.StatusPass
	case errors.As(err, &failure):
		rec.Status = report.StatusFail
		rec.ErrorKind = report.KindCommandFailure
		rec.Error = err.Error()
	case errors.As(err, &missing):
		rec.Status = report.StatusFail
		rec.ErrorKind = report.KindInterpreterMissing
		rec.Error = err.Error()
	default:
		rec.Status = report.StatusFail
		rec.ErrorKind = report.KindError
		rec.Error = err.Error()
	}
}
