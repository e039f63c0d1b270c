package mcp

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/deixis/runchecks/internal/report"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type runParams struct{}

func (h *handler) runHandler(ctx context.Context, req *mcp.CallToolRequest, _ runParams) (*mcp.CallToolResult, any, error) {
	h.mu.Lock()
	var transcript bytes.Buffer
	engine := *h.engine
	engine.Out = &transcript
	result, err := engine.Check(ctx)
	h.mu.Unlock()

	if err != nil {
		return errorResult(fmt.Sprintf("check failed: %v", err))
	}

	// Save results for checks_inspect.
	if err := h.store.Save(result.RunResult); err != nil {
		h.logger.Warn("saving run failed", "run_id", result.RunResult.ID, "error", err)
	}

	return textResult(formatRun(result.RunResult, transcript.String()))
}

func formatRun(rr *report.RunResult, transcript string) string {
	var b strings.Builder

	if rr.OK() {
		fmt.Fprintln(&b, "Status: PASS")
	} else {
		fmt.Fprintln(&b, "Status: FAIL")
	}
	fmt.Fprintf(&b, "Run: %s\n", rr.ID)
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "Phases:")
	for _, p := range rr.Phases {
		switch p.Status {
		case report.StatusSkipped:
			fmt.Fprintf(&b, "  %s: skipped\n", p.Name)
		case report.StatusFail:
			fmt.Fprintf(&b, "  %s: fail (%s)\n", p.Name, firstLine(p.Error))
		default:
			fmt.Fprintf(&b, "  %s: %s (exit %d)\n", p.Name, p.Status, p.ExitCode)
		}
	}
	fmt.Fprintln(&b)

	fmt.Fprintln(&b, "Transcript:")
	fmt.Fprint(&b, transcript)
	if !strings.HasSuffix(transcript, "\n") {
		fmt.Fprintln(&b)
	}
	fmt.Fprintln(&b)

	if !rr.OK() {
		fmt.Fprintf(&b, "Inspect with checks_inspect(run_id=%q, phase=%q).\n", rr.ID, rr.Failed)
	}
	return b.String()
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
