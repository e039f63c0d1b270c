package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/deixis/runchecks/internal/report"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type inspectParams struct {
	RunID string `json:"run_id,omitempty" jsonschema:"the run ID from a checks_run result"`
	Phase string `json:"phase,omitempty" jsonschema:"phase name: build, lint, test or audit"`
}

func (h *handler) inspectHandler(ctx context.Context, req *mcp.CallToolRequest, params inspectParams) (*mcp.CallToolResult, any, error) {
	if params.RunID == "" {
		return errorResult("run_id is required")
	}
	if params.Phase == "" {
		return errorResult("phase is required")
	}

	result, err := h.store.Load(params.RunID)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load run %s: %v", params.RunID, err))
	}

	phase, err := result.Phase(params.Phase)
	if err != nil {
		return errorResult(err.Error())
	}

	return textResult(formatPhase(result.ID, phase))
}

func formatPhase(runID string, p *report.PhaseRecord) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Run: %s\n", runID)
	fmt.Fprintf(&b, "Phase: %s\n", p.Name)
	fmt.Fprintf(&b, "Command: %s\n", p.Command)
	fmt.Fprintf(&b, "Status: %s\n", p.Status)
	if p.Status == report.StatusSkipped {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Not run: an earlier phase failed.")
		return b.String()
	}
	fmt.Fprintf(&b, "Exit code: %d\n", p.ExitCode)
	fmt.Fprintf(&b, "Duration: %s\n", p.Duration)
	if p.Error != "" {
		fmt.Fprintf(&b, "Error (%s): %s\n", p.ErrorKind, p.Error)
	}

	writeStream(&b, "Stdout", p.Stdout)
	writeStream(&b, "Stderr", p.Stderr)
	if p.Truncated {
		fmt.Fprintln(&b)
		fmt.Fprintln(&b, "Output was truncated.")
	}
	return b.String()
}

func writeStream(b *strings.Builder, name, text string) {
	fmt.Fprintln(b)
	if text == "" {
		fmt.Fprintf(b, "%s: (empty)\n", name)
		return
	}
	fmt.Fprintf(b, "%s:\n", name)
	for _, line := range strings.Split(strings.TrimRight(text, "\n"), "\n") {
		fmt.Fprintf(b, "    %s\n", line)
	}
}
