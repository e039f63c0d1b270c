package mcp

import (
	"context"
	"fmt"

	"github.com/deixis/runchecks/internal/report"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type compareParams struct {
	RunA string `json:"run_a,omitempty" jsonschema:"run ID of the earlier checks_run result"`
	RunB string `json:"run_b,omitempty" jsonschema:"run ID of the later checks_run result"`
}

func (h *handler) compareHandler(ctx context.Context, req *mcp.CallToolRequest, params compareParams) (*mcp.CallToolResult, any, error) {
	if params.RunA == "" || params.RunB == "" {
		return errorResult("run_a and run_b are required")
	}

	a, err := h.store.Load(params.RunA)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load run %s: %v", params.RunA, err))
	}
	b, err := h.store.Load(params.RunB)
	if err != nil {
		return errorResult(fmt.Sprintf("Failed to load run %s: %v", params.RunB, err))
	}

	return textResult(report.Compare(a, b).String())
}
