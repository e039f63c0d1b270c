// Package mcp provides the runchecks MCP server, registering all tools
// and publishing model instructions.
package mcp

import (
	"context"
	_ "embed"
	"net/url"
	"sync"
	"time"

	"github.com/deixis/runchecks"
	"github.com/deixis/runchecks/internal/config"
	"github.com/deixis/runchecks/internal/log"
	"github.com/deixis/runchecks/internal/report"
	"github.com/deixis/runchecks/internal/runner"
	"github.com/deixis/runchecks/internal/workflow"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/afero"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers.
type handler struct {
	// mu serializes pipeline runs and workspace updates; phases from two
	// tool calls must never interleave.
	mu     sync.Mutex
	engine *workflow.Engine
	runner *runner.Runner // retained for updateWorkspaceFromRoots
	store  report.Store
	fs     afero.Fs
	logger log.Logger
}

// NewServer creates an MCP server with all runchecks tools registered.
func NewServer(cfg *config.Config, r *runner.Runner, store report.Store, opts ...ServerOption) *mcp.Server {
	so := serverOptions{fs: afero.NewOsFs(), logger: log.Nop()}
	for _, o := range opts {
		o(&so)
	}

	h := &handler{
		engine: &workflow.Engine{
			Config: cfg,
			Runner: r,
			Logger: so.logger,
		},
		runner: r,
		store:  store,
		fs:     so.fs,
		logger: so.logger,
	}

	mcpOpts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
		InitializedHandler: func(ctx context.Context, req *mcp.InitializedRequest) {
			h.updateWorkspaceFromRoots(ctx, req.Session)
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "runchecks", Version: runchecks.Version}, mcpOpts)

	mcp.AddTool(s, &mcp.Tool{
		Name: "checks_run",
		Description: `Run the check pipeline (build, lint, test, audit) and stop on the first failure.

Phases run one at a time in a fixed order. Returns the status of every phase, the printed
transcript and a run id. Results are stored for drill-down via checks_inspect.`,
	}, h.runHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "checks_inspect",
		Description: `Show one phase from a checks_run result: command, exit code, stdout and stderr.

Use the run_id from checks_run and a phase name (build, lint, test or audit).`,
	}, h.inspectHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "checks_compare",
		Description: `Compare two checks_run results phase by phase.

Reports whether the outcome (status and exit code of every phase) is the same, and shows a
line diff of any output that changed.`,
	}, h.compareHandler)

	return s
}

// ServerOption configures the runchecks MCP server.
type ServerOption func(*serverOptions)

type serverOptions struct {
	fs     afero.Fs
	logger log.Logger
}

// WithFs sets the filesystem used to reload configuration. Defaults to the OS.
func WithFs(fsys afero.Fs) ServerOption {
	return func(o *serverOptions) {
		o.fs = fsys
	}
}

// WithLogger attaches a logger to the server and its engine.
func WithLogger(l log.Logger) ServerOption {
	return func(o *serverOptions) {
		o.logger = l
	}
}

// updateWorkspaceFromRoots queries the client for MCP roots and points the
// runner and engine at the first file root, reloading its configuration.
// This is called during session initialization, before any tool calls.
func (h *handler) updateWorkspaceFromRoots(ctx context.Context, session *mcp.ServerSession) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	roots, err := session.ListRoots(ctx, &mcp.ListRootsParams{})
	if err != nil || len(roots.Roots) == 0 {
		return
	}

	u, err := url.Parse(roots.Roots[0].URI)
	if err != nil || u.Scheme != "file" {
		return
	}

	loaded, err := config.Load(h.fs, u.Path)
	if err != nil {
		h.logger.Warn("ignoring client root", "root", u.Path, "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.runner.Workspace = loaded.RepoRoot
	h.runner.Shell = loaded.Config.Shell
	h.runner.Timeout = loaded.Config.Timeout()
	h.runner.MaxOutput = loaded.Config.MaxOutputBytes(config.DefaultMaxOutput)
	h.engine.Config = loaded.Config
	h.logger.Info("workspace updated from client root", "root", loaded.RepoRoot)
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
