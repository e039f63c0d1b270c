package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/deixis/runchecks/internal/config"
	"github.com/deixis/runchecks/internal/log"
	checksmcp "github.com/deixis/runchecks/internal/mcp"
	"github.com/deixis/runchecks/internal/report"
	"github.com/deixis/runchecks/internal/runner"
	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
)

func newMCPCmd(a *app) *cobra.Command {
	var (
		instructions bool
		httpAddr     string
	)
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if instructions {
				fmt.Fprint(cmd.OutOrStdout(), checksmcp.Instructions)
				return nil
			}
			return a.serve(cmd.Context(), httpAddr)
		},
	}
	cmd.Flags().BoolVar(&instructions, "instructions", false, "print model instructions and exit")
	cmd.Flags().StringVar(&httpAddr, "http", "", "start HTTP server on address (e.g. :9090)")
	return cmd
}

func (a *app) serve(ctx context.Context, httpAddr string) error {
	loaded, err := a.loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg := loaded.Config

	store := report.NewLRUStore(5, report.NewDiskStore(a.fs))

	r := &runner.Runner{
		Workspace: loaded.RepoRoot,
		Shell:     cfg.Shell,
		Timeout:   cfg.Timeout(),
		MaxOutput: cfg.MaxOutputBytes(config.DefaultMaxOutput),
	}

	server := checksmcp.NewServer(cfg, r, store, checksmcp.WithFs(a.fs), checksmcp.WithLogger(a.logger))

	if httpAddr != "" {
		return serveHTTP(ctx, server, httpAddr, a.logger)
	}
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

func serveHTTP(ctx context.Context, server *mcpsdk.Server, addr string, logger log.Logger) error {
	handler := mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	logger.Info("listening", "addr", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
