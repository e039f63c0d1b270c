package main

import (
	"fmt"
	"os"
	"time"

	"github.com/deixis/runchecks"
	"github.com/deixis/runchecks/internal/config"
	"github.com/deixis/runchecks/internal/log"
	"github.com/deixis/runchecks/internal/report"
	"github.com/deixis/runchecks/internal/runner"
	"github.com/deixis/runchecks/internal/workflow"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// app holds flag values and dependencies shared by all commands.
type app struct {
	fs     afero.Fs
	logger log.Logger

	cfgFile    string
	logLevel   string
	timeout    time.Duration
	reportPath string
}

func newRootCmd(fsys afero.Fs) *cobra.Command {
	a := &app{fs: fsys}

	rootCmd := &cobra.Command{
		Use:   "runchecks",
		Short: "runchecks runs build, lint, test and audit in sequence",
		Long: `runchecks runs a project's build, lint, test and audit commands one after
another, printing their output, and stops with exit code 1 at the first failure.

With no .runchecks.yaml the cargo commands are used:
  cargo build, cargo clippy -- -D warnings, cargo test, cargo audit`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := log.ParseLevel(a.logLevel)
			if err != nil {
				return err
			}
			a.logger = log.NewSlogLogger(level, cmd.ErrOrStderr())
			return nil
		},
		RunE: a.runChecks,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is .runchecks.yaml at the project root)")
	flags.StringVar(&a.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.Flags().DurationVar(&a.timeout, "timeout", 0, "override the configured per-command timeout (e.g. 5m)")
	rootCmd.Flags().StringVar(&a.reportPath, "report", "", "write a JSON report of the run to this file")

	rootCmd.AddCommand(
		newVersionCmd(),
		newCompareCmd(a),
		newMCPCmd(a),
	)
	return rootCmd
}

func (a *app) runChecks(cmd *cobra.Command, _ []string) error {
	loaded, err := a.loadConfig()
	if err != nil {
		return err
	}
	cfg := loaded.Config

	timeout := cfg.Timeout()
	if a.timeout > 0 {
		timeout = a.timeout
	}

	eng := &workflow.Engine{
		Config: cfg,
		Runner: &runner.Runner{
			Workspace: loaded.RepoRoot,
			Shell:     cfg.Shell,
			Timeout:   timeout,
			MaxOutput: cfg.MaxOutputBytes(0),
		},
		Out:    cmd.OutOrStdout(),
		Logger: a.logger,
	}
	a.logger.Debug("config loaded", "path", loaded.Path, "root", loaded.RepoRoot, "toolchain", cfg.ToolchainName())

	result, err := eng.Check(cmd.Context())
	if err != nil {
		return fmt.Errorf("check: %w", err)
	}

	if a.reportPath != "" {
		if err := report.WriteFile(a.fs, a.reportPath, result.RunResult); err != nil {
			return err
		}
		a.logger.Info("report written", "path", a.reportPath, "run_id", result.RunResult.ID)
	}

	if result.Failed() {
		return &reportedError{err: result.Err}
	}
	return nil
}

// loadConfig reads the --config file, or discovers .runchecks.yaml from
// the working directory.
func (a *app) loadConfig() (*config.LoadResult, error) {
	if a.cfgFile != "" {
		return config.LoadFile(a.fs, a.cfgFile)
	}
	workspace, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("determining workspace: %w", err)
	}
	return config.Load(a.fs, workspace)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), runchecks.Version)
		},
	}
}
