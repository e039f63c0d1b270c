package main

import (
	"errors"
	"fmt"

	"github.com/deixis/runchecks/internal/report"
	"github.com/spf13/cobra"
)

func newCompareCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "compare <a.json> <b.json>",
		Short: "Compare two run reports phase by phase",
		Long: `The compare command reads two reports written with --report and prints, for
every phase, whether the status and exit code match, followed by a line diff of
any output that changed. It exits 1 when the outcomes differ.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ra, err := report.ReadFile(a.fs, args[0])
			if err != nil {
				return err
			}
			rb, err := report.ReadFile(a.fs, args[1])
			if err != nil {
				return err
			}

			c := report.Compare(ra, rb)
			fmt.Fprint(cmd.OutOrStdout(), c.String())
			if !c.SameOutcome() {
				return &reportedError{err: errors.New("runs have different outcomes")}
			}
			return nil
		},
	}
}
