package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"arm64gen/internal/driver"
	"arm64gen/internal/pipeline"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] <file.lin|directory>...",
	Short: "Validate linear units without emitting",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().Int("jobs", 0, "max parallel units (0=auto)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	files, err := pipeline.ExpandInputs(args)
	if err != nil {
		return err
	}
	jobs, _ := cmd.Flags().GetInt("jobs")
	quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")
	showTimings, _ := cmd.Root().PersistentFlags().GetBool("timings")
	wd, err := os.Getwd()
	if err != nil {
		return err
	}

	res, err := driver.CheckFiles(cmd.Context(), files, wd, jobs, nil)
	if err != nil {
		return err
	}
	bag := res.Diagnostics()
	printDiagnostics(cmd.OutOrStdout(), bag.Items(), maxDiagnostics(cmd))
	if showTimings {
		printStageTimings(cmd.ErrOrStderr(), res.Timings)
	}
	if bag.HasErrors() {
		return errReported
	}
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "%d units ok\n", len(res.Units))
	}
	return nil
}
