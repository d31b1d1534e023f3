package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"arm64gen/internal/backend/arm64"
	"arm64gen/internal/diag"
	"arm64gen/internal/driver"
	"arm64gen/internal/linear"
	"arm64gen/internal/pipeline"
)

var dumpCmd = &cobra.Command{
	Use:   "dump [flags] <file.lin|directory>...",
	Short: "Print the listing of linear units",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runDump,
}

func init() {
	dumpCmd.Flags().Bool("raw-regs", false, "print register indices instead of AArch64 names")
}

func runDump(cmd *cobra.Command, args []string) error {
	files, err := pipeline.ExpandInputs(args)
	if err != nil {
		return err
	}
	raw, _ := cmd.Flags().GetBool("raw-regs")
	opts := linear.DumpOptions{RegName: arm64.RegisterName}
	if raw {
		opts.RegName = nil
	}

	var diags []diag.Diagnostic
	out := cmd.OutOrStdout()
	for i, file := range files {
		u, err := driver.LoadUnit(file)
		if err != nil {
			diags = append(diags, driver.Diagnose(file, err)...)
			continue
		}
		if i > 0 {
			fmt.Fprintln(out)
		}
		if len(files) > 1 {
			fmt.Fprintf(out, "# %s\n", file)
		}
		if err := linear.DumpUnit(out, u, opts); err != nil {
			return err
		}
	}
	if len(diags) > 0 {
		printDiagnostics(cmd.ErrOrStderr(), diags, maxDiagnostics(cmd))
		return errReported
	}
	return nil
}
