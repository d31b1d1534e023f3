package main

import (
	"fmt"
	"io"
	"os"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"arm64gen/internal/driver"
	"arm64gen/internal/pipeline"
)

var emitCmd = &cobra.Command{
	Use:   "emit [flags] <file.lin|directory>...",
	Short: "Emit AArch64 assembly for linear units",
	Long: `Decode each .lin unit, emit its assembly and write <output>/<name>.s.
Directories are searched recursively for *.lin files. Units are emitted in
parallel; a failing unit does not stop the others.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEmit,
}

func init() {
	addTargetFlags(emitCmd)
	emitCmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
	emitCmd.Flags().Bool("stdout", false, "print assembly to stdout instead of writing files")
	emitCmd.Flags().Bool("no-validate", false, "skip structural checks before emitting")
	emitCmd.Flags().Bool("clear-cache", false, "drop every cached unit before emitting")
}

func runEmit(cmd *cobra.Command, args []string) error {
	st, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	files, err := pipeline.ExpandInputs(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no %s files in %v", pipeline.UnitExt, args)
	}

	quiet, _ := cmd.Root().PersistentFlags().GetBool("quiet")
	showTimings, _ := cmd.Root().PersistentFlags().GetBool("timings")
	toStdout, _ := cmd.Flags().GetBool("stdout")
	noValidate, _ := cmd.Flags().GetBool("no-validate")
	clearCache, _ := cmd.Flags().GetBool("clear-cache")
	uiValue, _ := cmd.Flags().GetString("ui")
	mode, err := readUIMode(uiValue)
	if err != nil {
		return err
	}

	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	req := driver.EmitRequest{
		Files:     files,
		BaseDir:   wd,
		OutputDir: st.outputDir,
		Options:   st.options,
		Jobs:      st.jobs,
		Validate:  !noValidate,
		NoWrite:   toStdout,
	}
	if st.cache {
		cache, err := driver.OpenUserCache("arm64gen")
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "warning: cache disabled: %v\n", err)
		} else {
			if clearCache {
				if err := cache.DropAll(); err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "warning: clear cache: %v\n", err)
				}
			}
			req.Cache = cache
		}
	}

	var res *driver.EmitResult
	if !quiet && !toStdout && shouldUseTUI(mode) {
		res, err = runEmitWithUI(cmd.Context(), "arm64gen emit", &req)
	} else {
		res, err = driver.EmitFiles(cmd.Context(), req)
	}
	if err != nil {
		return err
	}

	if toStdout {
		for _, u := range res.Units {
			if u.Err == nil {
				if _, err := io.WriteString(cmd.OutOrStdout(), u.Asm); err != nil {
					return err
				}
			}
		}
	}

	bag := res.Diagnostics()
	printDiagnostics(cmd.ErrOrStderr(), bag.Items(), maxDiagnostics(cmd))

	if !quiet && !toStdout {
		failed := len(res.Failed())
		cached := lo.CountBy(res.Units, func(u driver.UnitResult) bool { return u.Cached })
		fmt.Fprintf(cmd.OutOrStdout(), "emitted %d of %d units", len(res.Units)-failed, len(res.Units))
		if cached > 0 {
			fmt.Fprintf(cmd.OutOrStdout(), " (%d cached)", cached)
		}
		if req.OutputDir != "" {
			fmt.Fprintf(cmd.OutOrStdout(), " into %s", req.OutputDir)
		}
		fmt.Fprintln(cmd.OutOrStdout())
	}
	if showTimings {
		printStageTimings(cmd.ErrOrStderr(), res.Timings)
	}
	if len(res.Failed()) > 0 {
		return errReported
	}
	return nil
}
