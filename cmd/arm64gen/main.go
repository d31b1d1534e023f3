package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"arm64gen/internal/trace"
	"arm64gen/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "arm64gen",
	Short: "AArch64 assembly emitter for linearized code",
	Long: `arm64gen turns register-allocated linear code (.lin units) into
AArch64 assembly with frame descriptors for the garbage collector`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: prepareRun,
}

// errReported means the command already printed why it failed.
var errReported = errors.New("failed")

// Tracing state shared by the commands of one invocation.
var (
	activeTracer trace.Tracer = trace.Nop
	traceCleanup              = func() {}
)

func init() {
	// Устанавливаем версию для автоматического флага --version
	rootCmd.Version = version.Version

	rootCmd.AddCommand(emitCmd)
	rootCmd.AddCommand(dumpCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(versionCmd)

	// Глобальные флаги
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().Int("max-diagnostics", 100, "maximum number of diagnostics to show")
	addTraceFlags(rootCmd)
	addProfileFlags(rootCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		dumpTraceRing()
	}
	traceCleanup()
	if err != nil {
		if !errors.Is(err, errReported) {
			fmt.Fprintf(os.Stderr, "%s %v\n", color.New(color.FgRed, color.Bold).Sprint("error:"), err)
		}
		os.Exit(1)
	}
}

func prepareRun(cmd *cobra.Command, _ []string) error {
	if err := applyColorFlag(cmd); err != nil {
		return err
	}
	stopProfiling, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	cleanup, err := setupTracing(cmd)
	if err != nil {
		stopProfiling()
		return err
	}
	traceCleanup = func() {
		cleanup()
		stopProfiling()
	}
	return nil
}

// applyColorFlag sets color.NoColor for the whole process.
func applyColorFlag(cmd *cobra.Command) error {
	mode, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return err
	}
	switch mode {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	case "auto", "":
		color.NoColor = !isTerminal(os.Stdout) || os.Getenv("NO_COLOR") != ""
	default:
		return fmt.Errorf("invalid --color value %q (expected auto|on|off)", mode)
	}
	return nil
}

// isTerminal проверяет, является ли файл терминалом
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
