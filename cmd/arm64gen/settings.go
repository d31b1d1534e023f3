package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"arm64gen/internal/backend/arm64"
	"arm64gen/internal/diag"
	"arm64gen/internal/project"
)

// settings is the configuration of one emit run after flags were applied
// on top of arm64gen.toml.
type settings struct {
	manifest  *project.Manifest
	options   arm64.Options
	outputDir string
	jobs      int
	cache     bool
}

func addTargetFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("debug", false, "keep precise bound-error sites and emit .loc directives")
	cmd.Flags().Bool("dlcode", false, "address external symbols through the GOT")
	cmd.Flags().Bool("no-cfi", false, "omit call frame information directives")
	cmd.Flags().String("system", "", "target system (linux|darwin)")
	cmd.Flags().StringP("output", "o", "", "directory for .s files")
	cmd.Flags().Int("jobs", 0, "max parallel units (0=auto)")
	cmd.Flags().Bool("no-cache", false, "always emit, ignoring cached assembly")
}

// loadSettings reads arm64gen.toml upward from the working directory and
// lets explicitly set flags override it.
func loadSettings(cmd *cobra.Command) (*settings, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	m, _, err := project.Load(wd)
	if err != nil {
		printDiagnostics(cmd.ErrOrStderr(), []diag.Diagnostic{configDiagnostic(err)}, 0)
		return nil, errReported
	}
	cfg := m.Config
	flags := cmd.Flags()

	if flags.Changed("system") {
		cfg.Target.System, _ = flags.GetString("system")
	}
	if flags.Changed("debug") {
		cfg.Target.Debug, _ = flags.GetBool("debug")
	}
	if flags.Changed("dlcode") {
		cfg.Target.DLCode, _ = flags.GetBool("dlcode")
	}
	if flags.Changed("no-cfi") {
		noCFI, _ := flags.GetBool("no-cfi")
		cfg.Target.CFI = !noCFI
	}
	if flags.Changed("jobs") {
		cfg.Build.Jobs, _ = flags.GetInt("jobs")
	}
	if flags.Changed("no-cache") {
		noCache, _ := flags.GetBool("no-cache")
		cfg.Output.Cache = !noCache
	}
	if err := cfg.Validate(); err != nil {
		d := diag.NewError(diag.ProjBadTarget, diag.Position{}, err.Error())
		printDiagnostics(cmd.ErrOrStderr(), []diag.Diagnostic{d}, 0)
		return nil, errReported
	}
	opts, err := cfg.EmitOptions()
	if err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}
	m.Config = cfg

	out := m.OutputDir()
	if flags.Changed("output") {
		out, _ = flags.GetString("output")
	}
	return &settings{
		manifest:  m,
		options:   opts,
		outputDir: out,
		jobs:      cfg.Jobs(),
		cache:     cfg.Output.Cache,
	}, nil
}
