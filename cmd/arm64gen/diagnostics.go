package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"arm64gen/internal/diag"
	"arm64gen/internal/project"
)

var (
	errorLabel   = color.New(color.FgRed, color.Bold)
	warningLabel = color.New(color.FgYellow, color.Bold)
	infoLabel    = color.New(color.FgCyan)
)

// printDiagnostics writes one line per diagnostic, at most limit of them.
func printDiagnostics(out io.Writer, diags []diag.Diagnostic, limit int) {
	if len(diags) == 0 {
		return
	}
	shown := diags
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}
	text := diag.FormatShortDiagnostics(shown, true)
	for _, line := range strings.Split(text, "\n") {
		sev, rest, _ := strings.Cut(line, " ")
		switch sev {
		case "error":
			sev = errorLabel.Sprint(sev)
		case "warning":
			sev = warningLabel.Sprint(sev)
		default:
			sev = infoLabel.Sprint(sev)
		}
		fmt.Fprintf(out, "%s %s\n", sev, rest)
	}
	if hidden := len(diags) - len(shown); hidden > 0 {
		fmt.Fprintf(out, "... and %d more\n", hidden)
	}
}

func maxDiagnostics(cmd *cobra.Command) int {
	n, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return 0
	}
	return n
}

// configDiagnostic reports a broken arm64gen.toml.
func configDiagnostic(err error) diag.Diagnostic {
	var unknown *project.UnknownKeysError
	if errors.As(err, &unknown) {
		return diag.NewError(diag.ProjUnknownKey, diag.Position{}, err.Error()).WithUnit(unknown.Path)
	}
	return diag.NewError(diag.ProjBadConfig, diag.Position{}, err.Error())
}
