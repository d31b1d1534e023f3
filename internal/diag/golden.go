package diag

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

type goldenDiagnostic struct {
	Severity string
	Code     string
	Path     string
	Line     int
	Column   int
	Message  string
}

// FormatShortDiagnostics renders diagnostics into a stable, single-line-per-entry
// representation used by the CLI and golden tests. Entries without a source
// position fall back to the unit name.
func FormatShortDiagnostics(diags []Diagnostic, includeNotes bool) string {
	if len(diags) == 0 {
		return ""
	}

	rendered := make([]goldenDiagnostic, 0, len(diags))
	for i := range diags {
		rendered = appendDiagnostic(rendered, &diags[i], includeNotes)
	}

	sort.SliceStable(rendered, func(i, j int) bool {
		di, dj := rendered[i], rendered[j]
		if di.Path != dj.Path {
			return di.Path < dj.Path
		}
		if di.Line != dj.Line {
			return di.Line < dj.Line
		}
		if di.Column != dj.Column {
			return di.Column < dj.Column
		}
		if di.Severity != dj.Severity {
			return di.Severity < dj.Severity
		}
		if di.Code != dj.Code {
			return di.Code < dj.Code
		}
		return di.Message < dj.Message
	})

	var b strings.Builder
	for i, d := range rendered {
		fmt.Fprintf(&b, "%s %s %s:%d:%d %s", d.Severity, d.Code, d.Path, d.Line, d.Column, d.Message)
		if i < len(rendered)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func appendDiagnostic(out []goldenDiagnostic, d *Diagnostic, includeNotes bool) []goldenDiagnostic {
	out = append(out, goldenDiagnostic{
		Severity: severityLabel(d.Severity),
		Code:     d.Code.ID(),
		Path:     diagPath(d.Unit, d.Primary),
		Line:     d.Primary.Line,
		Column:   d.Primary.Col,
		Message:  sanitizeMessage(d.Message),
	})

	if includeNotes {
		for _, note := range d.Notes {
			out = append(out, goldenDiagnostic{
				Severity: "note",
				Code:     d.Code.ID(),
				Path:     diagPath(d.Unit, note.Pos),
				Line:     note.Pos.Line,
				Column:   note.Pos.Col,
				Message:  sanitizeMessage(note.Msg),
			})
		}
	}

	return out
}

func diagPath(unit string, pos Position) string {
	if pos.File != "" {
		return normalizePath(pos.File)
	}
	if unit != "" {
		return normalizePath(unit)
	}
	return "-"
}

func normalizePath(path string) string {
	p := filepath.ToSlash(path)
	for strings.HasPrefix(p, "./") {
		p = strings.TrimPrefix(p, "./")
	}
	return p
}

func severityLabel(sev Severity) string {
	switch sev {
	case SevError:
		return "error"
	case SevWarning:
		return "warning"
	default:
		return "info"
	}
}

func sanitizeMessage(msg string) string {
	msg = strings.ReplaceAll(msg, "\r\n", "\n")
	msg = strings.ReplaceAll(msg, "\r", "\n")
	msg = strings.ReplaceAll(msg, "\n", " ")
	return strings.TrimSpace(msg)
}
