package driver

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"arm64gen/internal/backend/arm64"
	"arm64gen/internal/diag"
	"arm64gen/internal/linear"
)

// LoadError is a unit file that could not be read or decoded.
type LoadError struct {
	Path string
	Code diag.Code
	Err  error
}

func (e *LoadError) Error() string { return fmt.Sprintf("%s: %v", e.Path, e.Err) }

func (e *LoadError) Unwrap() error { return e.Err }

// Diagnostic converts the error for reporting.
func (e *LoadError) Diagnostic() diag.Diagnostic {
	return diag.NewError(e.Code, diag.Position{}, e.Err.Error()).WithUnit(e.Path)
}

// LoadUnit reads and decodes the unit stored at path.
func LoadUnit(path string) (*linear.Unit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Code: diag.IOLoadFileError, Err: err}
	}
	u, err := linear.DecodeUnit(bytes.NewReader(data))
	if err != nil {
		code := diag.LinDecode
		if errors.Is(err, linear.ErrSchemaMismatch) {
			code = diag.LinSchemaMismatch
		}
		return nil, &LoadError{Path: path, Code: code, Err: err}
	}
	return u, nil
}

// violationCode maps a validation check to its diagnostic code.
func violationCode(c linear.Check) diag.Code {
	switch c {
	case linear.CheckTerminated:
		return diag.LinUnterminated
	case linear.CheckOperands:
		return diag.LinUnlocatedOperand
	case linear.CheckLabels:
		return diag.LinBadLabel
	case linear.CheckShapes:
		return diag.LinBadShape
	default:
		return diag.UnknownCode
	}
}

func debugPos(d linear.DebugInfo) diag.Position {
	if d.IsNone() {
		return diag.Position{}
	}
	return diag.Position{File: d.File, Line: d.Line, Col: d.CharStart + 1}
}

// Diagnose turns any error produced while handling the unit file into
// diagnostics. Joined validation errors yield one diagnostic per violation.
func Diagnose(file string, err error) []diag.Diagnostic {
	if err == nil {
		return nil
	}
	var le *LoadError
	if errors.As(err, &le) {
		return []diag.Diagnostic{le.Diagnostic()}
	}
	if vs := linear.Violations(err); len(vs) > 0 {
		out := make([]diag.Diagnostic, 0, len(vs))
		for _, v := range vs {
			out = append(out, diag.NewError(violationCode(v.Check), debugPos(v.Dbg), v.Error()).WithUnit(file))
		}
		return out
	}
	var we *WriteError
	if errors.As(err, &we) {
		return []diag.Diagnostic{diag.NewError(diag.IOWriteFileError, diag.Position{}, we.Error()).WithUnit(file)}
	}
	// Invariants the emitter caught on its own
	if ie, ok := arm64.AsInternal(err); ok {
		return []diag.Diagnostic{ie.Diagnostic(file)}
	}
	return []diag.Diagnostic{diag.NewError(diag.UnknownCode, diag.Position{}, err.Error()).WithUnit(file)}
}
