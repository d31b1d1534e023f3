package arm64

import (
	"errors"
	"fmt"

	"arm64gen/internal/diag"
	"arm64gen/internal/linear"
)

// InternalError reports an invariant violation found while emitting. It
// always aborts the unit.
type InternalError struct {
	Code  diag.Code
	Func  string
	Index int // instruction index in the body, -1 outside the body
	Instr string
	Msg   string
	Pos   diag.Position
}

func (e *InternalError) Error() string {
	if e.Func == "" {
		return fmt.Sprintf("%s: %s", e.Code.ID(), e.Msg)
	}
	if e.Index < 0 {
		return fmt.Sprintf("%s: %s: %s", e.Code.ID(), e.Func, e.Msg)
	}
	return fmt.Sprintf("%s: %s #%d (%s): %s", e.Code.ID(), e.Func, e.Index, e.Instr, e.Msg)
}

// Diagnostic converts the error to a diagnostic for unit.
func (e *InternalError) Diagnostic(unit string) diag.Diagnostic {
	d := diag.NewError(e.Code, e.Pos, e.Error()).WithUnit(unit)
	if e.Instr != "" {
		d = d.WithNote(e.Pos, "instruction: "+e.Instr)
	}
	return d
}

// AsInternal unwraps err to an *InternalError, if it is one.
func AsInternal(err error) (*InternalError, bool) {
	var ie *InternalError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}

func errorf(code diag.Code, format string, args ...any) *InternalError {
	return &InternalError{Code: code, Index: -1, Msg: fmt.Sprintf(format, args...)}
}

func posOf(d linear.DebugInfo) diag.Position {
	if d.IsNone() {
		return diag.Position{}
	}
	return diag.Position{File: d.File, Line: d.Line, Col: d.CharStart + 1}
}
