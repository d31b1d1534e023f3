package diag

import "fmt"

// Position locates a diagnostic in the source the linear code came from.
// The zero value means "no position".
type Position struct {
	File string
	Line int
	Col  int
}

func (p Position) IsZero() bool { return p.File == "" && p.Line == 0 }

func (p Position) String() string {
	if p.IsZero() {
		return "-"
	}
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Col)
}

type Note struct {
	Pos Position
	Msg string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	// Unit is the compilation unit (input file) the diagnostic belongs to.
	Unit    string
	Primary Position
	Notes   []Note
}
