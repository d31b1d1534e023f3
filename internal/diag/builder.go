package diag

func New(sev Severity, code Code, primary Position, msg string) Diagnostic {
	return Diagnostic{
		Severity: sev,
		Code:     code,
		Primary:  primary,
		Message:  msg,
		Notes:    nil,
	}
}

func NewError(code Code, primary Position, msg string) Diagnostic {
	return New(SevError, code, primary, msg)
}

func (d Diagnostic) WithNote(pos Position, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Pos: pos, Msg: msg})
	return d
}

func (d Diagnostic) WithUnit(unit string) Diagnostic {
	d.Unit = unit
	return d
}
