package diag

import (
	"testing"
)

func TestFormatShortDiagnostics(t *testing.T) {
	diags := []Diagnostic{
		{
			Severity: SevError,
			Code:     EmitBadOperand,
			Message:  "first line\nsecond",
			Unit:     "build/m.lin",
			Primary:  Position{File: "./src/m.ml", Line: 4, Col: 2},
			Notes: []Note{
				{Pos: Position{File: "src/m.ml", Line: 5, Col: 1}, Msg: "note line"},
			},
		},
		{
			Severity: SevWarning,
			Code:     LinBadShape,
			Message:  "another",
			Unit:     "build/m.lin",
		},
	}

	expected := "warning LIN1006 build/m.lin:0:0 another\n" +
		"error EMT2002 src/m.ml:4:2 first line second\n" +
		"note EMT2002 src/m.ml:5:1 note line"

	if got := FormatShortDiagnostics(diags, true); got != expected {
		t.Fatalf("unexpected diagnostics:\nwant:\n%s\n\ngot:\n%s", expected, got)
	}
}

func TestBagSortAndDedup(t *testing.T) {
	b := NewBag(8)
	rep := NewDedupReporter(BagReporter{Bag: b})
	d := NewError(EmitTrapUnderflow, Position{File: "a.ml", Line: 2}, "pop").WithUnit("u")
	rep.Report(d)
	rep.Report(d)
	rep.Report(New(SevWarning, LinBadShape, Position{File: "a.ml", Line: 1}, "w").WithUnit("u"))
	b.Sort()
	if b.Len() != 2 {
		t.Fatalf("expected 2 diagnostics after dedup, got %d", b.Len())
	}
	if b.Items()[0].Code != LinBadShape {
		t.Fatalf("expected line 1 first, got %s", b.Items()[0].Code.ID())
	}
	if !b.HasErrors() {
		t.Fatalf("expected HasErrors")
	}
}

func TestBagRespectsLimit(t *testing.T) {
	b := NewBag(1)
	if !b.Add(NewError(LinBadLabel, Position{}, "a")) {
		t.Fatalf("first diagnostic rejected")
	}
	if b.Add(NewError(LinBadLabel, Position{}, "b")) {
		t.Fatalf("diagnostic accepted past the limit")
	}
	if b.Len() != 1 {
		t.Fatalf("expected 1 diagnostic, got %d", b.Len())
	}
}
