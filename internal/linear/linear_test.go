package linear_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"arm64gen/internal/linear"
)

func sampleFunction() *linear.Function {
	x0 := linear.Phys(linear.TypeVal, 0)
	x1 := linear.Phys(linear.TypeInt, 1)
	spill := linear.Stack(linear.TypeVal, linear.Local(0))
	return &linear.Function{
		Name:          "camlM__f_1",
		NumStackSlots: [2]int{1, 0},
		ContainsCalls: true,
		Body: []linear.Instr{
			{Op: linear.Spill{}, Args: []linear.Reg{x0}, Res: []linear.Reg{spill}},
			{Op: linear.ConstInt{Value: 42}, Res: []linear.Reg{x1}},
			{Op: linear.CallImm{Symbol: "camlM__g_2"}, Live: []linear.Reg{spill}, Dbg: linear.DebugInfo{File: "m.ml", Line: 3, CharStart: 2, CharEnd: 9}},
			{Op: linear.CondBranch{Test: linear.Test{Kind: linear.TestIntImm, Cmp: linear.Signed(linear.CondLt), Imm: 0}, Target: 7}, Args: []linear.Reg{x1}},
			{Op: linear.Reload{}, Args: []linear.Reg{spill}, Res: []linear.Reg{x0}},
			{Op: linear.Return{}, Args: []linear.Reg{x0}},
			{Op: linear.LabelDef{ID: 7}},
			{Op: linear.Switch{Targets: []linear.Label{7}}, Args: []linear.Reg{x1}},
			{Op: linear.End{}},
		},
	}
}

func sampleUnit() *linear.Unit {
	return &linear.Unit{
		Name: "camlM",
		Items: []linear.UnitItem{
			{Data: []linear.DataItem{
				{Kind: linear.DataGlobalSymbol, Symbol: "camlM"},
				{Kind: linear.DataDefineSymbol, Symbol: "camlM"},
				{Kind: linear.DataInt, Int: 1},
				{Kind: linear.DataDefineLabel, Label: 12},
			}},
			{Func: sampleFunction()},
		},
	}
}

func TestValidateAcceptsWellFormedUnit(t *testing.T) {
	if err := linear.Validate(sampleUnit()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateReportsEveryViolation(t *testing.T) {
	fn := &linear.Function{
		Name: "bad",
		Body: []linear.Instr{
			{Op: linear.LabelDef{ID: 3}},
			{Op: linear.LabelDef{ID: 3}},
			{Op: linear.Branch{Target: 9}},
			{Op: linear.Switch{}, Args: []linear.Reg{{Typ: linear.TypeInt}}},
			{Op: linear.StackOffset{Bytes: 8}},
		},
	}
	err := linear.ValidateFunction(fn)
	if err == nil {
		t.Fatalf("expected validation errors")
	}
	msg := err.Error()
	for _, want := range []string{
		"body does not end with end",
		"argument 0 has no location",
		"label L3 already defined",
		"undefined label L9",
		"switch with no targets",
		"not 16-byte aligned",
	} {
		if !strings.Contains(msg, want) {
			t.Fatalf("missing %q in:\n%s", want, msg)
		}
	}

	byCheck := make(map[linear.Check]int)
	for _, v := range linear.Violations(err) {
		if v.Func != "bad" {
			t.Fatalf("violation without function name: %+v", v)
		}
		byCheck[v.Check]++
	}
	want := map[linear.Check]int{
		linear.CheckTerminated: 1,
		linear.CheckOperands:   1,
		linear.CheckLabels:     2,
		linear.CheckShapes:     2,
	}
	for c, n := range want {
		if byCheck[c] != n {
			t.Fatalf("%s: %d violations, want %d (all: %v)", c, byCheck[c], n, byCheck)
		}
	}
}

func TestValidateRejectsDerivedRootsAndUnknownConditions(t *testing.T) {
	addr := linear.Phys(linear.TypeAddr, 3)
	x0 := linear.Phys(linear.TypeInt, 0)
	fn := &linear.Function{
		Name: "f",
		Body: []linear.Instr{
			{Op: linear.CallImm{Symbol: "g"}, Live: []linear.Reg{linear.Phys(linear.TypeVal, 1), addr}},
			{Op: linear.IntOp{Op: linear.IntComp, Cmp: linear.Comparison{Cond: 99}}, Args: []linear.Reg{x0, x0}, Res: []linear.Reg{x0}},
			{Op: linear.LabelDef{ID: 1}},
			{Op: linear.CondBranch{Test: linear.Test{Kind: linear.TestFloat, Cmp: linear.Comparison{Cond: 42}}, Target: 1}, Args: []linear.Reg{x0, x0}},
			{Op: linear.CondBranch{Test: linear.Test{Kind: linear.TestOdd}, Target: 1}, Args: []linear.Reg{x0}},
			{Op: linear.End{}},
		},
	}
	vs := linear.Violations(linear.ValidateFunction(fn))
	require.Len(t, vs, 3)
	require.Equal(t, 0, vs[0].Index)
	require.Contains(t, vs[0].Msg, "live register 1 is a derived pointer")
	require.Equal(t, 1, vs[1].Index)
	require.Contains(t, vs[1].Msg, "unknown comparison 99")
	require.Equal(t, 3, vs[2].Index)
	for _, v := range vs {
		require.Equal(t, linear.CheckShapes, v.Check)
	}
}

func TestDumpFunctionUsesRegisterNames(t *testing.T) {
	var buf bytes.Buffer
	names := func(idx int) string { return []string{"x0", "x1"}[idx] }
	if err := linear.DumpFunction(&buf, sampleFunction(), linear.DumpOptions{RegName: names}); err != nil {
		t.Fatalf("dump: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"fn camlM__f_1 slots=1/0 calls",
		"  int[x1] := 42",
		"  call \"camlM__g_2\"",
		"{val[s:local 0]}",
		"if int < 0 int[x1] goto L7",
		"\nL7:\n",
		"switch int[x1] [L7]",
		"  end",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
}

func TestUnitHelpers(t *testing.T) {
	u := sampleUnit()
	require.Len(t, u.Functions(), 1)
	syms := u.DefinedSymbols()
	require.Contains(t, syms, "camlM")
	require.Contains(t, syms, "camlM__f_1")
	require.Equal(t, linear.Label(12), u.MaxLabel())
}

func TestCodecRoundTrip(t *testing.T) {
	u := sampleUnit()
	var buf bytes.Buffer
	require.NoError(t, linear.EncodeUnit(&buf, u))

	got, err := linear.DecodeUnit(&buf)
	require.NoError(t, err)
	require.Equal(t, u.Name, got.Name)
	require.Len(t, got.Items, 2)

	fn := got.Items[1].Func
	require.NotNil(t, fn)
	require.Len(t, fn.Body, len(u.Items[1].Func.Body))
	for i := range fn.Body {
		require.Equal(t, u.Items[1].Func.Body[i].Op, fn.Body[i].Op, "instruction %d", i)
	}
	require.Equal(t, "m.ml", fn.Body[2].Dbg.File)
	require.Equal(t, linear.OnStack(linear.Local(0)), fn.Body[2].Live[0].Loc)
}

func TestDecodeRejectsUnknownOpcode(t *testing.T) {
	u := &linear.Unit{Name: "x", Items: []linear.UnitItem{{Func: &linear.Function{
		Name: "f",
		Body: []linear.Instr{{Op: linear.End{}}},
	}}}}
	var buf bytes.Buffer
	require.NoError(t, linear.EncodeUnit(&buf, u))
	raw := bytes.Replace(buf.Bytes(), []byte("end"), []byte("eNd"), 1)
	_, err := linear.DecodeUnit(bytes.NewReader(raw))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown opcode")
}
