package arm64

import (
	"context"
	"math"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"arm64gen/internal/diag"
	"arm64gen/internal/linear"
)

func xr(i int) linear.Reg { return linear.Phys(linear.TypeInt, i) }
func vr(i int) linear.Reg { return linear.Phys(linear.TypeVal, i) }
func dr(i int) linear.Reg { return linear.Phys(linear.TypeFloat, FloatBase+i) }

func regs(rs ...linear.Reg) []linear.Reg { return rs }

func body(ins ...linear.Instr) []linear.Instr {
	return append(ins, linear.Instr{Op: linear.End{}})
}

func emitFunc(t *testing.T, opts Options, fn *linear.Function) *Result {
	t.Helper()
	u := &linear.Unit{Name: "camlM", Items: []linear.UnitItem{{Func: fn}}}
	res, err := EmitUnit(context.Background(), u, opts)
	require.NoError(t, err)
	return res
}

func emitFuncErr(t *testing.T, opts Options, fn *linear.Function) *InternalError {
	t.Helper()
	u := &linear.Unit{Name: "camlM", Items: []linear.UnitItem{{Func: fn}}}
	_, err := EmitUnit(context.Background(), u, opts)
	require.Error(t, err)
	ie, ok := AsInternal(err)
	require.True(t, ok, "expected an internal error, got %v", err)
	return ie
}

func TestConstIntSkipsZeroChunks(t *testing.T) {
	fn := &linear.Function{Name: "f", Body: body(
		linear.Instr{Op: linear.ConstInt{Value: 0x1_0000_0000_0001}, Res: regs(xr(3))},
		linear.Instr{Op: linear.Return{}},
	)}
	asm := emitFunc(t, DefaultOptions(), fn).Asm
	require.Contains(t, asm, "\tmovz\tx3, #1, lsl #48\n\tmovk\tx3, #1, lsl #0\n\tret\n")
	require.Equal(t, 1, strings.Count(asm, "movz"))
}

func TestConstFloatImmediateAndPool(t *testing.T) {
	third := math.Float64bits(1.0 / 3.0)
	fn := &linear.Function{Name: "f", Body: body(
		linear.Instr{Op: linear.ConstFloat{Bits: math.Float64bits(1.5)}, Res: regs(dr(0))},
		linear.Instr{Op: linear.ConstFloat{Bits: 0}, Res: regs(dr(1))},
		linear.Instr{Op: linear.ConstFloat{Bits: third}, Res: regs(dr(2))},
		linear.Instr{Op: linear.ConstFloat{Bits: third}, Res: regs(dr(3))},
		linear.Instr{Op: linear.Return{}},
	)}
	asm := emitFunc(t, DefaultOptions(), fn).Asm
	require.Contains(t, asm, "\tfmov\td0, #1.5000000\n")
	require.Contains(t, asm, "\tfmov\td1, xzr\n")
	require.Equal(t, 1, strings.Count(asm, ".quad\t0x3fd5555555555555"), "literal pool must not repeat a bit pattern")
	require.Equal(t, 2, strings.Count(asm, "\tadrp\tx16, .L"))
	require.Contains(t, asm, "\tldr\td3, [x16, #:lo12:.L")

	// The pool follows the end of the function.
	require.Less(t, strings.Index(asm, ".size\tf, .-f"), strings.Index(asm, ".quad\t0x3fd5555555555555"))
}

func TestLiteralPoolIntern(t *testing.T) {
	p := newLiteralPool()
	next := linear.Label(10)
	alloc := func() linear.Label { next++; return next }
	a := p.Intern(0x4000, alloc)
	b := p.Intern(0x4001, alloc)
	require.Equal(t, a, p.Intern(0x4000, alloc))
	require.NotEqual(t, a, b)
	require.Equal(t, 2, p.Len())
}

func TestBoundErrorSites(t *testing.T) {
	mk := func() *linear.Function {
		return &linear.Function{Name: "f", Body: body(
			linear.Instr{Op: linear.IntOpImm{Op: linear.IntCheckBound, Imm: 4}, Args: regs(xr(0)), Dbg: linear.DebugInfo{File: "m.ml", Line: 3}},
			linear.Instr{Op: linear.IntOp{Op: linear.IntCheckBound}, Args: regs(xr(0), xr(1)), Dbg: linear.DebugInfo{File: "m.ml", Line: 4}},
			linear.Instr{Op: linear.ShiftCheckBound{Shift: 8}, Args: regs(xr(2), xr(1))},
			linear.Instr{Op: linear.Return{}},
		)}
	}

	fast := emitFunc(t, DefaultOptions(), mk()).Asm
	require.Equal(t, 1, strings.Count(fast, "bl\tcaml_ml_array_bound_error"))
	require.Equal(t, 2, strings.Count(fast, "\tb.ls\t"))
	require.Contains(t, fast, "\tcmp\tx1, x2, lsr #8\n\tb.cs\t")

	opts := DefaultOptions()
	opts.Debug = true
	res := emitFunc(t, opts, mk())
	require.Equal(t, 3, strings.Count(res.Asm, "bl\tcaml_ml_array_bound_error"))
	require.Equal(t, 3, res.Frames)
}

func TestAllocFastPath(t *testing.T) {
	fn := &linear.Function{Name: "f", Fast: true, ContainsCalls: true, Body: body(
		linear.Instr{Op: linear.Alloc{Bytes: 24}, Res: regs(vr(0)), Live: regs(vr(1), xr(2))},
		linear.Instr{Op: linear.Return{}},
	)}
	res := emitFunc(t, DefaultOptions(), fn)
	asm := res.Asm
	require.Contains(t, asm, "\tsub\tx27, x27, #24\n\tcmp\tx27, x28\n\tadd\tx0, x27, #8\n\tb.lo\t.L")
	require.Equal(t, 1, strings.Count(asm, "bl\tcaml_call_gc"))
	require.Equal(t, 1, res.Frames)

	// The trampoline returns to the retry label.
	m := regexp.MustCompile(`(\.L\d+):\n\tsub\tx27, x27, #24\n`).FindStringSubmatch(asm)
	require.NotNil(t, m)
	require.Contains(t, asm, "\tb\t"+m[1]+"\n")
}

func TestAllocRuntimeHelpers(t *testing.T) {
	for _, tt := range []struct {
		bytes int
		want  string
	}{
		{16, "\tbl\tcaml_alloc1\n"},
		{24, "\tbl\tcaml_alloc2\n"},
		{32, "\tbl\tcaml_alloc3\n"},
		{48, "\tmovz\tx15, #48, lsl #0\n\tbl\tcaml_allocN\n"},
	} {
		fn := &linear.Function{Name: "f", ContainsCalls: true, Body: body(
			linear.Instr{Op: linear.Alloc{Bytes: tt.bytes}, Res: regs(vr(0))},
			linear.Instr{Op: linear.Return{}},
		)}
		res := emitFunc(t, DefaultOptions(), fn)
		require.Contains(t, res.Asm, tt.want)
		require.NotContains(t, res.Asm, "caml_call_gc")
		require.Regexp(t, `\.L\d+:\n\tadd\tx0, x27, #8\n`, res.Asm)
		require.Equal(t, 1, res.Frames)
	}
}

func TestFrameDescriptorLiveRoots(t *testing.T) {
	fn := &linear.Function{
		Name:          "f",
		ContainsCalls: true,
		NumStackSlots: [2]int{2, 0},
		Body: body(
			linear.Instr{
				Op:   linear.CallImm{Symbol: "g"},
				Live: regs(vr(0), xr(1), linear.Stack(linear.TypeVal, linear.Local(1)), vr(16), dr(0)),
			},
			linear.Instr{Op: linear.Return{}},
		),
	}
	res := emitFunc(t, DefaultOptions(), fn)
	require.Equal(t, 1, res.Frames)
	asm := res.Asm
	require.Contains(t, asm, "\tbl\tg\n.L")
	require.Contains(t, asm, "camlM__frametable:\n\t.quad\t1\n")
	require.Contains(t, asm, "\t.short\t32\n\t.short\t3\n\t.short\t1\n\t.short\t8\n\t.short\t33\n\t.align\t3\n")
	require.Contains(t, asm, "\tstr\tx30, [sp, #24]\n")
	require.Contains(t, asm, "\tldr\tx30, [sp, #24]\n\tadd\tsp, sp, #32\n")
}

func TestFrameDescriptorDebugInfo(t *testing.T) {
	dbg := linear.DebugInfo{File: "m.ml", Line: 12, CharStart: 3, CharEnd: 9}
	fn := &linear.Function{Name: "f", ContainsCalls: true, Body: body(
		linear.Instr{Op: linear.CallInd{}, Args: regs(xr(5)), Dbg: dbg},
		linear.Instr{Op: linear.Return{}},
	)}
	asm := emitFunc(t, DefaultOptions(), fn).Asm
	info := debugRecord(dbg)
	require.Equal(t, uint64(12)<<44|uint64(3)<<36|uint64(9)<<26, info)
	require.Contains(t, asm, "\tblr\tx5\n")
	require.Contains(t, asm, "\t.short\t17\n\t.short\t0\n")
	require.Contains(t, asm, "\t.asciz\t\"m.ml\"\n")
	require.Equal(t, 1, strings.Count(asm, ".asciz"))

	raise := debugRecord(linear.DebugInfo{Line: 1 << 30, CharStart: -4, CharEnd: 1 << 20, Kind: linear.DebugRaise})
	require.Equal(t, uint64(dbgLineMax)<<44|uint64(dbgCharEndMax)<<26|1, raise)
}

func TestTrapPushPopBalances(t *testing.T) {
	fn := &linear.Function{Name: "f", Body: body(
		linear.Instr{Op: linear.SetupTrap{Handler: 1}},
		linear.Instr{Op: linear.Branch{Target: 2}},
		linear.Instr{Op: linear.LabelDef{ID: 1}},
		linear.Instr{Op: linear.PushTrap{}},
		linear.Instr{Op: linear.PopTrap{}},
		linear.Instr{Op: linear.LabelDef{ID: 2}},
		linear.Instr{Op: linear.Return{}},
	)}
	e := NewEmitter("camlM", DefaultOptions(), 3)
	fe := newFuncEmitter(e, fn)
	require.NoError(t, fe.emit())
	require.Zero(t, fe.frame.stackOffset)
	require.Zero(t, fe.trapDepth)

	asm := e.String()
	require.Contains(t, asm, "\tadr\tx16, .L")
	require.Contains(t, asm, "\tb\t.L1\n")
	require.Contains(t, asm, "\tstr\tx26, [sp, -16]!\n")
	require.Contains(t, asm, "\tstr\tx16, [sp, #8]\n\tmov\tx26, sp\n")
	require.Contains(t, asm, "\tldr\tx26, [sp], 16\n")
	require.NotContains(t, asm, "add\tsp, sp", "return must see an empty frame")
}

func TestTrapAdjustAcrossPaths(t *testing.T) {
	fn := &linear.Function{Name: "f", Body: body(
		linear.Instr{Op: linear.PushTrap{}},
		linear.Instr{Op: linear.CondBranch{Test: linear.Test{Kind: linear.TestTrue}, Target: 2}, Args: regs(xr(0))},
		linear.Instr{Op: linear.PopTrap{}},
		linear.Instr{Op: linear.Return{}},
		linear.Instr{Op: linear.AdjustTrap{Delta: 1}},
		linear.Instr{Op: linear.LabelDef{ID: 2}},
		linear.Instr{Op: linear.PopTrap{}},
		linear.Instr{Op: linear.Return{}},
	)}
	e := NewEmitter("camlM", DefaultOptions(), 3)
	fe := newFuncEmitter(e, fn)
	require.NoError(t, fe.emit())
	require.Zero(t, fe.trapDepth)
	require.Equal(t, 2, strings.Count(e.String(), "ldr\tx26, [sp], 16"))
}

func TestPopTrapUnderflow(t *testing.T) {
	fn := &linear.Function{Name: "f", Body: body(
		linear.Instr{Op: linear.PopTrap{}, Dbg: linear.DebugInfo{File: "m.ml", Line: 7, CharStart: 1}},
	)}
	ie := emitFuncErr(t, DefaultOptions(), fn)
	require.Equal(t, diag.EmitTrapUnderflow, ie.Code)
	require.Equal(t, "f", ie.Func)
	require.Equal(t, 0, ie.Index)
	require.Equal(t, "pop trap", ie.Instr)
	require.Equal(t, diag.Position{File: "m.ml", Line: 7, Col: 2}, ie.Pos)
}

func TestRaise(t *testing.T) {
	mk := func(kind linear.RaiseKind) *linear.Function {
		return &linear.Function{Name: "f", ContainsCalls: true, Body: body(
			linear.Instr{Op: linear.Raise{Kind: kind}, Args: regs(vr(0))},
		)}
	}
	inline := "\tmov\tsp, x26\n\tldr\tx16, [sp, #8]\n\tldr\tx26, [sp], 16\n\tbr\tx16\n"

	res := emitFunc(t, DefaultOptions(), mk(linear.RaiseRegular))
	require.Contains(t, res.Asm, inline)
	require.Zero(t, res.Frames)

	opts := DefaultOptions()
	opts.Debug = true
	res = emitFunc(t, opts, mk(linear.RaiseRegular))
	require.Contains(t, res.Asm, "\tbl\tcaml_raise_exn\n.L")
	require.Equal(t, 1, res.Frames)

	res = emitFunc(t, opts, mk(linear.RaiseReraise))
	require.Contains(t, res.Asm, "\tbl\tcaml_reraise_exn\n")

	res = emitFunc(t, opts, mk(linear.RaiseNoTrace))
	require.Contains(t, res.Asm, inline)
	require.Zero(t, res.Frames)
}

func TestTailCalls(t *testing.T) {
	fn := &linear.Function{Name: "f", ContainsCalls: true, NumStackSlots: [2]int{1, 0}, Body: body(
		linear.Instr{Op: linear.CondBranch{Test: linear.Test{Kind: linear.TestFalse}, Target: 1}, Args: regs(xr(0))},
		linear.Instr{Op: linear.TailCallImm{Symbol: "f"}},
		linear.Instr{Op: linear.LabelDef{ID: 1}},
		linear.Instr{Op: linear.TailCallImm{Symbol: "g"}},
		linear.Instr{Op: linear.TailCallInd{}, Args: regs(xr(4))},
	)}
	asm := emitFunc(t, DefaultOptions(), fn).Asm
	require.Contains(t, asm, "\tstr\tx30, [sp, #8]\n.L2:\n")
	require.Contains(t, asm, "\tcbz\tx0, .L1\n\tb\t.L2\n")
	require.Contains(t, asm, "\tldr\tx30, [sp, #8]\n\tadd\tsp, sp, #16\n\t.cfi_adjust_cfa_offset\t-16\n\tb\tg\n\t.cfi_adjust_cfa_offset\t16\n")
	require.Contains(t, asm, "\tbr\tx4\n")
}

func TestExtCall(t *testing.T) {
	fn := &linear.Function{Name: "f", ContainsCalls: true, Body: body(
		linear.Instr{Op: linear.ExtCall{Symbol: "caml_alloc_string", Alloc: true}, Live: regs(vr(19))},
		linear.Instr{Op: linear.ExtCall{Symbol: "sin"}},
		linear.Instr{Op: linear.Return{}},
	)}
	res := emitFunc(t, DefaultOptions(), fn)
	require.Contains(t, res.Asm, "\tadrp\tx15, caml_alloc_string\n\tadd\tx15, x15, #:lo12:caml_alloc_string\n\tbl\tcaml_c_call\n.L")
	require.Contains(t, res.Asm, "\tbl\tsin\n")
	require.Equal(t, 1, res.Frames)
}

func TestDLCodeUsesGOT(t *testing.T) {
	opts := DefaultOptions()
	opts.DLCode = true
	fn := &linear.Function{Name: "f", Body: body(
		linear.Instr{Op: linear.ConstSymbol{Symbol: "camlOther"}, Res: regs(xr(0))},
		linear.Instr{Op: linear.ConstSymbol{Symbol: "f"}, Res: regs(xr(1))},
		linear.Instr{Op: linear.Return{}},
	)}
	asm := emitFunc(t, opts, fn).Asm
	require.Contains(t, asm, "\tadrp\tx0, :got:camlOther\n\tldr\tx0, [x0, #:got_lo12:camlOther]\n")
	require.Contains(t, asm, "\tadrp\tx1, f\n\tadd\tx1, x1, #:lo12:f\n")

	fn = &linear.Function{Name: "f", Body: body(
		linear.Instr{Op: linear.Load{Chunk: linear.Word, Addr: linear.Based("camlOther", 8)}, Res: regs(xr(0))},
	)}
	ie := emitFuncErr(t, opts, fn)
	require.Equal(t, diag.EmitBadAddressing, ie.Code)
}

func TestLoadsAndStores(t *testing.T) {
	fn := &linear.Function{Name: "f", Body: body(
		linear.Instr{Op: linear.Load{Chunk: linear.ByteUnsigned, Addr: linear.Indexed(3)}, Args: regs(xr(1)), Res: regs(xr(0))},
		linear.Instr{Op: linear.Load{Chunk: linear.SixteenSigned, Addr: linear.Indexed(0)}, Args: regs(xr(1)), Res: regs(xr(0))},
		linear.Instr{Op: linear.Load{Chunk: linear.Single, Addr: linear.Indexed(8)}, Args: regs(xr(1)), Res: regs(dr(2))},
		linear.Instr{Op: linear.Load{Chunk: linear.Word, Addr: linear.Based("camlM", -8)}, Res: regs(xr(2))},
		linear.Instr{Op: linear.Store{Chunk: linear.ThirtytwoUnsigned, Addr: linear.Indexed(4)}, Args: regs(xr(0), xr(1))},
		linear.Instr{Op: linear.Store{Chunk: linear.Single, Addr: linear.Indexed(0)}, Args: regs(dr(2), xr(1))},
		linear.Instr{Op: linear.Store{Chunk: linear.Double, Addr: linear.Indexed(16)}, Args: regs(dr(2), xr(1))},
		linear.Instr{Op: linear.Return{}},
	)}
	asm := emitFunc(t, DefaultOptions(), fn).Asm
	for _, want := range []string{
		"\tldrb\tw0, [x1, #3]\n",
		"\tldrsh\tx0, [x1, #0]\n",
		"\tldr\ts7, [x1, #8]\n\tfcvt\td2, s7\n",
		"\tadrp\tx16, camlM-8\n\tldr\tx2, [x16, #:lo12:camlM-8]\n",
		"\tstr\tw0, [x1, #4]\n",
		"\tfcvt\ts7, d2\n\tstr\ts7, [x1, #0]\n",
		"\tstr\td2, [x1, #16]\n",
	} {
		require.Contains(t, asm, want)
	}
}

func TestMovesAndSpills(t *testing.T) {
	fn := &linear.Function{Name: "f", NumStackSlots: [2]int{1, 1}, Body: body(
		linear.Instr{Op: linear.Move{}, Args: regs(xr(1)), Res: regs(xr(1))},
		linear.Instr{Op: linear.Move{}, Args: regs(xr(1)), Res: regs(xr(2))},
		linear.Instr{Op: linear.Move{}, Args: regs(dr(1)), Res: regs(dr(2))},
		linear.Instr{Op: linear.Spill{}, Args: regs(dr(1)), Res: regs(linear.Stack(linear.TypeFloat, linear.Local(0)))},
		linear.Instr{Op: linear.Reload{}, Args: regs(linear.Stack(linear.TypeInt, linear.Local(0))), Res: regs(xr(3))},
		linear.Instr{Op: linear.Return{}},
	)}
	asm := emitFunc(t, DefaultOptions(), fn).Asm
	require.NotContains(t, asm, "mov\tx1, x1")
	require.Contains(t, asm, "\tmov\tx2, x1\n")
	require.Contains(t, asm, "\tfmov\td2, d1\n")
	require.Contains(t, asm, "\tstr\td1, [sp, #8]\n")
	require.Contains(t, asm, "\tldr\tx3, [sp, #0]\n")

	bad := &linear.Function{Name: "f", Body: body(
		linear.Instr{Op: linear.ConstInt{Value: 1}, Res: regs(linear.Stack(linear.TypeInt, linear.Local(0)))},
	)}
	ie := emitFuncErr(t, DefaultOptions(), bad)
	require.Equal(t, diag.EmitBadOperand, ie.Code)
}

func TestArithmetic(t *testing.T) {
	fn := &linear.Function{Name: "f", Body: body(
		linear.Instr{Op: linear.IntOp{Op: linear.IntComp, Cmp: linear.Unsigned(linear.CondLt)}, Args: regs(xr(0), xr(1)), Res: regs(xr(2))},
		linear.Instr{Op: linear.IntOp{Op: linear.IntMod}, Args: regs(xr(0), xr(1)), Res: regs(xr(2))},
		linear.Instr{Op: linear.IntOpImm{Op: linear.IntAdd, Imm: 0x123456}, Args: regs(xr(0)), Res: regs(xr(2))},
		linear.Instr{Op: linear.IntOpImm{Op: linear.IntComp, Cmp: linear.Signed(linear.CondGe), Imm: -3}, Args: regs(xr(0)), Res: regs(xr(2))},
		linear.Instr{Op: linear.FloatOp{Op: linear.FloatOfInt}, Args: regs(xr(0)), Res: regs(dr(0))},
		linear.Instr{Op: linear.FusedFloat{Kind: linear.FusedMulSub}, Args: regs(dr(0), dr(1), dr(2)), Res: regs(dr(3))},
		linear.Instr{Op: linear.ShiftArith{Arith: linear.ArithSub, Kind: linear.ShiftAsr, Shift: 2}, Args: regs(xr(0), xr(1)), Res: regs(xr(2))},
		linear.Instr{Op: linear.Bswap{Bits: 16}, Args: regs(xr(0)), Res: regs(xr(1))},
		linear.Instr{Op: linear.Return{}},
	)}
	asm := emitFunc(t, DefaultOptions(), fn).Asm
	for _, want := range []string{
		"\tcmp\tx0, x1\n\tcset\tx2, cc\n",
		"\tsdiv\tx16, x0, x1\n\tmsub\tx2, x16, x1, x0\n",
		"\tadd\tx2, x0, #1191936\n\tadd\tx2, x2, #1110\n",
		"\tcmn\tx0, #3\n\tcset\tx2, ge\n",
		"\tscvtf\td0, x0\n",
		"\tfmsub\td3, d1, d2, d0\n",
		"\tsub\tx2, x0, x1, asr #2\n",
		"\trev16\tw1, w0\n\tubfm\tx1, x1, #0, #15\n",
	} {
		require.Contains(t, asm, want)
	}

	over := &linear.Function{Name: "f", Body: body(
		linear.Instr{Op: linear.IntOpImm{Op: linear.IntAdd, Imm: 1 << 24}, Args: regs(xr(0)), Res: regs(xr(1))},
	)}
	require.Equal(t, diag.EmitRangeOverflow, emitFuncErr(t, DefaultOptions(), over).Code)
}

func TestBranches(t *testing.T) {
	fn := &linear.Function{Name: "f", Body: body(
		linear.Instr{Op: linear.LabelDef{ID: 1}},
		linear.Instr{Op: linear.CondBranch{Test: linear.Test{Kind: linear.TestFloat, Cmp: linear.Signed(linear.CondLt), Negated: true}, Target: 1}, Args: regs(dr(0), dr(1))},
		linear.Instr{Op: linear.CondBranch{Test: linear.Test{Kind: linear.TestOdd}, Target: 1}, Args: regs(xr(0))},
		linear.Instr{Op: linear.CondBranch{Test: linear.Test{Kind: linear.TestInt, Cmp: linear.Unsigned(linear.CondGt)}, Target: 1}, Args: regs(xr(0), xr(1))},
		linear.Instr{Op: linear.CondBranch3{Lt: 1, Gt: 1}, Args: regs(xr(0))},
		linear.Instr{Op: linear.Switch{Targets: []linear.Label{1, 1}}, Args: regs(xr(3))},
	)}
	asm := emitFunc(t, DefaultOptions(), fn).Asm
	for _, want := range []string{
		"\tfcmp\td0, d1\n\tb.cs\t.L1\n",
		"\ttbnz\tx0, #0, .L1\n",
		"\tcmp\tx0, x1\n\tb.hi\t.L1\n",
		"\tcmp\tx0, #1\n\tb.lt\t.L1\n\tb.gt\t.L1\n",
		"\tadd\tx16, x16, x3, lsl #2\n\tbr\tx16\n",
	} {
		require.Contains(t, asm, want)
	}
	require.NotContains(t, asm, "b.eq")
	require.Regexp(t, `\tadr\tx16, (\.L\d+)\n\tadd\tx16, x16, x3, lsl #2\n\tbr\tx16\n\.L\d+:\n\tb\t\.L1\n\tb\t\.L1\n`, asm)
}

func TestStackOffset(t *testing.T) {
	fn := &linear.Function{Name: "f", ContainsCalls: true, Body: body(
		linear.Instr{Op: linear.StackOffset{Bytes: 16}},
		linear.Instr{Op: linear.CallImm{Symbol: "g"}, Live: regs(linear.Stack(linear.TypeVal, linear.Outgoing(8)))},
		linear.Instr{Op: linear.StackOffset{Bytes: -16}},
		linear.Instr{Op: linear.Return{}},
	)}
	asm := emitFunc(t, DefaultOptions(), fn).Asm
	require.Contains(t, asm, "\tsub\tsp, sp, #16\n\t.cfi_adjust_cfa_offset\t16\n\tbl\tg\n")
	// Frame grew to 32 while the outgoing area was pushed.
	require.Contains(t, asm, "\t.short\t32\n\t.short\t1\n\t.short\t8\n")

	bad := &linear.Function{Name: "f", Body: body(linear.Instr{Op: linear.StackOffset{Bytes: 8}})}
	require.Equal(t, diag.EmitBadFrame, emitFuncErr(t, DefaultOptions(), bad).Code)
}

func TestUnitFraming(t *testing.T) {
	u := &linear.Unit{Name: "camlM", Items: []linear.UnitItem{
		{Data: []linear.DataItem{
			{Kind: linear.DataGlobalSymbol, Symbol: "camlM"},
			{Kind: linear.DataDefineSymbol, Symbol: "camlM"},
			{Kind: linear.DataInt8, Int: -1},
			{Kind: linear.DataDouble, Float: 1.0},
			{Kind: linear.DataSingle, Float: 1.0},
			{Kind: linear.DataString, Str: "a\"b\n"},
			{Kind: linear.DataSkip, Int: 0},
			{Kind: linear.DataAlign, Int: 8},
			{Kind: linear.DataSymbolAddress, Symbol: "caml$op"},
		}},
		{Func: &linear.Function{Name: "camlM__f_1", Body: body(linear.Instr{Op: linear.Return{}})}},
	}}
	res, err := EmitUnit(context.Background(), u, DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, 1, res.Functions)
	asm := res.Asm
	order := []string{
		"\t.file\t\"\"\n",
		"\t.globl\tcamlM__data_begin\ncamlM__data_begin:\n",
		"\t.globl\tcamlM__code_begin\ncamlM__code_begin:\n",
		"\t.data\n\t.globl\tcamlM\ncamlM:\n\t.byte\t-1\n\t.quad\t0x3ff0000000000000\n\t.long\t0x3f800000\n\t.ascii\t\"a\\\"b\\012\"\n\t.align\t3\n\t.quad\tcaml$24op\n",
		"\t.globl\tcamlM__f_1\ncamlM__f_1:\n\t.cfi_startproc\n",
		"\t.cfi_endproc\n\t.type\tcamlM__f_1, %function\n\t.size\tcamlM__f_1, .-camlM__f_1\n",
		"camlM__code_end:\n",
		"camlM__data_end:\n\t.long\t0\n",
		"camlM__frametable:\n\t.quad\t0\n",
		"\t.type\tcamlM__frametable, %object\n",
		"\t.section\t.note.GNU-stack,\"\",%progbits\n",
	}
	pos := 0
	for _, want := range order {
		i := strings.Index(asm[pos:], want)
		require.GreaterOrEqual(t, i, 0, "missing or out of order: %q", want)
		pos += i + len(want)
	}
	require.NotContains(t, asm, ".space")
}

func TestDarwinSyntax(t *testing.T) {
	opts := DefaultOptions()
	opts.System = SystemDarwin
	fn := &linear.Function{Name: "f", Body: body(
		linear.Instr{Op: linear.ConstFloat{Bits: math.Float64bits(0.1)}, Res: regs(dr(0))},
		linear.Instr{Op: linear.Return{}},
	)}
	asm := emitFunc(t, opts, fn).Asm
	require.Contains(t, asm, "_f:\n")
	require.Contains(t, asm, "@PAGEOFF]")
	require.NotContains(t, asm, ".type")
	require.NotContains(t, asm, ".note.GNU-stack")
}

func TestDebugLocations(t *testing.T) {
	opts := DefaultOptions()
	opts.Debug = true
	fn := &linear.Function{Name: "f", Body: body(
		linear.Instr{Op: linear.ConstInt{Value: 1}, Res: regs(xr(0)), Dbg: linear.DebugInfo{File: "m.ml", Line: 2}},
		linear.Instr{Op: linear.ConstInt{Value: 2}, Res: regs(xr(0)), Dbg: linear.DebugInfo{File: "m.ml", Line: 3}},
		linear.Instr{Op: linear.Return{}},
	)}
	asm := emitFunc(t, opts, fn).Asm
	require.Equal(t, 1, strings.Count(asm, "\t.file\t1\t\"m.ml\"\n"))
	require.Contains(t, asm, "\t.loc\t1\t2\n\tmovz\tx0, #1, lsl #0\n")
	require.Contains(t, asm, "\t.loc\t1\t3\n")
}

func TestEmitterResetsStatePerFunction(t *testing.T) {
	third := math.Float64bits(1.0 / 3.0)
	mk := func(name string) *linear.Function {
		return &linear.Function{Name: name, Body: body(
			linear.Instr{Op: linear.ConstFloat{Bits: third}, Res: regs(dr(0))},
			linear.Instr{Op: linear.IntOpImm{Op: linear.IntCheckBound, Imm: 1}, Args: regs(xr(0))},
			linear.Instr{Op: linear.Return{}},
		)}
	}
	u := &linear.Unit{Name: "camlM", Items: []linear.UnitItem{{Func: mk("f")}, {Func: mk("g")}}}
	res, err := EmitUnit(context.Background(), u, DefaultOptions())
	require.NoError(t, err)
	require.Equal(t, 2, res.Functions)
	require.Equal(t, 2, strings.Count(res.Asm, ".quad\t0x3fd5555555555555"))
	require.Equal(t, 2, strings.Count(res.Asm, "bl\tcaml_ml_array_bound_error"))
}

func TestDerivedPointerLiveAcrossCall(t *testing.T) {
	fn := &linear.Function{Name: "f", ContainsCalls: true, Body: body(
		linear.Instr{Op: linear.CallImm{Symbol: "g"}, Live: regs(linear.Phys(linear.TypeAddr, 3), vr(1))},
		linear.Instr{Op: linear.Return{}},
	)}
	ie := emitFuncErr(t, DefaultOptions(), fn)
	require.Equal(t, diag.EmitBadOperand, ie.Code)
	require.Equal(t, 0, ie.Index)
	require.Contains(t, ie.Msg, "bad GC root")

	alloc := &linear.Function{Name: "f", Body: body(
		linear.Instr{Op: linear.Alloc{Bytes: 16}, Res: regs(vr(0)), Live: regs(linear.Phys(linear.TypeAddr, 2))},
		linear.Instr{Op: linear.Return{}},
	)}
	require.Equal(t, diag.EmitBadOperand, emitFuncErr(t, DefaultOptions(), alloc).Code)
}

func TestUnknownConditionFails(t *testing.T) {
	bad := linear.Comparison{Cond: 99}
	cases := map[string]linear.Instr{
		"int":      {Op: linear.IntOp{Op: linear.IntComp, Cmp: bad}, Args: regs(xr(0), xr(1)), Res: regs(xr(2))},
		"imm":      {Op: linear.IntOpImm{Op: linear.IntComp, Cmp: bad, Imm: 1}, Args: regs(xr(0)), Res: regs(xr(2))},
		"branch":   {Op: linear.CondBranch{Test: linear.Test{Kind: linear.TestInt, Cmp: bad}, Target: 1}, Args: regs(xr(0), xr(1))},
		"float":    {Op: linear.CondBranch{Test: linear.Test{Kind: linear.TestFloat, Cmp: bad}, Target: 1}, Args: regs(dr(0), dr(1))},
		"unsigned": {Op: linear.IntOp{Op: linear.IntComp, Cmp: linear.Comparison{Unsigned: true, Cond: 7}}, Args: regs(xr(0), xr(1)), Res: regs(xr(2))},
	}
	for name, ins := range cases {
		fn := &linear.Function{Name: "f", Body: body(
			linear.Instr{Op: linear.LabelDef{ID: 1}},
			ins,
			linear.Instr{Op: linear.Return{}},
		)}
		ie := emitFuncErr(t, DefaultOptions(), fn)
		require.Equal(t, diag.EmitUnsupportedOp, ie.Code, name)
		require.Equal(t, 1, ie.Index, name)
	}
}

func TestMissingOpcodeFails(t *testing.T) {
	fn := &linear.Function{Name: "f", Body: body(
		linear.Instr{},
		linear.Instr{Op: linear.Return{}},
	)}
	var ie *InternalError
	require.NotPanics(t, func() { ie = emitFuncErr(t, DefaultOptions(), fn) })
	require.Equal(t, diag.EmitUnsupportedOp, ie.Code)
	require.Equal(t, 0, ie.Index)
	require.Contains(t, ie.Msg, "missing opcode")
}

func TestCompareImmediateRange(t *testing.T) {
	mk := func(imm int64) *linear.Function {
		return &linear.Function{Name: "f", Body: body(
			linear.Instr{Op: linear.IntOpImm{Op: linear.IntComp, Cmp: linear.Signed(linear.CondEq), Imm: imm}, Args: regs(xr(0)), Res: regs(xr(1))},
			linear.Instr{Op: linear.Return{}},
		)}
	}
	for imm, want := range map[int64]string{
		0xFFF:     "	cmp	x0, #4095\n",
		0x7000:    "	cmp	x0, #28672\n",
		-0xFFF:    "	cmn	x0, #4095\n",
		-0xFFF000: "	cmn	x0, #16773120\n",
	} {
		require.Contains(t, emitFunc(t, DefaultOptions(), mk(imm)).Asm, want)
	}
	for _, imm := range []int64{0x1001, -0x1001, 0x1000000, math.MinInt64, math.MaxInt64} {
		require.Equal(t, diag.EmitRangeOverflow, emitFuncErr(t, DefaultOptions(), mk(imm)).Code, "imm %d", imm)
	}
}
