package arm64

import (
	"arm64gen/internal/diag"
	"arm64gen/internal/linear"
)

func intOpName(op linear.IntOperation) (string, bool) {
	switch op {
	case linear.IntAdd:
		return "add", true
	case linear.IntSub:
		return "sub", true
	case linear.IntMul:
		return "mul", true
	case linear.IntDiv:
		return "sdiv", true
	case linear.IntAnd:
		return "and", true
	case linear.IntOr:
		return "orr", true
	case linear.IntXor:
		return "eor", true
	case linear.IntLsl:
		return "lsl", true
	case linear.IntLsr:
		return "lsr", true
	case linear.IntAsr:
		return "asr", true
	default:
		return "", false
	}
}

// condName returns the condition code suffix of an integer comparison.
func condName(c linear.Comparison) (string, bool) {
	if c.Unsigned {
		switch c.Cond {
		case linear.CondEq:
			return "eq", true
		case linear.CondNe:
			return "ne", true
		case linear.CondLe:
			return "ls", true
		case linear.CondGe:
			return "cs", true
		case linear.CondLt:
			return "cc", true
		case linear.CondGt:
			return "hi", true
		}
		return "", false
	}
	switch c.Cond {
	case linear.CondEq:
		return "eq", true
	case linear.CondNe:
		return "ne", true
	case linear.CondLe:
		return "le", true
	case linear.CondGe:
		return "ge", true
	case linear.CondLt:
		return "lt", true
	case linear.CondGt:
		return "gt", true
	}
	return "", false
}

// floatCondName returns the condition code for a float comparison,
// negated when asked. Unordered operands make lt/le false and their
// negations true.
func floatCondName(c linear.Cond, negated bool) (string, bool) {
	var pos, neg string
	switch c {
	case linear.CondEq:
		pos, neg = "eq", "ne"
	case linear.CondNe:
		pos, neg = "ne", "eq"
	case linear.CondLt:
		pos, neg = "cc", "cs"
	case linear.CondLe:
		pos, neg = "ls", "hi"
	case linear.CondGt:
		pos, neg = "gt", "le"
	case linear.CondGe:
		pos, neg = "ge", "lt"
	default:
		return "", false
	}
	if negated {
		return neg, true
	}
	return pos, true
}

// cond is condName with the failure recorded on the function.
func (fe *funcEmitter) cond(c linear.Comparison) string {
	name, ok := condName(c)
	if !ok {
		fe.fail(diag.EmitUnsupportedOp, "comparison %d", c.Cond)
	}
	return name
}

func (fe *funcEmitter) floatCond(c linear.Cond, negated bool) string {
	name, ok := floatCondName(c, negated)
	if !ok {
		fe.fail(diag.EmitUnsupportedOp, "float comparison %d", c)
	}
	return name
}

// isCmpImmediate reports whether n is a 12-bit compare immediate, optionally
// shifted left by 12.
func isCmpImmediate(n uint64) bool {
	return n <= 0xFFF || (n&0xFFF == 0 && n>>12 <= 0xFFF)
}

// emitCmpImm compares r with n, using cmn for negative immediates.
func (fe *funcEmitter) emitCmpImm(r string, n int64) {
	if n < 0 {
		m := -uint64(n)
		if !isCmpImmediate(m) {
			fe.fail(diag.EmitRangeOverflow, "compare immediate %d out of range", n)
			return
		}
		fe.ins("cmn", "%s, #%d", r, m)
		return
	}
	if !isCmpImmediate(uint64(n)) {
		fe.fail(diag.EmitRangeOverflow, "compare immediate %d out of range", n)
		return
	}
	fe.ins("cmp", "%s, #%d", r, n)
}

// boundErrorLabel returns the trampoline label a failed bounds check jumps to.
func (fe *funcEmitter) boundErrorLabel(dbg linear.DebugInfo) linear.Label {
	e := fe.emitter
	return fe.slow.BoundSite(e.opts.Debug, func() boundErrorCall {
		lbl := e.newLabel()
		return boundErrorCall{lbl: lbl, frameLbl: fe.recordFrame(nil, dbg)}
	})
}

func (fe *funcEmitter) emitIntOp(ins *linear.Instr, op linear.IntOp) {
	a0, a1 := fe.xreg(fe.arg(0)), fe.xreg(fe.arg(1))
	switch op.Op {
	case linear.IntComp:
		fe.ins("cmp", "%s, %s", a0, a1)
		fe.ins("cset", "%s, %s", fe.xreg(fe.res(0)), fe.cond(op.Cmp))
	case linear.IntCheckBound:
		fe.ins("cmp", "%s, %s", a0, a1)
		fe.ins("b.ls", "%s", fe.emitter.labelName(fe.boundErrorLabel(ins.Dbg)))
	case linear.IntMod:
		fe.ins("sdiv", "%s, %s, %s", regTmp1, a0, a1)
		fe.ins("msub", "%s, %s, %s, %s", fe.xreg(fe.res(0)), regTmp1, a1, a0)
	case linear.IntMulh:
		fe.ins("smulh", "%s, %s, %s", fe.xreg(fe.res(0)), a0, a1)
	default:
		name, ok := intOpName(op.Op)
		if !ok {
			fe.fail(diag.EmitUnsupportedOp, "integer operation %s", op.Op)
			return
		}
		fe.ins(name, "%s, %s, %s", fe.xreg(fe.res(0)), a0, a1)
	}
}

func (fe *funcEmitter) emitIntOpImm(ins *linear.Instr, op linear.IntOpImm) {
	a0 := fe.xreg(fe.arg(0))
	switch op.Op {
	case linear.IntAdd:
		fe.emitAddImm(fe.xreg(fe.res(0)), a0, op.Imm)
	case linear.IntSub:
		fe.emitSubImm(fe.xreg(fe.res(0)), a0, op.Imm)
	case linear.IntComp:
		fe.emitCmpImm(a0, op.Imm)
		fe.ins("cset", "%s, %s", fe.xreg(fe.res(0)), fe.cond(op.Cmp))
	case linear.IntCheckBound:
		fe.emitCmpImm(a0, op.Imm)
		fe.ins("b.ls", "%s", fe.emitter.labelName(fe.boundErrorLabel(ins.Dbg)))
	case linear.IntAnd, linear.IntOr, linear.IntXor, linear.IntLsl, linear.IntLsr, linear.IntAsr:
		name, _ := intOpName(op.Op)
		fe.ins(name, "%s, %s, #%d", fe.xreg(fe.res(0)), a0, op.Imm)
	default:
		fe.fail(diag.EmitUnsupportedOp, "integer operation %s with an immediate", op.Op)
	}
}

func (fe *funcEmitter) emitFloatOp(op linear.FloatOp) {
	switch op.Op {
	case linear.FloatOfInt:
		fe.ins("scvtf", "%s, %s", fe.dreg(fe.res(0)), fe.xreg(fe.arg(0)))
	case linear.IntOfFloat:
		fe.ins("fcvtzs", "%s, %s", fe.xreg(fe.res(0)), fe.dreg(fe.arg(0)))
	case linear.FloatNeg:
		fe.ins("fneg", "%s, %s", fe.dreg(fe.res(0)), fe.dreg(fe.arg(0)))
	case linear.FloatAbs:
		fe.ins("fabs", "%s, %s", fe.dreg(fe.res(0)), fe.dreg(fe.arg(0)))
	case linear.FloatAdd, linear.FloatSub, linear.FloatMul, linear.FloatDiv:
		fe.ins(floatArithName(op.Op), "%s, %s, %s", fe.dreg(fe.res(0)), fe.dreg(fe.arg(0)), fe.dreg(fe.arg(1)))
	default:
		fe.fail(diag.EmitUnsupportedOp, "float operation %s", op.Op)
	}
}

func (fe *funcEmitter) emitShiftArith(op linear.ShiftArith) {
	name := "add"
	if op.Arith == linear.ArithSub {
		name = "sub"
	}
	shift := "lsl"
	if op.Kind == linear.ShiftAsr {
		shift = "asr"
	}
	if op.Shift < 0 || op.Shift > 63 {
		fe.fail(diag.EmitRangeOverflow, "shift amount %d", op.Shift)
		return
	}
	fe.ins(name, "%s, %s, %s, %s #%d", fe.xreg(fe.res(0)), fe.xreg(fe.arg(0)), fe.xreg(fe.arg(1)), shift, op.Shift)
}

func (fe *funcEmitter) emitFusedFloat(op linear.FusedFloat) {
	var name string
	switch op.Kind {
	case linear.FusedMulAdd:
		name = "fmadd"
	case linear.FusedNegMulAdd:
		name = "fnmadd"
	case linear.FusedMulSub:
		name = "fmsub"
	case linear.FusedNegMulSub:
		name = "fnmsub"
	default:
		fe.fail(diag.EmitUnsupportedOp, "fused float kind %d", op.Kind)
		return
	}
	fe.ins(name, "%s, %s, %s, %s", fe.dreg(fe.res(0)), fe.dreg(fe.arg(1)), fe.dreg(fe.arg(2)), fe.dreg(fe.arg(0)))
}

func (fe *funcEmitter) emitBswap(op linear.Bswap) {
	dst, src := fe.res(0), fe.arg(0)
	switch op.Bits {
	case 16:
		fe.ins("rev16", "%s, %s", fe.wreg(dst), fe.wreg(src))
		fe.ins("ubfm", "%s, %s, #0, #15", fe.xreg(dst), fe.xreg(dst))
	case 32:
		fe.ins("rev", "%s, %s", fe.wreg(dst), fe.wreg(src))
	case 64:
		fe.ins("rev", "%s, %s", fe.xreg(dst), fe.xreg(src))
	default:
		fe.fail(diag.EmitUnsupportedOp, "byte swap of %d bits", op.Bits)
	}
}

func floatArithName(op linear.FloatOperation) string {
	switch op {
	case linear.FloatSub:
		return "fsub"
	case linear.FloatMul:
		return "fmul"
	case linear.FloatDiv:
		return "fdiv"
	default:
		return "fadd"
	}
}
