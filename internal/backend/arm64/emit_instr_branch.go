package arm64

import (
	"arm64gen/internal/diag"
	"arm64gen/internal/linear"
)

func (fe *funcEmitter) emitCondBranch(op linear.CondBranch) {
	e := fe.emitter
	lbl := e.labelName(op.Target)
	t := op.Test
	switch t.Kind {
	case linear.TestTrue:
		fe.ins("cbnz", "%s, %s", fe.xreg(fe.arg(0)), lbl)
	case linear.TestFalse:
		fe.ins("cbz", "%s, %s", fe.xreg(fe.arg(0)), lbl)
	case linear.TestInt:
		fe.ins("cmp", "%s, %s", fe.xreg(fe.arg(0)), fe.xreg(fe.arg(1)))
		fe.ins("b."+fe.cond(t.Cmp), "%s", lbl)
	case linear.TestIntImm:
		fe.emitCmpImm(fe.xreg(fe.arg(0)), t.Imm)
		fe.ins("b."+fe.cond(t.Cmp), "%s", lbl)
	case linear.TestFloat:
		fe.ins("fcmp", "%s, %s", fe.dreg(fe.arg(0)), fe.dreg(fe.arg(1)))
		fe.ins("b."+fe.floatCond(t.Cmp.Cond, t.Negated), "%s", lbl)
	case linear.TestOdd:
		fe.ins("tbnz", "%s, #0, %s", fe.xreg(fe.arg(0)), lbl)
	case linear.TestEven:
		fe.ins("tbz", "%s, #0, %s", fe.xreg(fe.arg(0)), lbl)
	default:
		fe.fail(diag.EmitUnsupportedOp, "branch test %d", t.Kind)
	}
}

// emitCondBranch3 compares the argument with 1 and branches three ways.
// Absent targets fall through.
func (fe *funcEmitter) emitCondBranch3(op linear.CondBranch3) {
	e := fe.emitter
	fe.ins("cmp", "%s, #1", fe.xreg(fe.arg(0)))
	if op.Lt != linear.NoLabel {
		fe.ins("b.lt", "%s", e.labelName(op.Lt))
	}
	if op.Eq != linear.NoLabel {
		fe.ins("b.eq", "%s", e.labelName(op.Eq))
	}
	if op.Gt != linear.NoLabel {
		fe.ins("b.gt", "%s", e.labelName(op.Gt))
	}
}

// emitSwitch jumps through a table of branch instructions indexed by the
// argument.
func (fe *funcEmitter) emitSwitch(op linear.Switch) {
	e := fe.emitter
	if len(op.Targets) == 0 {
		fe.fail(diag.EmitUnsupportedOp, "switch without targets")
		return
	}
	idx := fe.xreg(fe.arg(0))
	tbl := e.newLabel()
	fe.ins("adr", "%s, %s", regTmp1, e.labelName(tbl))
	fe.ins("add", "%s, %s, %s, lsl #2", regTmp1, regTmp1, idx)
	fe.ins("br", "%s", regTmp1)
	fe.label(tbl)
	for _, l := range op.Targets {
		fe.ins("b", "%s", e.labelName(l))
	}
}
