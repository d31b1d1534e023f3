package arm64

import (
	"arm64gen/internal/diag"
	"arm64gen/internal/linear"
)

// emitInstr renders one instruction. Every opcode of linear.Op has a case.
func (fe *funcEmitter) emitInstr(ins *linear.Instr) {
	switch op := ins.Op.(type) {
	case nil:
		fe.fail(diag.EmitUnsupportedOp, "missing opcode")
	case linear.Move, linear.Spill, linear.Reload:
		fe.emitMove(fe.arg(0), fe.res(0))
	case linear.ConstInt:
		fe.emitIntConst(fe.xreg(fe.res(0)), op.Value)
	case linear.ConstFloat:
		fe.emitFloatConst(fe.dreg(fe.res(0)), op.Bits)
	case linear.ConstSymbol:
		fe.loadSymbolAddr(fe.xreg(fe.res(0)), op.Symbol)
	case linear.CallInd:
		fe.ins("blr", "%s", fe.xreg(fe.arg(0)))
		fe.recordFrameLabel(ins.Live, ins.Dbg)
	case linear.CallImm:
		fe.ins("bl", "%s", fe.emitter.symbol(op.Symbol))
		fe.recordFrameLabel(ins.Live, ins.Dbg)
	case linear.TailCallInd:
		target := fe.xreg(fe.arg(0))
		fe.emitEpilogue(func() { fe.ins("br", "%s", target) })
	case linear.TailCallImm:
		fe.emitTailCallImm(op)
	case linear.ExtCall:
		fe.emitExtCall(ins, op)
	case linear.StackOffset:
		fe.emitStackOffset(op.Bytes)
	case linear.Load:
		fe.emitLoad(op)
	case linear.Store:
		fe.emitStore(op)
	case linear.Alloc:
		fe.emitAlloc(ins, op)
	case linear.IntOp:
		fe.emitIntOp(ins, op)
	case linear.IntOpImm:
		fe.emitIntOpImm(ins, op)
	case linear.FloatOp:
		fe.emitFloatOp(op)
	case linear.ShiftArith:
		fe.emitShiftArith(op)
	case linear.ShiftCheckBound:
		fe.ins("cmp", "%s, %s, lsr #%d", fe.xreg(fe.arg(1)), fe.xreg(fe.arg(0)), op.Shift)
		fe.ins("b.cs", "%s", fe.emitter.labelName(fe.boundErrorLabel(ins.Dbg)))
	case linear.MulAdd:
		fe.ins("madd", "%s, %s, %s, %s", fe.xreg(fe.res(0)), fe.xreg(fe.arg(0)), fe.xreg(fe.arg(1)), fe.xreg(fe.arg(2)))
	case linear.MulSub:
		fe.ins("msub", "%s, %s, %s, %s", fe.xreg(fe.res(0)), fe.xreg(fe.arg(0)), fe.xreg(fe.arg(1)), fe.xreg(fe.arg(2)))
	case linear.FusedFloat:
		fe.emitFusedFloat(op)
	case linear.NegMulF:
		fe.ins("fnmul", "%s, %s, %s", fe.dreg(fe.res(0)), fe.dreg(fe.arg(0)), fe.dreg(fe.arg(1)))
	case linear.SqrtF:
		fe.ins("fsqrt", "%s, %s", fe.dreg(fe.res(0)), fe.dreg(fe.arg(0)))
	case linear.Bswap:
		fe.emitBswap(op)
	case linear.ReloadRetAddr:
		// The link register is saved in the frame and reloaded by the epilogue.
	case linear.Return:
		fe.emitEpilogue(func() { fe.ins("ret", "") })
	case linear.LabelDef:
		fe.label(op.ID)
	case linear.Branch:
		fe.ins("b", "%s", fe.emitter.labelName(op.Target))
	case linear.CondBranch:
		fe.emitCondBranch(op)
	case linear.CondBranch3:
		fe.emitCondBranch3(op)
	case linear.Switch:
		fe.emitSwitch(op)
	case linear.SetupTrap:
		fe.emitSetupTrap(op)
	case linear.PushTrap:
		fe.emitPushTrap()
	case linear.PopTrap:
		fe.emitPopTrap()
	case linear.AdjustTrap:
		fe.emitAdjustTrap(op.Delta)
	case linear.Raise:
		fe.emitRaise(ins, op)
	case linear.End:
	default:
		fe.fail(diag.EmitUnsupportedOp, "unsupported instruction %s", ins.Op.Name())
	}
}

func (fe *funcEmitter) emitTailCallImm(op linear.TailCallImm) {
	e := fe.emitter
	if op.Symbol == fe.fn.Name {
		fe.ins("b", "%s", e.labelName(fe.tailrec))
		return
	}
	sym := e.symbol(op.Symbol)
	fe.emitEpilogue(func() { fe.ins("b", "%s", sym) })
}

func (fe *funcEmitter) emitExtCall(ins *linear.Instr, op linear.ExtCall) {
	e := fe.emitter
	if !op.Alloc {
		fe.ins("bl", "%s", e.symbol(op.Symbol))
		return
	}
	fe.loadSymbolAddr(regExtraArg, op.Symbol)
	fe.ins("bl", "%s", e.symbol(symCCall))
	fe.recordFrameLabel(ins.Live, ins.Dbg)
}

func (fe *funcEmitter) emitStackOffset(n int) {
	if n%16 != 0 {
		fe.fail(diag.EmitBadFrame, "stack offset %d is not a multiple of 16", n)
		return
	}
	if n == 0 {
		return
	}
	fe.emitStackAdjustment(-n)
	fe.frame.stackOffset += n
	if fe.frame.stackOffset < 0 {
		fe.fail(diag.EmitBadFrame, "stack offset became negative (%d)", fe.frame.stackOffset)
	}
}
