package arm64

import (
	"fmt"

	"arm64gen/internal/diag"
	"arm64gen/internal/linear"
)

func (fe *funcEmitter) emitLoad(op linear.Load) {
	dst := fe.res(0)
	var base linear.Reg
	if op.Addr.UsesBaseReg() {
		base = fe.arg(0)
	}
	switch op.Chunk {
	case linear.ByteUnsigned:
		fe.ins("ldrb", "%s, %s", fe.wreg(dst), fe.address(op.Addr, base))
	case linear.ByteSigned:
		fe.ins("ldrsb", "%s, %s", fe.xreg(dst), fe.address(op.Addr, base))
	case linear.SixteenUnsigned:
		fe.ins("ldrh", "%s, %s", fe.wreg(dst), fe.address(op.Addr, base))
	case linear.SixteenSigned:
		fe.ins("ldrsh", "%s, %s", fe.xreg(dst), fe.address(op.Addr, base))
	case linear.ThirtytwoUnsigned:
		fe.ins("ldr", "%s, %s", fe.wreg(dst), fe.address(op.Addr, base))
	case linear.ThirtytwoSigned:
		fe.ins("ldrsw", "%s, %s", fe.xreg(dst), fe.address(op.Addr, base))
	case linear.Single:
		fe.ins("ldr", "s%s, %s", regFloatTmp, fe.address(op.Addr, base))
		fe.ins("fcvt", "%s, s%s", fe.dreg(dst), regFloatTmp)
	case linear.Word, linear.Double, linear.DoubleU:
		fe.ins("ldr", "%s, %s", fe.reg(dst), fe.address(op.Addr, base))
	default:
		fe.fail(diag.EmitUnsupportedOp, "load of %s", op.Chunk)
	}
}

func (fe *funcEmitter) emitStore(op linear.Store) {
	src := fe.arg(0)
	var base linear.Reg
	if op.Addr.UsesBaseReg() {
		base = fe.arg(1)
	}
	switch op.Chunk {
	case linear.ByteUnsigned, linear.ByteSigned:
		fe.ins("strb", "%s, %s", fe.wreg(src), fe.address(op.Addr, base))
	case linear.SixteenUnsigned, linear.SixteenSigned:
		fe.ins("strh", "%s, %s", fe.wreg(src), fe.address(op.Addr, base))
	case linear.ThirtytwoUnsigned, linear.ThirtytwoSigned:
		fe.ins("str", "%s, %s", fe.wreg(src), fe.address(op.Addr, base))
	case linear.Single:
		fe.ins("fcvt", "s%s, %s", regFloatTmp, fe.dreg(src))
		fe.ins("str", "s%s, %s", regFloatTmp, fe.address(op.Addr, base))
	case linear.Word, linear.Double, linear.DoubleU:
		fe.ins("str", "%s, %s", fe.reg(src), fe.address(op.Addr, base))
	default:
		fe.fail(diag.EmitUnsupportedOp, "store of %s", op.Chunk)
	}
}

// emitAlloc allocates op.Bytes on the minor heap and leaves a pointer past
// the header in the result. Fast code bumps the allocation pointer inline
// and branches to a collector trampoline on overflow; otherwise a runtime
// helper does the work.
func (fe *funcEmitter) emitAlloc(ins *linear.Instr, op linear.Alloc) {
	e := fe.emitter
	res := fe.xreg(fe.res(0))
	if op.Bytes <= 0 {
		fe.fail(diag.EmitRangeOverflow, "allocation of %d bytes", op.Bytes)
		return
	}
	if fe.fn.Fast {
		frameLbl := fe.recordFrame(ins.Live, ins.Dbg)
		redo := e.newLabel()
		callGC := e.newLabel()
		fe.label(redo)
		fe.emitSubImm(regAllocPtr, regAllocPtr, int64(op.Bytes))
		fe.ins("cmp", "%s, %s", regAllocPtr, regAllocLimit)
		fe.ins("add", "%s, %s, #8", res, regAllocPtr)
		fe.ins("b.lo", "%s", e.labelName(callGC))
		fe.slow.AddGC(gcCall{lbl: callGC, returnLbl: redo, frameLbl: frameLbl})
		return
	}
	switch op.Bytes {
	case 16, 24, 32:
		fe.ins("bl", "%s", e.symbol(fmt.Sprintf("%s%d", symAllocPrefix, op.Bytes/8-1)))
	default:
		fe.emitIntConst(regExtraArg, int64(op.Bytes))
		fe.ins("bl", "%s", e.symbol(symAllocN))
	}
	fe.recordFrameLabel(ins.Live, ins.Dbg)
	fe.ins("add", "%s, %s, #8", res, regAllocPtr)
}
