package arm64

import (
	"arm64gen/internal/diag"
	"arm64gen/internal/linear"
)

// trapFrameSize is the size of the runtime trap record: previous trap
// pointer, then handler address.
const trapFrameSize = 16

// emitSetupTrap branches to the protected body with the handler address in
// x16. The handler starts right after the branch.
func (fe *funcEmitter) emitSetupTrap(op linear.SetupTrap) {
	e := fe.emitter
	next := e.newLabel()
	fe.ins("adr", "%s, %s", regTmp1, e.labelName(next))
	fe.ins("b", "%s", e.labelName(op.Handler))
	fe.label(next)
}

func (fe *funcEmitter) emitPushTrap() {
	fe.ins("str", "%s, [sp, -%d]!", regTrapPtr, trapFrameSize)
	fe.cfiAdjust(trapFrameSize)
	fe.ins("str", "%s, [sp, #8]", regTmp1)
	fe.ins("mov", "%s, sp", regTrapPtr)
	fe.frame.stackOffset += trapFrameSize
	fe.trapDepth++
}

func (fe *funcEmitter) emitPopTrap() {
	if fe.trapDepth == 0 {
		fe.fail(diag.EmitTrapUnderflow, "pop trap with no trap installed")
		return
	}
	fe.ins("ldr", "%s, [sp], %d", regTrapPtr, trapFrameSize)
	fe.cfiAdjust(-trapFrameSize)
	fe.frame.stackOffset -= trapFrameSize
	fe.trapDepth--
}

// emitAdjustTrap changes the bookkeeping of installed trap frames without
// emitting code.
func (fe *funcEmitter) emitAdjustTrap(delta int) {
	if fe.trapDepth+delta < 0 {
		fe.fail(diag.EmitTrapUnderflow, "trap depth %d adjusted by %d", fe.trapDepth, delta)
		return
	}
	fe.trapDepth += delta
	fe.frame.stackOffset += delta * trapFrameSize
	fe.cfiAdjust(delta * trapFrameSize)
}

// emitRaise raises the exception in x0. In debug mode regular raises call
// the runtime so the backtrace is recorded; everything else unwinds inline
// to the innermost trap frame.
func (fe *funcEmitter) emitRaise(ins *linear.Instr, op linear.Raise) {
	e := fe.emitter
	if e.opts.Debug && (op.Kind == linear.RaiseRegular || op.Kind == linear.RaiseReraise) {
		sym := symRaiseExn
		if op.Kind == linear.RaiseReraise {
			sym = symReraiseExn
		}
		fe.ins("bl", "%s", e.symbol(sym))
		dbg := ins.Dbg
		if !dbg.IsNone() {
			dbg.Kind = linear.DebugRaise
		}
		fe.recordFrameLabel(nil, dbg)
		return
	}
	if op.Kind > linear.RaiseNoTrace {
		fe.fail(diag.EmitUnsupportedOp, "raise kind %d", op.Kind)
		return
	}
	fe.ins("mov", "sp, %s", regTrapPtr)
	fe.ins("ldr", "%s, [sp, #8]", regTmp1)
	fe.ins("ldr", "%s, [sp], %d", regTrapPtr, trapFrameSize)
	fe.ins("br", "%s", regTmp1)
}
