package arm64

import (
	"fmt"

	"arm64gen/internal/diag"
	"arm64gen/internal/linear"
)

func describe(r linear.Reg) string {
	name := r.Name
	if name == "" {
		name = r.Typ.String()
	}
	switch r.Loc.Kind {
	case linear.LocReg:
		return fmt.Sprintf("%s in %s", name, RegisterName(r.Loc.Reg))
	case linear.LocStack:
		return fmt.Sprintf("%s in %s", name, r.Loc.Slot)
	default:
		return name + " (unallocated)"
	}
}

func (fe *funcEmitter) arg(i int) linear.Reg {
	if fe.cur == nil || i >= len(fe.cur.Args) {
		fe.fail(diag.EmitBadOperand, "missing argument %d", i)
		return linear.Reg{}
	}
	return fe.cur.Args[i]
}

func (fe *funcEmitter) res(i int) linear.Reg {
	if fe.cur == nil || i >= len(fe.cur.Res) {
		fe.fail(diag.EmitBadOperand, "missing result %d", i)
		return linear.Reg{}
	}
	return fe.cur.Res[i]
}

// reg renders r as a 64-bit integer or double register.
func (fe *funcEmitter) reg(r linear.Reg) string {
	if !r.InReg() {
		fe.fail(diag.EmitBadOperand, "%s is not in a register", describe(r))
		return "?"
	}
	if r.Typ == linear.TypeFloat {
		if name, ok := floatName('d', r.Loc.Reg); ok {
			return name
		}
	} else if name, ok := xName(r.Loc.Reg); ok {
		return name
	}
	fe.fail(diag.EmitBadOperand, "%s: register does not fit a %s value", describe(r), r.Typ)
	return "?"
}

// xreg renders an integer register by its 64-bit name.
func (fe *funcEmitter) xreg(r linear.Reg) string {
	if r.Typ == linear.TypeFloat {
		fe.fail(diag.EmitBadOperand, "%s used as an integer", describe(r))
		return "?"
	}
	return fe.reg(r)
}

// dreg renders a float register by its double-precision name.
func (fe *funcEmitter) dreg(r linear.Reg) string {
	if r.Typ != linear.TypeFloat {
		fe.fail(diag.EmitBadOperand, "%s used as a float", describe(r))
		return "?"
	}
	return fe.reg(r)
}

// wreg renders an integer register by its 32-bit name.
func (fe *funcEmitter) wreg(r linear.Reg) string {
	if !r.InReg() || r.Typ == linear.TypeFloat {
		fe.fail(diag.EmitBadOperand, "%s is not an integer register", describe(r))
		return "?"
	}
	name, ok := wName(r.Loc.Reg)
	if !ok {
		fe.fail(diag.EmitBadOperand, "%s: no 32-bit view", describe(r))
		return "?"
	}
	return name
}

// stack renders a stack-resident operand as [sp, #ofs].
func (fe *funcEmitter) stack(r linear.Reg) string {
	if !r.OnStack() {
		fe.fail(diag.EmitBadOperand, "%s is not on the stack", describe(r))
		return "?"
	}
	ofs, err := fe.frame.SlotOffset(r.Loc.Slot, r.Typ.Class())
	if err != nil {
		fe.failWith(err)
		return "?"
	}
	return fmt.Sprintf("[sp, #%d]", ofs)
}

// address returns the memory operand of addr. A symbol-based address first
// loads the page of the symbol into x16.
func (fe *funcEmitter) address(addr linear.Addressing, base linear.Reg) string {
	e := fe.emitter
	switch addr.Kind {
	case linear.AddrIndexed:
		return fmt.Sprintf("[%s, #%d]", fe.xreg(base), addr.Offset)
	case linear.AddrBased:
		if addr.Symbol == "" {
			fe.fail(diag.EmitBadAddressing, "symbol-based address without a symbol")
			return "?"
		}
		if e.opts.DLCode && !fe.isDefined(addr.Symbol) {
			fe.fail(diag.EmitBadAddressing, "symbol-based access to %s, which is not defined in the unit, under dlcode", addr.Symbol)
			return "?"
		}
		target := symbolOffset(e.symbol(addr.Symbol), addr.Offset)
		fe.ins("adrp", "%s, %s", regTmp1, e.page(target))
		return fmt.Sprintf("[%s, #%s]", regTmp1, e.pageOff(target))
	default:
		fe.fail(diag.EmitBadAddressing, "unknown addressing mode %d", addr.Kind)
		return "?"
	}
}

func (fe *funcEmitter) isDefined(sym string) bool {
	_, ok := fe.emitter.defined[sym]
	return ok
}

// loadSymbolAddr puts the address of sym into dst. Under dlcode, symbols from
// other units go through the GOT.
func (fe *funcEmitter) loadSymbolAddr(dst, sym string) {
	e := fe.emitter
	s := e.symbol(sym)
	if e.opts.DLCode && !fe.isDefined(sym) {
		fe.ins("adrp", "%s, %s", dst, e.gotPage(s))
		fe.ins("ldr", "%s, [%s, #%s]", dst, dst, e.gotPageOff(s))
		return
	}
	fe.ins("adrp", "%s, %s", dst, e.page(s))
	fe.ins("add", "%s, %s, #%s", dst, dst, e.pageOff(s))
}

// emitMove copies src to dst between registers and stack slots.
func (fe *funcEmitter) emitMove(src, dst linear.Reg) {
	if src.SameLoc(dst) {
		return
	}
	switch {
	case src.InReg() && dst.InReg():
		srcFloat, dstFloat := src.Typ == linear.TypeFloat, dst.Typ == linear.TypeFloat
		switch {
		case srcFloat && dstFloat:
			fe.ins("fmov", "%s, %s", fe.reg(dst), fe.reg(src))
		case !srcFloat && !dstFloat:
			fe.ins("mov", "%s, %s", fe.reg(dst), fe.reg(src))
		default:
			fe.fail(diag.EmitBadOperand, "move between register classes: %s to %s", describe(src), describe(dst))
		}
	case src.InReg() && dst.OnStack():
		fe.ins("str", "%s, %s", fe.reg(src), fe.stack(dst))
	case src.OnStack() && dst.InReg():
		fe.ins("ldr", "%s, %s", fe.reg(dst), fe.stack(src))
	default:
		fe.fail(diag.EmitBadOperand, "unsupported move from %s to %s", describe(src), describe(dst))
	}
}
