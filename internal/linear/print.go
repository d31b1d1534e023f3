package linear

import (
	"fmt"
	"io"
	"math"
	"strings"
)

// DumpOptions configures unit dumping.
type DumpOptions struct {
	// RegName renders a physical register index. When nil, registers print
	// as %r<idx>.
	RegName func(idx int) string
}

// DumpUnit writes a human-readable representation of u.
func DumpUnit(w io.Writer, u *Unit, opts DumpOptions) error {
	if w == nil || u == nil {
		return nil
	}
	if _, err := fmt.Fprintf(w, "unit %s items=%d\n", u.Name, len(u.Items)); err != nil {
		return err
	}
	for i := range u.Items {
		it := &u.Items[i]
		if it.Func != nil {
			if err := DumpFunction(w, it.Func, opts); err != nil {
				return err
			}
			continue
		}
		if len(it.Data) > 0 {
			if err := dumpData(w, it.Data); err != nil {
				return err
			}
		}
	}
	return nil
}

// DumpFunction writes the listing of one function.
func DumpFunction(w io.Writer, fn *Function, opts DumpOptions) error {
	if w == nil || fn == nil {
		return nil
	}
	flags := ""
	if fn.Fast {
		flags += " fast"
	}
	if fn.ContainsCalls {
		flags += " calls"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "fn %s slots=%d/%d%s\n", fn.Name, fn.NumStackSlots[0], fn.NumStackSlots[1], flags)
	for i := range fn.Body {
		ins := &fn.Body[i]
		if _, ok := ins.Op.(LabelDef); ok {
			b.WriteString(FormatInstr(ins, opts))
		} else {
			b.WriteString("  ")
			b.WriteString(FormatInstr(ins, opts))
		}
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func dumpData(w io.Writer, items []DataItem) error {
	var b strings.Builder
	fmt.Fprintf(&b, "data items=%d\n", len(items))
	for _, d := range items {
		b.WriteString("  ")
		b.WriteString(formatData(d))
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func formatData(d DataItem) string {
	switch d.Kind {
	case DataGlobalSymbol:
		return "global " + d.Symbol
	case DataDefineSymbol:
		return d.Symbol + ":"
	case DataDefineLabel:
		return fmt.Sprintf("L%d:", d.Label)
	case DataInt8:
		return fmt.Sprintf("int8 %d", d.Int)
	case DataInt16:
		return fmt.Sprintf("int16 %d", d.Int)
	case DataInt32:
		return fmt.Sprintf("int32 %d", d.Int)
	case DataInt:
		return fmt.Sprintf("int %d", d.Int)
	case DataSingle:
		return fmt.Sprintf("single %g", d.Float)
	case DataDouble:
		return fmt.Sprintf("double %g", d.Float)
	case DataSymbolAddress:
		return "addr " + d.Symbol
	case DataLabelAddress:
		return fmt.Sprintf("addr L%d", d.Label)
	case DataString:
		return fmt.Sprintf("string %q", d.Str)
	case DataSkip:
		return fmt.Sprintf("skip %d", d.Int)
	case DataAlign:
		return fmt.Sprintf("align %d", d.Int)
	default:
		return fmt.Sprintf("data?%d", d.Kind)
	}
}

// FormatReg renders a register with its location.
func FormatReg(r Reg, opts DumpOptions) string {
	name := r.Name
	if name == "" {
		name = r.Typ.String()
	}
	switch r.Loc.Kind {
	case LocReg:
		if opts.RegName != nil {
			return fmt.Sprintf("%s[%s]", name, opts.RegName(r.Loc.Reg))
		}
		return fmt.Sprintf("%s[%%r%d]", name, r.Loc.Reg)
	case LocStack:
		return fmt.Sprintf("%s[s:%s]", name, r.Loc.Slot)
	default:
		return name
	}
}

func formatRegs(rs []Reg, opts DumpOptions) string {
	parts := make([]string, 0, len(rs))
	for _, r := range rs {
		parts = append(parts, FormatReg(r, opts))
	}
	return strings.Join(parts, " ")
}

func formatAddr(a Addressing, args string) string {
	if a.Kind == AddrBased {
		if a.Offset != 0 {
			return fmt.Sprintf("\"%s\" + %d", a.Symbol, a.Offset)
		}
		return fmt.Sprintf("\"%s\"", a.Symbol)
	}
	if a.Offset != 0 {
		return fmt.Sprintf("%s + %d", args, a.Offset)
	}
	return args
}

// FormatInstr renders one instruction on a single line.
func FormatInstr(ins *Instr, opts DumpOptions) string {
	if ins == nil || ins.Op == nil {
		return "<nil>"
	}
	res := ""
	if len(ins.Res) > 0 {
		res = formatRegs(ins.Res, opts) + " := "
	}
	args := formatRegs(ins.Args, opts)
	arg := func(i int) string {
		if i < len(ins.Args) {
			return FormatReg(ins.Args[i], opts)
		}
		return "?"
	}
	var body string
	switch o := ins.Op.(type) {
	case Move:
		body = res + args
	case Spill:
		body = res + "spill " + args
	case Reload:
		body = res + "reload " + args
	case ConstInt:
		body = fmt.Sprintf("%s%d", res, o.Value)
	case ConstFloat:
		body = fmt.Sprintf("%s%gf", res, math.Float64frombits(o.Bits))
	case ConstSymbol:
		body = fmt.Sprintf("%s\"%s\"", res, o.Symbol)
	case CallInd:
		body = res + "call " + args
	case CallImm:
		body = fmt.Sprintf("%scall \"%s\" %s", res, o.Symbol, args)
	case TailCallInd:
		body = "tailcall " + args
	case TailCallImm:
		body = fmt.Sprintf("tailcall \"%s\" %s", o.Symbol, args)
	case ExtCall:
		body = fmt.Sprintf("%sextcall \"%s\" %s", res, o.Symbol, args)
		if !o.Alloc {
			body += " (noalloc)"
		}
	case StackOffset:
		body = fmt.Sprintf("offset stack %d", o.Bytes)
	case Load:
		base := ""
		if o.Addr.UsesBaseReg() {
			base = arg(0)
		}
		body = fmt.Sprintf("%s%s mem[%s]", res, o.Chunk, formatAddr(o.Addr, base))
	case Store:
		base := ""
		if o.Addr.UsesBaseReg() {
			base = arg(1)
		}
		body = fmt.Sprintf("%s mem[%s] := %s", o.Chunk, formatAddr(o.Addr, base), arg(0))
	case Alloc:
		body = fmt.Sprintf("%salloc %d", res, o.Bytes)
	case IntOp:
		if o.Op == IntComp {
			body = fmt.Sprintf("%s%s %s %s", res, arg(0), o.Cmp, arg(1))
		} else {
			body = fmt.Sprintf("%s%s %s %s", res, arg(0), o.Op, arg(1))
		}
	case IntOpImm:
		if o.Op == IntComp {
			body = fmt.Sprintf("%s%s %s %d", res, arg(0), o.Cmp, o.Imm)
		} else {
			body = fmt.Sprintf("%s%s %s %d", res, arg(0), o.Op, o.Imm)
		}
	case FloatOp:
		body = fmt.Sprintf("%s%s %s", res, o.Op, args)
	case ShiftArith:
		op := "+"
		if o.Arith == ArithSub {
			op = "-"
		}
		sh := "<<"
		if o.Kind == ShiftAsr {
			sh = ">>s"
		}
		body = fmt.Sprintf("%s%s %s (%s %s %d)", res, arg(0), op, arg(1), sh, o.Shift)
	case ShiftCheckBound:
		body = fmt.Sprintf("check %s >> %d > %s", arg(0), o.Shift, arg(1))
	case MulAdd:
		body = fmt.Sprintf("%s%s * %s + %s", res, arg(0), arg(1), arg(2))
	case MulSub:
		body = fmt.Sprintf("%s%s - %s * %s", res, arg(2), arg(0), arg(1))
	case FusedFloat:
		body = fmt.Sprintf("%sfused%d %s", res, o.Kind, args)
	case NegMulF:
		body = fmt.Sprintf("%s-f (%s *f %s)", res, arg(0), arg(1))
	case SqrtF:
		body = res + "sqrtf " + args
	case Bswap:
		body = fmt.Sprintf("%sbswap%d %s", res, o.Bits, args)
	case ReloadRetAddr:
		body = "reload retaddr"
	case Return:
		body = "return " + args
	case LabelDef:
		body = fmt.Sprintf("L%d:", o.ID)
	case Branch:
		body = fmt.Sprintf("goto L%d", o.Target)
	case CondBranch:
		body = fmt.Sprintf("if %s %s goto L%d", o.Test, args, o.Target)
	case CondBranch3:
		parts := make([]string, 0, 3)
		if o.Lt != NoLabel {
			parts = append(parts, fmt.Sprintf("<1 L%d", o.Lt))
		}
		if o.Eq != NoLabel {
			parts = append(parts, fmt.Sprintf("=1 L%d", o.Eq))
		}
		if o.Gt != NoLabel {
			parts = append(parts, fmt.Sprintf(">1 L%d", o.Gt))
		}
		body = fmt.Sprintf("switch3 %s %s", args, strings.Join(parts, " "))
	case Switch:
		targets := make([]string, 0, len(o.Targets))
		for _, l := range o.Targets {
			targets = append(targets, fmt.Sprintf("L%d", l))
		}
		body = fmt.Sprintf("switch %s [%s]", args, strings.Join(targets, " "))
	case SetupTrap:
		body = fmt.Sprintf("setup trap L%d", o.Handler)
	case PushTrap:
		body = "push trap"
	case PopTrap:
		body = "pop trap"
	case AdjustTrap:
		body = fmt.Sprintf("adjust trap depth %+d", o.Delta)
	case Raise:
		body = fmt.Sprintf("%s %s", o.Kind, args)
	case End:
		body = "end"
	default:
		body = fmt.Sprintf("%s %s", ins.Op.Name(), args)
	}
	if len(ins.Live) > 0 {
		body += " {" + formatRegs(ins.Live, opts) + "}"
	}
	return body
}
