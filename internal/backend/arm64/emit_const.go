package arm64

import (
	"fmt"
	"math"

	"arm64gen/internal/diag"
)

// maxSplitImm bounds immediates split into a shifted 12-bit high part and a
// 12-bit low part.
const maxSplitImm = 1 << 24

// intConstSeq returns the movz/movn/movk sequence that loads v into dst,
// scanning 16-bit chunks from the top and skipping chunks the first move
// already produced (zero for movz, 0xFFFF for movn).
func intConstSeq(dst string, v int64) []string {
	if v == 0 {
		return []string{fmt.Sprintf("mov\t%s, %s", dst, regZero)}
	}
	u := uint64(v)
	out := make([]string, 0, 4)
	if v > 0 {
		for shift := 48; shift >= 0; shift -= 16 {
			s := (u >> shift) & 0xFFFF
			if s == 0 {
				continue
			}
			op := "movk"
			if len(out) == 0 {
				op = "movz"
			}
			out = append(out, fmt.Sprintf("%s\t%s, #%d, lsl #%d", op, dst, s, shift))
		}
		return out
	}
	for shift := 48; shift >= 0; shift -= 16 {
		s := (u >> shift) & 0xFFFF
		if s == 0xFFFF {
			continue
		}
		if len(out) == 0 {
			out = append(out, fmt.Sprintf("movn\t%s, #%d, lsl #%d", dst, s^0xFFFF, shift))
		} else {
			out = append(out, fmt.Sprintf("movk\t%s, #%d, lsl #%d", dst, s, shift))
		}
	}
	if len(out) == 0 {
		out = append(out, fmt.Sprintf("movn\t%s, #0", dst))
	}
	return out
}

func (fe *funcEmitter) emitIntConst(dst string, v int64) {
	e := fe.emitter
	for _, line := range intConstSeq(dst, v) {
		e.buf.WriteByte('\t')
		e.buf.WriteString(line)
		e.buf.WriteByte('\n')
	}
}

// isImmediateFloat reports whether the double with the given bits fits the
// 8-bit fmov immediate: exponent in [-3, 4] and only the top four fraction
// bits set.
func isImmediateFloat(bits uint64) bool {
	exp := int((bits>>52)&0x7FF) - 1023
	mant := bits & 0xF_FFFF_FFFF_FFFF
	return exp >= -3 && exp <= 4 && mant&0xF_0000_0000_0000 == mant
}

func (fe *funcEmitter) emitFloatConst(dst string, bits uint64) {
	e := fe.emitter
	switch {
	case bits == 0:
		fe.ins("fmov", "%s, %s", dst, regZero)
	case isImmediateFloat(bits):
		fe.ins("fmov", "%s, #%.7f", dst, math.Float64frombits(bits))
	default:
		lbl := e.labelName(fe.literals.Intern(bits, e.newLabel))
		fe.ins("adrp", "%s, %s", regTmp1, e.page(lbl))
		fe.ins("ldr", "%s, [%s, #%s]", dst, regTmp1, e.pageOff(lbl))
	}
}

// emitArithImm emits op dst, src, #n for 0 <= n < 2^24, as at most two
// instructions.
func (fe *funcEmitter) emitArithImm(op, dst, src string, n int64) {
	if n < 0 || n >= maxSplitImm {
		fe.fail(diag.EmitRangeOverflow, "%s immediate %d out of range", op, n)
		return
	}
	hi, lo := n&0xFFF000, n&0xFFF
	switch {
	case hi != 0 && lo != 0:
		fe.ins(op, "%s, %s, #%d", dst, src, hi)
		fe.ins(op, "%s, %s, #%d", dst, dst, lo)
	case hi != 0:
		fe.ins(op, "%s, %s, #%d", dst, src, hi)
	case lo != 0:
		fe.ins(op, "%s, %s, #%d", dst, src, lo)
	case dst != src:
		fe.ins("mov", "%s, %s", dst, src)
	}
}

func (fe *funcEmitter) emitAddImm(dst, src string, n int64) {
	if n < 0 {
		fe.emitArithImm("sub", dst, src, -n)
		return
	}
	fe.emitArithImm("add", dst, src, n)
}

func (fe *funcEmitter) emitSubImm(dst, src string, n int64) {
	if n < 0 {
		fe.emitArithImm("add", dst, src, -n)
		return
	}
	fe.emitArithImm("sub", dst, src, n)
}
