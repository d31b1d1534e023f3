package arm64

import (
	"math"
	"math/bits"

	"arm64gen/internal/diag"
	"arm64gen/internal/linear"
)

// asciiChunk bounds the length of one .ascii directive.
const asciiChunk = 64

// EmitData writes a static data block into the data section.
func (e *Emitter) EmitData(items []linear.DataItem) error {
	e.buf.WriteString("\t.data\n")
	for i, d := range items {
		if err := e.emitDataItem(d); err != nil {
			err.Func = "data"
			err.Index = i
			return err
		}
	}
	return nil
}

func (e *Emitter) emitDataItem(d linear.DataItem) *InternalError {
	switch d.Kind {
	case linear.DataGlobalSymbol:
		e.printf("\t.globl\t%s\n", e.symbol(d.Symbol))
	case linear.DataDefineSymbol:
		e.printf("%s:\n", e.symbol(d.Symbol))
	case linear.DataDefineLabel:
		e.printf("%s:\n", e.labelName(d.Label))
	case linear.DataInt8:
		e.printf("\t.byte\t%d\n", int8(d.Int))
	case linear.DataInt16:
		e.printf("\t.short\t%d\n", int16(d.Int))
	case linear.DataInt32:
		e.printf("\t.long\t%d\n", int32(d.Int))
	case linear.DataInt:
		e.printf("\t.quad\t%d\n", d.Int)
	case linear.DataSingle:
		e.printf("\t.long\t0x%x\n", math.Float32bits(float32(d.Float)))
	case linear.DataDouble:
		e.printf("\t.quad\t0x%x\n", math.Float64bits(d.Float))
	case linear.DataSymbolAddress:
		e.printf("\t.quad\t%s\n", e.symbol(d.Symbol))
	case linear.DataLabelAddress:
		e.printf("\t.quad\t%s\n", e.labelName(d.Label))
	case linear.DataString:
		s := d.Str
		for len(s) > 0 {
			n := min(len(s), asciiChunk)
			e.printf("\t.ascii\t%s\n", quoteAsm(s[:n]))
			s = s[n:]
		}
	case linear.DataSkip:
		if d.Int > 0 {
			e.printf("\t.space\t%d\n", d.Int)
		}
	case linear.DataAlign:
		if d.Int <= 0 || bits.OnesCount64(uint64(d.Int)) != 1 {
			return errorf(diag.EmitRangeOverflow, "alignment %d is not a power of two", d.Int)
		}
		e.printf("\t.align\t%d\n", bits.TrailingZeros64(uint64(d.Int)))
	default:
		return errorf(diag.EmitUnsupportedOp, "unknown data item kind %d", d.Kind)
	}
	return nil
}
