package arm64

import (
	"fortio.org/safecast"
	"github.com/samber/lo"
	"golang.org/x/text/unicode/norm"

	"arm64gen/internal/diag"
	"arm64gen/internal/linear"
)

// frameDescr describes the frame at one return address: the frame size and
// where the live GC roots are. A root in a register is encoded as
// (index<<1)+1, a root on the stack as its byte offset from sp.
type frameDescr struct {
	lbl       linear.Label
	frameSize int
	live      []int
	dbg       linear.DebugInfo
}

// Bit widths of the packed debug record.
const (
	dbgLineMax      = 0xFFFFF
	dbgCharStartMax = 0xFF
	dbgCharEndMax   = 0x3FF
)

// frameTable accumulates descriptors for the whole unit.
type frameTable struct {
	descrs []frameDescr
}

func newFrameTable() *frameTable { return &frameTable{} }

func (t *frameTable) Add(d frameDescr) { t.descrs = append(t.descrs, d) }

func (t *frameTable) Len() int { return len(t.descrs) }

// liveRoots encodes the pointer-typed registers of live for a frame of the
// given layout. A derived pointer live across the call is an error.
func liveRoots(live []linear.Reg, frame frameLayout) ([]int, error) {
	if bad, ok := lo.Find(live, func(r linear.Reg) bool { return r.Typ == linear.TypeAddr }); ok {
		return nil, errorf(diag.EmitBadOperand, "bad GC root %s", describe(bad))
	}
	ptrs := lo.Filter(live, func(r linear.Reg, _ int) bool { return r.IsPointer() })
	out := make([]int, 0, len(ptrs))
	for _, r := range ptrs {
		switch r.Loc.Kind {
		case linear.LocReg:
			out = append(out, r.Loc.Reg<<1 + 1)
		case linear.LocStack:
			ofs, err := frame.SlotOffset(r.Loc.Slot, r.Typ.Class())
			if err != nil {
				return nil, err
			}
			out = append(out, ofs)
		default:
			return nil, errorf(diag.EmitBadOperand, "live root %q has no location", r.Name)
		}
	}
	return out, nil
}

func debugRecord(d linear.DebugInfo) uint64 {
	clamp := func(v, hi int) uint64 { return uint64(min(max(v, 0), hi)) }
	var kind uint64
	if d.Kind == linear.DebugRaise {
		kind = 1
	}
	return clamp(d.Line, dbgLineMax)<<44 |
		clamp(d.CharStart, dbgCharStartMax)<<36 |
		clamp(d.CharEnd, dbgCharEndMax)<<26 |
		kind
}

func short(v int, what string) (uint16, error) {
	s, err := safecast.Conv[uint16](v)
	if err != nil {
		return 0, errorf(diag.EmitRangeOverflow, "%s %d does not fit the frame table: %v", what, v, err)
	}
	return s, nil
}

// Emit writes the table body after the frametable symbol.
func (t *frameTable) Emit(e *Emitter) error {
	fileLabels := make(map[string]linear.Label)
	var files []string
	fileLabel := func(name string) linear.Label {
		name = norm.NFC.String(name)
		if l, ok := fileLabels[name]; ok {
			return l
		}
		l := e.newLabel()
		fileLabels[name] = l
		files = append(files, name)
		return l
	}

	e.printf("\t.quad\t%d\n", len(t.descrs))
	for _, d := range t.descrs {
		hasDbg := !d.dbg.IsNone()
		size := d.frameSize
		if hasDbg {
			size++
		}
		sz, err := short(size, "frame size")
		if err != nil {
			return err
		}
		n, err := short(len(d.live), "live root count")
		if err != nil {
			return err
		}
		e.printf("\t.quad\t%s\n", e.labelName(d.lbl))
		e.printf("\t.short\t%d\n", sz)
		e.printf("\t.short\t%d\n", n)
		for _, v := range d.live {
			s, err := short(v, "live root")
			if err != nil {
				return err
			}
			e.printf("\t.short\t%d\n", s)
		}
		e.buf.WriteString("\t.align\t3\n")
		if hasDbg {
			info := debugRecord(d.dbg)
			lbl := fileLabel(d.dbg.File)
			e.printf("\t.long\t%s - . + 0x%x\n", e.labelName(lbl), uint32(info))
			e.printf("\t.long\t0x%x\n", uint32(info>>32))
		}
	}
	for _, f := range files {
		e.printf("%s:\t.asciz\t%s\n", e.labelName(fileLabels[f]), quoteAsm(f))
		e.buf.WriteString("\t.align\t3\n")
	}
	return nil
}
