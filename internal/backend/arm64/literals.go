package arm64

import "arm64gen/internal/linear"

type floatLiteral struct {
	bits uint64
	lbl  linear.Label
}

// literalPool holds the doubles of one function that need a memory load.
type literalPool struct {
	entries []floatLiteral
	index   map[uint64]linear.Label
}

func newLiteralPool() *literalPool {
	return &literalPool{index: make(map[uint64]linear.Label)}
}

// Intern returns the label of bits, allocating one with next on first use.
func (p *literalPool) Intern(bits uint64, next func() linear.Label) linear.Label {
	if lbl, ok := p.index[bits]; ok {
		return lbl
	}
	lbl := next()
	p.index[bits] = lbl
	p.entries = append(p.entries, floatLiteral{bits: bits, lbl: lbl})
	return lbl
}

func (p *literalPool) Len() int { return len(p.entries) }

// Drain writes the pool in insertion order and empties it.
func (p *literalPool) Drain(e *Emitter) {
	if len(p.entries) == 0 {
		return
	}
	e.buf.WriteString("\t.align\t3\n")
	for _, l := range p.entries {
		e.printf("%s:\t.quad\t0x%x\n", e.labelName(l.lbl), l.bits)
	}
	p.entries = p.entries[:0]
	clear(p.index)
}
