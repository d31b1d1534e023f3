package arm64

import (
	"fmt"
	"strconv"

	"arm64gen/internal/diag"
	"arm64gen/internal/linear"
	"arm64gen/internal/trace"
)

// funcEmitter is the emission state of one function. A fresh one is built
// for every function, so nothing leaks from one function to the next.
type funcEmitter struct {
	emitter   *Emitter
	fn        *linear.Function
	frame     frameLayout
	literals  *literalPool
	slow      *slowPaths
	tailrec   linear.Label
	trapDepth int
	cur       *linear.Instr
	err       *InternalError
}

func newFuncEmitter(e *Emitter, fn *linear.Function) *funcEmitter {
	return &funcEmitter{
		emitter:  e,
		fn:       fn,
		frame:    newFrameLayout(fn),
		literals: newLiteralPool(),
		slow:     newSlowPaths(),
	}
}

// EmitFunction renders one function: prologue, body, out-of-line code and
// literal pool. The first internal error aborts it.
func (e *Emitter) EmitFunction(fn *linear.Function) error {
	if fn == nil {
		return nil
	}
	span := trace.Begin(e.tracer, trace.ScopeFunction, fn.Name, e.spanID)
	fe := newFuncEmitter(e, fn)
	if err := fe.emit(); err != nil {
		span.End("error")
		return err
	}
	e.funcs++
	span.WithExtra("frame_size", strconv.Itoa(fe.frame.FrameSize())).
		WithExtra("literals", strconv.Itoa(fe.literals.Len()))
	span.End(fmt.Sprintf("%d instrs", len(fn.Body)))
	return nil
}

func (fe *funcEmitter) emit() error {
	e := fe.emitter
	fn := fe.fn
	sym := e.symbol(fn.Name)

	e.buf.WriteString("\t.text\n")
	e.buf.WriteString("\t.align\t3\n")
	e.printf("\t.globl\t%s\n", sym)
	e.printf("%s:\n", sym)
	fe.emitLoc(fn.Dbg)
	fe.cfi("\t.cfi_startproc\n")

	n := fe.frame.FrameSize()
	if n > 0 {
		fe.emitStackAdjustment(-n)
	}
	if fn.ContainsCalls {
		fe.cfi("\t.cfi_offset\t30, -8\n")
		fe.ins("str", "%s, [sp, #%d]", regLink, n-8)
	}
	fe.tailrec = e.newLabel()
	e.printf("%s:\n", e.labelName(fe.tailrec))
	if fe.err != nil {
		return fe.wrap(-1)
	}

	for i := range fn.Body {
		ins := &fn.Body[i]
		if _, end := ins.Op.(linear.End); end {
			break
		}
		fe.cur = ins
		fe.emitLoc(ins.Dbg)
		fe.emitInstr(ins)
		if fe.err != nil {
			return fe.wrap(i)
		}
	}
	fe.cur = nil

	fe.slow.Drain(e)
	fe.cfi("\t.cfi_endproc\n")
	if e.elf() {
		e.printf("\t.type\t%s, %%function\n", sym)
		e.printf("\t.size\t%s, .-%s\n", sym, sym)
	}
	fe.literals.Drain(e)
	return nil
}

// wrap completes the pending error with the location of instruction i.
func (fe *funcEmitter) wrap(i int) error {
	err := fe.err
	err.Func = fe.fn.Name
	err.Index = i
	if i >= 0 && i < len(fe.fn.Body) {
		ins := &fe.fn.Body[i]
		err.Instr = linear.FormatInstr(ins, linear.DumpOptions{RegName: RegisterName})
		err.Pos = posOf(ins.Dbg)
	}
	return err
}

// fail records the first internal error of the function.
func (fe *funcEmitter) fail(code diag.Code, format string, args ...any) {
	if fe.err == nil {
		fe.err = errorf(code, format, args...)
	}
}

// failWith records err, which must be an *InternalError or is wrapped as one.
func (fe *funcEmitter) failWith(err error) {
	if err == nil || fe.err != nil {
		return
	}
	if ie, ok := AsInternal(err); ok {
		fe.err = ie
		return
	}
	fe.err = errorf(diag.EmitBadOperand, "%v", err)
}

// ins writes one instruction line.
func (fe *funcEmitter) ins(mnemonic, format string, args ...any) {
	e := fe.emitter
	e.buf.WriteByte('\t')
	e.buf.WriteString(mnemonic)
	if format != "" {
		e.buf.WriteByte('\t')
		fmt.Fprintf(&e.buf, format, args...)
	}
	e.buf.WriteByte('\n')
}

func (fe *funcEmitter) label(l linear.Label) {
	fe.emitter.printf("%s:\n", fe.emitter.labelName(l))
}

func (fe *funcEmitter) cfi(line string) {
	if fe.emitter.opts.CFI {
		fe.emitter.buf.WriteString(line)
	}
}

func (fe *funcEmitter) cfiAdjust(n int) {
	if fe.emitter.opts.CFI && n != 0 {
		fe.emitter.printf("\t.cfi_adjust_cfa_offset\t%d\n", n)
	}
}

// emitStackAdjustment moves sp by n bytes: negative allocates.
func (fe *funcEmitter) emitStackAdjustment(n int) {
	op := "add"
	m := n
	if n < 0 {
		op = "sub"
		m = -n
	}
	fe.emitArithImm(op, "sp", "sp", int64(m))
	fe.cfiAdjust(-n)
}

// emitEpilogue restores the link register and frees the frame around the
// instruction that leaves the function. The body may continue after it, so
// the CFA is adjusted back.
func (fe *funcEmitter) emitEpilogue(leave func()) {
	n := fe.frame.FrameSize()
	if fe.fn.ContainsCalls {
		fe.ins("ldr", "%s, [sp, #%d]", regLink, n-8)
	}
	if n > 0 {
		fe.emitStackAdjustment(n)
	}
	leave()
	if n > 0 {
		fe.cfiAdjust(n)
	}
}

// recordFrame records a frame descriptor for the current layout and
// returns the label that must be placed at the return address.
func (fe *funcEmitter) recordFrame(live []linear.Reg, dbg linear.DebugInfo) linear.Label {
	e := fe.emitter
	lbl := e.newLabel()
	roots, err := liveRoots(live, fe.frame)
	if err != nil {
		fe.failWith(err)
		return lbl
	}
	e.frames.Add(frameDescr{lbl: lbl, frameSize: fe.frame.FrameSize(), live: roots, dbg: dbg})
	return lbl
}

// recordFrameLabel records a frame and places its label right here.
func (fe *funcEmitter) recordFrameLabel(live []linear.Reg, dbg linear.DebugInfo) {
	fe.label(fe.recordFrame(live, dbg))
}
