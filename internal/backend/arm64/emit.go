package arm64

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"arm64gen/internal/linear"
	"arm64gen/internal/trace"
)

// System selects the assembler dialect for symbols, local labels and
// page relocations.
type System uint8

const (
	SystemLinux System = iota
	SystemDarwin
)

func (s System) String() string {
	switch s {
	case SystemLinux:
		return "linux"
	case SystemDarwin:
		return "darwin"
	default:
		return "unknown"
	}
}

// ParseSystem converts a configuration string to a System.
func ParseSystem(s string) (System, error) {
	switch strings.ToLower(s) {
	case "", "linux":
		return SystemLinux, nil
	case "darwin", "macos":
		return SystemDarwin, nil
	default:
		return SystemLinux, fmt.Errorf("invalid system: %q (expected: linux|darwin)", s)
	}
}

// Options controls code generation for a unit.
type Options struct {
	System System
	// Debug keeps precise bound-error sites, calls the runtime to raise
	// and emits .file/.loc directives.
	Debug bool
	// DLCode loads the address of symbols not defined in the unit through
	// the GOT.
	DLCode bool
	// CFI enables call frame information directives.
	CFI bool
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{System: SystemLinux, CFI: true}
}

// Result is the output of EmitUnit.
type Result struct {
	Asm       string
	Frames    int
	Functions int
}

// Emitter renders the functions and data of one unit into a single
// assembly file. It is not safe for concurrent use; emit independent units
// with independent emitters.
type Emitter struct {
	name      string
	opts      Options
	buf       strings.Builder
	nextLabel linear.Label
	frames    *frameTable
	files     *debugFiles
	defined   map[string]struct{}
	tracer    trace.Tracer
	spanID    uint64
	funcs     int
}

// NewEmitter creates an emitter for the unit called name. Labels it
// allocates start at firstLabel, which must be above every label present
// in the input.
func NewEmitter(name string, opts Options, firstLabel linear.Label) *Emitter {
	if firstLabel <= linear.NoLabel {
		firstLabel = linear.NoLabel + 1
	}
	return &Emitter{
		name:      name,
		opts:      opts,
		nextLabel: firstLabel,
		frames:    newFrameTable(),
		files:     newDebugFiles(),
		defined:   make(map[string]struct{}),
		tracer:    trace.Nop,
	}
}

// SetTracer attaches a tracer; parent is the enclosing span id.
func (e *Emitter) SetTracer(t trace.Tracer, parent uint64) {
	if t == nil {
		t = trace.Nop
	}
	e.tracer = t
	e.spanID = parent
}

// Define marks symbols as defined in the unit, so DLCode addresses them
// directly.
func (e *Emitter) Define(syms map[string]struct{}) {
	for s := range syms {
		e.defined[s] = struct{}{}
	}
}

// EmitUnit renders u into assembly text.
func EmitUnit(ctx context.Context, u *linear.Unit, opts Options) (*Result, error) {
	if u == nil {
		return nil, fmt.Errorf("emit: nil unit")
	}
	tr := trace.FromContext(ctx)
	span := trace.Begin(tr, trace.ScopeUnit, "emit_unit:"+u.Name, trace.CurrentSpan(ctx).SpanID)

	e := NewEmitter(u.Name, opts, u.MaxLabel()+1)
	e.SetTracer(tr, span.ID())
	e.Define(u.DefinedSymbols())

	e.BeginAssembly()
	for i := range u.Items {
		if err := ctx.Err(); err != nil {
			span.End("canceled")
			return nil, err
		}
		it := &u.Items[i]
		if len(it.Data) > 0 {
			if err := e.EmitData(it.Data); err != nil {
				span.End("error")
				return nil, err
			}
		}
		if it.Func != nil {
			if err := e.EmitFunction(it.Func); err != nil {
				span.End("error")
				return nil, err
			}
		}
	}
	if err := e.EndAssembly(); err != nil {
		span.End("error")
		return nil, err
	}
	span.WithExtra("functions", strconv.Itoa(e.funcs)).
		WithExtra("frames", strconv.Itoa(e.frames.Len()))
	span.End("")
	return &Result{Asm: e.buf.String(), Frames: e.frames.Len(), Functions: e.funcs}, nil
}

// String returns the text emitted so far.
func (e *Emitter) String() string { return e.buf.String() }

// Frames returns the number of frame descriptors recorded so far.
func (e *Emitter) Frames() int { return e.frames.Len() }

func (e *Emitter) printf(format string, args ...any) {
	fmt.Fprintf(&e.buf, format, args...)
}

func (e *Emitter) newLabel() linear.Label {
	l := e.nextLabel
	e.nextLabel++
	return l
}

func (e *Emitter) labelName(l linear.Label) string {
	if e.opts.System == SystemDarwin {
		return fmt.Sprintf("L%d", l)
	}
	return fmt.Sprintf(".L%d", l)
}

// symbol renders a link-time symbol: the system prefix, then the name with
// every byte outside [A-Za-z0-9_.] written as $xx.
func (e *Emitter) symbol(s string) string {
	var b strings.Builder
	if e.opts.System == SystemDarwin {
		b.WriteByte('_')
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '_', c == '.':
			b.WriteByte(c)
		default:
			fmt.Fprintf(&b, "$%02x", c)
		}
	}
	return b.String()
}

func symbolOffset(sym string, ofs int) string {
	switch {
	case ofs > 0:
		return fmt.Sprintf("%s+%d", sym, ofs)
	case ofs < 0:
		return fmt.Sprintf("%s-%d", sym, -ofs)
	default:
		return sym
	}
}

// Page-relative relocation operators.

func (e *Emitter) page(sym string) string {
	if e.opts.System == SystemDarwin {
		return sym + "@PAGE"
	}
	return sym
}

func (e *Emitter) pageOff(sym string) string {
	if e.opts.System == SystemDarwin {
		return sym + "@PAGEOFF"
	}
	return ":lo12:" + sym
}

func (e *Emitter) gotPage(sym string) string {
	if e.opts.System == SystemDarwin {
		return sym + "@GOTPAGE"
	}
	return ":got:" + sym
}

func (e *Emitter) gotPageOff(sym string) string {
	if e.opts.System == SystemDarwin {
		return sym + "@GOTPAGEOFF"
	}
	return ":got_lo12:" + sym
}

func (e *Emitter) elf() bool { return e.opts.System == SystemLinux }

func (e *Emitter) globalLabel(name string) {
	sym := e.symbol(name)
	e.printf("\t.globl\t%s\n", sym)
	e.printf("%s:\n", sym)
}

// BeginAssembly writes the file header and the begin markers.
func (e *Emitter) BeginAssembly() {
	if e.elf() {
		e.buf.WriteString("\t.file\t\"\"\n")
	}
	e.buf.WriteString("\t.data\n")
	e.globalLabel(e.name + "__data_begin")
	e.buf.WriteString("\t.text\n")
	e.globalLabel(e.name + "__code_begin")
}

// EndAssembly writes the end markers and the frame table.
func (e *Emitter) EndAssembly() error {
	e.buf.WriteString("\t.text\n")
	e.globalLabel(e.name + "__code_end")
	e.buf.WriteString("\t.data\n")
	e.globalLabel(e.name + "__data_end")
	e.buf.WriteString("\t.long\t0\n")
	e.buf.WriteString("\t.align\t3\n")
	frametable := e.name + "__frametable"
	e.globalLabel(frametable)
	if err := e.frames.Emit(e); err != nil {
		return err
	}
	if e.elf() {
		sym := e.symbol(frametable)
		e.printf("\t.type\t%s, %%object\n", sym)
		e.printf("\t.size\t%s, .-%s\n", sym, sym)
		e.buf.WriteString("\t.section\t.note.GNU-stack,\"\",%progbits\n")
	}
	return nil
}
