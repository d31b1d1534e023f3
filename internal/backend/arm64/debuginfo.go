package arm64

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"arm64gen/internal/linear"
)

// debugFiles numbers the source files named by .file directives.
type debugFiles struct {
	ids  map[string]int
	next int
}

func newDebugFiles() *debugFiles {
	return &debugFiles{ids: make(map[string]int), next: 1}
}

// id returns the file number of name and whether it was just allocated.
func (d *debugFiles) id(name string) (int, bool) {
	name = norm.NFC.String(name)
	if n, ok := d.ids[name]; ok {
		return n, false
	}
	n := d.next
	d.next++
	d.ids[name] = n
	return n, true
}

// emitLoc writes a .loc directive for dbg, preceded by .file on the first
// use of the file. Only in debug mode.
func (fe *funcEmitter) emitLoc(dbg linear.DebugInfo) {
	e := fe.emitter
	if !e.opts.Debug || dbg.IsNone() || dbg.File == "" {
		return
	}
	n, fresh := e.files.id(dbg.File)
	if fresh {
		e.printf("\t.file\t%d\t%s\n", n, quoteAsm(norm.NFC.String(dbg.File)))
	}
	e.printf("\t.loc\t%d\t%d\n", n, dbg.Line)
}

// quoteAsm quotes s for the GNU assembler: quote and backslash are escaped,
// every byte outside printable ASCII is written in octal.
func quoteAsm(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"' || c == '\\':
			b.WriteByte('\\')
			b.WriteByte(c)
		case c < 0x20 || c >= 0x7f:
			b.WriteByte('\\')
			b.WriteByte('0' + c>>6)
			b.WriteByte('0' + (c>>3)&7)
			b.WriteByte('0' + c&7)
		default:
			b.WriteByte(c)
		}
	}
	b.WriteByte('"')
	return b.String()
}
