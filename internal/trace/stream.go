package trace

import (
	"bufio"
	"io"
	"sync"
)

// StreamTracer writes each event as it arrives. Output is buffered; Flush
// and Close push it out.
type StreamTracer struct {
	mu     sync.Mutex
	dst    io.Writer
	w      *bufio.Writer
	level  Level
	format Format
}

func NewStreamTracer(w io.Writer, level Level, format Format) *StreamTracer {
	if format == FormatAuto {
		format = FormatText
	}
	return &StreamTracer{dst: w, w: bufio.NewWriter(w), level: level, format: format}
}

func (t *StreamTracer) Emit(ev *Event) {
	if ev.Kind != KindHeartbeat && !t.level.ShouldEmit(ev.Scope) {
		return
	}
	data := FormatEvent(ev, t.format)
	t.mu.Lock()
	defer t.mu.Unlock()
	// Trace output is best effort; a failing sink must not fail emission.
	_, _ = t.w.Write(data)
	if ev.Kind == KindHeartbeat || ev.Scope == ScopeDriver {
		_ = t.w.Flush()
	}
}

func (t *StreamTracer) Flush() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.w.Flush()
}

func (t *StreamTracer) Close() error {
	err := t.Flush()
	if c, ok := t.dst.(io.Closer); ok {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (t *StreamTracer) Level() Level  { return t.level }
func (t *StreamTracer) Enabled() bool { return t.level > LevelOff }
