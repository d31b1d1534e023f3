package arm64

import (
	"arm64gen/internal/diag"
	"arm64gen/internal/linear"
)

// frameLayout is the stack frame state of the function being emitted.
// Frame size and slot offsets are always derived from the current state.
type frameLayout struct {
	// stackOffset counts bytes pushed below the fixed frame: outgoing
	// arguments and trap frames.
	stackOffset   int
	numSlots      [2]int
	containsCalls bool
}

func newFrameLayout(fn *linear.Function) frameLayout {
	return frameLayout{numSlots: fn.NumStackSlots, containsCalls: fn.ContainsCalls}
}

func align16(n int) int { return (n + 15) &^ 15 }

// FrameSize returns the 16-byte aligned size of the current frame.
func (l frameLayout) FrameSize() int {
	sz := l.stackOffset + 8*l.numSlots[0] + 8*l.numSlots[1]
	if l.containsCalls {
		sz += 8
	}
	return align16(sz)
}

// SlotOffset returns the sp-relative byte offset of slot for a register of
// the given class.
func (l frameLayout) SlotOffset(s linear.Slot, class int) (int, error) {
	switch s.Kind {
	case linear.SlotIncoming:
		return l.FrameSize() + s.Index, nil
	case linear.SlotLocal:
		if class == 0 {
			return l.stackOffset + s.Index*8, nil
		}
		return l.stackOffset + l.numSlots[0]*8 + s.Index*8, nil
	case linear.SlotOutgoing:
		return s.Index, nil
	default:
		return 0, errorf(diag.EmitBadFrame, "unknown slot kind %d", s.Kind)
	}
}
