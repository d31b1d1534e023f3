package arm64

import (
	"github.com/oleiade/lane"

	"arm64gen/internal/linear"
)

// Runtime entry points reached from out-of-line code.
const (
	symCallGC      = "caml_call_gc"
	symBoundError  = "caml_ml_array_bound_error"
	symRaiseExn    = "caml_raise_exn"
	symReraiseExn  = "caml_reraise_exn"
	symCCall       = "caml_c_call"
	symAllocN      = "caml_allocN"
	symAllocPrefix = "caml_alloc"
)

type gcCall struct {
	lbl       linear.Label // entry of the trampoline
	returnLbl linear.Label // where the allocation is retried
	frameLbl  linear.Label // return address of the collector call
}

type boundErrorCall struct {
	lbl      linear.Label
	frameLbl linear.Label
}

// slowPaths collects the out-of-line call sites of one function, drained
// after the body in registration order.
type slowPaths struct {
	gc        *lane.Queue
	bound     *lane.Queue
	lastBound *boundErrorCall
	numGC     int
	numBound  int
}

func newSlowPaths() *slowPaths {
	return &slowPaths{gc: lane.NewQueue(), bound: lane.NewQueue()}
}

func (s *slowPaths) AddGC(c gcCall) {
	s.gc.Enqueue(c)
	s.numGC++
}

// BoundSite returns the trampoline label for a bounds check. Outside debug
// mode every check of the function shares one site; in debug mode each
// check gets its own so the faulting location stays precise. mk builds a
// new site when one is needed.
func (s *slowPaths) BoundSite(debug bool, mk func() boundErrorCall) linear.Label {
	if !debug && s.lastBound != nil {
		return s.lastBound.lbl
	}
	c := mk()
	s.bound.Enqueue(c)
	s.lastBound = &c
	s.numBound++
	return c.lbl
}

// Drain writes the GC trampolines, then the bound error trampolines.
func (s *slowPaths) Drain(e *Emitter) {
	for !s.gc.Empty() {
		c := s.gc.Dequeue().(gcCall)
		e.printf("%s:\tbl\t%s\n", e.labelName(c.lbl), e.symbol(symCallGC))
		e.printf("%s:\tb\t%s\n", e.labelName(c.frameLbl), e.labelName(c.returnLbl))
	}
	for !s.bound.Empty() {
		c := s.bound.Dequeue().(boundErrorCall)
		e.printf("%s:\tbl\t%s\n", e.labelName(c.lbl), e.symbol(symBoundError))
		e.printf("%s:\n", e.labelName(c.frameLbl))
	}
	s.lastBound = nil
}
