// Package pipeline describes the stages a compilation unit goes through and
// how their progress is reported.
package pipeline

import (
	"sync"
	"time"
)

// Stage is one step of processing a unit file.
type Stage string

const (
	// StageLoad reads and decodes a .lin file.
	StageLoad Stage = "load"
	// StageValidate checks the structural invariants of the unit.
	StageValidate Stage = "validate"
	// StageEmit renders the unit to assembly.
	StageEmit Stage = "emit"
	// StageWrite writes the .s file.
	StageWrite Stage = "write"
)

// Stages lists every stage in execution order.
var Stages = []Stage{StageLoad, StageValidate, StageEmit, StageWrite}

// Status is the state of a file within a stage.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Event reports progress for one file, or for the whole run when File is
// empty.
type Event struct {
	File    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
	// Cached is set on the emit stage when the assembly came from the cache.
	Cached bool
}

// ProgressSink consumes progress events. Implementations must be safe for
// concurrent use; units report from several goroutines.
type ProgressSink interface {
	OnEvent(Event)
}

// Timings accumulates stage durations across the units of a run.
type Timings struct {
	mu     sync.Mutex
	stages map[Stage]time.Duration
	counts map[Stage]int
}

// Add records one more sample for stage.
func (t *Timings) Add(stage Stage, dur time.Duration) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stages == nil {
		t.stages = make(map[Stage]time.Duration)
		t.counts = make(map[Stage]int)
	}
	t.stages[stage] += dur
	t.counts[stage]++
}

// Has reports whether stage has at least one sample.
func (t *Timings) Has(stage Stage) bool {
	if t == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[stage] > 0
}

// Duration returns the summed duration of stage.
func (t *Timings) Duration(stage Stage) time.Duration {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stages[stage]
}

// Count returns the number of samples of stage.
func (t *Timings) Count(stage Stage) int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.counts[stage]
}

// Sum adds the durations of the given stages.
func (t *Timings) Sum(stages ...Stage) time.Duration {
	var total time.Duration
	for _, s := range stages {
		total += t.Duration(s)
	}
	return total
}
