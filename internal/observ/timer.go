package observ

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Phase is one timed step of a run. Count is the number of samples merged
// into it: a stage run once per unit accumulates one sample per unit.
type Phase struct {
	Name  string
	Start time.Time
	Dur   time.Duration
	Count int
	Note  string
}

// Timer collects phase durations. It is safe for concurrent use, so workers
// emitting different units can report into one timer.
type Timer struct {
	mu     sync.Mutex
	phases []Phase
	index  map[string]int
}

func NewTimer() *Timer {
	return &Timer{phases: make([]Phase, 0, 8), index: make(map[string]int)}
}

// Begin starts a phase and returns its index for End.
func (t *Timer) Begin(name string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.phases = append(t.phases, Phase{Name: name, Start: time.Now(), Count: 1})
	idx := len(t.phases) - 1
	t.index[name] = idx
	return idx
}

// End finishes the phase at idx.
func (t *Timer) End(idx int, note string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx < 0 || idx >= len(t.phases) {
		return
	}
	p := &t.phases[idx]
	p.Dur = time.Since(p.Start)
	p.Note = note
}

// Add merges a sample of dur into the phase called name, creating it on
// first use.
func (t *Timer) Add(name string, dur time.Duration) {
	t.AddSamples(name, dur, 1)
}

// AddSamples merges n samples totalling dur into the phase called name.
func (t *Timer) AddSamples(name string, dur time.Duration, n int) {
	if n <= 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if idx, ok := t.index[name]; ok {
		t.phases[idx].Dur += dur
		t.phases[idx].Count += n
		return
	}
	t.phases = append(t.phases, Phase{Name: name, Start: time.Now().Add(-dur), Dur: dur, Count: n})
	t.index[name] = len(t.phases) - 1
}

// Summary renders the phases as an aligned table.
func (t *Timer) Summary() string {
	report := t.Report()
	var sb strings.Builder
	sb.WriteString("timings:\n")
	for _, p := range report.Phases {
		fmt.Fprintf(&sb, "  %-20s %9.2f ms", p.Name, p.DurationMS)
		if p.Count > 1 {
			fmt.Fprintf(&sb, "  x%d", p.Count)
		}
		if p.Note != "" {
			sb.WriteString("  // " + p.Note)
		}
		sb.WriteByte('\n')
	}
	fmt.Fprintf(&sb, "  %-20s %9.2f ms\n", "total", report.TotalMS)
	return sb.String()
}

// PhaseReport: сжатое описание фазы для JSON-вывода.
type PhaseReport struct {
	Name       string  `json:"name"`
	DurationMS float64 `json:"duration_ms"`
	Count      int     `json:"count,omitempty"`
	Note       string  `json:"note,omitempty"`
}

// Report: агрегированные данные таймера.
type Report struct {
	TotalMS float64       `json:"total_ms"`
	Phases  []PhaseReport `json:"phases"`
}

// Report snapshots the phases. The total is the sum of phase durations;
// accumulated phases may overlap in wall time when units run in parallel.
func (t *Timer) Report() Report {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.phases) == 0 {
		return Report{}
	}
	report := Report{Phases: make([]PhaseReport, len(t.phases))}
	var total time.Duration
	for i, p := range t.phases {
		total += p.Dur
		report.Phases[i] = PhaseReport{
			Name:       p.Name,
			DurationMS: millis(p.Dur),
			Count:      p.Count,
			Note:       p.Note,
		}
	}
	report.TotalMS = millis(total)
	return report
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
