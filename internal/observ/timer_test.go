package observ

import (
	"strings"
	"sync"
	"testing"
	"time"
)

func TestTimerAccumulates(t *testing.T) {
	tm := NewTimer()
	idx := tm.Begin("decode")
	tm.End(idx, "2 files")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tm.Add("emit", time.Millisecond)
		}()
	}
	wg.Wait()

	r := tm.Report()
	if len(r.Phases) != 2 {
		t.Fatalf("expected 2 phases, got %+v", r.Phases)
	}
	emit := r.Phases[1]
	if emit.Name != "emit" || emit.Count != 8 || emit.DurationMS != 8 {
		t.Fatalf("unexpected emit phase %+v", emit)
	}
	s := tm.Summary()
	if !strings.Contains(s, "x8") || !strings.Contains(s, "// 2 files") {
		t.Fatalf("summary misses counts or notes:\n%s", s)
	}
	tm.End(42, "ignored")
}

func TestEmptyReport(t *testing.T) {
	if r := NewTimer().Report(); r.TotalMS != 0 || r.Phases != nil {
		t.Fatalf("empty timer reported %+v", r)
	}
}

func TestAddSamplesMergesCounts(t *testing.T) {
	tm := NewTimer()
	tm.AddSamples("load", 6*time.Millisecond, 3)
	tm.Add("load", 2*time.Millisecond)
	tm.AddSamples("write", time.Millisecond, 0)
	r := tm.Report()
	if len(r.Phases) != 1 || r.Phases[0].Count != 4 || r.Phases[0].DurationMS != 8 {
		t.Fatalf("report %+v", r)
	}
}
