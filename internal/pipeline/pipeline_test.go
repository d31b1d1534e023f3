package pipeline

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestExpandInputs(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.lin", "a.lin", "sub/c.lin", "notes.txt"} {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, nil, 0o600); err != nil {
			t.Fatal(err)
		}
	}
	files, err := ExpandInputs([]string{dir, filepath.Join(dir, "a.lin"), filepath.Join(dir, "notes.txt")})
	if err != nil {
		t.Fatalf("ExpandInputs: %v", err)
	}
	want := []string{
		filepath.Join(dir, "a.lin"),
		filepath.Join(dir, "b.lin"),
		filepath.Join(dir, "notes.txt"),
		filepath.Join(dir, "sub", "c.lin"),
	}
	if len(files) != len(want) {
		t.Fatalf("got %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Fatalf("got %v, want %v", files, want)
		}
	}
	if _, err := ExpandInputs([]string{filepath.Join(dir, "missing.lin")}); err == nil {
		t.Fatalf("missing input must fail")
	}
}

func TestDisplayNamesAndOutputName(t *testing.T) {
	dir := t.TempDir()
	got := DisplayNames([]string{filepath.Join(dir, "x", "m.lin"), "/elsewhere/n.lin"}, dir)
	if got[0] != "x/m.lin" || got[1] != "/elsewhere/n.lin" {
		t.Fatalf("unexpected display names %v", got)
	}
	if OutputName("dir/camlFoo.lin") != "camlFoo.s" || OutputName("plain") != "plain.s" {
		t.Fatalf("unexpected output names")
	}
}

func TestTimingsConcurrent(t *testing.T) {
	var tm Timings
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tm.Add(StageEmit, time.Millisecond)
		}()
	}
	wg.Wait()
	if tm.Count(StageEmit) != 10 || tm.Duration(StageEmit) != 10*time.Millisecond {
		t.Fatalf("unexpected emit timings: %d, %s", tm.Count(StageEmit), tm.Duration(StageEmit))
	}
	if tm.Has(StageWrite) {
		t.Fatalf("write stage was never recorded")
	}
	var nilTimings *Timings
	nilTimings.Add(StageLoad, time.Second)
	if nilTimings.Sum(StageLoad) != 0 {
		t.Fatalf("nil timings must be inert")
	}
}

func TestSinks(t *testing.T) {
	var c CollectSink
	Queued(&c, []string{"a", "b"})
	Notify(nil, "a", StageEmit, StatusDone, nil, 0)
	ch := make(chan Event, 1)
	Notify(ChannelSink{Ch: ch}, "a", StageEmit, StatusDone, nil, time.Second)
	if ev := <-ch; ev.Stage != StageEmit || ev.Elapsed != time.Second {
		t.Fatalf("unexpected event %+v", ev)
	}
	evs := c.Events()
	if len(evs) != 2 || evs[1].File != "b" || evs[1].Status != StatusQueued {
		t.Fatalf("unexpected events %+v", evs)
	}
}
