package prof

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSessionWritesProfiles(t *testing.T) {
	dir := t.TempDir()
	p := Paths{
		CPU:          filepath.Join(dir, "cpu.pprof"),
		Mem:          filepath.Join(dir, "mem.pprof"),
		RuntimeTrace: filepath.Join(dir, "run.trace"),
	}
	s, err := Start(p)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := s.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
	for _, f := range []string{p.CPU, p.Mem, p.RuntimeTrace} {
		if _, err := os.Stat(f); err != nil {
			t.Fatalf("%s: %v", f, err)
		}
	}
}

func TestStartFailsOnBadPath(t *testing.T) {
	if _, err := Start(Paths{CPU: filepath.Join(t.TempDir(), "missing", "cpu.pprof")}); err == nil {
		t.Fatal("expected an error")
	}
}
