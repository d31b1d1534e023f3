// Package prof turns on the Go runtime profilers for one run of the tool.
package prof

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"runtime/pprof"
	rtrace "runtime/trace"
)

// Paths selects the profiles to record. Empty paths are skipped.
type Paths struct {
	CPU          string
	Mem          string
	RuntimeTrace string
}

// Session owns the files of active profilers until Stop.
type Session struct {
	paths     Paths
	cpuFile   *os.File
	traceFile *os.File
	stopped   bool
}

// Start enables the profilers named in p. On error nothing stays active.
func Start(p Paths) (*Session, error) {
	s := &Session{paths: p}
	if p.CPU != "" {
		f, err := os.Create(p.CPU)
		if err != nil {
			return nil, fmt.Errorf("cpu profile: %w", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("cpu profile: %w", err)
		}
		s.cpuFile = f
	}
	if p.RuntimeTrace != "" {
		f, err := os.Create(p.RuntimeTrace)
		if err == nil {
			if err = rtrace.Start(f); err != nil {
				_ = f.Close()
			}
		}
		if err != nil {
			_ = s.Stop()
			return nil, fmt.Errorf("runtime trace: %w", err)
		}
		s.traceFile = f
	}
	return s, nil
}

// Stop ends the profilers and writes the heap profile. Calling it again is
// a no-op.
func (s *Session) Stop() error {
	if s == nil || s.stopped {
		return nil
	}
	s.stopped = true
	var errs []error
	if s.traceFile != nil {
		rtrace.Stop()
		errs = append(errs, s.traceFile.Close())
	}
	if s.cpuFile != nil {
		pprof.StopCPUProfile()
		errs = append(errs, s.cpuFile.Close())
	}
	if s.paths.Mem != "" {
		errs = append(errs, writeHeap(s.paths.Mem))
	}
	return errors.Join(errs...)
}

func writeHeap(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("heap profile: %w", err)
	}
	runtime.GC()
	if err := pprof.WriteHeapProfile(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("heap profile: %w", err)
	}
	return f.Close()
}
