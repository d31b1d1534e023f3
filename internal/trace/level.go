package trace

import (
	"fmt"
	"strings"
)

// Level controls tracing verbosity.
type Level uint8

const (
	LevelOff    Level = iota
	LevelError        // only dumped on failure
	LevelPhase        // driver and passes
	LevelDetail       // plus units
	LevelDebug        // plus functions
)

func (l Level) String() string {
	switch l {
	case LevelOff:
		return "off"
	case LevelError:
		return "error"
	case LevelPhase:
		return "phase"
	case LevelDetail:
		return "detail"
	case LevelDebug:
		return "debug"
	default:
		return "unknown"
	}
}

// ParseLevel converts a flag value to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "off", "":
		return LevelOff, nil
	case "error":
		return LevelError, nil
	case "phase":
		return LevelPhase, nil
	case "detail":
		return LevelDetail, nil
	case "debug":
		return LevelDebug, nil
	default:
		return LevelOff, fmt.Errorf("invalid trace level: %q (expected: off|error|phase|detail|debug)", s)
	}
}

// ShouldEmit reports whether events of scope are recorded at this level.
func (l Level) ShouldEmit(scope Scope) bool {
	switch l {
	case LevelPhase:
		return scope <= ScopePass
	case LevelDetail:
		return scope <= ScopeUnit
	case LevelDebug:
		return true
	default:
		// LevelError records nothing up front; failures go through the ring dump.
		return false
	}
}

// Keeps reports whether events of scope are worth recording at all: either
// emitted at this level or kept for a failure dump at LevelError.
func (l Level) Keeps(scope Scope) bool {
	return l.ShouldEmit(scope) || l == LevelError && scope <= ScopeUnit
}
