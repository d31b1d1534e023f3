package pipeline

import (
	"sync"
	"time"
)

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

// FuncSink adapts a function to ProgressSink.
type FuncSink func(Event)

func (f FuncSink) OnEvent(evt Event) {
	if f != nil {
		f(evt)
	}
}

// CollectSink records every event it sees. Tests and the plain-text
// reporter read it back with Events.
type CollectSink struct {
	mu     sync.Mutex
	events []Event
}

func (s *CollectSink) OnEvent(evt Event) {
	s.mu.Lock()
	s.events = append(s.events, evt)
	s.mu.Unlock()
}

func (s *CollectSink) Events() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

// Notify sends one event; a nil sink is ignored.
func Notify(sink ProgressSink, file string, stage Stage, status Status, err error, elapsed time.Duration) {
	if sink == nil {
		return
	}
	sink.OnEvent(Event{File: file, Stage: stage, Status: status, Err: err, Elapsed: elapsed})
}

// Queued marks every file as waiting to be loaded.
func Queued(sink ProgressSink, files []string) {
	for _, f := range files {
		Notify(sink, f, StageLoad, StatusQueued, nil, 0)
	}
}
