package trace

import (
	"fmt"
	"sync"
	"time"
)

// Heartbeat emits a periodic event carrying the number of open spans. If the
// beats continue while no span ends, the run is stuck.
type Heartbeat struct {
	tracer   Tracer
	interval time.Duration
	stop     chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
}

// StartHeartbeat starts beating every interval. It returns nil when tracing
// is off or interval is not positive; Stop on nil is fine.
func StartHeartbeat(t Tracer, interval time.Duration) *Heartbeat {
	if t == nil || !t.Enabled() || interval <= 0 {
		return nil
	}
	h := &Heartbeat{tracer: t, interval: interval, stop: make(chan struct{})}
	h.wg.Add(1)
	go h.run()
	return h
}

func (h *Heartbeat) run() {
	defer h.wg.Done()
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	var n uint64
	for {
		select {
		case now := <-ticker.C:
			n++
			h.tracer.Emit(&Event{
				Time:   now,
				Seq:    NextSeq(),
				Kind:   KindHeartbeat,
				Scope:  ScopeDriver,
				Name:   "heartbeat",
				Detail: fmt.Sprintf("#%d open=%d", n, OpenSpans()),
			})
		case <-h.stop:
			return
		}
	}
}

// Stop ends the heartbeat and waits for the goroutine.
func (h *Heartbeat) Stop() {
	if h == nil {
		return
	}
	h.once.Do(func() { close(h.stop) })
	h.wg.Wait()
}
