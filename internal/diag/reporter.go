package diag

// Reporter: минимальный контракт получения диагностик от фаз.
type Reporter interface {
	Report(d Diagnostic)
}

// BagReporter: адаптер, который пишет в *Bag.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(d Diagnostic) {
	if r.Bag == nil {
		return
	}
	r.Bag.Add(d)
}

// DedupReporter wraps another Reporter and suppresses duplicate diagnostics
// with the same code, severity, unit, position and message.
type DedupReporter struct {
	next Reporter
	seen map[dedupKey]struct{}
}

type dedupKey struct {
	code Code
	sev  Severity
	unit string
	pos  Position
	msg  string
}

// NewDedupReporter returns a Reporter that filters out duplicates while
// forwarding unique diagnostics to the provided reporter.
func NewDedupReporter(next Reporter) *DedupReporter {
	return &DedupReporter{
		next: next,
		seen: make(map[dedupKey]struct{}),
	}
}

func (r *DedupReporter) Report(d Diagnostic) {
	if r == nil {
		return
	}
	key := dedupKey{code: d.Code, sev: d.Severity, unit: d.Unit, pos: d.Primary, msg: d.Message}
	if _, ok := r.seen[key]; ok {
		return
	}
	r.seen[key] = struct{}{}
	if r.next != nil {
		r.next.Report(d)
	}
}
