package research

import (
	"sync"
	"time"
)

// TraceEntry records one stage of a run. The trace sits beside the report
// and never inside it.
type TraceEntry struct {
	Stage    string        `json:"stage"`
	Summary  string        `json:"summary"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
	Fallback bool          `json:"fallback"`
	Reason   string        `json:"reason,omitempty"`
	Detail   string        `json:"detail,omitempty"`
}

// tracer collects entries for one run and forwards them to the observer.
type tracer struct {
	mu       sync.Mutex
	entries  []TraceEntry
	observer TraceObserver
	now      func() time.Time
}

func newTracer(now func() time.Time, observer TraceObserver) *tracer {
	return &tracer{now: now, observer: observer}
}

func (t *tracer) record(e TraceEntry) {
	t.mu.Lock()
	t.entries = append(t.entries, e)
	t.mu.Unlock()
	if t.observer != nil {
		t.observer(e)
	}
}

// stage records an entry for a stage that started at started and ends now.
func (t *tracer) stage(name string, started time.Time, summary string) {
	t.record(TraceEntry{Stage: name, Summary: summary, Started: started, Duration: t.now().Sub(started)})
}

// fallback records a fallback with its reason and detail.
func (t *tracer) fallback(name string, started time.Time, reason string, err error, summary string) {
	e := TraceEntry{
		Stage:    name,
		Summary:  summary,
		Started:  started,
		Duration: t.now().Sub(started),
		Fallback: true,
		Reason:   reason,
	}
	if err != nil {
		e.Detail = err.Error()
	}
	t.record(e)
}

func (t *tracer) snapshot() []TraceEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]TraceEntry(nil), t.entries...)
}
