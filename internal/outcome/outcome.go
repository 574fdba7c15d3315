package outcome

import (
	"context"
	"sync"
	"time"
)

// Event describes the classified result of one adapter operation. Events feed
// analytics and support triage; they carry the platform status code and, for
// connectivity failures, the refined code extracted from the diagnostic text.
type Event struct {
	ID          string    `json:"id"`
	CallID      string    `json:"call_id"`
	Operation   string    `json:"operation"`
	Outcome     string    `json:"outcome"`
	Disposition string    `json:"disposition"`
	StatusCode  *int      `json:"status_code,omitempty"`
	RefinedCode *int      `json:"refined_code,omitempty"`
	Error       string    `json:"error,omitempty"`
	DurationMs  int64     `json:"duration_ms"`
	Timestamp   time.Time `json:"timestamp"`
}

// Sink receives outcome events. Implementations must be safe for concurrent use.
type Sink interface {
	Record(ctx context.Context, event Event) error
}

// NopSink discards every event.
type NopSink struct{}

// Record implements Sink.
func (NopSink) Record(context.Context, Event) error { return nil }

// Recorder keeps events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Record implements Sink.
func (r *Recorder) Record(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// IntPtr is a helper for the optional code fields.
func IntPtr(v int) *int {
	return &v
}
