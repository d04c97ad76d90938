package capture

import (
	"fmt"
	"sync"
	"time"
)

// DefaultCapacity is the ring size used when none is configured.
const DefaultCapacity = 256

// Event categories.
const (
	CategoryWrite   = "write"   // line transmitted to the worker
	CategoryBuilt   = "built"   // line built but not transmitted (dry run, dead worker)
	CategoryRead    = "read"    // line received from the worker
	CategoryEvent   = "event"   // lifecycle event
	CategoryTimeout = "timeout" // readiness deadline expiry
)

// Event is one recorded wire event.
type Event struct {
	Time     time.Time `json:"time"`
	Category string    `json:"category"`
	Text     string    `json:"text"`
}

// Sink receives a copy of every recorded event, for mirroring to a
// time-series store. Implementations must not block.
type Sink interface {
	WriteEvent(event Event)
}

// Recorder is a fixed-capacity ring of wire events.
// All methods are safe for concurrent use.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	next   int
	filled bool
	sink   Sink
}

// New creates a recorder. A capacity below 1 falls back to the default.
func New(capacity int) *Recorder {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Recorder{
		events: make([]Event, capacity),
	}
}

// SetSink attaches a mirror sink. Pass nil to detach.
func (r *Recorder) SetSink(sink Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sink = sink
}

// Record stores one event, overwriting the oldest once the ring is full.
func (r *Recorder) Record(category, format string, args ...any) {
	event := Event{
		Time:     time.Now(),
		Category: category,
		Text:     fmt.Sprintf(format, args...),
	}

	r.mu.Lock()
	r.events[r.next] = event
	r.next++
	if r.next == len(r.events) {
		r.next = 0
		r.filled = true
	}
	sink := r.sink
	r.mu.Unlock()

	if sink != nil {
		sink.WriteEvent(event)
	}
}

// Events returns the recorded events in chronological order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.filled {
		out := make([]Event, r.next)
		copy(out, r.events[:r.next])
		return out
	}

	out := make([]Event, 0, len(r.events))
	out = append(out, r.events[r.next:]...)
	out = append(out, r.events[:r.next]...)
	return out
}

// Len returns the number of events currently held.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.filled {
		return len(r.events)
	}
	return r.next
}
