package status

import "sync"

// Recorder keeps the most recent events in memory.
type Recorder struct {
	mu     sync.RWMutex
	max    int
	events []Event
}

// NewRecorder keeps up to max events, max <= 0 keeps all.
func NewRecorder(max int) *Recorder {
	return &Recorder{max: max}
}

func (r *Recorder) Report(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, e)
	if r.max > 0 && len(r.events) > r.max {
		r.events = append(r.events[:0:0], r.events[len(r.events)-r.max:]...)
	}
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Event(nil), r.events...)
}

// Lines returns the recorded events as status lines.
func (r *Recorder) Lines() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lines := make([]string, len(r.events))
	for i, e := range r.events {
		lines[i] = e.String()
	}
	return lines
}

// Count returns the number of recorded events of kind k.
func (r *Recorder) Count(k Kind) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, e := range r.events {
		if e.Kind == k {
			n++
		}
	}
	return n
}

// Filter returns the recorded events of kind k.
func (r *Recorder) Filter(k Kind) []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var events []Event
	for _, e := range r.events {
		if e.Kind == k {
			events = append(events, e)
		}
	}
	return events
}

// Reset drops all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
