package timewarp

// PastLog is the actor's processed-event log, descending by lvt, used as
// the rollback replay source. All entries' lvts are <= the actor's current
// LVT. Reserved payloads (Stop, GVTUpdate) are never stored here.
type PastLog struct {
	events []Event // descending by LVT
}

// NewPastLog returns an empty past-event log.
func NewPastLog() *PastLog { return &PastLog{} }

// Record appends e to the front of the log; callers must only record
// events in non-decreasing lvt order of application, which keeps the log
// descending by lvt (most recently applied first).
func (p *PastLog) Record(e Event) {
	p.events = append([]Event{e}, p.events...)
}

// Len reports how many events are retained.
func (p *PastLog) Len() int { return len(p.events) }

// TruncateBelow drops every entry whose lvt is < t, used by GVT fossil
// collection.
func (p *PastLog) TruncateBelow(t LVT) {
	i := len(p.events)
	for i > 0 && p.events[i-1].LVT < t {
		i--
	}
	p.events = p.events[:i]
}

// Snapshot returns a copy of the retained events, descending by lvt.
func (p *PastLog) Snapshot() []Event {
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// replace swaps the backing slice wholesale; used by rollback to install
// the new_past returned from Rollback.
func (p *PastLog) replace(events []Event) {
	p.events = events
}
