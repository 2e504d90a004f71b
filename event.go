package timewarp

import "github.com/google/uuid"

// LVT is the actor's local virtual time: a monotonic non-negative integer
// with no relation to wall-clock time.
type LVT uint64

// EventID uniquely identifies an event. Equality, not structure, is what
// matters: the anti-event/positive-event match relies only on id equality.
type EventID string

// NewEventID returns a fresh globally-unique event id.
func NewEventID() EventID {
	return EventID(uuid.NewString())
}

// Link identifies the actor that caused a causally-linked event. The zero
// value (empty Ref) means "no link" — a spontaneous event or an anti-event.
type Link struct {
	Origin Ref
	linked bool
}

// HasLink reports whether this event carries a causal back-reference.
func (l Link) HasLink() bool { return l.linked }

// stopPayload is the reserved sentinel stored in an event's Payload field
// to request actor termination. It is never stored in the past-event log.
type stopPayload struct {
	Reason error
}

// gvtUpdatePayload is the reserved sentinel carrying a new GVT estimate.
// It is never stored in the past-event log.
type gvtUpdatePayload struct {
	T LVT
}

// StopEvent builds the reserved STOP(reason) payload wrapper. The event
// carrying it is delivered through the ordinary mailbox; the dispatch loop
// keeps it out of the ordered buffer and honours it once the events
// already pending there have been processed (see actor.go Run).
func StopEvent(reason error) any { return stopPayload{Reason: reason} }

// GVTUpdateEvent builds the reserved GVT_UPDATE payload wrapper.
func GVTUpdateEvent(t LVT) any { return gvtUpdatePayload{T: t} }

// Event is an immutable record describing a unit of work for a TW-actor.
type Event struct {
	LVT      LVT
	ID       EventID
	IsEvent  bool // true for a positive event, false for its anti-event
	Link     Link
	Payload  any
}

// NewEvent builds a non-causal positive event; the id is auto-generated.
func NewEvent(lvt LVT, payload any) Event {
	return Event{LVT: lvt, ID: NewEventID(), IsEvent: true, Payload: payload}
}

// NewLinkedEvent builds a causally-linked positive event, tagged with the
// Ref of the actor performing the send so a rollback there can later emit
// an anti-event to unwind it.
func NewLinkedEvent(origin Ref, lvt LVT, payload any) Event {
	return Event{
		LVT:     lvt,
		ID:      NewEventID(),
		IsEvent: true,
		Link:    Link{Origin: origin, linked: true},
		Payload: payload,
	}
}

// AntiEvent returns the anti-event twin of e: same id, same lvt, same
// payload, link cleared, IsEvent false. It is idempotent on the anti-event
// bit and on link-clearing — AntiEvent(AntiEvent(e)) == AntiEvent(e).
func AntiEvent(e Event) Event {
	return Event{
		LVT:     e.LVT,
		ID:      e.ID,
		IsEvent: false,
		Payload: e.Payload,
	}
}

// isStop reports whether e carries the reserved STOP sentinel and, if so,
// returns its reason.
func isStop(e Event) (error, bool) {
	p, ok := e.Payload.(stopPayload)
	if !ok {
		return nil, false
	}
	return p.Reason, true
}

// isGVTUpdate reports whether e carries the reserved GVT_UPDATE sentinel
// and, if so, returns the carried virtual time.
func isGVTUpdate(e Event) (LVT, bool) {
	p, ok := e.Payload.(gvtUpdatePayload)
	if !ok {
		return 0, false
	}
	return p.T, true
}

// less implements the buffer's total order: (lvt ascending, class,
// id ascending), where class ranks an anti-event before a positive event
// at the same (lvt, id) so annihilation always sees the anti-event first
// (spec.md design notes, §9).
func less(a, b Event) bool {
	if a.LVT != b.LVT {
		return a.LVT < b.LVT
	}
	ca, cb := classRank(a), classRank(b)
	if ca != cb {
		return ca < cb
	}
	return a.ID < b.ID
}

// classRank returns 0 for an anti-event, 1 for a positive event.
func classRank(e Event) int {
	if e.IsEvent {
		return 1
	}
	return 0
}
