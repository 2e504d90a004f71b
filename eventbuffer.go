package timewarp

import "sort"

// bufKey is the de-duplication key for the event buffer: a positive event
// and its anti-event share an EventID but are distinct entries (that's
// what lets rule 5 find a live twin to annihilate), so uniqueness is keyed
// on (id, class), not id alone.
type bufKey struct {
	id      EventID
	isEvent bool
}

// EventBuffer is the ordered, de-duplicated set of pending events awaiting
// dispatch. It is sorted ascending by (lvt, class, id), where class ranks
// an anti-event before a positive event of the same (lvt, id) — see
// SPEC_FULL.md §9 / spec.md's design notes on anti-events sorting first.
// No two entries share the same (id, is_event) pair. Implementations may
// use a balanced tree, skip list, or sorted slice depending on batch
// sizes — this one is a sorted slice with a side index, adequate for the
// batch sizes a single actor's mailbox produces.
type EventBuffer struct {
	events []Event
	index  map[bufKey]int // (id, class) -> position in events, kept in sync on every mutation
}

// NewEventBuffer returns an empty ordered event buffer.
func NewEventBuffer() *EventBuffer {
	return &EventBuffer{index: make(map[bufKey]int)}
}

// Len returns the number of pending events.
func (b *EventBuffer) Len() int { return len(b.events) }

// Insert adds e to the buffer, preserving sort order. If an entry with
// the same (id, class) is already present it is replaced in place
// (duplicate anti-events are expected to be absorbed idempotently by the
// dispatch loop's annihilation rule, not by Insert).
func (b *EventBuffer) Insert(e Event) {
	key := bufKey{id: e.ID, isEvent: e.IsEvent}
	if pos, ok := b.index[key]; ok {
		b.events[pos] = e
		return
	}
	pos := sort.Search(len(b.events), func(i int) bool { return !less(b.events[i], e) })
	b.events = append(b.events, Event{})
	copy(b.events[pos+1:], b.events[pos:])
	b.events[pos] = e
	b.reindexFrom(pos)
}

// Union merges other into b, in ascending order, preserving b's own
// invariants. other is typically a just-drained mailbox batch or a
// rollback replay set.
func (b *EventBuffer) Union(other []Event) {
	for _, e := range other {
		b.Insert(e)
	}
}

// Peek returns the head of the buffer (lowest sort key) without removing
// it, and false if the buffer is empty.
func (b *EventBuffer) Peek() (Event, bool) {
	if len(b.events) == 0 {
		return Event{}, false
	}
	return b.events[0], true
}

// Pop removes and returns the head of the buffer.
func (b *EventBuffer) Pop() (Event, bool) {
	e, ok := b.Peek()
	if !ok {
		return Event{}, false
	}
	b.removeAt(0)
	return e, true
}

// Filter removes every entry for which keep returns false. Used by the
// dispatch loop's annihilation rule to drop an anti-event's head entry
// together with its positive twin (and any duplicate anti-events) in one
// pass, matched by id regardless of class.
func (b *EventBuffer) Filter(keep func(Event) bool) {
	kept := b.events[:0]
	for _, e := range b.events {
		if keep(e) {
			kept = append(kept, e)
		}
	}
	b.events = kept
	b.index = make(map[bufKey]int, len(kept))
	b.reindexFrom(0)
}

// Snapshot returns a copy of the pending events in ascending order, for
// inspection (e.g. by httpintrospect) without exposing internal storage.
func (b *EventBuffer) Snapshot() []Event {
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}

func (b *EventBuffer) removeAt(pos int) {
	key := bufKey{id: b.events[pos].ID, isEvent: b.events[pos].IsEvent}
	b.events = append(b.events[:pos], b.events[pos+1:]...)
	delete(b.index, key)
	b.reindexFrom(pos)
}

func (b *EventBuffer) reindexFrom(from int) {
	for i := from; i < len(b.events); i++ {
		e := b.events[i]
		b.index[bufKey{id: e.ID, isEvent: e.IsEvent}] = i
	}
}
