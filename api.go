package timewarp

// Stop enqueues a STOP event carrying reason. Per spec.md §9's resolved
// Open Question, the dispatch loop sets a STOP aside when it drains the
// mailbox instead of sorting it into the ordered buffer, and honours it
// once the events already in the buffer have been processed, so the
// event's lvt field is cosmetic — it is never compared against.
func Stop(ref Ref, reason error) {
	ref.Notify(Event{ID: NewEventID(), IsEvent: true, Payload: StopEvent(reason)})
}

// Gvt enqueues a GVT_UPDATE event carrying t. t should be monotonically
// non-decreasing across calls for a given actor; the dispatch loop drops
// (with a logged warning) an update lower than one it has already
// observed rather than enforcing it here (spec.md §9).
//
// IsEvent is false: a GVT_UPDATE that arrives before the actor's clock
// reaches t falls through rule 3 to rule 5 (spec.md §4.5), which only
// discards buffer heads with is_event == false. Constructing it as a
// positive event would let it fall all the way to rule 6 instead,
// handing the reserved gvtUpdatePayload to the user's HandleEvent and
// recording it in the past log — both explicitly disallowed by spec.md
// §3's "reserved payloads are never stored in the past-event log."
func Gvt(ref Ref, t LVT) {
	ref.Notify(Event{LVT: t, ID: NewEventID(), IsEvent: false, Payload: GVTUpdateEvent(t)})
}

// Notify delivers one or more events to ref in a single transport
// message.
func Notify(ref Ref, events ...Event) {
	ref.Notify(events...)
}
