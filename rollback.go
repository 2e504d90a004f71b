package timewarp

// Rollback splits the past-event log P at target virtual time T and
// returns (replaySet, newPast) where:
//
//   - newPast is the tail of P containing exactly the events with
//     lvt < T, still descending.
//   - replaySet contains every event in P with lvt >= T, returned in
//     ascending order (suitable for merging back into the event buffer).
//
// Example: T=2, P=[(3),(2),(1),(0)] -> replaySet=[(2),(3)], newPast=[(1),(0)].
//
// For any T and P: replaySet ∪ newPast = P, every e in replaySet has
// e.LVT >= T, every e in newPast has e.LVT < T.
func Rollback(t LVT, past []Event) (replaySet []Event, newPast []Event) {
	cut := len(past)
	for cut > 0 && past[cut-1].LVT < t {
		cut--
	}
	// past[:cut] has LVT >= t (descending); past[cut:] has LVT < t (still descending).
	replaySet = make([]Event, cut)
	for i, e := range past[:cut] {
		replaySet[cut-1-i] = e
	}
	newPast = append([]Event(nil), past[cut:]...)
	return replaySet, newPast
}

// antiEventDelivery pairs an anti-event with the downstream actor it must
// be delivered to.
type antiEventDelivery struct {
	Origin Ref
	Event  Event
}

// partitionReplay splits a rollback replay set into events to re-inject
// into the local event buffer (no causal link) and anti-events owed to
// downstream actors (causally linked). See spec §4.4.
func partitionReplay(replay []Event) (reinject []Event, antiEvents []antiEventDelivery) {
	for _, e := range replay {
		if e.Link.HasLink() {
			antiEvents = append(antiEvents, antiEventDelivery{Origin: e.Link.Origin, Event: AntiEvent(e)})
		} else {
			reinject = append(reinject, e)
		}
	}
	return reinject, antiEvents
}
