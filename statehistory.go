package timewarp

// StateHistory is the actor's saved (lvt, user_state) pairs, strictly
// descending by lvt. It is always non-empty once the actor has completed
// init; the head is the current state snapshot at the actor's current LVT.
type StateHistory struct {
	entries []stateEntry // descending by LVT
}

type stateEntry struct {
	LVT   LVT
	State any
}

// NewStateHistory returns a state history seeded with the actor's initial
// (lvt=0, state) snapshot produced by Behavior.Init.
func NewStateHistory(initial any) *StateHistory {
	return &StateHistory{entries: []stateEntry{{LVT: 0, State: initial}}}
}

// Head returns the current (lvt, state) pair.
func (h *StateHistory) Head() (LVT, any) {
	e := h.entries[0]
	return e.LVT, e.State
}

// Append records a new snapshot. If the history is empty, it is stored
// outright. If lvt equals the head's lvt, the head is replaced in place
// (same-tick state update). If lvt is greater, the entry is prepended.
// Appending an lvt strictly older than the head is a programming error:
// the dispatch loop never calls Append with an older lvt.
func (h *StateHistory) Append(lvt LVT, state any) error {
	if len(h.entries) == 0 {
		h.entries = []stateEntry{{LVT: lvt, State: state}}
		return nil
	}
	head := h.entries[0]
	switch {
	case lvt == head.LVT:
		h.entries[0] = stateEntry{LVT: lvt, State: state}
	case lvt > head.LVT:
		h.entries = append([]stateEntry{{LVT: lvt, State: state}}, h.entries...)
	default:
		return &InvariantViolation{Reason: ErrStateHistoryRegressed}
	}
	return nil
}

// TruncateAbove drops every entry whose lvt is >= t, leaving the head (if
// any survives) strictly before t — the resume point a rollback to t
// replays forward from, since Rollback's own replay set is inclusive of
// lvt == t (see rollback.go). The oldest entry (the actor's epoch-zero
// seed snapshot) is never dropped, so Head never panics on an empty
// history even when t == 0.
func (h *StateHistory) TruncateAbove(t LVT) {
	i := 0
	for i < len(h.entries)-1 && h.entries[i].LVT >= t {
		i++
	}
	h.entries = h.entries[i:]
}

// TruncateBelow drops every entry whose lvt is < t. Used by GVT fossil
// collection; the oldest surviving entry's lvt is then >= t.
func (h *StateHistory) TruncateBelow(t LVT) {
	i := len(h.entries)
	for i > 0 && h.entries[i-1].LVT < t {
		i--
	}
	h.entries = h.entries[:i]
}

// Len reports how many snapshots are retained.
func (h *StateHistory) Len() int { return len(h.entries) }
