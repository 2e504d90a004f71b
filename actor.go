package timewarp

import (
	"time"
)

// GCHint is called by the dispatch loop after fossil collection, giving
// the host runtime an opportunity to reclaim the pruned state snapshots
// and past-event entries (e.g. runtime.GC(), or a release-pool reset).
// It is optional; a nil hint is a no-op.
type GCHint func()

// runtimeActor is the live, single-goroutine execution of one TW-actor.
// All of its fields are private to the goroutine running Run; the only
// cross-goroutine entry point is the mailbox it drains from and the Ref
// it's addressed by.
type runtimeActor struct {
	self     *actorRef
	behavior Behavior
	mailbox  Mailbox
	logger   Logger

	buffer  *EventBuffer
	history *StateHistory
	past    *PastLog

	lvt            LVT
	lastGVT        LVT
	initialTimeout time.Duration
	gcHint         GCHint

	pendingStop *Event // set by drain when a STOP event is seen, honoured once the buffer is empty

	// committed is false until the first real event application. An
	// anti-event shares its positive twin's lvt exactly, so the straggler
	// check below must treat "== a.lvt" as a rollback case too, but only
	// once some event has actually been committed at that lvt — otherwise
	// the very first event ever applied, landing at lvt 0 (== the initial
	// a.lvt), would spuriously roll back against the seed state.
	committed bool

	// publish, if set, reports the actor's latest (lvt, history depth,
	// past-log depth) after every state transition for introspection
	// (Registry wires this to the actorRef's atomic fields).
	publish func(lvt LVT, historyDepth, pastLogDepth int)
}

func (a *runtimeActor) publishState() {
	if a.publish != nil {
		a.publish(a.lvt, a.history.Len(), a.past.Len())
	}
}

// Run is the dispatch loop. It returns the reason the actor stopped: the
// STOP event's reason (nil for Stop(ref, nil)), or the error that aborted
// it (InitFailure never reaches here — Init is called by the registry
// before Run starts). A pending STOP is honoured once every event already
// in the buffer has been processed; nothing further is drained after it.
func (a *runtimeActor) Run() error {
	for {
		if a.pendingStop != nil && a.buffer.Len() == 0 {
			reason, _ := isStop(*a.pendingStop)
			_, state := a.history.Head()
			invokeTerminate(a.behavior, state)
			a.logger.Info("actor stopped", "actor", a.self.ID(), "reason", reason)
			return reason
		}

		if a.buffer.Len() == 0 {
			a.drainAndMerge(a.initialTimeout)
			if a.buffer.Len() == 0 && a.pendingStop == nil {
				a.tickTock()
			}
			continue
		}

		head, _ := a.buffer.Peek()

		if t, ok := isGVTUpdate(head); ok {
			if a.lvt >= t {
				a.fossilCollect(t)
				a.buffer.Pop()
				continue
			}
			// current_lvt < head.lvt: this GVT update is ahead of the
			// actor's own clock (spec.md §4.5 rule 3's parenthetical).
			// It carries is_event == false, so it falls through to rule
			// 5 below, which discards it — a later, recomputed GVT_UPDATE
			// will arrive once this actor has caught up.
		}

		if head.LVT < a.lvt || (a.committed && head.LVT == a.lvt) {
			a.rollback(head.LVT)
			continue
		}

		if !head.IsEvent {
			a.annihilate(head.ID)
			continue
		}

		if err := a.apply(head); err != nil {
			a.unwindSinceGVT()
			_, state := a.history.Head()
			invokeTerminate(a.behavior, state)
			a.logger.Error("actor aborted", "actor", a.self.ID(), "error", err)
			return err
		}
	}
}

// drainAndMerge drains the mailbox and merges the result into the event
// buffer, diverting any STOP event into pendingStop instead (spec §9:
// STOP is polled-for, bypassing the buffer's lvt ordering).
func (a *runtimeActor) drainAndMerge(timeout time.Duration) {
	drained := drain(a.mailbox, timeout, a.logger)
	for _, e := range drained {
		if reason, ok := isStop(e); ok {
			if a.pendingStop == nil {
				stopCopy := e
				a.pendingStop = &stopCopy
				a.logger.Debug("stop event observed", "actor", a.self.ID(), "reason", reason)
			}
			continue
		}
		a.buffer.Insert(e)
	}
}

func (a *runtimeActor) tickTock() {
	cur, state := a.history.Head()
	next, nextState, err := invokeTickTock(a.behavior, cur, state)
	if err != nil {
		a.logger.Error("tick_tock invariant violation", "actor", a.self.ID(), "error", err)
		panic(err) // an InvariantViolation from tick_tock is unrecoverable by contract
	}
	if appendErr := a.history.Append(next, nextState); appendErr != nil {
		panic(appendErr)
	}
	a.lvt = next
	a.publishState()
}

func (a *runtimeActor) fossilCollect(t LVT) {
	if t < a.lastGVT {
		a.logger.Warn("dropping non-monotonic GVT update", "actor", a.self.ID(), "observed", a.lastGVT, "incoming", t)
		return
	}
	a.history.TruncateBelow(t)
	a.past.TruncateBelow(t)
	a.lastGVT = t
	if a.gcHint != nil {
		a.gcHint()
	}
	a.publishState()
	a.logger.Debug("fossil collected", "actor", a.self.ID(), "gvt", t)
}

func (a *runtimeActor) rollback(target LVT) {
	replay, newPast := Rollback(target, a.past.Snapshot())
	a.past.replace(newPast)

	reinject, antiEvents := partitionReplay(replay)
	a.buffer.Union(reinject)
	for _, ae := range antiEvents {
		ae.Origin.Notify(ae.Event)
	}

	a.history.TruncateAbove(target)
	a.lvt, _ = a.history.Head()
	a.committed = a.past.Len() > 0
	a.publishState()
	a.logger.Debug("rolled back", "actor", a.self.ID(), "target", target, "reinjected", len(reinject), "anti_events", len(antiEvents))
}

// annihilate drops the anti-event at the head together with every other
// buffer entry sharing its id — at most one positive twin plus any
// duplicate anti-events, absorbed idempotently (spec.md §4.5 rule 5).
func (a *runtimeActor) annihilate(id EventID) {
	a.buffer.Filter(func(e Event) bool { return e.ID != id })
}

func (a *runtimeActor) apply(e Event) error {
	a.buffer.Pop()

	_, state := a.history.Head()
	effects := &Effects{}
	newState, err := invokeHandleEvent(a.behavior, a.lvt, e.LVT, e.Payload, state, effects)
	if err != nil {
		a.buffer.Insert(e) // leave the failed event visible for diagnostics
		return err
	}

	if appendErr := a.history.Append(e.LVT, newState); appendErr != nil {
		return &InvariantViolation{Reason: appendErr}
	}

	applied := e
	applied.Link = Link{}
	a.past.Record(applied)
	for _, eff := range effects.sent {
		eff.Target.Notify(eff.Event)
		a.past.Record(Event{
			LVT:     e.LVT,
			ID:      eff.Event.ID,
			IsEvent: true,
			Link:    Link{Origin: eff.Target, linked: true},
			Payload: eff.Event.Payload,
		})
	}
	a.lvt = e.LVT
	a.committed = true
	a.publishState()
	return nil
}

// unwindSinceGVT emits anti-events for every causally-linked send this
// actor made at or after the last observed GVT, so a HandlerFailure does
// not strand peers waiting on work this actor can no longer guarantee
// completed (spec §7, resolved per SPEC_FULL.md §7/§9).
func (a *runtimeActor) unwindSinceGVT() {
	replay, newPast := Rollback(a.lastGVT, a.past.Snapshot())
	a.past.replace(newPast)
	_, antiEvents := partitionReplay(replay)
	for _, ae := range antiEvents {
		ae.Origin.Notify(ae.Event)
	}
	if len(antiEvents) > 0 {
		a.logger.Warn("unwound causal effects after handler failure", "actor", a.self.ID(), "count", len(antiEvents))
	}
}
