package timewarp

import "fmt"

// Behavior is the user-supplied callback module the kernel drives. All
// four operations are treated as potentially panicking user code: the
// callback shim (invoke* helpers below) recovers and surfaces a panic as
// an error, never lets it escape into the dispatch loop.
type Behavior interface {
	// Init builds the initial user state at lvt=0 from a user-supplied
	// argument. An error here fails actor startup; the caller of Spawn
	// sees the failure.
	Init(arg any) (state any, err error)

	// HandleEvent applies a single event to the current state. ctx carries
	// the before/after lvt and an Effects sink the behavior can use to
	// emit causally-linked events to other actors as a side effect of
	// processing; the kernel both delivers those and records them in this
	// actor's own past log so a later rollback can undo them (spec §4.4,
	// §4.6). An error here aborts the actor (see spec §7, §9).
	HandleEvent(ctx EventContext, payload any, state any) (newState any, err error)

	// TickTock is invoked when the actor is idle (no pending events after
	// a mailbox drain bounded by the registry's InitialDrainTimeout). It
	// returns the next virtual time to
	// advance to (next >= cur) and the resulting state.
	TickTock(cur LVT, state any) (nextLVT LVT, nextState any)

	// Terminate runs best-effort cleanup when the actor is stopping. Its
	// return value, if any, is not inspected by the kernel.
	Terminate(state any)
}

// EventContext carries the before/after virtual time of the event being
// applied plus the Effects sink for emitting causally-linked events.
type EventContext struct {
	Cur, Next LVT
	effects   *Effects
}

// Emit records a causally-linked event to be delivered to target once
// HandleEvent returns successfully, and to be tracked in this actor's own
// past log (keyed by ctx.Next) so that rolling back past this point emits
// an anti-event to target instead of silently forgetting the send.
func (c EventContext) Emit(target Ref, lvt LVT, payload any) {
	c.effects.record(target, lvt, payload)
}

// Effects accumulates the causally-linked sends a single HandleEvent call
// makes.
type Effects struct {
	sent []effect
}

type effect struct {
	Target Ref
	Event  Event
}

func (e *Effects) record(target Ref, lvt LVT, payload any) {
	e.sent = append(e.sent, effect{
		Target: target,
		Event:  Event{LVT: lvt, ID: NewEventID(), IsEvent: true, Payload: payload},
	})
}

// invokeInit calls b.Init, converting a panic into an *InitFailure.
func invokeInit(b Behavior, arg any) (state any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &InitFailure{Reason: fmt.Errorf("%w: %v", ErrBehaviorPanicked, r)}
		}
	}()
	state, initErr := b.Init(arg)
	if initErr != nil {
		return nil, &InitFailure{Reason: initErr}
	}
	return state, nil
}

// invokeHandleEvent calls b.HandleEvent, converting a panic into a
// *HandlerFailure.
func invokeHandleEvent(b Behavior, cur, next LVT, payload, state any, effects *Effects) (newState any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &HandlerFailure{Reason: fmt.Errorf("%w: %v", ErrBehaviorPanicked, r)}
		}
	}()
	ctx := EventContext{Cur: cur, Next: next, effects: effects}
	newState, handleErr := b.HandleEvent(ctx, payload, state)
	if handleErr != nil {
		return nil, &HandlerFailure{Reason: handleErr}
	}
	return newState, nil
}

// invokeTickTock calls b.TickTock. A panic here is an invariant violation:
// tick_tock has no error return in the contract, so a misbehaving
// behavior is a kernel-fatal bug, not a recoverable handler failure.
func invokeTickTock(b Behavior, cur LVT, state any) (nextLVT LVT, nextState any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &InvariantViolation{Reason: fmt.Errorf("%w: %v", ErrBehaviorPanicked, r)}
		}
	}()
	nextLVT, nextState = b.TickTock(cur, state)
	if nextLVT < cur {
		return 0, nil, &InvariantViolation{Reason: ErrTickTockWentBackwards}
	}
	return nextLVT, nextState, nil
}

// invokeTerminate calls b.Terminate, swallowing any panic: terminate is
// best-effort cleanup and must never prevent the actor from exiting.
func invokeTerminate(b Behavior, state any) {
	defer func() { _ = recover() }()
	b.Terminate(state)
}
