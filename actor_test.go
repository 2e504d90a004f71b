package timewarp

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// queueMailbox is a deterministic, non-blocking Mailbox stand-in: Recv
// ignores its timeout argument entirely and just pops the next queued
// message, which is enough to drive the dispatch loop through scripted
// scenarios without depending on wall-clock timing.
type queueMailbox struct {
	msgs []any
}

func (m *queueMailbox) Recv(time.Duration) (any, bool) {
	if len(m.msgs) == 0 {
		return nil, false
	}
	msg := m.msgs[0]
	m.msgs = m.msgs[1:]
	return msg, true
}

func (m *queueMailbox) push(msgs ...any) { m.msgs = append(m.msgs, msgs...) }

// sumBehavior treats state as an int accumulator and every payload as an
// int delta to add. TickTock never advances on its own (returns cur
// unchanged) so tests control time purely via delivered events.
type sumBehavior struct {
	handled   []LVT
	tickTocks int
	terminated bool
}

func (b *sumBehavior) Init(arg any) (any, error) {
	n, _ := arg.(int)
	return n, nil
}

func (b *sumBehavior) HandleEvent(ctx EventContext, payload any, state any) (any, error) {
	b.handled = append(b.handled, ctx.Next)
	total := state.(int)
	if delta, ok := payload.(int); ok {
		total += delta
	}
	return total, nil
}

func (b *sumBehavior) TickTock(cur LVT, state any) (LVT, any) {
	b.tickTocks++
	return cur, state
}

func (b *sumBehavior) Terminate(state any) { b.terminated = true }

func newTestActor(mb *queueMailbox, behavior Behavior, initial any) (*runtimeActor, *actorRef) {
	ref := &actorRef{id: "test-actor", endpoint: nil}
	a := &runtimeActor{
		self:           ref,
		behavior:       behavior,
		mailbox:        mb,
		logger:         noopLogger{},
		buffer:         NewEventBuffer(),
		history:        NewStateHistory(initial),
		past:           NewPastLog(),
		initialTimeout: 0,
	}
	a.publish = ref.publish
	return a, ref
}

func TestActor_AppliesEventsInLVTOrder(t *testing.T) {
	mb := &queueMailbox{}
	behavior := &sumBehavior{}
	a, _ := newTestActor(mb, behavior, 0)

	mb.push(
		NewEvent(3, 10),
		NewEvent(1, 1),
		NewEvent(2, 5),
		Event{ID: NewEventID(), IsEvent: true, Payload: StopEvent(nil)},
	)

	err := a.Run()
	require.NoError(t, err)

	require.Equal(t, []LVT{1, 2, 3}, behavior.handled)
	_, state := a.history.Head()
	assert.Equal(t, 16, state)
	assert.True(t, behavior.terminated)
}

func TestActor_StragglerTriggersRollback(t *testing.T) {
	mb := &queueMailbox{}
	behavior := &sumBehavior{}
	a, _ := newTestActor(mb, behavior, 0)

	// Apply lvt=5 first, then a straggler at lvt=2 arrives after the
	// actor has already moved past it.
	mb.push(NewEvent(5, 100))
	a.drainAndMerge(0)
	require.NoError(t, a.apply(mustPeek(t, a)))
	assert.Equal(t, LVT(5), a.lvt)

	mb.push(NewEvent(2, 7))
	a.drainAndMerge(0)
	head, ok := a.buffer.Peek()
	require.True(t, ok)
	require.Less(t, uint64(head.LVT), uint64(a.lvt))

	a.rollback(head.LVT)
	// No snapshot was ever taken at lvt=2, so the resume point is the
	// seed state at lvt=0, not the rollback target itself.
	assert.Equal(t, LVT(0), a.lvt)
	assert.False(t, a.committed)

	// The straggler and the rolled-back lvt=5 event should both now be
	// pending, in ascending order.
	assert.Equal(t, 2, a.buffer.Len())
}

func TestActor_AnnihilatesPositiveAndAntiPairBeforeApply(t *testing.T) {
	mb := &queueMailbox{}
	behavior := &sumBehavior{}
	a, _ := newTestActor(mb, behavior, 0)

	id := NewEventID()
	positive := Event{LVT: 4, ID: id, IsEvent: true, Payload: 9}
	anti := AntiEvent(positive)

	mb.push(positive, anti, Event{ID: NewEventID(), IsEvent: true, Payload: StopEvent(nil)})

	err := a.Run()
	require.NoError(t, err)

	assert.Empty(t, behavior.handled, "annihilated pair must never reach HandleEvent")
	_, state := a.history.Head()
	assert.Equal(t, 0, state)
}

func TestActor_AnnihilatesAfterApplyViaRollback(t *testing.T) {
	mb := &queueMailbox{}
	behavior := &sumBehavior{}
	a, _ := newTestActor(mb, behavior, 0)

	id := NewEventID()
	positive := Event{LVT: 3, ID: id, IsEvent: true, Payload: 9}
	mb.push(positive)
	a.drainAndMerge(0)
	require.NoError(t, a.apply(mustPeek(t, a)))
	require.Equal(t, []LVT{3}, behavior.handled)

	anti := AntiEvent(positive)
	mb.push(anti)
	a.drainAndMerge(0)
	head, _ := a.buffer.Peek()
	// An anti-event carries the same lvt as its already-applied positive
	// twin, so it never satisfies head.LVT < a.lvt; the rollback trigger
	// instead falls back to the committed/== case (actor.go's Run loop).
	require.Equal(t, a.lvt, head.LVT)
	require.True(t, a.committed)

	a.rollback(head.LVT)
	head, ok := a.buffer.Peek()
	require.True(t, ok)
	assert.False(t, head.IsEvent)
	a.annihilate(head.ID)
	assert.Equal(t, 0, a.buffer.Len())
}

func TestActor_IdleAdvancesViaTickTock(t *testing.T) {
	mb := &queueMailbox{}
	behavior := &sumBehavior{}
	a, _ := newTestActor(mb, behavior, 0)

	a.drainAndMerge(0)
	require.Equal(t, 0, a.buffer.Len())
	a.tickTock()

	assert.Equal(t, 1, behavior.tickTocks)
}

func TestActor_FossilCollectionTruncatesHistoryAndPastLog(t *testing.T) {
	mb := &queueMailbox{}
	behavior := &sumBehavior{}
	a, _ := newTestActor(mb, behavior, 0)

	for _, lvt := range []LVT{1, 2, 3} {
		mb.push(NewEvent(lvt, 1))
		a.drainAndMerge(0)
		require.NoError(t, a.apply(mustPeek(t, a)))
	}
	require.Equal(t, 4, a.history.Len()) // includes lvt=0 seed
	require.Equal(t, 3, a.past.Len())

	a.fossilCollect(2)

	assert.Equal(t, LVT(2), a.lastGVT)
	assert.LessOrEqual(t, a.history.Len(), 2)
	assert.LessOrEqual(t, a.past.Len(), 2)
}

func TestActor_PrematureGVTUpdateFallsThroughToAnnihilation(t *testing.T) {
	mb := &queueMailbox{}
	behavior := &sumBehavior{}
	a, _ := newTestActor(mb, behavior, 0)

	// A GVT_UPDATE ahead of the actor's own clock (spec.md §4.5 rule 3's
	// parenthetical "fall through to rule 5") must never reach
	// HandleEvent or the past log — it's simply discarded until a later,
	// caught-up GVT_UPDATE arrives.
	gvtUpdate := Event{LVT: 5, ID: NewEventID(), IsEvent: false, Payload: GVTUpdateEvent(5)}
	mb.push(gvtUpdate)
	a.drainAndMerge(0)

	head, ok := a.buffer.Peek()
	require.True(t, ok)
	target, isGVT := isGVTUpdate(head)
	require.True(t, isGVT)
	require.Less(t, uint64(a.lvt), uint64(target), "rule 3 only fires fossil collection when current_lvt >= head.lvt")
	require.False(t, head.IsEvent, "a premature GVT_UPDATE must carry is_event=false so it falls through to rule 5")

	a.annihilate(head.ID)

	assert.Equal(t, 0, a.buffer.Len())
	assert.Empty(t, behavior.handled, "a premature GVT_UPDATE must never reach HandleEvent")
	assert.Equal(t, 0, a.past.Len(), "a premature GVT_UPDATE must never be recorded in the past log")
	assert.Equal(t, LVT(0), a.lastGVT, "fossil collection must not run for a premature GVT_UPDATE")
}

func TestActor_FossilCollectionDropsNonMonotonicUpdate(t *testing.T) {
	mb := &queueMailbox{}
	behavior := &sumBehavior{}
	a, _ := newTestActor(mb, behavior, 0)
	a.lastGVT = 5

	a.fossilCollect(3)

	assert.Equal(t, LVT(5), a.lastGVT, "a GVT update lower than the last observed one must be dropped, not applied")
}

func TestActor_HandlerFailureUnwindsCausalEffects(t *testing.T) {
	mb := &queueMailbox{}
	downstream := &stubRef{id: "downstream"}
	behavior := &causalThenFailBehavior{target: downstream}
	a, _ := newTestActor(mb, behavior, 0)

	mb.push(NewEvent(1, "emit"), NewEvent(2, "fail"))

	err := a.Run()
	require.Error(t, err)
	var hf *HandlerFailure
	require.True(t, errors.As(err, &hf))

	require.Len(t, downstream.notify, 2, "expected the original causal event plus its anti-event unwind")
	assert.True(t, downstream.notify[0].IsEvent)
	assert.False(t, downstream.notify[1].IsEvent)
	assert.Equal(t, downstream.notify[0].ID, downstream.notify[1].ID)
}

// causalThenFailBehavior emits one causally-linked event to target on its
// first handled event, then fails outright on the next.
type causalThenFailBehavior struct {
	target Ref
	calls  int
}

func (b *causalThenFailBehavior) Init(arg any) (any, error) { return 0, nil }

func (b *causalThenFailBehavior) HandleEvent(ctx EventContext, payload any, state any) (any, error) {
	b.calls++
	if b.calls == 1 {
		ctx.Emit(b.target, ctx.Next, "hello")
		return state, nil
	}
	return nil, errors.New("boom")
}

func (b *causalThenFailBehavior) TickTock(cur LVT, state any) (LVT, any) { return cur, state }
func (b *causalThenFailBehavior) Terminate(state any)                   {}

func mustPeek(t *testing.T, a *runtimeActor) Event {
	t.Helper()
	e, ok := a.buffer.Peek()
	require.True(t, ok)
	return e
}
