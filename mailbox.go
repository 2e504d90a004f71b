package timewarp

import (
	"fmt"
	"time"
)

// Mailbox is the per-actor inbound message source the dispatch loop
// drains. Messages are either Event values or arbitrary non-event values
// that are discarded with a logged warning — they must never reach the
// dispatch loop. Implementations must be safe for Recv to be called from
// a single goroutine (the owning actor's dispatch loop) while other
// goroutines deliver via the matching Ref's Notify.
type Mailbox interface {
	// Recv blocks for up to timeout waiting for one message, returning
	// ok=false if none arrived in time. timeout==0 performs a
	// non-blocking poll.
	Recv(timeout time.Duration) (msg any, ok bool)
}

// drain implements spec §4.1: it collects every message available within
// initialTimeout, then keeps coalescing with zero-timeout polls as long
// as messages keep arriving. If nothing arrives within initialTimeout
// (including the initialTimeout==0 "mailbox is empty" case) it returns an
// empty, non-nil slice.
func drain(mb Mailbox, initialTimeout time.Duration, logger Logger) []Event {
	events := make([]Event, 0)

	msg, ok := mb.Recv(initialTimeout)
	if !ok {
		return events
	}
	appendDrained(&events, msg, logger)

	for {
		msg, ok := mb.Recv(0)
		if !ok {
			return events
		}
		appendDrained(&events, msg, logger)
	}
}

func appendDrained(events *[]Event, msg any, logger Logger) {
	e, isEvent := msg.(Event)
	if !isEvent {
		logger.Warn("discarding unexpected mailbox message",
			"type", fmt.Sprintf("%T", msg),
			"category", CategoryProtocol,
			"error", ErrUnexpectedMessage)
		return
	}
	*events = append(*events, e)
}
