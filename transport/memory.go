// Package transport provides the reference Transport implementations the
// timewarp kernel consumes for mailbox delivery: an in-memory, per-sender
// FIFO channel transport for intra-process actors (spec.md §5), and a
// CloudEvents wire codec for actors reachable over a remote transport.
//
// Grounded on the teacher framework's modules/eventbus channel-based
// MemoryEventBus, adapted from a pub/sub topic model to point-to-point
// per-actor mailboxes.
package transport

import (
	"sync"
	"time"

	"github.com/mitchellwrosen/gentw"
)

// defaultMailboxCapacity bounds how many messages a single endpoint can
// buffer before Notify blocks the sender. Generous enough that a burst of
// stragglers and their anti-events coalesces in one drain pass (spec §4.1).
const defaultMailboxCapacity = 256

// InMemory is a Transport that delivers via buffered Go channels, one per
// spawned endpoint. Notify preserves FIFO ordering per sender because
// each Notify call enqueues its events, in order, onto the single shared
// channel — concurrent senders interleave between calls but never within
// one, satisfying spec.md §5's "preserve per-sender FIFO ordering".
type InMemory struct {
	capacity int
}

// NewInMemory returns an InMemory transport with the default mailbox
// capacity.
func NewInMemory() *InMemory { return &InMemory{capacity: defaultMailboxCapacity} }

// NewInMemoryWithCapacity returns an InMemory transport whose endpoints
// buffer up to capacity messages before Notify blocks.
func NewInMemoryWithCapacity(capacity int) *InMemory {
	if capacity <= 0 {
		capacity = defaultMailboxCapacity
	}
	return &InMemory{capacity: capacity}
}

// NewEndpoint implements timewarp.Transport.
func (t *InMemory) NewEndpoint() timewarp.Endpoint {
	return &memoryEndpoint{ch: make(chan any, t.capacity)}
}

// memoryEndpoint is both the Mailbox the owning actor drains and the
// Notifier other actors deliver through.
type memoryEndpoint struct {
	ch     chan any
	mu     sync.Mutex // guards closed, to make Notify-after-close a no-op instead of a panic
	closed bool
}

// Notify enqueues events, in order, for the owning actor to drain. It
// never blocks the caller beyond the channel's buffer filling up, and is
// safe to call from any goroutine.
func (e *memoryEndpoint) Notify(events ...timewarp.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	for _, ev := range events {
		e.ch <- ev
	}
}

// Recv implements timewarp.Mailbox.
func (e *memoryEndpoint) Recv(timeout time.Duration) (any, bool) {
	if timeout <= 0 {
		select {
		case msg := <-e.ch:
			return msg, true
		default:
			return nil, false
		}
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case msg := <-e.ch:
		return msg, true
	case <-timer.C:
		return nil, false
	}
}

// Close marks the endpoint closed; subsequent Notify calls are silently
// dropped. Draining an already-buffered backlog still works after Close.
func (e *memoryEndpoint) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
}
