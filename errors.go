package timewarp

import "errors"

// Sentinel errors. Kept as package-level vars so callers can match with
// errors.Is regardless of which typed wrapper carries them.
var (
	ErrStateHistoryRegressed = errors.New("timewarp: append called with lvt older than history head")
	ErrTickTockWentBackwards = errors.New("timewarp: tick_tock returned next_lvt < current_lvt")
	ErrBehaviorPanicked      = errors.New("timewarp: behavior callback panicked")
	ErrUnexpectedMessage     = errors.New("timewarp: non-event message discarded from mailbox")
	ErrNoSuchActor           = errors.New("timewarp: no actor registered for ref")
)

// ErrorCategory classifies kernel errors for observability, mirroring the
// taxonomy a host logger or alerting pipeline would key off of.
type ErrorCategory int

const (
	CategoryUnknown ErrorCategory = iota
	CategoryInit
	CategoryHandler
	CategoryInvariant
	CategoryProtocol // discarded/unexpected messages
)

func (c ErrorCategory) String() string {
	switch c {
	case CategoryInit:
		return "init"
	case CategoryHandler:
		return "handler"
	case CategoryInvariant:
		return "invariant"
	case CategoryProtocol:
		return "protocol"
	default:
		return "unknown"
	}
}

// InitFailure wraps a Behavior.Init error. The actor exits before
// acknowledging spawn; the caller of Spawn sees this failure.
type InitFailure struct {
	Reason error
}

func (e *InitFailure) Error() string { return "timewarp: init failed: " + e.Reason.Error() }
func (e *InitFailure) Unwrap() error { return e.Reason }
func (e *InitFailure) Category() ErrorCategory { return CategoryInit }

// HandlerFailure wraps a Behavior.HandleEvent error. The current design
// aborts the actor, emitting anti-events for every causally-linked send
// recorded at or after the last observed GVT before exiting (see
// SPEC_FULL.md §7).
type HandlerFailure struct {
	Reason error
}

func (e *HandlerFailure) Error() string { return "timewarp: handler failed: " + e.Reason.Error() }
func (e *HandlerFailure) Unwrap() error { return e.Reason }
func (e *HandlerFailure) Category() ErrorCategory { return CategoryHandler }

// InvariantViolation signals a kernel-internal bug — always unrecoverable.
type InvariantViolation struct {
	Reason error
}

func (e *InvariantViolation) Error() string {
	return "timewarp: invariant violation: " + e.Reason.Error()
}
func (e *InvariantViolation) Unwrap() error { return e.Reason }
func (e *InvariantViolation) Category() ErrorCategory { return CategoryInvariant }

// Retryable reports whether an error category is ever worth retrying at
// the spawn layer. Invariant violations and init failures are not;
// handler failures depend on the underlying reason and are conservatively
// reported as non-retryable here, matching the kernel's fail-fast design.
func Retryable(err error) bool {
	var iv *InvariantViolation
	if errors.As(err, &iv) {
		return false
	}
	var initErr *InitFailure
	if errors.As(err, &initErr) {
		return false
	}
	return false
}
