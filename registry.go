package timewarp

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Endpoint is both a Mailbox (for the owning actor's dispatch loop to
// drain) and a Notifier (for anyone holding a Ref to deliver into it). A
// Transport hands one out per spawned actor.
type Endpoint interface {
	Mailbox
	Notifier
}

// Notifier is the write side of an actor's mailbox.
type Notifier interface {
	Notify(events ...Event)
}

// Transport supplies per-actor mailboxes. The in-memory reference
// implementation lives in the sibling transport package; a distributed
// deployment would satisfy this over a message broker instead.
type Transport interface {
	NewEndpoint() Endpoint
}

// ExitSignal is delivered to a linked supervisor when one of its spawned
// actors terminates abnormally (spec.md §6 "spawn_linked ... for failure
// propagation"). A STOP with a nil reason is not propagated; failures, and
// a STOP carrying a non-nil reason, are.
type ExitSignal struct {
	From   Ref
	Reason error
}

// actorRef is the concrete Ref/Inspectable handle returned by Spawn. Its
// atomic fields are published by the owning actor's dispatch loop after
// every state transition so introspection tools never block it.
type actorRef struct {
	id       string
	endpoint Endpoint

	lvt          atomic.Uint64
	historyDepth atomic.Int64
	pastDepth    atomic.Int64
}

func (r *actorRef) Notify(events ...Event) { r.endpoint.Notify(events...) }
func (r *actorRef) ID() string             { return r.id }
func (r *actorRef) LVT() LVT               { return LVT(r.lvt.Load()) }
func (r *actorRef) HistoryDepth() int      { return int(r.historyDepth.Load()) }
func (r *actorRef) PastLogDepth() int      { return int(r.pastDepth.Load()) }

func (r *actorRef) publish(lvt LVT, historyDepth, pastDepth int) {
	r.lvt.Store(uint64(lvt))
	r.historyDepth.Store(int64(historyDepth))
	r.pastDepth.Store(int64(pastDepth))
}

// Registry is the host-facing kernel API surface: it spawns actors,
// tracks them for introspection (gvtcoord, httpintrospect), and wires
// linked-spawn failure propagation.
type Registry struct {
	transport Transport
	logger    Logger
	config    RegistryConfig

	mu     sync.RWMutex
	actors map[string]*actorRef
}

// RegistryConfig tunes the dispatch loop. See the config package for a
// version of this loadable from TOML/YAML/env.
type RegistryConfig struct {
	// InitialDrainTimeout is the first-pass mailbox drain timeout used by
	// the idle-advance rule (spec.md §4.1, §4.5 rule 1).
	InitialDrainTimeout time.Duration
	// GCHint is invoked after fossil collection; nil disables it.
	GCHint GCHint
}

// DefaultRegistryConfig returns reasonable defaults: a short initial
// drain window that still lets bursts of causally-linked anti-events
// coalesce before the dispatch loop commits to tick_tock.
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{InitialDrainTimeout: 50 * time.Millisecond}
}

// NewRegistry constructs a Registry backed by transport. A nil logger
// installs a no-op logger.
func NewRegistry(transport Transport, logger Logger, cfg RegistryConfig) *Registry {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Registry{
		transport: transport,
		logger:    logger,
		config:    cfg,
		actors:    make(map[string]*actorRef),
	}
}

// Spawn starts a detached TW-actor running behavior, seeded by arg. It
// blocks only long enough to run Behavior.Init; the dispatch loop then
// runs on its own goroutine.
func (reg *Registry) Spawn(behavior Behavior, arg any) (Ref, error) {
	return reg.spawn(behavior, arg, nil)
}

// SpawnLinked starts an actor linked to supervisor: if the new actor
// terminates abnormally, supervisor receives an ExitSignal event.
func (reg *Registry) SpawnLinked(behavior Behavior, arg any, supervisor Ref) (Ref, error) {
	return reg.spawn(behavior, arg, supervisor)
}

func (reg *Registry) spawn(behavior Behavior, arg any, supervisor Ref) (Ref, error) {
	state, err := invokeInit(behavior, arg)
	if err != nil {
		return nil, err
	}

	ref := &actorRef{id: uuid.NewString(), endpoint: reg.transport.NewEndpoint()}
	history := NewStateHistory(state)
	runtime := &runtimeActor{
		self:           ref,
		behavior:       behavior,
		mailbox:        ref.endpoint,
		logger:         reg.logger,
		buffer:         NewEventBuffer(),
		history:        history,
		past:           NewPastLog(),
		initialTimeout: reg.config.InitialDrainTimeout,
		gcHint:         reg.config.GCHint,
	}
	runtime.publish = ref.publish
	ref.publish(0, history.Len(), 0)

	reg.mu.Lock()
	reg.actors[ref.id] = ref
	reg.mu.Unlock()

	go func() {
		reason := runtime.Run()
		reg.mu.Lock()
		delete(reg.actors, ref.id)
		reg.mu.Unlock()
		if reason != nil && supervisor != nil {
			supervisor.Notify(NewEvent(ref.LVT(), ExitSignal{From: ref, Reason: reason}))
		}
	}()

	return ref, nil
}

// Lookup returns the live Inspectable ref for id, or ErrNoSuchActor if no
// actor with that id is currently running (either it never existed, or it
// has already stopped and unregistered itself).
func (reg *Registry) Lookup(id string) (Inspectable, error) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	ref, ok := reg.actors[id]
	if !ok {
		return nil, ErrNoSuchActor
	}
	return ref, nil
}

// Actors returns a snapshot of every currently-running actor's id.
func (reg *Registry) Actors() []string {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	ids := make([]string, 0, len(reg.actors))
	for id := range reg.actors {
		ids = append(ids, id)
	}
	return ids
}

// LVTs returns a snapshot of every currently-running actor's LVT, for use
// by an external GVT coordinator (spec.md §1: "inter-actor GVT
// computation (assumed supplied externally)").
func (reg *Registry) LVTs() map[string]LVT {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := make(map[string]LVT, len(reg.actors))
	for id, ref := range reg.actors {
		out[id] = ref.LVT()
	}
	return out
}
