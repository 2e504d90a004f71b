// Package timewarp implements Jefferson's Time Warp mechanism for a single
// actor: local causality preservation via state saving, rollback, and
// anti-event cancellation, combined with a Global Virtual Time (GVT)
// fossil-collection protocol.
//
// A TW-actor is an independently-scheduled unit of computation that owns a
// mailbox, an ordered event buffer, a state history, and a past-event log.
// It runs a single-threaded dispatch loop that advances a virtual clock
// (the LVT) forward by applying events in (lvt, id) order, and rolls back
// whenever a straggler event arrives with an lvt behind the actor's current
// LVT.
//
// The core kernel in this package is transport- and behavior-agnostic: it
// consumes a user-supplied Behavior (init/handle_event/tick_tock/terminate)
// and a Transport for mailbox delivery, and knows nothing about how either
// is implemented. See the transport, gvtcoord, httpintrospect, and config
// packages for the reference satellite components that a host application
// wires around the core.
//
// Basic usage:
//
//	reg := timewarp.NewRegistry(transport.NewInMemory(), logger, timewarp.DefaultRegistryConfig())
//	ref, err := reg.Spawn(myBehavior, initArg)
//	ref.Notify(timewarp.NewEvent(5, payload))
package timewarp
