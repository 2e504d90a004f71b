// Package gvtcoord computes Global Virtual Time across a Registry's live
// actors on a schedule and pushes it back to each of them, playing the
// role spec.md §1 leaves external: "inter-actor GVT computation (assumed
// supplied externally)".
//
// Grounded on the teacher framework's modules/scheduler.Scheduler, which
// also wraps a robfig/cron/v3 *cron.Cron to drive periodic work; this
// package keeps the same New/Start/Stop shape, using a seconds-enabled
// cron parser, trimmed to a single recurring job (GVT computation)
// instead of a general job store.
package gvtcoord

import (
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/mitchellwrosen/gentw"
)

// Tracker is the subset of timewarp.Registry the coordinator needs: a
// snapshot of every live actor's LVT, and a way to look up its Ref to
// deliver the computed GVT.
type Tracker interface {
	LVTs() map[string]timewarp.LVT
	Lookup(id string) (timewarp.Inspectable, error)
}

// Coordinator polls a Tracker on a cron schedule, computes the minimum
// LVT across all live actors, and pushes it to each of them via
// timewarp.Gvt — enforcing monotonicity here too, in addition to the
// per-actor drop-if-lower guard in the dispatch loop (belt and braces:
// spec.md's resolved Open Question on GVT updates arriving out of order).
type Coordinator struct {
	tracker Tracker
	logger  timewarp.Logger

	cron *cron.Cron

	mu      sync.Mutex
	lastGVT timewarp.LVT
	seeded  bool
}

// New constructs a Coordinator for tracker. A nil logger installs a no-op
// logger.
func New(tracker Tracker, logger timewarp.Logger) *Coordinator {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Coordinator{
		tracker: tracker,
		logger:  logger,
		cron:    cron.New(cron.WithSeconds()),
	}
}

// Start schedules GVT computation to run on the given cron spec (e.g.
// "@every 1s", or a 6-field cron expression whose first field is seconds,
// as cron.WithSeconds requires; 5-field expressions are rejected) and
// starts the underlying cron scheduler.
func (c *Coordinator) Start(spec string) error {
	_, err := c.cron.AddFunc(spec, c.tick)
	if err != nil {
		return err
	}
	c.cron.Start()
	return nil
}

// Stop halts the cron scheduler, waiting for any in-flight tick to
// finish.
func (c *Coordinator) Stop() {
	<-c.cron.Stop().Done()
}

// Tick runs one round of GVT computation synchronously; Start wires it to
// a cron schedule, but tests and callers that want their own cadence can
// invoke it directly.
func (c *Coordinator) Tick() { c.tick() }

func (c *Coordinator) tick() {
	lvts := c.tracker.LVTs()
	if len(lvts) == 0 {
		return
	}

	var min timewarp.LVT
	first := true
	for _, lvt := range lvts {
		if first || lvt < min {
			min = lvt
			first = false
		}
	}

	c.mu.Lock()
	if c.seeded && min < c.lastGVT {
		c.logger.Warn("gvtcoord: computed GVT regressed, dropping", "computed", min, "last", c.lastGVT)
		c.mu.Unlock()
		return
	}
	c.lastGVT = min
	c.seeded = true
	c.mu.Unlock()

	for id := range lvts {
		ref, err := c.tracker.Lookup(id)
		if err != nil {
			continue
		}
		timewarp.Gvt(ref, min)
	}
}

// LastGVT returns the most recently computed (and accepted) GVT value.
func (c *Coordinator) LastGVT() timewarp.LVT {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastGVT
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
func (noopLogger) Debug(string, ...any) {}
