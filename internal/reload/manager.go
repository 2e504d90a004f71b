// Package reload watches a kernel config file and hot-applies changes to
// the dynamic subset of config.KernelConfig, rejecting any diff that also
// touches a static field. Adapted from the teacher framework's
// internal/reload.ReloadManager, which performs the same
// dynamic/static-field classification, generalized here
// from its ConfigDiff/Reloadable types to a direct KernelConfig
// before/after comparison.
package reload

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/mitchellwrosen/gentw/config"
)

// ErrStaticFieldChange indicates a reload diff attempted to modify a
// field not listed in config.DynamicFields.
var ErrStaticFieldChange = errors.New("reload: static field change rejected")

// Applier receives a validated, dynamic-only diff to apply to the live
// configuration (e.g. a new initial drain timeout). A running
// timewarp.Registry copies its drain timeout into each actor at spawn and
// does not pick up changes on its own.
type Applier interface {
	ApplyDynamic(field string, newValue any) error
}

// Manager watches a config file for changes and applies dynamic-field
// diffs to an Applier, rejecting the whole batch if any static field
// changed.
type Manager struct {
	mu       sync.Mutex
	dynamic  map[string]struct{}
	current  config.KernelConfig
	loader   func(path string) (config.KernelConfig, error)
	path     string
	applier  Applier
	watcher  *fsnotify.Watcher
	applied  int // count of successfully-applied batches, for test/introspection visibility
}

// NewManager constructs a Manager that reloads path with loader (typically
// config.LoadTOML or config.LoadYAML) whenever it changes on disk, seeded
// with the already-loaded initial config.
func NewManager(path string, initial config.KernelConfig, loader func(string) (config.KernelConfig, error), applier Applier) *Manager {
	set := make(map[string]struct{}, len(config.DynamicFields()))
	for _, f := range config.DynamicFields() {
		set[f] = struct{}{}
	}
	return &Manager{
		dynamic: set,
		current: initial,
		loader:  loader,
		path:    path,
		applier: applier,
	}
}

// Watch starts an fsnotify watch on the manager's config file, applying
// each qualifying change until ctx is cancelled. A reload that fails (a
// load error or a rejected static-field change) ends the watch and is
// returned. It runs in the calling
// goroutine; callers typically invoke it via `go mgr.Watch(ctx)`.
func (m *Manager) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("reload: new watcher: %w", err)
	}
	m.watcher = watcher
	defer watcher.Close()

	if err := watcher.Add(m.path); err != nil {
		return fmt.Errorf("reload: watch %s: %w", m.path, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if err := m.reloadFromDisk(); err != nil {
				return err
			}
		case _, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
		}
	}
}

func (m *Manager) reloadFromDisk() error {
	next, err := m.loader(m.path)
	if err != nil {
		return fmt.Errorf("reload: load %s: %w", m.path, err)
	}
	return m.Apply(next)
}

// Apply diffs next against the manager's current config and applies the
// changed dynamic fields to the Applier one at a time. A diff touching any
// field outside config.DynamicFields is rejected wholesale with
// ErrStaticFieldChange, and nothing is applied. If the Applier fails on a
// field, fields it already accepted stay applied and the manager's
// current config is left unchanged.
func (m *Manager) Apply(next config.KernelConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	changes, staticTouched := diff(m.current, next, m.dynamic)
	if staticTouched {
		return ErrStaticFieldChange
	}
	if len(changes) == 0 {
		return nil
	}
	for field, value := range changes {
		if err := m.applier.ApplyDynamic(field, value); err != nil {
			return fmt.Errorf("reload: apply %s: %w", field, err)
		}
	}
	m.current = next
	m.applied++
	return nil
}

// Applied returns how many reload batches have been successfully applied.
func (m *Manager) Applied() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.applied
}

// diff compares two KernelConfig values field by field via reflection,
// returning the changed dynamic fields and whether any static field also
// changed.
func diff(cur, next config.KernelConfig, dynamic map[string]struct{}) (map[string]any, bool) {
	changes := make(map[string]any)
	staticTouched := false

	cv, nv := reflect.ValueOf(cur), reflect.ValueOf(next)
	t := cv.Type()
	for i := 0; i < t.NumField(); i++ {
		name := t.Field(i).Name
		a, b := cv.Field(i).Interface(), nv.Field(i).Interface()
		if reflect.DeepEqual(a, b) {
			continue
		}
		if _, ok := dynamic[name]; !ok {
			staticTouched = true
			continue
		}
		changes[name] = b
	}
	return changes, staticTouched
}
