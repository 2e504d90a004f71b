package reload

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mitchellwrosen/gentw/config"
)

type recordingApplier struct {
	applied map[string]any
	fail    bool
}

func newRecordingApplier() *recordingApplier {
	return &recordingApplier{applied: make(map[string]any)}
}

func (a *recordingApplier) ApplyDynamic(field string, newValue any) error {
	if a.fail {
		return assert.AnError
	}
	a.applied[field] = newValue
	return nil
}

func TestManager_ApplyDynamicFieldChange(t *testing.T) {
	initial := config.DefaultKernelConfig()
	applier := newRecordingApplier()
	mgr := NewManager("unused.toml", initial, config.LoadTOML, applier)

	next := initial
	next.InitialDrainTimeout = 250 * time.Millisecond

	require.NoError(t, mgr.Apply(next))
	assert.Equal(t, 250*time.Millisecond, applier.applied["InitialDrainTimeout"])
	assert.Equal(t, 1, mgr.Applied())
}

func TestManager_RejectsStaticFieldChange(t *testing.T) {
	initial := config.DefaultKernelConfig()
	applier := newRecordingApplier()
	mgr := NewManager("unused.toml", initial, config.LoadTOML, applier)

	next := initial
	next.MailboxCapacity = 1024

	err := mgr.Apply(next)
	require.ErrorIs(t, err, ErrStaticFieldChange)
	assert.Empty(t, applier.applied, "nothing should be applied when a static field is touched")
	assert.Equal(t, 0, mgr.Applied())
}

func TestManager_RejectsStaticFieldChangeEvenAlongsideDynamicOne(t *testing.T) {
	initial := config.DefaultKernelConfig()
	applier := newRecordingApplier()
	mgr := NewManager("unused.toml", initial, config.LoadTOML, applier)

	next := initial
	next.InitialDrainTimeout = 999 * time.Millisecond
	next.MailboxCapacity = 1024

	err := mgr.Apply(next)
	require.ErrorIs(t, err, ErrStaticFieldChange)
	assert.Empty(t, applier.applied, "a batch touching any static field must be rejected wholesale")
}

func TestManager_NoOpWhenNothingChanged(t *testing.T) {
	initial := config.DefaultKernelConfig()
	applier := newRecordingApplier()
	mgr := NewManager("unused.toml", initial, config.LoadTOML, applier)

	require.NoError(t, mgr.Apply(initial))
	assert.Empty(t, applier.applied)
	assert.Equal(t, 0, mgr.Applied())
}

func TestManager_PropagatesApplierError(t *testing.T) {
	initial := config.DefaultKernelConfig()
	applier := newRecordingApplier()
	applier.fail = true
	mgr := NewManager("unused.toml", initial, config.LoadTOML, applier)

	next := initial
	next.FossilCollectionLogLevel = "info"

	err := mgr.Apply(next)
	assert.Error(t, err)
	assert.Equal(t, 0, mgr.Applied())
}
