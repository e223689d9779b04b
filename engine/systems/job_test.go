package systems

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/creep/engine/renderer/metadata"
)

func TestNewJobSystemValidation(t *testing.T) {
	_, err := NewJobSystem(0, 1)
	assert.ErrorIs(t, err, ErrNoWorkers)
	_, err = NewJobSystem(1, -1)
	assert.ErrorIs(t, err, ErrNegativeChannelSize)
}

func TestRunAllCollectsResultsAndErrors(t *testing.T) {
	js, err := NewJobSystem(2, 4)
	require.NoError(t, err)
	defer js.Shutdown()

	var completed, callbacks atomic.Int32
	var got atomic.Value
	boom := errors.New("boom")

	err = js.RunAll(
		metadata.JobTask{
			Name:                 "ok",
			OnStart:              func() (interface{}, error) { return 42, nil },
			OnComplete:           func(r interface{}) { got.Store(r); completed.Add(1) },
			OnCompletionCallback: func() { callbacks.Add(1) },
		},
		metadata.JobTask{
			Name:                 "fails",
			OnStart:              func() (interface{}, error) { return nil, boom },
			OnComplete:           func(interface{}) { completed.Add(1) },
			OnCompletionCallback: func() { callbacks.Add(1) },
		},
	)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, int32(1), completed.Load())
	assert.Equal(t, int32(2), callbacks.Load())
	assert.Equal(t, 42, got.Load())
}
