package frames

import (
	"fmt"

	"github.com/spaghettifunk/creep/engine/core"
	"github.com/spaghettifunk/creep/engine/renderer/metadata"
)

/**
 * @brief The CPU side view of the GPU timeline: one device fence and the
 * monotonic counter of values signaled on the queue.
 */
type Timeline struct {
	device  metadata.Device
	fence   metadata.Fence
	current uint64
}

func NewTimeline(device metadata.Device) (*Timeline, error) {
	fence, err := device.CreateFence(0)
	if err != nil {
		return nil, fmt.Errorf("%w: creating fence: %v", core.ErrDeviceFatal, err)
	}
	return &Timeline{device: device, fence: fence}, nil
}

// Signal increments the counter and asks the queue to set the fence to it
// once every previously submitted command has executed.
func (t *Timeline) Signal() (uint64, error) {
	t.current++
	if err := t.device.Signal(t.fence, t.current); err != nil {
		return 0, fmt.Errorf("%w: signaling fence %d: %v", core.ErrDeviceFatal, t.current, err)
	}
	return t.current, nil
}

// Current returns the last value signaled.
func (t *Timeline) Current() uint64 {
	return t.current
}

// Completed returns the last value the GPU reached.
func (t *Timeline) Completed() uint64 {
	return t.fence.CompletedValue()
}

// WaitFor blocks, without timeout, until the GPU reached value.
func (t *Timeline) WaitFor(value uint64) error {
	if t.fence.CompletedValue() >= value {
		return nil
	}
	if err := t.fence.Wait(value); err != nil {
		return fmt.Errorf("%w: waiting for fence %d: %v", core.ErrDeviceFatal, value, err)
	}
	return nil
}

// Flush signals a new value and waits for it, draining the whole queue.
func (t *Timeline) Flush() error {
	v, err := t.Signal()
	if err != nil {
		return err
	}
	return t.WaitFor(v)
}

func (t *Timeline) Release() {
	t.fence.Release()
}
