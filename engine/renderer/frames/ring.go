package frames

import (
	"fmt"

	"github.com/spaghettifunk/creep/engine/core"
	"github.com/spaghettifunk/creep/engine/renderer/metadata"
)

const DefaultFrameResources = 3

// RingConfig sizes every frame resource of a ring.
type RingConfig struct {
	Frames        int
	PassCount     int
	ObjectCount   int
	MaterialCount int
}

/**
 * @brief A fixed ring of frame resources. The CPU records frame n while the
 * GPU may still execute up to Frames-1 earlier frames; Advance blocks only when
 * the CPU is about to reuse a slot the GPU has not finished with.
 */
type Ring struct {
	device   metadata.Device
	timeline *Timeline
	frames   []*FrameResource
	index    int
	config   RingConfig
}

func NewRing(device metadata.Device, timeline *Timeline, config RingConfig) (*Ring, error) {
	if config.Frames < 1 {
		return nil, fmt.Errorf("frame ring needs at least one frame resource, got %d", config.Frames)
	}
	r := &Ring{
		device:   device,
		timeline: timeline,
		frames:   make([]*FrameResource, 0, config.Frames),
		// the first Advance lands on slot 0
		index:  config.Frames - 1,
		config: config,
	}
	for i := 0; i < config.Frames; i++ {
		fr, err := NewFrameResource(device, i, config.PassCount, config.ObjectCount, config.MaterialCount)
		if err != nil {
			r.Release()
			return nil, err
		}
		r.frames = append(r.frames, fr)
	}
	core.LogDebug("frame ring built: %d frames, %d objects, %d materials", config.Frames, config.ObjectCount, config.MaterialCount)
	return r, nil
}

// Advance moves to the next slot and waits for the GPU to release it if it
// was submitted and has not completed yet.
func (r *Ring) Advance() (*FrameResource, error) {
	r.index = (r.index + 1) % len(r.frames)
	fr := r.frames[r.index]
	if fr.Fence != 0 && r.timeline.Completed() < fr.Fence {
		if err := r.timeline.WaitFor(fr.Fence); err != nil {
			return nil, err
		}
	}
	return fr, nil
}

// Begin resets the current slot's allocator and starts recording cmd into it.
func (r *Ring) Begin(cmd metadata.CommandList) error {
	fr := r.Current()
	if fr.Fence != 0 && r.timeline.Completed() < fr.Fence {
		return fmt.Errorf("frame %d waits for fence %d: %w", fr.Index, fr.Fence, core.ErrSlotInFlight)
	}
	if err := fr.CmdListAlloc.Reset(); err != nil {
		return fmt.Errorf("%w: resetting allocator of frame %d: %v", core.ErrDeviceFatal, fr.Index, err)
	}
	if err := cmd.Reset(fr.CmdListAlloc); err != nil {
		return fmt.Errorf("%w: resetting command list: %v", core.ErrDeviceFatal, err)
	}
	return nil
}

// Submit closes and executes cmd, presents, and marks the current slot with
// a new timeline value.
func (r *Ring) Submit(cmd metadata.CommandList) error {
	fr := r.Current()
	if err := cmd.Close(); err != nil {
		return fmt.Errorf("%w: closing command list: %v", core.ErrDeviceFatal, err)
	}
	if err := r.device.ExecuteCommandLists(cmd); err != nil {
		return fmt.Errorf("%w: executing command list: %v", core.ErrDeviceFatal, err)
	}
	if err := r.device.Present(); err != nil {
		return fmt.Errorf("%w: present: %v", core.ErrDeviceFatal, err)
	}
	v, err := r.timeline.Signal()
	if err != nil {
		return err
	}
	fr.Fence = v
	return nil
}

func (r *Ring) Current() *FrameResource {
	return r.frames[r.index]
}

func (r *Ring) Index() int {
	return r.index
}

func (r *Ring) Len() int {
	return len(r.frames)
}

func (r *Ring) Frames() []*FrameResource {
	return r.frames
}

func (r *Ring) Config() RingConfig {
	return r.config
}

// Release frees every frame resource. The GPU must be idle.
func (r *Ring) Release() {
	for _, fr := range r.frames {
		fr.Release()
	}
	r.frames = nil
}
