package vulkan

import (
	"fmt"
	"math"
	"sync"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/creep/engine/core"
)

type pendingSignal struct {
	value  uint64
	handle vk.Fence
}

/**
 * @brief A monotonic timeline built on binary fences. Every Signal submits one
 * fence; the completed value advances as those fences retire in order.
 */
type VulkanFence struct {
	resource

	mu        sync.Mutex
	completed uint64
	pending   []pendingSignal
}

func NewFence(dev *Device, initial uint64) *VulkanFence {
	f := &VulkanFence{completed: initial}
	f.init(dev)
	return f
}

func (f *VulkanFence) CompletedValue() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.poll()
	return f.completed
}

// poll retires every leading pending signal whose fence is already signalled.
func (f *VulkanFence) poll() {
	device := f.dev.context.Device.LogicalDevice
	for len(f.pending) > 0 {
		head := f.pending[0]
		if vk.GetFenceStatus(device, head.handle) != vk.Success {
			return
		}
		f.retireHead()
	}
}

func (f *VulkanFence) retireHead() {
	head := f.pending[0]
	f.pending = f.pending[1:]
	f.completed = max(f.completed, head.value)
	f.dev.recycleFence(head.handle)
}

func (f *VulkanFence) Wait(value uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	device := f.dev.context.Device.LogicalDevice
	for f.completed < value {
		if len(f.pending) == 0 {
			return fmt.Errorf("fence wait for %d: nothing signalled past %d", value, f.completed)
		}
		head := f.pending[0]
		res := vk.WaitForFences(device, 1, []vk.Fence{head.handle}, vk.True, math.MaxUint64)
		switch res {
		case vk.Success:
			f.retireHead()
		case vk.Timeout:
			core.LogWarn("fence wait timed out, retrying")
		default:
			return check(res, "waiting for fence")
		}
	}
	return nil
}

func (f *VulkanFence) Release() {
	if !f.markReleased() {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	device := f.dev.context.Device.LogicalDevice
	for _, p := range f.pending {
		vk.WaitForFences(device, 1, []vk.Fence{p.handle}, vk.True, math.MaxUint64)
		f.dev.recycleFence(p.handle)
	}
	f.pending = nil
}

// lastValue is the highest value signalled so far.
func (f *VulkanFence) lastValue() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n := len(f.pending); n > 0 {
		return max(f.completed, f.pending[n-1].value)
	}
	return f.completed
}

func (f *VulkanFence) push(value uint64, handle vk.Fence) {
	f.mu.Lock()
	f.pending = append(f.pending, pendingSignal{value: value, handle: handle})
	f.mu.Unlock()
}

// acquireFence returns an unsignalled fence, reusing retired ones.
func (dev *Device) acquireFence() (vk.Fence, error) {
	var handle vk.Fence
	err := dev.context.locks.SafeCall(SynchronizationGroup, func() error {
		if n := len(dev.freeFences); n > 0 {
			handle = dev.freeFences[n-1]
			dev.freeFences = dev.freeFences[:n-1]
			return check(vk.ResetFences(dev.context.Device.LogicalDevice, 1, []vk.Fence{handle}), "resetting fence")
		}
		fenceCreateInfo := vk.FenceCreateInfo{
			SType: vk.StructureTypeFenceCreateInfo,
		}
		return check(vk.CreateFence(dev.context.Device.LogicalDevice, &fenceCreateInfo, dev.context.Allocator, &handle), "creating fence")
	})
	return handle, err
}

func (dev *Device) recycleFence(handle vk.Fence) {
	dev.context.locks.SafeCall(SynchronizationGroup, func() error {
		dev.freeFences = append(dev.freeFences, handle)
		return nil
	})
}

func (dev *Device) destroyFences() {
	for _, handle := range dev.freeFences {
		vk.DestroyFence(dev.context.Device.LogicalDevice, handle, dev.context.Allocator)
	}
	dev.freeFences = nil
}
