package vulkan

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/google/uuid"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/creep/engine/core"
	"github.com/spaghettifunk/creep/engine/renderer/metadata"
)

// resource is the identity shared by every object the device hands out.
type resource struct {
	id       uuid.UUID
	dev      *Device
	released atomic.Bool
}

func (r *resource) init(dev *Device) {
	r.id = uuid.New()
	r.dev = dev
}

func (r *resource) ID() uuid.UUID { return r.id }

// markReleased reports whether this call is the one releasing r.
func (r *resource) markReleased() bool {
	return r.released.CompareAndSwap(false, true)
}

/**
 * @brief A device buffer. Host visible buffers stay mapped for their whole
 * life and are written directly; the rest live in device local memory.
 */
type VulkanBuffer struct {
	resource
	desc metadata.BufferDesc

	Handle vk.Buffer
	Memory vk.DeviceMemory
	mapped unsafe.Pointer
}

func (b *VulkanBuffer) Size() uint64 { return b.desc.Size }

func (b *VulkanBuffer) Write(offset uint64, data []byte) error {
	if b.released.Load() {
		return fmt.Errorf("buffer %q: write after release", b.desc.Name)
	}
	if b.mapped == nil {
		return fmt.Errorf("buffer %q is not host visible", b.desc.Name)
	}
	if offset+uint64(len(data)) > b.desc.Size {
		return fmt.Errorf("buffer %q: write of %d bytes at %d overflows %d", b.desc.Name, len(data), offset, b.desc.Size)
	}
	dst := unsafe.Slice((*byte)(b.mapped), b.desc.Size)
	copy(dst[offset:], data)
	return nil
}

func (b *VulkanBuffer) Release() {
	if !b.markReleased() {
		return
	}
	b.dev.forgetBuffer(b)
	device := b.dev.context.Device.LogicalDevice
	if b.mapped != nil {
		vk.UnmapMemory(device, b.Memory)
		b.mapped = nil
	}
	vk.DestroyBuffer(device, b.Handle, b.dev.context.Allocator)
	vk.FreeMemory(device, b.Memory, b.dev.context.Allocator)
}

func bufferUsage(desc metadata.BufferDesc) vk.BufferUsageFlags {
	var flags vk.BufferUsageFlagBits
	if desc.Usage&metadata.BufferUsageVertex != 0 {
		flags |= vk.BufferUsageVertexBufferBit
	}
	if desc.Usage&metadata.BufferUsageIndex != 0 {
		flags |= vk.BufferUsageIndexBufferBit
	}
	if desc.Usage&metadata.BufferUsageUniform != 0 {
		flags |= vk.BufferUsageUniformBufferBit
	}
	if desc.Usage&metadata.BufferUsageStorage != 0 {
		flags |= vk.BufferUsageStorageBufferBit
	}
	if desc.Usage&metadata.BufferUsageTransferSrc != 0 || desc.HostVisible {
		flags |= vk.BufferUsageTransferSrcBit
	}
	if desc.Usage&metadata.BufferUsageTransferDst != 0 || !desc.HostVisible {
		// device local buffers can only be filled by a copy
		flags |= vk.BufferUsageTransferDstBit
	}
	return vk.BufferUsageFlags(flags)
}

func BufferCreate(dev *Device, desc metadata.BufferDesc) (*VulkanBuffer, error) {
	if desc.Size == 0 {
		return nil, fmt.Errorf("buffer %q: zero size", desc.Name)
	}
	context := dev.context
	device := context.Device.LogicalDevice

	b := &VulkanBuffer{desc: desc}
	b.init(dev)

	bufferCreateInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(desc.Size),
		Usage:       bufferUsage(desc),
		SharingMode: vk.SharingModeExclusive,
	}
	if err := check(vk.CreateBuffer(device, &bufferCreateInfo, context.Allocator, &b.Handle), "creating buffer "+desc.Name); err != nil {
		return nil, err
	}

	var memoryRequirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device, b.Handle, &memoryRequirements)
	memoryRequirements.Deref()

	properties := vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	if desc.HostVisible {
		properties = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	}
	memoryType, err := context.FindMemoryIndex(memoryRequirements.MemoryTypeBits, properties)
	if err != nil {
		vk.DestroyBuffer(device, b.Handle, context.Allocator)
		return nil, err
	}
	memoryAllocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memoryRequirements.Size,
		MemoryTypeIndex: memoryType,
	}
	if err := check(vk.AllocateMemory(device, &memoryAllocateInfo, context.Allocator, &b.Memory), "allocating buffer memory"); err != nil {
		vk.DestroyBuffer(device, b.Handle, context.Allocator)
		return nil, err
	}
	if err := check(vk.BindBufferMemory(device, b.Handle, b.Memory, 0), "binding buffer memory"); err != nil {
		b.Release()
		return nil, err
	}
	if desc.HostVisible {
		var data unsafe.Pointer
		if err := check(vk.MapMemory(device, b.Memory, 0, vk.DeviceSize(desc.Size), 0, &data), "mapping buffer memory"); err != nil {
			b.Release()
			return nil, err
		}
		b.mapped = data
	}
	return b, nil
}

func (dev *Device) CreateBuffer(desc metadata.BufferDesc) (metadata.Buffer, error) {
	b, err := BufferCreate(dev, desc)
	if err != nil {
		core.LogError("failed to create buffer %q: %s", desc.Name, err)
		return nil, err
	}
	return b, nil
}

// bufferBarrier records a barrier making writes done in before visible to
// the reads of after.
func bufferBarrier(cmd vk.CommandBuffer, b *VulkanBuffer, before, after metadata.ResourceState) {
	from, to := stateOf(before), stateOf(after)
	barrier := vk.BufferMemoryBarrier{
		SType:               vk.StructureTypeBufferMemoryBarrier,
		SrcAccessMask:       from.access,
		DstAccessMask:       to.access,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Buffer:              b.Handle,
		Offset:              0,
		Size:                vk.DeviceSize(vk.WholeSize),
	}
	vk.CmdPipelineBarrier(cmd, from.stage, to.stage, 0, 0, nil, 1, []vk.BufferMemoryBarrier{barrier}, 0, nil)
}
