package vulkan

import (
	"errors"
	"fmt"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/creep/engine/core"
	"github.com/spaghettifunk/creep/engine/renderer/metadata"
)

/**
 * @brief The Vulkan graphics device. Owns the instance, the logical device,
 * the swapchain and the caches shared by every command list.
 */
type Device struct {
	context *VulkanContext
	config  Config

	swapchain    *VulkanSwapchain
	descriptors  *VulkanDescriptors
	renderPasses *renderPassCache
	framebuffers *framebufferCache
	freeFences   []vk.Fence

	capabilities metadata.DeviceCapabilities
	width        uint32
	height       uint32
	// outOfDate is set when the swapchain could not be recreated because
	// the window has no area.
	outOfDate bool
}

func NewDevice(cfg Config) (metadata.Device, error) {
	if cfg.Window == nil {
		return nil, fmt.Errorf("vulkan device needs a window")
	}
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		return nil, fmt.Errorf("%w: GetInstanceProcAddress is nil", core.ErrDeviceFatal)
	}
	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		return nil, fmt.Errorf("%w: initializing vulkan: %v", core.ErrDeviceFatal, err)
	}

	context := &VulkanContext{locks: NewVulkanLockPool()}
	dev := &Device{context: context, config: cfg}

	if err := createInstance(context, cfg); err != nil {
		dev.Shutdown()
		return nil, err
	}
	if err := createSurface(context, cfg.Window); err != nil {
		dev.Shutdown()
		return nil, err
	}
	if err := DeviceCreate(context); err != nil {
		dev.Shutdown()
		return nil, err
	}

	limits := context.Device.Properties.Limits
	dev.capabilities = metadata.DeviceCapabilities{
		MaxSamples:      maxSampleCount(&limits),
		MinUniformAlign: uint64(limits.MinUniformBufferOffsetAlignment),
	}

	dev.renderPasses = newRenderPassCache(context)
	dev.framebuffers = newFramebufferCache(context)
	descriptors, err := newDescriptors(dev)
	if err != nil {
		dev.Shutdown()
		return nil, err
	}
	dev.descriptors = descriptors

	width, height := cfg.Width, cfg.Height
	if w, h := cfg.Window.GetFramebufferSize(); w > 0 && h > 0 {
		width, height = uint32(w), uint32(h)
	}
	if err := dev.createSwapchain(width, height); err != nil {
		dev.Shutdown()
		return nil, err
	}

	core.LogInfo("Vulkan device ready: %dx%d, %d back buffers, up to %dx MSAA",
		dev.width, dev.height, dev.BackBufferCount(), dev.capabilities.MaxSamples)
	return dev, nil
}

func (dev *Device) createSwapchain(width, height uint32) error {
	swapchain, err := SwapchainCreate(dev, width, height)
	if err != nil {
		return err
	}
	dev.swapchain = swapchain
	dev.width, dev.height = swapchain.Extent.Width, swapchain.Extent.Height
	dev.outOfDate = false
	return swapchain.acquire(dev)
}

// recreateSwapchain replaces the swapchain once the GPU is idle. With a zero
// sized window the swapchain is kept and marked out of date.
func (dev *Device) recreateSwapchain(width, height uint32) error {
	if width == 0 || height == 0 {
		dev.outOfDate = true
		return nil
	}
	if err := dev.WaitIdle(); err != nil {
		return err
	}
	if dev.swapchain != nil {
		dev.swapchain.destroy(dev)
		dev.swapchain = nil
	}
	err := dev.createSwapchain(width, height)
	if errors.Is(err, errSwapchainOutOfDate) {
		// the surface changed again while we were creating it
		core.LogWarn("swapchain out of date right after creation, retrying")
		dev.swapchain.destroy(dev)
		dev.swapchain = nil
		err = dev.createSwapchain(width, height)
	}
	return err
}

func (dev *Device) windowSize() (uint32, uint32) {
	w, h := dev.config.Window.GetFramebufferSize()
	return uint32(max(w, 0)), uint32(max(h, 0))
}

// immediate records and runs a one off command buffer, waiting for it.
func (dev *Device) immediate(record func(cmd vk.CommandBuffer)) error {
	context := dev.context
	device := context.Device
	return context.locks.SafeCall(ResourceManagement, func() error {
		allocateInfo := vk.CommandBufferAllocateInfo{
			SType:              vk.StructureTypeCommandBufferAllocateInfo,
			CommandPool:        device.GraphicsCommandPool,
			Level:              vk.CommandBufferLevelPrimary,
			CommandBufferCount: 1,
		}
		buffers := make([]vk.CommandBuffer, 1)
		if err := check(vk.AllocateCommandBuffers(device.LogicalDevice, &allocateInfo, buffers), "allocating command buffer"); err != nil {
			return err
		}
		defer vk.FreeCommandBuffers(device.LogicalDevice, device.GraphicsCommandPool, 1, buffers)

		beginInfo := vk.CommandBufferBeginInfo{
			SType: vk.StructureTypeCommandBufferBeginInfo,
			Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
		}
		if err := check(vk.BeginCommandBuffer(buffers[0], &beginInfo), "beginning command buffer"); err != nil {
			return err
		}
		record(buffers[0])
		if err := check(vk.EndCommandBuffer(buffers[0]), "ending command buffer"); err != nil {
			return err
		}

		submitInfo := vk.SubmitInfo{
			SType:              vk.StructureTypeSubmitInfo,
			CommandBufferCount: 1,
			PCommandBuffers:    buffers,
		}
		return context.locks.SafeQueueCall(device.GraphicsQueueIndex, func() error {
			if err := check(vk.QueueSubmit(device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, vk.NullFence), "submitting immediate commands"); err != nil {
				return err
			}
			return check(vk.QueueWaitIdle(device.GraphicsQueue), "waiting for queue")
		})
	})
}

func (dev *Device) forgetImage(img *VulkanImage) {
	if dev.framebuffers != nil {
		dev.framebuffers.forget(img)
	}
	if dev.descriptors != nil {
		dev.descriptors.forgetImage(img)
	}
}

func (dev *Device) forgetBuffer(b *VulkanBuffer) {
	if dev.descriptors != nil {
		dev.descriptors.forgetBuffer(b)
	}
}

func (dev *Device) CreateFence(initial uint64) (metadata.Fence, error) {
	return NewFence(dev, initial), nil
}

func (dev *Device) UpdateTextureTable(slot int, tex metadata.Texture) error {
	img, ok := tex.(*VulkanImage)
	if !ok || img == nil {
		return fmt.Errorf("texture of type %T", tex)
	}
	if img.released.Load() {
		return fmt.Errorf("texture %q bound after release", img.desc.Name)
	}
	return dev.descriptors.setTexture(slot, img)
}

func (dev *Device) ExecuteCommandLists(lists ...metadata.CommandList) error {
	if len(lists) == 0 {
		return nil
	}
	buffers := make([]vk.CommandBuffer, 0, len(lists))
	touchesSwapchain := false
	for _, l := range lists {
		list, ok := l.(*VulkanCommandList)
		if !ok {
			return fmt.Errorf("command list of type %T", l)
		}
		if list.recording || list.cmd == nil {
			return fmt.Errorf("executing a command list that is not closed")
		}
		buffers = append(buffers, list.cmd)
		touchesSwapchain = touchesSwapchain || list.touchesSwapchain
	}

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: uint32(len(buffers)),
		PCommandBuffers:    buffers,
	}
	if touchesSwapchain {
		if wait := dev.swapchain.takeAcquired(); wait != vk.NullSemaphore {
			submitInfo.WaitSemaphoreCount = 1
			submitInfo.PWaitSemaphores = []vk.Semaphore{wait}
			submitInfo.PWaitDstStageMask = []vk.PipelineStageFlags{
				vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageTransferBit),
			}
		}
	}
	device := dev.context.Device
	return dev.context.locks.SafeQueueCall(device.GraphicsQueueIndex, func() error {
		return check(vk.QueueSubmit(device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, vk.NullFence), "submitting command lists")
	})
}

func (dev *Device) Signal(fence metadata.Fence, value uint64) error {
	f, ok := fence.(*VulkanFence)
	if !ok {
		return fmt.Errorf("fence of type %T", fence)
	}
	if last := f.lastValue(); value <= last {
		return fmt.Errorf("fence signal %d is not past %d", value, last)
	}
	handle, err := dev.acquireFence()
	if err != nil {
		return err
	}
	device := dev.context.Device
	// an empty submission signals once everything queued before it is done
	if err := dev.context.locks.SafeQueueCall(device.GraphicsQueueIndex, func() error {
		return check(vk.QueueSubmit(device.GraphicsQueue, 0, nil, handle), "signalling fence")
	}); err != nil {
		dev.recycleFence(handle)
		return err
	}
	f.push(value, handle)
	return nil
}

/**
 * @brief Presents the current back buffer and acquires the next one. An out
 * of date swapchain is recreated at the window size.
 */
func (dev *Device) Present() error {
	if dev.outOfDate {
		return nil
	}
	swapchain := dev.swapchain
	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{swapchain.renderFinished[swapchain.imageIndex]},
	}
	// nothing rendered into the image this frame
	if wait := swapchain.takeAcquired(); wait != vk.NullSemaphore {
		submitInfo.WaitSemaphoreCount = 1
		submitInfo.PWaitSemaphores = []vk.Semaphore{wait}
		submitInfo.PWaitDstStageMask = []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit)}
	}
	device := dev.context.Device
	if err := dev.context.locks.SafeQueueCall(device.GraphicsQueueIndex, func() error {
		return check(vk.QueueSubmit(device.GraphicsQueue, 1, []vk.SubmitInfo{submitInfo}, vk.NullFence), "submitting present signal")
	}); err != nil {
		return err
	}

	err := swapchain.present(dev)
	if err == nil {
		err = swapchain.acquire(dev)
	}
	if errors.Is(err, errSwapchainOutOfDate) {
		core.LogDebug("swapchain out of date, recreating")
		return dev.recreateSwapchain(dev.windowSize())
	}
	return err
}

func (dev *Device) CurrentBackBuffer() metadata.Texture {
	return dev.swapchain.current()
}

func (dev *Device) CurrentBackBufferIndex() int {
	return int(dev.swapchain.imageIndex)
}

func (dev *Device) BackBufferCount() int {
	return len(dev.swapchain.Images)
}

func (dev *Device) DepthStencil() metadata.Texture {
	return dev.swapchain.DepthAttachment
}

func (dev *Device) BackBufferFormat() metadata.TextureFormat {
	return fromVkFormat(dev.swapchain.ImageFormat.Format)
}

func (dev *Device) DepthStencilFormat() metadata.TextureFormat {
	return fromVkFormat(dev.context.Device.DepthFormat)
}

func (dev *Device) Resize(width, height uint32) error {
	if width == dev.width && height == dev.height && !dev.outOfDate {
		return nil
	}
	return dev.recreateSwapchain(width, height)
}

func (dev *Device) Size() (uint32, uint32) {
	return dev.width, dev.height
}

func (dev *Device) Capabilities() metadata.DeviceCapabilities {
	return dev.capabilities
}

func (dev *Device) WaitIdle() error {
	device := dev.context.Device
	return dev.context.locks.SafeQueueCall(device.GraphicsQueueIndex, func() error {
		return check(vk.DeviceWaitIdle(device.LogicalDevice), "waiting for device idle")
	})
}

// Shutdown destroys everything the device created, in reverse order.
func (dev *Device) Shutdown() error {
	context := dev.context
	if context.Device != nil && context.Device.LogicalDevice != nil {
		if err := dev.WaitIdle(); err != nil {
			core.LogError(err.Error())
		}
		if dev.swapchain != nil {
			dev.swapchain.destroy(dev)
			dev.swapchain = nil
		}
		if dev.framebuffers != nil {
			dev.framebuffers.destroy()
		}
		if dev.renderPasses != nil {
			dev.renderPasses.destroy()
		}
		if dev.descriptors != nil {
			dev.descriptors.destroy()
			dev.descriptors = nil
		}
		dev.destroyFences()
		DeviceDestroy(context)
	}
	context.destroy()
	core.LogInfo("Vulkan device shut down")
	return nil
}
