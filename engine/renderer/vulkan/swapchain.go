package vulkan

import (
	"errors"
	"fmt"
	"math"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/creep/engine/core"
	"github.com/spaghettifunk/creep/engine/renderer/metadata"
)

var errSwapchainOutOfDate = errors.New("swapchain out of date")

/**
 * @brief The swapchain images, wrapped as textures, and the depth stencil
 * rendered alongside them. One image is acquired at any time.
 */
type VulkanSwapchain struct {
	ImageFormat vk.SurfaceFormat
	PresentMode vk.PresentMode
	Handle      vk.Swapchain
	Extent      vk.Extent2D

	Images          []*VulkanImage
	DepthAttachment *VulkanImage

	imageIndex uint32
	// imageAvailable holds one more semaphore than there are images so the
	// one handed to the next acquire is never still pending.
	imageAvailable []vk.Semaphore
	nextAvailable  int
	// renderFinished is signalled for presentation of the matching image.
	renderFinished []vk.Semaphore
	// acquired is the semaphore of the current acquire until a submission
	// waits on it.
	acquired vk.Semaphore
}

func chooseSurfaceFormat(formats []vk.SurfaceFormat) vk.SurfaceFormat {
	for _, format := range formats {
		if format.Format == vk.FormatB8g8r8a8Unorm && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return format
		}
	}
	return formats[0]
}

func choosePresentMode(modes []vk.PresentMode, immediate bool) vk.PresentMode {
	if !immediate {
		return vk.PresentModeFifo
	}
	for _, preferred := range []vk.PresentMode{vk.PresentModeImmediate, vk.PresentModeMailbox} {
		for _, mode := range modes {
			if mode == preferred {
				return mode
			}
		}
	}
	return vk.PresentModeFifo
}

func clamp(v, lo, hi uint32) uint32 {
	return min(max(v, lo), hi)
}

func SwapchainCreate(dev *Device, width, height uint32) (*VulkanSwapchain, error) {
	context := dev.context
	support, err := DeviceQuerySwapchainSupport(context.Device.PhysicalDevice, context.Surface)
	if err != nil {
		return nil, err
	}
	if len(support.Formats) == 0 || len(support.PresentModes) == 0 {
		return nil, fmt.Errorf("%w: surface has no formats or present modes", core.ErrDeviceFatal)
	}

	swapchain := &VulkanSwapchain{
		ImageFormat: chooseSurfaceFormat(support.Formats),
		PresentMode: choosePresentMode(support.PresentModes, dev.config.ImmediatePresent),
		Extent:      vk.Extent2D{Width: width, Height: height},
	}

	capabilities := support.Capabilities
	if capabilities.CurrentExtent.Width != math.MaxUint32 {
		swapchain.Extent = capabilities.CurrentExtent
	}
	swapchain.Extent.Width = clamp(swapchain.Extent.Width, capabilities.MinImageExtent.Width, capabilities.MaxImageExtent.Width)
	swapchain.Extent.Height = clamp(swapchain.Extent.Height, capabilities.MinImageExtent.Height, capabilities.MaxImageExtent.Height)

	imageCount := max(uint32(dev.config.BackBuffers), capabilities.MinImageCount)
	if capabilities.MaxImageCount > 0 {
		imageCount = min(imageCount, capabilities.MaxImageCount)
	}

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          context.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      swapchain.ImageFormat.Format,
		ImageColorSpace:  swapchain.ImageFormat.ColorSpace,
		ImageExtent:      swapchain.Extent,
		ImageArrayLayers: 1,
		// back buffers are resolve destinations when multisampling
		ImageUsage:     vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferDstBit),
		PreTransform:   capabilities.CurrentTransform,
		CompositeAlpha: vk.CompositeAlphaOpaqueBit,
		PresentMode:    swapchain.PresentMode,
		Clipped:        vk.True,
	}
	if context.Device.GraphicsQueueIndex != context.Device.PresentQueueIndex {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = []uint32{
			context.Device.GraphicsQueueIndex,
			context.Device.PresentQueueIndex,
		}
	} else {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeExclusive
	}

	device := context.Device.LogicalDevice
	if err := check(vk.CreateSwapchain(device, &swapchainCreateInfo, context.Allocator, &swapchain.Handle), "creating swapchain"); err != nil {
		return nil, err
	}

	var count uint32
	if err := check(vk.GetSwapchainImages(device, swapchain.Handle, &count, nil), "getting swapchain images"); err != nil {
		swapchain.destroy(dev)
		return nil, err
	}
	handles := make([]vk.Image, count)
	if err := check(vk.GetSwapchainImages(device, swapchain.Handle, &count, handles), "getting swapchain images"); err != nil {
		swapchain.destroy(dev)
		return nil, err
	}
	for i, handle := range handles {
		img, err := wrapSwapchainImage(dev, handle, swapchain.ImageFormat.Format, swapchain.Extent.Width, swapchain.Extent.Height, i)
		if err != nil {
			swapchain.destroy(dev)
			return nil, err
		}
		swapchain.Images = append(swapchain.Images, img)
	}

	swapchain.DepthAttachment, err = ImageCreate(dev, metadata.TextureDesc{
		Name:         "depth-stencil",
		Type:         metadata.TextureType2d,
		Width:        swapchain.Extent.Width,
		Height:       swapchain.Extent.Height,
		Format:       fromVkFormat(context.Device.DepthFormat),
		Usage:        metadata.TextureUsageDepthStencil,
		InitialState: metadata.ResourceStateDepthWrite,
	})
	if err != nil {
		swapchain.destroy(dev)
		return nil, err
	}

	semaphoreCreateInfo := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
	for i := 0; i <= len(handles); i++ {
		var s vk.Semaphore
		if err := check(vk.CreateSemaphore(device, &semaphoreCreateInfo, context.Allocator, &s), "creating semaphore"); err != nil {
			swapchain.destroy(dev)
			return nil, err
		}
		swapchain.imageAvailable = append(swapchain.imageAvailable, s)
		if i < len(handles) {
			if err := check(vk.CreateSemaphore(device, &semaphoreCreateInfo, context.Allocator, &s), "creating semaphore"); err != nil {
				swapchain.destroy(dev)
				return nil, err
			}
			swapchain.renderFinished = append(swapchain.renderFinished, s)
		}
	}

	core.LogInfo("swapchain created: %d images %dx%d, present mode %d", count, swapchain.Extent.Width, swapchain.Extent.Height, swapchain.PresentMode)
	return swapchain, nil
}

// acquire takes the next presentable image.
func (vs *VulkanSwapchain) acquire(dev *Device) error {
	semaphore := vs.imageAvailable[vs.nextAvailable]
	var index uint32
	res := vk.AcquireNextImage(dev.context.Device.LogicalDevice, vs.Handle, math.MaxUint64, semaphore, vk.NullFence, &index)
	switch res {
	case vk.Success, vk.Suboptimal:
	case vk.ErrorOutOfDate:
		return errSwapchainOutOfDate
	default:
		return check(res, "acquiring swapchain image")
	}
	vs.nextAvailable = (vs.nextAvailable + 1) % len(vs.imageAvailable)
	vs.imageIndex = index
	vs.acquired = semaphore
	return nil
}

// takeAcquired hands the pending acquire semaphore to a submission.
func (vs *VulkanSwapchain) takeAcquired() vk.Semaphore {
	s := vs.acquired
	vs.acquired = vk.NullSemaphore
	return s
}

// present queues the current image. The caller has already submitted the
// signal of renderFinished for it.
func (vs *VulkanSwapchain) present(dev *Device) error {
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{vs.renderFinished[vs.imageIndex]},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{vs.Handle},
		PImageIndices:      []uint32{vs.imageIndex},
	}
	var res vk.Result
	dev.context.locks.SafeQueueCall(dev.context.Device.PresentQueueIndex, func() error {
		res = vk.QueuePresent(dev.context.Device.PresentQueue, &presentInfo)
		return nil
	})
	switch res {
	case vk.Success:
		return nil
	case vk.Suboptimal, vk.ErrorOutOfDate:
		return errSwapchainOutOfDate
	}
	return check(res, "presenting")
}

func (vs *VulkanSwapchain) current() *VulkanImage {
	return vs.Images[vs.imageIndex]
}

func (vs *VulkanSwapchain) destroy(dev *Device) {
	context := dev.context
	device := context.Device.LogicalDevice
	for _, img := range vs.Images {
		img.Release()
	}
	vs.Images = nil
	if vs.DepthAttachment != nil {
		vs.DepthAttachment.Release()
		vs.DepthAttachment = nil
	}
	for _, s := range vs.imageAvailable {
		vk.DestroySemaphore(device, s, context.Allocator)
	}
	for _, s := range vs.renderFinished {
		vk.DestroySemaphore(device, s, context.Allocator)
	}
	vs.imageAvailable, vs.renderFinished = nil, nil
	vs.acquired = vk.NullSemaphore
	if vs.Handle != vk.NullSwapchain {
		vk.DestroySwapchain(device, vs.Handle, context.Allocator)
		vs.Handle = vk.NullSwapchain
	}
}
