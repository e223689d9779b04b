package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/creep/engine/core"
	"github.com/spaghettifunk/creep/engine/renderer/metadata"
)

/**
 * @brief A device image with its memory and a view over all of its
 * subresources. Swapchain images are wrapped without owning the image.
 */
type VulkanImage struct {
	resource
	desc metadata.TextureDesc

	Handle vk.Image
	Memory vk.DeviceMemory
	View   vk.ImageView

	format vk.Format
	aspect vk.ImageAspectFlags
	// layout and state the image is left in by the last recorded barrier
	layout vk.ImageLayout
	state  metadata.ResourceState
	owned  bool
}

func (img *VulkanImage) Desc() metadata.TextureDesc { return img.desc }

func (img *VulkanImage) Release() {
	if !img.markReleased() {
		return
	}
	img.dev.forgetImage(img)
	device := img.dev.context.Device.LogicalDevice
	allocator := img.dev.context.Allocator
	if img.View != nil {
		vk.DestroyImageView(device, img.View, allocator)
	}
	if img.owned {
		vk.DestroyImage(device, img.Handle, allocator)
		vk.FreeMemory(device, img.Memory, allocator)
	}
}

func (img *VulkanImage) subresourceRange() vk.ImageSubresourceRange {
	return vk.ImageSubresourceRange{
		AspectMask:     img.aspect,
		BaseMipLevel:   0,
		LevelCount:     max(img.desc.MipLevels, 1),
		BaseArrayLayer: 0,
		LayerCount:     max(img.desc.ArrayLayers, 1),
	}
}

func imageUsage(usage metadata.TextureUsage) vk.ImageUsageFlags {
	var flags vk.ImageUsageFlagBits
	if usage&metadata.TextureUsageSampled != 0 {
		flags |= vk.ImageUsageSampledBit
	}
	if usage&metadata.TextureUsageRenderTarget != 0 {
		// render targets are resolved from and into
		flags |= vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferSrcBit | vk.ImageUsageTransferDstBit
	}
	if usage&metadata.TextureUsageDepthStencil != 0 {
		flags |= vk.ImageUsageDepthStencilAttachmentBit
	}
	if usage&metadata.TextureUsageTransferDst != 0 {
		flags |= vk.ImageUsageTransferDstBit
	}
	if usage&metadata.TextureUsageTransferSrc != 0 {
		flags |= vk.ImageUsageTransferSrcBit
	}
	return vk.ImageUsageFlags(flags)
}

func ImageCreate(dev *Device, desc metadata.TextureDesc) (*VulkanImage, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("texture %q: zero extent %dx%d", desc.Name, desc.Width, desc.Height)
	}
	format := toVkFormat(desc.Format)
	if format == vk.FormatUndefined {
		return nil, fmt.Errorf("texture %q: unsupported format %d", desc.Name, desc.Format)
	}
	desc.MipLevels = max(desc.MipLevels, 1)
	desc.ArrayLayers = max(desc.ArrayLayers, 1)
	desc.Samples = max(desc.Samples, 1)

	context := dev.context
	imageCreateInfo := vk.ImageCreateInfo{
		SType:         vk.StructureTypeImageCreateInfo,
		ImageType:     vk.ImageType2d,
		Format:        format,
		Extent:        vk.Extent3D{Width: desc.Width, Height: desc.Height, Depth: 1},
		MipLevels:     desc.MipLevels,
		ArrayLayers:   desc.ArrayLayers,
		Samples:       toVkSamples(desc.Samples),
		Tiling:        vk.ImageTilingOptimal,
		Usage:         imageUsage(desc.Usage),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	viewType := vk.ImageViewType2d
	if desc.Type == metadata.TextureTypeCube {
		if desc.ArrayLayers != 6 {
			return nil, fmt.Errorf("texture %q: a cube needs 6 layers, got %d", desc.Name, desc.ArrayLayers)
		}
		imageCreateInfo.Flags = vk.ImageCreateFlags(vk.ImageCreateCubeCompatibleBit)
		viewType = vk.ImageViewTypeCube
	}

	img := &VulkanImage{desc: desc, format: format, owned: true, layout: vk.ImageLayoutUndefined}
	img.init(dev)
	img.aspect = vk.ImageAspectFlags(vk.ImageAspectColorBit)
	if desc.Format.IsDepth() {
		img.aspect = vk.ImageAspectFlags(vk.ImageAspectDepthBit | vk.ImageAspectStencilBit)
	}

	device := context.Device.LogicalDevice
	if err := check(vk.CreateImage(device, &imageCreateInfo, context.Allocator, &img.Handle), "creating image "+desc.Name); err != nil {
		return nil, err
	}

	var memoryRequirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(device, img.Handle, &memoryRequirements)
	memoryRequirements.Deref()

	memoryType, err := context.FindMemoryIndex(memoryRequirements.MemoryTypeBits, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		vk.DestroyImage(device, img.Handle, context.Allocator)
		return nil, err
	}
	memoryAllocateInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  memoryRequirements.Size,
		MemoryTypeIndex: memoryType,
	}
	if err := check(vk.AllocateMemory(device, &memoryAllocateInfo, context.Allocator, &img.Memory), "allocating image memory"); err != nil {
		vk.DestroyImage(device, img.Handle, context.Allocator)
		return nil, err
	}
	if err := check(vk.BindImageMemory(device, img.Handle, img.Memory, 0), "binding image memory"); err != nil {
		img.Release()
		return nil, err
	}
	if err := img.createView(viewType); err != nil {
		img.Release()
		return nil, err
	}

	// move the image into the state the caller tracks it in
	if err := dev.immediate(func(cmd vk.CommandBuffer) {
		transitionImage(cmd, img, desc.InitialState)
	}); err != nil {
		img.Release()
		return nil, err
	}
	return img, nil
}

func wrapSwapchainImage(dev *Device, handle vk.Image, format vk.Format, width, height uint32, index int) (*VulkanImage, error) {
	img := &VulkanImage{
		desc: metadata.TextureDesc{
			Name:         fmt.Sprintf("back-buffer-%d", index),
			Width:        width,
			Height:       height,
			MipLevels:    1,
			ArrayLayers:  1,
			Format:       fromVkFormat(format),
			Samples:      1,
			Usage:        metadata.TextureUsageRenderTarget,
			InitialState: metadata.ResourceStatePresent,
		},
		Handle: handle,
		format: format,
		aspect: vk.ImageAspectFlags(vk.ImageAspectColorBit),
		layout: vk.ImageLayoutUndefined,
	}
	img.init(dev)
	if err := img.createView(vk.ImageViewType2d); err != nil {
		return nil, err
	}
	return img, nil
}

func (img *VulkanImage) createView(viewType vk.ImageViewType) error {
	viewCreateInfo := vk.ImageViewCreateInfo{
		SType:            vk.StructureTypeImageViewCreateInfo,
		Image:            img.Handle,
		ViewType:         viewType,
		Format:           img.format,
		SubresourceRange: img.subresourceRange(),
	}
	return check(vk.CreateImageView(img.dev.context.Device.LogicalDevice, &viewCreateInfo, img.dev.context.Allocator, &img.View), "creating image view")
}

// transitionImage records a barrier from the layout img was last left in.
func transitionImage(cmd vk.CommandBuffer, img *VulkanImage, after metadata.ResourceState) {
	to := stateOf(after)
	// waits on the swapchain acquire land in the first scope of the barrier
	from := stateInfo{
		layout: img.layout,
		access: 0,
		stage:  vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
	}
	if img.layout != vk.ImageLayoutUndefined {
		from = stateOf(img.state)
	}
	if img.layout != vk.ImageLayoutUndefined && img.state == after {
		return
	}
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       from.access,
		DstAccessMask:       to.access,
		OldLayout:           from.layout,
		NewLayout:           to.layout,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               img.Handle,
		SubresourceRange:    img.subresourceRange(),
	}
	vk.CmdPipelineBarrier(cmd, from.stage, to.stage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
	img.layout = to.layout
	img.state = after
}

func (dev *Device) CreateTexture(desc metadata.TextureDesc) (metadata.Texture, error) {
	img, err := ImageCreate(dev, desc)
	if err != nil {
		core.LogError("failed to create texture %q: %s", desc.Name, err)
		return nil, err
	}
	return img, nil
}
