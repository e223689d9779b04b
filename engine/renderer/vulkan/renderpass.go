package vulkan

import (
	vk "github.com/goki/vulkan"
)

// renderPassKey identifies a render pass. Passes differing only in their load
// operations are compatible, so pipelines are built against the load variant.
type renderPassKey struct {
	colour      vk.Format
	depth       vk.Format
	samples     uint32
	clearColour bool
	clearDepth  bool
}

func (k renderPassKey) compatible() renderPassKey {
	k.clearColour, k.clearDepth = false, false
	return k
}

type VulkanRenderpass struct {
	Handle vk.RenderPass
	key    renderPassKey
}

func loadOp(clear bool) vk.AttachmentLoadOp {
	if clear {
		return vk.AttachmentLoadOpClear
	}
	return vk.AttachmentLoadOpLoad
}

/**
 * @brief Creates a single subpass render pass. Attachments enter and leave the
 * pass in their attachment layouts; layout changes are explicit barriers.
 */
func RenderpassCreate(context *VulkanContext, key renderPassKey) (*VulkanRenderpass, error) {
	subpass := vk.SubpassDescription{
		PipelineBindPoint: vk.PipelineBindPointGraphics,
	}

	var attachmentDescriptions []vk.AttachmentDescription
	if key.colour != vk.FormatUndefined {
		attachmentDescriptions = append(attachmentDescriptions, vk.AttachmentDescription{
			Format:         key.colour,
			Samples:        toVkSamples(key.samples),
			LoadOp:         loadOp(key.clearColour),
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutColorAttachmentOptimal,
			FinalLayout:    vk.ImageLayoutColorAttachmentOptimal,
		})
		subpass.ColorAttachmentCount = 1
		subpass.PColorAttachments = []vk.AttachmentReference{{
			Attachment: 0,
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		}}
	}
	if key.depth != vk.FormatUndefined {
		attachmentDescriptions = append(attachmentDescriptions, vk.AttachmentDescription{
			Format:         key.depth,
			Samples:        toVkSamples(key.samples),
			LoadOp:         loadOp(key.clearDepth),
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  loadOp(key.clearDepth),
			StencilStoreOp: vk.AttachmentStoreOpStore,
			InitialLayout:  vk.ImageLayoutDepthStencilAttachmentOptimal,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		})
		subpass.PDepthStencilAttachment = &vk.AttachmentReference{
			Attachment: uint32(len(attachmentDescriptions) - 1),
			Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
		}
	}

	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageEarlyFragmentTestsBit),
		SrcAccessMask: 0,
		DstStageMask:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit | vk.PipelineStageEarlyFragmentTestsBit),
		DstAccessMask: vk.AccessFlags(vk.AccessColorAttachmentWriteBit | vk.AccessDepthStencilAttachmentWriteBit),
	}

	renderpassCreateInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachmentDescriptions)),
		PAttachments:    attachmentDescriptions,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}

	out := &VulkanRenderpass{key: key}
	if err := check(vk.CreateRenderPass(context.Device.LogicalDevice, &renderpassCreateInfo, context.Allocator, &out.Handle), "creating render pass"); err != nil {
		return nil, err
	}
	return out, nil
}

func (vr *VulkanRenderpass) RenderpassDestroy(context *VulkanContext) {
	if vr.Handle != nil {
		vk.DestroyRenderPass(context.Device.LogicalDevice, vr.Handle, context.Allocator)
		vr.Handle = nil
	}
}

func (vr *VulkanRenderpass) RenderpassBegin(cmd vk.CommandBuffer, framebuffer vk.Framebuffer, width, height uint32, clearValues []vk.ClearValue) {
	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  vr.Handle,
		Framebuffer: framebuffer,
		RenderArea: vk.Rect2D{
			Offset: vk.Offset2D{X: 0, Y: 0},
			Extent: vk.Extent2D{Width: width, Height: height},
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(cmd, &beginInfo, vk.SubpassContentsInline)
}

func (vr *VulkanRenderpass) RenderpassEnd(cmd vk.CommandBuffer) {
	vk.CmdEndRenderPass(cmd)
}

// renderPassCache owns every render pass created by the device.
type renderPassCache struct {
	context *VulkanContext
	passes  map[renderPassKey]*VulkanRenderpass
}

func newRenderPassCache(context *VulkanContext) *renderPassCache {
	return &renderPassCache{context: context, passes: make(map[renderPassKey]*VulkanRenderpass)}
}

func (c *renderPassCache) get(key renderPassKey) (*VulkanRenderpass, error) {
	var rp *VulkanRenderpass
	err := c.context.locks.SafeCall(RenderpassManagement, func() error {
		if cached, ok := c.passes[key]; ok {
			rp = cached
			return nil
		}
		created, err := RenderpassCreate(c.context, key)
		if err != nil {
			return err
		}
		c.passes[key] = created
		rp = created
		return nil
	})
	return rp, err
}

func (c *renderPassCache) destroy() {
	for key, rp := range c.passes {
		rp.RenderpassDestroy(c.context)
		delete(c.passes, key)
	}
}
