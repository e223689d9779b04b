package vulkan

import (
	vk "github.com/goki/vulkan"
)

type VulkanFramebuffer struct {
	Handle      vk.Framebuffer
	Attachments []*VulkanImage
	Renderpass  *VulkanRenderpass
	Width       uint32
	Height      uint32
}

func FramebufferCreate(context *VulkanContext, renderpass *VulkanRenderpass, width, height uint32, attachments []*VulkanImage) (*VulkanFramebuffer, error) {
	views := make([]vk.ImageView, len(attachments))
	for i, img := range attachments {
		views[i] = img.View
	}
	framebufferCreateInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      renderpass.Handle,
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           width,
		Height:          height,
		Layers:          1,
	}

	out := &VulkanFramebuffer{
		Attachments: attachments,
		Renderpass:  renderpass,
		Width:       width,
		Height:      height,
	}
	if err := check(vk.CreateFramebuffer(context.Device.LogicalDevice, &framebufferCreateInfo, context.Allocator, &out.Handle), "creating framebuffer"); err != nil {
		return nil, err
	}
	return out, nil
}

func (vfb *VulkanFramebuffer) Destroy(context *VulkanContext) {
	if vfb.Handle != nil {
		vk.DestroyFramebuffer(context.Device.LogicalDevice, vfb.Handle, context.Allocator)
		vfb.Handle = nil
	}
	vfb.Attachments = nil
	vfb.Renderpass = nil
}

func (vfb *VulkanFramebuffer) uses(img *VulkanImage) bool {
	for _, a := range vfb.Attachments {
		if a == img {
			return true
		}
	}
	return false
}

type framebufferKey struct {
	renderpass *VulkanRenderpass
	colour     *VulkanImage
	depth      *VulkanImage
}

/**
 * @brief Framebuffers are created the first time a pair of targets is bound
 * with a render pass and destroyed with the first of their attachments.
 */
type framebufferCache struct {
	context      *VulkanContext
	framebuffers map[framebufferKey]*VulkanFramebuffer
}

func newFramebufferCache(context *VulkanContext) *framebufferCache {
	return &framebufferCache{context: context, framebuffers: make(map[framebufferKey]*VulkanFramebuffer)}
}

func (c *framebufferCache) get(rp *VulkanRenderpass, colour, depth *VulkanImage) (*VulkanFramebuffer, error) {
	key := framebufferKey{renderpass: rp, colour: colour, depth: depth}
	var fb *VulkanFramebuffer
	err := c.context.locks.SafeCall(FramebufferManagement, func() error {
		if cached, ok := c.framebuffers[key]; ok {
			fb = cached
			return nil
		}
		var attachments []*VulkanImage
		var width, height uint32
		if colour != nil {
			attachments = append(attachments, colour)
			width, height = colour.desc.Width, colour.desc.Height
		}
		if depth != nil {
			attachments = append(attachments, depth)
			if colour == nil {
				width, height = depth.desc.Width, depth.desc.Height
			}
		}
		created, err := FramebufferCreate(c.context, rp, width, height, attachments)
		if err != nil {
			return err
		}
		c.framebuffers[key] = created
		fb = created
		return nil
	})
	return fb, err
}

// forget destroys every framebuffer img is attached to.
func (c *framebufferCache) forget(img *VulkanImage) {
	c.context.locks.SafeCall(FramebufferManagement, func() error {
		for key, fb := range c.framebuffers {
			if fb.uses(img) {
				fb.Destroy(c.context)
				delete(c.framebuffers, key)
			}
		}
		return nil
	})
}

func (c *framebufferCache) destroy() {
	for key, fb := range c.framebuffers {
		fb.Destroy(c.context)
		delete(c.framebuffers, key)
	}
}
