package vulkan

import (
	"fmt"
	"sync"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/creep/engine/core"
	"github.com/spaghettifunk/creep/engine/renderer/metadata"
)

/**
 * @brief A command pool. Each list recorded from the allocator gets its own
 * primary command buffer out of the pool, allocated on first use.
 */
type VulkanCommandAllocator struct {
	resource

	pool    vk.CommandPool
	mu      sync.Mutex
	buffers map[*VulkanCommandList]vk.CommandBuffer
}

func (dev *Device) CreateCommandAllocator() (metadata.CommandAllocator, error) {
	context := dev.context
	poolCreateInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: context.Device.GraphicsQueueIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	a := &VulkanCommandAllocator{buffers: make(map[*VulkanCommandList]vk.CommandBuffer)}
	a.init(dev)
	if err := check(vk.CreateCommandPool(context.Device.LogicalDevice, &poolCreateInfo, context.Allocator, &a.pool), "creating command pool"); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *VulkanCommandAllocator) Reset() error {
	if a.released.Load() {
		return fmt.Errorf("command allocator reset after release")
	}
	return check(vk.ResetCommandPool(a.dev.context.Device.LogicalDevice, a.pool, 0), "resetting command pool")
}

// buffer returns the command buffer of list, allocating it on first use.
func (a *VulkanCommandAllocator) buffer(list *VulkanCommandList) (vk.CommandBuffer, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if cmd, ok := a.buffers[list]; ok {
		return cmd, nil
	}
	allocateInfo := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        a.pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}
	buffers := make([]vk.CommandBuffer, 1)
	if err := check(vk.AllocateCommandBuffers(a.dev.context.Device.LogicalDevice, &allocateInfo, buffers), "allocating command buffer"); err != nil {
		return nil, err
	}
	a.buffers[list] = buffers[0]
	return buffers[0], nil
}

func (a *VulkanCommandAllocator) Release() {
	if !a.markReleased() {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	for list := range a.buffers {
		list.forgetAllocator(a)
	}
	a.buffers = nil
	// destroying the pool frees its command buffers
	vk.DestroyCommandPool(a.dev.context.Device.LogicalDevice, a.pool, a.dev.context.Allocator)
}

type pendingClear struct {
	value vk.ClearValue
}

/**
 * @brief Records into the command buffer its allocator hands out. Render
 * passes are implicit: the pass over the bound targets begins at the first
 * draw and ends at the next command that cannot run inside one. Clears of the
 * bound targets recorded before the pass begins become its load operations.
 * The first recording error is kept and returned by Close.
 */
type VulkanCommandList struct {
	dev *Device

	alloc     *VulkanCommandAllocator
	cmd       vk.CommandBuffer
	recording bool
	err       error

	colour *VulkanImage
	depth  *VulkanImage
	pass   *VulkanRenderpass
	clears map[*VulkanImage]pendingClear

	pipeline     *VulkanPipeline
	passCB       *VulkanBuffer
	objectCB     *VulkanBuffer
	objectOffset uint32
	materials    *VulkanBuffer

	// touchesSwapchain is set when the recorded commands use a back buffer.
	touchesSwapchain bool
}

func (dev *Device) CreateCommandList(alloc metadata.CommandAllocator) (metadata.CommandList, error) {
	if _, ok := alloc.(*VulkanCommandAllocator); !ok {
		return nil, fmt.Errorf("command allocator of type %T", alloc)
	}
	return &VulkanCommandList{
		dev:    dev,
		clears: make(map[*VulkanImage]pendingClear),
	}, nil
}

func (l *VulkanCommandList) fail(err error) {
	if l.err == nil {
		l.err = err
		core.LogError("command list: %s", err)
	}
}

func (l *VulkanCommandList) forgetAllocator(a *VulkanCommandAllocator) {
	if l.alloc == a {
		l.alloc = nil
		l.cmd = nil
		l.recording = false
	}
}

func (l *VulkanCommandList) Reset(alloc metadata.CommandAllocator) error {
	if l.recording {
		return fmt.Errorf("command list reset while recording")
	}
	a, ok := alloc.(*VulkanCommandAllocator)
	if !ok {
		return fmt.Errorf("command allocator of type %T", alloc)
	}
	cmd, err := a.buffer(l)
	if err != nil {
		return err
	}
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	if err := check(vk.BeginCommandBuffer(cmd, &beginInfo), "beginning command buffer"); err != nil {
		return err
	}

	l.alloc, l.cmd, l.recording, l.err = a, cmd, true, nil
	l.colour, l.depth, l.pass = nil, nil, nil
	clear(l.clears)
	l.pipeline, l.passCB, l.objectCB, l.materials = nil, nil, nil, nil
	l.objectOffset = 0
	l.touchesSwapchain = false
	return nil
}

func (l *VulkanCommandList) Close() error {
	if !l.recording {
		return fmt.Errorf("command list closed while not recording")
	}
	l.flushClears()
	l.recording = false
	if err := check(vk.EndCommandBuffer(l.cmd), "ending command buffer"); err != nil {
		l.fail(err)
	}
	return l.err
}

func (l *VulkanCommandList) usable() bool {
	if !l.recording {
		l.fail(fmt.Errorf("command recorded outside Reset/Close"))
		return false
	}
	return l.err == nil
}

func (l *VulkanCommandList) image(t metadata.Texture) *VulkanImage {
	img, ok := t.(*VulkanImage)
	if !ok || img == nil {
		l.fail(fmt.Errorf("texture of type %T", t))
		return nil
	}
	if !img.owned {
		l.touchesSwapchain = true
	}
	return img
}

func (l *VulkanCommandList) buffer(b metadata.Buffer) *VulkanBuffer {
	buf, ok := b.(*VulkanBuffer)
	if !ok || buf == nil {
		l.fail(fmt.Errorf("buffer of type %T", b))
		return nil
	}
	return buf
}

func (l *VulkanCommandList) endPass() {
	if l.pass != nil {
		l.pass.RenderpassEnd(l.cmd)
		l.pass = nil
	}
}

// flushClears ends the current pass and runs the clears no pass consumed.
func (l *VulkanCommandList) flushClears() {
	l.endPass()
	for img, c := range l.clears {
		delete(l.clears, img)
		if l.err != nil {
			continue
		}
		if img.desc.Format.IsDepth() {
			l.runPass(nil, img, nil, &c)
		} else {
			l.runPass(img, nil, &c, nil)
		}
		l.endPass()
	}
}

func (l *VulkanCommandList) beginPass() {
	if l.colour == nil && l.depth == nil {
		l.fail(fmt.Errorf("draw without render targets"))
		return
	}
	var colourClear, depthClear *pendingClear
	if c, ok := l.clears[l.colour]; ok && l.colour != nil {
		colourClear = &c
		delete(l.clears, l.colour)
	}
	if c, ok := l.clears[l.depth]; ok && l.depth != nil {
		depthClear = &c
		delete(l.clears, l.depth)
	}
	l.runPass(l.colour, l.depth, colourClear, depthClear)
}

// runPass begins a render pass over the targets, clearing those with a
// clear value.
func (l *VulkanCommandList) runPass(colour, depth *VulkanImage, colourClear, depthClear *pendingClear) {
	key := renderPassKey{colour: vk.FormatUndefined, depth: vk.FormatUndefined, samples: 1}
	var clearValues []vk.ClearValue
	var width, height uint32
	if colour != nil {
		if colour.layout != stateOf(metadata.ResourceStateRenderTarget).layout {
			l.fail(fmt.Errorf("render target %q used in state %s", colour.desc.Name, colour.state))
			return
		}
		key.colour = colour.format
		key.samples = colour.desc.Samples
		key.clearColour = colourClear != nil
		width, height = colour.desc.Width, colour.desc.Height
		if colourClear != nil {
			clearValues = append(clearValues, colourClear.value)
		} else {
			clearValues = append(clearValues, vk.ClearValue{})
		}
	}
	if depth != nil {
		if depth.layout != stateOf(metadata.ResourceStateDepthWrite).layout {
			l.fail(fmt.Errorf("depth target %q used in state %s", depth.desc.Name, depth.state))
			return
		}
		key.depth = depth.format
		key.clearDepth = depthClear != nil
		if colour == nil {
			key.samples = depth.desc.Samples
			width, height = depth.desc.Width, depth.desc.Height
		}
		if depthClear != nil {
			clearValues = append(clearValues, depthClear.value)
		} else {
			clearValues = append(clearValues, vk.ClearValue{})
		}
	}
	key.samples = max(key.samples, 1)

	rp, err := l.dev.renderPasses.get(key)
	if err != nil {
		l.fail(err)
		return
	}
	fb, err := l.dev.framebuffers.get(rp, colour, depth)
	if err != nil {
		l.fail(err)
		return
	}
	rp.RenderpassBegin(l.cmd, fb.Handle, width, height, clearValues)
	l.pass = rp
}

func (l *VulkanCommandList) ResourceBarrier(barriers ...metadata.Barrier) {
	if !l.usable() {
		return
	}
	l.flushClears()
	for _, b := range barriers {
		switch r := b.Resource.(type) {
		case *VulkanImage:
			if !r.owned {
				l.touchesSwapchain = true
			}
			transitionImage(l.cmd, r, b.After)
		case *VulkanBuffer:
			bufferBarrier(l.cmd, r, b.Before, b.After)
		default:
			l.fail(fmt.Errorf("barrier on resource of type %T", b.Resource))
			return
		}
	}
}

func (l *VulkanCommandList) CopyBuffer(dst, src metadata.Buffer, size uint64) {
	if !l.usable() {
		return
	}
	d, s := l.buffer(dst), l.buffer(src)
	if d == nil || s == nil {
		return
	}
	if size > d.Size() || size > s.Size() {
		l.fail(fmt.Errorf("copy of %d bytes from %q (%d) into %q (%d)", size, s.desc.Name, s.Size(), d.desc.Name, d.Size()))
		return
	}
	l.flushClears()
	vk.CmdCopyBuffer(l.cmd, s.Handle, d.Handle, 1, []vk.BufferCopy{{Size: vk.DeviceSize(size)}})
}

func (l *VulkanCommandList) CopyBufferToTexture(dst metadata.Texture, src metadata.Buffer, regions []metadata.TextureRegion) {
	if !l.usable() {
		return
	}
	img, buf := l.image(dst), l.buffer(src)
	if img == nil || buf == nil {
		return
	}
	if img.state != metadata.ResourceStateCopyDest {
		l.fail(fmt.Errorf("copy into %q in state %s", img.desc.Name, img.state))
		return
	}
	l.flushClears()
	copies := make([]vk.BufferImageCopy, len(regions))
	for i, r := range regions {
		copies[i] = vk.BufferImageCopy{
			BufferOffset: vk.DeviceSize(r.BufferOffset),
			ImageSubresource: vk.ImageSubresourceLayers{
				AspectMask:     img.aspect,
				MipLevel:       r.MipLevel,
				BaseArrayLayer: r.ArrayLayer,
				LayerCount:     1,
			},
			ImageExtent: vk.Extent3D{Width: r.Width, Height: r.Height, Depth: 1},
		}
	}
	vk.CmdCopyBufferToImage(l.cmd, buf.Handle, img.Handle, img.layout, uint32(len(copies)), copies)
}

func (l *VulkanCommandList) SetViewport(vp metadata.Viewport) {
	if !l.usable() {
		return
	}
	// flipped so that clip space y points up like the projection expects
	viewport := vk.Viewport{
		X:        vp.X,
		Y:        vp.Y + vp.Height,
		Width:    vp.Width,
		Height:   -vp.Height,
		MinDepth: vp.MinDepth,
		MaxDepth: vp.MaxDepth,
	}
	vk.CmdSetViewport(l.cmd, 0, 1, []vk.Viewport{viewport})
}

func (l *VulkanCommandList) SetScissor(r metadata.Rect) {
	if !l.usable() {
		return
	}
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: r.X, Y: r.Y},
		Extent: vk.Extent2D{Width: r.Width, Height: r.Height},
	}
	vk.CmdSetScissor(l.cmd, 0, 1, []vk.Rect2D{scissor})
}

func (l *VulkanCommandList) bound(img *VulkanImage) bool {
	return l.pass != nil && (img == l.colour || img == l.depth)
}

func (l *VulkanCommandList) ClearRenderTarget(target metadata.Texture, colour [4]float32) {
	if !l.usable() {
		return
	}
	img := l.image(target)
	if img == nil {
		return
	}
	value := vk.NewClearValue(colour[:])
	if l.bound(img) {
		l.clearAttachment(img, vk.ImageAspectFlags(vk.ImageAspectColorBit), value)
		return
	}
	l.clears[img] = pendingClear{value: value}
}

func (l *VulkanCommandList) ClearDepthStencil(target metadata.Texture, depth float32, stencil uint8) {
	if !l.usable() {
		return
	}
	img := l.image(target)
	if img == nil {
		return
	}
	value := vk.NewClearDepthStencil(depth, uint32(stencil))
	if l.bound(img) {
		l.clearAttachment(img, vk.ImageAspectFlags(vk.ImageAspectDepthBit|vk.ImageAspectStencilBit), value)
		return
	}
	l.clears[img] = pendingClear{value: value}
}

func (l *VulkanCommandList) clearAttachment(img *VulkanImage, aspect vk.ImageAspectFlags, value vk.ClearValue) {
	attachment := vk.ClearAttachment{
		AspectMask:      aspect,
		ColorAttachment: 0,
		ClearValue:      value,
	}
	rect := vk.ClearRect{
		Rect: vk.Rect2D{
			Extent: vk.Extent2D{Width: img.desc.Width, Height: img.desc.Height},
		},
		BaseArrayLayer: 0,
		LayerCount:     1,
	}
	vk.CmdClearAttachments(l.cmd, 1, []vk.ClearAttachment{attachment}, 1, []vk.ClearRect{rect})
}

func (l *VulkanCommandList) SetRenderTargets(colour metadata.Texture, depth metadata.Texture) {
	if !l.usable() {
		return
	}
	var c, d *VulkanImage
	if colour != nil {
		if c = l.image(colour); c == nil {
			return
		}
	}
	if depth != nil {
		if d = l.image(depth); d == nil {
			return
		}
	}
	if c == l.colour && d == l.depth {
		return
	}
	l.endPass()
	l.colour, l.depth = c, d
}

func (l *VulkanCommandList) SetPipeline(p metadata.Pipeline) {
	if !l.usable() {
		return
	}
	pipeline, ok := p.(*VulkanPipeline)
	if !ok || pipeline == nil {
		l.fail(fmt.Errorf("pipeline of type %T", p))
		return
	}
	if pipeline != l.pipeline {
		vk.CmdBindPipeline(l.cmd, vk.PipelineBindPointGraphics, pipeline.Handle)
		l.pipeline = pipeline
	}
}

func (l *VulkanCommandList) SetPassConstants(buf metadata.Buffer) {
	if l.usable() {
		l.passCB = l.buffer(buf)
	}
}

func (l *VulkanCommandList) SetObjectConstants(buf metadata.Buffer, offset uint64) {
	if !l.usable() {
		return
	}
	if align := l.dev.Capabilities().MinUniformAlign; align > 0 && offset%align != 0 {
		l.fail(fmt.Errorf("object constants offset %d is not aligned to %d", offset, align))
		return
	}
	l.objectCB = l.buffer(buf)
	l.objectOffset = uint32(offset)
}

func (l *VulkanCommandList) SetMaterialData(buf metadata.Buffer) {
	if l.usable() {
		l.materials = l.buffer(buf)
	}
}

func (l *VulkanCommandList) SetVertexBuffer(buf metadata.Buffer, stride uint32) {
	if !l.usable() {
		return
	}
	if stride != vertexStride {
		l.fail(fmt.Errorf("vertex stride %d, pipelines expect %d", stride, vertexStride))
		return
	}
	if b := l.buffer(buf); b != nil {
		vk.CmdBindVertexBuffers(l.cmd, 0, 1, []vk.Buffer{b.Handle}, []vk.DeviceSize{0})
	}
}

func (l *VulkanCommandList) SetIndexBuffer(buf metadata.Buffer, format metadata.IndexFormat) {
	if !l.usable() {
		return
	}
	if b := l.buffer(buf); b != nil {
		vk.CmdBindIndexBuffer(l.cmd, b.Handle, 0, toVkIndexType(format))
	}
}

func (l *VulkanCommandList) DrawIndexedInstanced(indexCount, instanceCount, startIndex uint32, baseVertex int32, startInstance uint32) {
	if !l.usable() {
		return
	}
	if l.pipeline == nil {
		l.fail(fmt.Errorf("draw without a pipeline"))
		return
	}
	if l.pass == nil {
		l.beginPass()
		if l.err != nil {
			return
		}
	}
	if l.pass.key.compatible() != l.pipeline.passKey {
		l.fail(fmt.Errorf("pipeline %q does not match the bound render targets", l.pipeline.desc.Name))
		return
	}

	set, err := l.dev.descriptors.bufferSet(l.passCB, l.objectCB, l.materials)
	if err != nil {
		l.fail(err)
		return
	}
	vk.CmdBindDescriptorSets(l.cmd, vk.PipelineBindPointGraphics, l.dev.descriptors.PipelineLayout,
		0, 2, []vk.DescriptorSet{set, l.dev.descriptors.textureSet}, 1, []uint32{l.objectOffset})
	vk.CmdDrawIndexed(l.cmd, indexCount, instanceCount, startIndex, baseVertex, startInstance)
}

func (l *VulkanCommandList) ResolveSubresource(dst, src metadata.Texture) {
	if !l.usable() {
		return
	}
	d, s := l.image(dst), l.image(src)
	if d == nil || s == nil {
		return
	}
	if s.state != metadata.ResourceStateResolveSource || d.state != metadata.ResourceStateResolveDest {
		l.fail(fmt.Errorf("resolve from %q (%s) into %q (%s)", s.desc.Name, s.state, d.desc.Name, d.state))
		return
	}
	l.flushClears()
	subresource := vk.ImageSubresourceLayers{
		AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
		LayerCount: 1,
	}
	region := vk.ImageResolve{
		SrcSubresource: subresource,
		DstSubresource: subresource,
		Extent:         vk.Extent3D{Width: min(s.desc.Width, d.desc.Width), Height: min(s.desc.Height, d.desc.Height), Depth: 1},
	}
	vk.CmdResolveImage(l.cmd, s.Handle, s.layout, d.Handle, d.layout, 1, []vk.ImageResolve{region})
}
