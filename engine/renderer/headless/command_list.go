package headless

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/spaghettifunk/creep/engine/renderer/metadata"
)

type Op string

const (
	OpBarrier         Op = "barrier"
	OpCopyBuffer      Op = "copy-buffer"
	OpCopyTexture     Op = "copy-texture"
	OpViewport        Op = "viewport"
	OpScissor         Op = "scissor"
	OpClearColour     Op = "clear-colour"
	OpClearDepth      Op = "clear-depth"
	OpSetTargets      Op = "set-targets"
	OpSetPipeline     Op = "set-pipeline"
	OpPassConstants   Op = "pass-constants"
	OpObjectConstants Op = "object-constants"
	OpMaterials       Op = "materials"
	OpVertexBuffer    Op = "vertex-buffer"
	OpIndexBuffer     Op = "index-buffer"
	OpDraw            Op = "draw"
	OpResolve         Op = "resolve"
)

// Command is one recorded command. Only the fields relevant to Op are set.
type Command struct {
	Op         Op
	Barriers   []metadata.Barrier
	Targets    []metadata.GPUResource
	Pipeline   string
	Offset     uint64
	IndexCount uint32
	StartIndex uint32
	BaseVertex int32
	Colour     [4]float32
	Depth      float32
	Src, Dst   metadata.GPUResource
	Size       uint64
}

type CommandList struct {
	dev      *Device
	alloc    *CommandAllocator
	open     bool
	commands []Command
	refs     map[uuid.UUID]*base
	pipeline *Pipeline
}

func (l *CommandList) Reset(alloc metadata.CommandAllocator) error {
	a, ok := alloc.(*CommandAllocator)
	if !ok {
		return fmt.Errorf("allocator %T does not belong to the headless device", alloc)
	}
	if l.open {
		l.dev.violation("command list reset while still recording")
	}
	l.alloc = a
	l.open = true
	l.commands = l.commands[:0]
	l.refs = make(map[uuid.UUID]*base)
	l.pipeline = nil
	return nil
}

func (l *CommandList) Close() error {
	if !l.open {
		return fmt.Errorf("command list closed twice")
	}
	l.open = false
	return nil
}

// Commands returns the commands recorded since the last Reset.
func (l *CommandList) Commands() []Command {
	return append([]Command(nil), l.commands...)
}

func (l *CommandList) record(c Command, resources ...metadata.GPUResource) {
	if !l.open {
		l.dev.violation("%s recorded on a closed command list", c.Op)
		return
	}
	for _, r := range resources {
		if r == nil {
			continue
		}
		if ref, ok := r.(referenced); ok {
			b := ref.ref()
			if b.Released() {
				l.dev.violation("%s records released resource %q", c.Op, b.name)
			}
			l.refs[b.id] = b
		}
	}
	l.commands = append(l.commands, c)
}

func (l *CommandList) ResourceBarrier(barriers ...metadata.Barrier) {
	res := make([]metadata.GPUResource, 0, len(barriers))
	for _, b := range barriers {
		res = append(res, b.Resource)
	}
	l.record(Command{Op: OpBarrier, Barriers: append([]metadata.Barrier(nil), barriers...)}, res...)
}

func (l *CommandList) CopyBuffer(dst, src metadata.Buffer, size uint64) {
	l.record(Command{Op: OpCopyBuffer, Src: src, Dst: dst, Size: size}, dst, src)
}

func (l *CommandList) CopyBufferToTexture(dst metadata.Texture, src metadata.Buffer, regions []metadata.TextureRegion) {
	l.record(Command{Op: OpCopyTexture, Src: src, Dst: dst, Size: uint64(len(regions))}, dst, src)
}

func (l *CommandList) SetViewport(vp metadata.Viewport) {
	l.record(Command{Op: OpViewport})
}

func (l *CommandList) SetScissor(r metadata.Rect) {
	l.record(Command{Op: OpScissor})
}

func (l *CommandList) ClearRenderTarget(target metadata.Texture, colour [4]float32) {
	l.record(Command{Op: OpClearColour, Dst: target, Colour: colour}, target)
}

func (l *CommandList) ClearDepthStencil(target metadata.Texture, depth float32, stencil uint8) {
	l.record(Command{Op: OpClearDepth, Dst: target, Depth: depth}, target)
}

func (l *CommandList) SetRenderTargets(colour metadata.Texture, depth metadata.Texture) {
	l.record(Command{Op: OpSetTargets, Targets: []metadata.GPUResource{colour, depth}}, colour, depth)
}

func (l *CommandList) SetPipeline(p metadata.Pipeline) {
	hp, _ := p.(*Pipeline)
	l.pipeline = hp
	l.record(Command{Op: OpSetPipeline, Pipeline: p.Desc().Name}, p)
}

func (l *CommandList) SetPassConstants(buf metadata.Buffer) {
	l.record(Command{Op: OpPassConstants, Src: buf}, buf)
}

func (l *CommandList) SetObjectConstants(buf metadata.Buffer, offset uint64) {
	l.record(Command{Op: OpObjectConstants, Src: buf, Offset: offset}, buf)
}

func (l *CommandList) SetMaterialData(buf metadata.Buffer) {
	l.record(Command{Op: OpMaterials, Src: buf}, buf)
}

func (l *CommandList) SetVertexBuffer(buf metadata.Buffer, stride uint32) {
	l.record(Command{Op: OpVertexBuffer, Src: buf}, buf)
}

func (l *CommandList) SetIndexBuffer(buf metadata.Buffer, format metadata.IndexFormat) {
	l.record(Command{Op: OpIndexBuffer, Src: buf}, buf)
}

func (l *CommandList) DrawIndexedInstanced(indexCount, instanceCount, startIndex uint32, baseVertex int32, startInstance uint32) {
	if l.pipeline == nil {
		l.dev.violation("draw without a pipeline")
	}
	name := ""
	if l.pipeline != nil {
		name = l.pipeline.desc.Name
	}
	l.record(Command{
		Op:         OpDraw,
		Pipeline:   name,
		IndexCount: indexCount,
		StartIndex: startIndex,
		BaseVertex: baseVertex,
	})
}

func (l *CommandList) ResolveSubresource(dst, src metadata.Texture) {
	l.record(Command{Op: OpResolve, Src: src, Dst: dst}, dst, src)
}
