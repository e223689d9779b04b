package views

import (
	"fmt"
	"path/filepath"

	"github.com/spaghettifunk/creep/engine/core"
	"github.com/spaghettifunk/creep/engine/renderer/frames"
	"github.com/spaghettifunk/creep/engine/renderer/metadata"
)

/**
 * @brief A render view records the draws of one render layer with its own
 * pipeline state. Views are recorded in layer order.
 */
type RenderView interface {
	Name() string
	Layer() metadata.RenderLayer
	// OnCreate builds the single sampled pipeline and, when samples > 1,
	// the multisampled variant.
	OnCreate(device metadata.Device, shaderDir string, samples uint32) error
	OnRender(cmd metadata.CommandList, frame *frames.FrameResource, items []*metadata.RenderItem, msaa bool)
	OnDestroy()
}

// pipelinePair holds the single sampled and multisampled variants of a view.
type pipelinePair struct {
	single metadata.Pipeline
	msaa   metadata.Pipeline
}

func (pp *pipelinePair) create(device metadata.Device, base metadata.PipelineDesc, samples uint32) error {
	base.Samples = 1
	base.ColourFormat = device.BackBufferFormat()
	base.DepthFormat = device.DepthStencilFormat()

	p, err := device.CreatePipeline(base)
	if err != nil {
		return fmt.Errorf("%w: pipeline %q: %v", core.ErrDeviceFatal, base.Name, err)
	}
	pp.single = p

	if samples > 1 {
		ms := base
		ms.Name = fmt.Sprintf("%s-msaa%dx", base.Name, samples)
		ms.Samples = samples
		if pp.msaa, err = device.CreatePipeline(ms); err != nil {
			pp.destroy()
			return fmt.Errorf("%w: pipeline %q: %v", core.ErrDeviceFatal, ms.Name, err)
		}
	}
	return nil
}

func (pp *pipelinePair) pick(msaa bool) metadata.Pipeline {
	if msaa && pp.msaa != nil {
		return pp.msaa
	}
	return pp.single
}

func (pp *pipelinePair) destroy() {
	if pp.single != nil {
		pp.single.Release()
		pp.single = nil
	}
	if pp.msaa != nil {
		pp.msaa.Release()
		pp.msaa = nil
	}
}

func shaderPath(dir, name string) string {
	return filepath.Join(dir, name+".spv")
}

// drawRenderItems binds the geometry and object constants of every item and
// issues one indexed draw each.
func drawRenderItems(cmd metadata.CommandList, frame *frames.FrameResource, items []*metadata.RenderItem) {
	objectCB := frame.ObjectCB
	for _, ri := range items {
		if ri.Geo == nil {
			continue
		}
		cmd.SetVertexBuffer(ri.Geo.VertexBuffer, ri.Geo.VertexByteStride)
		cmd.SetIndexBuffer(ri.Geo.IndexBuffer, ri.Geo.IndexFormat)
		cmd.SetObjectConstants(objectCB.Resource(), objectCB.Offset(ri.ObjCBIndex))
		cmd.DrawIndexedInstanced(ri.IndexCount, 1, ri.StartIndexLocation, ri.BaseVertexLocation, 0)
	}
}
