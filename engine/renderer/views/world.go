package views

import (
	"github.com/spaghettifunk/creep/engine/renderer/frames"
	"github.com/spaghettifunk/creep/engine/renderer/metadata"
)

// RenderViewWorld draws the opaque layer with back face culling.
type RenderViewWorld struct {
	pipelines pipelinePair
}

func NewRenderViewWorld() *RenderViewWorld {
	return &RenderViewWorld{}
}

func (vw *RenderViewWorld) Name() string { return "world" }

func (vw *RenderViewWorld) Layer() metadata.RenderLayer { return metadata.RenderLayerOpaque }

func (vw *RenderViewWorld) OnCreate(device metadata.Device, shaderDir string, samples uint32) error {
	return vw.pipelines.create(device, metadata.PipelineDesc{
		Name:           "opaque",
		VertexShader:   shaderPath(shaderDir, "default.vert"),
		FragmentShader: shaderPath(shaderDir, "default.frag"),
		CullMode:       metadata.CullModeBack,
		DepthFunc:      metadata.CompareLess,
	}, samples)
}

func (vw *RenderViewWorld) OnRender(cmd metadata.CommandList, frame *frames.FrameResource, items []*metadata.RenderItem, msaa bool) {
	cmd.SetPipeline(vw.pipelines.pick(msaa))
	drawRenderItems(cmd, frame, items)
}

func (vw *RenderViewWorld) OnDestroy() {
	vw.pipelines.destroy()
}
