package views

import (
	"github.com/spaghettifunk/creep/engine/renderer/frames"
	"github.com/spaghettifunk/creep/engine/renderer/metadata"
)

/**
 * @brief Draws the sky layer. The camera sits inside the sky sphere, so
 * culling is off, and the depth test passes at the far plane (LESS_EQUAL)
 * since the sky shader forces depth to 1.
 */
type RenderViewSkybox struct {
	pipelines pipelinePair
}

func NewRenderViewSkybox() *RenderViewSkybox {
	return &RenderViewSkybox{}
}

func (vs *RenderViewSkybox) Name() string { return "skybox" }

func (vs *RenderViewSkybox) Layer() metadata.RenderLayer { return metadata.RenderLayerSky }

func (vs *RenderViewSkybox) OnCreate(device metadata.Device, shaderDir string, samples uint32) error {
	return vs.pipelines.create(device, metadata.PipelineDesc{
		Name:           "sky",
		VertexShader:   shaderPath(shaderDir, "sky.vert"),
		FragmentShader: shaderPath(shaderDir, "sky.frag"),
		CullMode:       metadata.CullModeNone,
		DepthFunc:      metadata.CompareLessEqual,
	}, samples)
}

func (vs *RenderViewSkybox) OnRender(cmd metadata.CommandList, frame *frames.FrameResource, items []*metadata.RenderItem, msaa bool) {
	cmd.SetPipeline(vs.pipelines.pick(msaa))
	drawRenderItems(cmd, frame, items)
}

func (vs *RenderViewSkybox) OnDestroy() {
	vs.pipelines.destroy()
}
