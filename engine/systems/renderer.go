package systems

import (
	"fmt"

	"github.com/spaghettifunk/creep/engine/core"
	"github.com/spaghettifunk/creep/engine/renderer"
	"github.com/spaghettifunk/creep/engine/ui"
)

// Frames to wait after the last resize event before the swap chain is
// recreated.
const resizeSettleFrames = 30

/**
 * @brief Drives one frame: waits for the frame resource, uploads the dirty
 * object and material constants and the pass constants, then records and
 * submits the frame through the renderer.
 */
type RendererSystem struct {
	renderer *renderer.Renderer
	items    *RenderItemSystem
	models   *ModelSystem
	camera   *CameraSystem

	// The current window framebuffer width.
	FramebufferWidth uint32
	// The current window framebuffer height.
	FramebufferHeight uint32
	// Indicates if the window is currently being resized.
	Resizing bool
	// The current number of frames since the last resize operation.
	// Only set if Resizing = true. Otherwise 0.
	FramesSinceResize uint8
}

func NewRendererSystem(r *renderer.Renderer, items *RenderItemSystem, models *ModelSystem, camera *CameraSystem) (*RendererSystem, error) {
	if r == nil || items == nil || models == nil || camera == nil {
		err := fmt.Errorf("func NewRendererSystem - all collaborators are required")
		core.LogError(err.Error())
		return nil, err
	}
	w, h := r.Device().Size()
	camera.OnResize(w, h)
	return &RendererSystem{
		renderer:          r,
		items:             items,
		models:            models,
		camera:            camera,
		FramebufferWidth:  w,
		FramebufferHeight: h,
	}, nil
}

func (rs *RendererSystem) Renderer() *renderer.Renderer {
	return rs.renderer
}

func (rs *RendererSystem) Shutdown() error {
	return rs.renderer.Flush()
}

// OnResize records the new framebuffer size. The swap chain is recreated once
// the size has been stable for a few frames.
func (rs *RendererSystem) OnResize(width, height uint32) {
	rs.Resizing = true
	rs.FramebufferWidth = width
	rs.FramebufferHeight = height
	rs.FramesSinceResize = 0
}

/**
 * @brief Records and submits one frame for the given selection.
 *
 * @return An error wrapping core.ErrDeviceFatal when the device failed.
 */
func (rs *RendererSystem) DrawFrame(state ui.State, totalTime, deltaTime float32) error {
	if rs.FramebufferWidth == 0 || rs.FramebufferHeight == 0 {
		// minimized
		return nil
	}
	if rs.Resizing {
		rs.FramesSinceResize++
		if rs.FramesSinceResize < resizeSettleFrames {
			// skip rendering until the size settles
			return nil
		}
		rs.Resizing = false
		rs.FramesSinceResize = 0
		if err := rs.renderer.OnResize(rs.FramebufferWidth, rs.FramebufferHeight); err != nil {
			return err
		}
		rs.camera.OnResize(rs.FramebufferWidth, rs.FramebufferHeight)
	}

	frame, err := rs.renderer.BeginFrame()
	if err != nil {
		return err
	}
	if err := rs.items.UpdateObjectConstants(frame); err != nil {
		return err
	}
	if err := rs.items.UpdateMaterialConstants(frame, rs.models.Materials()); err != nil {
		return err
	}
	if err := rs.renderer.UpdateMainPassConstants(frame, rs.camera.Camera(), totalTime, deltaTime); err != nil {
		return err
	}
	return rs.renderer.Draw(frame, rs.items, state.MSAA)
}
