package renderer

import (
	"fmt"

	"github.com/spaghettifunk/creep/engine/core"
	"github.com/spaghettifunk/creep/engine/math"
	"github.com/spaghettifunk/creep/engine/renderer/components"
	"github.com/spaghettifunk/creep/engine/renderer/frames"
	"github.com/spaghettifunk/creep/engine/renderer/metadata"
	"github.com/spaghettifunk/creep/engine/renderer/state"
	"github.com/spaghettifunk/creep/engine/renderer/views"
)

// LightSteelBlue
var ClearColour = [4]float32{0.690196097, 0.768627524, 0.870588303, 1.0}

type Config struct {
	FrameResources int
	// MSAASamples <= 1 disables the multisampled path.
	MSAASamples uint32
	ShaderDir   string
}

// RenderItemSource hands out the render items of a layer.
type RenderItemSource interface {
	Layer(l metadata.RenderLayer) []*metadata.RenderItem
}

/**
 * @brief Records and submits frames. The renderer owns the frame resource
 * ring, the GPU timeline, the resource state tracker and the render views,
 * and is driven from a single goroutine.
 */
type Renderer struct {
	device   metadata.Device
	config   Config
	timeline *frames.Timeline
	ring     *frames.Ring
	tracker  *state.Tracker
	releases *frames.ReleaseQueue
	views    []views.RenderView
	msaa     *MSAAHelper

	cmd          metadata.CommandList
	oneShotAlloc metadata.CommandAllocator
	oneShotList  metadata.CommandList

	// back buffers seen so far, tracked in the present state
	swapchain   []metadata.Texture
	frameNumber uint64
}

func New(device metadata.Device, config Config) (*Renderer, error) {
	if config.FrameResources < 1 {
		config.FrameResources = frames.DefaultFrameResources
	}
	r := &Renderer{
		device:   device,
		config:   config,
		tracker:  state.NewTracker(),
		releases: frames.NewReleaseQueue(),
	}
	var err error
	if r.timeline, err = frames.NewTimeline(device); err != nil {
		return nil, err
	}
	if r.ring, err = frames.NewRing(device, r.timeline, r.ringConfig(0, 0)); err != nil {
		r.Shutdown()
		return nil, err
	}
	if r.cmd, err = device.CreateCommandList(r.ring.Current().CmdListAlloc); err != nil {
		r.Shutdown()
		return nil, fmt.Errorf("%w: creating command list: %v", core.ErrDeviceFatal, err)
	}
	if r.oneShotAlloc, err = device.CreateCommandAllocator(); err != nil {
		r.Shutdown()
		return nil, fmt.Errorf("%w: creating upload allocator: %v", core.ErrDeviceFatal, err)
	}
	if r.oneShotList, err = device.CreateCommandList(r.oneShotAlloc); err != nil {
		r.Shutdown()
		return nil, fmt.Errorf("%w: creating upload command list: %v", core.ErrDeviceFatal, err)
	}

	samples := uint32(1)
	if config.MSAASamples > 1 {
		m, err := NewMSAAHelper(device, r.tracker, config.MSAASamples, ClearColour)
		if err != nil {
			core.LogWarn("multisampling disabled: %s", err)
		} else {
			r.msaa = m
			samples = config.MSAASamples
		}
	}

	r.views = []views.RenderView{views.NewRenderViewWorld(), views.NewRenderViewSkybox()}
	for _, v := range r.views {
		if err := v.OnCreate(device, config.ShaderDir, samples); err != nil {
			r.Shutdown()
			return nil, err
		}
	}
	core.LogInfo("renderer ready: %d frame resources, msaa %dx", config.FrameResources, samples)
	return r, nil
}

func (r *Renderer) ringConfig(objects, materials int) frames.RingConfig {
	return frames.RingConfig{
		Frames:        r.config.FrameResources,
		PassCount:     1,
		ObjectCount:   objects,
		MaterialCount: materials,
	}
}

func (r *Renderer) Device() metadata.Device        { return r.device }
func (r *Renderer) Timeline() *frames.Timeline     { return r.timeline }
func (r *Renderer) Ring() *frames.Ring             { return r.ring }
func (r *Renderer) Tracker() *state.Tracker        { return r.tracker }
func (r *Renderer) Releases() *frames.ReleaseQueue { return r.releases }
func (r *Renderer) FrameNumber() uint64            { return r.frameNumber }

// MSAASupported reports whether the multisampled path is available.
func (r *Renderer) MSAASupported() bool {
	return r.msaa != nil
}

// Flush waits for the GPU to finish everything submitted so far and runs
// the releases that became safe.
func (r *Renderer) Flush() error {
	if err := r.timeline.Flush(); err != nil {
		return err
	}
	r.releases.Collect(r.timeline.Completed())
	return nil
}

// RebuildFrameResources replaces the ring with one sized for objects render
// items and materials materials. The GPU is flushed first.
func (r *Renderer) RebuildFrameResources(objects, materials int) error {
	if err := r.Flush(); err != nil {
		return err
	}
	ring, err := frames.NewRing(r.device, r.timeline, r.ringConfig(objects, materials))
	if err != nil {
		return err
	}
	r.ring.Release()
	r.ring = ring
	return nil
}

/**
 * @brief Records commands with record on a dedicated list, executes them and
 * waits for completion. Resources returned by record are released once the
 * GPU has finished with them. Callers flush before the first use so the
 * allocator is idle.
 */
func (r *Renderer) ExecuteOneShot(record func(cmd metadata.CommandList) ([]metadata.GPUResource, error)) error {
	if err := r.oneShotAlloc.Reset(); err != nil {
		return fmt.Errorf("%w: resetting upload allocator: %v", core.ErrDeviceFatal, err)
	}
	if err := r.oneShotList.Reset(r.oneShotAlloc); err != nil {
		return fmt.Errorf("%w: resetting upload list: %v", core.ErrDeviceFatal, err)
	}
	transient, err := record(r.oneShotList)
	if cerr := r.oneShotList.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("%w: closing upload list: %v", core.ErrDeviceFatal, cerr)
	}
	if err != nil {
		for _, res := range transient {
			res.Release()
		}
		return err
	}
	if err := r.device.ExecuteCommandLists(r.oneShotList); err != nil {
		return fmt.Errorf("%w: executing upload list: %v", core.ErrDeviceFatal, err)
	}
	v, err := r.timeline.Signal()
	if err != nil {
		return err
	}
	r.releases.Defer(v, func() {
		for _, res := range transient {
			res.Release()
		}
	})
	if err := r.timeline.WaitFor(v); err != nil {
		return err
	}
	r.releases.Collect(r.timeline.Completed())
	return nil
}

// BeginFrame advances the ring, waiting for the GPU if the next frame
// resource is still in use.
func (r *Renderer) BeginFrame() (*frames.FrameResource, error) {
	fr, err := r.ring.Advance()
	if err != nil {
		return nil, err
	}
	r.releases.Collect(r.timeline.Completed())
	return fr, nil
}

// UpdateMainPassConstants writes the camera, timing and lighting constants
// of this frame into fr.
func (r *Renderer) UpdateMainPassConstants(fr *frames.FrameResource, camera *components.Camera, totalTime, deltaTime float32) error {
	view := camera.View()
	proj := camera.Proj()
	viewProj := view.Mul(proj)
	invView := view.Inverse()
	invProj := proj.Inverse()
	invViewProj := viewProj.Inverse()

	w, h := r.device.Size()
	pc := metadata.PassConstants{
		View:                view.Transposed(),
		InvView:             invView.Transposed(),
		Proj:                proj.Transposed(),
		InvProj:             invProj.Transposed(),
		ViewProj:            viewProj.Transposed(),
		InvViewProj:         invViewProj.Transposed(),
		EyePosW:             camera.Position(),
		RenderTargetSize:    math.NewVec2(float32(w), float32(h)),
		InvRenderTargetSize: math.NewVec2(1/float32(max(w, 1)), 1/float32(max(h, 1))),
		NearZ:               camera.NearZ(),
		FarZ:                camera.FarZ(),
		TotalTime:           totalTime,
		DeltaTime:           deltaTime,
		AmbientLight:        math.NewVec4(0.25, 0.25, 0.35, 1.0),
	}
	pc.Lights[0].Direction = math.NewVec3(0.57735, -0.57735, 0.57735)
	pc.Lights[0].Strength = math.NewVec3(0.6, 0.6, 0.6)
	pc.Lights[1].Direction = math.NewVec3(-0.57735, -0.57735, 0.57735)
	pc.Lights[1].Strength = math.NewVec3(0.3, 0.3, 0.3)
	pc.Lights[2].Direction = math.NewVec3(0.0, -0.707, -0.707)
	pc.Lights[2].Strength = math.NewVec3(0.15, 0.15, 0.15)

	return fr.PassCB.CopyData(0, pc)
}

func (r *Renderer) trackBackBuffer(bb metadata.Texture) {
	if r.tracker.IsTracked(bb) {
		return
	}
	r.tracker.Track(bb, metadata.ResourceStatePresent)
	r.swapchain = append(r.swapchain, bb)
}

/**
 * @brief Records the frame into fr and submits it: clear, the render views in
 * layer order, then the transition of the back buffer to the present state
 * (through a resolve when multisampling).
 */
func (r *Renderer) Draw(fr *frames.FrameResource, items RenderItemSource, msaa bool) error {
	cmd := r.cmd
	if err := r.ring.Begin(cmd); err != nil {
		return err
	}

	w, h := r.device.Size()
	cmd.SetViewport(metadata.Viewport{Width: float32(w), Height: float32(h), MaxDepth: 1})
	cmd.SetScissor(metadata.Rect{Width: w, Height: h})

	bb := r.device.CurrentBackBuffer()
	r.trackBackBuffer(bb)

	useMSAA := msaa && r.msaa != nil
	fail := func(err error) error {
		cmd.Close()
		return err
	}
	if useMSAA {
		if r.msaa.RenderTarget() == nil {
			if err := r.msaa.SizeResources(w, h); err != nil {
				return fail(err)
			}
		}
		if err := r.msaa.Prepare(cmd); err != nil {
			return fail(err)
		}
		cmd.ClearRenderTarget(r.msaa.RenderTarget(), ClearColour)
		cmd.ClearDepthStencil(r.msaa.DepthStencil(), 1.0, 0)
		cmd.SetRenderTargets(r.msaa.RenderTarget(), r.msaa.DepthStencil())
	} else {
		if err := r.tracker.RecordState(bb, metadata.ResourceStateRenderTarget); err != nil {
			return fail(err)
		}
		r.tracker.UpdateState(cmd)
		cmd.ClearRenderTarget(bb, ClearColour)
		cmd.ClearDepthStencil(r.device.DepthStencil(), 1.0, 0)
		cmd.SetRenderTargets(bb, r.device.DepthStencil())
	}

	cmd.SetPassConstants(fr.PassCB.Resource())
	cmd.SetMaterialData(fr.MaterialBuffer.Resource())

	for _, v := range r.views {
		v.OnRender(cmd, fr, items.Layer(v.Layer()), useMSAA)
	}

	if useMSAA {
		if err := r.msaa.Resolve(cmd, bb); err != nil {
			return fail(err)
		}
	}
	r.tracker.RestoreState(cmd)

	if err := r.ring.Submit(cmd); err != nil {
		return err
	}
	r.frameNumber++
	return nil
}

// OnResize recreates the swap chain and the multisampled targets.
func (r *Renderer) OnResize(width, height uint32) error {
	if width == 0 || height == 0 {
		return nil
	}
	if err := r.Flush(); err != nil {
		return err
	}
	for _, bb := range r.swapchain {
		r.tracker.Forget(bb)
	}
	r.swapchain = nil
	if err := r.device.Resize(width, height); err != nil {
		return fmt.Errorf("%w: resizing swap chain: %v", core.ErrDeviceFatal, err)
	}
	if r.msaa != nil && r.msaa.RenderTarget() != nil {
		if err := r.msaa.SizeResources(width, height); err != nil {
			return err
		}
	}
	core.LogDebug("renderer resized to %dx%d", width, height)
	return nil
}

func (r *Renderer) Shutdown() error {
	if r.timeline != nil {
		if err := r.Flush(); err != nil {
			core.LogError(err.Error())
		}
	}
	for _, v := range r.views {
		v.OnDestroy()
	}
	r.views = nil
	if r.msaa != nil {
		r.msaa.Release()
		r.msaa = nil
	}
	if r.ring != nil {
		r.ring.Release()
		r.ring = nil
	}
	if r.oneShotAlloc != nil {
		r.oneShotAlloc.Release()
		r.oneShotAlloc = nil
	}
	r.releases.Drain()
	if r.timeline != nil {
		r.timeline.Release()
		r.timeline = nil
	}
	return nil
}
