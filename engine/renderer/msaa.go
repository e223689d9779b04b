package renderer

import (
	"fmt"

	"github.com/spaghettifunk/creep/engine/core"
	"github.com/spaghettifunk/creep/engine/renderer/metadata"
	"github.com/spaghettifunk/creep/engine/renderer/state"
)

/**
 * @brief Owns the multisampled colour and depth targets and records the
 * transitions around a multisampled frame: the colour target is rendered to
 * and then resolved into the back buffer.
 */
type MSAAHelper struct {
	device  metadata.Device
	tracker *state.Tracker

	sampleCount  uint32
	colourFormat metadata.TextureFormat
	depthFormat  metadata.TextureFormat
	clearColour  [4]float32

	renderTarget metadata.Texture
	depthStencil metadata.Texture
	width        uint32
	height       uint32
}

func NewMSAAHelper(device metadata.Device, tracker *state.Tracker, sampleCount uint32, clearColour [4]float32) (*MSAAHelper, error) {
	if sampleCount < 2 {
		return nil, fmt.Errorf("msaa needs at least 2 samples, got %d", sampleCount)
	}
	if limit := device.Capabilities().MaxSamples; sampleCount > limit {
		return nil, fmt.Errorf("msaa %dx not supported, device maximum is %dx", sampleCount, limit)
	}
	return &MSAAHelper{
		device:       device,
		tracker:      tracker,
		sampleCount:  sampleCount,
		colourFormat: device.BackBufferFormat(),
		depthFormat:  device.DepthStencilFormat(),
		clearColour:  clearColour,
	}, nil
}

// SizeResources (re)creates the targets at width x height. The GPU must not
// be using the previous targets.
func (m *MSAAHelper) SizeResources(width, height uint32) error {
	if width == m.width && height == m.height && m.renderTarget != nil {
		return nil
	}
	m.Release()

	rt, err := m.device.CreateTexture(metadata.TextureDesc{
		Name:         "msaa-render-target",
		Width:        width,
		Height:       height,
		MipLevels:    1,
		ArrayLayers:  1,
		Format:       m.colourFormat,
		Samples:      m.sampleCount,
		Usage:        metadata.TextureUsageRenderTarget | metadata.TextureUsageTransferSrc,
		InitialState: metadata.ResourceStateResolveSource,
		ClearColour:  m.clearColour,
	})
	if err != nil {
		return fmt.Errorf("%w: msaa render target: %v", core.ErrDeviceFatal, err)
	}
	ds, err := m.device.CreateTexture(metadata.TextureDesc{
		Name:         "msaa-depth-stencil",
		Width:        width,
		Height:       height,
		MipLevels:    1,
		ArrayLayers:  1,
		Format:       m.depthFormat,
		Samples:      m.sampleCount,
		Usage:        metadata.TextureUsageDepthStencil,
		InitialState: metadata.ResourceStateDepthWrite,
	})
	if err != nil {
		rt.Release()
		return fmt.Errorf("%w: msaa depth stencil: %v", core.ErrDeviceFatal, err)
	}
	m.renderTarget, m.depthStencil = rt, ds
	m.width, m.height = width, height
	m.tracker.Track(rt, metadata.ResourceStateResolveSource)
	m.tracker.Track(ds, metadata.ResourceStateDepthWrite)
	core.LogDebug("msaa %dx targets sized to %dx%d", m.sampleCount, width, height)
	return nil
}

// Prepare moves the multisampled colour target to the render target state.
func (m *MSAAHelper) Prepare(cmd metadata.CommandList) error {
	if err := m.tracker.RecordState(m.renderTarget, metadata.ResourceStateRenderTarget); err != nil {
		return err
	}
	m.tracker.UpdateState(cmd)
	return nil
}

// Resolve resolves the multisampled colour target into backBuffer and leaves
// backBuffer in the present state.
func (m *MSAAHelper) Resolve(cmd metadata.CommandList, backBuffer metadata.Texture) error {
	if err := m.tracker.RecordState(m.renderTarget, metadata.ResourceStateResolveSource); err != nil {
		return err
	}
	if err := m.tracker.RecordState(backBuffer, metadata.ResourceStateResolveDest); err != nil {
		return err
	}
	m.tracker.UpdateState(cmd)

	cmd.ResolveSubresource(backBuffer, m.renderTarget)

	if err := m.tracker.RecordState(backBuffer, metadata.ResourceStatePresent); err != nil {
		return err
	}
	m.tracker.UpdateState(cmd)
	return nil
}

func (m *MSAAHelper) RenderTarget() metadata.Texture {
	return m.renderTarget
}

func (m *MSAAHelper) DepthStencil() metadata.Texture {
	return m.depthStencil
}

func (m *MSAAHelper) SampleCount() uint32 {
	return m.sampleCount
}

func (m *MSAAHelper) Release() {
	if m.renderTarget != nil {
		m.tracker.Forget(m.renderTarget)
		m.renderTarget.Release()
		m.renderTarget = nil
	}
	if m.depthStencil != nil {
		m.tracker.Forget(m.depthStencil)
		m.depthStencil.Release()
		m.depthStencil = nil
	}
	m.width, m.height = 0, 0
}
