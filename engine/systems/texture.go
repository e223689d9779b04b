package systems

import (
	"fmt"

	"github.com/spaghettifunk/creep/engine/core"
	"github.com/spaghettifunk/creep/engine/renderer/metadata"
)

/**
 * @brief Uploads decoded images into sampled device textures.
 */
type TextureSystem struct {
	device metadata.Device
}

func NewTextureSystem(device metadata.Device) (*TextureSystem, error) {
	if device == nil {
		err := fmt.Errorf("func NewTextureSystem - device is nil")
		core.LogError(err.Error())
		return nil, err
	}
	return &TextureSystem{device: device}, nil
}

func (ts *TextureSystem) Shutdown() error {
	return nil
}

/**
 * @brief Records the upload of img on cmd and the transition of the new
 * texture to the shader resource state.
 *
 * @return The texture and the staging buffer the copy reads from. The staging
 * buffer must outlive the execution of cmd.
 */
func (ts *TextureSystem) Upload(cmd metadata.CommandList, name string, img *metadata.ImageData) (metadata.Texture, metadata.Buffer, error) {
	if img == nil || img.Width == 0 || img.Height == 0 || len(img.Pixels) == 0 {
		return nil, nil, fmt.Errorf("texture %q: %w", name, core.ErrTextureInvalid)
	}
	if img.Type == metadata.TextureTypeCube && img.ArrayLayers != 6 {
		return nil, nil, fmt.Errorf("cube texture %q has %d faces: %w", name, img.ArrayLayers, core.ErrTextureInvalid)
	}

	desc := img.Desc(name)
	tex, err := ts.device.CreateTexture(desc)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: creating texture %q: %v", core.ErrDeviceFatal, name, err)
	}
	staging, err := ts.device.CreateBuffer(metadata.BufferDesc{
		Name:        name + "-staging",
		Size:        uint64(len(img.Pixels)),
		Usage:       metadata.BufferUsageTransferSrc,
		HostVisible: true,
	})
	if err != nil {
		tex.Release()
		return nil, nil, fmt.Errorf("%w: creating staging buffer for %q: %v", core.ErrDeviceFatal, name, err)
	}
	if err := staging.Write(0, img.Pixels); err != nil {
		tex.Release()
		staging.Release()
		return nil, nil, err
	}

	regions := make([]metadata.TextureRegion, 0, len(img.Subresources))
	for _, sub := range img.Subresources {
		regions = append(regions, metadata.TextureRegion{
			BufferOffset: sub.Offset,
			MipLevel:     sub.MipLevel,
			ArrayLayer:   sub.ArrayLayer,
			Width:        sub.Width,
			Height:       sub.Height,
		})
	}
	if len(regions) == 0 {
		regions = append(regions, metadata.TextureRegion{Width: img.Width, Height: img.Height})
	}

	cmd.CopyBufferToTexture(tex, staging, regions)
	cmd.ResourceBarrier(metadata.Barrier{
		Resource: tex,
		Before:   desc.InitialState,
		After:    metadata.ResourceStateShaderResource,
	})
	core.LogDebug("texture %q: %dx%d, %d mips, %d layers", name, img.Width, img.Height, img.MipLevels, img.ArrayLayers)
	return tex, staging, nil
}
