package metadata

type TextureFormat uint32

const (
	FormatUnknown TextureFormat = iota
	FormatRGBA8Unorm
	FormatRGBA8Srgb
	FormatBGRA8Unorm
	FormatBC1Unorm
	FormatBC2Unorm
	FormatBC3Unorm
	FormatBC7Unorm
	FormatD24UnormS8
	FormatD32FloatS8
)

// BlockCompressed reports whether the format stores 4x4 texel blocks.
func (f TextureFormat) BlockCompressed() bool {
	switch f {
	case FormatBC1Unorm, FormatBC2Unorm, FormatBC3Unorm, FormatBC7Unorm:
		return true
	}
	return false
}

// BytesPerBlock returns the size of one texel, or of one 4x4 block for
// compressed formats.
func (f TextureFormat) BytesPerBlock() uint32 {
	switch f {
	case FormatBC1Unorm:
		return 8
	case FormatBC2Unorm, FormatBC3Unorm, FormatBC7Unorm:
		return 16
	case FormatRGBA8Unorm, FormatRGBA8Srgb, FormatBGRA8Unorm, FormatD24UnormS8:
		return 4
	case FormatD32FloatS8:
		return 8
	}
	return 0
}

// IsDepth reports whether the format is a depth/stencil format.
func (f TextureFormat) IsDepth() bool {
	return f == FormatD24UnormS8 || f == FormatD32FloatS8
}

/** @brief Holds bit flags describing how a texture is used. */
type TextureUsage uint32

const (
	TextureUsageSampled      TextureUsage = 0x1
	TextureUsageRenderTarget TextureUsage = 0x2
	TextureUsageDepthStencil TextureUsage = 0x4
	TextureUsageTransferDst  TextureUsage = 0x8
	TextureUsageTransferSrc  TextureUsage = 0x10
)

/**
 * @brief Represents various types of textures.
 */
type TextureType int

const (
	/** @brief A standard two-dimensional texture. */
	TextureType2d TextureType = iota
	/** @brief A cube texture, used for cubemaps. */
	TextureTypeCube
)

/**
 * @brief Describes a texture to be created on the device.
 */
type TextureDesc struct {
	Name        string
	Type        TextureType
	Width       uint32
	Height      uint32
	MipLevels   uint32
	ArrayLayers uint32
	Format      TextureFormat
	/** @brief The sample count. 1 for a regular texture. */
	Samples uint32
	Usage   TextureUsage
	/** @brief The state the texture is in right after creation. */
	InitialState ResourceState
	/** @brief The optimized clear value of render targets. */
	ClearColour [4]float32
}
