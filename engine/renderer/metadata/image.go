package metadata

/**
 * @brief A subresource (one mip of one array layer) inside ImageData.Pixels.
 */
type ImageSubresource struct {
	Offset     uint64
	Size       uint64
	MipLevel   uint32
	ArrayLayer uint32
	Width      uint32
	Height     uint32
}

/**
 * @brief Decoded texture data ready to be uploaded as is.
 */
type ImageData struct {
	Type         TextureType
	Format       TextureFormat
	Width        uint32
	Height       uint32
	MipLevels    uint32
	ArrayLayers  uint32
	Pixels       []byte
	Subresources []ImageSubresource
}

// Desc returns the description of a sampled texture holding the image.
func (img *ImageData) Desc(name string) TextureDesc {
	return TextureDesc{
		Name:         name,
		Type:         img.Type,
		Width:        img.Width,
		Height:       img.Height,
		MipLevels:    img.MipLevels,
		ArrayLayers:  img.ArrayLayers,
		Format:       img.Format,
		Samples:      1,
		Usage:        TextureUsageSampled | TextureUsageTransferDst,
		InitialState: ResourceStateCopyDest,
	}
}
