package loaders

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"

	"github.com/spaghettifunk/creep/engine/core"
	"github.com/spaghettifunk/creep/engine/renderer/metadata"
)

const (
	ddsMagic      = 0x20534444 // "DDS "
	ddsHeaderSize = 124

	ddsFourCC       = 0x4
	ddsCapsCubemap  = 0x200
	ddsMiscCube     = 0x4
	ddsDimension2D  = 3
	ddsPixelFormatSize = 32
)

func fourCC(s string) uint32 {
	return uint32(s[0]) | uint32(s[1])<<8 | uint32(s[2])<<16 | uint32(s[3])<<24
}

type ddsPixelFormat struct {
	Size        uint32
	Flags       uint32
	FourCC      uint32
	RGBBitCount uint32
	RBitMask    uint32
	GBitMask    uint32
	BBitMask    uint32
	ABitMask    uint32
}

type ddsHeader struct {
	Size              uint32
	Flags             uint32
	Height            uint32
	Width             uint32
	PitchOrLinearSize uint32
	Depth             uint32
	MipMapCount       uint32
	Reserved1         [11]uint32
	PixelFormat       ddsPixelFormat
	Caps              uint32
	Caps2             uint32
	Caps3             uint32
	Caps4             uint32
	Reserved2         uint32
}

type ddsHeaderDX10 struct {
	DXGIFormat        uint32
	ResourceDimension uint32
	MiscFlag          uint32
	ArraySize         uint32
	MiscFlags2        uint32
}

var errUnsupportedDDS = errors.New("unsupported DDS pixel format")

/**
 * @brief Loads textures. DDS containers are read as is, keeping their mip
 * chain, array layers and block compression; other image files are decoded
 * and converted to a single RGBA8 mip.
 */
type TextureLoader struct{}

func (tl *TextureLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var img *metadata.ImageData
	if strings.EqualFold(filepath.Ext(path), ".dds") {
		img, err = ReadDDS(f)
	} else {
		img, err = decodeImage(f)
	}
	if err != nil {
		return nil, fmt.Errorf("texture %s: %w: %v", path, core.ErrTextureInvalid, err)
	}
	return &metadata.Resource{
		Type:     metadata.ResourceTypeImage,
		Name:     resourceName(path),
		FullPath: path,
		DataSize: uint64(len(img.Pixels)),
		Data:     img,
	}, nil
}

func (tl *TextureLoader) Unload(res *metadata.Resource) error {
	res.Data = nil
	return nil
}

// ReadDDS parses a DDS container.
func ReadDDS(r io.Reader) (*metadata.ImageData, error) {
	var magic uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, err
	}
	if magic != ddsMagic {
		return nil, fmt.Errorf("not a DDS file (magic %#x)", magic)
	}
	var hdr ddsHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, err
	}
	if hdr.Size != ddsHeaderSize || hdr.PixelFormat.Size != ddsPixelFormatSize {
		return nil, fmt.Errorf("invalid DDS header size %d", hdr.Size)
	}
	if hdr.Width == 0 || hdr.Height == 0 {
		return nil, fmt.Errorf("DDS has zero extent")
	}

	img := &metadata.ImageData{
		Type:        metadata.TextureType2d,
		Width:       hdr.Width,
		Height:      hdr.Height,
		MipLevels:   max(hdr.MipMapCount, 1),
		ArrayLayers: 1,
	}
	if hdr.Caps2&ddsCapsCubemap != 0 {
		img.Type = metadata.TextureTypeCube
		img.ArrayLayers = 6
	}

	pf := hdr.PixelFormat
	switch {
	case pf.Flags&ddsFourCC != 0 && pf.FourCC == fourCC("DX10"):
		var dx10 ddsHeaderDX10
		if err := binary.Read(r, binary.LittleEndian, &dx10); err != nil {
			return nil, err
		}
		if dx10.ResourceDimension != ddsDimension2D {
			return nil, fmt.Errorf("%w: resource dimension %d", errUnsupportedDDS, dx10.ResourceDimension)
		}
		img.Format = dxgiFormat(dx10.DXGIFormat)
		img.ArrayLayers = max(dx10.ArraySize, 1)
		if dx10.MiscFlag&ddsMiscCube != 0 {
			img.Type = metadata.TextureTypeCube
			img.ArrayLayers *= 6
		}
	case pf.Flags&ddsFourCC != 0:
		switch pf.FourCC {
		case fourCC("DXT1"):
			img.Format = metadata.FormatBC1Unorm
		case fourCC("DXT3"):
			img.Format = metadata.FormatBC2Unorm
		case fourCC("DXT5"):
			img.Format = metadata.FormatBC3Unorm
		}
	case pf.RGBBitCount == 32 && pf.RBitMask == 0x000000ff:
		img.Format = metadata.FormatRGBA8Unorm
	case pf.RGBBitCount == 32 && pf.RBitMask == 0x00ff0000:
		img.Format = metadata.FormatBGRA8Unorm
	}
	if img.Format == metadata.FormatUnknown {
		return nil, errUnsupportedDDS
	}

	var offset uint64
	for layer := uint32(0); layer < img.ArrayLayers; layer++ {
		w, h := img.Width, img.Height
		for mip := uint32(0); mip < img.MipLevels; mip++ {
			size := subresourceSize(img.Format, w, h)
			img.Subresources = append(img.Subresources, metadata.ImageSubresource{
				Offset:     offset,
				Size:       size,
				MipLevel:   mip,
				ArrayLayer: layer,
				Width:      w,
				Height:     h,
			})
			offset += size
			w, h = max(w/2, 1), max(h/2, 1)
		}
	}

	img.Pixels = make([]byte, offset)
	if _, err := io.ReadFull(r, img.Pixels); err != nil {
		return nil, fmt.Errorf("DDS pixel data: %w", err)
	}
	return img, nil
}

func dxgiFormat(f uint32) metadata.TextureFormat {
	switch f {
	case 28:
		return metadata.FormatRGBA8Unorm
	case 29:
		return metadata.FormatRGBA8Srgb
	case 87:
		return metadata.FormatBGRA8Unorm
	case 71, 72:
		return metadata.FormatBC1Unorm
	case 74, 75:
		return metadata.FormatBC2Unorm
	case 77, 78:
		return metadata.FormatBC3Unorm
	case 98, 99:
		return metadata.FormatBC7Unorm
	}
	return metadata.FormatUnknown
}

func subresourceSize(format metadata.TextureFormat, w, h uint32) uint64 {
	if format.BlockCompressed() {
		bw, bh := max((w+3)/4, 1), max((h+3)/4, 1)
		return uint64(bw) * uint64(bh) * uint64(format.BytesPerBlock())
	}
	return uint64(w) * uint64(h) * uint64(format.BytesPerBlock())
}

// decodeImage decodes any registered image format into RGBA8.
func decodeImage(r io.Reader) (*metadata.ImageData, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, err
	}
	b := src.Bounds()
	rgba, ok := src.(*image.NRGBA)
	if !ok || rgba.Stride != 4*b.Dx() || b.Min != (image.Point{}) {
		rgba = image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), src, b.Min, draw.Src)
	}
	return &metadata.ImageData{
		Type:        metadata.TextureType2d,
		Format:      metadata.FormatRGBA8Unorm,
		Width:       uint32(b.Dx()),
		Height:      uint32(b.Dy()),
		MipLevels:   1,
		ArrayLayers: 1,
		Pixels:      bytes.Clone(rgba.Pix),
	}, nil
}

// SolidImage is a 1x1 RGBA8 image of colour c.
func SolidImage(c color.NRGBA) *metadata.ImageData {
	return &metadata.ImageData{
		Type:        metadata.TextureType2d,
		Format:      metadata.FormatRGBA8Unorm,
		Width:       1,
		Height:      1,
		MipLevels:   1,
		ArrayLayers: 1,
		Pixels:      []byte{c.R, c.G, c.B, c.A},
	}
}

// SolidCubeImage is a 1x1 RGBA8 cube map with every face of colour c.
func SolidCubeImage(c color.NRGBA) *metadata.ImageData {
	img := &metadata.ImageData{
		Type:        metadata.TextureTypeCube,
		Format:      metadata.FormatRGBA8Unorm,
		Width:       1,
		Height:      1,
		MipLevels:   1,
		ArrayLayers: 6,
	}
	for face := uint32(0); face < 6; face++ {
		img.Pixels = append(img.Pixels, c.R, c.G, c.B, c.A)
		img.Subresources = append(img.Subresources, metadata.ImageSubresource{
			Offset:     uint64(face) * 4,
			Size:       4,
			ArrayLayer: face,
			Width:      1,
			Height:     1,
		})
	}
	return img
}
