package loaders

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/creep/engine/core"
	"github.com/spaghettifunk/creep/engine/math"
	"github.com/spaghettifunk/creep/engine/renderer/metadata"
)

func ddsBytes(t *testing.T, hdr ddsHeader, dx10 *ddsHeaderDX10, pixels []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(ddsMagic)))
	hdr.Size = ddsHeaderSize
	hdr.PixelFormat.Size = ddsPixelFormatSize
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, hdr))
	if dx10 != nil {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, *dx10))
	}
	buf.Write(pixels)
	return buf.Bytes()
}

func TestReadDDSBlockCompressedMipChain(t *testing.T) {
	hdr := ddsHeader{Width: 8, Height: 8, MipMapCount: 4}
	hdr.PixelFormat.Flags = ddsFourCC
	hdr.PixelFormat.FourCC = fourCC("DXT1")
	// 8x8 -> 4 blocks, 4x4, 2x2 and 1x1 -> 1 block each, 8 bytes per block
	pixels := make([]byte, (4+1+1+1)*8)

	img, err := ReadDDS(bytes.NewReader(ddsBytes(t, hdr, nil, pixels)))
	require.NoError(t, err)
	assert.Equal(t, metadata.FormatBC1Unorm, img.Format)
	assert.Equal(t, metadata.TextureType2d, img.Type)
	assert.Equal(t, uint32(4), img.MipLevels)
	require.Len(t, img.Subresources, 4)
	assert.Equal(t, uint64(32), img.Subresources[0].Size)
	assert.Equal(t, uint64(32), img.Subresources[1].Offset)
	assert.Equal(t, uint32(1), img.Subresources[3].Width)
	assert.Len(t, img.Pixels, len(pixels))
}

func TestReadDDSCubeMap(t *testing.T) {
	hdr := ddsHeader{Width: 2, Height: 2, Caps2: ddsCapsCubemap}
	hdr.PixelFormat.Flags = ddsFourCC
	hdr.PixelFormat.FourCC = fourCC("DX10")
	dx10 := &ddsHeaderDX10{DXGIFormat: 28, ResourceDimension: ddsDimension2D, MiscFlag: ddsMiscCube, ArraySize: 1}
	pixels := make([]byte, 6*2*2*4)

	img, err := ReadDDS(bytes.NewReader(ddsBytes(t, hdr, dx10, pixels)))
	require.NoError(t, err)
	assert.Equal(t, metadata.TextureTypeCube, img.Type)
	assert.Equal(t, uint32(6), img.ArrayLayers)
	assert.Equal(t, metadata.FormatRGBA8Unorm, img.Format)
	require.Len(t, img.Subresources, 6)
	assert.Equal(t, uint32(5), img.Subresources[5].ArrayLayer)
	assert.Equal(t, uint64(5*16), img.Subresources[5].Offset)
}

func TestReadDDSRejectsTruncatedAndUnknown(t *testing.T) {
	hdr := ddsHeader{Width: 4, Height: 4}
	hdr.PixelFormat.Flags = ddsFourCC
	hdr.PixelFormat.FourCC = fourCC("DXT5")
	_, err := ReadDDS(bytes.NewReader(ddsBytes(t, hdr, nil, make([]byte, 3))))
	assert.Error(t, err)

	hdr.PixelFormat.FourCC = fourCC("ATI2")
	_, err = ReadDDS(bytes.NewReader(ddsBytes(t, hdr, nil, make([]byte, 16))))
	assert.ErrorIs(t, err, errUnsupportedDDS)

	_, err = ReadDDS(bytes.NewReader([]byte("PNG not a dds file, clearly")))
	assert.Error(t, err)
}

func TestTextureLoaderDecodesPNG(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 3, 2))
	src.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, src))
	path := filepath.Join(t.TempDir(), "crate.png")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	res, err := (&TextureLoader{}).Load(path, metadata.ResourceTypeImage, nil)
	require.NoError(t, err)
	img := res.Data.(*metadata.ImageData)
	assert.Equal(t, "crate", res.Name)
	assert.Equal(t, uint32(3), img.Width)
	assert.Equal(t, uint32(2), img.Height)
	assert.Equal(t, metadata.FormatRGBA8Unorm, img.Format)
	require.Len(t, img.Pixels, 3*2*4)
	px := img.Pixels[(1*3+1)*4:]
	assert.Equal(t, []byte{255, 0, 0, 255}, px[:4])
}

func TestTextureLoaderWrapsInvalidFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.dds")
	require.NoError(t, os.WriteFile(path, []byte("nope"), 0o644))
	_, err := (&TextureLoader{}).Load(path, metadata.ResourceTypeImage, nil)
	assert.ErrorIs(t, err, core.ErrTextureInvalid)
}

func TestSolidImages(t *testing.T) {
	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	img := SolidImage(white)
	assert.Equal(t, metadata.TextureType2d, img.Type)
	assert.Equal(t, []byte{255, 255, 255, 255}, img.Pixels)

	cube := SolidCubeImage(color.NRGBA{R: 1, G: 2, B: 3, A: 4})
	assert.Equal(t, metadata.TextureTypeCube, cube.Type)
	assert.Equal(t, uint32(6), cube.ArrayLayers)
	require.Len(t, cube.Subresources, 6)
	assert.Len(t, cube.Pixels, 24)
	assert.Equal(t, uint64(20), cube.Subresources[5].Offset)
	assert.Equal(t, []byte{1, 2, 3, 4}, cube.Pixels[20:])
}

func TestShaderLoaderChecksMagic(t *testing.T) {
	dir := t.TempDir()
	words := []uint32{spirvMagic, 0x00010000, 0, 1, 0}
	var buf bytes.Buffer
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, words))
	good := filepath.Join(dir, "mesh.vert.spv")
	require.NoError(t, os.WriteFile(good, buf.Bytes(), 0o644))

	res, err := (&ShaderLoader{}).Load(good, metadata.ResourceTypeShader, nil)
	require.NoError(t, err)
	assert.Equal(t, words, res.Data.([]uint32))
	assert.Equal(t, "mesh.vert", res.Name)

	bad := filepath.Join(dir, "bad.spv")
	require.NoError(t, os.WriteFile(bad, make([]byte, 20), 0o644))
	_, err = (&ShaderLoader{}).Load(bad, metadata.ResourceTypeShader, nil)
	assert.Error(t, err)
}

func TestMaterialLoaderOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crate.mat")
	content := "# crate\nroughness = 0.5\nfresnel_r0 = 0.1 0.2 0.3\nbogus = 1\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	defaults := &metadata.MaterialConfig{Name: "woodCrate", DiffuseAlbedo: math.NewVec4(1, 1, 1, 1)}
	res, err := (&MaterialLoader{}).Load(path, metadata.ResourceTypeMaterial, defaults)
	require.NoError(t, err)
	cfg := res.Data.(*metadata.MaterialConfig)
	assert.Equal(t, "woodCrate", cfg.Name)
	assert.Equal(t, float32(0.5), cfg.Roughness)
	assert.Equal(t, math.NewVec3(0.1, 0.2, 0.3), cfg.FresnelR0)
	assert.Equal(t, math.NewVec4(1, 1, 1, 1), cfg.DiffuseAlbedo)

	require.NoError(t, os.WriteFile(path, []byte("roughness = 2\n"), 0o644))
	_, err = (&MaterialLoader{}).Load(path, metadata.ResourceTypeMaterial, defaults)
	assert.Error(t, err)
}

func TestMeshLoaderConvertsHandedness(t *testing.T) {
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 1}, {1, 0, 1}, {0, 1, 1}})
	nrm := modeler.WriteNormal(doc, [][3]float32{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}})
	uv := modeler.WriteTextureCoord(doc, [][2]float32{{0, 0}, {1, 0}, {0, 1}})
	idx := modeler.WriteIndices(doc, []uint16{0, 1, 2})
	doc.Meshes = []*gltf.Mesh{{
		Name: "tri",
		Primitives: []*gltf.Primitive{{
			Indices: gltf.Index(idx),
			Attributes: map[string]int{
				gltf.POSITION:   pos,
				gltf.NORMAL:     nrm,
				gltf.TEXCOORD_0: uv,
			},
		}},
	}}
	path := filepath.Join(t.TempDir(), "tri.glb")
	require.NoError(t, gltf.SaveBinary(doc, path))

	res, err := (&MeshLoader{}).Load(path, metadata.ResourceTypeMesh, nil)
	require.NoError(t, err)
	md := res.Data.(*metadata.MeshData)
	require.Len(t, md.Vertices, 3)
	assert.Equal(t, math.NewVec3(1, 0, -1), md.Vertices[1].Position)
	assert.Equal(t, math.NewVec3(0, 0, -1), md.Vertices[0].Normal)
	assert.Equal(t, math.NewVec2(0, 1), md.Vertices[2].Texcoord)
	assert.Equal(t, []uint32{0, 2, 1}, md.Indices)
}

func TestMeshLoaderRejectsEmptyDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.glb")
	require.NoError(t, gltf.SaveBinary(gltf.NewDocument(), path))
	_, err := (&MeshLoader{}).Load(path, metadata.ResourceTypeMesh, nil)
	assert.ErrorIs(t, err, core.ErrEmptyMesh)
}
