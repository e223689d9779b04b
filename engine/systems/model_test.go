package systems

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/creep/engine/core"
	"github.com/spaghettifunk/creep/engine/math"
	"github.com/spaghettifunk/creep/engine/renderer"
	"github.com/spaghettifunk/creep/engine/renderer/headless"
	"github.com/spaghettifunk/creep/engine/renderer/metadata"
	"github.com/spaghettifunk/creep/engine/ui"
)

const fakeSkyPath = "sky.dds"

type fakeSource struct {
	mu          sync.Mutex
	models      []string
	version     uint64
	meshes      map[string]*metadata.MeshData
	badTextures map[string]bool
	noTextures  map[string]bool
	materials   map[string]*metadata.MaterialConfig
}

func newFakeSource(models ...string) *fakeSource {
	fs := &fakeSource{
		models:      models,
		meshes:      make(map[string]*metadata.MeshData),
		badTextures: make(map[string]bool),
		noTextures:  make(map[string]bool),
		materials:   make(map[string]*metadata.MaterialConfig),
	}
	for _, m := range models {
		fs.meshes[m] = &metadata.MeshData{
			Vertices: make([]math.Vertex3D, 3),
			Indices:  []uint32{0, 1, 2},
		}
	}
	return fs
}

func (fs *fakeSource) Models() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]string(nil), fs.models...)
}

func (fs *fakeSource) Version() uint64 {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.version
}

func (fs *fakeSource) setModels(models ...string) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.models = models
	fs.version++
}

func (fs *fakeSource) MeshPath(model string) string     { return model + "/mesh" }
func (fs *fakeSource) TexturePath(model string) string  { return model + "/texture" }
func (fs *fakeSource) MaterialPath(model string) string { return model + "/material" }

func (fs *fakeSource) LoadAsset(path string, resourceType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	switch resourceType {
	case metadata.ResourceTypeMesh:
		md, ok := fs.meshes[strings.TrimSuffix(path, "/mesh")]
		if !ok {
			return nil, fmt.Errorf("%s: %w", path, core.ErrModelNotFound)
		}
		return &metadata.Resource{Type: resourceType, FullPath: path, Data: md}, nil
	case metadata.ResourceTypeImage:
		if path == fakeSkyPath {
			return &metadata.Resource{Type: resourceType, FullPath: path, Data: cubeImage()}, nil
		}
		if fs.badTextures[strings.TrimSuffix(path, "/texture")] {
			return nil, fmt.Errorf("%s: %w", path, core.ErrTextureInvalid)
		}
		if fs.noTextures[strings.TrimSuffix(path, "/texture")] {
			return nil, fmt.Errorf("%s: %w", path, core.ErrModelNotFound)
		}
		return &metadata.Resource{Type: resourceType, FullPath: path, Data: &metadata.ImageData{
			Type:        metadata.TextureType2d,
			Format:      metadata.FormatRGBA8Unorm,
			Width:       2,
			Height:      2,
			MipLevels:   1,
			ArrayLayers: 1,
			Pixels:      make([]byte, 16),
		}}, nil
	case metadata.ResourceTypeMaterial:
		cfg, ok := fs.materials[strings.TrimSuffix(path, "/material")]
		if !ok {
			return nil, fmt.Errorf("%s: %w", path, core.ErrModelNotFound)
		}
		return &metadata.Resource{Type: resourceType, FullPath: path, Data: cfg}, nil
	}
	return nil, fmt.Errorf("unexpected resource type %d", resourceType)
}

func cubeImage() *metadata.ImageData {
	img := &metadata.ImageData{
		Type:        metadata.TextureTypeCube,
		Format:      metadata.FormatRGBA8Unorm,
		Width:       1,
		Height:      1,
		MipLevels:   1,
		ArrayLayers: 6,
		Pixels:      make([]byte, 24),
	}
	for face := uint32(0); face < 6; face++ {
		img.Subresources = append(img.Subresources, metadata.ImageSubresource{
			Offset: uint64(face) * 4, Size: 4, ArrayLayer: face, Width: 1, Height: 1,
		})
	}
	return img
}

// failingDevice fails every buffer whose name starts with failPrefix.
type failingDevice struct {
	*headless.Device
	failPrefix string
}

func (d *failingDevice) CreateBuffer(desc metadata.BufferDesc) (metadata.Buffer, error) {
	if d.failPrefix != "" && strings.HasPrefix(desc.Name, d.failPrefix) {
		return nil, errors.New("out of device memory")
	}
	return d.Device.CreateBuffer(desc)
}

type modelFixture struct {
	dev    *headless.Device
	wrap   *failingDevice
	r      *renderer.Renderer
	items  *RenderItemSystem
	models *ModelSystem
}

func newModelFixture(t *testing.T, src ModelSource) *modelFixture {
	t.Helper()
	dev := headless.New(headless.Options{Width: 64, Height: 32, BackBuffers: 2})
	wrap := &failingDevice{Device: dev}
	r, err := renderer.New(wrap, renderer.Config{FrameResources: 3, MSAASamples: 4})
	require.NoError(t, err)
	js, err := NewJobSystem(2, 8)
	require.NoError(t, err)
	gs, err := NewGeometrySystem(wrap)
	require.NoError(t, err)
	ts, err := NewTextureSystem(wrap)
	require.NoError(t, err)
	items, err := NewRenderItemSystem(3)
	require.NoError(t, err)
	ms, err := NewModelSystem(ModelSystemConfig{SkyTexturePath: fakeSkyPath}, r, src, js, gs, ts, items)
	require.NoError(t, err)

	t.Cleanup(func() {
		wrap.failPrefix = ""
		_ = ms.Shutdown()
		_ = js.Shutdown()
		_ = r.Shutdown()
		_ = dev.Shutdown()
	})
	return &modelFixture{dev: dev, wrap: wrap, r: r, items: items, models: ms}
}

// sync runs ModelSystem.Sync and fails the test on a device error.
func (f *modelFixture) sync(t *testing.T, state ui.State) ui.State {
	t.Helper()
	state, err := f.models.Sync(state)
	require.NoError(t, err)
	return state
}

func TestSyncLoadsSelectedModel(t *testing.T) {
	f := newModelFixture(t, newFakeSource("crate", "barrel"))

	state := f.sync(t, ui.State{ModelIndex: 0})
	assert.Equal(t, 0, state.ModelIndex)
	assert.Equal(t, 0, f.models.LoadedIndex())
	assert.Equal(t, "crate", f.models.LoadedName())

	require.Len(t, f.items.All(), 2)
	sky := f.items.Layer(metadata.RenderLayerSky)
	opaque := f.items.Layer(metadata.RenderLayerOpaque)
	require.Len(t, sky, 1)
	require.Len(t, opaque, 1)
	assert.Equal(t, float32(5000), sky[0].World.Data[0])
	assert.Equal(t, uint32(2280), sky[0].IndexCount)
	assert.Equal(t, uint32(3), opaque[0].IndexCount)
	assert.NotEqual(t, sky[0].ObjCBIndex, opaque[0].ObjCBIndex)
	assert.Equal(t, 3, opaque[0].NumFramesDirty)

	require.NotNil(t, f.dev.TextureTable(0))
	require.NotNil(t, f.dev.TextureTable(1))
	assert.Equal(t, metadata.TextureTypeCube, f.dev.TextureTable(1).Desc().Type)

	assert.Equal(t, 2, f.r.Ring().Config().ObjectCount)
	assert.Equal(t, 2, f.r.Ring().Config().MaterialCount)
	mats := f.models.Materials()
	require.Len(t, mats, 2)
	assert.Equal(t, "crate", mats[0].Name)
	assert.Equal(t, float32(0.2), mats[0].Roughness)
	assert.Equal(t, float32(1.0), mats[1].Roughness)
	assert.Empty(t, f.dev.Violations())
}

func TestSyncSameIndexDoesNothing(t *testing.T) {
	f := newModelFixture(t, newFakeSource("crate"))
	f.sync(t, ui.State{ModelIndex: 0})
	before := f.items.All()[1]

	f.sync(t, ui.State{ModelIndex: 0})
	assert.Same(t, before, f.items.All()[1])
}

func TestFailedSwapRollsBack(t *testing.T) {
	src := newFakeSource("crate", "broken")
	src.badTextures["broken"] = true
	f := newModelFixture(t, src)

	f.sync(t, ui.State{ModelIndex: 0})
	items := append([]*metadata.RenderItem(nil), f.items.All()...)
	slot0 := f.dev.TextureTable(0)
	live := f.dev.LiveResources()

	state := f.sync(t, ui.State{ModelIndex: 1, MSAA: true})
	assert.Equal(t, 0, state.ModelIndex)
	assert.True(t, state.MSAA)
	assert.Equal(t, 0, f.models.LoadedIndex())
	assert.Equal(t, items, f.items.All())
	assert.Equal(t, slot0.ID(), f.dev.TextureTable(0).ID())
	assert.Equal(t, live, f.dev.LiveResources())
	assert.Empty(t, f.dev.Violations())
}

func TestSwapToEmptyMeshKeepsLoadedModel(t *testing.T) {
	src := newFakeSource("crate", "empty")
	src.meshes["empty"] = &metadata.MeshData{}
	f := newModelFixture(t, src)

	f.sync(t, ui.State{ModelIndex: 0})
	items := append([]*metadata.RenderItem(nil), f.items.All()...)
	slot0 := f.dev.TextureTable(0)

	state := f.sync(t, ui.State{ModelIndex: 1})
	assert.Equal(t, 0, state.ModelIndex)
	assert.Equal(t, "crate", f.models.LoadedName())
	require.Len(t, f.items.All(), len(items))
	for i, it := range f.items.All() {
		assert.Same(t, items[i], it)
	}
	assert.Equal(t, slot0.ID(), f.dev.TextureTable(0).ID())
	assert.False(t, slot0.(*headless.Texture).Released())
	assert.ErrorIs(t, f.models.Load(1), core.ErrEmptyMesh)
	assert.Empty(t, f.dev.Violations())
}

func TestDeviceFailureDuringSwapIsReturned(t *testing.T) {
	f := newModelFixture(t, newFakeSource("crate", "barrel"))
	f.sync(t, ui.State{ModelIndex: 0})
	slot0 := f.dev.TextureTable(0)
	slot1 := f.dev.TextureTable(1)
	items := append([]*metadata.RenderItem(nil), f.items.All()...)

	// the frame ring is rebuilt after the new textures are bound
	f.wrap.failPrefix = "object-cb-"
	state, err := f.models.Sync(ui.State{ModelIndex: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrDeviceFatal))
	assert.Equal(t, 0, state.ModelIndex)
	assert.Equal(t, "crate", f.models.LoadedName())
	assert.Equal(t, items, f.items.All())

	// bindings point back at the live textures of the loaded model
	assert.Equal(t, slot0.ID(), f.dev.TextureTable(0).ID())
	assert.False(t, f.dev.TextureTable(0).(*headless.Texture).Released())
	assert.Equal(t, slot1.ID(), f.dev.TextureTable(1).ID())
	assert.False(t, f.dev.TextureTable(1).(*headless.Texture).Released())
}

func TestDeviceFailureDuringUploadIsReturned(t *testing.T) {
	f := newModelFixture(t, newFakeSource("crate", "barrel"))
	f.sync(t, ui.State{ModelIndex: 0})

	f.wrap.failPrefix = "barrel"
	_, err := f.models.Sync(ui.State{ModelIndex: 1})
	assert.ErrorIs(t, err, core.ErrDeviceFatal)
	assert.Equal(t, 0, f.models.LoadedIndex())
}

func TestMissingTextureFallsBackToWhite(t *testing.T) {
	src := newFakeSource("bare")
	src.noTextures["bare"] = true
	f := newModelFixture(t, src)

	state := f.sync(t, ui.State{ModelIndex: 0})
	assert.Equal(t, 0, state.ModelIndex)
	tex := f.dev.TextureTable(0)
	require.NotNil(t, tex)
	assert.Equal(t, uint32(1), tex.Desc().Width)
	assert.Equal(t, uint32(1), tex.Desc().Height)
	assert.Empty(t, f.dev.Violations())
}

func TestFailedFirstLoadLeavesNothingLoaded(t *testing.T) {
	src := newFakeSource("empty")
	src.meshes["empty"] = &metadata.MeshData{}
	f := newModelFixture(t, src)

	state := f.sync(t, ui.State{ModelIndex: 0})
	assert.Equal(t, -1, state.ModelIndex)
	assert.Zero(t, f.items.Len())
	assert.ErrorIs(t, f.models.Load(0), core.ErrEmptyMesh)
}

func TestOutOfRangeSelectionIsRejected(t *testing.T) {
	f := newModelFixture(t, newFakeSource("crate"))
	f.sync(t, ui.State{ModelIndex: 0})

	state := f.sync(t, ui.State{ModelIndex: 7})
	assert.Equal(t, 0, state.ModelIndex)
	assert.ErrorIs(t, f.models.Load(7), core.ErrModelNotFound)
}

func TestSwapReleasesPreviousModel(t *testing.T) {
	f := newModelFixture(t, newFakeSource("crate", "barrel"))
	f.sync(t, ui.State{ModelIndex: 0})
	old := f.items.Layer(metadata.RenderLayerOpaque)[0]
	oldVB := old.Geo.VertexBuffer.(*headless.Buffer)
	oldTex := f.dev.TextureTable(0)
	sky := f.dev.TextureTable(1)

	state := f.sync(t, ui.State{ModelIndex: 1})
	assert.Equal(t, 1, state.ModelIndex)
	assert.Equal(t, "barrel", f.models.LoadedName())

	assert.True(t, oldVB.Released())
	assert.True(t, oldTex.(*headless.Texture).Released())
	assert.NotEqual(t, oldTex.ID(), f.dev.TextureTable(0).ID())
	assert.Equal(t, sky.ID(), f.dev.TextureTable(1).ID())
	assert.Equal(t, 0, f.r.Releases().Len())
	assert.Empty(t, f.dev.Violations())
}

func TestMaterialFileOverridesDefaults(t *testing.T) {
	src := newFakeSource("crate")
	src.materials["crate"] = &metadata.MaterialConfig{
		Name:          "woodCrate",
		DiffuseAlbedo: math.NewVec4(0.5, 0.5, 0.5, 1),
		FresnelR0:     math.NewVec3(0.02, 0.02, 0.02),
		Roughness:     0.7,
	}
	f := newModelFixture(t, src)
	f.sync(t, ui.State{ModelIndex: 0})

	mat := f.models.Materials()[0]
	assert.Equal(t, "woodCrate", mat.Name)
	assert.Equal(t, float32(0.7), mat.Roughness)
	assert.Equal(t, 0, mat.DiffuseSrvHeapIndex)
}

func TestRescanKeepsLoadedModelSelected(t *testing.T) {
	src := newFakeSource("crate", "barrel")
	f := newModelFixture(t, src)
	f.sync(t, ui.State{ModelIndex: 1})

	src.setModels("apple", "barrel", "crate")
	state := f.sync(t, ui.State{ModelIndex: 1})
	assert.Equal(t, 1, state.ModelIndex)
	assert.Equal(t, "barrel", f.models.LoadedName())

	src.setModels("barrel")
	state = f.sync(t, ui.State{ModelIndex: 1})
	assert.Equal(t, 0, state.ModelIndex)
	assert.Equal(t, "barrel", f.models.LoadedName())
}
