package systems

import (
	"errors"
	"fmt"

	"github.com/spaghettifunk/creep/engine/core"
	"github.com/spaghettifunk/creep/engine/math"
	"github.com/spaghettifunk/creep/engine/renderer"
	"github.com/spaghettifunk/creep/engine/renderer/metadata"
	"github.com/spaghettifunk/creep/engine/ui"
)

const (
	skyGeometryName = "sky-sphere"
	skyScale        = 5000

	modelTextureSlot = 0
	skyTextureSlot   = 1
)

// ModelSource lists the models of the model directory and loads their files.
// It is satisfied by *assets.AssetManager.
type ModelSource interface {
	Models() []string
	Version() uint64
	MeshPath(model string) string
	TexturePath(model string) string
	MaterialPath(model string) string
	LoadAsset(path string, resourceType metadata.ResourceType, params interface{}) (*metadata.Resource, error)
}

type ModelSystemConfig struct {
	SkyTexturePath string
}

// loadedModel holds the GPU resources of one model.
type loadedModel struct {
	name     string
	geometry *metadata.MeshGeometry
	texture  metadata.Texture
	material *metadata.Material
}

func (lm *loadedModel) release() {
	if lm.geometry != nil {
		lm.geometry.Release()
	}
	if lm.texture != nil {
		lm.texture.Release()
	}
}

/**
 * @brief Swaps the model on screen when the selection changes.
 *
 * A swap flushes the GPU, loads the mesh, texture and material files on the
 * job system, uploads them on a one shot command list and only then replaces
 * the render items. A failure at any step keeps the previous model and rolls
 * the selection back to it.
 */
type ModelSystem struct {
	config   ModelSystemConfig
	renderer *renderer.Renderer
	source   ModelSource
	jobs     *JobSystem
	geometry *GeometrySystem
	textures *TextureSystem
	items    *RenderItemSystem

	lastIndex int
	version   uint64
	current   *loadedModel

	skyGeometry *metadata.MeshGeometry
	skyTexture  metadata.Texture
	skyMaterial *metadata.Material
	materials   []*metadata.Material
}

func NewModelSystem(config ModelSystemConfig, r *renderer.Renderer, source ModelSource, jobs *JobSystem, gs *GeometrySystem, ts *TextureSystem, items *RenderItemSystem) (*ModelSystem, error) {
	if r == nil || source == nil || jobs == nil || gs == nil || ts == nil || items == nil {
		err := fmt.Errorf("func NewModelSystem - all collaborators are required")
		core.LogError(err.Error())
		return nil, err
	}
	return &ModelSystem{
		config:    config,
		renderer:  r,
		source:    source,
		jobs:      jobs,
		geometry:  gs,
		textures:  ts,
		items:     items,
		lastIndex: -1,
		version:   source.Version(),
	}, nil
}

// LoadedIndex returns the index of the model on screen, or -1.
func (ms *ModelSystem) LoadedIndex() int {
	return ms.lastIndex
}

// LoadedName returns the name of the model on screen.
func (ms *ModelSystem) LoadedName() string {
	if ms.current == nil {
		return ""
	}
	return ms.current.name
}

// Materials returns the materials referenced by the current render items.
func (ms *ModelSystem) Materials() []*metadata.Material {
	return ms.materials
}

// Models returns the model identifiers of the last directory scan.
func (ms *ModelSystem) Models() []string {
	return ms.source.Models()
}

/**
 * @brief Loads the model selected in state if it is not on screen yet.
 *
 * A model whose files cannot be read or decoded is skipped and the selection
 * rolls back to the model on screen. Device failures are returned.
 *
 * @return state with ModelIndex pointing at the model actually on screen.
 */
func (ms *ModelSystem) Sync(state ui.State) (ui.State, error) {
	ms.followRescan()
	if state.ModelIndex == ms.lastIndex {
		return state, nil
	}
	if err := ms.Load(state.ModelIndex); err != nil {
		selected := state.ModelIndex
		state.ModelIndex = ms.lastIndex
		if errors.Is(err, core.ErrDeviceFatal) {
			return state, err
		}
		core.LogWarn("model %d could not be loaded, keeping %d: %s", selected, ms.lastIndex, err)
	}
	return state, nil
}

// followRescan keeps lastIndex on the loaded model when the directory listing
// changed under it.
func (ms *ModelSystem) followRescan() {
	v := ms.source.Version()
	if v == ms.version {
		return
	}
	ms.version = v
	if ms.current == nil {
		return
	}
	for i, name := range ms.source.Models() {
		if name == ms.current.name {
			ms.lastIndex = i
			return
		}
	}
	core.LogWarn("model %q disappeared from the model directory, it stays on screen until the next selection", ms.current.name)
}

// upload records the upload of the new model and, on the first load, of the
// sky sphere and cube map.
func (ms *ModelSystem) upload(name string, files *modelFiles) (*loadedModel, *metadata.MeshGeometry, metadata.Texture, error) {
	next := &loadedModel{name: name}
	var skyGeo *metadata.MeshGeometry
	var skyTex metadata.Texture

	err := ms.renderer.ExecuteOneShot(func(cmd metadata.CommandList) ([]metadata.GPUResource, error) {
		var transient []metadata.GPUResource
		fail := func(err error) ([]metadata.GPUResource, error) {
			next.release()
			if skyGeo != nil {
				skyGeo.Release()
				skyGeo = nil
			}
			if skyTex != nil {
				skyTex.Release()
				skyTex = nil
			}
			return transient, err
		}

		geo, staging, err := ms.geometry.Upload(cmd, name, *files.mesh)
		if err != nil {
			return fail(err)
		}
		next.geometry = geo
		for _, b := range staging {
			transient = append(transient, b)
		}

		tex, texStaging, err := ms.textures.Upload(cmd, name, files.image)
		if err != nil {
			return fail(err)
		}
		next.texture = tex
		transient = append(transient, texStaging)

		if ms.skyGeometry == nil {
			sphere := ms.geometry.CreateSphere(0.5, 20, 20)
			if skyGeo, staging, err = ms.geometry.Upload(cmd, skyGeometryName, sphere); err != nil {
				return fail(err)
			}
			for _, b := range staging {
				transient = append(transient, b)
			}
		}
		if ms.skyTexture == nil {
			if skyTex, texStaging, err = ms.textures.Upload(cmd, "sky", files.sky); err != nil {
				return fail(err)
			}
			transient = append(transient, texStaging)
		}
		return transient, nil
	})
	if err != nil {
		return nil, nil, nil, err
	}
	return next, skyGeo, skyTex, nil
}

/**
 * @brief Replaces the model on screen with model index of the model
 * directory. On error nothing visible changes.
 */
func (ms *ModelSystem) Load(index int) error {
	models := ms.source.Models()
	if index < 0 || index >= len(models) {
		return fmt.Errorf("model index %d of %d: %w", index, len(models), core.ErrModelNotFound)
	}
	name := models[index]

	if err := ms.renderer.Flush(); err != nil {
		return err
	}
	files, err := ms.loadFiles(name)
	if err != nil {
		return err
	}
	next, skyGeo, skyTex, err := ms.upload(name, files)
	if err != nil {
		return err
	}
	device := ms.renderer.Device()
	discard := func() {
		// slots must not keep pointing at the textures released below
		if ms.current != nil {
			_ = device.UpdateTextureTable(modelTextureSlot, ms.current.texture)
		}
		if ms.skyTexture != nil {
			_ = device.UpdateTextureTable(skyTextureSlot, ms.skyTexture)
		}
		next.release()
		if skyGeo != nil {
			skyGeo.Release()
		}
		if skyTex != nil {
			skyTex.Release()
		}
	}

	if skyTex != nil {
		if err := device.UpdateTextureTable(skyTextureSlot, skyTex); err != nil {
			discard()
			return fmt.Errorf("binding sky texture: %w", err)
		}
	}
	if err := device.UpdateTextureTable(modelTextureSlot, next.texture); err != nil {
		discard()
		return fmt.Errorf("binding texture of %q: %w", name, err)
	}

	// sky sphere and model
	const itemCount = 2
	if err := ms.renderer.RebuildFrameResources(itemCount, itemCount); err != nil {
		discard()
		return err
	}
	frameCount := ms.renderer.Ring().Len()

	// commit
	if skyGeo != nil {
		ms.skyGeometry = skyGeo
	}
	if skyTex != nil {
		ms.skyTexture = skyTex
	}
	if ms.skyMaterial == nil {
		ms.skyMaterial = NewMaterial(SkyMaterialConfig(), 1, skyTextureSlot)
	}
	next.material = NewMaterial(files.material, 0, modelTextureSlot)
	ms.materials = []*metadata.Material{next.material, ms.skyMaterial}
	for _, m := range ms.materials {
		m.NumFramesDirty = frameCount
	}

	ms.items.SetFrameCount(frameCount)
	ms.items.Reset()
	sky := ms.skyGeometry.DrawArgs[skyGeometryName]
	ms.items.Add(&metadata.RenderItem{
		World:              math.NewMat4UniformScale(skyScale),
		TexTransform:       math.NewMat4Identity(),
		Mat:                ms.skyMaterial,
		Geo:                ms.skyGeometry,
		IndexCount:         sky.IndexCount,
		StartIndexLocation: sky.StartIndexLocation,
		BaseVertexLocation: sky.BaseVertexLocation,
		Layer:              metadata.RenderLayerSky,
	})
	model := next.geometry.DrawArgs[name]
	ms.items.Add(&metadata.RenderItem{
		World:              math.NewMat4Identity(),
		TexTransform:       math.NewMat4Identity(),
		Mat:                next.material,
		Geo:                next.geometry,
		IndexCount:         model.IndexCount,
		StartIndexLocation: model.StartIndexLocation,
		BaseVertexLocation: model.BaseVertexLocation,
		Layer:              metadata.RenderLayerOpaque,
	})

	if prev := ms.current; prev != nil {
		ms.renderer.Releases().Defer(ms.renderer.Timeline().Current(), prev.release)
		ms.renderer.Releases().Collect(ms.renderer.Timeline().Completed())
	}
	ms.current = next
	ms.lastIndex = index
	core.LogInfo("model %q loaded (%d vertices, %d indices)", name, len(files.mesh.Vertices), len(files.mesh.Indices))
	return nil
}

func (ms *ModelSystem) Shutdown() error {
	if err := ms.renderer.Flush(); err != nil {
		core.LogError(err.Error())
	}
	ms.items.Reset()
	if ms.current != nil {
		ms.current.release()
		ms.current = nil
	}
	if ms.skyGeometry != nil {
		ms.skyGeometry.Release()
		ms.skyGeometry = nil
	}
	if ms.skyTexture != nil {
		ms.skyTexture.Release()
		ms.skyTexture = nil
	}
	ms.materials = nil
	ms.lastIndex = -1
	return nil
}
