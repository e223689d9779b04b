package systems

import (
	"errors"
	"fmt"
	"image/color"

	"github.com/spaghettifunk/creep/engine/assets/loaders"
	"github.com/spaghettifunk/creep/engine/core"
	"github.com/spaghettifunk/creep/engine/renderer/metadata"
)

// skyColour fills the sky when no cube map is configured.
var skyColour = color.NRGBA{R: 176, G: 196, B: 222, A: 255}

// modelFiles is the CPU side data of one model, decoded by the load jobs.
type modelFiles struct {
	mesh     *metadata.MeshData
	image    *metadata.ImageData
	material *metadata.MaterialConfig
	sky      *metadata.ImageData
}

func (ms *ModelSystem) loadFiles(name string) (*modelFiles, error) {
	files := &modelFiles{}
	jobs := []metadata.JobTask{
		{
			Name: "mesh:" + name,
			OnStart: func() (interface{}, error) {
				return ms.loadData(ms.source.MeshPath(name), metadata.ResourceTypeMesh, nil)
			},
			OnComplete: func(result interface{}) { files.mesh, _ = result.(*metadata.MeshData) },
		},
		{
			Name: "texture:" + name,
			OnStart: func() (interface{}, error) {
				data, err := ms.loadData(ms.source.TexturePath(name), metadata.ResourceTypeImage, nil)
				if errors.Is(err, core.ErrModelNotFound) {
					core.LogWarn("model %q has no texture, using plain white", name)
					return loaders.SolidImage(color.NRGBA{R: 255, G: 255, B: 255, A: 255}), nil
				}
				return data, err
			},
			OnComplete: func(result interface{}) { files.image, _ = result.(*metadata.ImageData) },
		},
		{
			Name: "material:" + name,
			OnStart: func() (interface{}, error) {
				defaults := DefaultMaterialConfig(name)
				data, err := ms.loadData(ms.source.MaterialPath(name), metadata.ResourceTypeMaterial, defaults)
				if errors.Is(err, core.ErrModelNotFound) {
					return defaults, nil
				}
				return data, err
			},
			OnComplete: func(result interface{}) { files.material, _ = result.(*metadata.MaterialConfig) },
		},
	}
	if ms.skyTexture == nil {
		jobs = append(jobs, metadata.JobTask{
			Name: "texture:sky",
			OnStart: func() (interface{}, error) {
				data, err := ms.loadData(ms.config.SkyTexturePath, metadata.ResourceTypeImage, nil)
				if errors.Is(err, core.ErrModelNotFound) {
					core.LogWarn("sky texture %s not found, using a plain sky", ms.config.SkyTexturePath)
					return loaders.SolidCubeImage(skyColour), nil
				}
				return data, err
			},
			OnComplete: func(result interface{}) { files.sky, _ = result.(*metadata.ImageData) },
		})
	}
	if err := ms.jobs.RunAll(jobs...); err != nil {
		return nil, err
	}
	if files.mesh == nil || len(files.mesh.Vertices) == 0 {
		return nil, fmt.Errorf("model %q: %w", name, core.ErrEmptyMesh)
	}
	if files.image == nil || (ms.skyTexture == nil && files.sky == nil) || files.material == nil {
		return nil, fmt.Errorf("model %q: loader returned unexpected data", name)
	}
	return files, nil
}

func (ms *ModelSystem) loadData(path string, resourceType metadata.ResourceType, params interface{}) (interface{}, error) {
	res, err := ms.source.LoadAsset(path, resourceType, params)
	if err != nil {
		return nil, err
	}
	return res.Data, nil
}
