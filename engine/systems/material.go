package systems

import (
	"github.com/spaghettifunk/creep/engine/math"
	"github.com/spaghettifunk/creep/engine/renderer/metadata"
)

/** @brief The name of the default material. */
const DefaultMaterialName string = "default"

/**
 * @brief The material of a model without a material file: white albedo,
 * a dielectric Fresnel term and a fairly smooth surface.
 */
func DefaultMaterialConfig(name string) *metadata.MaterialConfig {
	if name == "" {
		name = DefaultMaterialName
	}
	return &metadata.MaterialConfig{
		Name:          name,
		DiffuseAlbedo: math.NewVec4(1, 1, 1, 1),
		FresnelR0:     math.NewVec3(0.05, 0.05, 0.05),
		Roughness:     0.2,
	}
}

func SkyMaterialConfig() *metadata.MaterialConfig {
	return &metadata.MaterialConfig{
		Name:          "sky",
		DiffuseAlbedo: math.NewVec4(1, 1, 1, 1),
		FresnelR0:     math.NewVec3(0.1, 0.1, 0.1),
		Roughness:     1.0,
	}
}

// NewMaterial creates the material stored at matCBIndex of the material
// buffer and sampling texture slot diffuseSlot.
func NewMaterial(cfg *metadata.MaterialConfig, matCBIndex, diffuseSlot int) *metadata.Material {
	name := cfg.Name
	if name == "" {
		name = DefaultMaterialName
	}
	return &metadata.Material{
		Name:                name,
		MatCBIndex:          matCBIndex,
		DiffuseSrvHeapIndex: diffuseSlot,
		DiffuseAlbedo:       cfg.DiffuseAlbedo,
		FresnelR0:           cfg.FresnelR0,
		Roughness:           cfg.Roughness,
		MatTransform:        math.NewMat4Identity(),
	}
}
