package metadata

import "github.com/spaghettifunk/creep/engine/math"

/**
 * @brief A material, which represents the properties of a surface that the
 * lighting shader reads from the material buffer.
 */
type Material struct {
	/** @brief The material name. */
	Name string
	/** @brief Index of the material in the material buffer. */
	MatCBIndex int
	/** @brief Index of the diffuse texture in the texture table. */
	DiffuseSrvHeapIndex int
	/** @brief Frame resources still holding stale data for this material. */
	NumFramesDirty int

	DiffuseAlbedo math.Vec4
	FresnelR0     math.Vec3
	/** @brief 0 is perfectly smooth and 1 is the roughest surface. */
	Roughness    float32
	MatTransform math.Mat4
}

/**
 * @brief Material parameters read from a material file next to a model.
 * Unset fields keep their defaults.
 */
type MaterialConfig struct {
	Name          string
	DiffuseAlbedo math.Vec4
	FresnelR0     math.Vec3
	Roughness     float32
}
