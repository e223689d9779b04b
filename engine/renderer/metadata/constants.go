package metadata

import (
	"github.com/spaghettifunk/creep/engine/math"
)

/** @brief Maximum number of lights in the pass constants. */
const MaxLights = 16

// Number of shader texture slots the device exposes.
const TextureTableSize = 4

/**
 * @brief Returns byteSize rounded up to the constant buffer alignment of 256.
 */
func CalcConstantBufferByteSize(byteSize uint64) uint64 {
	return (byteSize + 255) &^ 255
}

/** @brief Per object shader constants. */
type ObjectConstants struct {
	World         math.Mat4
	TexTransform  math.Mat4
	MaterialIndex uint32
	_             [3]uint32
}

/** @brief Per material shader data, laid out for a storage buffer. */
type MaterialData struct {
	DiffuseAlbedo   math.Vec4
	FresnelR0       math.Vec3
	Roughness       float32
	MatTransform    math.Mat4
	DiffuseMapIndex uint32
	_               [3]uint32
}

type Light struct {
	Strength     math.Vec3
	FalloffStart float32
	/** @brief Directional and spot lights only. */
	Direction  math.Vec3
	FalloffEnd float32
	/** @brief Point and spot lights only. */
	Position  math.Vec3
	SpotPower float32
}

/** @brief Per pass shader constants. Matrices are stored transposed. */
type PassConstants struct {
	View        math.Mat4
	InvView     math.Mat4
	Proj        math.Mat4
	InvProj     math.Mat4
	ViewProj    math.Mat4
	InvViewProj math.Mat4

	EyePosW             math.Vec3
	_                   float32
	RenderTargetSize    math.Vec2
	InvRenderTargetSize math.Vec2
	NearZ               float32
	FarZ                float32
	TotalTime           float32
	DeltaTime           float32

	AmbientLight math.Vec4
	Lights       [MaxLights]Light
}

// DefaultObjectConstants has identity transforms.
func DefaultObjectConstants() ObjectConstants {
	return ObjectConstants{
		World:        math.NewMat4Identity(),
		TexTransform: math.NewMat4Identity(),
	}
}
