package metadata

import "github.com/spaghettifunk/creep/engine/math"

/** @brief Render layers, drawn in declaration order. */
type RenderLayer int

const (
	RenderLayerOpaque RenderLayer = iota
	RenderLayerSky
	RenderLayerCount
)

func (l RenderLayer) String() string {
	switch l {
	case RenderLayerOpaque:
		return "opaque"
	case RenderLayerSky:
		return "sky"
	}
	return "unknown"
}

/**
 * @brief The data needed to draw one shape: a mesh range, a material and
 * the object constants stored at ObjCBIndex in every frame resource.
 */
type RenderItem struct {
	World        math.Mat4
	TexTransform math.Mat4

	/** @brief Frame resources still holding stale object constants for this item. */
	NumFramesDirty int
	ObjCBIndex     int

	Mat *Material
	Geo *MeshGeometry

	IndexCount         uint32
	StartIndexLocation uint32
	BaseVertexLocation int32

	Layer RenderLayer
}
