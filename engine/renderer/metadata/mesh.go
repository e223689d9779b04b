package metadata

import (
	"github.com/spaghettifunk/creep/engine/math"
)

// MeshData is CPU side geometry as produced by a mesh loader or generator.
type MeshData struct {
	Vertices []math.Vertex3D
	Indices  []uint32
}
