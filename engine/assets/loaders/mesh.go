package loaders

import (
	"fmt"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/spaghettifunk/creep/engine/core"
	"github.com/spaghettifunk/creep/engine/math"
	"github.com/spaghettifunk/creep/engine/renderer/metadata"
)

/**
 * @brief Imports the triangle primitives of every mesh in a glTF file into a
 * single vertex and index list.
 *
 * glTF is right handed; positions and normals are mirrored on Z and the
 * winding is flipped so the mesh renders with the left handed, clockwise
 * front face convention of the renderer.
 */
type MeshLoader struct{}

func (ml *MeshLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, err
	}
	md, err := meshFromDocument(doc)
	if err != nil {
		return nil, fmt.Errorf("mesh %s: %w", path, err)
	}
	if len(md.Vertices) == 0 {
		return nil, fmt.Errorf("mesh %s: %w", path, core.ErrEmptyMesh)
	}
	return &metadata.Resource{
		Type:     metadata.ResourceTypeMesh,
		Name:     resourceName(path),
		FullPath: path,
		DataSize: uint64(len(md.Vertices)*math.VertexStride + len(md.Indices)*4),
		Data:     md,
	}, nil
}

func (ml *MeshLoader) Unload(res *metadata.Resource) error {
	res.Data = nil
	return nil
}

func meshFromDocument(doc *gltf.Document) (*metadata.MeshData, error) {
	md := &metadata.MeshData{}
	for _, mesh := range doc.Meshes {
		for _, p := range mesh.Primitives {
			if p.Mode != gltf.PrimitiveTriangles {
				core.LogWarn("mesh %q: skipping primitive with mode %d", mesh.Name, p.Mode)
				continue
			}
			if err := appendPrimitive(doc, p, md); err != nil {
				return nil, fmt.Errorf("mesh %q: %w", mesh.Name, err)
			}
		}
	}
	return md, nil
}

func appendPrimitive(doc *gltf.Document, p *gltf.Primitive, md *metadata.MeshData) error {
	posIdx, ok := p.Attributes[gltf.POSITION]
	if !ok {
		return fmt.Errorf("primitive without %s", gltf.POSITION)
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return err
	}

	var normals [][3]float32
	if idx, ok := p.Attributes[gltf.NORMAL]; ok {
		if normals, err = modeler.ReadNormal(doc, doc.Accessors[idx], nil); err != nil {
			return err
		}
	}
	var uvs [][2]float32
	if idx, ok := p.Attributes[gltf.TEXCOORD_0]; ok {
		if uvs, err = modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil); err != nil {
			return err
		}
	}

	base := uint32(len(md.Vertices))
	for i, pos := range positions {
		v := math.Vertex3D{Position: math.NewVec3(pos[0], pos[1], -pos[2])}
		if i < len(normals) {
			n := normals[i]
			v.Normal = math.NewVec3(n[0], n[1], -n[2])
		}
		if i < len(uvs) {
			v.Texcoord = math.NewVec2(uvs[i][0], uvs[i][1])
		}
		md.Vertices = append(md.Vertices, v)
	}

	var indices []uint32
	if p.Indices != nil {
		if indices, err = modeler.ReadIndices(doc, doc.Accessors[*p.Indices], nil); err != nil {
			return err
		}
	} else {
		indices = make([]uint32, len(positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	if len(indices)%3 != 0 {
		return fmt.Errorf("index count %d is not a multiple of 3", len(indices))
	}
	for i := 0; i < len(indices); i += 3 {
		md.Indices = append(md.Indices, base+indices[i], base+indices[i+2], base+indices[i+1])
	}
	return nil
}
