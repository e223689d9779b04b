package systems

import (
	"encoding/binary"
	"fmt"

	"github.com/chewxy/math32"

	"github.com/spaghettifunk/creep/engine/core"
	"github.com/spaghettifunk/creep/engine/math"
	"github.com/spaghettifunk/creep/engine/renderer/metadata"
)

/**
 * @brief Creates procedural meshes and uploads mesh data into device local
 * vertex and index buffers.
 */
type GeometrySystem struct {
	device metadata.Device
}

func NewGeometrySystem(device metadata.Device) (*GeometrySystem, error) {
	if device == nil {
		err := fmt.Errorf("func NewGeometrySystem - device is nil")
		core.LogError(err.Error())
		return nil, err
	}
	return &GeometrySystem{device: device}, nil
}

func (gs *GeometrySystem) Shutdown() error {
	return nil
}

/**
 * @brief Generates a UV sphere centered at the origin.
 *
 * The poles are single vertices; in between there are stackCount-1 rings of
 * sliceCount+1 vertices (the seam is duplicated so texture coordinates wrap).
 * Triangles are clockwise seen from outside.
 */
func (gs *GeometrySystem) CreateSphere(radius float32, sliceCount, stackCount uint32) metadata.MeshData {
	var md metadata.MeshData

	md.Vertices = append(md.Vertices, math.Vertex3D{
		Position: math.NewVec3(0, radius, 0),
		Normal:   math.NewVec3(0, 1, 0),
		Texcoord: math.NewVec2(0, 0),
	})

	phiStep := math.K_PI / float32(stackCount)
	thetaStep := 2 * math.K_PI / float32(sliceCount)

	for i := uint32(1); i <= stackCount-1; i++ {
		phi := float32(i) * phiStep
		sinPhi, cosPhi := math32.Sincos(phi)
		for j := uint32(0); j <= sliceCount; j++ {
			theta := float32(j) * thetaStep
			sinTheta, cosTheta := math32.Sincos(theta)
			p := math.NewVec3(radius*sinPhi*cosTheta, radius*cosPhi, radius*sinPhi*sinTheta)
			md.Vertices = append(md.Vertices, math.Vertex3D{
				Position: p,
				Normal:   p.Normalize(),
				Texcoord: math.NewVec2(theta/(2*math.K_PI), phi/math.K_PI),
			})
		}
	}

	md.Vertices = append(md.Vertices, math.Vertex3D{
		Position: math.NewVec3(0, -radius, 0),
		Normal:   math.NewVec3(0, -1, 0),
		Texcoord: math.NewVec2(0, 1),
	})

	// top cap
	for i := uint32(1); i <= sliceCount; i++ {
		md.Indices = append(md.Indices, 0, i+1, i)
	}

	// inner stacks, skipping the north pole vertex
	baseIndex := uint32(1)
	ringVertexCount := sliceCount + 1
	for i := uint32(0); i < stackCount-2; i++ {
		for j := uint32(0); j < sliceCount; j++ {
			md.Indices = append(md.Indices,
				baseIndex+i*ringVertexCount+j,
				baseIndex+i*ringVertexCount+j+1,
				baseIndex+(i+1)*ringVertexCount+j,

				baseIndex+(i+1)*ringVertexCount+j,
				baseIndex+i*ringVertexCount+j+1,
				baseIndex+(i+1)*ringVertexCount+j+1,
			)
		}
	}

	// bottom cap
	southPole := uint32(len(md.Vertices) - 1)
	baseIndex = southPole - ringVertexCount
	for i := uint32(0); i < sliceCount; i++ {
		md.Indices = append(md.Indices, southPole, baseIndex+i, baseIndex+i+1)
	}
	return md
}

/**
 * @brief Records the upload of md into new device local buffers on cmd.
 *
 * The returned staging buffers are read by the GPU when cmd executes; the
 * caller releases them once the copy has completed. Indices are stored as
 * 16 bit values when every index fits.
 */
func (gs *GeometrySystem) Upload(cmd metadata.CommandList, name string, md metadata.MeshData) (*metadata.MeshGeometry, []metadata.Buffer, error) {
	if len(md.Vertices) == 0 {
		return nil, nil, fmt.Errorf("geometry %q: %w", name, core.ErrEmptyMesh)
	}
	if len(md.Indices) == 0 {
		return nil, nil, fmt.Errorf("geometry %q has no indices: %w", name, core.ErrEmptyMesh)
	}

	vertexBytes, err := binary.Append(nil, binary.LittleEndian, md.Vertices)
	if err != nil {
		return nil, nil, err
	}

	format := metadata.IndexFormatUint32
	var indexBytes []byte
	if len(md.Vertices) <= 0xffff {
		format = metadata.IndexFormatUint16
		idx16 := make([]uint16, len(md.Indices))
		for i, v := range md.Indices {
			idx16[i] = uint16(v)
		}
		indexBytes, err = binary.Append(nil, binary.LittleEndian, idx16)
	} else {
		indexBytes, err = binary.Append(nil, binary.LittleEndian, md.Indices)
	}
	if err != nil {
		return nil, nil, err
	}

	geo := &metadata.MeshGeometry{
		Name:                 name,
		VertexByteStride:     math.VertexStride,
		VertexBufferByteSize: uint64(len(vertexBytes)),
		IndexFormat:          format,
		IndexBufferByteSize:  uint64(len(indexBytes)),
		DrawArgs:             make(map[string]metadata.SubmeshGeometry),
	}

	var staging []metadata.Buffer
	fail := func(err error) (*metadata.MeshGeometry, []metadata.Buffer, error) {
		geo.Release()
		for _, b := range staging {
			b.Release()
		}
		return nil, nil, err
	}

	var vbStaging, ibStaging metadata.Buffer
	if geo.VertexBuffer, vbStaging, err = gs.createDefaultBuffer(cmd, name+"-vertices", vertexBytes, metadata.BufferUsageVertex); err != nil {
		return fail(err)
	}
	staging = append(staging, vbStaging)
	if geo.IndexBuffer, ibStaging, err = gs.createDefaultBuffer(cmd, name+"-indices", indexBytes, metadata.BufferUsageIndex); err != nil {
		return fail(err)
	}
	staging = append(staging, ibStaging)

	geo.DrawArgs[name] = metadata.SubmeshGeometry{IndexCount: uint32(len(md.Indices))}
	return geo, staging, nil
}

// createDefaultBuffer copies data into a host visible staging buffer and
// records a copy into a new device local buffer.
func (gs *GeometrySystem) createDefaultBuffer(cmd metadata.CommandList, name string, data []byte, usage metadata.BufferUsage) (metadata.Buffer, metadata.Buffer, error) {
	size := uint64(len(data))
	staging, err := gs.device.CreateBuffer(metadata.BufferDesc{
		Name:        name + "-staging",
		Size:        size,
		Usage:       metadata.BufferUsageTransferSrc,
		HostVisible: true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: creating staging buffer %q: %v", core.ErrDeviceFatal, name, err)
	}
	if err := staging.Write(0, data); err != nil {
		staging.Release()
		return nil, nil, err
	}
	buf, err := gs.device.CreateBuffer(metadata.BufferDesc{
		Name:  name,
		Size:  size,
		Usage: usage | metadata.BufferUsageTransferDst,
	})
	if err != nil {
		staging.Release()
		return nil, nil, fmt.Errorf("%w: creating buffer %q: %v", core.ErrDeviceFatal, name, err)
	}
	cmd.CopyBuffer(buf, staging, size)
	return buf, staging, nil
}
