package metadata

// SubmeshGeometry is a draw range inside a MeshGeometry.
type SubmeshGeometry struct {
	IndexCount         uint32
	StartIndexLocation uint32
	BaseVertexLocation int32
}

/**
 * @brief Vertex and index buffers of an uploaded mesh plus the named draw
 * ranges into them.
 */
type MeshGeometry struct {
	Name string

	VertexBuffer Buffer
	IndexBuffer  Buffer

	VertexByteStride     uint32
	VertexBufferByteSize uint64
	IndexFormat          IndexFormat
	IndexBufferByteSize  uint64

	DrawArgs map[string]SubmeshGeometry
}

// Release frees both GPU buffers.
func (g *MeshGeometry) Release() {
	if g.VertexBuffer != nil {
		g.VertexBuffer.Release()
		g.VertexBuffer = nil
	}
	if g.IndexBuffer != nil {
		g.IndexBuffer.Release()
		g.IndexBuffer = nil
	}
}
