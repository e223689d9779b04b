package frames

import (
	"encoding/binary"
	"fmt"

	"github.com/spaghettifunk/creep/engine/core"
	"github.com/spaghettifunk/creep/engine/renderer/metadata"
)

/**
 * @brief A host visible buffer holding count elements of T. Constant buffer
 * elements are padded to the 256 byte constant buffer alignment.
 */
type UploadBuffer[T any] struct {
	buffer      metadata.Buffer
	elementSize uint64
	count       int
}

func NewUploadBuffer[T any](device metadata.Device, name string, count int, isConstantBuffer bool) (*UploadBuffer[T], error) {
	var zero T
	size := binary.Size(zero)
	if size <= 0 {
		return nil, fmt.Errorf("upload buffer %q: %T has no fixed size", name, zero)
	}
	elementSize := uint64(size)
	usage := metadata.BufferUsageStorage
	if isConstantBuffer {
		elementSize = metadata.CalcConstantBufferByteSize(elementSize)
		usage = metadata.BufferUsageUniform
	}
	// a zero sized buffer is not allowed, keep room for one element
	n := max(count, 1)
	buf, err := device.CreateBuffer(metadata.BufferDesc{
		Name:        name,
		Size:        elementSize * uint64(n),
		Usage:       usage,
		HostVisible: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: creating upload buffer %q: %v", core.ErrDeviceFatal, name, err)
	}
	return &UploadBuffer[T]{buffer: buf, elementSize: elementSize, count: count}, nil
}

// CopyData writes data as element index.
func (u *UploadBuffer[T]) CopyData(index int, data T) error {
	if index < 0 || index >= u.count {
		return fmt.Errorf("upload buffer element %d out of range [0,%d)", index, u.count)
	}
	bytes, err := binary.Append(nil, binary.LittleEndian, data)
	if err != nil {
		return err
	}
	return u.buffer.Write(u.Offset(index), bytes)
}

// Offset returns the byte offset of element index.
func (u *UploadBuffer[T]) Offset(index int) uint64 {
	return uint64(index) * u.elementSize
}

func (u *UploadBuffer[T]) ElementSize() uint64 {
	return u.elementSize
}

func (u *UploadBuffer[T]) Count() int {
	return u.count
}

func (u *UploadBuffer[T]) Resource() metadata.Buffer {
	return u.buffer
}

func (u *UploadBuffer[T]) Release() {
	u.buffer.Release()
}
