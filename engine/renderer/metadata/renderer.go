package metadata

import (
	"github.com/google/uuid"
)

/**
 * @brief The state a GPU resource is in from the point of view of the commands
 * that use it. Moving a resource between states requires a barrier.
 */
type ResourceState uint32

const (
	ResourceStateCommon ResourceState = iota
	ResourceStatePresent
	ResourceStateRenderTarget
	ResourceStateDepthWrite
	ResourceStateShaderResource
	ResourceStateCopySource
	ResourceStateCopyDest
	ResourceStateResolveSource
	ResourceStateResolveDest
	ResourceStateGenericRead
)

func (s ResourceState) String() string {
	switch s {
	case ResourceStateCommon:
		return "common"
	case ResourceStatePresent:
		return "present"
	case ResourceStateRenderTarget:
		return "render-target"
	case ResourceStateDepthWrite:
		return "depth-write"
	case ResourceStateShaderResource:
		return "shader-resource"
	case ResourceStateCopySource:
		return "copy-source"
	case ResourceStateCopyDest:
		return "copy-dest"
	case ResourceStateResolveSource:
		return "resolve-source"
	case ResourceStateResolveDest:
		return "resolve-dest"
	case ResourceStateGenericRead:
		return "generic-read"
	}
	return "unknown"
}

// GPUResource is any object owned by the device. Release frees it immediately;
// callers must make sure the GPU no longer reads it.
type GPUResource interface {
	ID() uuid.UUID
	Release()
}

/** @brief A transition of one resource between two states. */
type Barrier struct {
	Resource GPUResource
	Before   ResourceState
	After    ResourceState
}

type Buffer interface {
	GPUResource
	Size() uint64
	// Write copies data at offset. Only valid for host visible buffers.
	Write(offset uint64, data []byte) error
}

type Texture interface {
	GPUResource
	Desc() TextureDesc
}

type Pipeline interface {
	GPUResource
	Desc() PipelineDesc
}

// CommandAllocator owns the memory commands are recorded into. It may only be
// reset once every list recorded from it has finished executing on the GPU.
type CommandAllocator interface {
	GPUResource
	Reset() error
}

// Fence is a monotonic GPU timeline value.
type Fence interface {
	GPUResource
	CompletedValue() uint64
	// Wait blocks until CompletedValue reaches value. There is no timeout.
	Wait(value uint64) error
}

type Viewport struct {
	X, Y, Width, Height float32
	MinDepth, MaxDepth  float32
}

type Rect struct {
	X, Y          int32
	Width, Height uint32
}

// TextureRegion describes one subresource copied from a buffer into a texture.
type TextureRegion struct {
	BufferOffset uint64
	MipLevel     uint32
	ArrayLayer   uint32
	Width        uint32
	Height       uint32
}

type IndexFormat uint8

const (
	IndexFormatUint16 IndexFormat = iota
	IndexFormatUint32
)

/**
 * @brief A list of recorded GPU commands. A list is closed after creation and
 * must be Reset against an allocator before recording.
 */
type CommandList interface {
	Reset(alloc CommandAllocator) error
	Close() error

	ResourceBarrier(barriers ...Barrier)
	CopyBuffer(dst, src Buffer, size uint64)
	CopyBufferToTexture(dst Texture, src Buffer, regions []TextureRegion)

	SetViewport(vp Viewport)
	SetScissor(r Rect)
	ClearRenderTarget(target Texture, colour [4]float32)
	ClearDepthStencil(target Texture, depth float32, stencil uint8)
	SetRenderTargets(colour Texture, depth Texture)

	SetPipeline(p Pipeline)
	SetPassConstants(buf Buffer)
	SetObjectConstants(buf Buffer, offset uint64)
	SetMaterialData(buf Buffer)
	SetVertexBuffer(buf Buffer, stride uint32)
	SetIndexBuffer(buf Buffer, format IndexFormat)
	DrawIndexedInstanced(indexCount, instanceCount, startIndex uint32, baseVertex int32, startInstance uint32)

	ResolveSubresource(dst, src Texture)
}

type DeviceCapabilities struct {
	MaxSamples      uint32
	MinUniformAlign uint64
}

/**
 * @brief The graphics device. Everything the renderer needs from the GPU goes
 * through this interface so the same frame logic runs on Vulkan and on the
 * headless device used in tests.
 */
type Device interface {
	CreateCommandAllocator() (CommandAllocator, error)
	CreateCommandList(alloc CommandAllocator) (CommandList, error)
	CreateFence(initial uint64) (Fence, error)
	CreateBuffer(desc BufferDesc) (Buffer, error)
	CreateTexture(desc TextureDesc) (Texture, error)
	CreatePipeline(desc PipelineDesc) (Pipeline, error)

	// UpdateTextureTable points shader texture slot at tex. Callers flush
	// the GPU before rebinding a slot that recorded work may read.
	UpdateTextureTable(slot int, tex Texture) error

	ExecuteCommandLists(lists ...CommandList) error
	Signal(fence Fence, value uint64) error
	Present() error

	CurrentBackBuffer() Texture
	CurrentBackBufferIndex() int
	BackBufferCount() int
	DepthStencil() Texture
	BackBufferFormat() TextureFormat
	DepthStencilFormat() TextureFormat

	Resize(width, height uint32) error
	Size() (uint32, uint32)
	Capabilities() DeviceCapabilities

	WaitIdle() error
	Shutdown() error
}
