package frames

import (
	"fmt"

	"github.com/spaghettifunk/creep/engine/core"
	"github.com/spaghettifunk/creep/engine/renderer/metadata"
)

/**
 * @brief Everything the CPU needs to build the commands of one frame. The GPU
 * may still read a frame resource until the timeline reaches Fence, so it is
 * only rewritten after that.
 */
type FrameResource struct {
	// Index in the ring.
	Index        int
	CmdListAlloc metadata.CommandAllocator

	PassCB         *UploadBuffer[metadata.PassConstants]
	ObjectCB       *UploadBuffer[metadata.ObjectConstants]
	MaterialBuffer *UploadBuffer[metadata.MaterialData]

	// Timeline value marking the commands up to this frame. Zero means the
	// slot was never submitted.
	Fence uint64
}

func NewFrameResource(device metadata.Device, index, passCount, objectCount, materialCount int) (*FrameResource, error) {
	alloc, err := device.CreateCommandAllocator()
	if err != nil {
		return nil, fmt.Errorf("%w: creating command allocator: %v", core.ErrDeviceFatal, err)
	}
	fr := &FrameResource{Index: index, CmdListAlloc: alloc}

	if fr.PassCB, err = NewUploadBuffer[metadata.PassConstants](device, fmt.Sprintf("pass-cb-%d", index), passCount, true); err != nil {
		fr.Release()
		return nil, err
	}
	if fr.ObjectCB, err = NewUploadBuffer[metadata.ObjectConstants](device, fmt.Sprintf("object-cb-%d", index), objectCount, true); err != nil {
		fr.Release()
		return nil, err
	}
	if fr.MaterialBuffer, err = NewUploadBuffer[metadata.MaterialData](device, fmt.Sprintf("material-buffer-%d", index), materialCount, false); err != nil {
		fr.Release()
		return nil, err
	}
	return fr, nil
}

func (fr *FrameResource) Release() {
	if fr.MaterialBuffer != nil {
		fr.MaterialBuffer.Release()
	}
	if fr.ObjectCB != nil {
		fr.ObjectCB.Release()
	}
	if fr.PassCB != nil {
		fr.PassCB.Release()
	}
	if fr.CmdListAlloc != nil {
		fr.CmdListAlloc.Release()
	}
}
