package metadata

type BufferUsage uint32

const (
	BufferUsageVertex      BufferUsage = 0x1
	BufferUsageIndex       BufferUsage = 0x2
	BufferUsageUniform     BufferUsage = 0x4
	BufferUsageStorage     BufferUsage = 0x8
	BufferUsageTransferSrc BufferUsage = 0x10
	BufferUsageTransferDst BufferUsage = 0x20
)

/**
 * @brief Describes a buffer to be created on the device. Host visible buffers
 * live in upload memory and are written by the CPU; the rest are device local
 * and filled through a copy.
 */
type BufferDesc struct {
	Name        string
	Size        uint64
	Usage       BufferUsage
	HostVisible bool
}
