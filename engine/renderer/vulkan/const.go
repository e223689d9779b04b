package vulkan

import (
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/creep/engine/renderer/metadata"
)

/**
 * @brief Max number of buffer descriptor sets alive at once. One set exists
 * per combination of pass, object and material buffers, so the frame resource
 * ring needs a handful.
 * @todo TODO: grow the pool on ErrorOutOfPoolMemory instead of failing.
 */
const VULKAN_MAX_BUFFER_SETS uint32 = 64

// Bindings of descriptor set 0.
const (
	bindingPassConstants   = 0
	bindingObjectConstants = 1
	bindingMaterials       = 2
)

// Bindings of descriptor set 1, the texture table.
const (
	bindingTextures2D   = 0
	bindingTexturesCube = 1
)

// Vertex layout of math.Vertex3D: position, normal, texture coordinate.
var vertexAttributes = []vk.VertexInputAttributeDescription{
	{Location: 0, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 0},
	{Location: 1, Binding: 0, Format: vk.FormatR32g32b32Sfloat, Offset: 12},
	{Location: 2, Binding: 0, Format: vk.FormatR32g32Sfloat, Offset: 24},
}

type stateInfo struct {
	layout vk.ImageLayout
	access vk.AccessFlags
	stage  vk.PipelineStageFlags
}

// stateInfos maps resource states to the layout, access and pipeline stage a
// barrier into or out of the state synchronises with.
var stateInfos = map[metadata.ResourceState]stateInfo{
	metadata.ResourceStateCommon: {
		layout: vk.ImageLayoutGeneral,
		access: vk.AccessFlags(vk.AccessMemoryReadBit | vk.AccessMemoryWriteBit),
		stage:  vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
	},
	metadata.ResourceStatePresent: {
		layout: vk.ImageLayoutPresentSrc,
		access: 0,
		stage:  vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit),
	},
	metadata.ResourceStateRenderTarget: {
		layout: vk.ImageLayoutColorAttachmentOptimal,
		access: vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit),
		stage:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
	},
	metadata.ResourceStateDepthWrite: {
		layout: vk.ImageLayoutDepthStencilAttachmentOptimal,
		access: vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit | vk.AccessDepthStencilAttachmentWriteBit),
		stage:  vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit | vk.PipelineStageLateFragmentTestsBit),
	},
	metadata.ResourceStateShaderResource: {
		layout: vk.ImageLayoutShaderReadOnlyOptimal,
		access: vk.AccessFlags(vk.AccessShaderReadBit),
		stage:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
	},
	metadata.ResourceStateCopySource: {
		layout: vk.ImageLayoutTransferSrcOptimal,
		access: vk.AccessFlags(vk.AccessTransferReadBit),
		stage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
	},
	metadata.ResourceStateCopyDest: {
		layout: vk.ImageLayoutTransferDstOptimal,
		access: vk.AccessFlags(vk.AccessTransferWriteBit),
		stage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
	},
	metadata.ResourceStateResolveSource: {
		layout: vk.ImageLayoutTransferSrcOptimal,
		access: vk.AccessFlags(vk.AccessTransferReadBit),
		stage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
	},
	metadata.ResourceStateResolveDest: {
		layout: vk.ImageLayoutTransferDstOptimal,
		access: vk.AccessFlags(vk.AccessTransferWriteBit),
		stage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
	},
	metadata.ResourceStateGenericRead: {
		layout: vk.ImageLayoutShaderReadOnlyOptimal,
		access: vk.AccessFlags(vk.AccessVertexAttributeReadBit | vk.AccessIndexReadBit | vk.AccessUniformReadBit | vk.AccessShaderReadBit),
		stage:  vk.PipelineStageFlags(vk.PipelineStageVertexInputBit | vk.PipelineStageVertexShaderBit | vk.PipelineStageFragmentShaderBit),
	},
}

func stateOf(s metadata.ResourceState) stateInfo {
	if info, ok := stateInfos[s]; ok {
		return info
	}
	return stateInfos[metadata.ResourceStateCommon]
}

var formats = map[metadata.TextureFormat]vk.Format{
	metadata.FormatRGBA8Unorm: vk.FormatR8g8b8a8Unorm,
	metadata.FormatRGBA8Srgb:  vk.FormatR8g8b8a8Srgb,
	metadata.FormatBGRA8Unorm: vk.FormatB8g8r8a8Unorm,
	metadata.FormatBC1Unorm:   vk.FormatBc1RgbaUnormBlock,
	metadata.FormatBC2Unorm:   vk.FormatBc2UnormBlock,
	metadata.FormatBC3Unorm:   vk.FormatBc3UnormBlock,
	metadata.FormatBC7Unorm:   vk.FormatBc7UnormBlock,
	metadata.FormatD24UnormS8: vk.FormatD24UnormS8Uint,
	metadata.FormatD32FloatS8: vk.FormatD32SfloatS8Uint,
}

func toVkFormat(f metadata.TextureFormat) vk.Format {
	if vf, ok := formats[f]; ok {
		return vf
	}
	return vk.FormatUndefined
}

func fromVkFormat(vf vk.Format) metadata.TextureFormat {
	for f, v := range formats {
		if v == vf {
			return f
		}
	}
	return metadata.FormatUnknown
}

func toVkSamples(samples uint32) vk.SampleCountFlagBits {
	if samples == 0 {
		return vk.SampleCount1Bit
	}
	return vk.SampleCountFlagBits(samples)
}

func toVkCullMode(c metadata.CullMode) vk.CullModeFlags {
	switch c {
	case metadata.CullModeNone:
		return vk.CullModeFlags(vk.CullModeNone)
	case metadata.CullModeFront:
		return vk.CullModeFlags(vk.CullModeFrontBit)
	}
	return vk.CullModeFlags(vk.CullModeBackBit)
}

func toVkCompareOp(c metadata.CompareFunc) vk.CompareOp {
	switch c {
	case metadata.CompareLessEqual:
		return vk.CompareOpLessOrEqual
	case metadata.CompareAlways:
		return vk.CompareOpAlways
	}
	return vk.CompareOpLess
}

func toVkIndexType(f metadata.IndexFormat) vk.IndexType {
	if f == metadata.IndexFormatUint16 {
		return vk.IndexTypeUint16
	}
	return vk.IndexTypeUint32
}
