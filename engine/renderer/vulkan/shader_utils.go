package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/creep/engine/assets/loaders"
	"github.com/spaghettifunk/creep/engine/renderer/metadata"
)

/**
 * @brief Represents a single shader stage.
 */
type VulkanShaderStage struct {
	/** @brief The internal shader module Handle. */
	Handle vk.ShaderModule
	/** @brief The pipeline shader stage creation info. */
	ShaderStageCreateInfo vk.PipelineShaderStageCreateInfo
}

var shaderLoader = &loaders.ShaderLoader{}

// NewShaderModule reads the SPIR-V at path and wraps it in a stage.
func NewShaderModule(context *VulkanContext, path string, stage vk.ShaderStageFlagBits) (*VulkanShaderStage, error) {
	res, err := shaderLoader.Load(path, metadata.ResourceTypeShader, nil)
	if err != nil {
		return nil, err
	}
	defer shaderLoader.Unload(res)

	code, ok := res.Data.([]uint32)
	if !ok {
		return nil, fmt.Errorf("shader %s: unexpected data %T", path, res.Data)
	}
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code) * 4),
		PCode:    code,
	}

	out := &VulkanShaderStage{}
	if err := check(vk.CreateShaderModule(context.Device.LogicalDevice, &createInfo, context.Allocator, &out.Handle), "creating shader module "+path); err != nil {
		return nil, err
	}
	out.ShaderStageCreateInfo = vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  stage,
		Module: out.Handle,
		PName:  VulkanSafeString("main"),
	}
	return out, nil
}

func (s *VulkanShaderStage) Destroy(context *VulkanContext) {
	if s.Handle != nil {
		vk.DestroyShaderModule(context.Device.LogicalDevice, s.Handle, context.Allocator)
		s.Handle = nil
	}
}
