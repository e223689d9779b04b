package vulkan

import (
	"encoding/binary"
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/creep/engine/renderer/metadata"
)

type bufferSetKey struct {
	pass      *VulkanBuffer
	object    *VulkanBuffer
	materials *VulkanBuffer
}

/**
 * @brief The descriptor state shared by every pipeline. Set 0 holds the pass
 * constants, the object constants (bound with a dynamic offset) and the
 * material storage buffer; one set is kept per buffer combination. Set 1 is
 * the texture table, with a 2D and a cube array indexed by slot.
 */
type VulkanDescriptors struct {
	context *VulkanContext

	bufferLayout   vk.DescriptorSetLayout
	textureLayout  vk.DescriptorSetLayout
	PipelineLayout vk.PipelineLayout
	pool           vk.DescriptorPool
	sampler        vk.Sampler

	textureSet vk.DescriptorSet
	table      [metadata.TextureTableSize]*VulkanImage
	blank2D    *VulkanImage
	blankCube  *VulkanImage

	bufferSets  map[bufferSetKey]vk.DescriptorSet
	objectRange uint64
}

func newDescriptors(dev *Device) (*VulkanDescriptors, error) {
	context := dev.context
	device := context.Device.LogicalDevice
	stages := vk.ShaderStageFlags(vk.ShaderStageVertexBit | vk.ShaderStageFragmentBit)

	d := &VulkanDescriptors{
		context:     context,
		bufferSets:  make(map[bufferSetKey]vk.DescriptorSet),
		objectRange: metadata.CalcConstantBufferByteSize(uint64(binary.Size(metadata.ObjectConstants{}))),
	}

	bufferBindings := []vk.DescriptorSetLayoutBinding{
		{Binding: bindingPassConstants, DescriptorType: vk.DescriptorTypeUniformBuffer, DescriptorCount: 1, StageFlags: stages},
		{Binding: bindingObjectConstants, DescriptorType: vk.DescriptorTypeUniformBufferDynamic, DescriptorCount: 1, StageFlags: stages},
		{Binding: bindingMaterials, DescriptorType: vk.DescriptorTypeStorageBuffer, DescriptorCount: 1, StageFlags: stages},
	}
	if err := check(vk.CreateDescriptorSetLayout(device, &vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bufferBindings)),
		PBindings:    bufferBindings,
	}, context.Allocator, &d.bufferLayout), "creating buffer set layout"); err != nil {
		return nil, err
	}

	textureBindings := []vk.DescriptorSetLayoutBinding{
		{Binding: bindingTextures2D, DescriptorType: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: metadata.TextureTableSize, StageFlags: vk.ShaderStageFlags(vk.ShaderStageFragmentBit)},
		{Binding: bindingTexturesCube, DescriptorType: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: metadata.TextureTableSize, StageFlags: vk.ShaderStageFlags(vk.ShaderStageFragmentBit)},
	}
	if err := check(vk.CreateDescriptorSetLayout(device, &vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(textureBindings)),
		PBindings:    textureBindings,
	}, context.Allocator, &d.textureLayout), "creating texture set layout"); err != nil {
		d.destroy()
		return nil, err
	}

	if err := check(vk.CreatePipelineLayout(device, &vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: 2,
		PSetLayouts:    []vk.DescriptorSetLayout{d.bufferLayout, d.textureLayout},
	}, context.Allocator, &d.PipelineLayout), "creating pipeline layout"); err != nil {
		d.destroy()
		return nil, err
	}

	sizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: VULKAN_MAX_BUFFER_SETS},
		{Type: vk.DescriptorTypeUniformBufferDynamic, DescriptorCount: VULKAN_MAX_BUFFER_SETS},
		{Type: vk.DescriptorTypeStorageBuffer, DescriptorCount: VULKAN_MAX_BUFFER_SETS},
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: 2 * metadata.TextureTableSize},
	}
	if err := check(vk.CreateDescriptorPool(device, &vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       VULKAN_MAX_BUFFER_SETS + 1,
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}, context.Allocator, &d.pool), "creating descriptor pool"); err != nil {
		d.destroy()
		return nil, err
	}

	if err := d.createSampler(); err != nil {
		d.destroy()
		return nil, err
	}

	var err error
	if d.textureSet, err = d.allocate(d.textureLayout); err != nil {
		d.destroy()
		return nil, err
	}

	// every slot must reference a valid image before the first draw
	if d.blank2D, err = ImageCreate(dev, metadata.TextureDesc{
		Name: "blank-2d", Type: metadata.TextureType2d, Width: 1, Height: 1, ArrayLayers: 1,
		Format: metadata.FormatRGBA8Unorm, Usage: metadata.TextureUsageSampled,
		InitialState: metadata.ResourceStateShaderResource,
	}); err != nil {
		d.destroy()
		return nil, err
	}
	if d.blankCube, err = ImageCreate(dev, metadata.TextureDesc{
		Name: "blank-cube", Type: metadata.TextureTypeCube, Width: 1, Height: 1, ArrayLayers: 6,
		Format: metadata.FormatRGBA8Unorm, Usage: metadata.TextureUsageSampled,
		InitialState: metadata.ResourceStateShaderResource,
	}); err != nil {
		d.destroy()
		return nil, err
	}
	for slot := 0; slot < metadata.TextureTableSize; slot++ {
		d.writeImage(bindingTextures2D, slot, d.blank2D)
		d.writeImage(bindingTexturesCube, slot, d.blankCube)
	}
	return d, nil
}

func (d *VulkanDescriptors) createSampler() error {
	device := d.context.Device
	samplerCreateInfo := vk.SamplerCreateInfo{
		SType:        vk.StructureTypeSamplerCreateInfo,
		MagFilter:    vk.FilterLinear,
		MinFilter:    vk.FilterLinear,
		MipmapMode:   vk.SamplerMipmapModeLinear,
		AddressModeU: vk.SamplerAddressModeRepeat,
		AddressModeV: vk.SamplerAddressModeRepeat,
		AddressModeW: vk.SamplerAddressModeRepeat,
		CompareOp:    vk.CompareOpAlways,
		BorderColor:  vk.BorderColorFloatOpaqueBlack,
		MinLod:       0,
		MaxLod:       1000,
	}
	if device.Features.SamplerAnisotropy == vk.True {
		samplerCreateInfo.AnisotropyEnable = vk.True
		samplerCreateInfo.MaxAnisotropy = min(16, device.Properties.Limits.MaxSamplerAnisotropy)
	}
	return check(vk.CreateSampler(device.LogicalDevice, &samplerCreateInfo, d.context.Allocator, &d.sampler), "creating sampler")
}

func (d *VulkanDescriptors) allocate(layout vk.DescriptorSetLayout) (vk.DescriptorSet, error) {
	var set vk.DescriptorSet
	err := check(vk.AllocateDescriptorSets(d.context.Device.LogicalDevice, &vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     d.pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{layout},
	}, &set), "allocating descriptor set")
	return set, err
}

func (d *VulkanDescriptors) writeImage(binding uint32, slot int, img *VulkanImage) {
	write := vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          d.textureSet,
		DstBinding:      binding,
		DstArrayElement: uint32(slot),
		DescriptorCount: 1,
		DescriptorType:  vk.DescriptorTypeCombinedImageSampler,
		PImageInfo: []vk.DescriptorImageInfo{{
			Sampler:     d.sampler,
			ImageView:   img.View,
			ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal,
		}},
	}
	vk.UpdateDescriptorSets(d.context.Device.LogicalDevice, 1, []vk.WriteDescriptorSet{write}, 0, nil)
}

func (d *VulkanDescriptors) setTexture(slot int, img *VulkanImage) error {
	if slot < 0 || slot >= metadata.TextureTableSize {
		return fmt.Errorf("texture slot %d out of range [0,%d)", slot, metadata.TextureTableSize)
	}
	return d.context.locks.SafeCall(DescriptorManagement, func() error {
		if img.desc.Type == metadata.TextureTypeCube {
			d.writeImage(bindingTexturesCube, slot, img)
		} else {
			d.writeImage(bindingTextures2D, slot, img)
		}
		d.table[slot] = img
		return nil
	})
}

// bufferSet returns the set binding the three buffers, writing it on first use.
func (d *VulkanDescriptors) bufferSet(pass, object, materials *VulkanBuffer) (vk.DescriptorSet, error) {
	if pass == nil || object == nil || materials == nil {
		return nil, fmt.Errorf("draw without pass, object and material buffers bound")
	}
	key := bufferSetKey{pass: pass, object: object, materials: materials}
	var set vk.DescriptorSet
	err := d.context.locks.SafeCall(DescriptorManagement, func() error {
		if cached, ok := d.bufferSets[key]; ok {
			set = cached
			return nil
		}
		allocated, err := d.allocate(d.bufferLayout)
		if err != nil {
			return err
		}
		writes := []vk.WriteDescriptorSet{
			bufferWrite(allocated, bindingPassConstants, vk.DescriptorTypeUniformBuffer, pass, vk.DeviceSize(vk.WholeSize)),
			bufferWrite(allocated, bindingObjectConstants, vk.DescriptorTypeUniformBufferDynamic, object, vk.DeviceSize(min(d.objectRange, object.desc.Size))),
			bufferWrite(allocated, bindingMaterials, vk.DescriptorTypeStorageBuffer, materials, vk.DeviceSize(vk.WholeSize)),
		}
		vk.UpdateDescriptorSets(d.context.Device.LogicalDevice, uint32(len(writes)), writes, 0, nil)
		d.bufferSets[key] = allocated
		set = allocated
		return nil
	})
	return set, err
}

func bufferWrite(set vk.DescriptorSet, binding uint32, descriptorType vk.DescriptorType, b *VulkanBuffer, size vk.DeviceSize) vk.WriteDescriptorSet {
	return vk.WriteDescriptorSet{
		SType:           vk.StructureTypeWriteDescriptorSet,
		DstSet:          set,
		DstBinding:      binding,
		DescriptorCount: 1,
		DescriptorType:  descriptorType,
		PBufferInfo: []vk.DescriptorBufferInfo{{
			Buffer: b.Handle,
			Offset: 0,
			Range:  size,
		}},
	}
}

// forgetBuffer frees the sets that reference b.
func (d *VulkanDescriptors) forgetBuffer(b *VulkanBuffer) {
	d.context.locks.SafeCall(DescriptorManagement, func() error {
		var stale []vk.DescriptorSet
		for key, set := range d.bufferSets {
			if key.pass == b || key.object == b || key.materials == b {
				stale = append(stale, set)
				delete(d.bufferSets, key)
			}
		}
		if len(stale) > 0 {
			vk.FreeDescriptorSets(d.context.Device.LogicalDevice, d.pool, uint32(len(stale)), stale)
		}
		return nil
	})
}

// forgetImage points the slots still referencing img back at the blanks.
func (d *VulkanDescriptors) forgetImage(img *VulkanImage) {
	d.context.locks.SafeCall(DescriptorManagement, func() error {
		for slot, bound := range d.table {
			if bound != img {
				continue
			}
			if img.desc.Type == metadata.TextureTypeCube {
				d.writeImage(bindingTexturesCube, slot, d.blankCube)
			} else {
				d.writeImage(bindingTextures2D, slot, d.blank2D)
			}
			d.table[slot] = nil
		}
		return nil
	})
}

func (d *VulkanDescriptors) destroy() {
	device := d.context.Device.LogicalDevice
	allocator := d.context.Allocator
	if d.blank2D != nil {
		d.blank2D.Release()
		d.blank2D = nil
	}
	if d.blankCube != nil {
		d.blankCube.Release()
		d.blankCube = nil
	}
	if d.pool != nil {
		vk.DestroyDescriptorPool(device, d.pool, allocator)
		d.pool = nil
	}
	d.bufferSets = map[bufferSetKey]vk.DescriptorSet{}
	if d.sampler != nil {
		vk.DestroySampler(device, d.sampler, allocator)
		d.sampler = nil
	}
	if d.PipelineLayout != nil {
		vk.DestroyPipelineLayout(device, d.PipelineLayout, allocator)
		d.PipelineLayout = nil
	}
	if d.textureLayout != nil {
		vk.DestroyDescriptorSetLayout(device, d.textureLayout, allocator)
		d.textureLayout = nil
	}
	if d.bufferLayout != nil {
		vk.DestroyDescriptorSetLayout(device, d.bufferLayout, allocator)
		d.bufferLayout = nil
	}
}
