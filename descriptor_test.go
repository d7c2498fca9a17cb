package ghal

import (
	"testing"

	vk "github.com/vulkan-go/vulkan"

	"github.com/stretchr/testify/assert"
)

func TestMaxUint32(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(uint32(5), maxUint32(5, 1))
	assert.Equal(uint32(5), maxUint32(1, 5))
	assert.Equal(uint32(0), maxUint32(0, 0))
}

func TestBindingIndex_FindsDeclaredBindingBySlot(t *testing.T) {
	assert := assert.New(t)

	tmpl := &descriptorSetTemplate{bindings: []ShaderBindingDescriptor{
		{Binding: 2, Type: DescriptorUniformBuffer},
		{Binding: 5, Type: DescriptorStorageBuffer},
	}}
	assert.Equal(0, bindingIndex(tmpl, 2))
	assert.Equal(1, bindingIndex(tmpl, 5))
}

func TestBindingIndex_UnknownBindingFallsBackToZero(t *testing.T) {
	assert := assert.New(t)

	tmpl := &descriptorSetTemplate{bindings: []ShaderBindingDescriptor{{Binding: 2}}}
	assert.Equal(0, bindingIndex(tmpl, 99))
}

func TestToVkDescriptorType_DefaultsToUniformBuffer(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(vk.DescriptorTypeUniformBuffer, toVkDescriptorType(DescriptorUniformBuffer))
	assert.Equal(vk.DescriptorTypeStorageBuffer, toVkDescriptorType(DescriptorStorageBuffer))
	assert.Equal(vk.DescriptorTypeAccelerationStructureKhr, toVkDescriptorType(DescriptorAccelerationStructure))
	assert.Equal(vk.DescriptorTypeUniformBuffer, toVkDescriptorType(DescriptorType(99)))
}

func TestToVkShaderStageFlags_RayTracingExpandsToAllFiveStages(t *testing.T) {
	assert := assert.New(t)

	f := toVkShaderStageFlags(StageRayTracingShader)
	assert.NotZero(f & vk.ShaderStageRaygenBitKhr)
	assert.NotZero(f & vk.ShaderStageClosestHitBitKhr)
	assert.NotZero(f & vk.ShaderStageMissBitKhr)
	assert.NotZero(f & vk.ShaderStageIntersectionBitKhr)
	assert.NotZero(f & vk.ShaderStageAnyHitBitKhr)
}

func TestToVkShaderStageFlags_VertexFragmentAreIndependent(t *testing.T) {
	assert := assert.New(t)

	f := toVkShaderStageFlags(StageVertexShader)
	assert.NotZero(f & vk.ShaderStageVertexBit)
	assert.Zero(f & vk.ShaderStageFragmentBit)
}

// frameOffsetSlot backs the ping-pong compute scenario: binding 1 at
// frame_offset=-1 (offset stored as -1, i.e. "one frame ahead of what it
// writes") should resolve frame 0 to physical slot 1 in a 2-deep chain.
func TestFrameOffsetSlot_NegativeOffsetWrapsForward(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(1, frameOffsetSlot(0, -1, 2))
	assert.Equal(0, frameOffsetSlot(1, -1, 2))
}

func TestFrameOffsetSlot_PositiveOffsetReadsPriorFrame(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(1, frameOffsetSlot(2, 1, 2))
	assert.Equal(0, frameOffsetSlot(3, 1, 2))
}

func TestFrameOffsetSlot_ZeroOffsetResolvesToCurrentFrame(t *testing.T) {
	assert := assert.New(t)

	for frame := 0; frame < 3; frame++ {
		assert.Equal(frame%3, frameOffsetSlot(frame, 0, 3))
	}
}

// A STATIC resource's chain depth of 1 must collapse every frame_offset to
// slot 0, preserving the pre-frame_offset PerFrame=false behavior exactly.
func TestFrameOffsetSlot_DepthOneAlwaysResolvesToZero(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(0, frameOffsetSlot(5, -3, 1))
	assert.Equal(0, frameOffsetSlot(0, 7, 1))
}

func TestAllProgrammableShaderStageFlags_CoversGraphicsComputeAndRayTracing(t *testing.T) {
	assert := assert.New(t)

	f := allProgrammableShaderStageFlags()
	assert.NotZero(f & vk.ShaderStageVertexBit)
	assert.NotZero(f & vk.ShaderStageFragmentBit)
	assert.NotZero(f & vk.ShaderStageComputeBit)
	assert.NotZero(f & vk.ShaderStageGeometryBit)
	assert.NotZero(f & vk.ShaderStageTessellationControlBit)
	assert.NotZero(f & vk.ShaderStageTessellationEvaluationBit)
	assert.NotZero(f & vk.ShaderStageRaygenBitKhr)
	assert.NotZero(f & vk.ShaderStageClosestHitBitKhr)
	assert.NotZero(f & vk.ShaderStageMissBitKhr)
	assert.NotZero(f & vk.ShaderStageAnyHitBitKhr)
	assert.NotZero(f & vk.ShaderStageIntersectionBitKhr)
}
