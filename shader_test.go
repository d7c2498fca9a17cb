package ghal

import (
	"testing"

	vk "github.com/vulkan-go/vulkan"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSliceUint32_ReassemblesLittleEndianWords(t *testing.T) {
	assert := assert.New(t)

	data := []byte{0x01, 0x02, 0x03, 0x04, 0xAA, 0xBB, 0xCC, 0xDD}
	words := sliceUint32(data)
	assert.Equal([]uint32{0x04030201, 0xDDCCBBAA}, words)
}

func TestSliceUint32_TruncatesPartialTrailingWord(t *testing.T) {
	assert := assert.New(t)

	data := []byte{0x01, 0x02, 0x03, 0x04, 0xFF, 0xFF}
	words := sliceUint32(data)
	assert.Len(words, 1)
}

func TestToVkShaderStage_RayTracingStagesMapToKhrBits(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(vk.ShaderStageRaygenBitKhr, toVkShaderStage(ShaderRayGeneration))
	assert.Equal(vk.ShaderStageClosestHitBitKhr, toVkShaderStage(ShaderClosestHit))
	assert.Equal(vk.ShaderStageMissBitKhr, toVkShaderStage(ShaderMiss))
}

func TestToVkShaderStage_VertexIsTheFallback(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(vk.ShaderStageVertexBit, toVkShaderStage(ShaderStageKind(99)))
}

// CreateShaderFromSPIRV must reject a misaligned binary before it ever
// reaches sliceUint32/vk.CreateShaderModule, per the InvalidShaderBinary
// contract — a silent truncation here would load a corrupt module instead
// of failing loudly.
func TestCreateShaderFromSPIRV_RejectsMisalignedBinary(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	store := newShaderStore(vk.Device(vk.NullHandle))
	_, err := store.CreateShaderFromSPIRV([]byte{0x01, 0x02, 0x03}, ShaderVertex, "main")
	require.Error(err)

	var ghalErr *Error
	require.ErrorAs(err, &ghalErr)
	assert.Equal(InvalidShaderBinary, ghalErr.Kind)
}

func TestStagesForShaderStage_RayTracingStagesShareOneBit(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(StageRayTracingShader, stagesForShaderStage(ShaderRayGeneration))
	assert.Equal(StageRayTracingShader, stagesForShaderStage(ShaderClosestHit))
	assert.Equal(StageComputeShader, stagesForShaderStage(ShaderCompute))
	assert.Equal(StageFragmentShader, stagesForShaderStage(ShaderFragment))
}
