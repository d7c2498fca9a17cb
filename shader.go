package ghal

import (
	"os"

	vk "github.com/vulkan-go/vulkan"
)

// ShaderStageKind tags which pipeline stage a shader module targets.
// Grounded on shader.go's VERTEX/FRAG/COMPUTE/GEOM/TESS int constants,
// extended with the ray-tracing stages the teacher never built.
type ShaderStageKind int

const (
	ShaderVertex ShaderStageKind = iota
	ShaderFragment
	ShaderCompute
	ShaderGeometry
	ShaderTessControl
	ShaderTessEvaluation
	ShaderRayGeneration
	ShaderClosestHit
	ShaderMiss
	ShaderAnyHit
	ShaderIntersection
)

func toVkShaderStage(k ShaderStageKind) vk.ShaderStageFlagBits {
	switch k {
	case ShaderFragment:
		return vk.ShaderStageFragmentBit
	case ShaderCompute:
		return vk.ShaderStageComputeBit
	case ShaderGeometry:
		return vk.ShaderStageGeometryBit
	case ShaderTessControl:
		return vk.ShaderStageTessellationControlBit
	case ShaderTessEvaluation:
		return vk.ShaderStageTessellationEvaluationBit
	case ShaderRayGeneration:
		return vk.ShaderStageRaygenBitKhr
	case ShaderClosestHit:
		return vk.ShaderStageClosestHitBitKhr
	case ShaderMiss:
		return vk.ShaderStageMissBitKhr
	case ShaderAnyHit:
		return vk.ShaderStageAnyHitBitKhr
	case ShaderIntersection:
		return vk.ShaderStageIntersectionBitKhr
	default:
		return vk.ShaderStageVertexBit
	}
}

// ShaderResourceBinding declares one (set, binding) a shader module reads or
// writes, the per-shader input to pipeline.go's resource_access aggregation
// (spec §4.E "implicit consumption before binds"). Distinct from
// descriptor.go's ShaderBindingDescriptor, which describes a descriptor set
// template slot (type, count, frame offset) rather than what one compiled
// shader module actually touches.
type ShaderResourceBinding struct {
	Set     uint32
	Binding uint32
	Access  AccessPolicies
}

// stagesForShaderStage maps a shader module's stage to the Stages bit the
// barrier synthesizer understands. Geometry and tessellation stages have no
// dedicated Stages bit (stages.go only names the stages the spec's
// scenarios exercise), so they fall back to StageVertexShader as the
// nearest pre-rasterization stage.
func stagesForShaderStage(k ShaderStageKind) Stages {
	switch k {
	case ShaderFragment:
		return StageFragmentShader
	case ShaderCompute:
		return StageComputeShader
	case ShaderRayGeneration, ShaderClosestHit, ShaderMiss, ShaderAnyHit, ShaderIntersection:
		return StageRayTracingShader
	default:
		return StageVertexShader
	}
}

// physicalShader is one compiled vk.ShaderModule plus its declared stage and
// entry point. Grounded on shader.go's CoreShader.LoadShaderModule, which
// did the same read-SPIR-V-bytes-and-create-module sequence for exactly two
// hardcoded stages; generalized to any stage and any number of modules.
type physicalShader struct {
	module     vk.ShaderModule
	stage      ShaderStageKind
	entryPoint string
	bindings   []ShaderResourceBinding
}

type shaderStore struct {
	device  vk.Device
	modules *arena[physicalShader]
}

func newShaderStore(device vk.Device) *shaderStore {
	return &shaderStore{device: device, modules: newArena[physicalShader](KindShader)}
}

// CreateShaderFromSPIRV loads a SPIR-V binary already compiled offline.
// Grounded directly on shader.go's LoadShaderModule (sliceUint32 +
// vk.CreateShaderModule). bindings declares the (set, binding) pairs this
// module reads/writes, feeding pipeline.go's resource_access aggregation;
// callers that never bind a descriptor resource from this module may omit it.
func (s *shaderStore) CreateShaderFromSPIRV(code []byte, stage ShaderStageKind, entryPoint string, bindings ...ShaderResourceBinding) (ShaderHandle, error) {
	if entryPoint == "" {
		entryPoint = "main"
	}
	if len(code)%4 != 0 {
		return ShaderHandle{}, newErrorf(InvalidShaderBinary, "SPIR-V binary length %d is not a multiple of 4", len(code))
	}
	var module vk.ShaderModule
	ret := vk.CreateShaderModule(s.device, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code)),
		PCode:    sliceUint32(code),
	}, nil, &module)
	if isError(ret) {
		return ShaderHandle{}, newErrorf(ShaderCompile, "shader module creation failed: %v", NewError(ret))
	}
	ps := physicalShader{module: module, stage: stage, entryPoint: entryPoint, bindings: bindings}
	return ShaderHandle{h: s.modules.allocateStatic(ps)}, nil
}

// CreateShaderFromFile reads a .spv file from disk, grounded on
// shader.go's ioutil.ReadFile-then-create-module flow in CoreShader.CreateProgram.
func (s *shaderStore) CreateShaderFromFile(path string, stage ShaderStageKind, bindings ...ShaderResourceBinding) (ShaderHandle, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ShaderHandle{}, newErrorf(InvalidInput, "reading shader file %q: %v", path, err)
	}
	return s.CreateShaderFromSPIRV(data, stage, "main", bindings...)
}

func (s *shaderStore) get(h ShaderHandle) *physicalShader {
	return s.modules.Get(h.h, 0)
}

func (s *shaderStore) Destroy(h ShaderHandle) {
	ps := s.get(h)
	if ps.module != vk.NullShaderModule {
		vk.DestroyShaderModule(s.device, ps.module, nil)
	}
}

// sliceUint32 reinterprets a SPIR-V byte buffer as the uint32 words
// vk.ShaderModuleCreateInfo.PCode expects. Grounded on the teacher's helper
// of the same name (originally in util.go).
func sliceUint32(data []byte) []uint32 {
	const wordSize = 4
	out := make([]uint32, len(data)/wordSize)
	for i := range out {
		o := i * wordSize
		out[i] = uint32(data[o]) | uint32(data[o+1])<<8 | uint32(data[o+2])<<16 | uint32(data[o+3])<<24
	}
	return out
}
