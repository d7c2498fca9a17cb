package ghal

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

func unsafePointer(p *vk.PipelineRenderingCreateInfo) unsafe.Pointer {
	return unsafe.Pointer(p)
}

// PushConstantRange declares one push-constant block a pipeline layout
// exposes to a stage set.
type PushConstantRange struct {
	Stages Stages
	Offset uint32
	Size   uint32
}

// PipelineLayoutDesc assembles the descriptor set templates and push
// constant ranges a pipeline layout binds, generalizing pipeline.go's
// BuildPipeline (which hardcoded an empty/"Primary" layout with no
// descriptor sets and no push constants) to an arbitrary combination.
type PipelineLayoutDesc struct {
	SetTemplates []DescriptorSetTemplateHandle
	PushConstants []PushConstantRange
}

type physicalPipelineLayout struct {
	layout vk.PipelineLayout
}

// RasterState configures the fixed-function raster stage, adapted from
// pipeline.go's PipelineBuilder fields (rasterizer, multisampling,
// colorBlendAttachment) which hardcoded fill/no-cull/no-blend; here each is
// a caller-supplied field instead of a baked-in "default triangle pipeline."
type RasterState struct {
	Topology       vk.PrimitiveTopology
	PolygonMode    vk.PolygonMode
	CullMode       vk.CullModeFlagBits
	FrontFace      vk.FrontFace
	DepthTestEnable  bool
	DepthWriteEnable bool
	BlendEnable    bool
}

func defaultRasterState() RasterState {
	return RasterState{
		Topology:    vk.PrimitiveTopologyTriangleList,
		PolygonMode: vk.PolygonModeFill,
		CullMode:    vk.CullModeBackBit,
		FrontFace:   vk.FrontFaceCounterClockwise,
		DepthTestEnable:  true,
		DepthWriteEnable: true,
	}
}

// RasterPipelineDesc describes a graphics pipeline built against dynamic
// rendering (REDESIGN FLAG: no vk.RenderPass/vk.Framebuffer object, per
// VK_KHR_dynamic_rendering) instead of pipeline.go's single hardcoded
// "Primary" render-pass-bound pipeline.
type RasterPipelineDesc struct {
	Layout       PipelineLayoutHandle
	VertexShader ShaderHandle
	FragmentShader ShaderHandle
	ColorFormat  Format
	DepthFormat  Format
	HasDepth     bool
	State        RasterState
}

// ComputePipelineDesc describes a single-stage compute pipeline, new
// relative to the teacher (pipeline.go only ever built raster pipelines).
type ComputePipelineDesc struct {
	Layout PipelineLayoutHandle
	Shader ShaderHandle
}

// RayTracingShaderGroup associates one shader-binding-table record with its
// role (general/hit/miss) and the shader(s) backing it, grounded on
// original_source's shader-group-by-role model rather than on anything in
// the teacher, which never built a ray-tracing pipeline.
type RayTracingShaderGroup struct {
	General      ShaderHandle // raygen or miss
	ClosestHit   ShaderHandle
	AnyHit       ShaderHandle
	Intersection ShaderHandle
}

type RayTracingPipelineDesc struct {
	Layout          PipelineLayoutHandle
	RayGeneration   ShaderHandle
	Miss            []ShaderHandle
	HitGroups       []RayTracingShaderGroup
	MaxRecursionDepth uint32
}

// resourceAccessKey names one (set, binding) slot a pipeline's shaders
// declared, the key of the resource_access table spec §4.E describes.
type resourceAccessKey struct {
	Set     uint32
	Binding uint32
}

// shaderResourceAccess is the aggregated (stages, access) a pipeline's
// resource_access table associates with one resourceAccessKey, merged across
// every shader stage in the pipeline that declared it.
type shaderResourceAccess struct {
	Stages Stages
	Access AccessPolicies
}

// aggregateResourceAccess builds a pipeline's resource_access table by
// merging every bound shader's declared ShaderResourceBindings, per spec
// §4.E. recorder.go's BindDescriptorSet consumes this to synthesize the
// implicit-consumption-before-binds barriers the teacher never needed (it
// had no descriptor-driven resource binding at all).
func aggregateResourceAccess(shaders ...*physicalShader) map[resourceAccessKey]shaderResourceAccess {
	out := make(map[resourceAccessKey]shaderResourceAccess)
	for _, sh := range shaders {
		if sh == nil {
			continue
		}
		stage := stagesForShaderStage(sh.stage)
		for _, b := range sh.bindings {
			key := resourceAccessKey{Set: b.Set, Binding: b.Binding}
			entry := out[key]
			entry.Stages |= stage
			entry.Access |= b.Access
			out[key] = entry
		}
	}
	return out
}

type physicalPipeline struct {
	pipeline       vk.Pipeline
	bindPoint      vk.PipelineBindPoint
	groupCount     int // ray-tracing shader groups, for shader-binding-table sizing
	resourceAccess map[resourceAccessKey]shaderResourceAccess
}

type pipelineManager struct {
	device    vk.Device
	shaders   *shaderStore
	descTmpl  *arena[descriptorSetTemplate]
	layouts   *arena[physicalPipelineLayout]
	pipelines *arena[physicalPipeline]
}

func newPipelineManager(device vk.Device, shaders *shaderStore, descTmpl *arena[descriptorSetTemplate]) *pipelineManager {
	return &pipelineManager{
		device:    device,
		shaders:   shaders,
		descTmpl:  descTmpl,
		layouts:   newArena[physicalPipelineLayout](KindPipelineLayout),
		pipelines: newArena[physicalPipeline](KindPipeline),
	}
}

// CreatePipelineLayout builds a vk.PipelineLayout from the given descriptor
// set templates and push constant ranges. Grounded on pipeline.go's
// NewCorePipeline, which hardcoded a single null layout ("Primary"); this
// generalizes it into the caller-driven construction spec 4.E requires
// (REDESIGN FLAG).
func (m *pipelineManager) CreatePipelineLayout(d PipelineLayoutDesc) (PipelineLayoutHandle, error) {
	vkLayouts := make([]vk.DescriptorSetLayout, len(d.SetTemplates))
	for i, t := range d.SetTemplates {
		vkLayouts[i] = m.descTmpl.Get(t.h, 0).layout
	}
	vkRanges := make([]vk.PushConstantRange, len(d.PushConstants))
	for i, r := range d.PushConstants {
		vkRanges[i] = vk.PushConstantRange{
			StageFlags: vk.ShaderStageFlags(allProgrammableShaderStageFlags()),
			Offset:     r.Offset,
			Size:       r.Size,
		}
	}
	var layout vk.PipelineLayout
	ret := vk.CreatePipelineLayout(m.device, &vk.PipelineLayoutCreateInfo{
		SType:                  vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount:         uint32(len(vkLayouts)),
		PSetLayouts:            vkLayouts,
		PushConstantRangeCount: uint32(len(vkRanges)),
		PPushConstantRanges:    vkRanges,
	}, nil, &layout)
	if isError(ret) {
		return PipelineLayoutHandle{}, NewError(ret)
	}
	return PipelineLayoutHandle{h: m.layouts.allocateStatic(physicalPipelineLayout{layout: layout})}, nil
}

func stageInfo(module vk.ShaderModule, stage vk.ShaderStageFlagBits, entry string) vk.PipelineShaderStageCreateInfo {
	return vk.PipelineShaderStageCreateInfo{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  stage,
		Module: module,
		PName:  safeString(entry),
	}
}

// CreateRasterPipeline builds a graphics pipeline for dynamic rendering.
// Adapted from pipeline.go's PipelineBuilder/BuildPipeline, which
// constructed the same fixed-function stage chain against an explicit
// vk.RenderPass; PNext here carries a vk.PipelineRenderingCreateInfoKHR
// instead, per the REDESIGN FLAG dropping render pass objects.
func (m *pipelineManager) CreateRasterPipeline(d RasterPipelineDesc) (PipelineHandle, error) {
	state := d.State
	if state.Topology == 0 && state.PolygonMode == 0 {
		state = defaultRasterState()
	}

	vs := m.shaders.get(d.VertexShader)
	fs := m.shaders.get(d.FragmentShader)
	stages := []vk.PipelineShaderStageCreateInfo{
		stageInfo(vs.module, vk.ShaderStageVertexBit, vs.entryPoint),
		stageInfo(fs.module, vk.ShaderStageFragmentBit, fs.entryPoint),
	}

	vertexInput := vk.PipelineVertexInputStateCreateInfo{SType: vk.StructureTypePipelineVertexInputStateCreateInfo}
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: state.Topology,
	}
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}
	raster := vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: state.PolygonMode,
		CullMode:    vk.CullModeFlags(state.CullMode),
		FrontFace:   state.FrontFace,
		LineWidth:   1.0,
	}
	multisample := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
		MinSampleShading:     1.0,
	}
	blendAttachment := vk.PipelineColorBlendAttachmentState{
		ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit | vk.ColorComponentGBit | vk.ColorComponentBBit | vk.ColorComponentABit),
		BlendEnable:    vk.Bool32(boolToUint(state.BlendEnable)),
	}
	blendState := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{blendAttachment},
	}
	depthState := vk.PipelineDepthStencilStateCreateInfo{
		SType:            vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:  vk.Bool32(boolToUint(state.DepthTestEnable && d.HasDepth)),
		DepthWriteEnable: vk.Bool32(boolToUint(state.DepthWriteEnable && d.HasDepth)),
		DepthCompareOp:   vk.CompareOpGreaterOrEqual, // reversed-Z
	}
	dynamicStates := []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}
	dynamicState := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	colorFormat := toVkFormat(d.ColorFormat)
	renderingInfo := vk.PipelineRenderingCreateInfo{
		SType:                 vk.StructureTypePipelineRenderingCreateInfo,
		ColorAttachmentCount:  1,
		PColorAttachmentFormats: []vk.Format{colorFormat},
	}
	if d.HasDepth {
		renderingInfo.DepthAttachmentFormat = toVkFormat(d.DepthFormat)
	}

	layout := m.layouts.Get(d.Layout.h, 0).layout

	info := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		PNext:               unsafePointer(&renderingInfo),
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &raster,
		PMultisampleState:   &multisample,
		PColorBlendState:    &blendState,
		PDepthStencilState:  &depthState,
		PDynamicState:       &dynamicState,
		Layout:              layout,
	}

	pipelines := make([]vk.Pipeline, 1)
	ret := vk.CreateGraphicsPipelines(m.device, vk.NullPipelineCache, 1, []vk.GraphicsPipelineCreateInfo{info}, nil, pipelines)
	if isError(ret) {
		return PipelineHandle{}, NewError(ret)
	}
	pp := physicalPipeline{
		pipeline:       pipelines[0],
		bindPoint:      vk.PipelineBindPointGraphics,
		resourceAccess: aggregateResourceAccess(vs, fs),
	}
	return PipelineHandle{h: m.pipelines.allocateStatic(pp)}, nil
}

// CreateComputePipeline builds a single-stage compute pipeline. New
// relative to the teacher; grounded on the same vk.CreateComputePipelines
// shape the Vulkan API always takes, following pipeline.go's style of
// setting every vk.*CreateInfo field explicitly rather than relying on
// zero values for anything load-bearing.
func (m *pipelineManager) CreateComputePipeline(d ComputePipelineDesc) (PipelineHandle, error) {
	shader := m.shaders.get(d.Shader)
	layout := m.layouts.Get(d.Layout.h, 0).layout
	info := vk.ComputePipelineCreateInfo{
		SType:  vk.StructureTypeComputePipelineCreateInfo,
		Stage:  stageInfo(shader.module, vk.ShaderStageComputeBit, shader.entryPoint),
		Layout: layout,
	}
	pipelines := make([]vk.Pipeline, 1)
	ret := vk.CreateComputePipelines(m.device, vk.NullPipelineCache, 1, []vk.ComputePipelineCreateInfo{info}, nil, pipelines)
	if isError(ret) {
		return PipelineHandle{}, NewError(ret)
	}
	pp := physicalPipeline{
		pipeline:       pipelines[0],
		bindPoint:      vk.PipelineBindPointCompute,
		resourceAccess: aggregateResourceAccess(shader),
	}
	return PipelineHandle{h: m.pipelines.allocateStatic(pp)}, nil
}

// CreateRayTracingPipeline builds a ray-tracing pipeline with one shader
// group per RayGeneration/Miss/HitGroups entry, in that order. The recorder
// does not build a shader-binding table; InstanceEntry.SBTOffset values
// (accel.go) are set by the caller.
func (m *pipelineManager) CreateRayTracingPipeline(d RayTracingPipelineDesc) (PipelineHandle, error) {
	var stages []vk.PipelineShaderStageCreateInfo
	var groups []vk.RayTracingShaderGroupCreateInfoKHR
	var allShaders []*physicalShader

	rg := m.shaders.get(d.RayGeneration)
	allShaders = append(allShaders, rg)
	stages = append(stages, stageInfo(rg.module, vk.ShaderStageRaygenBitKhr, rg.entryPoint))
	groups = append(groups, vk.RayTracingShaderGroupCreateInfoKHR{
		SType:              vk.StructureTypeRayTracingShaderGroupCreateInfoKhr,
		Type:               vk.RayTracingShaderGroupTypeGeneralKhr,
		GeneralShader:      uint32(len(stages) - 1),
		ClosestHitShader:   vk.ShaderUnusedKhr,
		AnyHitShader:       vk.ShaderUnusedKhr,
		IntersectionShader: vk.ShaderUnusedKhr,
	})

	for _, miss := range d.Miss {
		ms := m.shaders.get(miss)
		allShaders = append(allShaders, ms)
		stages = append(stages, stageInfo(ms.module, vk.ShaderStageMissBitKhr, ms.entryPoint))
		groups = append(groups, vk.RayTracingShaderGroupCreateInfoKHR{
			SType:              vk.StructureTypeRayTracingShaderGroupCreateInfoKhr,
			Type:               vk.RayTracingShaderGroupTypeGeneralKhr,
			GeneralShader:      uint32(len(stages) - 1),
			ClosestHitShader:   vk.ShaderUnusedKhr,
			AnyHitShader:       vk.ShaderUnusedKhr,
			IntersectionShader: vk.ShaderUnusedKhr,
		})
	}

	for _, hit := range d.HitGroups {
		group := vk.RayTracingShaderGroupCreateInfoKHR{
			SType:              vk.StructureTypeRayTracingShaderGroupCreateInfoKhr,
			Type:               vk.RayTracingShaderGroupTypeTrianglesHitGroupKhr,
			GeneralShader:      vk.ShaderUnusedKhr,
			ClosestHitShader:   vk.ShaderUnusedKhr,
			AnyHitShader:       vk.ShaderUnusedKhr,
			IntersectionShader: vk.ShaderUnusedKhr,
		}
		if hit.ClosestHit.h.Valid() {
			ch := m.shaders.get(hit.ClosestHit)
			allShaders = append(allShaders, ch)
			stages = append(stages, stageInfo(ch.module, vk.ShaderStageClosestHitBitKhr, ch.entryPoint))
			group.ClosestHitShader = uint32(len(stages) - 1)
		}
		if hit.AnyHit.h.Valid() {
			ah := m.shaders.get(hit.AnyHit)
			allShaders = append(allShaders, ah)
			stages = append(stages, stageInfo(ah.module, vk.ShaderStageAnyHitBitKhr, ah.entryPoint))
			group.AnyHitShader = uint32(len(stages) - 1)
		}
		if hit.Intersection.h.Valid() {
			is := m.shaders.get(hit.Intersection)
			allShaders = append(allShaders, is)
			stages = append(stages, stageInfo(is.module, vk.ShaderStageIntersectionBitKhr, is.entryPoint))
			group.IntersectionShader = uint32(len(stages) - 1)
			group.Type = vk.RayTracingShaderGroupTypeProceduralHitGroupKhr
		}
		groups = append(groups, group)
	}

	layout := m.layouts.Get(d.Layout.h, 0).layout
	maxDepth := d.MaxRecursionDepth
	if maxDepth == 0 {
		maxDepth = 1
	}
	info := vk.RayTracingPipelineCreateInfoKHR{
		SType:                     vk.StructureTypeRayTracingPipelineCreateInfoKhr,
		StageCount:                uint32(len(stages)),
		PStages:                   stages,
		GroupCount:                uint32(len(groups)),
		PGroups:                   groups,
		MaxPipelineRayRecursionDepth: maxDepth,
		Layout:                    layout,
	}
	pipelines := make([]vk.Pipeline, 1)
	ret := vk.CreateRayTracingPipelines(m.device, vk.NullDeferredOperationKhr, vk.NullPipelineCache, 1,
		[]vk.RayTracingPipelineCreateInfoKHR{info}, nil, pipelines)
	if isError(ret) {
		return PipelineHandle{}, NewError(ret)
	}
	pp := physicalPipeline{
		pipeline:       pipelines[0],
		bindPoint:      vk.PipelineBindPointRayTracingKhr,
		groupCount:     len(groups),
		resourceAccess: aggregateResourceAccess(allShaders...),
	}
	return PipelineHandle{h: m.pipelines.allocateStatic(pp)}, nil
}

func (m *pipelineManager) get(h PipelineHandle) *physicalPipeline {
	return m.pipelines.Get(h.h, 0)
}

func (m *pipelineManager) DestroyPipeline(h PipelineHandle) {
	pp := m.get(h)
	if pp.pipeline != vk.NullPipeline {
		vk.DestroyPipeline(m.device, pp.pipeline, nil)
	}
}

func (m *pipelineManager) DestroyLayout(h PipelineLayoutHandle) {
	l := m.layouts.Get(h.h, 0)
	if l.layout != vk.NullPipelineLayout {
		vk.DestroyPipelineLayout(m.device, l.layout, nil)
	}
}

func boolToUint(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
