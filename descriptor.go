package ghal

import vk "github.com/vulkan-go/vulkan"

// DescriptorType enumerates the binding kinds a descriptor set template can
// declare, grounded on buffers.go's NewCoreUniformBuffer (which hardcoded
// exactly one: DescriptorTypeUniformBuffer) generalized to the full set the
// spec's descriptor manager (4.C) needs.
type DescriptorType int

const (
	DescriptorUniformBuffer DescriptorType = iota
	DescriptorStorageBuffer
	DescriptorSampledImage
	DescriptorStorageImage
	DescriptorSampler
	DescriptorCombinedImageSampler
	DescriptorAccelerationStructure
)

func toVkDescriptorType(t DescriptorType) vk.DescriptorType {
	switch t {
	case DescriptorStorageBuffer:
		return vk.DescriptorTypeStorageBuffer
	case DescriptorSampledImage:
		return vk.DescriptorTypeSampledImage
	case DescriptorStorageImage:
		return vk.DescriptorTypeStorageImage
	case DescriptorSampler:
		return vk.DescriptorTypeSampler
	case DescriptorCombinedImageSampler:
		return vk.DescriptorTypeCombinedImageSampler
	case DescriptorAccelerationStructure:
		return vk.DescriptorTypeAccelerationStructureKhr
	default:
		return vk.DescriptorTypeUniformBuffer
	}
}

// ShaderBindingDescriptor declares one binding slot in a descriptor set
// template: its type, shader-visible stages, array count, and its
// frame_offset (spec §4.C) — which physical slot of a buffered resource
// frame N's clone should point at, relative to N itself. An offset of 0
// always resolves to the current frame's own slot (degenerating to a fixed
// slot 0 for a STATIC resource, since its chain depth is 1); a nonzero
// offset is how the ping-pong compute scenario (§8 scenario 2) reads the
// previous frame's output while writing the current one.
type ShaderBindingDescriptor struct {
	Binding      uint32
	Type         DescriptorType
	Count        uint32
	Stages       Stages
	FrameOffset  int
	ImmutableSamplers []SamplerHandle
}

// frameOffsetSlot resolves (frame - offset) mod n, per spec §4.C's
// frame_offset formula, handling the negative intermediate Go's % leaves
// unreduced.
func frameOffsetSlot(frame, offset, n int) int {
	if n <= 0 {
		return 0
	}
	s := (frame - offset) % n
	if s < 0 {
		s += n
	}
	return s
}

// allProgrammableShaderStageFlags returns every shader stage bit this
// package's pipelines can target, used to widen push-constant ranges per
// spec §4.E ("push-constant ranges are widened to be visible across all
// programmable stages") rather than trusting the caller's declared Stages.
func allProgrammableShaderStageFlags() vk.ShaderStageFlagBits {
	return vk.ShaderStageVertexBit | vk.ShaderStageFragmentBit | vk.ShaderStageComputeBit |
		vk.ShaderStageGeometryBit | vk.ShaderStageTessellationControlBit | vk.ShaderStageTessellationEvaluationBit |
		vk.ShaderStageRaygenBitKhr | vk.ShaderStageClosestHitBitKhr | vk.ShaderStageMissBitKhr |
		vk.ShaderStageAnyHitBitKhr | vk.ShaderStageIntersectionBitKhr
}

func toVkShaderStageFlags(s Stages) vk.ShaderStageFlagBits {
	var f vk.ShaderStageFlagBits
	if s.Has(StageVertexShader) {
		f |= vk.ShaderStageVertexBit
	}
	if s.Has(StageFragmentShader) {
		f |= vk.ShaderStageFragmentBit
	}
	if s.Has(StageComputeShader) {
		f |= vk.ShaderStageComputeBit
	}
	if s.Has(StageRayTracingShader) {
		f |= vk.ShaderStageRaygenBitKhr | vk.ShaderStageClosestHitBitKhr | vk.ShaderStageMissBitKhr | vk.ShaderStageIntersectionBitKhr | vk.ShaderStageAnyHitBitKhr
	}
	return f
}

// descriptorSetTemplate is the physical vk.DescriptorSetLayout plus its
// binding declarations, one per handle returned by CreateDescriptorSetTemplate.
type descriptorSetTemplate struct {
	layout   vk.DescriptorSetLayout
	bindings []ShaderBindingDescriptor
}

// boundResource is what one binding slot in one cloned descriptor set
// currently points at — a back-map entry in both directions per spec 4.C
// ("bidirectional back-maps {resource -> bindings} and {set,binding ->
// resources}").
type boundResource struct {
	buffer BufferHandle
	image  ImageHandle
	sampler SamplerHandle
}

// descriptorSet is one per-frame clone of a template: its own vk.DescriptorSet
// plus the live binding table the write-resolution pass and the back-maps
// read from. Each binding slot holds one boundResource per array element
// (spec §4.C "Arrays"), so a binding declared with Count > 1 can have its
// elements written independently.
type descriptorSet struct {
	template DescriptorSetTemplateHandle
	sets     []vk.DescriptorSet   // one per buffered frame, cloned per spec 4.C
	bindings [][][]boundResource  // [frame][binding][arrayElement]
}

type descriptorManager struct {
	device    vk.Device
	pool      vk.DescriptorPool
	depth     int
	templates *arena[descriptorSetTemplate]
	sets      *arena[descriptorSet]

	// bindingSlots backs every DescriptorSetBindingHandle returned by
	// CreateDescriptorBindingArray, letting a caller hold onto one array
	// element's identity and rewrite it later without re-specifying its
	// (set, binding, index) triple.
	bindingSlots *arena[descriptorBindingSlot]

	// resourceToBindings maps a resource handle to every (set, binding) that
	// currently references it, so ResizeBuffer/ResizeImage's rewrite pass
	// (spec §4.A/4.C) can find every stale write without scanning all sets.
	resourceToBindings map[Handle][]descriptorSetBindingRef
}

// boundResourceKind distinguishes which Write* call populated a back-map
// entry, so RewriteBindingsFor (called after a resize) knows which one to
// re-issue for a given resource handle.
type boundResourceKind int

const (
	boundKindBuffer boundResourceKind = iota
	boundKindImage
)

type descriptorSetBindingRef struct {
	set          DescriptorSetHandle
	binding      uint32
	arrayElement uint32
	kind         boundResourceKind
	sampler      SamplerHandle // only meaningful when kind == boundKindImage
}

// descriptorBindingSlot is the physical record behind a
// DescriptorSetBindingHandle: one independently addressable array element of
// one binding in one descriptor set, per spec §4.C "Arrays" ("each array
// element can be rebound independently of its siblings").
type descriptorBindingSlot struct {
	set          DescriptorSetHandle
	binding      uint32
	arrayElement uint32
}

func newDescriptorManager(device vk.Device, depth int, maxSets uint32) (*descriptorManager, error) {
	poolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: maxSets * 4},
		{Type: vk.DescriptorTypeStorageBuffer, DescriptorCount: maxSets * 4},
		{Type: vk.DescriptorTypeSampledImage, DescriptorCount: maxSets * 4},
		{Type: vk.DescriptorTypeStorageImage, DescriptorCount: maxSets * 4},
		{Type: vk.DescriptorTypeSampler, DescriptorCount: maxSets * 4},
		{Type: vk.DescriptorTypeCombinedImageSampler, DescriptorCount: maxSets * 4},
	}
	var pool vk.DescriptorPool
	ret := vk.CreateDescriptorPool(device, &vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       maxSets * uint32(depth),
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}, nil, &pool)
	if isError(ret) {
		return nil, NewError(ret)
	}
	return &descriptorManager{
		device:             device,
		pool:               pool,
		depth:              depth,
		templates:          newArena[descriptorSetTemplate](KindDescriptorSetTemplate),
		sets:               newArena[descriptorSet](KindDescriptorSet),
		bindingSlots:       newArena[descriptorBindingSlot](KindDescriptorSetBinding),
		resourceToBindings: make(map[Handle][]descriptorSetBindingRef),
	}, nil
}

// CreateDescriptorBindingArray registers count independently addressable
// array elements for binding in set, returning one DescriptorSetBindingHandle
// per element so WriteBufferAt/WriteImageAt can rebind a single array slot
// without disturbing its siblings, per spec §4.C "Arrays."
func (m *descriptorManager) CreateDescriptorBindingArray(set DescriptorSetHandle, binding uint32, count uint32) []DescriptorSetBindingHandle {
	handles := make([]DescriptorSetBindingHandle, count)
	for i := uint32(0); i < count; i++ {
		slot := descriptorBindingSlot{set: set, binding: binding, arrayElement: i}
		handles[i] = DescriptorSetBindingHandle{h: m.bindingSlots.allocateStatic(slot)}
	}
	return handles
}

// CreateDescriptorSetTemplate declares a reusable layout of binding slots.
// Grounded on buffers.go's ubo_create/ubo_layout block, generalized from
// one fixed binding to an arbitrary slice.
func (m *descriptorManager) CreateDescriptorSetTemplate(bindings []ShaderBindingDescriptor) (DescriptorSetTemplateHandle, error) {
	vkBindings := make([]vk.DescriptorSetLayoutBinding, len(bindings))
	for i, b := range bindings {
		vkBindings[i] = vk.DescriptorSetLayoutBinding{
			Binding:         b.Binding,
			DescriptorType:  toVkDescriptorType(b.Type),
			DescriptorCount: maxUint32(b.Count, 1),
			StageFlags:      vk.ShaderStageFlags(toVkShaderStageFlags(b.Stages)),
		}
	}
	var layout vk.DescriptorSetLayout
	ret := vk.CreateDescriptorSetLayout(m.device, &vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(vkBindings)),
		PBindings:    vkBindings,
	}, nil, &layout)
	if isError(ret) {
		return DescriptorSetTemplateHandle{}, NewError(ret)
	}
	tmpl := descriptorSetTemplate{layout: layout, bindings: bindings}
	return DescriptorSetTemplateHandle{h: m.templates.allocateStatic(tmpl)}, nil
}

func maxUint32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

// CreateDescriptorSet clones depth copies of template, one per buffered
// frame, per spec 4.C "per-frame descriptor set cloning."
func (m *descriptorManager) CreateDescriptorSet(h DescriptorSetTemplateHandle) (DescriptorSetHandle, error) {
	tmpl := m.templates.Get(h.h, 0)
	layouts := make([]vk.DescriptorSetLayout, m.depth)
	for i := range layouts {
		layouts[i] = tmpl.layout
	}
	sets := make([]vk.DescriptorSet, m.depth)
	ret := vk.AllocateDescriptorSets(m.device, &vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     m.pool,
		DescriptorSetCount: uint32(m.depth),
		PSetLayouts:        layouts,
	}, sets)
	if isError(ret) {
		return DescriptorSetHandle{}, NewError(ret)
	}

	bindings := make([][][]boundResource, m.depth)
	for i := range bindings {
		bindings[i] = make([][]boundResource, len(tmpl.bindings))
		for j, b := range tmpl.bindings {
			bindings[i][j] = make([]boundResource, maxUint32(b.Count, 1))
		}
	}
	ds := descriptorSet{template: h, sets: sets, bindings: bindings}
	return DescriptorSetHandle{h: m.sets.allocateStatic(ds)}, nil
}

// WriteBuffer points binding's array element 0 in every buffered frame's
// clone at handle, resolving frame_offset per spec 4.C: frame's clone
// targets handle's chain slot (frame - desc.FrameOffset) mod depth.
func (m *descriptorManager) WriteBuffer(setH DescriptorSetHandle, binding uint32, handle BufferHandle, store *resourceStore) error {
	return m.writeBufferElement(setH, binding, 0, handle, store)
}

// WriteBufferAt writes handle into the single array element h identifies,
// leaving every other element of the same binding untouched, per spec §4.C
// "Arrays."
func (m *descriptorManager) WriteBufferAt(h DescriptorSetBindingHandle, handle BufferHandle, store *resourceStore) error {
	slot := m.bindingSlots.Get(h.h, 0)
	return m.writeBufferElement(slot.set, slot.binding, slot.arrayElement, handle, store)
}

func (m *descriptorManager) writeBufferElement(setH DescriptorSetHandle, binding uint32, arrayElement uint32, handle BufferHandle, store *resourceStore) error {
	set := m.sets.Get(setH.h, 0)
	tmpl := m.templates.Get(set.template.h, 0)
	var desc ShaderBindingDescriptor
	for _, b := range tmpl.bindings {
		if b.Binding == binding {
			desc = b
			break
		}
	}

	for frame := 0; frame < m.depth; frame++ {
		slot := frameOffsetSlot(frame, desc.FrameOffset, m.depth)
		pb := store.buffers.Get(handle.h, slot)
		size := vk.DeviceSize(vk.WholeSize)
		if pb.size == 0 {
			size = 0
		}
		bufferInfo := vk.DescriptorBufferInfo{Buffer: pb.buffer, Offset: 0, Range: size}
		vk.UpdateDescriptorSets(m.device, 1, []vk.WriteDescriptorSet{{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set.sets[frame],
			DstBinding:      binding,
			DstArrayElement: arrayElement,
			DescriptorCount: 1,
			DescriptorType:  toVkDescriptorType(desc.Type),
			PBufferInfo:     []vk.DescriptorBufferInfo{bufferInfo},
		}}, 0, nil)
		set.bindings[frame][bindingIndex(tmpl, binding)][arrayElement] = boundResource{buffer: handle}
	}

	ref := descriptorSetBindingRef{set: setH, binding: binding, arrayElement: arrayElement, kind: boundKindBuffer}
	m.resourceToBindings[handle.h] = append(m.resourceToBindings[handle.h], ref)
	return nil
}

// WriteImage points binding's array element 0 in every buffered frame's
// clone at an image (and optionally a sampler, for CombinedImageSampler
// bindings), resolving frame_offset the same (frame - offset) mod depth
// formula WriteBuffer does. Per spec §4.C, a binding that declared
// immutable samplers treats a sampler-descriptor write as a no-op.
func (m *descriptorManager) WriteImage(setH DescriptorSetHandle, binding uint32, handle ImageHandle, sampler SamplerHandle, store *resourceStore) error {
	return m.writeImageElement(setH, binding, 0, handle, sampler, store)
}

// WriteImageAt writes handle/sampler into the single array element h
// identifies, per spec §4.C "Arrays."
func (m *descriptorManager) WriteImageAt(h DescriptorSetBindingHandle, handle ImageHandle, sampler SamplerHandle, store *resourceStore) error {
	slot := m.bindingSlots.Get(h.h, 0)
	return m.writeImageElement(slot.set, slot.binding, slot.arrayElement, handle, sampler, store)
}

func (m *descriptorManager) writeImageElement(setH DescriptorSetHandle, binding uint32, arrayElement uint32, handle ImageHandle, sampler SamplerHandle, store *resourceStore) error {
	set := m.sets.Get(setH.h, 0)
	tmpl := m.templates.Get(set.template.h, 0)
	var desc ShaderBindingDescriptor
	for _, b := range tmpl.bindings {
		if b.Binding == binding {
			desc = b
			break
		}
	}
	if desc.Type == DescriptorSampler && len(desc.ImmutableSamplers) > 0 {
		return nil
	}

	var vkSampler vk.Sampler
	if sampler.h.Valid() {
		vkSampler = store.samplers.Get(sampler.h, 0).sampler
	}
	layout := vk.ImageLayoutShaderReadOnlyOptimal
	if desc.Type == DescriptorStorageImage {
		layout = vk.ImageLayoutGeneral
	}

	for frame := 0; frame < m.depth; frame++ {
		slot := frameOffsetSlot(frame, desc.FrameOffset, m.depth)
		pi := store.images.Get(handle.h, slot)
		imageInfo := vk.DescriptorImageInfo{Sampler: vkSampler, ImageView: pi.view, ImageLayout: layout}
		vk.UpdateDescriptorSets(m.device, 1, []vk.WriteDescriptorSet{{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set.sets[frame],
			DstBinding:      binding,
			DstArrayElement: arrayElement,
			DescriptorCount: 1,
			DescriptorType:  toVkDescriptorType(desc.Type),
			PImageInfo:      []vk.DescriptorImageInfo{imageInfo},
		}}, 0, nil)
		set.bindings[frame][bindingIndex(tmpl, binding)][arrayElement] = boundResource{image: handle, sampler: sampler}
	}

	ref := descriptorSetBindingRef{set: setH, binding: binding, arrayElement: arrayElement, kind: boundKindImage, sampler: sampler}
	m.resourceToBindings[handle.h] = append(m.resourceToBindings[handle.h], ref)
	return nil
}

// ResourceAt returns whatever resource is currently bound at array element 0
// of (binding) in setH's frame-th clone, the lookup BindDescriptorSet uses
// to resolve a pipeline's resource_access table into concrete handles for
// implicit consumption (spec §4.E/§4.F). Array bindings beyond element 0 are
// not auto-consumed; a caller driving a binding array issues its own
// ConsumeBuffer/ConsumeImage calls for the elements it touches.
func (m *descriptorManager) ResourceAt(setH DescriptorSetHandle, binding uint32, frame int) boundResource {
	set := m.sets.Get(setH.h, 0)
	tmpl := m.templates.Get(set.template.h, 0)
	return set.bindings[frame][bindingIndex(tmpl, binding)][0]
}

func bindingIndex(tmpl *descriptorSetTemplate, binding uint32) int {
	for i, b := range tmpl.bindings {
		if b.Binding == binding {
			return i
		}
	}
	return 0
}

// RewriteBindingsFor re-issues every descriptor write that targets handle,
// called after ResizeBuffer/ResizeImage replace a resource's physical
// storage so no descriptor set is left pointing at a destroyed vk.Buffer or
// vk.ImageView (spec 4.A/4.C resize contract). The resize always targets the
// chain's own handle in place, so the same Handle (carrying its Kind) is
// reused to re-derive the typed wrapper the matching Write* call needs.
func (m *descriptorManager) RewriteBindingsFor(handle Handle, store *resourceStore) error {
	for _, ref := range m.resourceToBindings[handle] {
		var err error
		switch ref.kind {
		case boundKindBuffer:
			err = m.writeBufferElement(ref.set, ref.binding, ref.arrayElement, BufferHandle{h: handle}, store)
		case boundKindImage:
			err = m.writeImageElement(ref.set, ref.binding, ref.arrayElement, ImageHandle{h: handle}, ref.sampler, store)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (m *descriptorManager) Destroy() {
	vk.DestroyDescriptorPool(m.device, m.pool, nil)
}
