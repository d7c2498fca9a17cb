package ghal

// Stages is a pipeline-stage bitmask, the public-API shape of
// VK_KHR_synchronization2's Stages2. Grounded on the teacher's direct use of
// vk.PipelineStageFlags (renderpass.go's subpass dependencies, core.go's
// waitDstStageMask); kept as a local type here so the recorder can compute
// target states before translating to whatever sync1/sync2 structs the
// pinned vulkan-go/vulkan binding exposes at record time.
type Stages uint64

const (
	StageTopOfPipe Stages = 1 << iota
	StageTransfer
	StageVertexInput
	StageVertexShader
	StageFragmentShader
	StageEarlyFragmentTests
	StageLateFragmentTests
	StageColorAttachmentOutput
	StageComputeShader
	StageRayTracingShader
	StageAccelerationStructureBuild
	StageAllCommands
	StageBottomOfPipe
)

func (s Stages) Has(o Stages) bool { return s&o != 0 }

// AccessPolicies is a memory-access bitmask, the (stage-independent) half of
// a Consumption.
type AccessPolicies uint32

const (
	AccessRead AccessPolicies = 1 << iota
	AccessWrite
)

func (a AccessPolicies) Has(o AccessPolicies) bool { return a&o != 0 }

// Layouts enumerates the image layouts the recorder transitions between.
// Grounded on the teacher's explicit vk.ImageLayout* usage in swapchain.go
// and renderpass.go (Undefined, ColorAttachmentOptimal,
// DepthStencilAttachmentOptimal, PresentSrc).
type Layouts int

const (
	LayoutUndefined Layouts = iota
	LayoutGeneral
	LayoutColorAttachment
	LayoutDepthStencilAttachment
	LayoutShaderReadOnly
	LayoutTransferSrc
	LayoutTransferDst
	LayoutPresentSrc
)

// Consumption declares, at the call site, how a recording intends to touch
// a resource: which pipeline stages read/write it, with what access, and in
// what layout (images only; ignored for buffers). This is the single input
// the barrier synthesizer in barrier.go consumes, per spec §4.F.
type Consumption struct {
	Handle Handle
	Stages Stages
	Access AccessPolicies
	Layout Layouts // meaningless for buffers
}

// TransitionState is the last-seen (stage, access, layout) triple for one
// physical resource. The device retains one TransitionState per physical
// resource across recordings (spec §3 "Resource state"); a recording starts
// from a snapshot and commits its local copy back at execute().
type TransitionState struct {
	Stages Stages
	Access AccessPolicies
	Layout Layouts
	// touched is false until the first consumption; the first barrier for a
	// resource uses "undefined"/"none" as its source instead of this state.
	touched bool
}

// equal reports whether two states require no barrier between them.
func (t TransitionState) equal(o TransitionState) bool {
	return t.Stages == o.Stages && t.Access == o.Access && t.Layout == o.Layout
}

// stateForConsumption computes the target TransitionState implied by a Consumption,
// adjusting the layout choice for depth vs color formats per spec 4.F step 1.
func stateForConsumption(c Consumption, isDepth bool) TransitionState {
	layout := c.Layout
	if c.Access.Has(AccessWrite) && layout == LayoutColorAttachment && isDepth {
		layout = LayoutDepthStencilAttachment
	}
	return TransitionState{Stages: c.Stages, Access: c.Access, Layout: layout, touched: true}
}
