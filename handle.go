// Package ghal is a handle-based Graphics Hardware Abstraction Layer over a
// Vulkan-class explicit GPU driver: buffers, images, shaders, pipelines
// (raster, compute, ray-tracing), descriptor sets, synchronization
// primitives, swapchains, and a recording-style command stream.
package ghal

// Kind tags a Handle with the resource table it indexes into. Equality
// between two Handles of different Kind is never meaningful even if their
// raw values collide, so callers should not compare across kinds.
type Kind uint8

const (
	KindBuffer Kind = iota
	KindImage
	KindSampler
	KindShader
	KindPipelineLayout
	KindPipeline
	KindDescriptorSetTemplate
	KindDescriptorSet
	KindDescriptorSetBinding
	KindCommandBuffer
	KindSynchronizer
	KindSwapchain
	KindTopLevelAccelerationStructure
	KindBottomLevelAccelerationStructure
	KindAllocation
	KindTextureCopy
)

// Handle is the opaque identifier every resource kind is addressed by.
// Equality is reference equality over (Kind, index) — two Handles compare
// equal iff they index the same chain in the same arena.
type Handle struct {
	kind  Kind
	index int32
}

// Valid reports whether h was ever returned by a create_* call. Every arena
// reserves chain index 0 as a null sentinel (see newArena), so the zero
// Handle from an uninitialized field is never valid.
func (h Handle) Valid() bool { return h.index != 0 }

// typed public handle wrappers, one per spec §3 resource kind. Each is a
// thin rename of Handle so the Go type system rejects passing a Buffer
// where an Image is expected, without runtime cost.
type (
	BufferHandle                         struct{ h Handle }
	ImageHandle                          struct{ h Handle }
	SamplerHandle                        struct{ h Handle }
	ShaderHandle                         struct{ h Handle }
	PipelineLayoutHandle                 struct{ h Handle }
	PipelineHandle                       struct{ h Handle }
	DescriptorSetTemplateHandle          struct{ h Handle }
	DescriptorSetHandle                  struct{ h Handle }
	DescriptorSetBindingHandle           struct{ h Handle }
	CommandBufferHandle                  struct{ h Handle }
	SynchronizerHandle                   struct{ h Handle }
	SwapchainHandle                      struct{ h Handle }
	TopLevelAccelerationStructureHandle  struct{ h Handle }
	BottomLevelAccelerationStructureHandle struct{ h Handle }
	AllocationHandle                     struct{ h Handle }
	TextureCopyHandle                    struct{ h Handle }
)

// TypedBufferHandle is the phantom-typed wrapper over BufferHandle the spec
// calls BufferHandle<T>: compile-time element-type tagging with no runtime
// representation difference from the untyped handle.
type TypedBufferHandle[T any] struct {
	Base BufferHandle
}

// maxChainDepth is the most physical resources one public handle may expand
// into. A chain's actual depth is 1 (STATIC) or BufferedFrameCount
// (DYNAMIC), per spec §3.
const maxChainDepth = 8

// chain is the arena-backed replacement for the teacher's pointer-chased
// next links (design note §9): one fixed-size array of physical slot
// indices per public handle, rather than following device.go's
// map[string]vk.X one hop at a time.
type chain struct {
	depth int
	slots [maxChainDepth]int32
}

func newChain(depth int, first int32) chain {
	c := chain{depth: depth}
	c.slots[0] = first
	return c
}

// physicalSlot resolves a public handle to a physical index for the given
// frame index, stepping "next" frameIndex mod depth times — expressed here
// as direct array indexing instead of pointer-chasing.
func (c chain) physicalSlot(frameIndex int) int32 {
	return c.slots[frameIndex%c.depth]
}

// arena is a generic per-kind resource table: a dense slice of physical
// records plus a parallel slice of chains mapping public handle index to
// physical slots. One arena exists per resource kind inside the device's
// resourceStore (resources.go), replacing core.go's map[string]CoreX tables.
type arena[T any] struct {
	kind     Kind
	physical []T
	chains   []chain
}

// newArena reserves chain/physical index 0 as a null sentinel so that the
// zero Handle value is never returned by a real allocation and Handle.Valid
// can tell a zeroed struct field from a genuine handle.
func newArena[T any](kind Kind) *arena[T] {
	a := &arena[T]{kind: kind}
	var zero T
	a.physical = append(a.physical, zero)
	a.chains = append(a.chains, newChain(1, 0))
	return a
}

// allocateStatic registers a single physical record behind a new handle with
// chain depth 1 (a STATIC resource per spec §3).
func (a *arena[T]) allocateStatic(v T) Handle {
	physIdx := int32(len(a.physical))
	a.physical = append(a.physical, v)
	chainIdx := int32(len(a.chains))
	a.chains = append(a.chains, newChain(1, physIdx))
	return Handle{kind: a.kind, index: chainIdx}
}

// allocateDynamic registers depth physical records (already created by the
// caller) behind one new public handle — a DYNAMIC resource whose chain
// length equals the device's buffered-frame count. The public handle
// indexes the chain table (not physical storage directly) since a chain may
// span more than one physical slot.
func (a *arena[T]) allocateDynamic(values []T) Handle {
	c := chain{depth: len(values)}
	for i, v := range values {
		c.slots[i] = int32(len(a.physical))
		a.physical = append(a.physical, v)
	}
	chainIdx := int32(len(a.chains))
	a.chains = append(a.chains, c)
	return Handle{kind: a.kind, index: chainIdx}
}

// Get resolves h to the physical record at frameIndex's slot.
func (a *arena[T]) Get(h Handle, frameIndex int) *T {
	c := a.chains[h.index]
	return &a.physical[c.physicalSlot(frameIndex)]
}

// Chain returns the chain backing handle h, used by resize_* to walk and
// replace every physical slot and by the descriptor manager to resolve
// frame_offset.
func (a *arena[T]) Chain(h Handle) chain {
	return a.chains[h.index]
}

// Depth returns h's chain depth (1 for STATIC, N for DYNAMIC).
func (a *arena[T]) Depth(h Handle) int {
	return a.chains[h.index].depth
}

// replaceSlot swaps the physical record at chain slot i for h, used by
// resize_image/resize_buffer to recreate physical storage in place while
// keeping the public handle and every descriptor binding that targets it
// valid.
func (a *arena[T]) replaceSlot(h Handle, i int, v T) {
	c := a.chains[h.index]
	a.physical[c.slots[i]] = v
}
