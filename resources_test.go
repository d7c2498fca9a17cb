package ghal

import (
	"testing"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/stretchr/testify/assert"
)

func TestCreateOnePhysicalBuffer_ZeroSizeSkipsDriverAndReturnsNullBuffer(t *testing.T) {
	assert := assert.New(t)

	var s resourceStore // zero value: no device, no allocator needed for the zero-size path
	pb, err := s.createOnePhysicalBuffer(BufferDesc{Size: 0, Uses: UseUniformBuffer})
	assert.NoError(err)
	assert.Equal(0, pb.size)
	assert.Equal(vk.Buffer(vk.NullHandle), pb.buffer)
	assert.Nil(pb.alloc)
}

func TestGetMutBufferSlice_ZeroSizeBufferReturnsEmptyView(t *testing.T) {
	assert := assert.New(t)

	s := &resourceStore{buffers: newArena[physicalBuffer](KindBuffer), depth: 1}
	h := BufferHandle{h: s.buffers.allocateStatic(physicalBuffer{size: 0})}

	view := s.GetMutBufferSlice(h, 0)
	assert.Nil(view.Bytes())
}

func TestToVkBufferUsage_AggregatesIndependentFlags(t *testing.T) {
	assert := assert.New(t)

	f := toVkBufferUsage(UseVertexBuffer | UseIndexBuffer)
	assert.NotZero(f & vk.BufferUsageVertexBufferBit)
	assert.NotZero(f & vk.BufferUsageIndexBufferBit)
	assert.Zero(f & vk.BufferUsageUniformBufferBit)
}

func TestToVkBufferUsage_AccelerationStructureFlagsAreWired(t *testing.T) {
	assert := assert.New(t)

	assert.NotZero(toVkBufferUsage(UseAccelerationStructure) & vk.BufferUsageAccelerationStructureStorageBitKhr)
	assert.NotZero(toVkBufferUsage(UseAccelerationStructureBuildInput) & vk.BufferUsageAccelerationStructureBuildInputReadOnlyBitKhr)
	assert.NotZero(toVkBufferUsage(UseShaderBindingTable) & vk.BufferUsageShaderBindingTableBitKhr)
}

func TestToVkBufferUsage_BlitAliasSharesTransferBits(t *testing.T) {
	assert := assert.New(t)

	// UseBlitSource aliases UseTransferSource's bit, so requesting one sets
	// the same TransferSrc usage flag as requesting the other.
	assert.Equal(toVkBufferUsage(UseTransferSource), toVkBufferUsage(UseBlitSource))
}

func TestToVkImageUsage_DepthFormatForcesDepthStencilAttachment(t *testing.T) {
	assert := assert.New(t)

	f := toVkImageUsage(0, FormatDepth32)
	assert.NotZero(f & vk.ImageUsageDepthStencilAttachmentBit)
}

func TestToVkImageUsage_ColorAttachmentOnlyAppliesToNonDepthFormats(t *testing.T) {
	assert := assert.New(t)

	f := toVkImageUsage(UseColorAttachment, FormatRGBA8UnsignedNormalized)
	assert.NotZero(f & vk.ImageUsageColorAttachmentBit)
	assert.Zero(f & vk.ImageUsageDepthStencilAttachmentBit)
}

func TestFormatRoundTrip_SurfaceNegotiableFormats(t *testing.T) {
	assert := assert.New(t)

	formats := []Format{
		FormatRGBA8UnsignedNormalized,
		FormatRGBA8SignedNormalized,
		FormatRGBA16Float,
		FormatRGBA32Float,
		FormatBGRAu8,
		FormatDepth32,
	}
	for _, f := range formats {
		assert.Equal(f, fromVkFormat(toVkFormat(f)))
	}
}

func TestFromVkFormat_UnknownFallsBackToRGBA8(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(FormatRGBA8UnsignedNormalized, fromVkFormat(vk.FormatUndefined))
}

// GetMutBufferSlice over a buffer with a staging sibling must mark the
// handle+frame pending so BeginRecording's flush knows to copy it; a buffer
// with no staging sibling (CPU-visible and GPU-visible at once, no copy
// needed) must not be queued.
func TestGetMutBufferSlice_StagingBufferMarksPendingWrite(t *testing.T) {
	assert := assert.New(t)

	backing := make([]byte, 16)
	alloc := &Allocation{HostPtr: unsafe.Pointer(&backing[0])}
	staging := physicalBuffer{size: 16, alloc: alloc}
	pb := physicalBuffer{size: 16, alloc: alloc, staging: &staging}

	s := &resourceStore{buffers: newArena[physicalBuffer](KindBuffer), depth: 2}
	h := BufferHandle{h: s.buffers.allocateStatic(pb)}

	view := s.GetMutBufferSlice(h, 0)
	assert.NotNil(view.Bytes())
	assert.Len(s.pendingWrites, 1)
	_, marked := s.pendingWrites[pendingWrite{handle: h, frameIndex: 0}]
	assert.True(marked)
}

func TestGetMutBufferSlice_NoStagingBufferLeavesNothingPending(t *testing.T) {
	assert := assert.New(t)

	backing := make([]byte, 16)
	pb := physicalBuffer{size: 16, alloc: &Allocation{HostPtr: unsafe.Pointer(&backing[0])}}

	s := &resourceStore{buffers: newArena[physicalBuffer](KindBuffer), depth: 1}
	h := BufferHandle{h: s.buffers.allocateStatic(pb)}

	s.GetMutBufferSlice(h, 0)
	assert.Empty(s.pendingWrites)
}

// drainPendingWrites must only return — and only clear — entries for the
// requested frame, leaving other frames' pending writes queued for their
// own BeginRecording.
func TestDrainPendingWrites_OnlyDrainsRequestedFrame(t *testing.T) {
	assert := assert.New(t)

	h0 := BufferHandle{h: Handle{kind: KindBuffer, index: 1}}
	h1 := BufferHandle{h: Handle{kind: KindBuffer, index: 2}}
	s := &resourceStore{pendingWrites: map[pendingWrite]struct{}{
		{handle: h0, frameIndex: 0}: {},
		{handle: h1, frameIndex: 1}: {},
	}}

	drained := s.drainPendingWrites(0)
	assert.Equal([]BufferHandle{h0}, drained)
	assert.Len(s.pendingWrites, 1)
	_, stillPending := s.pendingWrites[pendingWrite{handle: h1, frameIndex: 1}]
	assert.True(stillPending)
}
