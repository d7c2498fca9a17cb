package ghal

import vk "github.com/vulkan-go/vulkan"

// FrameKey identifies one in-flight slot in the buffered-frame cycle.
// FrameIndex is the physical slot (0..BufferedFrameCount-1, i.e. the caller's
// frame index mod BufferedFrameCount); SequenceIndex is a counter the
// FrameCycle advances on every StartFrame call, carried alongside so two
// FrameKeys that landed on the same physical slot can still be told apart. Grounded on instance.go's
// current_frame counter, split per spec §3 into (frame_index, sequence_index)
// rather than one overloaded int so slot reuse across wraps stays
// distinguishable.
type FrameKey struct {
	FrameIndex    int
	SequenceIndex int64
}

// PresentKey identifies one acquired swapchain image, which may not equal
// FrameIndex when the swapchain has more images than the device buffers
// frames for. SequenceIndex ties the present back to the FrameKey that
// acquired it; Swapchain names which swapchain ImageIndex is relative to, so
// a PresentKey stays meaningful across a swapchain recreation. Grounded on
// instance.go's image_index acquisition result, extended per spec §3.
type PresentKey struct {
	ImageIndex    uint32
	SequenceIndex int64
	Swapchain     SwapchainHandle
}

// frameSlot bundles the per-frame synchronization objects the teacher's
// PerFrame struct inlined directly into CoreRenderInstance. Adapted here to
// live behind the synchronizerStore's own handles instead of raw
// vk.Semaphore/vk.Fence fields, so Wait()/recycling goes through the same
// path as any other caller-visible synchronizer. cmdHandle wires the command
// buffer itself through the handle table (KindCommandBuffer) rather than
// leaving it a bare vk.CommandBuffer only the frame cycle can see.
type frameSlot struct {
	imageAcquired SynchronizerHandle
	queueComplete SynchronizerHandle
	pool          vk.CommandPool
	cmdHandle     CommandBufferHandle
}

// FrameCycle drives acquire/submit/present across BufferedFrameCount slots.
// Grounded on instance.go's init_per_frame/Update/acquire_next_image/
// present_image/destroy_per_frame, restructured so swapchain recreation is
// the caller's decision rather than silently retried inline: an out-of-date
// swapchain is returned as a SwapchainOutOfDate error, a SUBOPTIMAL acquire
// counts as success, and the cycle never recreates the swapchain itself.
type FrameCycle struct {
	device      vk.Device
	queue       vk.Queue
	queueFamily uint32
	sync        *synchronizerStore
	swapchains  *swapchainStore
	swapchain   SwapchainHandle

	depth       int
	nextSequence int64
	cmdBuffers  *arena[vk.CommandBuffer]
	slots       []frameSlot
}

const acquireTimeoutNanos = 5 * 1_000_000_000 // spec §5 "Suspension points": 5 second cap

// NewFrameCycle allocates depth command pools/buffers and synchronizer
// pairs, one set per buffered frame. Grounded on instance.go's
// init_per_frame, which did the same allocation loop against PerFrame.
func NewFrameCycle(device vk.Device, queue vk.Queue, queueFamily uint32, sync *synchronizerStore, swapchains *swapchainStore, swapchain SwapchainHandle, depth int) (*FrameCycle, error) {
	fc := &FrameCycle{
		device: device, queue: queue, queueFamily: queueFamily,
		sync: sync, swapchains: swapchains, swapchain: swapchain,
		depth: depth, slots: make([]frameSlot, depth),
		cmdBuffers: newArena[vk.CommandBuffer](KindCommandBuffer),
	}
	for i := 0; i < depth; i++ {
		var pool vk.CommandPool
		ret := vk.CreateCommandPool(device, &vk.CommandPoolCreateInfo{
			SType:            vk.StructureTypeCommandPoolCreateInfo,
			QueueFamilyIndex: queueFamily,
			Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		}, nil, &pool)
		if isError(ret) {
			return nil, NewError(ret)
		}

		buffers := make([]vk.CommandBuffer, 1)
		ret = vk.AllocateCommandBuffers(device, &vk.CommandBufferAllocateInfo{
			SType:              vk.StructureTypeCommandBufferAllocateInfo,
			CommandPool:        pool,
			Level:              vk.CommandBufferLevelPrimary,
			CommandBufferCount: 1,
		}, buffers)
		if isError(ret) {
			return nil, NewError(ret)
		}

		acquired, err := sync.CreateSynchronizer("image_acquired")
		if err != nil {
			return nil, err
		}
		complete, err := sync.CreateSynchronizer("queue_complete")
		if err != nil {
			return nil, err
		}
		cmdHandle := CommandBufferHandle{h: fc.cmdBuffers.allocateStatic(buffers[0])}
		fc.slots[i] = frameSlot{imageAcquired: acquired, queueComplete: complete, pool: pool, cmdHandle: cmdHandle}
	}
	return fc, nil
}

// StartFrame blocks on slot index's in-flight fence and resets its command
// pool, grounded on instance.go's acquire_next_image fence-wait/
// reset-command-pool block. index is the caller's frame counter; the
// physical slot is index mod depth. SequenceIndex comes from the cycle's own
// counter, which advances on every call, so two calls with the same index
// return the same FrameIndex and a larger SequenceIndex. Returns the FrameKey
// the caller should record into.
func (fc *FrameCycle) StartFrame(index int) (FrameKey, error) {
	frameIndex := index % fc.depth
	slot := fc.slots[frameIndex]
	if err := fc.sync.Wait(slot.queueComplete); err != nil {
		return FrameKey{}, err
	}
	if ret := vk.ResetCommandPool(fc.device, slot.pool, 0); isError(ret) {
		return FrameKey{}, NewError(ret)
	}
	seq := fc.nextSequence
	fc.nextSequence++
	return FrameKey{FrameIndex: frameIndex, SequenceIndex: seq}, nil
}

// AcquireSwapchainImage waits for a presentable image, per spec §4.G. The
// caller is expected to recreate the swapchain (via Device.AttachSurface +
// a fresh swapchainStore.CreateSwapchain call with the old handle passed as
// old) on a SwapchainOutOfDate error and retry once, mirroring
// instance.go's Update()'s resize()-then-retry pattern — but as an explicit
// caller decision instead of an inline loop.
func (fc *FrameCycle) AcquireSwapchainImage(key FrameKey) (PresentKey, error) {
	slot := fc.slots[key.FrameIndex]
	sem := fc.sync.get(slot.imageAcquired).semaphore
	index, err := fc.swapchains.AcquireNextImage(fc.swapchain, acquireTimeoutNanos, sem)
	if err != nil {
		return PresentKey{}, err
	}
	return PresentKey{ImageIndex: index, SequenceIndex: key.SequenceIndex, Swapchain: fc.swapchain}, nil
}

// CommandBuffer returns the raw command buffer to record into for key.
func (fc *FrameCycle) CommandBuffer(key FrameKey) vk.CommandBuffer {
	return *fc.cmdBuffers.Get(fc.slots[key.FrameIndex].cmdHandle.h, 0)
}

// CommandBufferHandle returns the handle-table identity of key's command
// buffer, for callers that want to name it without holding a raw
// vk.CommandBuffer.
func (fc *FrameCycle) CommandBufferHandle(key FrameKey) CommandBufferHandle {
	return fc.slots[key.FrameIndex].cmdHandle
}

// Submit queues key's recorded command buffer, waiting on its image-acquired
// semaphore and signaling its queue-complete semaphore, per instance.go's
// submit_pipeline.
func (fc *FrameCycle) Submit(key FrameKey) error {
	slot := fc.slots[key.FrameIndex]
	waitSem := fc.sync.get(slot.imageAcquired).semaphore
	signalSem := fc.sync.get(slot.queueComplete).semaphore
	fence := fc.sync.get(slot.queueComplete).fence
	buffer := fc.CommandBuffer(key)

	waitStage := []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)}
	ret := vk.QueueSubmit(fc.queue, 1, []vk.SubmitInfo{{
		SType:                vk.StructureTypeSubmitInfo,
		WaitSemaphoreCount:   1,
		PWaitSemaphores:      []vk.Semaphore{waitSem},
		PWaitDstStageMask:    waitStage,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{buffer},
		SignalSemaphoreCount: 1,
		PSignalSemaphores:    []vk.Semaphore{signalSem},
	}}, fence)
	if isError(ret) {
		return NewError(ret)
	}
	return nil
}

// Present presents the acquired image, grounded on instance.go's
// present_image. The caller owns advancing its own frame counter (the next
// StartFrame call's index); FrameCycle no longer tracks a current frame
// itself now that StartFrame takes an explicit index, per spec §3.
func (fc *FrameCycle) Present(key FrameKey, image PresentKey) error {
	slot := fc.slots[key.FrameIndex]
	signalSem := fc.sync.get(slot.queueComplete).semaphore
	return fc.swapchains.Present(fc.swapchain, fc.queue, signalSem, image.ImageIndex)
}

func (fc *FrameCycle) Destroy() {
	vk.DeviceWaitIdle(fc.device)
	for _, slot := range fc.slots {
		vk.DestroyCommandPool(fc.device, slot.pool, nil)
		fc.sync.Destroy(slot.imageAcquired)
		fc.sync.Destroy(slot.queueComplete)
	}
}
