package ghal

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// Recorder wraps one command buffer across its recording lifetime. Grounded
// on instance.go's setup_command (ResetCommandBuffer -> BeginCommandBuffer
// -> ... -> EndCommandBuffer), generalized from one hardcoded "clear,
// bind default pipeline, draw 3 vertices" sequence into the caller-driven
// operation stream spec §4.F describes. State transitions are enforced by
// which methods are reachable from which returned type (Recording ->
// RasterPass -> BoundRasterPipeline, etc.) rather than by a runtime state
// field, per design note §9's typestate-via-separate-structs approach.
type Recorder struct {
	device   vk.Device
	cmd      vk.CommandBuffer
	res      *resourceStore
	pipes    *pipelineManager
	descs    *descriptorManager
	frame    int // buffered-frame index this recording addresses
	deltas   map[trackedSlot]TransitionState
	tracker  *stateTracker
}

// BeginRecording resets and begins cmd, returning a Recording the caller
// drives through consume/bind/draw calls. Grounded on instance.go's
// ResetCommandBuffer + BeginCommandBuffer(OneTimeSubmitBit) pair.
func BeginRecording(device vk.Device, cmd vk.CommandBuffer, res *resourceStore, pipes *pipelineManager, descs *descriptorManager, tracker *stateTracker, frame int) (*Recorder, error) {
	if ret := vk.ResetCommandBuffer(cmd, vk.CommandBufferResetFlags(vk.CommandBufferResetReleaseResourcesBit)); isError(ret) {
		return nil, NewError(ret)
	}
	if ret := vk.BeginCommandBuffer(cmd, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}); isError(ret) {
		return nil, NewError(ret)
	}
	r := &Recorder{
		device: device, cmd: cmd, res: res, pipes: pipes, descs: descs,
		frame: frame, deltas: tracker.snapshot(), tracker: tracker,
	}
	r.flushPendingWrites()
	return r, nil
}

// flushPendingWrites copies every buffer touched via GetMutBufferSlice since
// this frame slot was last recorded into from its staging buffer to its
// device-local buffer, per spec §4.F: recording begins by flushing pending
// host writes before any caller-issued command. Grounded on the teacher's
// total absence of a staging path (it wrote host-visible buffers directly).
func (r *Recorder) flushPendingWrites() {
	for _, h := range r.res.drainPendingWrites(r.frame) {
		pb := r.res.buffers.Get(h.h, r.frame)
		if pb.staging == nil || pb.buffer == vk.NullBuffer {
			continue
		}
		r.ConsumeBuffer(h, Consumption{Handle: h.h, Stages: StageTransfer, Access: AccessWrite})
		vk.CmdCopyBuffer(r.cmd, pb.staging.buffer, pb.buffer, 1, []vk.BufferCopy{{
			SrcOffset: 0, DstOffset: 0, Size: vk.DeviceSize(pb.size),
		}})
	}
}

// ConsumeBuffer/ConsumeImage declare how the upcoming commands will touch a
// resource, implicitly inserting a barrier if the resource's last-known
// state differs from c's target state, per spec 4.F step 1 ("implicit
// consumption before binds"). Grounded on the teacher's complete absence of
// explicit barriers (it relied on a single subpass dependency instead),
// generalized into the per-resource synthesis barrier.go implements.
func (r *Recorder) ConsumeBuffer(h BufferHandle, c Consumption) {
	pb := r.res.buffers.Get(h.h, r.frame)
	slot := trackedSlot{handle: h.h, slot: int32(r.frame)}
	if barrier := resolveConsumption(r.deltas, slot, c, false, false, vk.Image(vk.NullHandle), pb.buffer); barrier != nil {
		vk.CmdPipelineBarrier(r.cmd, vk.PipelineStageFlags(barrier.srcStage), vk.PipelineStageFlags(barrier.dstStage),
			0, 0, nil, 1, []vk.BufferMemoryBarrier{*barrier.buffer}, 0, nil)
	}
}

func (r *Recorder) ConsumeImage(h ImageHandle, c Consumption, isDepth bool) {
	pi := r.res.images.Get(h.h, r.frame)
	slot := trackedSlot{handle: h.h, slot: int32(r.frame)}
	if barrier := resolveConsumption(r.deltas, slot, c, isDepth, true, pi.image, vk.Buffer(vk.NullHandle)); barrier != nil {
		vk.CmdPipelineBarrier(r.cmd, vk.PipelineStageFlags(barrier.srcStage), vk.PipelineStageFlags(barrier.dstStage),
			0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{*barrier.image})
	}
}

// consumeBoundResources walks pp's resource_access table for every entry
// declared against setIndex and issues the implicit consumption spec §4.F
// step 1 requires, resolving each (set, binding) to whatever resource the
// descriptor manager currently has bound there.
func (r *Recorder) consumeBoundResources(pp *physicalPipeline, setIndex uint32, set DescriptorSetHandle) {
	for key, access := range pp.resourceAccess {
		if key.Set != setIndex {
			continue
		}
		bound := r.descs.ResourceAt(set, key.Binding, r.frame)
		switch {
		case bound.buffer.h.Valid():
			r.ConsumeBuffer(bound.buffer, Consumption{Handle: bound.buffer.h, Stages: access.Stages, Access: access.Access})
		case bound.image.h.Valid():
			layout := LayoutShaderReadOnly
			if access.Access.Has(AccessWrite) {
				layout = LayoutGeneral
			}
			r.ConsumeImage(bound.image, Consumption{Handle: bound.image.h, Stages: access.Stages, Access: access.Access, Layout: layout}, false)
		}
	}
}

// ColorAttachment and DepthAttachment describe one dynamic-rendering
// attachment. REDESIGN FLAG: this replaces renderpass.go's
// vk.RenderPassCreateInfo/vk.FramebufferCreateInfo pair with
// VK_KHR_dynamic_rendering, so no render pass or framebuffer object exists
// in this package at all.
type ColorAttachment struct {
	View  vk.ImageView
	Clear [4]float32
}

type DepthAttachment struct {
	View       vk.ImageView
	ClearDepth float32
}

// RasterPass is the typestate returned by BeginRasterPass; only raster-pass
// operations (bind pipeline, draw) are reachable from it.
type RasterPass struct {
	r      *Recorder
	extent vk.Extent2D
}

// BeginRasterPass starts a dynamic-rendering pass. Grounded on
// instance.go's setup_command, which issued vk.CmdBeginRenderPass against a
// fixed "Primary" render pass/framebuffer; here vk.CmdBeginRenderingKHR
// takes attachment views directly, matching the REDESIGN FLAG.
func (r *Recorder) BeginRasterPass(extent Extent2D, color []ColorAttachment, depth *DepthAttachment) *RasterPass {
	colorAttachments := make([]vk.RenderingAttachmentInfoKHR, len(color))
	for i, c := range color {
		colorAttachments[i] = vk.RenderingAttachmentInfoKHR{
			SType:       vk.StructureTypeRenderingAttachmentInfoKhr,
			ImageView:   c.View,
			ImageLayout: vk.ImageLayoutColorAttachmentOptimal,
			LoadOp:      vk.AttachmentLoadOpClear,
			StoreOp:     vk.AttachmentStoreOpStore,
			ClearValue:  vk.NewClearValue(c.Clear[:]),
		}
	}
	info := vk.RenderingInfoKHR{
		SType: vk.StructureTypeRenderingInfoKhr,
		RenderArea: vk.Rect2D{
			Extent: vk.Extent2D{Width: extent.Width, Height: extent.Height},
		},
		LayerCount:          1,
		ColorAttachmentCount: uint32(len(colorAttachments)),
		PColorAttachments:   colorAttachments,
	}
	if depth != nil {
		info.PDepthAttachment = &vk.RenderingAttachmentInfoKHR{
			SType:       vk.StructureTypeRenderingAttachmentInfoKhr,
			ImageView:   depth.View,
			ImageLayout: vk.ImageLayoutDepthStencilAttachmentOptimal,
			LoadOp:      vk.AttachmentLoadOpClear,
			StoreOp:     vk.AttachmentStoreOpStore,
			ClearValue:  vk.NewClearDepthStencil(depth.ClearDepth, 0),
		}
	}
	vk.CmdBeginRenderingKHR(r.cmd, &info)

	viewport := vk.Viewport{Width: float32(extent.Width), Height: float32(extent.Height), MinDepth: 0, MaxDepth: 1}
	scissor := vk.Rect2D{Extent: vk.Extent2D{Width: extent.Width, Height: extent.Height}}
	vk.CmdSetViewport(r.cmd, 0, 1, []vk.Viewport{viewport})
	vk.CmdSetScissor(r.cmd, 0, 1, []vk.Rect2D{scissor})

	return &RasterPass{r: r, extent: vk.Extent2D{Width: extent.Width, Height: extent.Height}}
}

// BoundRasterPipeline is the typestate after binding a graphics pipeline;
// only draw-shaped operations are reachable from it.
type BoundRasterPipeline struct {
	pass     *RasterPass
	layout   vk.PipelineLayout
	pipeline *physicalPipeline
}

// BindPipeline binds h for the remainder of the pass.
func (p *RasterPass) BindPipeline(h PipelineHandle, layout PipelineLayoutHandle) *BoundRasterPipeline {
	pp := p.r.pipes.get(h)
	vk.CmdBindPipeline(p.r.cmd, vk.PipelineBindPointGraphics, pp.pipeline)
	return &BoundRasterPipeline{pass: p, layout: p.r.pipes.layouts.Get(layout.h, 0).layout, pipeline: pp}
}

// BindDescriptorSet binds set at the given set index, resolving the
// per-frame clone for this recording's frame, per spec 4.C. After recording
// the bind it walks the pipeline's resource_access table for this set
// index and issues the implicit consumption spec §4.F step 1 requires, so a
// caller never has to hand-write a ConsumeBuffer/ConsumeImage call for a
// resource it only ever touches through a descriptor.
func (b *BoundRasterPipeline) BindDescriptorSet(index uint32, set DescriptorSetHandle) *BoundRasterPipeline {
	ds := b.pass.r.descs.sets.Get(set.h, 0)
	vk.CmdBindDescriptorSets(b.pass.r.cmd, vk.PipelineBindPointGraphics, b.layout, index, 1,
		[]vk.DescriptorSet{ds.sets[b.pass.r.frame]}, 0, nil)
	b.pass.r.consumeBoundResources(b.pipeline, index, set)
	return b
}

// PushConstants uploads data at offset for the given stages, grounded on
// the spec's push-constant rotation scenario (§8 scenario 3); the teacher
// never used push constants.
func (b *BoundRasterPipeline) PushConstants(stages Stages, offset uint32, data []byte) *BoundRasterPipeline {
	vk.CmdPushConstants(b.pass.r.cmd, b.layout, vk.ShaderStageFlags(toVkShaderStageFlags(stages)), offset, uint32(len(data)), unsafePtr(data))
	return b
}

// BindVertexBuffer/BindIndexBuffer bind h's frame-resolved physical buffer.
func (b *BoundRasterPipeline) BindVertexBuffer(binding uint32, h BufferHandle) *BoundRasterPipeline {
	pb := b.pass.r.res.buffers.Get(h.h, b.pass.r.frame)
	vk.CmdBindVertexBuffers(b.pass.r.cmd, binding, 1, []vk.Buffer{pb.buffer}, []vk.DeviceSize{0})
	return b
}

func (b *BoundRasterPipeline) BindIndexBuffer(h BufferHandle) *BoundRasterPipeline {
	pb := b.pass.r.res.buffers.Get(h.h, b.pass.r.frame)
	vk.CmdBindIndexBuffer(b.pass.r.cmd, pb.buffer, 0, vk.IndexTypeUint32)
	return b
}

// Draw issues a non-indexed draw. Grounded on instance.go's
// vk.CmdDraw(cmd, 3, 1, 0, 0) call, generalized to caller-supplied counts.
func (b *BoundRasterPipeline) Draw(vertexCount, instanceCount uint32) *BoundRasterPipeline {
	vk.CmdDraw(b.pass.r.cmd, vertexCount, instanceCount, 0, 0)
	return b
}

func (b *BoundRasterPipeline) DrawIndexed(indexCount, instanceCount uint32) *BoundRasterPipeline {
	vk.CmdDrawIndexed(b.pass.r.cmd, indexCount, instanceCount, 0, 0, 0)
	return b
}

// EndRasterPass ends dynamic rendering, grounded on instance.go's
// vk.CmdEndRenderPass, returning to the plain Recorder so the caller can
// begin another pass or a compute dispatch.
func (b *BoundRasterPipeline) EndRasterPass() *Recorder {
	vk.CmdEndRenderingKHR(b.pass.r.cmd)
	return b.pass.r
}

// BoundComputePipeline is the typestate for a bound compute pipeline.
type BoundComputePipeline struct {
	r        *Recorder
	layout   vk.PipelineLayout
	pipeline *physicalPipeline
}

// BindComputePipeline binds h for dispatch, new relative to the teacher
// (which never issued a compute pipeline at all).
func (r *Recorder) BindComputePipeline(h PipelineHandle, layout PipelineLayoutHandle) *BoundComputePipeline {
	pp := r.pipes.get(h)
	vk.CmdBindPipeline(r.cmd, vk.PipelineBindPointCompute, pp.pipeline)
	return &BoundComputePipeline{r: r, layout: r.pipes.layouts.Get(layout.h, 0).layout, pipeline: pp}
}

// BindDescriptorSet mirrors BoundRasterPipeline.BindDescriptorSet's implicit
// consumption for the compute bind point.
func (b *BoundComputePipeline) BindDescriptorSet(index uint32, set DescriptorSetHandle) *BoundComputePipeline {
	ds := b.r.descs.sets.Get(set.h, 0)
	vk.CmdBindDescriptorSets(b.r.cmd, vk.PipelineBindPointCompute, b.layout, index, 1,
		[]vk.DescriptorSet{ds.sets[b.r.frame]}, 0, nil)
	b.r.consumeBoundResources(b.pipeline, index, set)
	return b
}

func (b *BoundComputePipeline) PushConstants(stages Stages, offset uint32, data []byte) *BoundComputePipeline {
	vk.CmdPushConstants(b.r.cmd, b.layout, vk.ShaderStageFlags(toVkShaderStageFlags(stages)), offset, uint32(len(data)), unsafePtr(data))
	return b
}

// Dispatch launches ceil(total/workgroup) workgroups per spec §8 scenario 6.
func (b *BoundComputePipeline) Dispatch(extent DispatchExtent) *Recorder {
	e := extent.GetExtent()
	vk.CmdDispatch(b.r.cmd, e.Width, e.Height, e.Depth)
	return b.r
}

// CopyToSwapchain copies a color image into the currently acquired
// swapchain image, new relative to the teacher (it always rendered directly
// into the swapchain's own framebuffer via render pass attachment; this
// package's dynamic-rendering pipelines render into an offscreen image and
// use an explicit copy instead, matching spec §6's swapchain-copy
// operation).
func (r *Recorder) CopyToSwapchain(src vk.Image, dst vk.Image, extent Extent2D) {
	region := vk.ImageCopy{
		SrcSubresource: vk.ImageSubresourceLayers{AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit), LayerCount: 1},
		DstSubresource: vk.ImageSubresourceLayers{AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit), LayerCount: 1},
		Extent:         vk.Extent3D{Width: extent.Width, Height: extent.Height, Depth: 1},
	}
	vk.CmdCopyImage(r.cmd, src, vk.ImageLayoutTransferSrcOptimal, dst, vk.ImageLayoutTransferDstOptimal, 1, []vk.ImageCopy{region})
}

// End finishes recording, grounded on instance.go's vk.EndCommandBuffer.
func (r *Recorder) End() error {
	if ret := vk.EndCommandBuffer(r.cmd); isError(ret) {
		return NewError(ret)
	}
	return nil
}

// Execute commits this recording's resource-state deltas back into the
// shared tracker, per spec §4.F "commits its local copy back at execute()."
// Submission itself is owned by FrameCycle.Submit; this only finalizes the
// barrier bookkeeping so the next recording starts from an up-to-date view.
func (r *Recorder) Execute() {
	r.tracker.commit(r.deltas)
}

func unsafePtr(b []byte) unsafe.Pointer {
	if len(b) == 0 {
		return nil
	}
	return unsafe.Pointer(&b[0])
}
