package ghal

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// Lifetime selects whether a resource is materialized once (STATIC) or as N
// physical copies behind one public handle (DYNAMIC), per spec §3.
type Lifetime int

const (
	Static Lifetime = iota
	Dynamic
)

// physicalBuffer is one concrete vk.Buffer + its allocation. A DYNAMIC
// buffer's arena chain holds BufferedFrameCount of these; a STATIC buffer's
// chain holds exactly one.
type physicalBuffer struct {
	buffer  vk.Buffer
	alloc   *Allocation
	size    int
	staging *physicalBuffer // non-nil only for CpuWrite+GpuRead buffers
}

type physicalImage struct {
	image   vk.Image
	view    vk.ImageView
	alloc   *Allocation
	extent  Extent3D
	format  Format
	staging *physicalBuffer // non-nil only for CpuRead/CpuWrite images
}

type physicalSampler struct {
	sampler vk.Sampler
}

// BufferDesc describes a create_buffer call.
type BufferDesc struct {
	Size     int
	Access   DeviceAccesses
	Uses     Uses
	Lifetime Lifetime
	Name     string
}

// ImageDesc describes a create_image call.
type ImageDesc struct {
	Extent   Extent3D
	Format   Format
	Access   DeviceAccesses
	Uses     Uses
	Lifetime Lifetime
	Name     string
}

// resourceStore is the single owner of every driver object: one arena per
// resource kind, freed on device teardown. Replaces device.go's per-kind
// map[string]vk.X tables with the handle-indexed arenas from handle.go.
type resourceStore struct {
	device vk.Device
	alloc  *Allocator
	depth  int // BufferedFrameCount, fixed at device creation

	buffers  *arena[physicalBuffer]
	images   *arena[physicalImage]
	samplers *arena[physicalSampler]

	pendingWrites map[pendingWrite]struct{}
}

func newResourceStore(device vk.Device, alloc *Allocator, depth int) *resourceStore {
	return &resourceStore{
		device:   device,
		alloc:    alloc,
		depth:    depth,
		buffers:  newArena[physicalBuffer](KindBuffer),
		images:   newArena[physicalImage](KindImage),
		samplers: newArena[physicalSampler](KindSampler),
	}
}

// pendingWrite names one (handle, physical slot) a caller wrote through
// GetMutBufferSlice since the slot's staging buffer was last flushed to its
// device-local counterpart.
type pendingWrite struct {
	handle     BufferHandle
	frameIndex int
}

// drainPendingWrites returns and clears every buffer with an unflushed host
// write against frameIndex, for BeginRecording to copy staging contents to
// the device-local buffer before recording anything else, per spec §4.F's
// "flush pending host writes" step.
func (s *resourceStore) drainPendingWrites(frameIndex int) []BufferHandle {
	var out []BufferHandle
	for pw := range s.pendingWrites {
		if pw.frameIndex != frameIndex {
			continue
		}
		out = append(out, pw.handle)
		delete(s.pendingWrites, pw)
	}
	return out
}

func toVkBufferUsage(u Uses) vk.BufferUsageFlagBits {
	var f vk.BufferUsageFlagBits
	if u.Has(UseVertexBuffer) {
		f |= vk.BufferUsageVertexBufferBit
	}
	if u.Has(UseIndexBuffer) {
		f |= vk.BufferUsageIndexBufferBit
	}
	if u.Has(UseUniformBuffer) {
		f |= vk.BufferUsageUniformBufferBit
	}
	if u.Has(UseStorageBuffer) {
		f |= vk.BufferUsageStorageBufferBit
	}
	if u.Has(UseIndirectBuffer) {
		f |= vk.BufferUsageIndirectBufferBit
	}
	if u.Has(UseTransferSource) {
		f |= vk.BufferUsageTransferSrcBit
	}
	if u.Has(UseTransferDestination) {
		f |= vk.BufferUsageTransferDstBit
	}
	if u.Has(UseAccelerationStructure) {
		f |= vk.BufferUsageAccelerationStructureStorageBitKhr
	}
	if u.Has(UseAccelerationStructureBuildInput) {
		f |= vk.BufferUsageAccelerationStructureBuildInputReadOnlyBitKhr
	}
	if u.Has(UseShaderBindingTable) {
		f |= vk.BufferUsageShaderBindingTableBitKhr
	}
	return f
}

// createOnePhysicalBuffer creates a single vk.Buffer + Allocation. A
// zero-sized request is honored (spec §8 boundary: "Zero-sized buffer
// creation succeeds and returns a buffer whose physical handle is null;
// all reads/writes are skipped") by returning a physicalBuffer with a null
// vk.Buffer and no allocation, never touching the driver.
func (s *resourceStore) createOnePhysicalBuffer(d BufferDesc) (physicalBuffer, error) {
	if d.Size == 0 {
		return physicalBuffer{size: 0}, nil
	}

	usage := toVkBufferUsage(d.Uses)
	if s.alloc.deviceAddr {
		usage |= vk.BufferUsageShaderDeviceAddressBit
	}
	var buf vk.Buffer
	ret := vk.CreateBuffer(s.device, &vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(d.Size),
		Usage:       vk.BufferUsageFlags(usage),
		SharingMode: vk.SharingModeExclusive,
	}, nil, &buf)
	if isError(ret) {
		return physicalBuffer{}, NewError(ret)
	}

	alloc, err := s.alloc.AllocateForBuffer(buf, d.Access)
	if err != nil {
		vk.DestroyBuffer(s.device, buf, nil)
		return physicalBuffer{}, err
	}

	pb := physicalBuffer{buffer: buf, alloc: alloc, size: d.Size}

	// Buffers with CpuWrite + GpuRead additionally allocate a dedicated
	// staging buffer, per spec §3 "Multi-frame resource chains."
	if d.Access.Has(CpuWrite) && d.Access.Has(GpuRead) {
		stagingDesc := d
		stagingDesc.Access = CpuWrite
		stagingDesc.Uses = UseTransferSource
		staging, err := s.createOnePhysicalBuffer(stagingDesc)
		if err != nil {
			s.destroyPhysicalBuffer(pb)
			return physicalBuffer{}, err
		}
		pb.staging = &staging
	}
	return pb, nil
}

func (s *resourceStore) destroyPhysicalBuffer(pb physicalBuffer) {
	if pb.staging != nil {
		s.destroyPhysicalBuffer(*pb.staging)
	}
	if pb.buffer == vk.NullBuffer {
		return
	}
	s.alloc.Free(pb.alloc)
	vk.DestroyBuffer(s.device, pb.buffer, nil)
}

// CreateBuffer allocates a resource per spec §4.A. STATIC descs produce a
// chain of length 1; DYNAMIC descs produce a chain of BufferedFrameCount
// physical buffers, each independently created.
func (s *resourceStore) CreateBuffer(d BufferDesc) (BufferHandle, error) {
	if d.Lifetime == Static {
		pb, err := s.createOnePhysicalBuffer(d)
		if err != nil {
			return BufferHandle{}, err
		}
		return BufferHandle{h: s.buffers.allocateStatic(pb)}, nil
	}

	physicals := make([]physicalBuffer, s.depth)
	for i := 0; i < s.depth; i++ {
		pb, err := s.createOnePhysicalBuffer(d)
		if err != nil {
			for j := 0; j < i; j++ {
				s.destroyPhysicalBuffer(physicals[j])
			}
			return BufferHandle{}, err
		}
		physicals[i] = pb
	}
	return BufferHandle{h: s.buffers.allocateDynamic(physicals)}, nil
}

// ResizeBuffer destroys and recreates every physical buffer in h's chain to
// the new size, discarding previous contents. The caller is responsible for
// invoking the descriptor manager's rewrite pass afterward (device.go wires
// this); this method only owns physical storage.
func (s *resourceStore) ResizeBuffer(h BufferHandle, newSize int, d BufferDesc) error {
	c := s.buffers.Chain(h.h)
	for i := 0; i < c.depth; i++ {
		old := s.buffers.Get(h.h, i)
		s.destroyPhysicalBuffer(*old)
		d.Size = newSize
		pb, err := s.createOnePhysicalBuffer(d)
		if err != nil {
			return err
		}
		s.buffers.replaceSlot(h.h, i, pb)
	}
	return nil
}

func toVkImageUsage(u Uses, f Format) vk.ImageUsageFlagBits {
	var flags vk.ImageUsageFlagBits
	if u.Has(UseSampledImage) {
		flags |= vk.ImageUsageSampledBit
	}
	if u.Has(UseStorageImage) {
		flags |= vk.ImageUsageStorageBit
	}
	if u.Has(UseTransferSource) {
		flags |= vk.ImageUsageTransferSrcBit
	}
	if u.Has(UseTransferDestination) {
		flags |= vk.ImageUsageTransferDstBit
	}
	if f.IsDepth() {
		flags |= vk.ImageUsageDepthStencilAttachmentBit
	} else if u.Has(UseColorAttachment) {
		flags |= vk.ImageUsageColorAttachmentBit
	}
	return flags
}

func toVkFormat(f Format) vk.Format {
	switch f {
	case FormatRGBA8UnsignedNormalized:
		return vk.FormatR8g8b8a8Unorm
	case FormatRGBA8SignedNormalized:
		return vk.FormatR8g8b8a8Snorm
	case FormatRGBA16Float:
		return vk.FormatR16g16b16a16Sfloat
	case FormatRGBA32Float:
		return vk.FormatR32g32b32a32Sfloat
	case FormatBGRAu8:
		return vk.FormatB8g8r8a8Unorm
	case FormatDepth32:
		return vk.FormatD32Sfloat
	case FormatU32:
		return vk.FormatR32Uint
	case FormatBC5:
		return vk.FormatBc5UnormBlock
	case FormatBC7:
		return vk.FormatBc7UnormBlock
	default:
		return vk.FormatR8g8b8a8Unorm
	}
}

// fromVkFormat is toVkFormat's inverse for the subset of formats a
// negotiated surface can report, used by Device.ColorFormat to hand callers
// this package's Format type instead of a raw vk.Format.
func fromVkFormat(f vk.Format) Format {
	switch f {
	case vk.FormatR8g8b8a8Unorm:
		return FormatRGBA8UnsignedNormalized
	case vk.FormatR8g8b8a8Snorm:
		return FormatRGBA8SignedNormalized
	case vk.FormatR16g16b16a16Sfloat:
		return FormatRGBA16Float
	case vk.FormatR32g32b32a32Sfloat:
		return FormatRGBA32Float
	case vk.FormatB8g8r8a8Unorm, vk.FormatB8g8r8a8Srgb:
		return FormatBGRAu8
	case vk.FormatD32Sfloat:
		return FormatDepth32
	default:
		return FormatRGBA8UnsignedNormalized
	}
}

func (s *resourceStore) createOnePhysicalImage(d ImageDesc) (physicalImage, error) {
	aspect := vk.ImageAspectColorBit
	if d.Format.IsDepth() {
		aspect = vk.ImageAspectDepthBit
	}

	var img vk.Image
	ret := vk.CreateImage(s.device, &vk.ImageCreateInfo{
		SType:       vk.StructureTypeImageCreateInfo,
		ImageType:   vk.ImageType2d,
		Format:      toVkFormat(d.Format),
		Extent:      vk.Extent3D{Width: d.Extent.Width, Height: d.Extent.Height, Depth: 1},
		MipLevels:   1,
		ArrayLayers: 1,
		Samples:     vk.SampleCount1Bit,
		Tiling:      vk.ImageTilingOptimal,
		Usage:       vk.ImageUsageFlags(toVkImageUsage(d.Uses, d.Format)),
		SharingMode: vk.SharingModeExclusive,
	}, nil, &img)
	if isError(ret) {
		return physicalImage{}, NewError(ret)
	}

	alloc, err := s.alloc.AllocateForImage(img, d.Access)
	if err != nil {
		vk.DestroyImage(s.device, img, nil)
		return physicalImage{}, err
	}

	var view vk.ImageView
	ret = vk.CreateImageView(s.device, &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img,
		ViewType: vk.ImageViewType2d,
		Format:   toVkFormat(d.Format),
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: vk.ImageAspectFlags(aspect),
			LevelCount: 1,
			LayerCount: 1,
		},
	}, nil, &view)
	if isError(ret) {
		s.alloc.Free(alloc)
		vk.DestroyImage(s.device, img, nil)
		return physicalImage{}, NewError(ret)
	}

	pi := physicalImage{image: img, view: view, alloc: alloc, extent: d.Extent, format: d.Format}

	// Images with CpuRead or CpuWrite allocate a linear staging buffer of
	// matching byte size, per spec §3.
	if d.Access.Has(CpuRead) || d.Access.Has(CpuWrite) {
		byteSize := int(d.Extent.Width) * int(d.Extent.Height) * int(d.Extent.Depth) * d.Format.Size()
		staging, err := s.createOnePhysicalBuffer(BufferDesc{
			Size:   byteSize,
			Access: d.Access,
			Uses:   UseTransferDestination | UseTransferSource,
		})
		if err != nil {
			s.destroyPhysicalImage(pi)
			return physicalImage{}, err
		}
		pi.staging = &staging
	}
	return pi, nil
}

func (s *resourceStore) destroyPhysicalImage(pi physicalImage) {
	if pi.staging != nil {
		s.destroyPhysicalBuffer(*pi.staging)
	}
	if pi.image == vk.NullImage {
		return
	}
	vk.DestroyImageView(s.device, pi.view, nil)
	s.alloc.Free(pi.alloc)
	vk.DestroyImage(s.device, pi.image, nil)
}

func (s *resourceStore) CreateImage(d ImageDesc) (ImageHandle, error) {
	if d.Lifetime == Static {
		pi, err := s.createOnePhysicalImage(d)
		if err != nil {
			return ImageHandle{}, err
		}
		return ImageHandle{h: s.images.allocateStatic(pi)}, nil
	}

	physicals := make([]physicalImage, s.depth)
	for i := 0; i < s.depth; i++ {
		pi, err := s.createOnePhysicalImage(d)
		if err != nil {
			for j := 0; j < i; j++ {
				s.destroyPhysicalImage(physicals[j])
			}
			return ImageHandle{}, err
		}
		physicals[i] = pi
	}
	return ImageHandle{h: s.images.allocateDynamic(physicals)}, nil
}

// ResizeImage destroys and recreates every physical image in h's chain at
// the new extent, discarding previous contents (no format conversion or
// copy), per spec §4.A.
func (s *resourceStore) ResizeImage(h ImageHandle, extent Extent3D, d ImageDesc) error {
	c := s.images.Chain(h.h)
	for i := 0; i < c.depth; i++ {
		old := s.images.Get(h.h, i)
		s.destroyPhysicalImage(*old)
		d.Extent = extent
		pi, err := s.createOnePhysicalImage(d)
		if err != nil {
			return err
		}
		s.images.replaceSlot(h.h, i, pi)
	}
	return nil
}

// GetImageExtent returns the current extent of the frame-0 physical slot;
// every slot in a resized chain shares the same extent.
func (s *resourceStore) GetImageExtent(h ImageHandle) Extent3D {
	return s.images.Get(h.h, 0).extent
}

// GetImageView resolves h to the frame-indexed physical image view, for
// passing to BeginRasterPass's ColorAttachment/DepthAttachment or to a
// descriptor write. Mirrors ColorImageView's frame-resolution shape in
// swapchain.go.
func (s *resourceStore) GetImageView(h ImageHandle, frameIndex int) vk.ImageView {
	return s.images.Get(h.h, frameIndex).view
}

// GetImage resolves h to the frame-indexed underlying vk.Image, for
// operations (swapchain copy, barrier synthesis) that need the raw image
// rather than its view.
func (s *resourceStore) GetImage(h ImageHandle, frameIndex int) vk.Image {
	return s.images.Get(h.h, frameIndex).image
}

// bufferView is the bounded host-mapped view handed back by
// GetMutBufferSlice, replacing the teacher's raw &mut[]byte-with-unsafe-
// lifetime-extension (design note §9). Handing one out over a staging
// buffer marks the underlying handle+frame pending (see pendingWrite), so
// the next recording flushes it to the device-local buffer before anything
// else is recorded.
type bufferView struct {
	data   []byte
	handle BufferHandle
}

// GetMutBufferSlice returns a bounded []byte over a buffer's mapped host
// memory (or its staging buffer's, if GpuRead is also requested), for the
// physical slot addressed by frameIndex.
func (s *resourceStore) GetMutBufferSlice(h BufferHandle, frameIndex int) bufferView {
	pb := s.buffers.Get(h.h, frameIndex)
	target := pb
	if pb.staging != nil {
		target = pb.staging
		if s.pendingWrites == nil {
			s.pendingWrites = make(map[pendingWrite]struct{})
		}
		s.pendingWrites[pendingWrite{handle: h, frameIndex: frameIndex}] = struct{}{}
	}
	if target.alloc == nil || target.alloc.HostPtr == nil || target.size == 0 {
		return bufferView{handle: h}
	}
	data := unsafe.Slice((*byte)(target.alloc.HostPtr), target.size)
	return bufferView{data: data, handle: h}
}

func (v bufferView) Bytes() []byte { return v.data }
