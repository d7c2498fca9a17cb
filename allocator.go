package ghal

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// Allocation is the record returned by the allocator for every buffer and
// image allocation: the backing vk.DeviceMemory plus, for host-visible
// allocations, a persistently mapped pointer. Grounded on extensions.go's
// CreateBuffer (map-then-Memcopy pattern) and swapchain.go's
// CreateFrameBuffer (FindMemoryTypeIndex + AllocateMemory + BindImageMemory).
type Allocation struct {
	Memory   vk.DeviceMemory
	Size     vk.DeviceSize
	HostPtr  unsafe.Pointer // nil unless the memory type is host-visible
	typeBits uint32
}

// Allocator selects a memory type by intersecting driver-reported
// memory-type bits with a property mask derived from DeviceAccesses (spec
// §4.B): CpuRead -> host-visible, CpuWrite -> host-coherent,
// GpuRead|GpuWrite -> device-local. No defragmentation, no sub-allocation:
// every resource owns its allocation, same as the teacher.
type Allocator struct {
	device     vk.Device
	memProps   vk.PhysicalDeviceMemoryProperties
	deviceAddr bool // buffer device address always requested when available
}

func NewAllocator(device vk.Device, memProps vk.PhysicalDeviceMemoryProperties, deviceAddressCapable bool) *Allocator {
	return &Allocator{device: device, memProps: memProps, deviceAddr: deviceAddressCapable}
}

// propertyMask translates a DeviceAccesses value into the Vulkan memory
// property flags the allocator searches for, per spec §4.B's three rules.
func propertyMask(access DeviceAccesses) vk.MemoryPropertyFlagBits {
	var mask vk.MemoryPropertyFlagBits
	if access.Has(CpuRead) {
		mask |= vk.MemoryPropertyHostVisibleBit
	}
	if access.Has(CpuWrite) {
		mask |= vk.MemoryPropertyHostCoherentBit
	}
	if access.Has(GpuRead) || access.Has(GpuWrite) {
		mask |= vk.MemoryPropertyDeviceLocalBit
	}
	return mask
}

// AllocateForBuffer sizes and binds memory for an already-created
// vk.Buffer. For host-visible allocations the entire range is persistently
// mapped and the raw pointer returned alongside the handle, per spec §4.B.
func (a *Allocator) AllocateForBuffer(buf vk.Buffer, access DeviceAccesses) (*Allocation, error) {
	var reqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(a.device, buf, &reqs)
	reqs.Deref()

	alloc, err := a.allocate(reqs, access)
	if err != nil {
		return nil, err
	}
	if ret := vk.BindBufferMemory(a.device, buf, alloc.Memory, 0); isError(ret) {
		vk.FreeMemory(a.device, alloc.Memory, nil)
		return nil, NewError(ret)
	}
	return alloc, nil
}

// AllocateForImage is AllocateForBuffer's image counterpart, grounded on
// swapchain.go's CreateFrameBuffer depth-image allocation path.
func (a *Allocator) AllocateForImage(img vk.Image, access DeviceAccesses) (*Allocation, error) {
	var reqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(a.device, img, &reqs)
	reqs.Deref()

	alloc, err := a.allocate(reqs, access)
	if err != nil {
		return nil, err
	}
	if ret := vk.BindImageMemory(a.device, img, alloc.Memory, 0); isError(ret) {
		vk.FreeMemory(a.device, alloc.Memory, nil)
		return nil, NewError(ret)
	}
	return alloc, nil
}

func (a *Allocator) allocate(reqs vk.MemoryRequirements, access DeviceAccesses) (*Allocation, error) {
	typeIndex, found := a.findMemoryType(reqs.MemoryTypeBits, propertyMask(access))
	if !found {
		return nil, newErrorf(Unsupported, "no memory type satisfies requested device accesses")
	}

	allocInfo := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  reqs.Size,
		MemoryTypeIndex: typeIndex,
	}
	var flagsInfo vk.MemoryAllocateFlagsInfo
	if a.deviceAddr {
		flagsInfo = vk.MemoryAllocateFlagsInfo{
			SType: vk.StructureTypeMemoryAllocateFlagsInfo,
			Flags: vk.MemoryAllocateFlags(vk.MemoryAllocateDeviceAddressBit),
		}
		allocInfo.PNext = unsafe.Pointer(&flagsInfo)
	}

	var mem vk.DeviceMemory
	if ret := vk.AllocateMemory(a.device, &allocInfo, nil, &mem); isError(ret) {
		return nil, NewError(ret)
	}

	alloc := &Allocation{Memory: mem, Size: reqs.Size, typeBits: reqs.MemoryTypeBits}
	if access.HostVisible() {
		var ptr unsafe.Pointer
		if ret := vk.MapMemory(a.device, mem, 0, reqs.Size, 0, &ptr); isError(ret) {
			vk.FreeMemory(a.device, mem, nil)
			return nil, NewError(ret)
		}
		alloc.HostPtr = ptr
	}
	return alloc, nil
}

// findMemoryType intersects memTypeBits (driver-reported compatible types
// for this resource) with a required property mask, grounded on
// extensions.go's FindRequiredMemoryType.
func (a *Allocator) findMemoryType(memTypeBits uint32, required vk.MemoryPropertyFlagBits) (uint32, bool) {
	for i := uint32(0); i < a.memProps.MemoryTypeCount; i++ {
		if memTypeBits&(1<<i) == 0 {
			continue
		}
		a.memProps.MemoryTypes[i].Deref()
		if vk.MemoryPropertyFlagBits(a.memProps.MemoryTypes[i].PropertyFlags)&required == required {
			return i, true
		}
	}
	return 0, false
}

func (a *Allocator) Free(alloc *Allocation) {
	if alloc == nil {
		return
	}
	if alloc.HostPtr != nil {
		vk.UnmapMemory(a.device, alloc.Memory)
	}
	vk.FreeMemory(a.device, alloc.Memory, nil)
}
