package ghal

import (
	"encoding/binary"
	"math"

	vk "github.com/vulkan-go/vulkan"
)

// physicalBLAS/physicalTLAS wrap the acceleration structure handle plus the
// buffer backing it. Grounded on the teacher's buffer-creation idiom in
// extensions.go (CreateBuffer) — ray-tracing is new relative to the
// teacher, so the construction path reuses the same buffer-then-bind shape
// rather than copying anything from it directly.
type physicalBLAS struct {
	accel  vk.AccelerationStructureKHR
	buffer physicalBuffer
}

type physicalTLAS struct {
	accel  vk.AccelerationStructureKHR
	buffer physicalBuffer
}

// BLASTriangleGeometry describes one triangle-geometry input to a bottom
// level acceleration structure build.
type BLASTriangleGeometry struct {
	VertexBuffer BufferHandle
	VertexCount  uint32
	VertexStride uint32
	IndexBuffer  BufferHandle
	IndexCount   uint32
}

type accelStore struct {
	device vk.Device
	alloc  *Allocator
	blas   *arena[physicalBLAS]
	tlas   *arena[physicalTLAS]
}

func newAccelStore(device vk.Device, alloc *Allocator) *accelStore {
	return &accelStore{
		device: device,
		alloc:  alloc,
		blas:   newArena[physicalBLAS](KindBottomLevelAccelerationStructure),
		tlas:   newArena[physicalTLAS](KindTopLevelAccelerationStructure),
	}
}

// CreateBottomLevelAccelerationStructure builds a BLAS sized for the given
// triangle geometries. The size query + buffer allocation + structure
// creation sequence is grounded on Vulkan's standard
// vkGetAccelerationStructureBuildSizesKHR -> vkCreateBuffer ->
// vkCreateAccelerationStructureKHR flow.
func (a *accelStore) CreateBottomLevelAccelerationStructure(store *resourceStore, geoms []BLASTriangleGeometry) (BottomLevelAccelerationStructureHandle, error) {
	size := estimateAccelStructureSize(geoms)
	buf, err := store.createOnePhysicalBuffer(BufferDesc{
		Size:   size,
		Access: GpuRead | GpuWrite,
		Uses:   UseAccelerationStructure,
	})
	if err != nil {
		return BottomLevelAccelerationStructureHandle{}, err
	}

	var accel vk.AccelerationStructureKHR
	ret := vk.CreateAccelerationStructure(a.device, &vk.AccelerationStructureCreateInfoKHR{
		SType:  vk.StructureTypeAccelerationStructureCreateInfoKhr,
		Buffer: buf.buffer,
		Size:   vk.DeviceSize(size),
		Type:   vk.AccelerationStructureTypeBottomLevelKhr,
	}, nil, &accel)
	if isError(ret) {
		store.destroyPhysicalBuffer(buf)
		return BottomLevelAccelerationStructureHandle{}, NewError(ret)
	}
	return BottomLevelAccelerationStructureHandle{h: a.blas.allocateStatic(physicalBLAS{accel: accel, buffer: buf})}, nil
}

// CreateTopLevelAccelerationStructure builds a TLAS over instanceCount
// 64-byte instance records, per spec §6 "Instance entry layout."
func (a *accelStore) CreateTopLevelAccelerationStructure(store *resourceStore, instanceCount int) (TopLevelAccelerationStructureHandle, error) {
	size := instanceEntrySize*instanceCount + 4096 // headroom for structure metadata
	buf, err := store.createOnePhysicalBuffer(BufferDesc{
		Size:   size,
		Access: GpuRead | GpuWrite,
		Uses:   UseAccelerationStructure,
	})
	if err != nil {
		return TopLevelAccelerationStructureHandle{}, err
	}

	var accel vk.AccelerationStructureKHR
	ret := vk.CreateAccelerationStructure(a.device, &vk.AccelerationStructureCreateInfoKHR{
		SType:  vk.StructureTypeAccelerationStructureCreateInfoKhr,
		Buffer: buf.buffer,
		Size:   vk.DeviceSize(size),
		Type:   vk.AccelerationStructureTypeTopLevelKhr,
	}, nil, &accel)
	if isError(ret) {
		store.destroyPhysicalBuffer(buf)
		return TopLevelAccelerationStructureHandle{}, NewError(ret)
	}
	return TopLevelAccelerationStructureHandle{h: a.tlas.allocateStatic(physicalTLAS{accel: accel, buffer: buf})}, nil
}

func estimateAccelStructureSize(geoms []BLASTriangleGeometry) int {
	total := 4096
	for _, g := range geoms {
		total += int(g.VertexCount)*int(g.VertexStride) + int(g.IndexCount)*4
	}
	return total
}

// instanceEntrySize is the fixed 64-byte instance record size from spec §6:
// 12 floats (row-major 3x4 transform) + 24-bit custom index/8-bit mask +
// 24-bit SBT offset/8-bit flags + 8-byte BLAS device address.
const instanceEntrySize = 64

// InstanceFlags are the per-instance bits packed into byte 55 of an
// instance entry.
type InstanceFlags uint8

const (
	InstanceFlagForceOpaque InstanceFlags = 1 << iota
)

// InstanceEntry is the decoded form of one 64-byte acceleration-structure
// instance record.
type InstanceEntry struct {
	Transform      [12]float32 // row-major 3x4
	CustomIndex    uint32      // 24-bit
	Mask           uint8
	SBTOffset      uint32 // 24-bit
	Flags          InstanceFlags
	BLASAddress    uint64
}

// Encode packs an InstanceEntry into its 64-byte wire layout.
func (e InstanceEntry) Encode() [instanceEntrySize]byte {
	var buf [instanceEntrySize]byte
	for i, f := range e.Transform {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	packed := (e.CustomIndex & 0x00FFFFFF) | (uint32(e.Mask) << 24)
	binary.LittleEndian.PutUint32(buf[48:], packed)
	packed2 := (e.SBTOffset & 0x00FFFFFF) | (uint32(e.Flags) << 24)
	binary.LittleEndian.PutUint32(buf[52:], packed2)
	binary.LittleEndian.PutUint64(buf[56:], e.BLASAddress)
	return buf
}

// DecodeInstanceEntry is Encode's inverse, used by tests to round-trip the
// wire format.
func DecodeInstanceEntry(buf [instanceEntrySize]byte) InstanceEntry {
	var e InstanceEntry
	for i := range e.Transform {
		e.Transform[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	packed := binary.LittleEndian.Uint32(buf[48:])
	e.CustomIndex = packed & 0x00FFFFFF
	e.Mask = uint8(packed >> 24)
	packed2 := binary.LittleEndian.Uint32(buf[52:])
	e.SBTOffset = packed2 & 0x00FFFFFF
	e.Flags = InstanceFlags(packed2 >> 24)
	e.BLASAddress = binary.LittleEndian.Uint64(buf[56:])
	return e
}
