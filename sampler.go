package ghal

import vk "github.com/vulkan-go/vulkan"

// FilteringMode and SamplerAddressingMode mirror the
// teacher's direct vk.Filter/vk.SamplerAddressMode usage (swapchain.go never
// creates a sampler, but buffers.go's descriptor-layout code establishes the
// same "declare then translate to vk enum" shape this follows).
type FilteringMode int

const (
	FilterNearest FilteringMode = iota
	FilterLinear
)

type SamplerAddressingMode int

const (
	AddressRepeat SamplerAddressingMode = iota
	AddressClampToEdge
	AddressClampToBorder
	AddressMirroredRepeat
)

type SamplerDesc struct {
	MinFilter, MagFilter FilteringMode
	AddressMode          SamplerAddressingMode
	Name                 string
}

func toVkFilter(f FilteringMode) vk.Filter {
	if f == FilterLinear {
		return vk.FilterLinear
	}
	return vk.FilterNearest
}

func toVkAddressMode(a SamplerAddressingMode) vk.SamplerAddressMode {
	switch a {
	case AddressClampToEdge:
		return vk.SamplerAddressModeClampToEdge
	case AddressClampToBorder:
		return vk.SamplerAddressModeClampToBorder
	case AddressMirroredRepeat:
		return vk.SamplerAddressModeMirroredRepeat
	default:
		return vk.SamplerAddressModeRepeat
	}
}

func (s *resourceStore) CreateSampler(d SamplerDesc) (SamplerHandle, error) {
	var sampler vk.Sampler
	ret := vk.CreateSampler(s.device, &vk.SamplerCreateInfo{
		SType:        vk.StructureTypeSamplerCreateInfo,
		MinFilter:    toVkFilter(d.MinFilter),
		MagFilter:    toVkFilter(d.MagFilter),
		AddressModeU: toVkAddressMode(d.AddressMode),
		AddressModeV: toVkAddressMode(d.AddressMode),
		AddressModeW: toVkAddressMode(d.AddressMode),
	}, nil, &sampler)
	if isError(ret) {
		return SamplerHandle{}, NewError(ret)
	}
	return SamplerHandle{h: s.samplers.allocateStatic(physicalSampler{sampler: sampler})}, nil
}

func (s *resourceStore) DestroySampler(h SamplerHandle) {
	ps := s.samplers.Get(h.h, 0)
	if ps.sampler != vk.NullSampler {
		vk.DestroySampler(s.device, ps.sampler, nil)
	}
}
