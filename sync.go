package ghal

import vk "github.com/vulkan-go/vulkan"

// physicalSynchronizer bundles the binary semaphore + fence pair the
// frame cycle waits/signals on. Grounded on instance.go's PerFrame (which
// inlines exactly this pair per swapchain slot); here it is its own
// addressable resource so a caller can create as many as a given submission
// graph needs instead of being limited to one per frame.
type physicalSynchronizer struct {
	semaphore vk.Semaphore
	fence     vk.Fence
}

type synchronizerStore struct {
	device vk.Device
	items  *arena[physicalSynchronizer]
}

func newSynchronizerStore(device vk.Device) *synchronizerStore {
	return &synchronizerStore{device: device, items: newArena[physicalSynchronizer](KindSynchronizer)}
}

// CreateSynchronizer allocates a semaphore + fence pair. The fence is
// created pre-signaled so the first wait() on a freshly created
// synchronizer returns immediately, matching instance.go's
// FenceCreateSignaledBit.
func (s *synchronizerStore) CreateSynchronizer(name string) (SynchronizerHandle, error) {
	var sem vk.Semaphore
	if ret := vk.CreateSemaphore(s.device, &vk.SemaphoreCreateInfo{
		SType: vk.StructureTypeSemaphoreCreateInfo,
	}, nil, &sem); isError(ret) {
		return SynchronizerHandle{}, NewError(ret)
	}
	var fence vk.Fence
	if ret := vk.CreateFence(s.device, &vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
		Flags: vk.FenceCreateFlags(vk.FenceCreateSignaledBit),
	}, nil, &fence); isError(ret) {
		vk.DestroySemaphore(s.device, sem, nil)
		return SynchronizerHandle{}, NewError(ret)
	}
	return SynchronizerHandle{h: s.items.allocateStatic(physicalSynchronizer{semaphore: sem, fence: fence})}, nil
}

func (s *synchronizerStore) get(h SynchronizerHandle) *physicalSynchronizer {
	return s.items.Get(h.h, 0)
}

// Wait blocks the calling thread on h's fence for up to 5 seconds (spec §5
// "Suspension points"), then resets it, per spec §4.G.
func (s *synchronizerStore) Wait(h SynchronizerHandle) error {
	const timeoutNanos = 5 * 1_000_000_000
	ps := s.get(h)
	ret := vk.WaitForFences(s.device, 1, []vk.Fence{ps.fence}, vk.True, timeoutNanos)
	if isError(ret) {
		return NewError(ret)
	}
	return NewError(vk.ResetFences(s.device, 1, []vk.Fence{ps.fence}))
}

func (s *synchronizerStore) Destroy(h SynchronizerHandle) {
	ps := s.get(h)
	if ps.semaphore != vk.NullSemaphore {
		vk.DestroySemaphore(s.device, ps.semaphore, nil)
	}
	if ps.fence != vk.NullFence {
		vk.DestroyFence(s.device, ps.fence, nil)
	}
}
