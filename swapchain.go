package ghal

import (
	vk "github.com/vulkan-go/vulkan"
)

// physicalSwapchain owns the vk.Swapchain and the color images/views it
// exposes. Grounded on swapchain.go's CoreSwapchain, stripped of the
// depth-framebuffer/render-pass coupling it carried: dynamic rendering
// (REDESIGN FLAG) attaches the depth image per-draw instead of baking it
// into a vk.Framebuffer.
type physicalSwapchain struct {
	swapchain vk.Swapchain
	images    []vk.Image
	views     []vk.ImageView
	format    vk.SurfaceFormat
	extent    vk.Extent2D
	present   vk.PresentMode
}

type swapchainStore struct {
	device   vk.Device
	physical vk.PhysicalDevice
	surface  vk.Surface
	items    *arena[physicalSwapchain]
}

func newSwapchainStore(device vk.Device, physical vk.PhysicalDevice, surface vk.Surface) *swapchainStore {
	return &swapchainStore{
		device:   device,
		physical: physical,
		surface:  surface,
		items:    newArena[physicalSwapchain](KindSwapchain),
	}
}

func toVkPresentMode(p PresentationMode) vk.PresentMode {
	switch p {
	case PresentImmediate:
		return vk.PresentModeImmediate
	case PresentMailbox:
		return vk.PresentModeMailbox
	default:
		return vk.PresentModeFifo
	}
}

// CreateSwapchain negotiates a surface format/extent and builds a
// vk.Swapchain plus its color image views. Grounded on the format/extent/
// present-mode selection logic in swapchain.go's NewCoreSwapchain, minus
// the depth image and framebuffer creation it used to also do there.
func (s *swapchainStore) CreateSwapchain(depth int, present PresentationMode, old vk.Swapchain) (SwapchainHandle, error) {
	var caps vk.SurfaceCapabilities
	if ret := vk.GetPhysicalDeviceSurfaceCapabilities(s.physical, s.surface, &caps); isError(ret) {
		return SwapchainHandle{}, NewError(ret)
	}
	caps.Deref()
	caps.CurrentExtent.Deref()

	var formatCount uint32
	vk.GetPhysicalDeviceSurfaceFormats(s.physical, s.surface, &formatCount, nil)
	if formatCount == 0 {
		return SwapchainHandle{}, newErrorf(SurfaceLost, "surface reports zero supported formats")
	}
	formats := make([]vk.SurfaceFormat, formatCount)
	vk.GetPhysicalDeviceSurfaceFormats(s.physical, s.surface, &formatCount, formats)
	formats[0].Deref()
	format := formats[0]
	if format.Format == vk.FormatUndefined {
		format.Format = vk.FormatB8g8r8a8Srgb
	}

	extent := caps.CurrentExtent
	if extent.Width == vk.MaxUint32 {
		return SwapchainHandle{}, newErrorf(SurfaceLost, "surface reports no current extent")
	}

	imageCount := uint32(depth)
	if caps.MaxImageCount > 0 && imageCount > caps.MaxImageCount {
		imageCount = caps.MaxImageCount
	}
	if imageCount < caps.MinImageCount {
		imageCount = caps.MinImageCount
	}

	preTransform := caps.CurrentTransform
	if vk.SurfaceTransformFlagBits(caps.SupportedTransforms)&vk.SurfaceTransformIdentityBit != 0 {
		preTransform = vk.SurfaceTransformIdentityBit
	}

	compositeAlpha := vk.CompositeAlphaOpaqueBit
	for _, candidate := range []vk.CompositeAlphaFlagBits{
		vk.CompositeAlphaOpaqueBit,
		vk.CompositeAlphaPreMultipliedBit,
		vk.CompositeAlphaPostMultipliedBit,
		vk.CompositeAlphaInheritBit,
	} {
		if caps.SupportedCompositeAlpha&vk.CompositeAlphaFlags(candidate) != 0 {
			compositeAlpha = candidate
			break
		}
	}

	var sc vk.Swapchain
	ret := vk.CreateSwapchain(s.device, &vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          s.surface,
		MinImageCount:    imageCount,
		ImageFormat:      format.Format,
		ImageColorSpace:  format.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit | vk.ImageUsageTransferDstBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     preTransform,
		CompositeAlpha:   compositeAlpha,
		PresentMode:      toVkPresentMode(present),
		Clipped:          vk.True,
		OldSwapchain:     old,
	}, nil, &sc)
	if isError(ret) {
		return SwapchainHandle{}, NewError(ret)
	}
	if old != vk.NullSwapchain {
		vk.DestroySwapchain(s.device, old, nil)
	}

	var imgCount uint32
	vk.GetSwapchainImages(s.device, sc, &imgCount, nil)
	images := make([]vk.Image, imgCount)
	vk.GetSwapchainImages(s.device, sc, &imgCount, images)

	views := make([]vk.ImageView, imgCount)
	for i, img := range images {
		var view vk.ImageView
		ret := vk.CreateImageView(s.device, &vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    img,
			ViewType: vk.ImageViewType2d,
			Format:   format.Format,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}, nil, &view)
		if isError(ret) {
			return SwapchainHandle{}, NewError(ret)
		}
		views[i] = view
	}

	ps := physicalSwapchain{
		swapchain: sc,
		images:    images,
		views:     views,
		format:    format,
		extent:    extent,
		present:   toVkPresentMode(present),
	}
	return SwapchainHandle{h: s.items.allocateStatic(ps)}, nil
}

func (s *swapchainStore) get(h SwapchainHandle) *physicalSwapchain {
	return s.items.Get(h.h, 0)
}

// ImageCount reports how many color images the swapchain cycles through.
func (s *swapchainStore) ImageCount(h SwapchainHandle) int {
	return len(s.get(h).images)
}

// Extent returns the swapchain's current pixel extent.
func (s *swapchainStore) Extent(h SwapchainHandle) Extent2D {
	e := s.get(h).extent
	return Extent2D{Width: e.Width, Height: e.Height}
}

// AcquireNextImage waits up to timeoutNanos for a presentable image and
// signals acquireSemaphore when one is ready, per spec §4.G
// acquire_swapchain_image. A SwapchainOutOfDate/SurfaceLost result is
// returned to the caller rather than retried here, and a Suboptimal result is
// returned as a successful acquire; neither this store nor the frame cycle
// recreates the swapchain, the caller does.
func (s *swapchainStore) AcquireNextImage(h SwapchainHandle, timeoutNanos uint64, acquireSemaphore vk.Semaphore) (uint32, error) {
	ps := s.get(h)
	var index uint32
	ret := vk.AcquireNextImage(s.device, ps.swapchain, timeoutNanos, acquireSemaphore, vk.NullFence, &index)
	if ret == vk.Suboptimal {
		return index, nil
	}
	if isError(ret) {
		return 0, NewError(ret)
	}
	return index, nil
}

// Present submits image for presentation, waiting on waitSemaphore.
func (s *swapchainStore) Present(h SwapchainHandle, queue vk.Queue, waitSemaphore vk.Semaphore, image uint32) error {
	ps := s.get(h)
	ret := vk.QueuePresent(queue, &vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{waitSemaphore},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{ps.swapchain},
		PImageIndices:      []uint32{image},
	})
	if isError(ret) {
		return NewError(ret)
	}
	return nil
}

// ColorImageView returns the view for the given presentable image index,
// for binding the swapchain image as a dynamic-rendering color attachment.
func (s *swapchainStore) ColorImageView(h SwapchainHandle, index uint32) vk.ImageView {
	return s.get(h).views[index]
}

func (s *swapchainStore) ColorImage(h SwapchainHandle, index uint32) vk.Image {
	return s.get(h).images[index]
}

func (s *swapchainStore) Destroy(h SwapchainHandle) {
	ps := s.get(h)
	for _, v := range ps.views {
		vk.DestroyImageView(s.device, v, nil)
	}
	if ps.swapchain != vk.NullSwapchain {
		vk.DestroySwapchain(s.device, ps.swapchain, nil)
	}
}
