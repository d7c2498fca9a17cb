package ghal

import (
	vk "github.com/vulkan-go/vulkan"
)

// queueFamily tracks one queue family's reported properties and whether a
// queue from it has already been handed out. Adapted from queue.go's
// CoreQueue, generalized to operate on a single physical device rather than
// holding device-creation state itself.
type queueFamily struct {
	properties vk.QueueFamilyProperties
	bound      bool
}

func enumerateQueueFamilies(gpu vk.PhysicalDevice) []queueFamily {
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, nil)
	props := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &count, props)
	families := make([]queueFamily, count)
	for i, p := range props {
		p.Deref()
		families[i] = queueFamily{properties: p}
	}
	return families
}

func findQueueFamily(families []queueFamily, flags vk.QueueFlagBits) (int, bool) {
	for i := range families {
		if vk.QueueFlagBits(families[i].properties.QueueFlags)&flags == flags {
			return i, true
		}
	}
	return 0, false
}

// Device is the negotiated graphics-capable logical device this package
// drives. It replaces device.go's CoreDevice + instance.go's
// CoreRenderInstance with a single object owning exactly the state every
// other component needs: the vk.Device handle, its chosen queue, and the
// resource/synchronizer/accel stores keyed off it.
type Device struct {
	instance       vk.Instance
	physical       vk.PhysicalDevice
	physicalProps  vk.PhysicalDeviceProperties
	memProps       vk.PhysicalDeviceMemoryProperties
	handle         vk.Device
	graphicsFamily uint32
	graphicsQueue  vk.Queue

	config *Config
	alloc  *Allocator
	res    *resourceStore
	sync   *synchronizerStore
	accel  *accelStore
	shaders *shaderStore
	pipes   *pipelineManager
	descs   *descriptorManager
	debug   *DebugSink

	surface      vk.Surface
	surfaceFmt   vk.SurfaceFormat
	depthFormat  vk.Format
	swapchains   *swapchainStore
}

// OpenDevice creates a vk.Instance, selects the first physical device that
// exposes a graphics-capable queue family (presentation support is not
// checked), and opens a vk.Device + graphics queue against
// it. Grounded on core.go's CreateGraphicsInstance and instance.go's Init,
// generalized to not assume a GLFW-owned surface exists yet (CreateSurface
// must be called before a swapchain can be made, per spec §4.H's "surface
// negotiation happens lazily, after device selection").
func OpenDevice(appName string, cfg *Config, requiredInstanceExtensions []string) (*Device, error) {
	if cfg == nil {
		cfg = NewConfig()
	}

	layers := cfg.validationLayers()
	var instance vk.Instance
	ret := vk.CreateInstance(&vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:              vk.StructureTypeApplicationInfo,
			ApiVersion:         uint32(vk.MakeVersion(1, 3, 0)),
			ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
			PApplicationName:   safeString(appName),
			PEngineName:        safeString("ghal"),
		},
		EnabledExtensionCount:   uint32(len(requiredInstanceExtensions)),
		PpEnabledExtensionNames: safeStrings(requiredInstanceExtensions),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     safeStrings(layers),
	}, nil, &instance)
	if isError(ret) {
		return nil, NewError(ret)
	}

	d := &Device{instance: instance, config: cfg}

	var gpuCount uint32
	vk.EnumeratePhysicalDevices(instance, &gpuCount, nil)
	if gpuCount == 0 {
		return nil, newErrorf(Unsupported, "no physical devices reported by the Vulkan loader")
	}
	gpus := make([]vk.PhysicalDevice, gpuCount)
	vk.EnumeratePhysicalDevices(instance, &gpuCount, gpus)

	found := false
	for _, gpu := range gpus {
		families := enumerateQueueFamilies(gpu)
		if idx, ok := findQueueFamily(families, vk.QueueGraphicsBit); ok {
			d.physical = gpu
			d.graphicsFamily = uint32(idx)
			found = true
			break
		}
	}
	if !found {
		vk.DestroyInstance(instance, nil)
		return nil, newErrorf(Unsupported, "no device exposes a graphics-capable queue family")
	}

	vk.GetPhysicalDeviceProperties(d.physical, &d.physicalProps)
	d.physicalProps.Deref()
	vk.GetPhysicalDeviceMemoryProperties(d.physical, &d.memProps)
	d.memProps.Deref()

	deviceExtensions := cfg.deviceExtensions()
	queuePriority := float32(1.0)
	ret = vk.CreateDevice(d.physical, &vk.DeviceCreateInfo{
		SType:                vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount: 1,
		PQueueCreateInfos: []vk.DeviceQueueCreateInfo{{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: d.graphicsFamily,
			QueueCount:       1,
			PQueuePriorities: []float32{queuePriority},
		}},
		EnabledExtensionCount:   uint32(len(deviceExtensions)),
		PpEnabledExtensionNames: safeStrings(deviceExtensions),
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     safeStrings(layers),
	}, nil, &d.handle)
	if isError(ret) {
		vk.DestroyInstance(instance, nil)
		return nil, NewError(ret)
	}

	vk.GetDeviceQueue(d.handle, d.graphicsFamily, 0, &d.graphicsQueue)

	d.alloc = NewAllocator(d.handle, d.memProps, cfg.deviceAddressCapable())
	d.res = newResourceStore(d.handle, d.alloc, BufferedFrameCount)
	d.sync = newSynchronizerStore(d.handle)
	d.accel = newAccelStore(d.handle, d.alloc)
	d.shaders = newShaderStore(d.handle)

	var err error
	const maxDescriptorSets = 256
	d.descs, err = newDescriptorManager(d.handle, BufferedFrameCount, maxDescriptorSets)
	if err != nil {
		vk.DestroyDevice(d.handle, nil)
		vk.DestroyInstance(instance, nil)
		return nil, err
	}
	d.pipes = newPipelineManager(d.handle, d.shaders, d.descs.templates)

	if cfg.Validation {
		d.debug, err = newDebugSink(instance, cfg.Logger)
		if err != nil {
			return nil, err
		}
	}

	return d, nil
}

// AttachSurface binds a platform surface (created by the window package)
// to this device and selects a surface format, grounded on swapchain.go's
// format-selection block inside NewCoreSwapchain.
func (d *Device) AttachSurface(surface vk.Surface) error {
	d.surface = surface

	var formatCount uint32
	vk.GetPhysicalDeviceSurfaceFormats(d.physical, surface, &formatCount, nil)
	if formatCount == 0 {
		return newErrorf(SurfaceLost, "surface reports zero supported formats")
	}
	formats := make([]vk.SurfaceFormat, formatCount)
	vk.GetPhysicalDeviceSurfaceFormats(d.physical, surface, &formatCount, formats)
	formats[0].Deref()
	chosen := formats[0]
	if chosen.Format == vk.FormatUndefined {
		chosen.Format = vk.FormatB8g8r8a8Srgb
	}
	d.surfaceFmt = chosen
	d.depthFormat = vk.FormatD32Sfloat
	d.swapchains = newSwapchainStore(d.handle, d.physical, surface)
	return nil
}

// CreateSwapchain builds (or rebuilds, passing old as its replacement
// target) a swapchain against the attached surface. AttachSurface must be
// called first.
func (d *Device) CreateSwapchain(present PresentationMode, old vk.Swapchain) (SwapchainHandle, error) {
	return d.swapchains.CreateSwapchain(BufferedFrameCount, present, old)
}

// NewFrameCycle builds a FrameCycle against sc, driving depth buffered
// frames through this device's graphics queue.
func (d *Device) NewFrameCycle(sc SwapchainHandle) (*FrameCycle, error) {
	return NewFrameCycle(d.handle, d.graphicsQueue, d.graphicsFamily, d.sync, d.swapchains, sc, BufferedFrameCount)
}

// BeginRecording starts a new Recorder for cmd against this device's
// resource/pipeline/descriptor state and shared barrier tracker. frame
// selects which physical slot of every multi-frame resource this recording
// sees, via frame.FrameIndex.
func (d *Device) BeginRecording(cmd vk.CommandBuffer, tracker *stateTracker, frame FrameKey) (*Recorder, error) {
	return BeginRecording(d.handle, cmd, d.res, d.pipes, d.descs, tracker, frame.FrameIndex)
}

// ResizeBuffer reallocates every physical buffer in h's chain to newSize and
// rewrites every descriptor binding that referenced h, per spec §4.A: "walks
// the back-map and rewrites every descriptor binding that referenced the
// resource." resourceStore.ResizeBuffer only owns physical storage; this
// wrapper is what actually fulfills the resize contract end to end.
func (d *Device) ResizeBuffer(h BufferHandle, newSize int, desc BufferDesc) error {
	if err := d.res.ResizeBuffer(h, newSize, desc); err != nil {
		return err
	}
	return d.descs.RewriteBindingsFor(h.h, d.res)
}

// ResizeImage reallocates every physical image in h's chain to extent and
// rewrites every descriptor binding that referenced h, per spec §4.A/§8's
// "every binding referencing h now targets the new physical image view."
func (d *Device) ResizeImage(h ImageHandle, extent Extent3D, desc ImageDesc) error {
	if err := d.res.ResizeImage(h, extent, desc); err != nil {
		return err
	}
	return d.descs.RewriteBindingsFor(h.h, d.res)
}

func (d *Device) Resources() *resourceStore     { return d.res }
func (d *Device) Synchronizers() *synchronizerStore { return d.sync }
func (d *Device) AccelStructures() *accelStore  { return d.accel }
func (d *Device) Shaders() *shaderStore         { return d.shaders }
func (d *Device) Pipelines() *pipelineManager   { return d.pipes }
func (d *Device) Descriptors() *descriptorManager { return d.descs }
func (d *Device) Swapchains() *swapchainStore   { return d.swapchains }
func (d *Device) Debug() *DebugSink             { return d.debug }

// ColorFormat/DepthFormat return the negotiated surface/depth formats as
// this package's Format type, for building matching pipeline descriptions.
func (d *Device) ColorFormat() Format {
	return fromVkFormat(d.surfaceFmt.Format)
}

func (d *Device) DepthFormat() Format { return FormatDepth32 }

// GPUName returns the selected physical device's reported name, used by
// cmd/ghalinfo to confirm which GPU a negotiation run picked.
func (d *Device) GPUName() string {
	return vk.ToString(d.physicalProps.DeviceName[:])
}

// APIVersion returns the device's reported Vulkan API version as (major,
// minor, patch).
func (d *Device) APIVersion() (uint32, uint32, uint32) {
	v := d.physicalProps.ApiVersion
	return vk.Version(v).Major(), vk.Version(v).Minor(), vk.Version(v).Patch()
}

// GraphicsQueueFamily returns the index of the queue family this device
// opened its graphics queue against.
func (d *Device) GraphicsQueueFamily() uint32 { return d.graphicsFamily }

// EnabledExtensions returns the device extension list negotiated at
// OpenDevice time, for diagnostic reporting.
func (d *Device) EnabledExtensions() []string { return d.config.deviceExtensions() }

// NewStateTracker allocates a fresh resource-state tracker for this device,
// per spec §3 "Resource state is retained across recordings" — one tracker
// is shared across every Recorder a caller opens against the same resource
// set.
func (d *Device) NewStateTracker() *stateTracker { return newStateTracker() }

// Destroy tears the device down in reverse dependency order. Grounded on
// instance.go's teardown/release.
func (d *Device) Destroy() {
	vk.DeviceWaitIdle(d.handle)
	if d.descs != nil {
		d.descs.Destroy()
	}
	if d.debug != nil {
		d.debug.Destroy()
	}
	if d.surface != vk.NullSurface {
		vk.DestroySurface(d.instance, d.surface, nil)
	}
	vk.DestroyDevice(d.handle, nil)
	vk.DestroyInstance(d.instance, nil)
}

func safeString(s string) string { return s + "\x00" }

func safeStrings(list []string) []string {
	out := make([]string, len(list))
	for i, s := range list {
		out[i] = safeString(s)
	}
	return out
}

