package ghal

// Config is the device-creation builder. Every field defaults off except
// Logger, matching spec 4.H: "all default-off except a logger sink."
// Grounded on asche.Features (application.go/platform.go in the teacher) and
// on core.go's Usage-keyed "Config" map, collapsed into one typed struct.
type Config struct {
	Validation     bool
	GPUValidation  bool
	APIDump        bool
	RayTracing     bool
	Sparse         bool
	GPUNameOverride string
	Logger         *Logger
}

// NewConfig returns a Config with every feature flag off and a discarding
// logger, ready to have fields set via the fluent setters below.
func NewConfig() *Config {
	return &Config{Logger: discardLogger()}
}

func (c *Config) WithValidation(v bool) *Config {
	c.Validation = v
	return c
}

func (c *Config) WithGPUValidation(v bool) *Config {
	c.GPUValidation = v
	return c
}

func (c *Config) WithAPIDump(v bool) *Config {
	c.APIDump = v
	return c
}

func (c *Config) WithRayTracing(v bool) *Config {
	c.RayTracing = v
	return c
}

func (c *Config) WithSparse(v bool) *Config {
	c.Sparse = v
	return c
}

func (c *Config) WithGPUNameOverride(name string) *Config {
	c.GPUNameOverride = name
	return c
}

func (c *Config) WithLogger(l *Logger) *Config {
	if l != nil {
		c.Logger = l
	}
	return c
}

// validationLayers returns the layer name list to enable, grounded on
// core.go's GetValidationLayers.
func (c *Config) validationLayers() []string {
	if !c.Validation {
		return nil
	}
	layers := []string{"VK_LAYER_KHRONOS_validation"}
	if c.GPUValidation {
		layers = append(layers, "VK_LAYER_KHRONOS_synchronization2")
	}
	if c.APIDump {
		layers = append(layers, "VK_LAYER_LUNARG_api_dump")
	}
	return layers
}

// BufferedFrameCount is the double/triple-buffering depth N referenced
// throughout spec §3. Fixed at device creation per the invariant that every
// DYNAMIC resource's chain length equals this count.
const BufferedFrameCount = 2

// deviceExtensions returns the device extension list to request, grounded
// on core.go's GetDeviceExtensions with swapchain always required and the
// ray-tracing/acceleration-structure extensions added when RayTracing is on.
func (c *Config) deviceExtensions() []string {
	ext := []string{"VK_KHR_swapchain", "VK_KHR_dynamic_rendering"}
	if c.RayTracing {
		ext = append(ext,
			"VK_KHR_acceleration_structure",
			"VK_KHR_ray_tracing_pipeline",
			"VK_KHR_deferred_host_operations",
			"VK_KHR_buffer_device_address",
		)
	}
	if c.Sparse {
		ext = append(ext, "VK_KHR_sparse_binding")
	}
	return ext
}

// deviceAddressCapable reports whether the allocator should opt buffers
// into VK_KHR_buffer_device_address, required by acceleration structure
// and shader binding table buffers.
func (c *Config) deviceAddressCapable() bool {
	return c.RayTracing
}
