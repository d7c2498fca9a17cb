//go:build hardware

package ghal

import (
	"runtime"
	"testing"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newHardwareWindow opens a GLFW window and initializes the Vulkan loader
// against it, mirroring the teacher's test/render_test.go setup exactly
// (LockOSThread, WindowHint(ClientAPI, NoAPI), SetGetInstanceProcAddr).
func newHardwareWindow(t *testing.T, width, height int) *glfw.Window {
	t.Helper()
	runtime.LockOSThread()
	require.NoError(t, glfw.Init())
	t.Cleanup(glfw.Terminate)

	glfw.WindowHint(glfw.Resizable, glfw.False)
	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	require.NoError(t, vk.Init())

	window, err := glfw.CreateWindow(width, height, "ghal-test", nil, nil)
	require.NoError(t, err)
	t.Cleanup(window.Destroy)
	return window
}

func openHardwareDevice(t *testing.T, rayTracing bool) *Device {
	t.Helper()
	window := newHardwareWindow(t, 64, 64)
	handle := NewGLFWWindowHandle(window)

	cfg := NewConfig().WithValidation(true).WithRayTracing(rayTracing)
	device, err := OpenDevice("ghal-test", cfg, handle.RequiredInstanceExtensions())
	require.NoError(t, err)
	t.Cleanup(device.Destroy)

	surface, err := handle.CreateSurface(device.instance)
	require.NoError(t, err)
	require.NoError(t, device.AttachSurface(surface))
	return device
}

// TestTriangleRender exercises scenario 1: a 3-vertex triangle with
// per-vertex R/G/B colors recorded into an offscreen RGBA8 target, then
// ended and executed. It checks that the recording completes and the target
// handle is valid; the rendered pixels are not read back or compared.
func TestTriangleRender(t *testing.T) {
	assert := assert.New(t)
	device := openHardwareDevice(t, false)

	const width, height = 1920, 1080
	target, err := device.Resources().CreateImage(ImageDesc{
		Extent: Extent3D{Width: width, Height: height, Depth: 1},
		Format: FormatRGBA8UnsignedNormalized,
		Access: GpuWrite | CpuRead,
		Uses:   UseColorAttachment | UseTransferSource,
	})
	require.NoError(t, err)

	type vertex struct{ x, y, z, r, g, b, a float32 }
	vertices := []vertex{
		{0, 1, 0, 1, 0, 0, 1},
		{1, -1, 0, 0, 1, 0, 1},
		{-1, -1, 0, 0, 0, 1, 1},
	}
	vbuf, err := device.Resources().CreateBuffer(BufferDesc{
		Size:   len(vertices) * 28,
		Access: CpuWrite | GpuRead,
		Uses:   UseVertexBuffer,
	})
	require.NoError(t, err)
	copy(device.Resources().GetMutBufferSlice(vbuf, 0).Bytes(), flattenVertices(vertices))

	vs, err := device.Shaders().CreateShaderFromFile("testdata/passthrough.vert.spv", ShaderVertex)
	require.NoError(t, err)
	fs, err := device.Shaders().CreateShaderFromFile("testdata/passthrough.frag.spv", ShaderFragment)
	require.NoError(t, err)

	layout, err := device.Pipelines().CreatePipelineLayout(PipelineLayoutDesc{})
	require.NoError(t, err)
	pipeline, err := device.Pipelines().CreateRasterPipeline(RasterPipelineDesc{
		Layout: layout, VertexShader: vs, FragmentShader: fs,
		ColorFormat: FormatRGBA8UnsignedNormalized,
	})
	require.NoError(t, err)

	sc, err := device.CreateSwapchain(PresentFIFO, vk.NullSwapchain)
	require.NoError(t, err)
	fc, err := device.NewFrameCycle(sc)
	require.NoError(t, err)
	tracker := device.NewStateTracker()

	key, err := fc.StartFrame(0)
	require.NoError(t, err)
	rec, err := device.BeginRecording(fc.CommandBuffer(key), tracker, key)
	require.NoError(t, err)

	targetView := device.Resources().GetImageView(target, 0)
	rec.ConsumeImage(target, Consumption{Stages: StageColorAttachmentOutput, Access: AccessWrite, Layout: LayoutColorAttachment}, false)
	rec.BeginRasterPass(Extent2D{Width: width, Height: height},
		[]ColorAttachment{{View: targetView, Clear: [4]float32{0, 0, 0, 1}}}, nil).
		BindPipeline(pipeline, layout).
		BindVertexBuffer(0, vbuf).
		Draw(3, 1).
		EndRasterPass()
	require.NoError(t, rec.End())
	rec.Execute()

	assert.NotZero(target.h.index)
}

// flattenVertices packs a slice of fixed-layout vertex structs into their
// raw little-endian byte representation for a host-visible vertex buffer.
func flattenVertices[T any](v []T) []byte {
	out := make([]byte, int(unsafe.Sizeof(v[0]))*len(v))
	for i, e := range v {
		copy(out[i*int(unsafe.Sizeof(v[0])):], (*[1 << 20]byte)(unsafe.Pointer(&e))[:unsafe.Sizeof(v[0])])
	}
	return out
}
