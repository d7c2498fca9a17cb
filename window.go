package ghal

import (
	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"
)

// WindowSurfaceKind tags which OS-native handle variant a WindowHandle
// carries, per spec §6's Wayland/X11/Win32 surface variants.
type WindowSurfaceKind int

const (
	SurfaceWayland WindowSurfaceKind = iota
	SurfaceX11
	SurfaceWin32
)

// WindowHandle is the sum type spec §6 describes for platform window
// surfaces: exactly one of the three native-handle shapes is populated,
// selected by Kind. GLFW (the teacher's own window toolkit, display.go) is
// kept as the harness surface provider and is wrapped behind this type
// rather than exposed directly, so a caller on any of the three platforms
// gets the same GHAL-level type.
type WindowHandle struct {
	Kind WindowSurfaceKind

	// Wayland
	WaylandDisplay uintptr
	WaylandSurface uintptr

	// X11
	X11Display uintptr
	X11Window  uint64

	// Win32
	Win32Instance uintptr
	Win32Window   uintptr

	glfwWindow *glfw.Window
}

// NewGLFWWindowHandle wraps a glfw.Window for use as a test/harness surface
// provider. Grounded on display.go's CoreDisplay, which held the *glfw.Window
// directly; here it is wrapped behind WindowHandle so swap to a native
// Wayland/X11/Win32 handle requires no change to CreateSurface's caller.
func NewGLFWWindowHandle(w *glfw.Window) WindowHandle {
	return WindowHandle{glfwWindow: w}
}

// RequiredInstanceExtensions returns the instance extensions the platform
// surface needs enabled, grounded on core.go's
// display.window.GetRequiredInstanceExtensions() call.
func (w WindowHandle) RequiredInstanceExtensions() []string {
	if w.glfwWindow != nil {
		return glfw.GetCurrentContext().GetRequiredInstanceExtensions()
	}
	switch w.Kind {
	case SurfaceWayland:
		return []string{"VK_KHR_wayland_surface"}
	case SurfaceX11:
		return []string{"VK_KHR_xlib_surface"}
	case SurfaceWin32:
		return []string{"VK_KHR_win32_surface"}
	default:
		return nil
	}
}

// CreateSurface creates a vk.Surface for this window against instance.
// Grounded on instance.go's surface-creation block inside
// NewCoreRenderInstance (display.surface == nil branch).
func (w WindowHandle) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	if w.glfwWindow != nil {
		ptr, err := w.glfwWindow.CreateWindowSurface(instance, nil)
		if err != nil {
			return vk.NullSurface, newErrorf(SurfaceLost, "glfw surface creation failed: %v", err)
		}
		return vk.SurfaceFromPointer(ptr), nil
	}
	return vk.NullSurface, newErrorf(Unsupported, "native surface creation for kind %d requires a platform build", w.Kind)
}

// FramebufferSize reports the current drawable size, used to detect a
// stale swapchain extent on resize. Grounded on display.go's GetSize.
func (w WindowHandle) FramebufferSize() (int, int) {
	if w.glfwWindow != nil {
		return w.glfwWindow.GetFramebufferSize()
	}
	return 0, 0
}
