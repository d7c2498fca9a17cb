package ghal

import (
	"fmt"
	"runtime"

	vk "github.com/vulkan-go/vulkan"
)

// ErrorKind tags a failure with the taxonomy the caller is expected to
// switch on. Recoverable kinds (Unsupported, InvalidInput, ShaderCompile,
// SurfaceLost, SwapchainOutOfDate) are returned as values; DeviceLost is
// fatal and the caller should tear the device down.
type ErrorKind int

const (
	Unsupported ErrorKind = iota
	InvalidInput
	ShaderCompile
	InvalidShaderBinary
	SurfaceLost
	SwapchainOutOfDate
	DeviceLost
)

func (k ErrorKind) String() string {
	switch k {
	case Unsupported:
		return "unsupported"
	case InvalidInput:
		return "invalid input"
	case ShaderCompile:
		return "shader compile"
	case InvalidShaderBinary:
		return "invalid shader binary"
	case SurfaceLost:
		return "surface lost"
	case SwapchainOutOfDate:
		return "swapchain out of date"
	case DeviceLost:
		return "device lost"
	default:
		return "unknown"
	}
}

// Error is the concrete error type returned by every fallible constructor
// in this package. Diagnostic carries extra multi-line detail printed after
// the message; checkErrStack fills it with a stack trace when it recovers an
// *Error, and it is empty otherwise.
type Error struct {
	Kind       ErrorKind
	Diagnostic string
	msg        string
}

func (e *Error) Error() string {
	if e.Diagnostic != "" {
		return fmt.Sprintf("%s: %s\n%s", e.Kind, e.msg, e.Diagnostic)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.msg)
}

func newErrorf(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, msg: fmt.Sprintf(format, args...)}
}

// NewError converts a raw Vulkan result into a classified *Error. Most
// driver-level failures are surfaced as Unsupported since the caller asked
// for something the selected device cannot do; acquisition failures pass
// through the frame cycle unchanged, so an out-of-date swapchain reaches the
// caller as SwapchainOutOfDate.
func NewError(ret vk.Result) error {
	if ret == vk.Success {
		return nil
	}
	switch ret {
	case vk.ErrorOutOfHostMemory, vk.ErrorOutOfDeviceMemory:
		return newErrorf(Unsupported, "vulkan error: out of memory (%d)", ret)
	case vk.ErrorDeviceLost:
		return newErrorf(DeviceLost, "vulkan error: device lost (%d)", ret)
	case vk.ErrorSurfaceLost:
		return newErrorf(SurfaceLost, "vulkan error: surface lost (%d)", ret)
	case vk.ErrorOutOfDate:
		return newErrorf(SwapchainOutOfDate, "vulkan error: swapchain out of date (%d)", ret)
	case vk.ErrorFeatureNotPresent, vk.ErrorExtensionNotPresent, vk.ErrorFormatNotSupported:
		return newErrorf(Unsupported, "vulkan error: feature unavailable (%d)", ret)
	default:
		pc, _, _, ok := runtime.Caller(1)
		if !ok {
			return newErrorf(Unsupported, "vulkan error: %d", ret)
		}
		fn := runtime.FuncForPC(pc)
		return newErrorf(Unsupported, "vulkan error: %d in %s", ret, fn.Name())
	}
}

// isError reports whether a raw Vulkan result is a failure.
func isError(ret vk.Result) bool {
	return ret != vk.Success
}

// Fatal panics if err is non-nil, for callers that treat a setup failure
// (device creation, instance creation) as unrecoverable. The package's own
// constructors return errors and do not call it.
func Fatal(err error) {
	if err != nil {
		panic(err)
	}
}

// checkErr recovers a panic into *err, turning a Fatal panic back into a
// returned error.
func checkErr(err *error) {
	if v := recover(); v != nil {
		switch e := v.(type) {
		case error:
			*err = e
		default:
			*err = fmt.Errorf("%+v", v)
		}
	}
}

// checkErrStack is checkErr but keeps a stack trace: a recovered *Error gets
// it as its Diagnostic, a plain error has it appended to its message.
func checkErrStack(err *error) {
	if v := recover(); v != nil {
		stack := make([]byte, 32*1024)
		n := runtime.Stack(stack, false)
		switch event := v.(type) {
		case *Error:
			event.Diagnostic = string(stack[:n])
			*err = event
		case error:
			*err = fmt.Errorf("%s\n%s", event.Error(), stack[:n])
		default:
			*err = fmt.Errorf("%+v\n%s", v, stack[:n])
		}
	}
}
