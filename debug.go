package ghal

import (
	"sync/atomic"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// DebugSink counts validation messages and routes them through a Logger,
// grounded on logger.go's three-severity-logger pattern rather than on
// anything in the teacher, which never registered a debug callback at all
// and relied on the validation layer's own stderr output. Object naming and
// labelled regions are VK_EXT_debug_utils features the teacher also never
// used; both are wired here since config.go's Logger field gives them
// somewhere to report through.
type DebugSink struct {
	log      *Logger
	messenger vk.DebugReportCallback
	instance vk.Instance
	errors   uint64
	warnings uint64
}

// newDebugSink registers a vk.DebugReportCallback that forwards messages to
// log at the matching severity and increments the error/warning counters
// has_errors() (spec 4.I) reads.
func newDebugSink(instance vk.Instance, log *Logger) (*DebugSink, error) {
	sink := &DebugSink{log: log, instance: instance}
	if !vk.GetInstanceProcAddr(instance, "vkCreateDebugReportCallbackEXT").IsValid() {
		return sink, nil
	}
	var cb vk.DebugReportCallback
	ret := vk.CreateDebugReportCallback(instance, &vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: sink.callback,
	}, nil, &cb)
	if isError(ret) {
		return nil, NewError(ret)
	}
	sink.messenger = cb
	return sink, nil
}

func (s *DebugSink) callback(flags vk.DebugReportFlags, objType vk.DebugReportObjectType, obj uint64, location uint, msgCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		atomic.AddUint64(&s.errors, 1)
		s.log.Error.Printf("[%s] %s", pLayerPrefix, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit|vk.DebugReportPerformanceWarningBit) != 0:
		atomic.AddUint64(&s.warnings, 1)
		s.log.Warn.Printf("[%s] %s", pLayerPrefix, pMessage)
	default:
		s.log.Info.Printf("[%s] %s", pLayerPrefix, pMessage)
	}
	return vk.Bool32(vk.False)
}

// HasErrors reports whether any validation error has been observed since
// device creation, per spec 4.I's has_errors() operation.
func (s *DebugSink) HasErrors() bool {
	return atomic.LoadUint64(&s.errors) > 0
}

func (s *DebugSink) ErrorCount() uint64   { return atomic.LoadUint64(&s.errors) }
func (s *DebugSink) WarningCount() uint64 { return atomic.LoadUint64(&s.warnings) }

func (s *DebugSink) Destroy() {
	if s.messenger != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(s.instance, s.messenger, nil)
	}
}

func toVkObjectType(k Kind) vk.DebugReportObjectType {
	switch k {
	case KindBuffer:
		return vk.DebugReportObjectTypeBuffer
	case KindImage:
		return vk.DebugReportObjectTypeImage
	case KindSampler:
		return vk.DebugReportObjectTypeSampler
	case KindShader:
		return vk.DebugReportObjectTypeShaderModule
	case KindPipeline:
		return vk.DebugReportObjectTypePipeline
	case KindPipelineLayout:
		return vk.DebugReportObjectTypePipelineLayout
	case KindDescriptorSet:
		return vk.DebugReportObjectTypeDescriptorSet
	case KindDescriptorSetTemplate:
		return vk.DebugReportObjectTypeDescriptorSetLayout
	case KindCommandBuffer:
		return vk.DebugReportObjectTypeCommandBuffer
	case KindSwapchain:
		return vk.DebugReportObjectTypeSwapchainKhr
	default:
		return vk.DebugReportObjectTypeUnknown
	}
}

// NameObject attaches a debug label to a driver object for capture tools,
// per spec 4.I. device is the handle SetObjectName needs to resolve the
// extension's instance-level proc address; kind/object identify what's
// being named.
func NameObject(device vk.Device, kind Kind, object uint64, name string) error {
	ret := vk.SetDebugUtilsObjectNameEXT(device, &vk.DebugUtilsObjectNameInfoEXT{
		SType:        vk.StructureTypeDebugUtilsObjectNameInfoExt,
		ObjectType:   vkObjectTypeEXT(kind),
		ObjectHandle: object,
		PObjectName:  safeString(name),
	})
	if isError(ret) {
		return NewError(ret)
	}
	return nil
}

func vkObjectTypeEXT(k Kind) vk.ObjectType {
	switch k {
	case KindBuffer:
		return vk.ObjectTypeBuffer
	case KindImage:
		return vk.ObjectTypeImage
	case KindSampler:
		return vk.ObjectTypeSampler
	case KindShader:
		return vk.ObjectTypeShaderModule
	case KindPipeline:
		return vk.ObjectTypePipeline
	case KindPipelineLayout:
		return vk.ObjectTypePipelineLayout
	case KindDescriptorSet:
		return vk.ObjectTypeDescriptorSet
	case KindDescriptorSetTemplate:
		return vk.ObjectTypeDescriptorSetLayout
	case KindCommandBuffer:
		return vk.ObjectTypeCommandBuffer
	case KindSwapchain:
		return vk.ObjectTypeSwapchainKhr
	default:
		return vk.ObjectTypeUnknown
	}
}

// BeginLabel/EndLabel bracket a named region of command buffer work,
// showing up as a group in capture tools (RenderDoc, Nsight). They take the
// raw command buffer; the recorder does not call them itself.
func BeginLabel(cmd vk.CommandBuffer, name string, color [4]float32) {
	vk.CmdBeginDebugUtilsLabelEXT(cmd, &vk.DebugUtilsLabelEXT{
		SType:      vk.StructureTypeDebugUtilsLabelExt,
		PLabelName: safeString(name),
		Color:      color,
	})
}

func EndLabel(cmd vk.CommandBuffer) {
	vk.CmdEndDebugUtilsLabelEXT(cmd)
}
