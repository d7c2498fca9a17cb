package ghal

import (
	"bytes"
	"testing"

	vk "github.com/vulkan-go/vulkan"

	"github.com/stretchr/testify/assert"
)

func newTestDebugSink() (*DebugSink, *bytes.Buffer, *bytes.Buffer, *bytes.Buffer) {
	var info, warn, errBuf bytes.Buffer
	log := NewWriterLogger(&info, &warn, &errBuf)
	return &DebugSink{log: log}, &info, &warn, &errBuf
}

func TestDebugSink_CallbackRoutesErrorsAndCountsThem(t *testing.T) {
	assert := assert.New(t)

	sink, _, _, errBuf := newTestDebugSink()
	sink.callback(vk.DebugReportFlags(vk.DebugReportErrorBit), vk.DebugReportObjectTypeUnknown, 0, 0, 0, "VK_LAYER_TEST", "something broke", nil)

	assert.True(sink.HasErrors())
	assert.Equal(uint64(1), sink.ErrorCount())
	assert.Equal(uint64(0), sink.WarningCount())
	assert.Contains(errBuf.String(), "something broke")
}

func TestDebugSink_CallbackRoutesWarningsWithoutCountingAsErrors(t *testing.T) {
	assert := assert.New(t)

	sink, _, warnBuf, _ := newTestDebugSink()
	sink.callback(vk.DebugReportFlags(vk.DebugReportWarningBit), vk.DebugReportObjectTypeUnknown, 0, 0, 0, "VK_LAYER_TEST", "minor issue", nil)

	assert.False(sink.HasErrors())
	assert.Equal(uint64(1), sink.WarningCount())
	assert.Contains(warnBuf.String(), "minor issue")
}

func TestDebugSink_CallbackRoutesInformationalMessagesToInfo(t *testing.T) {
	assert := assert.New(t)

	sink, info, _, _ := newTestDebugSink()
	sink.callback(vk.DebugReportFlags(vk.DebugReportInformationBit), vk.DebugReportObjectTypeUnknown, 0, 0, 0, "VK_LAYER_TEST", "fyi", nil)

	assert.Equal(uint64(0), sink.ErrorCount())
	assert.Equal(uint64(0), sink.WarningCount())
	assert.Contains(info.String(), "fyi")
}

func TestVkObjectTypeEXT_KnownKindsMapToDistinctTypes(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(vk.ObjectTypeBuffer, vkObjectTypeEXT(KindBuffer))
	assert.Equal(vk.ObjectTypeImage, vkObjectTypeEXT(KindImage))
	assert.Equal(vk.ObjectTypeUnknown, vkObjectTypeEXT(KindAllocation))
}

func TestToVkObjectType_KnownKindsMapToDistinctTypes(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(vk.DebugReportObjectTypeBuffer, toVkObjectType(KindBuffer))
	assert.Equal(vk.DebugReportObjectTypeSwapchainKhr, toVkObjectType(KindSwapchain))
	assert.Equal(vk.DebugReportObjectTypeUnknown, toVkObjectType(KindAllocation))
}
