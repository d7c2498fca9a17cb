package ghal

import (
	"testing"

	vk "github.com/vulkan-go/vulkan"

	"github.com/stretchr/testify/assert"
)

func TestStateTracker_SnapshotIsIndependentOfLive(t *testing.T) {
	assert := assert.New(t)

	tracker := newStateTracker()
	slot := trackedSlot{handle: Handle{kind: KindImage, index: 1}, slot: 0}
	tracker.live[slot] = TransitionState{Layout: LayoutColorAttachment, touched: true}

	snap := tracker.snapshot()
	snap[slot] = TransitionState{Layout: LayoutTransferSrc, touched: true}

	assert.Equal(LayoutColorAttachment, tracker.live[slot].Layout)
}

func TestStateTracker_CommitWritesDeltasBack(t *testing.T) {
	assert := assert.New(t)

	tracker := newStateTracker()
	slot := trackedSlot{handle: Handle{kind: KindBuffer, index: 1}, slot: 0}
	deltas := map[trackedSlot]TransitionState{slot: {Layout: LayoutTransferDst, touched: true}}

	tracker.commit(deltas)
	assert.Equal(LayoutTransferDst, tracker.live[slot].Layout)
}

func TestResolveConsumption_FirstTouchHasUndefinedSource(t *testing.T) {
	assert := assert.New(t)

	deltas := map[trackedSlot]TransitionState{}
	slot := trackedSlot{handle: Handle{kind: KindImage, index: 1}, slot: 0}
	c := Consumption{Stages: StageColorAttachmentOutput, Access: AccessWrite, Layout: LayoutColorAttachment}

	barrier := resolveConsumption(deltas, slot, c, false, true, vk.Image(1), vk.Buffer(vk.NullHandle))
	if assert.NotNil(barrier) {
		assert.NotNil(barrier.image)
		assert.Equal(vk.ImageLayoutUndefined, barrier.image.OldLayout)
		assert.Equal(vk.ImageLayoutColorAttachmentOptimal, barrier.image.NewLayout)
	}
	assert.True(deltas[slot].touched)
}

func TestResolveConsumption_RepeatingTheSameConsumptionNeedsNoBarrier(t *testing.T) {
	assert := assert.New(t)

	deltas := map[trackedSlot]TransitionState{}
	slot := trackedSlot{handle: Handle{kind: KindImage, index: 1}, slot: 0}
	c := Consumption{Stages: StageFragmentShader, Access: AccessRead, Layout: LayoutShaderReadOnly}

	first := resolveConsumption(deltas, slot, c, false, true, vk.Image(1), vk.Buffer(vk.NullHandle))
	assert.NotNil(first)

	second := resolveConsumption(deltas, slot, c, false, true, vk.Image(1), vk.Buffer(vk.NullHandle))
	assert.Nil(second)
}

func TestResolveConsumption_ChangingLayoutProducesANewBarrier(t *testing.T) {
	assert := assert.New(t)

	deltas := map[trackedSlot]TransitionState{}
	slot := trackedSlot{handle: Handle{kind: KindImage, index: 1}, slot: 0}

	resolveConsumption(deltas, slot, Consumption{Stages: StageTransfer, Access: AccessWrite, Layout: LayoutTransferDst}, false, true, vk.Image(1), vk.Buffer(vk.NullHandle))
	barrier := resolveConsumption(deltas, slot, Consumption{Stages: StageFragmentShader, Access: AccessRead, Layout: LayoutShaderReadOnly}, false, true, vk.Image(1), vk.Buffer(vk.NullHandle))

	if assert.NotNil(barrier) {
		assert.Equal(vk.ImageLayoutTransferDstOptimal, barrier.image.OldLayout)
		assert.Equal(vk.ImageLayoutShaderReadOnlyOptimal, barrier.image.NewLayout)
	}
}

func TestResolveConsumption_BufferConsumptionProducesBufferBarrierNotImage(t *testing.T) {
	assert := assert.New(t)

	deltas := map[trackedSlot]TransitionState{}
	slot := trackedSlot{handle: Handle{kind: KindBuffer, index: 1}, slot: 0}
	c := Consumption{Stages: StageVertexShader, Access: AccessRead}

	barrier := resolveConsumption(deltas, slot, c, false, false, vk.Image(vk.NullHandle), vk.Buffer(1))
	if assert.NotNil(barrier) {
		assert.NotNil(barrier.buffer)
		assert.Nil(barrier.image)
	}
}

func TestToVkPipelineStage_EmptyMaskDefaultsToTopOfPipe(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(vk.PipelineStageTopOfPipeBit, toVkPipelineStage(0))
}

func TestToVkImageLayout_UnknownLayoutIsUndefined(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(vk.ImageLayoutUndefined, toVkImageLayout(Layouts(99)))
}
