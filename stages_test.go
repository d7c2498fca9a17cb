package ghal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateForConsumption_PromotesColorToDepthLayoutWhenDepthTarget(t *testing.T) {
	assert := assert.New(t)

	c := Consumption{Stages: StageLateFragmentTests, Access: AccessWrite, Layout: LayoutColorAttachment}
	got := stateForConsumption(c, true)
	assert.Equal(LayoutDepthStencilAttachment, got.Layout)
	assert.True(got.touched)
}

func TestStateForConsumption_LeavesColorLayoutForColorTarget(t *testing.T) {
	assert := assert.New(t)

	c := Consumption{Stages: StageColorAttachmentOutput, Access: AccessWrite, Layout: LayoutColorAttachment}
	got := stateForConsumption(c, false)
	assert.Equal(LayoutColorAttachment, got.Layout)
}

func TestStateForConsumption_ReadAccessNeverPromotesLayout(t *testing.T) {
	assert := assert.New(t)

	c := Consumption{Stages: StageFragmentShader, Access: AccessRead, Layout: LayoutColorAttachment}
	got := stateForConsumption(c, true)
	assert.Equal(LayoutColorAttachment, got.Layout)
}

func TestTransitionState_EqualIgnoresTouchedFlag(t *testing.T) {
	assert := assert.New(t)

	a := TransitionState{Stages: StageTransfer, Access: AccessWrite, Layout: LayoutTransferDst, touched: true}
	b := TransitionState{Stages: StageTransfer, Access: AccessWrite, Layout: LayoutTransferDst, touched: false}
	assert.True(a.equal(b))
}

func TestTransitionState_DiffersOnStageAccessOrLayout(t *testing.T) {
	assert := assert.New(t)

	base := TransitionState{Stages: StageTransfer, Access: AccessWrite, Layout: LayoutTransferDst}
	assert.False(base.equal(TransitionState{Stages: StageComputeShader, Access: AccessWrite, Layout: LayoutTransferDst}))
	assert.False(base.equal(TransitionState{Stages: StageTransfer, Access: AccessRead, Layout: LayoutTransferDst}))
	assert.False(base.equal(TransitionState{Stages: StageTransfer, Access: AccessWrite, Layout: LayoutGeneral}))
}
