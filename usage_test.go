package ghal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDeviceAccesses_HostVisible(t *testing.T) {
	assert := assert.New(t)

	assert.True((CpuRead).HostVisible())
	assert.True((CpuWrite).HostVisible())
	assert.False((GpuRead | GpuWrite).HostVisible())
}

func TestUses_BlitAndTransferBitsAlias(t *testing.T) {
	assert := assert.New(t)

	// Preserved ambiguity: a buffer/image declared UseTransferSource also
	// reports true for UseBlitSource and vice versa, since they share bit 9.
	u := UseTransferSource
	assert.True(u.Has(UseBlitSource))

	u = UseBlitDestination
	assert.True(u.Has(UseTransferDestination))
}

func TestUses_DistinctFlagsDoNotAlias(t *testing.T) {
	assert := assert.New(t)

	u := UseVertexBuffer | UseStorageImage
	assert.True(u.Has(UseVertexBuffer))
	assert.True(u.Has(UseStorageImage))
	assert.False(u.Has(UseIndexBuffer))
	assert.False(u.Has(UseSampledImage))
}
