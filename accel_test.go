package ghal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInstanceEntry_EncodeDecodeRoundTrip(t *testing.T) {
	assert := assert.New(t)

	entry := InstanceEntry{
		Transform:   [12]float32{1, 0, 0, 5, 0, 1, 0, 6, 0, 0, 1, 7},
		CustomIndex: 0x00ABCDEF,
		Mask:        0xFF,
		SBTOffset:   0x00102030,
		Flags:       InstanceFlagForceOpaque,
		BLASAddress: 0x1122334455667788,
	}

	got := DecodeInstanceEntry(entry.Encode())
	assert.Equal(entry, got)
}

func TestInstanceEntry_CustomIndexIsMaskedTo24Bits(t *testing.T) {
	assert := assert.New(t)

	entry := InstanceEntry{CustomIndex: 0xFFFFFFFF, Mask: 0x01}
	got := DecodeInstanceEntry(entry.Encode())
	assert.Equal(uint32(0x00FFFFFF), got.CustomIndex)
	assert.Equal(uint8(0x01), got.Mask)
}

func TestInstanceEntry_SBTOffsetIsMaskedTo24Bits(t *testing.T) {
	assert := assert.New(t)

	entry := InstanceEntry{SBTOffset: 0xFFFFFFFF, Flags: InstanceFlagForceOpaque}
	got := DecodeInstanceEntry(entry.Encode())
	assert.Equal(uint32(0x00FFFFFF), got.SBTOffset)
	assert.Equal(InstanceFlagForceOpaque, got.Flags)
}

func TestInstanceEntry_EncodedSizeIs64Bytes(t *testing.T) {
	assert := assert.New(t)

	buf := InstanceEntry{}.Encode()
	assert.Len(buf, 64)
}

func TestEstimateAccelStructureSize_GrowsWithGeometry(t *testing.T) {
	assert := assert.New(t)

	empty := estimateAccelStructureSize(nil)
	withGeom := estimateAccelStructureSize([]BLASTriangleGeometry{
		{VertexCount: 3, VertexStride: 32, IndexCount: 3},
	})
	assert.Greater(withGeom, empty)
}
