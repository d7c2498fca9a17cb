package ghal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHandle_ZeroValueInvalid(t *testing.T) {
	assert := assert.New(t)

	var h Handle
	assert.False(h.Valid())
}

func TestArena_StaticAllocationRoundTrips(t *testing.T) {
	assert := assert.New(t)

	a := newArena[int](KindBuffer)
	h := a.allocateStatic(42)
	assert.True(h.Valid())
	assert.Equal(1, a.Depth(h))
	assert.Equal(42, *a.Get(h, 0))
	assert.Equal(42, *a.Get(h, 7)) // depth 1: any frame index resolves to the same slot
}

func TestArena_DynamicChainWrapsByFrame(t *testing.T) {
	assert := assert.New(t)

	a := newArena[string](KindImage)
	h := a.allocateDynamic([]string{"frame0", "frame1"})
	assert.Equal(2, a.Depth(h))
	assert.Equal("frame0", *a.Get(h, 0))
	assert.Equal("frame1", *a.Get(h, 1))
	assert.Equal("frame0", *a.Get(h, 2)) // wraps modulo depth
	assert.Equal("frame1", *a.Get(h, 3))
}

func TestArena_DistinctHandlesDoNotAlias(t *testing.T) {
	assert := assert.New(t)

	a := newArena[int](KindSampler)
	h1 := a.allocateStatic(1)
	h2 := a.allocateStatic(2)
	assert.NotEqual(h1, h2)
	assert.Equal(1, *a.Get(h1, 0))
	assert.Equal(2, *a.Get(h2, 0))
}

func TestArena_ReplaceSlotMutatesInPlace(t *testing.T) {
	assert := assert.New(t)

	a := newArena[int](KindBuffer)
	h := a.allocateDynamic([]int{10, 20})
	a.replaceSlot(h, 1, 99)
	assert.Equal(10, *a.Get(h, 0))
	assert.Equal(99, *a.Get(h, 1))
}

func TestArena_FirstRealAllocationIsNeverTheNullSentinel(t *testing.T) {
	assert := assert.New(t)

	a := newArena[int](KindBuffer)
	h := a.allocateStatic(7)
	assert.NotEqual(int32(0), h.index)
}
