package ghal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDispatchExtent_CeilDivision(t *testing.T) {
	assert := assert.New(t)

	d := NewDispatchExtent(Extent3D{Width: 65, Height: 64, Depth: 1}, Extent3D{Width: 64, Height: 64, Depth: 1})
	e := d.GetExtent()
	assert.Equal(uint32(2), e.Width) // 65 does not divide evenly by 64
	assert.Equal(uint32(1), e.Height)
	assert.Equal(uint32(1), e.Depth)
}

func TestDispatchExtent_ExactMultiple(t *testing.T) {
	assert := assert.New(t)

	d := NewDispatchExtent(Extent3D{Width: 128, Height: 128, Depth: 1}, Extent3D{Width: 64, Height: 64, Depth: 1})
	e := d.GetExtent()
	assert.Equal(uint32(2), e.Width)
	assert.Equal(uint32(2), e.Height)
}

func TestDispatchExtent_ZeroWorkgroupIsZeroNotPanic(t *testing.T) {
	assert := assert.New(t)

	d := NewDispatchExtent(Extent3D{Width: 64}, Extent3D{Width: 0})
	assert.Equal(uint32(0), d.GetExtent().Width)
}

func TestDispatchExtent_ScenarioSixExactCases(t *testing.T) {
	assert := assert.New(t)

	total := Extent3D{Width: 10, Height: 10, Depth: 10}
	assert.Equal(Extent3D{Width: 2, Height: 2, Depth: 2}, NewDispatchExtent(total, Extent3D{Width: 5, Height: 5, Depth: 5}).GetExtent())
	assert.Equal(Extent3D{Width: 4, Height: 4, Depth: 4}, NewDispatchExtent(total, Extent3D{Width: 3, Height: 3, Depth: 3}).GetExtent())
}

func TestExtent3D_To2DDropsDepth(t *testing.T) {
	assert := assert.New(t)

	e := Extent3D{Width: 800, Height: 600, Depth: 4}
	got := e.To2D()
	assert.Equal(Extent2D{Width: 800, Height: 600}, got)
}
