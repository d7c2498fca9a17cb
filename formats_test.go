package ghal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat_Size(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(1, FormatR8UnsignedNormalized.Size())
	assert.Equal(4, FormatRGBA8UnsignedNormalized.Size())
	assert.Equal(4, FormatDepth32.Size())
	assert.Equal(8, FormatRGBA16Float.Size())
	assert.Equal(16, FormatRGBA32Float.Size())
}

func TestFormat_BlockCompressedSizesAreBlockSizes(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(8, FormatBC5.Size())
	assert.Equal(16, FormatBC7.Size())
	assert.True(FormatBC5.IsBlockCompressed())
	assert.False(FormatRGBA8UnsignedNormalized.IsBlockCompressed())
}

func TestFormat_IsDepthOnlyTrueForDepth32(t *testing.T) {
	assert := assert.New(t)

	assert.True(FormatDepth32.IsDepth())
	assert.False(FormatRGBA8UnsignedNormalized.IsDepth())
}
