package ghal

import (
	"errors"
	"testing"

	vk "github.com/vulkan-go/vulkan"

	"github.com/stretchr/testify/assert"
)

func TestNewError_SuccessIsNilError(t *testing.T) {
	assert := assert.New(t)
	assert.NoError(NewError(vk.Success))
}

func TestNewError_ClassifiesKnownResultCodes(t *testing.T) {
	assert := assert.New(t)

	var e *Error
	assert.True(errors.As(NewError(vk.ErrorDeviceLost), &e))
	assert.Equal(DeviceLost, e.Kind)

	assert.True(errors.As(NewError(vk.ErrorSurfaceLost), &e))
	assert.Equal(SurfaceLost, e.Kind)

	assert.True(errors.As(NewError(vk.ErrorOutOfDate), &e))
	assert.Equal(SwapchainOutOfDate, e.Kind)

	assert.True(errors.As(NewError(vk.ErrorOutOfHostMemory), &e))
	assert.Equal(Unsupported, e.Kind)
}

func TestError_MessageIncludesDiagnosticOnlyWhenPresent(t *testing.T) {
	assert := assert.New(t)

	plain := newErrorf(InvalidInput, "bad handle")
	assert.NotContains(plain.Error(), "\n")

	withDiag := newErrorf(ShaderCompile, "compile failed")
	withDiag.Diagnostic = "line 3: syntax error"
	assert.Contains(withDiag.Error(), "line 3: syntax error")
}

func TestCheckErr_RecoversPanicIntoError(t *testing.T) {
	assert := assert.New(t)

	fn := func() (err error) {
		defer checkErr(&err)
		panic(newErrorf(Unsupported, "boom"))
	}
	err := fn()
	if assert.Error(err) {
		var e *Error
		assert.True(errors.As(err, &e))
		assert.Equal(Unsupported, e.Kind)
	}
}

func TestCheckErr_NoPanicLeavesErrNil(t *testing.T) {
	assert := assert.New(t)

	fn := func() (err error) {
		defer checkErr(&err)
		return nil
	}
	assert.NoError(fn())
}

func TestErrorKind_StringUnknownFallsBack(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("unknown", ErrorKind(99).String())
}
