package ghal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBoolToUint(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(uint32(1), boolToUint(true))
	assert.Equal(uint32(0), boolToUint(false))
}

func TestDefaultRasterState_EnablesDepthTestByDefault(t *testing.T) {
	assert := assert.New(t)

	s := defaultRasterState()
	assert.True(s.DepthTestEnable)
	assert.True(s.DepthWriteEnable)
	assert.False(s.BlendEnable)
}

// RayTracingShaderGroup generality: a hit group with only a closest-hit
// shader set should not require any-hit or intersection shaders to be valid,
// per spec's "HitGroups" entries being independently optional fields.
func TestRayTracingShaderGroup_ClosestHitOnlyIsAValidZeroValueForOthers(t *testing.T) {
	assert := assert.New(t)

	g := RayTracingShaderGroup{ClosestHit: ShaderHandle{h: Handle{kind: KindShader, index: 3}}}
	assert.True(g.ClosestHit.h.Valid())
	assert.False(g.AnyHit.h.Valid())
	assert.False(g.Intersection.h.Valid())
}

// aggregateResourceAccess must union stages/access across every shader that
// declares the same (set, binding), since a storage buffer read in the
// vertex stage and written in the fragment stage is one resource_access
// entry naming both stages and both access policies — not two separate
// entries or whichever shader happened to be aggregated last.
func TestAggregateResourceAccess_MergesAcrossShadersSharingABinding(t *testing.T) {
	assert := assert.New(t)

	vs := &physicalShader{stage: ShaderVertex, bindings: []ShaderResourceBinding{
		{Set: 0, Binding: 3, Access: AccessRead},
	}}
	fs := &physicalShader{stage: ShaderFragment, bindings: []ShaderResourceBinding{
		{Set: 0, Binding: 3, Access: AccessWrite},
		{Set: 0, Binding: 4, Access: AccessRead},
	}}

	out := aggregateResourceAccess(vs, fs)

	shared := out[resourceAccessKey{Set: 0, Binding: 3}]
	assert.True(shared.Stages.Has(StageVertexShader))
	assert.True(shared.Stages.Has(StageFragmentShader))
	assert.True(shared.Access.Has(AccessRead))
	assert.True(shared.Access.Has(AccessWrite))

	fragOnly := out[resourceAccessKey{Set: 0, Binding: 4}]
	assert.True(fragOnly.Stages.Has(StageFragmentShader))
	assert.False(fragOnly.Stages.Has(StageVertexShader))
}

// A nil shader (an optional pipeline stage the caller never supplied, e.g.
// compute-only or a hit group missing any-hit) must be skipped rather than
// panicking, since CreateRayTracingPipeline passes whatever stages a
// RayTracingShaderGroup actually set.
func TestAggregateResourceAccess_SkipsNilShaders(t *testing.T) {
	assert := assert.New(t)

	out := aggregateResourceAccess(nil, &physicalShader{stage: ShaderCompute, bindings: []ShaderResourceBinding{
		{Set: 1, Binding: 0, Access: AccessWrite},
	}})

	assert.Len(out, 1)
	assert.True(out[resourceAccessKey{Set: 1, Binding: 0}].Stages.Has(StageComputeShader))
}
