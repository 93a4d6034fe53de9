package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrustumIdentityClipBox(t *testing.T) {
	f := ExtractFrustumFromMatrix(identity())

	assert.True(t, f.IntersectsAABB([3]float32{0, 0, 0.5}, [3]float32{0.1, 0.1, 0.1}))
	assert.False(t, f.IntersectsAABB([3]float32{5, 0, 0.5}, [3]float32{0.1, 0.1, 0.1}))
	assert.False(t, f.IntersectsAABB([3]float32{0, 0, -3}, [3]float32{0.1, 0.1, 0.1}))
	assert.True(t, f.IntersectsAABB([3]float32{1.05, 0, 0.5}, [3]float32{0.1, 0.1, 0.1}))
}

func TestFrustumOversizedBoxAlwaysVisible(t *testing.T) {
	view := make([]float32, 16)
	proj := make([]float32, 16)
	vp := make([]float32, 16)
	LookAt(view, [3]float32{0, 2, 6}, [3]float32{0, 0, 0}, [3]float32{0, 1, 0})
	Perspective(proj, 0.78, 16.0/9.0, 0.1, 100)
	Mul4(vp, proj, view)

	f := ExtractFrustumFromMatrix(vp)
	assert.True(t, f.IntersectsAABB([3]float32{}, [3]float32{500, 500, 500}))
	assert.False(t, f.IntersectsAABB([3]float32{0, 0, 40}, [3]float32{1, 1, 1}))
}

func TestFrustumPlanesNormalized(t *testing.T) {
	f := ExtractFrustumFromMatrix([]float32{2, 0, 0, 0, 0, 2, 0, 0, 0, 0, 2, 0, 0, 0, 0, 1})
	for i, p := range f.Planes {
		assert.InDelta(t, 1, Dot3(p.Normal, p.Normal), 1e-5, "plane %d", i)
	}
}
