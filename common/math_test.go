package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func identity() []float32 {
	m := make([]float32, 16)
	Identity(m)
	return m
}

func transformPoint(m []float32, p [3]float32) [4]float32 {
	var out [4]float32
	for row := 0; row < 4; row++ {
		out[row] = m[0*4+row]*p[0] + m[1*4+row]*p[1] + m[2*4+row]*p[2] + m[3*4+row]
	}
	return out
}

func TestMul4Identity(t *testing.T) {
	a := []float32{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	out := make([]float32, 16)
	Mul4(out, a, identity())
	assert.Equal(t, a, out)

	Mul4(out, identity(), a)
	assert.Equal(t, a, out)
}

func TestInvert4RoundTrip(t *testing.T) {
	view := make([]float32, 16)
	LookAt(view, [3]float32{3, 4, 5}, [3]float32{0, 0, 0}, [3]float32{0, 1, 0})

	inv := make([]float32, 16)
	require.True(t, Invert4(inv, view))

	prod := make([]float32, 16)
	Mul4(prod, view, inv)
	want := identity()
	for i := range want {
		assert.InDelta(t, want[i], prod[i], 1e-5, "element %d", i)
	}
}

func TestInvert4Singular(t *testing.T) {
	out := identity()
	assert.False(t, Invert4(out, make([]float32, 16)))
	assert.Equal(t, identity(), out)
}

func TestLookAtMovesTargetOntoNegativeZ(t *testing.T) {
	view := make([]float32, 16)
	LookAt(view, [3]float32{0, 0, 5}, [3]float32{0, 0, 0}, [3]float32{0, 1, 0})

	p := transformPoint(view, [3]float32{0, 0, 0})
	assert.InDelta(t, 0, p[0], 1e-6)
	assert.InDelta(t, 0, p[1], 1e-6)
	assert.InDelta(t, -5, p[2], 1e-6)
	assert.InDelta(t, 1, p[3], 1e-6)
}

func TestPerspectiveDepthRange(t *testing.T) {
	proj := make([]float32, 16)
	Perspective(proj, 1, 1, 0.1, 100)

	near := transformPoint(proj, [3]float32{0, 0, -0.1})
	far := transformPoint(proj, [3]float32{0, 0, -100})
	assert.InDelta(t, 0, near[2]/near[3], 1e-5)
	assert.InDelta(t, 1, far[2]/far[3], 1e-5)
}

func TestCeilDiv(t *testing.T) {
	assert.Equal(t, uint32(1), CeilDiv(1, 64))
	assert.Equal(t, uint32(1), CeilDiv(64, 64))
	assert.Equal(t, uint32(2), CeilDiv(65, 64))
	assert.Equal(t, uint32(0), CeilDiv(0, 64))
	assert.Equal(t, uint32(67108864), CeilDiv(^uint32(0), 64))
}

func TestCoalesce(t *testing.T) {
	assert.Equal(t, "b", Coalesce("", "b", "c"))
	assert.Equal(t, 0, Coalesce(0, 0))
}
