package camera

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrbitControllerPosition(t *testing.T) {
	cc := NewOrbitController(WithRadius(10), WithElevation(0), WithAzimuth(0), WithTarget(1, 2, 3))
	p := cc.Position()
	assert.InDelta(t, 1, p[0], 1e-5)
	assert.InDelta(t, 2, p[1], 1e-5)
	assert.InDelta(t, 13, p[2], 1e-5)
	assert.Equal(t, [3]float32{1, 2, 3}, cc.Target())
}

func TestZoomClampsToBounds(t *testing.T) {
	cc := NewOrbitController(WithRadius(5), WithRadiusBounds(2, 8))
	cc.Zoom(100)
	assert.InDelta(t, 2, cc.Radius(), 1e-6)
	cc.Zoom(-100)
	assert.InDelta(t, 8, cc.Radius(), 1e-6)
}

func TestCameraFrustumSeesTarget(t *testing.T) {
	c := NewCamera(WithAspect(1))
	f := c.Frustum()
	assert.True(t, f.IntersectsAABB([3]float32{0, 0, 0}, [3]float32{0.1, 0.1, 0.1}))

	behind := c.Controller().Position()
	behind[0], behind[1], behind[2] = behind[0]*3, behind[1]*3, behind[2]*3
	assert.False(t, f.IntersectsAABB(behind, [3]float32{0.1, 0.1, 0.1}))
}

func TestCameraUniformLayout(t *testing.T) {
	c := NewCamera()
	u := c.Uniform()
	assert.Equal(t, 80, u.Size())
	assert.Equal(t, c.ViewProjectionMatrix(), u.ViewProj)
	assert.Equal(t, c.Controller().Position(), u.CameraPosition)

	buf := u.Marshal()
	require.Len(t, buf, 80)
	assert.Equal(t, []byte{0, 0, 0, 0}, buf[76:80])
}

func TestSetAspectIgnoresNonPositive(t *testing.T) {
	c := NewCamera(WithAspect(2))
	before := c.ViewProjectionMatrix()
	c.SetAspect(0)
	assert.Equal(t, float32(2), c.Aspect())
	assert.Equal(t, before, c.ViewProjectionMatrix())

	c.SetAspect(1)
	assert.NotEqual(t, before, c.ViewProjectionMatrix())
}

func TestWithFovNarrowsFrustum(t *testing.T) {
	eye := func() CameraController {
		return NewOrbitController(WithRadius(10), WithElevation(0), WithAzimuth(0))
	}
	side := [3]float32{4, 0, 0}
	extent := [3]float32{0.1, 0.1, 0.1}

	wide := NewCamera(WithAspect(1), WithFov(math32.Pi/2), WithController(eye()))
	assert.True(t, wide.Frustum().IntersectsAABB(side, extent))

	narrow := NewCamera(WithAspect(1), WithFov(math32.Pi/6), WithController(eye()))
	assert.False(t, narrow.Frustum().IntersectsAABB(side, extent))
}
