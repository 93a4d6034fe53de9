package deform

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-deform/engine/model"
	"github.com/Carmen-Shannon/oxy-deform/engine/renderer/kernel"
	"github.com/Carmen-Shannon/oxy-deform/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-deform/engine/renderer/shader"
	"github.com/chewxy/math32"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamsApply(t *testing.T) {
	v := model.GPUVertexRecord{Position: [3]float32{0.25, 1, 0}, Normal: [3]float32{0, 1, 0}}

	assert.Equal(t, v, Params{Time: 10, Radius: 0, Velocity: 3}.Apply(v))

	p := Params{Time: 0.5, Radius: 0.2, Velocity: 2}
	d := 0.2 * math32.Sin(0.5*2+WaveNumber*0.25)
	got := p.Apply(v)
	assert.InDelta(t, 1+d, got.Position[1], 1e-6)
	assert.Equal(t, v.Position[0], got.Position[0])
	assert.Equal(t, v.Normal, got.Normal)
}

func TestParamsGPU(t *testing.T) {
	p := Params{Time: 1, Radius: 2, Velocity: 3}
	assert.Equal(t, kernel.GPUDeformParams{Time: 1, Radius: 2, Velocity: 3, VertexCount: 9}, p.GPU(9))
}

func TestDefaultBounds(t *testing.T) {
	b := DefaultBounds()
	assert.Equal(t, [3]float32{}, b.Center)
	assert.Equal(t, [3]float32{500, 500, 500}, b.Extents)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "ready", StateReady.String())
	assert.Equal(t, "released", StateReleased.String())
	assert.Equal(t, "unknown", State(42).String())
}

func TestNewDeformProgramOverrides(t *testing.T) {
	p, err := NewDeformProgram()
	require.NoError(t, err)
	assert.Equal(t, wgpu.CullModeNone, p.CullMode())
	assert.True(t, p.DepthWriteEnabled())

	p, err = NewDeformProgram(pipeline.WithCullMode(wgpu.CullModeBack), pipeline.WithDepthWriteEnabled(false))
	require.NoError(t, err)
	assert.Equal(t, wgpu.CullModeBack, p.CullMode())
	assert.False(t, p.DepthWriteEnabled())
	assert.NotNil(t, p.Shader(shader.ShaderTypeVertex))
}
