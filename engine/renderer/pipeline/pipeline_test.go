package pipeline

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/oxy-deform/engine/renderer/shader"
)

const vertexSource = `//@oxy:include camera
//@oxy:include vertex_record
//@oxy:group 0 0 storage_uniform camera camera
//@oxy:group 1 0 storage_read vertices array<vertex_record>

@vertex
fn vs_main(@builtin(vertex_index) vi: u32) -> @builtin(position) vec4<f32> {
    let v = vertices[vi];
    return camera.view_proj * vec4<f32>(v.position[0], v.position[1], v.position[2], 1.0);
}
`

const fragmentSource = `//@oxy:include camera
//@oxy:group 0 0 storage_uniform camera camera

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(camera.camera_position, 1.0);
}
`

type nopKernel struct{}

func (nopKernel) Bind(shader.Shader) error    { return nil }
func (nopKernel) Invoke(uint32, HostBindings) {}

func newRenderPipeline(t *testing.T) Pipeline {
	t.Helper()
	vs, err := shader.NewShader("vs", shader.ShaderTypeVertex, vertexSource)
	require.NoError(t, err)
	fs, err := shader.NewShader("fs", shader.ShaderTypeFragment, fragmentSource)
	require.NoError(t, err)
	return NewPipeline("program", PipelineTypeRender, WithVertexShader(vs), WithFragmentShader(fs))
}

func TestRenderPipelineMergesStages(t *testing.T) {
	p := newRenderPipeline(t)
	layouts := p.BindGroupLayoutDescriptors()
	require.Len(t, layouts, 2)

	camera := layouts[0].Entries
	require.Len(t, camera, 1)
	assert.Equal(t, wgpu.ShaderStageVertex|wgpu.ShaderStageFragment, camera[0].Visibility)

	vertices := layouts[1].Entries
	require.Len(t, vertices, 1)
	assert.Equal(t, wgpu.ShaderStageVertex, vertices[0].Visibility)
	assert.Equal(t, wgpu.BufferBindingTypeReadOnlyStorage, vertices[0].Buffer.Type)
}

func TestResolveSlot(t *testing.T) {
	p := newRenderPipeline(t)

	info, ok := p.ResolveSlot("vertices")
	require.True(t, ok)
	assert.Equal(t, Slot{Group: 1, Binding: 0}, Slot{Group: info.Group, Binding: info.Binding})
	assert.Equal(t, uint64(24), info.Stride)

	_, ok = p.ResolveSlot("initial_vertices")
	assert.False(t, ok)
}

func TestComputePipelineDefaults(t *testing.T) {
	p := NewPipeline("kernel", PipelineTypeCompute, WithHostKernel(nopKernel{}))
	assert.Equal(t, PipelineTypeCompute, p.Type())
	assert.Equal(t, "kernel", p.PipelineKey())
	assert.NotNil(t, p.HostKernel())
	assert.Empty(t, p.BindGroupLayoutDescriptors())
	assert.Nil(t, p.Shader(shader.ShaderTypeCompute))
	assert.True(t, p.DepthTestEnabled())
	assert.Equal(t, wgpu.CullModeNone, p.CullMode())

	// no device objects yet
	p.Release()
	p.Release()
}

func TestMergeBindGroupLayoutsDisjoint(t *testing.T) {
	v := map[int]wgpu.BindGroupLayoutDescriptor{0: {Entries: []wgpu.BindGroupLayoutEntry{{Binding: 0}}}}
	f := map[int]wgpu.BindGroupLayoutDescriptor{2: {Entries: []wgpu.BindGroupLayoutEntry{{Binding: 3}}}}
	merged := MergeBindGroupLayouts(v, f)
	require.Len(t, merged, 2)
	assert.Equal(t, uint32(3), merged[2].Entries[0].Binding)

	assert.Empty(t, MergeBindGroupLayouts(nil, nil))
}

func TestRenderStateOptions(t *testing.T) {
	blend := &wgpu.BlendState{
		Color: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorOne, DstFactor: wgpu.BlendFactorOne, Operation: wgpu.BlendOperationAdd},
		Alpha: wgpu.BlendComponent{SrcFactor: wgpu.BlendFactorOne, DstFactor: wgpu.BlendFactorZero, Operation: wgpu.BlendOperationAdd},
	}
	p := NewPipeline("wire", PipelineTypeRender,
		WithTopology(wgpu.PrimitiveTopologyLineList),
		WithFrontFace(wgpu.FrontFaceCW),
		WithWriteMask(wgpu.ColorWriteMaskRed),
		WithBlendEnabled(true),
		WithBlendState(blend),
	)
	assert.Equal(t, wgpu.PrimitiveTopologyLineList, p.Topology())
	assert.Equal(t, wgpu.FrontFaceCW, p.FrontFace())
	assert.Equal(t, wgpu.ColorWriteMaskRed, p.WriteMask())
	assert.True(t, p.BlendEnabled())
	assert.Same(t, blend, p.BlendState())

	defaults := NewPipeline("default", PipelineTypeRender)
	assert.Equal(t, wgpu.PrimitiveTopologyTriangleList, defaults.Topology())
	assert.False(t, defaults.BlendEnabled())
	assert.NotNil(t, defaults.BlendState())
}
