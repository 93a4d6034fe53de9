package renderer

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/Carmen-Shannon/oxy-deform/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-deform/engine/renderer/kernel"
	"github.com/Carmen-Shannon/oxy-deform/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-deform/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const doubleKernelSource = `@group(0) @binding(0) var<storage, read> src: array<u32>;
@group(0) @binding(1) var<storage, read_write> dst: array<u32>;

@compute @workgroup_size(4)
fn double_main(@builtin(global_invocation_id) id: vec3<u32>) {
    let i = id.x;
    if (i >= arrayLength(&dst)) {
        return;
    }
    dst[i] = src[i] * 2u;
}
`

const valuesVertexSource = `@group(0) @binding(0) var<storage, read> values: array<u32>;

@vertex
fn vs_main(@builtin(vertex_index) vi: u32) -> @builtin(position) vec4<f32> {
    return vec4<f32>(f32(values[vi]), 0.0, 0.0, 1.0);
}
`

const flatFragmentSource = `@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0, 1.0, 1.0, 1.0);
}
`

// doubleKernel is the host form of doubleKernelSource.
type doubleKernel struct {
	src, dst pipeline.Slot
}

func (k *doubleKernel) Bind(s shader.Shader) error {
	for name, slot := range map[string]*pipeline.Slot{"src": &k.src, "dst": &k.dst} {
		info, ok := s.ResolveBinding(name)
		if !ok {
			return fmt.Errorf("slot %q not declared", name)
		}
		*slot = pipeline.Slot{Group: info.Group, Binding: info.Binding}
	}
	return nil
}

func (k *doubleKernel) Invoke(i uint32, b pipeline.HostBindings) {
	src := b.Buffer(k.src.Group, k.src.Binding)
	dst := b.Buffer(k.dst.Group, k.dst.Binding)
	off := int(i) * 4
	if off+4 > len(dst) {
		return
	}
	binary.LittleEndian.PutUint32(dst[off:], 2*binary.LittleEndian.Uint32(src[off:]))
}

func u32Bytes(values ...uint32) []byte {
	out := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[4*i:], v)
	}
	return out
}

func newHeadless(t *testing.T) Renderer {
	t.Helper()
	r := NewRenderer(BackendTypeHeadless, nil, WithHostWorkers(3))
	t.Cleanup(r.Release)
	return r
}

func newDoublePipeline(t *testing.T) pipeline.Pipeline {
	t.Helper()
	cs, err := shader.NewShader("double", shader.ShaderTypeCompute, doubleKernelSource)
	require.NoError(t, err)
	return pipeline.NewPipeline("double", pipeline.PipelineTypeCompute,
		pipeline.WithComputeShader(cs), pipeline.WithHostKernel(&doubleKernel{}))
}

func TestHeadlessBufferLifecycle(t *testing.T) {
	r := newHeadless(t)

	_, err := r.CreateBuffer("empty", 0, wgpu.BufferUsageStorage)
	require.ErrorIs(t, err, errZeroSizeBuffer)
	assert.Equal(t, 0, r.LiveBuffers())

	buf, err := r.CreateBuffer("values", 8, wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst|wgpu.BufferUsageCopySrc)
	require.NoError(t, err)
	assert.Equal(t, 1, r.LiveBuffers())

	require.NoError(t, r.WriteBuffer(buf, 4, u32Bytes(7)))
	assert.Error(t, r.WriteBuffer(buf, 4, u32Bytes(1, 2)))

	got, err := r.ReadBuffer(buf)
	require.NoError(t, err)
	assert.Equal(t, u32Bytes(0, 7), got)

	buf.Release()
	buf.Release()
	assert.True(t, buf.Released())
	assert.Equal(t, 0, r.LiveBuffers())

	_, err = r.ReadBuffer(buf)
	assert.ErrorIs(t, err, errReleasedBuffer)
	assert.ErrorIs(t, r.WriteBuffer(buf, 0, u32Bytes(1)), errReleasedBuffer)
}

func TestHeadlessReadRequiresCopySrc(t *testing.T) {
	r := newHeadless(t)
	buf, err := r.CreateBuffer("uniform", 16, wgpu.BufferUsageUniform|wgpu.BufferUsageCopyDst)
	require.NoError(t, err)
	defer buf.Release()

	_, err = r.ReadBuffer(buf)
	assert.Error(t, err)
}

func TestHeadlessDispatchRunsHostKernel(t *testing.T) {
	r := newHeadless(t)
	p := newDoublePipeline(t)
	require.NoError(t, r.RegisterPipelines(p))
	require.NoError(t, r.RegisterPipelines(p))
	assert.Same(t, p, r.Pipeline("double"))

	const n = 10
	input := make([]uint32, n)
	want := make([]uint32, n)
	for i := range input {
		input[i] = uint32(i + 1)
		want[i] = 2 * uint32(i+1)
	}

	usage := wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc
	src, err := r.CreateBuffer("src", 4*n, usage)
	require.NoError(t, err)
	dst, err := r.CreateBuffer("dst", 4*n, usage)
	require.NoError(t, err)
	require.NoError(t, r.WriteBuffer(src, 0, u32Bytes(input...)))

	provider := bind_group_provider.NewBindGroupProvider("double group 0",
		bind_group_provider.WithBoundBuffer(0, src), bind_group_provider.WithBoundBuffer(1, dst))
	defer provider.Release()

	groups := []bind_group_provider.BindGroupProvider{provider}
	workgroups := [3]uint32{3, 1, 1}

	require.Error(t, r.DispatchCompute("double", groups, workgroups), "dispatch outside a compute frame")
	require.NoError(t, r.BeginComputeFrame())
	require.Error(t, r.DispatchCompute("double", groups, workgroups), "provider not initialized")
	require.NoError(t, r.InitBindGroup(provider, p.BindGroupLayoutDescriptors()[0]))
	require.Error(t, r.DispatchCompute("missing", groups, workgroups))
	require.NoError(t, r.DispatchCompute("double", groups, workgroups))
	require.NoError(t, r.EndComputeFrame())

	got, err := r.ReadBuffer(dst)
	require.NoError(t, err)
	if diff := cmp.Diff(u32Bytes(want...), got); diff != "" {
		t.Errorf("dst mismatch (-want +got):\n%s", diff)
	}

	provider.Release()
	assert.False(t, src.Released(), "bound buffers stay with their owner")
	src.Release()
	dst.Release()
	assert.Equal(t, 0, r.LiveBuffers())
}

func TestHeadlessComputePipelineNeedsHostKernel(t *testing.T) {
	r := newHeadless(t)
	cs, err := shader.NewShader("double", shader.ShaderTypeCompute, doubleKernelSource)
	require.NoError(t, err)

	err = r.RegisterPipelines(pipeline.NewPipeline("bare", pipeline.PipelineTypeCompute, pipeline.WithComputeShader(cs)))
	assert.Error(t, err)
	assert.Nil(t, r.Pipeline("bare"))
}

func TestHeadlessInitBindGroupAllocatesUnboundSlots(t *testing.T) {
	r := newHeadless(t)
	p := newDoublePipeline(t)
	require.NoError(t, r.RegisterPipelines(p))

	provider := bind_group_provider.NewBindGroupProvider("auto")
	require.NoError(t, r.InitBindGroup(provider, p.BindGroupLayoutDescriptors()[0]))
	assert.True(t, provider.Initialized())
	assert.Equal(t, []int{0, 1}, provider.Bindings())
	assert.True(t, provider.Owns(0))
	assert.Equal(t, uint64(4), provider.Buffer(1).Size())
	assert.Equal(t, 2, r.LiveBuffers())

	provider.Release()
	assert.Equal(t, 0, r.LiveBuffers())
}

func TestHeadlessInitBindGroupRejectsWrongUsage(t *testing.T) {
	r := newHeadless(t)
	p := newDoublePipeline(t)

	uniform, err := r.CreateBuffer("uniform", 16, wgpu.BufferUsageUniform)
	require.NoError(t, err)
	defer uniform.Release()

	provider := bind_group_provider.NewBindGroupProvider("wrong", bind_group_provider.WithBoundBuffer(0, uniform))
	defer provider.Release()
	assert.Error(t, r.InitBindGroup(provider, p.BindGroupLayoutDescriptors()[0]))
	assert.False(t, provider.Initialized())
}

// drawFixture registers a render program and returns a mesh provider, a values group and an args buffer.
func drawFixture(t *testing.T, r Renderer, args kernel.GPUIndirectArgs) (bind_group_provider.BindGroupProvider, bind_group_provider.BindGroupProvider, bind_group_provider.Buffer) {
	t.Helper()
	vs, err := shader.NewShader("values_vs", shader.ShaderTypeVertex, valuesVertexSource)
	require.NoError(t, err)
	fs, err := shader.NewShader("flat_fs", shader.ShaderTypeFragment, flatFragmentSource)
	require.NoError(t, err)
	program := pipeline.NewPipeline("values", pipeline.PipelineTypeRender,
		pipeline.WithVertexShader(vs), pipeline.WithFragmentShader(fs))
	require.NoError(t, r.RegisterPipelines(program))

	mesh := bind_group_provider.NewBindGroupProvider("mesh")
	require.NoError(t, r.InitMeshBuffers(mesh, u32Bytes(0, 1, 2), 3))
	t.Cleanup(mesh.Release)

	values, err := r.CreateBuffer("values", 12, wgpu.BufferUsageStorage|wgpu.BufferUsageCopyDst)
	require.NoError(t, err)
	require.NoError(t, r.WriteBuffer(values, 0, u32Bytes(4, 5, 6)))
	group := bind_group_provider.NewBindGroupProvider("values group 0", bind_group_provider.WithBuffer(0, values))
	require.NoError(t, r.InitBindGroup(group, program.BindGroupLayoutDescriptors()[0]))
	t.Cleanup(group.Release)

	indirect, err := r.CreateBuffer("args", kernel.IndirectArgsStride, wgpu.BufferUsageIndirect|wgpu.BufferUsageCopyDst)
	require.NoError(t, err)
	require.NoError(t, r.WriteBuffer(indirect, 0, args.Marshal()))
	t.Cleanup(indirect.Release)

	return mesh, group, indirect
}

func TestHeadlessDrawIndirectRecordsFrames(t *testing.T) {
	r := newHeadless(t)
	args := kernel.GPUIndirectArgs{IndexCount: 3, InstanceCount: 1}
	mesh, group, indirect := drawFixture(t, r, args)
	groups := []bind_group_provider.BindGroupProvider{group}

	assert.ErrorIs(t, r.DrawCallIndirect("values", mesh, indirect, groups), errNoRenderFrame)

	for range 2 {
		require.NoError(t, r.BeginFrame())
		require.NoError(t, r.DrawCallIndirect("values", mesh, indirect, groups))
		require.NoError(t, r.EndFrame())
		r.Present()
	}

	records := r.DrawRecords()
	require.Len(t, records, 2)
	want := DrawRecord{
		Frame:       1,
		PipelineKey: "values",
		Args:        args,
		Bindings:    map[pipeline.Slot][]byte{{Group: 0, Binding: 0}: u32Bytes(4, 5, 6)},
	}
	if diff := cmp.Diff(want, records[1]); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, uint64(0), records[0].Frame)
}

func TestHeadlessDrawRejectsBadArgs(t *testing.T) {
	r := newHeadless(t)
	mesh, group, indirect := drawFixture(t, r, kernel.GPUIndirectArgs{IndexCount: 9, InstanceCount: 1})
	groups := []bind_group_provider.BindGroupProvider{group}

	require.NoError(t, r.BeginFrame())
	require.NoError(t, r.DrawCallIndirect("values", mesh, indirect, groups))
	assert.Error(t, r.EndFrame())
	assert.Empty(t, r.DrawRecords())

	notIndirect, err := r.CreateBuffer("plain", kernel.IndirectArgsStride, wgpu.BufferUsageStorage)
	require.NoError(t, err)
	defer notIndirect.Release()

	require.NoError(t, r.BeginFrame())
	assert.Error(t, r.DrawCallIndirect("values", mesh, notIndirect, groups))
	assert.Error(t, r.DrawCallIndirect("double", mesh, indirect, groups))
	require.NoError(t, r.EndFrame())
}
