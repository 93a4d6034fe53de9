package renderer

import (
	"os"
	"testing"

	"github.com/Carmen-Shannon/oxy-deform/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-deform/engine/renderer/kernel"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newOffscreenWGPU(t *testing.T) Renderer {
	t.Helper()
	if os.Getenv("OXY_GPU_TESTS") == "" {
		t.Skip("set OXY_GPU_TESTS=1 to run tests that need a WebGPU adapter")
	}
	r := NewRenderer(BackendTypeWGPU, nil, WithMSAA(MSAAOff), WithOffscreenSize(64, 64))
	t.Cleanup(r.Release)
	return r
}

func TestWGPUDispatchAndReadback(t *testing.T) {
	r := newOffscreenWGPU(t)
	p := newDoublePipeline(t)
	require.NoError(t, r.RegisterPipelines(p))

	usage := wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc
	src, err := r.CreateBuffer("src", 16, usage)
	require.NoError(t, err)
	defer src.Release()
	dst, err := r.CreateBuffer("dst", 16, usage)
	require.NoError(t, err)
	defer dst.Release()
	require.NoError(t, r.WriteBuffer(src, 0, u32Bytes(1, 2, 3, 4)))

	provider := bind_group_provider.NewBindGroupProvider("double group 0",
		bind_group_provider.WithBoundBuffer(0, src), bind_group_provider.WithBoundBuffer(1, dst))
	defer provider.Release()
	require.NoError(t, r.InitBindGroup(provider, p.BindGroupLayoutDescriptors()[0]))

	require.NoError(t, r.BeginComputeFrame())
	require.NoError(t, r.DispatchCompute("double", []bind_group_provider.BindGroupProvider{provider}, [3]uint32{1, 1, 1}))
	require.NoError(t, r.EndComputeFrame())

	got, err := r.ReadBuffer(dst)
	require.NoError(t, err)
	assert.Equal(t, u32Bytes(2, 4, 6, 8), got)
}

func TestWGPUOffscreenIndirectDraw(t *testing.T) {
	r := newOffscreenWGPU(t)
	mesh, group, indirect := drawFixture(t, r, kernel.GPUIndirectArgs{IndexCount: 3, InstanceCount: 1})

	require.NoError(t, r.BeginFrame())
	require.NoError(t, r.DrawCallIndirect("values", mesh, indirect, []bind_group_provider.BindGroupProvider{group}))
	require.NoError(t, r.EndFrame())
	r.Present()
	assert.Empty(t, r.DrawRecords())
}
