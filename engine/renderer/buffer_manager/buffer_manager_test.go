package buffer_manager

import (
	"encoding/binary"
	"testing"

	"github.com/Carmen-Shannon/oxy-deform/engine/renderer"
	"github.com/Carmen-Shannon/oxy-deform/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-deform/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scaleKernelSource = `struct Pair {
    a: u32,
    b: u32,
}

struct Scale {
    factor: u32,
    count: u32,
    pad0: u32,
    pad1: u32,
}

@group(0) @binding(0) var<storage, read> src: array<Pair>;
@group(0) @binding(1) var<storage, read_write> dst: array<Pair>;
@group(1) @binding(0) var<uniform> scale: Scale;

@compute @workgroup_size(8)
fn scale_main(@builtin(global_invocation_id) id: vec3<u32>) {
    let i = id.x;
    if (i >= scale.count) {
        return;
    }
    dst[i].a = src[i].a * scale.factor;
    dst[i].b = src[i].b * scale.factor;
}
`

const storage = wgpu.BufferUsageStorage

func newManager(t *testing.T) (renderer.Renderer, BufferManager) {
	t.Helper()
	r := renderer.NewRenderer(renderer.BackendTypeHeadless, nil)
	m := NewBufferManager(r)
	t.Cleanup(func() {
		m.ReleaseAll()
		r.Release()
	})
	return r, m
}

func newScalePipeline(t *testing.T) pipeline.Pipeline {
	t.Helper()
	cs, err := shader.NewShader("scale", shader.ShaderTypeCompute, scaleKernelSource)
	require.NoError(t, err)
	return pipeline.NewPipeline("scale", pipeline.PipelineTypeCompute, pipeline.WithComputeShader(cs))
}

func u32Bytes(values ...uint32) []byte {
	out := make([]byte, 4*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint32(out[4*i:], v)
	}
	return out
}

func TestAllocate(t *testing.T) {
	r, m := newManager(t)

	_, err := m.Allocate("empty", 0, 8, storage)
	assert.ErrorIs(t, err, ErrAllocation)
	_, err = m.Allocate("strideless", 4, 0, storage)
	assert.ErrorIs(t, err, ErrAllocation)
	assert.Equal(t, 0, m.Live())
	assert.Equal(t, 0, r.LiveBuffers())

	a, err := m.Allocate("a", 4, 8, storage)
	require.NoError(t, err)
	b, err := m.Allocate("b", 1, 16, wgpu.BufferUsageUniform)
	require.NoError(t, err)
	assert.NotEqual(t, Handle(0), a)
	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, m.Live())
	assert.Equal(t, 2, r.LiveBuffers())

	info, err := m.Info(a)
	require.NoError(t, err)
	assert.Equal(t, uint64(32), info.Size())
	assert.NotZero(t, info.Usage&wgpu.BufferUsageCopyDst)
	assert.NotZero(t, info.Usage&wgpu.BufferUsageCopySrc)

	buf, err := m.Buffer(a)
	require.NoError(t, err)
	assert.Equal(t, uint64(32), buf.Size())
}

func TestUpload(t *testing.T) {
	_, m := newManager(t)
	h, err := m.Allocate("pairs", 2, 8, storage)
	require.NoError(t, err)

	assert.ErrorIs(t, m.Upload(h, u32Bytes(1, 2, 3)), ErrSizeMismatch)
	assert.ErrorIs(t, m.Upload(h, u32Bytes(1, 2, 3, 4, 5)), ErrSizeMismatch)
	assert.ErrorIs(t, m.Upload(Handle(99), u32Bytes(1)), ErrUnknownHandle)

	want := u32Bytes(1, 2, 3, 4)
	require.NoError(t, m.Upload(h, want))
	got, err := m.Read(h)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestBindToKernel(t *testing.T) {
	_, m := newManager(t)
	p := newScalePipeline(t)

	pairs, err := m.Allocate("pairs", 4, 8, storage)
	require.NoError(t, err)
	words, err := m.Allocate("words", 8, 4, storage)
	require.NoError(t, err)
	uniform, err := m.Allocate("scale", 1, 16, wgpu.BufferUsageUniform)
	require.NoError(t, err)

	slot, err := m.BindToKernel(pairs, p, "src")
	require.NoError(t, err)
	assert.Equal(t, pipeline.Slot{Group: 0, Binding: 0}, slot)

	slot, err = m.BindToKernel(uniform, p, "scale")
	require.NoError(t, err)
	assert.Equal(t, pipeline.Slot{Group: 1, Binding: 0}, slot)

	_, err = m.BindToKernel(pairs, p, "missing")
	assert.ErrorIs(t, err, ErrSlotNotFound)

	_, err = m.BindToKernel(words, p, "dst")
	assert.ErrorIs(t, err, ErrStrideMismatch)

	_, err = m.BindToKernel(pairs, p, "scale")
	assert.ErrorIs(t, err, ErrUsageMismatch)

	_, err = m.BindToKernel(uniform, p, "dst")
	assert.ErrorIs(t, err, ErrUsageMismatch)

	_, err = m.BindToProgram(pairs, p, "src")
	assert.ErrorIs(t, err, ErrPipelineType)

	_, err = m.BindToKernel(Handle(42), p, "src")
	assert.ErrorIs(t, err, ErrUnknownHandle)
}

func TestCommit(t *testing.T) {
	r, m := newManager(t)
	p := newScalePipeline(t)

	src, err := m.Allocate("src", 4, 8, storage)
	require.NoError(t, err)
	dst, err := m.Allocate("dst", 4, 8, storage)
	require.NoError(t, err)
	_, err = m.BindToKernel(src, p, "src")
	require.NoError(t, err)
	_, err = m.BindToKernel(dst, p, "dst")
	require.NoError(t, err)

	providers, err := m.Commit(p)
	require.NoError(t, err)
	require.Len(t, providers, 2)
	for _, provider := range providers {
		assert.True(t, provider.Initialized())
	}

	srcBuf, err := m.Buffer(src)
	require.NoError(t, err)
	assert.Same(t, srcBuf, providers[0].Buffer(0))
	assert.False(t, providers[0].Owns(0))
	assert.True(t, providers[1].Owns(0), "the unbound uniform is allocated by its provider")
	assert.Equal(t, 3, r.LiveBuffers())

	owned := providers[1].Buffer(0)
	require.NotNil(t, owned)
	again, err := m.Commit(p)
	require.NoError(t, err)
	assert.True(t, owned.Released(), "recommitting releases the previous groups")
	assert.False(t, srcBuf.Released())
	assert.Equal(t, 3, r.LiveBuffers())

	owned = again[1].Buffer(0)
	require.NotNil(t, owned)
	m.ReleaseAll()
	assert.True(t, owned.Released())
	assert.Equal(t, 0, m.Live())
	assert.Equal(t, 0, r.LiveBuffers())
}

func TestRelease(t *testing.T) {
	r, m := newManager(t)
	p := newScalePipeline(t)

	h, err := m.Allocate("src", 2, 8, storage)
	require.NoError(t, err)
	buf, err := m.Buffer(h)
	require.NoError(t, err)
	_, err = m.BindToKernel(h, p, "src")
	require.NoError(t, err)

	m.Release(h)
	assert.True(t, buf.Released())
	assert.Equal(t, 0, r.LiveBuffers())

	assert.NotPanics(t, func() {
		m.Release(h)
		m.Release(Handle(0))
		m.Release(Handle(1234))
	})
	assert.Equal(t, 0, m.Live())

	_, err = m.Info(h)
	assert.ErrorIs(t, err, ErrUnknownHandle)
	assert.ErrorIs(t, m.Upload(h, u32Bytes(1, 2, 3, 4)), ErrUnknownHandle)

	// The released handle no longer backs "src", so the group allocates its own.
	providers, err := m.Commit(p)
	require.NoError(t, err)
	assert.True(t, providers[0].Owns(0))
}
