package bind_group_provider

import (
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingBuffer struct {
	label    string
	releases int
}

func (b *countingBuffer) Label() string           { return b.label }
func (b *countingBuffer) Size() uint64            { return 24 }
func (b *countingBuffer) Usage() wgpu.BufferUsage { return wgpu.BufferUsageStorage }
func (b *countingBuffer) Released() bool          { return b.releases > 0 }
func (b *countingBuffer) Release()                { b.releases++ }

func TestReleaseOnlyFreesOwnedBuffers(t *testing.T) {
	owned := &countingBuffer{label: "owned"}
	borrowed := &countingBuffer{label: "borrowed"}
	index := &countingBuffer{label: "index"}

	p := NewBindGroupProvider("group 0", WithBuffer(0, owned), WithBoundBuffer(1, borrowed))
	p.SetIndexBuffer(index)
	p.SetIndexCount(6)
	p.SetInitialized(true)

	assert.Equal(t, "group 0", p.Label())
	assert.Equal(t, []int{0, 1}, p.Bindings())
	assert.True(t, p.Owns(0))
	assert.False(t, p.Owns(1))
	assert.Equal(t, 6, p.IndexCount())

	p.Release()
	assert.Equal(t, 1, owned.releases)
	assert.Equal(t, 0, borrowed.releases)
	assert.Equal(t, 1, index.releases)
	assert.Empty(t, p.Buffers())
	assert.Nil(t, p.IndexBuffer())
	assert.False(t, p.Initialized())

	p.Release()
	assert.Equal(t, 1, owned.releases)
	assert.Equal(t, 1, index.releases)
}

func TestReplacingOwnedBufferReleasesPrevious(t *testing.T) {
	first := &countingBuffer{label: "first"}
	second := &countingBuffer{label: "second"}

	p := NewBindGroupProvider("params")
	p.SetBuffer(2, first)
	p.BindBuffer(2, second)

	require.Equal(t, 1, first.releases)
	assert.Same(t, second, p.Buffer(2))
	assert.False(t, p.Owns(2))
	assert.Nil(t, p.Buffer(3))
}
