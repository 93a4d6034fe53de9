package renderer

import (
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-deform/engine/renderer/bind_group_provider"
	"github.com/cogentcore/webgpu/wgpu"
)

// wgpuBuffer wraps a *wgpu.Buffer with the metadata the Renderer validates against.
type wgpuBuffer struct {
	label    string
	size     uint64
	usage    wgpu.BufferUsage
	buffer   *wgpu.Buffer
	released atomic.Bool

	onRelease func()
}

var _ bind_group_provider.Buffer = &wgpuBuffer{}

func (b *wgpuBuffer) Label() string {
	return b.label
}

func (b *wgpuBuffer) Size() uint64 {
	return b.size
}

func (b *wgpuBuffer) Usage() wgpu.BufferUsage {
	return b.usage
}

func (b *wgpuBuffer) Released() bool {
	return b.released.Load()
}

func (b *wgpuBuffer) Release() {
	if !b.released.CompareAndSwap(false, true) {
		return
	}
	b.buffer.Release()
	if b.onRelease != nil {
		b.onRelease()
	}
}

// rawBuffer unwraps a Buffer created by the WGPU backend.
func rawBuffer(buf bind_group_provider.Buffer) (*wgpu.Buffer, error) {
	wb, ok := buf.(*wgpuBuffer)
	if !ok || wb == nil {
		return nil, errForeignBuffer
	}
	if wb.Released() {
		return nil, errReleasedBuffer
	}
	return wb.buffer, nil
}
