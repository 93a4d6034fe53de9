package renderer

import (
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-deform/engine/renderer/bind_group_provider"
	"github.com/cogentcore/webgpu/wgpu"
)

// hostBuffer is the headless backend's buffer: plain host memory with the same
// metadata and release semantics as a device buffer.
type hostBuffer struct {
	label    string
	size     uint64
	usage    wgpu.BufferUsage
	data     []byte
	released atomic.Bool

	onRelease func()
}

var _ bind_group_provider.Buffer = &hostBuffer{}

func (b *hostBuffer) Label() string {
	return b.label
}

func (b *hostBuffer) Size() uint64 {
	return b.size
}

func (b *hostBuffer) Usage() wgpu.BufferUsage {
	return b.usage
}

func (b *hostBuffer) Released() bool {
	return b.released.Load()
}

func (b *hostBuffer) Release() {
	if !b.released.CompareAndSwap(false, true) {
		return
	}
	b.data = nil
	if b.onRelease != nil {
		b.onRelease()
	}
}

// hostData unwraps a Buffer created by the headless backend.
func hostData(buf bind_group_provider.Buffer) ([]byte, error) {
	hb, ok := buf.(*hostBuffer)
	if !ok || hb == nil {
		return nil, errForeignBuffer
	}
	if hb.Released() {
		return nil, errReleasedBuffer
	}
	return hb.data, nil
}
