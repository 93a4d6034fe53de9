package bind_group_provider

import (
	"sort"

	"github.com/cogentcore/webgpu/wgpu"
)

// bindGroupProvider is the unexported implementation of BindGroupProvider.
type bindGroupProvider struct {
	// label is a debug label added for convenience.
	label string

	// The following fields are device resources populated by the Renderer during initialization.

	// bindGroup is the GPU bind group created for this provider. It stays nil on the headless backend.
	bindGroup *wgpu.BindGroup
	// bindGroupLayout is the GPU bind group layout created for this provider, or nil.
	bindGroupLayout *wgpu.BindGroupLayout
	// buffers holds the buffers for this provider, keyed by binding index.
	buffers map[int]Buffer
	// owned marks the bindings whose buffers this provider releases.
	owned map[int]bool
	// initialized is set once the Renderer has built the bind group.
	initialized bool

	// indexBuffer is the index buffer for mesh providers, or nil.
	indexBuffer Buffer
	// indexCount is the number of indices in indexBuffer.
	indexCount int
}

// BindGroupProvider describes the buffers bound to one bind group of a pipeline.
// The Renderer uses the provider to build device bind groups and to locate buffers
// for writes and draws.
//
// A provider either owns a buffer (SetBuffer) or borrows it (BindBuffer).
// Release frees owned buffers only; borrowed buffers stay with whoever allocated them.
//
// Usage pattern:
//  1. Create a provider per bind group with NewBindGroupProvider
//  2. Attach buffers with BindBuffer, or let the Renderer allocate the rest
//  3. Call Renderer.InitBindGroup(provider, descriptor) to build the bind group
//  4. Pass the provider to DispatchCompute or DrawCallIndirect, indexed by group
type BindGroupProvider interface {
	// Release releases the bind group, the layout and every owned buffer.
	// Borrowed buffers are detached without being released. Calling it twice is a no-op.
	Release()

	// Label returns the debug label for this provider.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// BindGroup returns the created bind group, or nil on the headless backend or before initialization.
	//
	// Returns:
	//   - *wgpu.BindGroup: the bind group or nil
	BindGroup() *wgpu.BindGroup

	// BindGroupLayout returns the created bind group layout, or nil.
	//
	// Returns:
	//   - *wgpu.BindGroupLayout: the bind group layout or nil
	BindGroupLayout() *wgpu.BindGroupLayout

	// Buffer returns the buffer at a binding, or nil if none is set.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - Buffer: the buffer or nil
	Buffer(binding int) Buffer

	// Buffers returns every buffer on this provider keyed by binding index.
	//
	// Returns:
	//   - map[int]Buffer: the buffers keyed by binding index
	Buffers() map[int]Buffer

	// Bindings returns the binding indices that have a buffer, in ascending order.
	//
	// Returns:
	//   - []int: the sorted binding indices
	Bindings() []int

	// Owns reports whether the buffer at a binding is released by this provider.
	//
	// Parameters:
	//   - binding: the binding index
	//
	// Returns:
	//   - bool: true if the provider owns the buffer
	Owns(binding int) bool

	// Initialized reports whether the Renderer has built the bind group for this provider.
	//
	// Returns:
	//   - bool: true after a successful InitBindGroup
	Initialized() bool

	// IndexBuffer returns the index buffer, or nil.
	//
	// Returns:
	//   - Buffer: the index buffer or nil
	IndexBuffer() Buffer

	// IndexCount returns the number of indices for draw calls.
	//
	// Returns:
	//   - int: the index count
	IndexCount() int

	// SetBindGroup stores the bind group after initialization. Called by Renderer.InitBindGroup().
	//
	// Parameters:
	//   - bg: the created bind group, nil on the headless backend
	SetBindGroup(bg *wgpu.BindGroup)

	// SetBindGroupLayout stores the bind group layout after initialization.
	//
	// Parameters:
	//   - bgl: the created bind group layout
	SetBindGroupLayout(bgl *wgpu.BindGroupLayout)

	// SetBuffer stores a buffer the provider owns and releases.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the buffer to own
	SetBuffer(binding int, buf Buffer)

	// BindBuffer stores a borrowed buffer. The provider never releases it.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the buffer to borrow
	BindBuffer(binding int, buf Buffer)

	// SetInitialized marks the bind group as built.
	//
	// Parameters:
	//   - initialized: the new state
	SetInitialized(initialized bool)

	// SetIndexBuffer stores an owned index buffer.
	//
	// Parameters:
	//   - buf: the index buffer
	SetIndexBuffer(buf Buffer)

	// SetIndexCount sets the number of indices for draw calls.
	//
	// Parameters:
	//   - count: the index count
	SetIndexCount(count int)
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a new BindGroupProvider with the provided options.
//
// Parameters:
//   - label: a debug label used for the device objects created for this provider
//   - options: a variadic list of options to configure the provider
//
// Returns:
//   - BindGroupProvider: a new instance of BindGroupProvider configured with the provided options
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:   label,
		buffers: make(map[int]Buffer),
		owned:   make(map[int]bool),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	return p.bindGroup
}

func (p *bindGroupProvider) BindGroupLayout() *wgpu.BindGroupLayout {
	return p.bindGroupLayout
}

func (p *bindGroupProvider) Buffer(binding int) Buffer {
	return p.buffers[binding]
}

func (p *bindGroupProvider) Buffers() map[int]Buffer {
	return p.buffers
}

func (p *bindGroupProvider) Bindings() []int {
	bindings := make([]int, 0, len(p.buffers))
	for b := range p.buffers {
		bindings = append(bindings, b)
	}
	sort.Ints(bindings)
	return bindings
}

func (p *bindGroupProvider) Owns(binding int) bool {
	return p.owned[binding]
}

func (p *bindGroupProvider) Initialized() bool {
	return p.initialized
}

func (p *bindGroupProvider) IndexBuffer() Buffer {
	return p.indexBuffer
}

func (p *bindGroupProvider) IndexCount() int {
	return p.indexCount
}

func (p *bindGroupProvider) SetBindGroup(bg *wgpu.BindGroup) {
	p.bindGroup = bg
}

func (p *bindGroupProvider) SetBindGroupLayout(bgl *wgpu.BindGroupLayout) {
	p.bindGroupLayout = bgl
}

func (p *bindGroupProvider) SetBuffer(binding int, buf Buffer) {
	p.setBuffer(binding, buf, true)
}

func (p *bindGroupProvider) BindBuffer(binding int, buf Buffer) {
	p.setBuffer(binding, buf, false)
}

func (p *bindGroupProvider) setBuffer(binding int, buf Buffer, owned bool) {
	if p.buffers == nil {
		p.buffers = make(map[int]Buffer)
	}
	if p.owned == nil {
		p.owned = make(map[int]bool)
	}
	if prev, ok := p.buffers[binding]; ok && prev != buf && p.owned[binding] {
		prev.Release()
	}
	p.buffers[binding] = buf
	p.owned[binding] = owned
}

func (p *bindGroupProvider) SetInitialized(initialized bool) {
	p.initialized = initialized
}

func (p *bindGroupProvider) SetIndexBuffer(buf Buffer) {
	p.indexBuffer = buf
}

func (p *bindGroupProvider) SetIndexCount(count int) {
	p.indexCount = count
}

func (p *bindGroupProvider) Release() {
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	if p.bindGroupLayout != nil {
		p.bindGroupLayout.Release()
		p.bindGroupLayout = nil
	}
	for i, buf := range p.buffers {
		if buf != nil && p.owned[i] {
			buf.Release()
		}
		delete(p.buffers, i)
		delete(p.owned, i)
	}
	if p.indexBuffer != nil {
		p.indexBuffer.Release()
		p.indexBuffer = nil
	}
	p.initialized = false
}
