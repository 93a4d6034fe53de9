package renderer

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deform/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-deform/engine/renderer/kernel"
	"github.com/cogentcore/webgpu/wgpu"
)

// defaultBindingSize is used for unbound slots whose type size the shader parser could not resolve.
const defaultBindingSize = 16

// usageForBinding derives the usage of a buffer the Renderer allocates for an unbound slot.
func usageForBinding(entry wgpu.BindGroupLayoutEntry) wgpu.BufferUsage {
	switch entry.Buffer.Type {
	case wgpu.BufferBindingTypeUniform:
		return wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst
	default:
		return wgpu.BufferUsageStorage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc
	}
}

// sizeForBinding returns the allocation size for an unbound slot.
func sizeForBinding(entry wgpu.BindGroupLayoutEntry) uint64 {
	if entry.Buffer.MinBindingSize > 0 {
		return entry.Buffer.MinBindingSize
	}
	return defaultBindingSize
}

// validateBinding checks that a bound buffer can back a layout entry.
func validateBinding(entry wgpu.BindGroupLayoutEntry, buf bind_group_provider.Buffer) error {
	if buf.Released() {
		return fmt.Errorf("binding %d: %w", entry.Binding, errReleasedBuffer)
	}
	switch entry.Buffer.Type {
	case wgpu.BufferBindingTypeUniform:
		if buf.Usage()&wgpu.BufferUsageUniform == 0 {
			return fmt.Errorf("binding %d: buffer %q lacks uniform usage", entry.Binding, buf.Label())
		}
	case wgpu.BufferBindingTypeStorage, wgpu.BufferBindingTypeReadOnlyStorage:
		if buf.Usage()&wgpu.BufferUsageStorage == 0 {
			return fmt.Errorf("binding %d: buffer %q lacks storage usage", entry.Binding, buf.Label())
		}
	default:
		return fmt.Errorf("binding %d: unsupported binding type %v", entry.Binding, entry.Buffer.Type)
	}
	if buf.Size() < entry.Buffer.MinBindingSize {
		return fmt.Errorf("binding %d: buffer %q is %d bytes, layout needs at least %d",
			entry.Binding, buf.Label(), buf.Size(), entry.Buffer.MinBindingSize)
	}
	return nil
}

// validateIndirectDraw checks the mesh and args buffers of an indirect draw.
func validateIndirectDraw(meshProvider bind_group_provider.BindGroupProvider, indirectBuffer bind_group_provider.Buffer) error {
	if meshProvider == nil || meshProvider.IndexBuffer() == nil {
		return fmt.Errorf("mesh provider has no index buffer")
	}
	if indirectBuffer == nil || indirectBuffer.Released() {
		return fmt.Errorf("indirect buffer: %w", errReleasedBuffer)
	}
	if indirectBuffer.Usage()&wgpu.BufferUsageIndirect == 0 {
		return fmt.Errorf("buffer %q lacks indirect usage", indirectBuffer.Label())
	}
	if indirectBuffer.Size() < kernel.IndirectArgsStride {
		return fmt.Errorf("indirect buffer %q is %d bytes, need %d", indirectBuffer.Label(), indirectBuffer.Size(), kernel.IndirectArgsStride)
	}
	return nil
}

// validateProviders checks that every group a dispatch or draw uses has a built bind group.
func validateProviders(providers []bind_group_provider.BindGroupProvider) error {
	for i, p := range providers {
		if p == nil || !p.Initialized() {
			return fmt.Errorf("bind group %d is not initialized", i)
		}
	}
	return nil
}

// alignedSize rounds a buffer size up to the 4-byte copy alignment.
func alignedSize(size uint64) uint64 {
	return (size + 3) &^ 3
}
