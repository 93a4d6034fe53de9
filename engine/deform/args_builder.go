package deform

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deform/engine/renderer/buffer_manager"
	"github.com/Carmen-Shannon/oxy-deform/engine/renderer/kernel"
	"github.com/cogentcore/webgpu/wgpu"
)

// ArgsBuilder writes the indirect draw arguments buffer once at setup.
type ArgsBuilder struct {
	manager buffer_manager.BufferManager
	label   string
}

// NewArgsBuilder creates an ArgsBuilder allocating through manager.
func NewArgsBuilder(manager buffer_manager.BufferManager, label string) *ArgsBuilder {
	return &ArgsBuilder{manager: manager, label: label}
}

// Build allocates a single 20-byte element holding {indexCount, instanceCount, 0, 0, 0}
// and uploads it. The buffer is never written again.
//
// Parameters:
//   - indexCount: the mesh index count, must be non-zero
//   - instanceCount: the number of instances to draw
//
// Returns:
//   - buffer_manager.Handle: the args buffer
//   - error: ErrSetup wrapping the cause
func (b *ArgsBuilder) Build(indexCount, instanceCount uint32) (buffer_manager.Handle, error) {
	if indexCount == 0 {
		return 0, fmt.Errorf("%w: mesh has no indices", ErrSetup)
	}
	args := kernel.GPUIndirectArgs{IndexCount: indexCount, InstanceCount: instanceCount}

	h, err := b.manager.Allocate(b.label, 1, kernel.IndirectArgsStride, wgpu.BufferUsageIndirect)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrSetup, err)
	}
	if err := b.manager.Upload(h, args.Marshal()); err != nil {
		b.manager.Release(h)
		return 0, fmt.Errorf("%w: %w", ErrSetup, err)
	}
	return h, nil
}
