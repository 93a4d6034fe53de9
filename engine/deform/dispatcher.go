package deform

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deform/engine/renderer"
	"github.com/Carmen-Shannon/oxy-deform/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-deform/engine/renderer/buffer_manager"
	"github.com/Carmen-Shannon/oxy-deform/engine/renderer/kernel"
	"github.com/Carmen-Shannon/oxy-deform/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-deform/engine/renderer/shader"
)

// Dispatcher pushes params and issues the deformation dispatch. It must be called inside
// a compute frame.
type Dispatcher struct {
	renderer renderer.Renderer
	manager  buffer_manager.BufferManager
	kernel   pipeline.Pipeline
	groups   []bind_group_provider.BindGroupProvider

	// params is zero when the kernel declares no params uniform.
	params      buffer_manager.Handle
	vertexCount uint32
	workgroups  [3]uint32
}

// NewDispatcher sizes a dispatch of vertexCount invocations for the kernel's workgroup size.
//
// Parameters:
//   - r: the renderer to dispatch on
//   - manager: the manager owning the params buffer
//   - k: the compute pipeline
//   - groups: the committed bind groups of k
//   - params: the params buffer, or zero for a kernel without params
//   - vertexCount: the number of vertices, must be non-zero
//
// Returns:
//   - *Dispatcher: the dispatcher
//   - error: if vertexCount is zero
func NewDispatcher(r renderer.Renderer, manager buffer_manager.BufferManager, k pipeline.Pipeline,
	groups []bind_group_provider.BindGroupProvider, params buffer_manager.Handle, vertexCount uint32) (*Dispatcher, error) {
	var size uint32
	if cs := k.Shader(shader.ShaderTypeCompute); cs != nil {
		size = cs.WorkgroupSize()[0]
	}
	wg, err := kernel.Workgroups(vertexCount, size)
	if err != nil {
		return nil, err
	}
	return &Dispatcher{
		renderer:    r,
		manager:     manager,
		kernel:      k,
		groups:      groups,
		params:      params,
		vertexCount: vertexCount,
		workgroups:  wg,
	}, nil
}

// Workgroups returns the workgroup count of every dispatch.
func (d *Dispatcher) Workgroups() [3]uint32 {
	return d.workgroups
}

// HasParams reports whether the kernel takes a params uniform.
func (d *Dispatcher) HasParams() bool {
	return d.params != 0
}

// Dispatch writes params when given and bound, then dispatches ⌈N/workgroup⌉ groups.
// Without params the kernel sees the last params written.
//
// Parameters:
//   - params: the frame's params, or nil
//
// Returns:
//   - error: if the write or the dispatch fails
func (d *Dispatcher) Dispatch(params *Params) error {
	if params != nil && d.params != 0 {
		gpu := params.GPU(d.vertexCount)
		if err := d.manager.Upload(d.params, gpu.Marshal()); err != nil {
			return fmt.Errorf("pushing deform params: %w", err)
		}
	}
	return d.renderer.DispatchCompute(d.kernel.PipelineKey(), d.groups, d.workgroups)
}
