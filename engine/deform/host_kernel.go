package deform

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deform/engine/model"
	"github.com/Carmen-Shannon/oxy-deform/engine/renderer/kernel"
	"github.com/Carmen-Shannon/oxy-deform/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-deform/engine/renderer/shader"
)

// hostKernel is the CPU form of assets/deform.wgsl.
type hostKernel struct {
	slots Slots

	initial  pipeline.Slot
	deformed pipeline.Slot
	params   pipeline.Slot
	// hasParams is false when the shader declares no params uniform.
	hasParams bool
}

var _ pipeline.HostKernel = &hostKernel{}

// NewDeformHostKernel returns the host kernel of the default deformation kernel.
//
// Returns:
//   - pipeline.HostKernel: the kernel, resolved against its shader at registration
func NewDeformHostKernel() pipeline.HostKernel {
	return &hostKernel{slots: DefaultSlots()}
}

func (k *hostKernel) Bind(s shader.Shader) error {
	for name, slot := range map[string]*pipeline.Slot{
		k.slots.InitialVertices:  &k.initial,
		k.slots.DeformedVertices: &k.deformed,
	} {
		info, ok := s.ResolveBinding(name)
		if !ok {
			return fmt.Errorf("host deform kernel: slot %q not declared", name)
		}
		*slot = pipeline.Slot{Group: info.Group, Binding: info.Binding}
	}
	if info, ok := s.ResolveBinding(k.slots.Params); ok {
		k.params = pipeline.Slot{Group: info.Group, Binding: info.Binding}
		k.hasParams = true
	}
	return nil
}

func (k *hostKernel) Invoke(invocation uint32, b pipeline.HostBindings) {
	src := b.Buffer(k.initial.Group, k.initial.Binding)
	dst := b.Buffer(k.deformed.Group, k.deformed.Binding)

	count := uint32(min(len(src), len(dst)) / model.VertexRecordStride)
	var p Params
	if k.hasParams {
		gpu := kernel.UnmarshalDeformParams(b.Buffer(k.params.Group, k.params.Binding))
		count = min(count, gpu.VertexCount)
		p = Params{Time: gpu.Time, Radius: gpu.Radius, Velocity: gpu.Velocity}
	}
	if invocation >= count {
		return
	}

	off := int(invocation) * model.VertexRecordStride
	var v model.GPUVertexRecord
	v.Unmarshal(src[off:])
	if p.Displacement(v.Position) == 0 {
		copy(dst[off:off+model.VertexRecordStride], src[off:off+model.VertexRecordStride])
		return
	}
	out := p.Apply(v)
	copy(dst[off:off+model.VertexRecordStride], out.Marshal())
}
