package deform

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-deform/engine/camera"
	"github.com/Carmen-Shannon/oxy-deform/engine/renderer"
	"github.com/Carmen-Shannon/oxy-deform/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-deform/engine/renderer/pipeline"
	"github.com/sirupsen/logrus"
)

// IndirectRenderer issues the per-frame indirect draw of a deformed mesh. It must be called
// inside a render frame.
type IndirectRenderer struct {
	renderer renderer.Renderer
	camera   camera.Camera
	// cameraSlot is nil when there is no camera or the program declares no camera uniform.
	cameraSlot *pipeline.Slot
	log        *logrus.Entry
}

// NewIndirectRenderer creates an IndirectRenderer. cam may be nil, in which case nothing
// is culled and no camera uniform is written.
func NewIndirectRenderer(r renderer.Renderer, cam camera.Camera, cameraSlot *pipeline.Slot, log *logrus.Entry) *IndirectRenderer {
	if cam == nil {
		cameraSlot = nil
	}
	return &IndirectRenderer{renderer: r, camera: cam, cameraSlot: cameraSlot, log: log}
}

// DrawIndirect draws the mesh with the program, taking the draw parameters from args.
// A camera whose frustum misses bounds culls the draw.
//
// Parameters:
//   - mesh: the provider holding the index buffer
//   - program: the render pipeline
//   - groups: the committed bind groups of program
//   - bounds: the culling hint
//   - args: the indirect args buffer
//
// Returns:
//   - bool: false if the draw was culled
//   - error: if the camera write or the draw fails
func (ir *IndirectRenderer) DrawIndirect(mesh bind_group_provider.BindGroupProvider, program pipeline.Pipeline,
	groups []bind_group_provider.BindGroupProvider, bounds Bounds, args bind_group_provider.Buffer) (bool, error) {
	if ir.camera != nil {
		if !bounds.Visible(ir.camera.Frustum()) {
			ir.log.WithField("pipeline", program.PipelineKey()).Debug("draw culled")
			return false, nil
		}
		if ir.cameraSlot != nil {
			if err := ir.writeCamera(groups); err != nil {
				return false, err
			}
		}
	}
	if err := ir.renderer.DrawCallIndirect(program.PipelineKey(), mesh, args, groups); err != nil {
		return false, err
	}
	return true, nil
}

func (ir *IndirectRenderer) writeCamera(groups []bind_group_provider.BindGroupProvider) error {
	slot := *ir.cameraSlot
	if slot.Group >= len(groups) || groups[slot.Group] == nil {
		return fmt.Errorf("camera group %d not committed", slot.Group)
	}
	buf := groups[slot.Group].Buffer(slot.Binding)
	if buf == nil {
		return fmt.Errorf("camera binding %d of group %d has no buffer", slot.Binding, slot.Group)
	}
	uniform := ir.camera.Uniform()
	return ir.renderer.WriteBuffer(buf, 0, uniform.Marshal())
}
