package deform

import (
	"github.com/Carmen-Shannon/oxy-deform/common"
	"github.com/Carmen-Shannon/oxy-deform/engine/camera"
	"github.com/sirupsen/logrus"
)

// DeformerBuilderOption is a functional option used to configure a Deformer during construction.
type DeformerBuilderOption func(*deformer)

// WithLabel sets the label carried by the deformer's buffers and log lines.
//
// Parameters:
//   - label: the label, defaults to the mesh name
//
// Returns:
//   - DeformerBuilderOption: a function that sets the label
func WithLabel(label string) DeformerBuilderOption {
	return func(d *deformer) {
		if label != "" {
			d.label = label
		}
	}
}

// WithSlots overrides the slot names bound on the kernel and program.
// Empty names keep their default.
//
// Parameters:
//   - slots: the slot names
//
// Returns:
//   - DeformerBuilderOption: a function that sets the slot names
func WithSlots(slots Slots) DeformerBuilderOption {
	return func(d *deformer) {
		def := DefaultSlots()
		d.slots = Slots{
			InitialVertices:  common.Coalesce(slots.InitialVertices, def.InitialVertices),
			DeformedVertices: common.Coalesce(slots.DeformedVertices, def.DeformedVertices),
			Params:           common.Coalesce(slots.Params, def.Params),
			Vertices:         common.Coalesce(slots.Vertices, def.Vertices),
			Camera:           common.Coalesce(slots.Camera, def.Camera),
		}
	}
}

// WithBounds replaces the default culling bounds.
func WithBounds(b Bounds) DeformerBuilderOption {
	return func(d *deformer) {
		d.bounds = b
	}
}

// WithCamera attaches a camera. Its uniform is written before every draw and its frustum
// culls the bounds.
func WithCamera(c camera.Camera) DeformerBuilderOption {
	return func(d *deformer) {
		d.camera = c
	}
}

// WithLogger replaces the deformer's component logger.
func WithLogger(entry *logrus.Entry) DeformerBuilderOption {
	return func(d *deformer) {
		if entry != nil {
			d.log = entry
		}
	}
}
