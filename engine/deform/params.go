package deform

import (
	"github.com/Carmen-Shannon/oxy-deform/engine/model"
	"github.com/Carmen-Shannon/oxy-deform/engine/renderer/kernel"
	"github.com/chewxy/math32"
)

// WaveNumber is the spatial frequency of the deformation wave along x+z.
// It must match WAVE_NUMBER in assets/deform.wgsl.
const WaveNumber float32 = 4.0

// Params are the per-frame deformation scalars.
type Params struct {
	Time     float32
	Radius   float32
	Velocity float32
}

// GPU packs the params with the vertex count the kernel bounds-checks against.
func (p Params) GPU(vertexCount uint32) kernel.GPUDeformParams {
	return kernel.GPUDeformParams{
		Time:        p.Time,
		Radius:      p.Radius,
		Velocity:    p.Velocity,
		VertexCount: vertexCount,
	}
}

// Displacement returns how far a vertex at position moves along its normal.
//
// Parameters:
//   - position: the undeformed vertex position
//
// Returns:
//   - float32: radius * sin(time*velocity + WaveNumber*(x+z))
func (p Params) Displacement(position [3]float32) float32 {
	// Each product is rounded to float32 on its own so no multiply-add is fused.
	phase := float32(p.Time*p.Velocity) + float32(WaveNumber*(position[0]+position[2]))
	return float32(p.Radius * math32.Sin(phase))
}

// Apply deforms a single record. A zero displacement returns the record unchanged.
//
// Parameters:
//   - v: the undeformed record
//
// Returns:
//   - model.GPUVertexRecord: the deformed record, with the normal untouched
func (p Params) Apply(v model.GPUVertexRecord) model.GPUVertexRecord {
	d := p.Displacement(v.Position)
	if d == 0 {
		return v
	}
	for i := range v.Position {
		v.Position[i] += float32(v.Normal[i] * d)
	}
	return v
}

// ApplyAll deforms every record into a new slice.
func (p Params) ApplyAll(records []model.GPUVertexRecord) []model.GPUVertexRecord {
	out := make([]model.GPUVertexRecord, len(records))
	for i, v := range records {
		out[i] = p.Apply(v)
	}
	return out
}
