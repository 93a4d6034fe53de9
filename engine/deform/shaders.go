package deform

import (
	_ "embed"
	"fmt"

	"github.com/Carmen-Shannon/oxy-deform/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-deform/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

const (
	// KernelKey is the pipeline key of the default deformation kernel.
	KernelKey = "deform_kernel"
	// ProgramKey is the pipeline key of the default render program.
	ProgramKey = "deform_program"
)

//go:embed assets/deform.wgsl
var deformKernelSource string

//go:embed assets/deform_vertex.wgsl
var deformVertexSource string

//go:embed assets/deform_fragment.wgsl
var deformFragmentSource string

// Slots names the WGSL variables the deformer binds by.
type Slots struct {
	// InitialVertices is the kernel's read-only snapshot of the extracted vertices.
	InitialVertices string `mapstructure:"initial_vertices"`
	// DeformedVertices is the kernel's output array.
	DeformedVertices string `mapstructure:"deformed_vertices"`
	// Params is the kernel's optional uniform. A kernel that does not declare it runs without params.
	Params string `mapstructure:"params"`
	// Vertices is the program's read-only view of the deformed array.
	Vertices string `mapstructure:"vertices"`
	// Camera is the program's optional camera uniform.
	Camera string `mapstructure:"camera"`
}

// DefaultSlots returns the slot names declared by the embedded kernel and program.
func DefaultSlots() Slots {
	return Slots{
		InitialVertices:  "initial_vertices",
		DeformedVertices: "deformed_vertices",
		Params:           "params",
		Vertices:         "vertices",
		Camera:           "camera",
	}
}

// NewDeformKernel builds the default deformation compute pipeline from the embedded WGSL,
// with its host kernel attached so it also runs on the headless backend.
//
// Returns:
//   - pipeline.Pipeline: the compute pipeline, not yet registered
//   - error: if the embedded shader fails to parse
func NewDeformKernel() (pipeline.Pipeline, error) {
	cs, err := shader.NewShader(KernelKey, shader.ShaderTypeCompute, deformKernelSource)
	if err != nil {
		return nil, fmt.Errorf("deform kernel: %w", err)
	}
	return pipeline.NewPipeline(KernelKey, pipeline.PipelineTypeCompute,
		pipeline.WithComputeShader(cs),
		pipeline.WithHostKernel(NewDeformHostKernel()),
	), nil
}

// NewDeformProgram builds the default render program. It pulls vertices from the deformed
// storage buffer, so it needs no vertex buffer layout. Options override the default
// render state: no culling with depth test and write on.
//
// Parameters:
//   - options: render state overrides applied after the defaults
//
// Returns:
//   - pipeline.Pipeline: the render pipeline, not yet registered
//   - error: if an embedded shader fails to parse
func NewDeformProgram(options ...pipeline.PipelineBuilderOption) (pipeline.Pipeline, error) {
	vs, err := shader.NewShader(ProgramKey+"_vertex", shader.ShaderTypeVertex, deformVertexSource)
	if err != nil {
		return nil, fmt.Errorf("deform program vertex stage: %w", err)
	}
	fs, err := shader.NewShader(ProgramKey+"_fragment", shader.ShaderTypeFragment, deformFragmentSource)
	if err != nil {
		return nil, fmt.Errorf("deform program fragment stage: %w", err)
	}
	opts := append([]pipeline.PipelineBuilderOption{
		pipeline.WithVertexShader(vs),
		pipeline.WithFragmentShader(fs),
		pipeline.WithCullMode(wgpu.CullModeNone),
		pipeline.WithDepthTestEnabled(true),
		pipeline.WithDepthWriteEnabled(true),
	}, options...)
	return pipeline.NewPipeline(ProgramKey, pipeline.PipelineTypeRender, opts...), nil
}
