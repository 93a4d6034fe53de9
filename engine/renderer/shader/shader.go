package shader

import (
	"fmt"
	"os"

	"github.com/cogentcore/webgpu/wgpu"
)

// ShaderType identifies which pipeline stage a shader serves.
type ShaderType int

const (
	// ShaderTypeCompute indicates a shader containing a @compute entry point.
	ShaderTypeCompute ShaderType = iota

	// ShaderTypeVertex is the vertex shader type, used for vertex processing in render pipelines.
	ShaderTypeVertex

	// ShaderTypeFragment is the fragment shader type, used for fragment processing in pair with a vertex shader.
	ShaderTypeFragment
)

// String returns the stage name.
func (t ShaderType) String() string {
	switch t {
	case ShaderTypeCompute:
		return "compute"
	case ShaderTypeVertex:
		return "vertex"
	case ShaderTypeFragment:
		return "fragment"
	default:
		return fmt.Sprintf("ShaderType(%d)", int(t))
	}
}

// BindingInfo describes one buffer variable declared by a shader. It is what a name
// resolves to when a buffer is bound by slot name.
type BindingInfo struct {
	// Group is the @group index.
	Group int
	// Binding is the @binding index within the group.
	Binding int
	// VarName is the WGSL variable name.
	VarName string
	// TypeName is the WGSL store type, e.g. "array<VertexRecord>".
	TypeName string
	// Type is the buffer binding type derived from the address space.
	Type wgpu.BufferBindingType
	// Size is the minimum binding size in bytes, 0 if the type could not be resolved.
	Size uint64
	// Stride is the element stride of a runtime-sized array, 0 for any other type.
	Stride uint64
}

// shader is the implementation of the Shader interface.
type shader struct {
	key                        string
	source                     string
	shaderType                 ShaderType
	bindGroupLayoutDescriptors map[int]wgpu.BindGroupLayoutDescriptor
	bindings                   map[string]BindingInfo
	vertexLayouts              map[int][]wgpu.VertexBufferLayout
	workGroupSize              [3]uint32
	entryPoint                 string
	module                     *wgpu.ShaderModuleDescriptor

	pp PreProcessor
}

// Shader defines the interface for a loaded and parsed WGSL shader. It exposes the shader's
// key, processed source, entry point, bind group layout descriptors, named buffer bindings,
// vertex buffer layouts and workgroup size needed for pipeline creation and resource wiring.
type Shader interface {
	// Key retrieves the unique identifier for this shader.
	//
	// Returns:
	//   - string: the shader's unique key
	Key() string

	// Source retrieves the pre-processed WGSL source code.
	//
	// Returns:
	//   - string: the WGSL source code of the shader
	Source() string

	// BindGroupLayoutDescriptors retrieves all parsed bind group layout descriptors, keyed by group index.
	//
	// Returns:
	//   - map[int]wgpu.BindGroupLayoutDescriptor: descriptors keyed by group index
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// ResolveBinding looks up a buffer variable by its WGSL name.
	//
	// Parameters:
	//   - varName: the WGSL variable name, e.g. "deformed_vertices"
	//
	// Returns:
	//   - BindingInfo: the group, binding and layout of the variable
	//   - bool: false if the shader declares no such variable
	ResolveBinding(varName string) (BindingInfo, bool)

	// Bindings returns every buffer variable the shader declares, keyed by WGSL name.
	//
	// Returns:
	//   - map[string]BindingInfo: binding metadata keyed by variable name
	Bindings() map[string]BindingInfo

	// VertexLayouts retrieves the vertex buffer layouts parsed from @location input structs.
	// Vertex-pulling shaders declare none.
	//
	// Returns:
	//   - map[int][]wgpu.VertexBufferLayout: layouts keyed by sequential index
	VertexLayouts() map[int][]wgpu.VertexBufferLayout

	// EntryPoint returns the entry point name for this shader.
	//
	// Returns:
	//   - string: the entry point name (e.g. "main")
	EntryPoint() string

	// WorkgroupSize returns the workgroup size for compute shaders, [1, 1, 1] when
	// @workgroup_size is absent and [0, 0, 0] for other stages.
	//
	// Returns:
	//   - [3]uint32: the workgroup size as [x, y, z]
	WorkgroupSize() [3]uint32

	// Module returns the shader module descriptor built from the processed source.
	//
	// Returns:
	//   - *wgpu.ShaderModuleDescriptor: the descriptor containing the WGSL code and label
	Module() *wgpu.ShaderModuleDescriptor

	// ShaderType returns the type of the shader (vertex, fragment, or compute).
	//
	// Returns:
	//   - ShaderType: ShaderTypeVertex, ShaderTypeFragment, or ShaderTypeCompute
	ShaderType() ShaderType

	// Declarations returns the @oxy:group annotations found in the source.
	//
	// Returns:
	//   - []Annotation: the group declarations in source order
	Declarations() []Annotation
}

var _ Shader = &shader{}

// NewShader pre-processes and parses WGSL source into a Shader.
//
// Parameters:
//   - key: a unique identifier for the shader, used for caching and lookups
//   - shaderType: the pipeline stage the shader serves
//   - source: the raw WGSL source, optionally containing @oxy: annotations
//
// Returns:
//   - Shader: the parsed shader
//   - error: if pre-processing fails, the entry point is missing, or a binding is not a buffer
func NewShader(key string, shaderType ShaderType, source string) (Shader, error) {
	s := &shader{
		key:           key,
		shaderType:    shaderType,
		vertexLayouts: make(map[int][]wgpu.VertexBufferLayout),
		pp:            NewPreProcessor(),
	}
	if err := s.parseSource(source); err != nil {
		return nil, fmt.Errorf("shader %s: %w", key, err)
	}
	return s, nil
}

// NewShaderFromPath reads WGSL source from disk and parses it with NewShader.
//
// Parameters:
//   - key: a unique identifier for the shader
//   - shaderType: the pipeline stage the shader serves
//   - path: the file path to read WGSL source from
//
// Returns:
//   - Shader: the parsed shader
//   - error: if the file cannot be read or parsed
func NewShaderFromPath(key string, shaderType ShaderType, path string) (Shader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("shader %s: reading %q: %w", key, path, err)
	}
	return NewShader(key, shaderType, string(data))
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) VertexLayouts() map[int][]wgpu.VertexBufferLayout {
	return s.vertexLayouts
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) WorkgroupSize() [3]uint32 {
	return s.workGroupSize
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors
}

func (s *shader) ResolveBinding(varName string) (BindingInfo, bool) {
	info, ok := s.bindings[varName]
	return info, ok
}

func (s *shader) Bindings() map[string]BindingInfo {
	return s.bindings
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return s.module
}

func (s *shader) ShaderType() ShaderType {
	return s.shaderType
}

func (s *shader) Declarations() []Annotation {
	return s.pp.Declarations()
}

// parseSource pre-processes the WGSL source, builds the shader module descriptor and
// extracts the metadata appropriate for the shader type.
func (s *shader) parseSource(raw string) error {
	source, err := s.pp.Process(raw)
	if err != nil {
		return fmt.Errorf("pre-processing: %w", err)
	}
	s.source = source
	s.module = &wgpu.ShaderModuleDescriptor{
		Label: s.key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: s.source,
		},
	}

	r, err := reflectWGSL(s.source, s.shaderType)
	if err != nil {
		return err
	}
	s.entryPoint = r.entryPoint
	s.workGroupSize = r.workgroupSize
	s.vertexLayouts = r.vertexLayouts
	s.bindGroupLayoutDescriptors = r.groupLayouts
	s.bindings = r.bindings
	return nil
}
