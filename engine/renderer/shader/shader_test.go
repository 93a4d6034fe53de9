package shader

import (
	"strings"
	"testing"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKernelSource = `//@oxy:include vertex_record
//@oxy:include deform_params
//@oxy:group 0 0 storage_read initial_vertices array<vertex_record>
//@oxy:group 0 1 storage_read_write deformed_vertices array<vertex_record>
//@oxy:group 0 2 storage_uniform params deform_params

@compute @workgroup_size(64)
fn deform_main(@builtin(global_invocation_id) id: vec3<u32>) {
    let i = id.x;
    if (i >= params.vertex_count) {
        return;
    }
    deformed_vertices[i] = initial_vertices[i];
}
`

func TestNewShaderComputeBindings(t *testing.T) {
	s, err := NewShader("kernel", ShaderTypeCompute, testKernelSource)
	require.NoError(t, err)

	assert.Equal(t, "deform_main", s.EntryPoint())
	assert.Equal(t, [3]uint32{64, 1, 1}, s.WorkgroupSize())
	assert.Contains(t, s.Source(), "@group(0) @binding(1) var<storage, read_write> deformed_vertices: array<VertexRecord>;")
	assert.Contains(t, s.Source(), "struct DeformParams")
	assert.NotContains(t, s.Source(), "@oxy:")

	want := map[string]BindingInfo{
		"initial_vertices": {
			Group: 0, Binding: 0, VarName: "initial_vertices", TypeName: "array<VertexRecord>",
			Type: wgpu.BufferBindingTypeReadOnlyStorage, Size: 24, Stride: 24,
		},
		"deformed_vertices": {
			Group: 0, Binding: 1, VarName: "deformed_vertices", TypeName: "array<VertexRecord>",
			Type: wgpu.BufferBindingTypeStorage, Size: 24, Stride: 24,
		},
		"params": {
			Group: 0, Binding: 2, VarName: "params", TypeName: "DeformParams",
			Type: wgpu.BufferBindingTypeUniform, Size: 16,
		},
	}
	if diff := cmp.Diff(want, s.Bindings()); diff != "" {
		t.Errorf("bindings mismatch (-want +got):\n%s", diff)
	}

	desc := s.BindGroupLayoutDescriptors()[0]
	require.Len(t, desc.Entries, 3)
	for i, e := range desc.Entries {
		assert.Equal(t, uint32(i), e.Binding)
		assert.Equal(t, wgpu.ShaderStageCompute, e.Visibility)
	}
	assert.Equal(t, uint64(16), desc.Entries[2].Buffer.MinBindingSize)

	require.Len(t, s.Declarations(), 3)
	assert.Equal(t, 1, *s.Declarations()[1].Binding)

	_, ok := s.ResolveBinding("missing")
	assert.False(t, ok)
}

func TestNewShaderCameraUniformSize(t *testing.T) {
	src := `//@oxy:include camera
//@oxy:include vertex_record
//@oxy:group 0 0 storage_uniform camera camera
//@oxy:group 1 0 storage_read vertices array<vertex_record>

@vertex
fn vs_main(@builtin(vertex_index) vi: u32) -> @builtin(position) vec4<f32> {
    let v = vertices[vi];
    return camera.view_proj * vec4<f32>(v.position[0], v.position[1], v.position[2], 1.0);
}
`
	s, err := NewShader("program", ShaderTypeVertex, src)
	require.NoError(t, err)

	cam, ok := s.ResolveBinding("camera")
	require.True(t, ok)
	assert.Equal(t, uint64(80), cam.Size)
	assert.Zero(t, cam.Stride)

	verts, ok := s.ResolveBinding("vertices")
	require.True(t, ok)
	assert.Equal(t, 1, verts.Group)
	assert.Equal(t, uint64(24), verts.Stride)
	assert.Empty(t, s.VertexLayouts())
	assert.Equal(t, [3]uint32{}, s.WorkgroupSize())
}

func TestNewShaderVertexLayouts(t *testing.T) {
	src := `struct VertexInput {
    @location(0) position: vec3<f32>,
    @location(1) normal: vec3<f32>,
}
struct VertexOutput {
    @builtin(position) clip: vec4<f32>,
    @location(0) normal: vec3<f32>,
}
@vertex
fn vs_main(in: VertexInput) -> VertexOutput {
    var out: VertexOutput;
    out.clip = vec4<f32>(in.position, 1.0);
    out.normal = in.normal;
    return out;
}
`
	s, err := NewShader("layout", ShaderTypeVertex, src)
	require.NoError(t, err)
	require.Len(t, s.VertexLayouts(), 1)

	layout := s.VertexLayouts()[0][0]
	assert.Equal(t, uint64(24), layout.ArrayStride)
	require.Len(t, layout.Attributes, 2)
	assert.Equal(t, uint64(12), layout.Attributes[1].Offset)
	assert.Equal(t, wgpu.VertexFormatFloat32x3, layout.Attributes[1].Format)
}

func TestNewShaderErrors(t *testing.T) {
	tests := []struct {
		name       string
		shaderType ShaderType
		source     string
		wantErr    string
	}{
		{
			"unknown include",
			ShaderTypeCompute,
			"//@oxy:include light\n@compute @workgroup_size(1) fn main() {}",
			"unknown struct type",
		},
		{
			"texture binding",
			ShaderTypeFragment,
			"@group(0) @binding(0) var tex: texture_2d<f32>;\n@fragment fn fs_main() -> @location(0) vec4<f32> { return vec4<f32>(1.0); }",
			"is not a buffer",
		},
		{
			"missing entry point",
			ShaderTypeCompute,
			"@vertex fn vs_main() -> @builtin(position) vec4<f32> { return vec4<f32>(0.0); }",
			"no @compute entry point",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewShader("bad", tt.shaderType, tt.source)
			require.Error(t, err)
			assert.Nil(t, s)
			assert.True(t, strings.Contains(err.Error(), tt.wantErr), "error %q should contain %q", err, tt.wantErr)
		})
	}
}

func TestNewShaderFromPathMissingFile(t *testing.T) {
	_, err := NewShaderFromPath("missing", ShaderTypeCompute, "does/not/exist.wgsl")
	assert.Error(t, err)
}

func TestParseAnnotation(t *testing.T) {
	tests := []struct {
		line    string
		want    *Annotation
		wantErr bool
	}{
		{line: "let x = 1;", want: nil},
		{line: "// plain comment", want: nil},
		{line: "//@oxy:include vertex_record", want: &Annotation{Type: annotationTypeInclude, Args: []AnnotationArg{AnnotationArgVertexRecord}, Line: 1}},
		{line: "//@oxy:include", wantErr: true},
		{line: "//@oxy:group x 0 storage_read v array<vertex_record>", wantErr: true},
		{line: "//@oxy:group 0 0 storage_write v array<vertex_record>", wantErr: true},
		{line: "//@oxy:group 0 0 storage_read v array<bone_info>", wantErr: true},
		{line: "//@oxy:provider 2 0 material", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := parseAnnotation(tt.line, 1)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("annotation mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
