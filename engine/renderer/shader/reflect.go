package shader

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// reflection is everything the renderer reads back from a pre-processed WGSL source.
type reflection struct {
	entryPoint    string
	workgroupSize [3]uint32
	vertexLayouts map[int][]wgpu.VertexBufferLayout
	groupLayouts  map[int]wgpu.BindGroupLayoutDescriptor
	bindings      map[string]BindingInfo
}

var (
	structRe    = regexp.MustCompile(`struct\s+(\w+)\s*\{([^}]*)\}`)
	memberRe    = regexp.MustCompile(`^((?:@\w+(?:\([^)]*\))?\s*)*)(\w+)\s*:\s*(.+)$`)
	locationRe  = regexp.MustCompile(`@location\(\s*(\d+)\s*\)`)
	workgroupRe = regexp.MustCompile(`@workgroup_size\(\s*(\d+)\s*(?:,\s*(\d+)\s*(?:,\s*(\d+)\s*)?)?\)`)
	// @group(0) @binding(2) var<uniform> params: DeformParams;
	resourceRe = regexp.MustCompile(`@group\((\d+)\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)

	entryRes = map[ShaderType]*regexp.Regexp{
		ShaderTypeVertex:   regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`),
		ShaderTypeFragment: regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`),
		ShaderTypeCompute:  regexp.MustCompile(`(?s)@compute\b.*?\bfn\s+(\w+)`),
	}
)

// reflectWGSL reads the entry point, bind group layouts and the stage specific metadata
// (vertex inputs or workgroup size) out of source.
//
// Parameters:
//   - source: WGSL with every annotation already expanded
//   - shaderType: the stage whose entry point and visibility apply
//
// Returns:
//   - reflection: the extracted metadata
//   - error: if the entry point is missing or a resource is not a buffer
func reflectWGSL(source string, shaderType ShaderType) (reflection, error) {
	var r reflection
	code := stripComments(source)

	re, ok := entryRes[shaderType]
	if !ok {
		return r, fmt.Errorf("unknown shader type %d", int(shaderType))
	}
	if m := re.FindStringSubmatch(code); m != nil {
		r.entryPoint = m[1]
	}
	if r.entryPoint == "" {
		return r, fmt.Errorf("no @%s entry point found", shaderType)
	}

	structs := parseStructs(code)
	table := newLayoutTable(structs)

	var visibility wgpu.ShaderStage
	switch shaderType {
	case ShaderTypeVertex:
		visibility = wgpu.ShaderStageVertex
		r.vertexLayouts = vertexInputs(structs)
	case ShaderTypeFragment:
		visibility = wgpu.ShaderStageFragment
	case ShaderTypeCompute:
		visibility = wgpu.ShaderStageCompute
		r.workgroupSize = workgroupSize(code)
	}

	var err error
	r.groupLayouts, r.bindings, err = resources(code, visibility, table)
	return r, err
}

// resources turns every @group/@binding declaration into a layout entry and a BindingInfo.
// Handle types have no address space and are rejected.
func resources(code string, visibility wgpu.ShaderStage, table layoutTable) (map[int]wgpu.BindGroupLayoutDescriptor, map[string]BindingInfo, error) {
	entries := make(map[int][]wgpu.BindGroupLayoutEntry)
	bindings := make(map[string]BindingInfo)

	for _, m := range resourceRe.FindAllStringSubmatch(code, -1) {
		group, _ := strconv.Atoi(m[1])
		binding, _ := strconv.Atoi(m[2])
		name, typeName := m[4], strings.TrimSpace(m[5])

		bufferType, ok := bufferTypeOf(strings.TrimSpace(m[3]))
		if !ok {
			return nil, nil, fmt.Errorf("binding %s (group %d, binding %d) of type %q is not a buffer", name, group, binding, typeName)
		}

		info := BindingInfo{
			Group:    group,
			Binding:  binding,
			VarName:  name,
			TypeName: typeName,
			Type:     bufferType,
		}
		entry := wgpu.BindGroupLayoutEntry{
			Binding:    uint32(binding),
			Visibility: visibility,
		}
		entry.Buffer.Type = bufferType

		// A runtime array reports one element, so unbound slots still get a usable size.
		if l, ok := table.resolve(typeName); ok && l.size > 0 {
			info.Size = l.size
			entry.Buffer.MinBindingSize = l.size
			if _, runtime := runtimeElement(typeName); runtime {
				info.Stride = l.size
			}
		}

		entries[group] = append(entries[group], entry)
		bindings[name] = info
	}

	layouts := make(map[int]wgpu.BindGroupLayoutDescriptor, len(entries))
	for group, es := range entries {
		sort.Slice(es, func(i, j int) bool { return es[i].Binding < es[j].Binding })
		layouts[group] = wgpu.BindGroupLayoutDescriptor{Entries: es}
	}
	return layouts, bindings, nil
}

// bufferTypeOf maps a var address space to its buffer binding type.
func bufferTypeOf(addressSpace string) (wgpu.BufferBindingType, bool) {
	switch {
	case addressSpace == "uniform":
		return wgpu.BufferBindingTypeUniform, true
	case strings.HasPrefix(addressSpace, "storage") && strings.Contains(addressSpace, "read_write"):
		return wgpu.BufferBindingTypeStorage, true
	case strings.HasPrefix(addressSpace, "storage"):
		return wgpu.BufferBindingTypeReadOnlyStorage, true
	}
	return wgpu.BufferBindingTypeUndefined, false
}

// workgroupSize reads @workgroup_size. Missing dimensions are 1.
func workgroupSize(code string) [3]uint32 {
	size := [3]uint32{1, 1, 1}
	m := workgroupRe.FindStringSubmatch(code)
	if m == nil {
		return size
	}
	for i, dim := range m[1:] {
		if v, err := strconv.ParseUint(dim, 10, 32); err == nil {
			size[i] = uint32(v)
		}
	}
	return size
}

// member is one field of a WGSL struct.
type member struct {
	name     string
	typeName string
	location int // -1 without @location
	builtin  bool
}

// wgslStruct is a struct declaration and its members in source order.
type wgslStruct struct {
	name    string
	members []member
}

func parseStructs(code string) []wgslStruct {
	var out []wgslStruct
	for _, m := range structRe.FindAllStringSubmatch(code, -1) {
		s := wgslStruct{name: m[1]}
		for _, field := range splitMembers(m[2]) {
			fm := memberRe.FindStringSubmatch(strings.TrimSpace(field))
			if fm == nil {
				continue
			}
			mem := member{
				name:     fm[2],
				typeName: strings.TrimSpace(fm[3]),
				location: -1,
				builtin:  strings.Contains(fm[1], "@builtin"),
			}
			if loc := locationRe.FindStringSubmatch(fm[1]); loc != nil {
				mem.location, _ = strconv.Atoi(loc[1])
			}
			s.members = append(s.members, mem)
		}
		out = append(out, s)
	}
	return out
}

// splitMembers splits a struct body on commas outside of <...>, so array<T, N> stays whole.
func splitMembers(body string) []string {
	var parts []string
	depth, start := 0, 0
	for i, c := range body {
		switch c {
		case '<':
			depth++
		case '>':
			depth = max(depth-1, 0)
		case ',':
			if depth == 0 {
				parts = append(parts, body[start:i])
				start = i + 1
			}
		}
	}
	return append(parts, body[start:])
}

// vertexInputs builds one vertex buffer layout per struct that only carries @location members.
// Structs with a member that has no vertex format are skipped.
func vertexInputs(structs []wgslStruct) map[int][]wgpu.VertexBufferLayout {
	layouts := make(map[int][]wgpu.VertexBufferLayout)
	for _, s := range structs {
		if !s.isVertexInput() {
			continue
		}
		var offset uint64
		attrs := make([]wgpu.VertexAttribute, 0, len(s.members))
		for _, mem := range s.members {
			format, ok := vertexFormats[mem.typeName]
			if !ok {
				attrs = nil
				break
			}
			attrs = append(attrs, wgpu.VertexAttribute{
				Format:         format,
				Offset:         offset,
				ShaderLocation: uint32(mem.location),
			})
			offset += builtinLayouts[mem.typeName].size
		}
		if attrs == nil {
			continue
		}
		layouts[len(layouts)] = []wgpu.VertexBufferLayout{{
			ArrayStride: offset,
			StepMode:    wgpu.VertexStepModeVertex,
			Attributes:  attrs,
		}}
	}
	return layouts
}

// isVertexInput is true for a struct with @location members and no @builtin ones.
// Vertex outputs always carry @builtin(position).
func (s wgslStruct) isVertexInput() bool {
	located := false
	for _, mem := range s.members {
		if mem.builtin {
			return false
		}
		located = located || mem.location >= 0
	}
	return located
}

// stripComments drops // comments and nested /* */ comments.
func stripComments(source string) string {
	var sb strings.Builder
	sb.Grow(len(source))

	depth := 0
	for i := 0; i < len(source); i++ {
		switch {
		case depth == 0 && strings.HasPrefix(source[i:], "//"):
			end := strings.IndexByte(source[i:], '\n')
			if end < 0 {
				return sb.String()
			}
			i += end - 1
		case strings.HasPrefix(source[i:], "/*"):
			depth++
			i++
		case depth > 0 && strings.HasPrefix(source[i:], "*/"):
			depth--
			i++
		case depth > 0:
		default:
			sb.WriteByte(source[i])
		}
	}
	return sb.String()
}
