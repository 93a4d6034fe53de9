package shader

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// typeLayout is the host-shareable size and alignment of a WGSL type.
type typeLayout struct {
	size  uint64
	align uint64
}

// scalarKind describes a scalar and the vertex formats of its vectors, keyed by width.
type scalarKind struct {
	name    string
	suffix  string
	size    uint64
	formats map[int]wgpu.VertexFormat
}

var scalarKinds = []scalarKind{
	{"f32", "f", 4, map[int]wgpu.VertexFormat{
		1: wgpu.VertexFormatFloat32, 2: wgpu.VertexFormatFloat32x2, 3: wgpu.VertexFormatFloat32x3, 4: wgpu.VertexFormatFloat32x4,
	}},
	{"i32", "i", 4, map[int]wgpu.VertexFormat{
		1: wgpu.VertexFormatSint32, 2: wgpu.VertexFormatSint32x2, 3: wgpu.VertexFormatSint32x3, 4: wgpu.VertexFormatSint32x4,
	}},
	{"u32", "u", 4, map[int]wgpu.VertexFormat{
		1: wgpu.VertexFormatUint32, 2: wgpu.VertexFormatUint32x2, 3: wgpu.VertexFormatUint32x3, 4: wgpu.VertexFormatUint32x4,
	}},
	{"f16", "h", 2, map[int]wgpu.VertexFormat{
		2: wgpu.VertexFormatFloat16x2, 4: wgpu.VertexFormatFloat16x4,
	}},
}

var (
	// builtinLayouts holds scalars, vectors, f32 matrices and atomics.
	builtinLayouts = map[string]typeLayout{"bool": {4, 4}}
	// vertexFormats maps scalar and vector type names to their vertex attribute format.
	vertexFormats = map[string]wgpu.VertexFormat{}
)

func init() {
	for _, k := range scalarKinds {
		builtinLayouts[k.name] = typeLayout{k.size, k.size}
		for n := 2; n <= 4; n++ {
			// vec3 aligns like vec4.
			l := typeLayout{uint64(n) * k.size, uint64(n+n%2) * k.size}
			long, short := fmt.Sprintf("vec%d<%s>", n, k.name), fmt.Sprintf("vec%d%s", n, k.suffix)
			builtinLayouts[long], builtinLayouts[short] = l, l
		}
		for n, format := range k.formats {
			if n == 1 {
				vertexFormats[k.name] = format
				continue
			}
			vertexFormats[fmt.Sprintf("vec%d<%s>", n, k.name)] = format
			vertexFormats[fmt.Sprintf("vec%d%s", n, k.suffix)] = format
		}
	}

	// matCxR<f32> is C columns of vecR<f32>, each padded to the column alignment.
	for c := 2; c <= 4; c++ {
		for r := 2; r <= 4; r++ {
			col := builtinLayouts[fmt.Sprintf("vec%df", r)]
			l := typeLayout{uint64(c) * roundUp(col.align, col.size), col.align}
			builtinLayouts[fmt.Sprintf("mat%dx%d<f32>", c, r)] = l
			builtinLayouts[fmt.Sprintf("mat%dx%df", c, r)] = l
		}
	}

	builtinLayouts["atomic<u32>"] = typeLayout{4, 4}
	builtinLayouts["atomic<i32>"] = typeLayout{4, 4}
}

// roundUp rounds v up to a multiple of the power-of-two align.
func roundUp(align, v uint64) uint64 {
	if align == 0 {
		return v
	}
	return (v + align - 1) &^ (align - 1)
}

// layoutTable resolves type names against the builtins and the structs of one source.
type layoutTable map[string]typeLayout

// newLayoutTable lays out every struct whose members resolve. Structs may reference each
// other in any order, so passes repeat until one makes no progress.
func newLayoutTable(structs []wgslStruct) layoutTable {
	t := make(layoutTable, len(structs))
	pending := append([]wgslStruct(nil), structs...)
	for len(pending) > 0 {
		rest := pending[:0]
		for _, s := range pending {
			if l, ok := t.layoutStruct(s); ok {
				t[s.name] = l
			} else {
				rest = append(rest, s)
			}
		}
		if len(rest) == len(pending) {
			break
		}
		pending = rest
	}
	return t
}

// resolve returns the layout of typeName. A runtime array resolves to a single element stride.
func (t layoutTable) resolve(typeName string) (typeLayout, bool) {
	if l, ok := builtinLayouts[typeName]; ok {
		return l, true
	}
	if l, ok := t[typeName]; ok {
		return l, true
	}
	if !strings.HasPrefix(typeName, "array<") || !strings.HasSuffix(typeName, ">") {
		return typeLayout{}, false
	}

	elemName, countText, fixed := strings.Cut(typeName[len("array<"):len(typeName)-1], ",")
	elem, ok := t.resolve(strings.TrimSpace(elemName))
	if !ok {
		return typeLayout{}, false
	}
	stride := roundUp(elem.align, elem.size)
	if !fixed {
		return typeLayout{stride, elem.align}, true
	}
	count, err := strconv.ParseUint(strings.TrimSpace(countText), 10, 64)
	if err != nil {
		return typeLayout{}, false
	}
	return typeLayout{count * stride, elem.align}, true
}

// layoutStruct places each member at its aligned offset and rounds the total to the struct
// alignment. A trailing runtime array contributes nothing past the fixed prefix, except that a
// struct holding only a runtime array takes the element stride.
func (t layoutTable) layoutStruct(s wgslStruct) (typeLayout, bool) {
	var offset uint64
	align := uint64(1)
	for _, mem := range s.members {
		if mem.builtin {
			continue
		}
		if _, runtime := runtimeElement(mem.typeName); runtime {
			if offset == 0 {
				return t.resolve(mem.typeName)
			}
			return typeLayout{roundUp(align, offset), align}, true
		}
		l, ok := t.resolve(mem.typeName)
		if !ok {
			return typeLayout{}, false
		}
		offset = roundUp(l.align, offset) + l.size
		align = max(align, l.align)
	}
	return typeLayout{roundUp(align, offset), align}, true
}

// runtimeElement reports whether typeName is array<T> without a count and returns T.
func runtimeElement(typeName string) (string, bool) {
	if !strings.HasPrefix(typeName, "array<") || !strings.HasSuffix(typeName, ">") {
		return "", false
	}
	inner := typeName[len("array<") : len(typeName)-1]
	if strings.Contains(inner, ",") {
		return "", false
	}
	return strings.TrimSpace(inner), true
}
