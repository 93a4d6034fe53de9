package model

import (
	"encoding/binary"

	"github.com/chewxy/math32"
)

// mesh is the implementation of the Mesh interface.
type mesh struct {
	name      string
	positions [][3]float32
	normals   [][3]float32
	indices   []uint32
}

// Mesh defines the interface for CPU-side mesh geometry handed to the deformation pipeline.
// Positions and normals are parallel arrays; index i of each describes vertex i.
type Mesh interface {
	// Name retrieves the mesh identifier.
	//
	// Returns:
	//   - string: the mesh name
	Name() string

	// Positions returns the per-vertex positions in model space.
	//
	// Returns:
	//   - [][3]float32: the vertex positions
	Positions() [][3]float32

	// Normals returns the per-vertex normals.
	//
	// Returns:
	//   - [][3]float32: the vertex normals
	Normals() [][3]float32

	// Indices returns the triangle list indices.
	//
	// Returns:
	//   - []uint32: the index list
	Indices() []uint32

	// VertexCount returns the number of positions in the mesh.
	//
	// Returns:
	//   - int: the vertex count
	VertexCount() int

	// IndexCount returns the number of indices in the mesh.
	//
	// Returns:
	//   - int: the index count
	IndexCount() int

	// IndexData returns the indices packed as little-endian u32 for GPU upload.
	//
	// Returns:
	//   - []byte: the packed index data
	IndexData() []byte

	// BoundingRadius returns the maximum vertex distance from the origin.
	//
	// Returns:
	//   - float32: the bounding radius
	BoundingRadius() float32
}

var _ Mesh = &mesh{}

// NewMesh creates a new Mesh with the provided options applied.
//
// Parameters:
//   - options: a variadic list of MeshBuilderOption functions to configure the mesh
//
// Returns:
//   - Mesh: the configured mesh
func NewMesh(options ...MeshBuilderOption) Mesh {
	m := &mesh{}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *mesh) Name() string {
	return m.name
}

func (m *mesh) Positions() [][3]float32 {
	return m.positions
}

func (m *mesh) Normals() [][3]float32 {
	return m.normals
}

func (m *mesh) Indices() []uint32 {
	return m.indices
}

func (m *mesh) VertexCount() int {
	return len(m.positions)
}

func (m *mesh) IndexCount() int {
	return len(m.indices)
}

func (m *mesh) IndexData() []byte {
	buf := make([]byte, len(m.indices)*4)
	for i, idx := range m.indices {
		binary.LittleEndian.PutUint32(buf[i*4:], idx)
	}
	return buf
}

func (m *mesh) BoundingRadius() float32 {
	var r float32
	for _, p := range m.positions {
		r = math32.Max(r, math32.Sqrt(p[0]*p[0]+p[1]*p[1]+p[2]*p[2]))
	}
	return r
}
