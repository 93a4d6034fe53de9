package model

// MeshBuilderOption is a functional option for configuring a Mesh via NewMesh.
type MeshBuilderOption func(*mesh)

// WithName is an option builder that sets the name of the Mesh.
//
// Parameters:
//   - name: the mesh identifier
//
// Returns:
//   - MeshBuilderOption: a function that applies the name option to a mesh
func WithName(name string) MeshBuilderOption {
	return func(m *mesh) {
		m.name = name
	}
}

// WithPositions is an option builder that sets the vertex positions of the Mesh.
//
// Parameters:
//   - positions: the per-vertex positions
//
// Returns:
//   - MeshBuilderOption: a function that applies the positions option to a mesh
func WithPositions(positions [][3]float32) MeshBuilderOption {
	return func(m *mesh) {
		m.positions = positions
	}
}

// WithNormals is an option builder that sets the vertex normals of the Mesh.
//
// Parameters:
//   - normals: the per-vertex normals, parallel to the positions
//
// Returns:
//   - MeshBuilderOption: a function that applies the normals option to a mesh
func WithNormals(normals [][3]float32) MeshBuilderOption {
	return func(m *mesh) {
		m.normals = normals
	}
}

// WithIndices is an option builder that sets the triangle list indices of the Mesh.
//
// Parameters:
//   - indices: the index list
//
// Returns:
//   - MeshBuilderOption: a function that applies the indices option to a mesh
func WithIndices(indices []uint32) MeshBuilderOption {
	return func(m *mesh) {
		m.indices = indices
	}
}
