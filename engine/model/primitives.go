package model

import (
	"fmt"

	"github.com/chewxy/math32"
)

// NewQuad returns a unit quad in the XZ plane facing +Y: 4 vertices, 6 indices.
//
// Returns:
//   - Mesh: the quad mesh
func NewQuad() Mesh {
	up := [3]float32{0, 1, 0}
	return NewMesh(
		WithName("quad"),
		WithPositions([][3]float32{
			{-0.5, 0, -0.5},
			{0.5, 0, -0.5},
			{0.5, 0, 0.5},
			{-0.5, 0, 0.5},
		}),
		WithNormals([][3]float32{up, up, up, up}),
		WithIndices([]uint32{0, 2, 1, 0, 3, 2}),
	)
}

// NewGridPlane returns a size×size plane in the XZ plane split into divisions×divisions cells.
// Divisions below 1 are clamped to 1.
//
// Parameters:
//   - divisions: number of cells along each edge
//   - size: edge length in world units
//
// Returns:
//   - Mesh: the plane mesh with (divisions+1)² vertices
func NewGridPlane(divisions int, size float32) Mesh {
	divisions = max(divisions, 1)
	row := divisions + 1
	positions := make([][3]float32, 0, row*row)
	normals := make([][3]float32, 0, row*row)
	step := size / float32(divisions)
	half := size / 2

	for z := 0; z <= divisions; z++ {
		for x := 0; x <= divisions; x++ {
			positions = append(positions, [3]float32{float32(x)*step - half, 0, float32(z)*step - half})
			normals = append(normals, [3]float32{0, 1, 0})
		}
	}

	indices := make([]uint32, 0, divisions*divisions*6)
	for z := 0; z < divisions; z++ {
		for x := 0; x < divisions; x++ {
			i0 := uint32(z*row + x)
			i1 := i0 + 1
			i2 := i0 + uint32(row)
			i3 := i2 + 1
			indices = append(indices, i0, i2, i1, i1, i2, i3)
		}
	}

	return NewMesh(
		WithName(fmt.Sprintf("plane_%d", divisions)),
		WithPositions(positions),
		WithNormals(normals),
		WithIndices(indices),
	)
}

// NewUVSphere returns a latitude/longitude sphere centred on the origin.
// Rings below 2 and segments below 3 are clamped.
//
// Parameters:
//   - rings: number of latitude bands
//   - segments: number of longitude slices
//   - radius: sphere radius
//
// Returns:
//   - Mesh: the sphere mesh with (rings+1)*(segments+1) vertices
func NewUVSphere(rings, segments int, radius float32) Mesh {
	rings = max(rings, 2)
	segments = max(segments, 3)
	count := (rings + 1) * (segments + 1)
	positions := make([][3]float32, 0, count)
	normals := make([][3]float32, 0, count)

	for r := 0; r <= rings; r++ {
		theta := float32(r) * math32.Pi / float32(rings)
		st, ct := math32.Sincos(theta)
		for s := 0; s <= segments; s++ {
			phi := float32(s) * 2 * math32.Pi / float32(segments)
			sp, cp := math32.Sincos(phi)
			n := [3]float32{st * cp, ct, st * sp}
			normals = append(normals, n)
			positions = append(positions, [3]float32{n[0] * radius, n[1] * radius, n[2] * radius})
		}
	}

	stride := uint32(segments + 1)
	indices := make([]uint32, 0, rings*segments*6)
	for r := 0; r < rings; r++ {
		for s := 0; s < segments; s++ {
			i0 := uint32(r)*stride + uint32(s)
			i1 := i0 + stride
			indices = append(indices, i0, i1, i0+1, i0+1, i1, i1+1)
		}
	}

	return NewMesh(
		WithName(fmt.Sprintf("sphere_%dx%d", rings, segments)),
		WithPositions(positions),
		WithNormals(normals),
		WithIndices(indices),
	)
}
