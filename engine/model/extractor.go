package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNoVertices is returned when a mesh carries zero vertices.
	ErrNoVertices = errors.New("mesh has no vertices")

	// ErrLengthMismatch is returned when the position and normal arrays differ in length.
	ErrLengthMismatch = errors.New("mesh position and normal counts differ")
)

// ExtractVertices packs a mesh's parallel position and normal arrays into VertexRecords,
// index for index. It has no side effects.
//
// Parameters:
//   - m: the source mesh
//
// Returns:
//   - []GPUVertexRecord: one record per vertex
//   - error: ErrNoVertices or ErrLengthMismatch
func ExtractVertices(m Mesh) ([]GPUVertexRecord, error) {
	if m == nil || m.VertexCount() == 0 {
		return nil, ErrNoVertices
	}
	positions, normals := m.Positions(), m.Normals()
	if len(positions) != len(normals) {
		return nil, fmt.Errorf("%w: %d positions, %d normals", ErrLengthMismatch, len(positions), len(normals))
	}

	records := make([]GPUVertexRecord, len(positions))
	for i := range positions {
		records[i] = GPUVertexRecord{Position: positions[i], Normal: normals[i]}
	}
	return records, nil
}
