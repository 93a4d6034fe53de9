package model

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQuadCounts(t *testing.T) {
	q := NewQuad()
	assert.Equal(t, 4, q.VertexCount())
	assert.Equal(t, 6, q.IndexCount())
	assert.Len(t, q.Normals(), 4)
}

func TestGridPlaneCounts(t *testing.T) {
	p := NewGridPlane(8, 4)
	assert.Equal(t, 81, p.VertexCount())
	assert.Equal(t, 8*8*6, p.IndexCount())
	assert.InDelta(t, 2*1.41421356, p.BoundingRadius(), 1e-4)

	clamped := NewGridPlane(0, 1)
	assert.Equal(t, 4, clamped.VertexCount())
}

func TestSphereIndicesInRange(t *testing.T) {
	s := NewUVSphere(6, 8, 1)
	assert.Equal(t, 7*9, s.VertexCount())
	assert.Equal(t, 6*8*6, s.IndexCount())
	for _, idx := range s.Indices() {
		assert.Less(t, int(idx), s.VertexCount())
	}
	assert.InDelta(t, 1, s.BoundingRadius(), 1e-5)
}

func TestIndexDataLittleEndian(t *testing.T) {
	q := NewQuad()
	data := q.IndexData()
	assert.Len(t, data, q.IndexCount()*4)
	for i, idx := range q.Indices() {
		assert.Equal(t, idx, binary.LittleEndian.Uint32(data[i*4:]))
	}
}
