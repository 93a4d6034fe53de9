package model

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractVerticesMatchesMesh(t *testing.T) {
	m := NewUVSphere(4, 6, 2)

	records, err := ExtractVertices(m)
	require.NoError(t, err)
	require.Len(t, records, m.VertexCount())

	for i, r := range records {
		assert.Equal(t, m.Positions()[i], r.Position, "position %d", i)
		assert.Equal(t, m.Normals()[i], r.Normal, "normal %d", i)
	}
}

func TestExtractVerticesErrors(t *testing.T) {
	tests := []struct {
		name string
		mesh Mesh
		want error
	}{
		{"nil mesh", nil, ErrNoVertices},
		{"empty mesh", NewMesh(WithName("empty")), ErrNoVertices},
		{
			"normal count short",
			NewMesh(
				WithPositions([][3]float32{{0, 0, 0}, {1, 0, 0}}),
				WithNormals([][3]float32{{0, 1, 0}}),
			),
			ErrLengthMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			records, err := ExtractVertices(tt.mesh)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, records)
		})
	}
}

func TestVertexRecordLayout(t *testing.T) {
	r := GPUVertexRecord{Position: [3]float32{1, 2, 3}, Normal: [3]float32{0, 1, 0}}
	assert.Equal(t, VertexRecordStride, r.Size())

	buf := r.Marshal()
	require.Len(t, buf, VertexRecordStride)
	// 1.0f little-endian
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0x3f}, buf[0:4])
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0x3f}, buf[16:20])
}

func TestMarshalVertexRecordsDecodes(t *testing.T) {
	records, err := ExtractVertices(NewQuad())
	require.NoError(t, err)

	data := MarshalVertexRecords(records)
	assert.Len(t, data, 4*VertexRecordStride)

	decoded, err := UnmarshalVertexRecords(data)
	require.NoError(t, err)
	if diff := cmp.Diff(records, decoded); diff != "" {
		t.Errorf("decoded records mismatch (-want +got):\n%s", diff)
	}

	_, err = UnmarshalVertexRecords(data[:5])
	assert.Error(t, err)
}
