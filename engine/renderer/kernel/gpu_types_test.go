package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndirectArgsLayout(t *testing.T) {
	args := GPUIndirectArgs{IndexCount: 6, InstanceCount: 1, BaseVertex: -2}
	assert.Equal(t, IndirectArgsStride, args.Size())

	buf := args.Marshal()
	require.Len(t, buf, IndirectArgsStride)
	assert.Equal(t, []byte{6, 0, 0, 0, 1, 0, 0, 0}, buf[:8])
	assert.Equal(t, []byte{0xfe, 0xff, 0xff, 0xff}, buf[12:16])

	decoded, err := UnmarshalIndirectArgs(buf)
	require.NoError(t, err)
	assert.Equal(t, args, decoded)

	_, err = UnmarshalIndirectArgs(buf[:4])
	assert.Error(t, err)
}

func TestDeformParamsLayout(t *testing.T) {
	p := GPUDeformParams{Time: 1.5, Radius: 0.25, Velocity: 2, VertexCount: 81}
	assert.Equal(t, 16, p.Size())
	assert.Equal(t, p, UnmarshalDeformParams(p.Marshal()))
	assert.Equal(t, GPUDeformParams{}, UnmarshalDeformParams(nil))
}

func TestWorkgroups(t *testing.T) {
	tests := []struct {
		n, size uint32
		want    uint32
	}{
		{1, 64, 1},
		{4, 64, 1},
		{64, 64, 1},
		{65, 64, 2},
		{1000, 64, 16},
		{7, 0, 7},
	}
	for _, tt := range tests {
		got, err := Workgroups(tt.n, tt.size)
		require.NoError(t, err)
		assert.Equal(t, [3]uint32{tt.want, 1, 1}, got, "n=%d size=%d", tt.n, tt.size)
	}

	_, err := Workgroups(0, 64)
	assert.ErrorIs(t, err, ErrEmptyDispatch)
}
