package kernel

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/chewxy/math32"
)

// IndirectArgsStride is the byte size of one DrawIndexedIndirect argument block.
const IndirectArgsStride = 20

// GPUIndirectArgsSource is the canonical WGSL definition of the IndirectArgs struct.
// Matches GPUIndirectArgs layout exactly (20 bytes).
//
//go:embed assets/indirect_args.wgsl
var GPUIndirectArgsSource string

// GPUIndirectArgs is the GPU-aligned DrawIndexedIndirect argument block read by the draw call.
// Size: 20 bytes (5 × u32).
type GPUIndirectArgs struct {
	IndexCount    uint32 // offset 0: number of indices per instance
	InstanceCount uint32 // offset 4: number of instances to draw
	FirstIndex    uint32 // offset 8: offset into the index buffer
	BaseVertex    int32  // offset 12: added to each index value (signed)
	FirstInstance uint32 // offset 16: first instance ID
}

// Size returns the size of the GPUIndirectArgs struct in bytes.
//
// Returns:
//   - int: The size of the struct in bytes.
func (g *GPUIndirectArgs) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUIndirectArgs struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 20-byte buffer ready for GPU upload.
func (g *GPUIndirectArgs) Marshal() []byte {
	buf := make([]byte, IndirectArgsStride)
	binary.LittleEndian.PutUint32(buf[0:4], g.IndexCount)
	binary.LittleEndian.PutUint32(buf[4:8], g.InstanceCount)
	binary.LittleEndian.PutUint32(buf[8:12], g.FirstIndex)
	binary.LittleEndian.PutUint32(buf[12:16], uint32(g.BaseVertex))
	binary.LittleEndian.PutUint32(buf[16:20], g.FirstInstance)
	return buf
}

// UnmarshalIndirectArgs decodes an argument block read back from the device.
//
// Parameters:
//   - buf: at least 20 bytes
//
// Returns:
//   - GPUIndirectArgs: the decoded arguments
//   - error: if buf is shorter than 20 bytes
func UnmarshalIndirectArgs(buf []byte) (GPUIndirectArgs, error) {
	if len(buf) < IndirectArgsStride {
		return GPUIndirectArgs{}, fmt.Errorf("indirect args need %d bytes, got %d", IndirectArgsStride, len(buf))
	}
	return GPUIndirectArgs{
		IndexCount:    binary.LittleEndian.Uint32(buf[0:4]),
		InstanceCount: binary.LittleEndian.Uint32(buf[4:8]),
		FirstIndex:    binary.LittleEndian.Uint32(buf[8:12]),
		BaseVertex:    int32(binary.LittleEndian.Uint32(buf[12:16])),
		FirstInstance: binary.LittleEndian.Uint32(buf[16:20]),
	}, nil
}

// GPUDeformParamsSource is the canonical WGSL definition of the DeformParams struct.
// Matches GPUDeformParams layout exactly (16 bytes).
//
//go:embed assets/deform_params.wgsl
var GPUDeformParamsSource string

// GPUDeformParams is the per-frame uniform pushed to the deformation kernel.
// VertexCount is the true element count used by the kernel's bounds check, since the
// last workgroup may launch invocations past the end of the buffers.
// Size: 16 bytes.
type GPUDeformParams struct {
	Time        float32 // offset  0: seconds since start
	Radius      float32 // offset  4: displacement amplitude
	Velocity    float32 // offset  8: wave angular speed
	VertexCount uint32  // offset 12: number of valid vertices
}

// Size returns the size of the GPUDeformParams struct in bytes.
//
// Returns:
//   - int: The size of the struct in bytes.
func (g *GPUDeformParams) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUDeformParams struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 16-byte buffer ready for GPU upload.
func (g *GPUDeformParams) Marshal() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], math32.Float32bits(g.Time))
	binary.LittleEndian.PutUint32(buf[4:8], math32.Float32bits(g.Radius))
	binary.LittleEndian.PutUint32(buf[8:12], math32.Float32bits(g.Velocity))
	binary.LittleEndian.PutUint32(buf[12:16], g.VertexCount)
	return buf
}

// UnmarshalDeformParams decodes a params uniform as seen by a host kernel.
//
// Parameters:
//   - buf: at least 16 bytes
//
// Returns:
//   - GPUDeformParams: the decoded params, zero if buf is too short
func UnmarshalDeformParams(buf []byte) GPUDeformParams {
	if len(buf) < 16 {
		return GPUDeformParams{}
	}
	return GPUDeformParams{
		Time:        math32.Float32frombits(binary.LittleEndian.Uint32(buf[0:4])),
		Radius:      math32.Float32frombits(binary.LittleEndian.Uint32(buf[4:8])),
		Velocity:    math32.Float32frombits(binary.LittleEndian.Uint32(buf[8:12])),
		VertexCount: binary.LittleEndian.Uint32(buf[12:16]),
	}
}
