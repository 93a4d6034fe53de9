package model

import (
	_ "embed"
	"encoding/binary"
	"fmt"
	"unsafe"

	"github.com/chewxy/math32"
)

// VertexRecordStride is the byte stride of one GPUVertexRecord in device memory.
const VertexRecordStride = 24

// GPUVertexRecordSource is the canonical WGSL definition of the VertexRecord struct shared by
// the deformation kernel and the vertex-pulling render program.
// Matches GPUVertexRecord layout exactly (24 bytes). The fields are declared as array<f32, 3>
// because vec3<f32> carries 16-byte alignment and would pad the stride to 32.
//
//go:embed assets/vertex_record.wgsl
var GPUVertexRecordSource string

// GPUVertexRecord is the GPU-aligned representation of one mesh vertex as consumed by the
// deformation kernel. Index i of every vertex buffer refers to mesh vertex i.
// Size: 24 bytes, no padding.
type GPUVertexRecord struct {
	Position [3]float32 // offset  0: vertex position in model space (12 bytes)
	Normal   [3]float32 // offset 12: vertex normal (12 bytes)
}

// Size returns the size of the GPUVertexRecord struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUVertexRecord) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUVertexRecord struct into a byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 24-byte buffer ready for GPU upload.
func (g *GPUVertexRecord) Marshal() []byte {
	buf := make([]byte, VertexRecordStride)
	g.put(buf)
	return buf
}

func (g *GPUVertexRecord) put(buf []byte) {
	binary.LittleEndian.PutUint32(buf[0:4], math32.Float32bits(g.Position[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math32.Float32bits(g.Position[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math32.Float32bits(g.Position[2]))
	binary.LittleEndian.PutUint32(buf[12:16], math32.Float32bits(g.Normal[0]))
	binary.LittleEndian.PutUint32(buf[16:20], math32.Float32bits(g.Normal[1]))
	binary.LittleEndian.PutUint32(buf[20:24], math32.Float32bits(g.Normal[2]))
}

// Unmarshal decodes a 24-byte record previously produced by Marshal or read back from the device.
//
// Parameters:
//   - buf: at least 24 bytes of little-endian record data
func (g *GPUVertexRecord) Unmarshal(buf []byte) {
	for i := 0; i < 3; i++ {
		g.Position[i] = math32.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
		g.Normal[i] = math32.Float32frombits(binary.LittleEndian.Uint32(buf[12+i*4:]))
	}
}

// MarshalVertexRecords packs records back to back at VertexRecordStride.
//
// Parameters:
//   - records: the records to pack
//
// Returns:
//   - []byte: len(records)*24 bytes ready for GPU upload
func MarshalVertexRecords(records []GPUVertexRecord) []byte {
	buf := make([]byte, len(records)*VertexRecordStride)
	for i := range records {
		records[i].put(buf[i*VertexRecordStride:])
	}
	return buf
}

// UnmarshalVertexRecords decodes a packed vertex buffer.
//
// Parameters:
//   - data: packed records, a multiple of VertexRecordStride bytes long
//
// Returns:
//   - []GPUVertexRecord: the decoded records
//   - error: if len(data) is not a multiple of the stride
func UnmarshalVertexRecords(data []byte) ([]GPUVertexRecord, error) {
	if len(data)%VertexRecordStride != 0 {
		return nil, fmt.Errorf("vertex data length %d is not a multiple of %d", len(data), VertexRecordStride)
	}
	out := make([]GPUVertexRecord, len(data)/VertexRecordStride)
	for i := range out {
		out[i].Unmarshal(data[i*VertexRecordStride:])
	}
	return out, nil
}
