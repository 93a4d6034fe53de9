package bind_group_provider

import "github.com/cogentcore/webgpu/wgpu"

// Buffer is a device buffer created by a renderer backend.
// The WGPU backend wraps a *wgpu.Buffer, the headless backend a host byte slice.
type Buffer interface {
	// Label returns the debug label the buffer was created with.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// Size returns the size of the buffer in bytes.
	//
	// Returns:
	//   - uint64: the buffer size in bytes
	Size() uint64

	// Usage returns the usage flags the buffer was created with.
	//
	// Returns:
	//   - wgpu.BufferUsage: the usage flags
	Usage() wgpu.BufferUsage

	// Released reports whether Release has been called.
	//
	// Returns:
	//   - bool: true once the buffer has been released
	Released() bool

	// Release frees the device memory backing the buffer. Calling it more than once is a no-op.
	Release()
}
