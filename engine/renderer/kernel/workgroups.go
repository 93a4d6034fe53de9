package kernel

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-deform/common"
)

// ErrEmptyDispatch is returned when a dispatch would cover zero invocations.
var ErrEmptyDispatch = errors.New("dispatch covers zero invocations")

// Workgroups returns the 1D dispatch size that launches at least n invocations with
// one invocation per element: ⌈n / size⌉ groups along X.
//
// Parameters:
//   - n: the element count
//   - size: the kernel's @workgroup_size X dimension; 0 is treated as 1
//
// Returns:
//   - [3]uint32: the dispatch dimensions
//   - error: ErrEmptyDispatch when n is 0
func Workgroups(n, size uint32) ([3]uint32, error) {
	if n == 0 {
		return [3]uint32{}, ErrEmptyDispatch
	}
	return [3]uint32{common.CeilDiv(n, max(size, 1)), 1, 1}, nil
}
