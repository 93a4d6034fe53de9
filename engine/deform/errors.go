package deform

import "errors"

var (
	// ErrSetup is returned when setup cannot extract, allocate or upload the mesh.
	ErrSetup = errors.New("deformer setup failed")

	// ErrBinding is returned when a kernel or program slot cannot take the buffer bound to it.
	ErrBinding = errors.New("deformer binding failed")

	// ErrRuntimeGuard is returned by any call made in a state that does not allow it.
	ErrRuntimeGuard = errors.New("deformer is not in a valid state for this call")
)
