package renderer

import "errors"

var (
	errZeroSizeBuffer = errors.New("buffer size must be non-zero")
	errForeignBuffer  = errors.New("buffer was not created by this backend")
	errReleasedBuffer = errors.New("buffer has been released")
	errNoComputeFrame = errors.New("no compute frame is open")
	errNoRenderFrame  = errors.New("no render frame is open")
)
