package buffer_manager

import "errors"

var (
	// ErrAllocation is returned when a buffer has no elements, no stride, or the device refuses it.
	ErrAllocation = errors.New("buffer allocation failed")
	// ErrSizeMismatch is returned when an upload is not exactly count*stride bytes.
	ErrSizeMismatch = errors.New("upload size does not match buffer size")
	// ErrUnknownHandle is returned for handles that were never allocated or are already released.
	ErrUnknownHandle = errors.New("unknown buffer handle")
	// ErrSlotNotFound is returned when a pipeline does not declare the named slot.
	ErrSlotNotFound = errors.New("slot not declared by pipeline")
	// ErrStrideMismatch is returned when the WGSL element size differs from the buffer stride.
	ErrStrideMismatch = errors.New("buffer stride does not match slot element size")
	// ErrUsageMismatch is returned when a buffer's usage cannot back the slot's binding type.
	ErrUsageMismatch = errors.New("buffer usage does not match slot binding type")
	// ErrPipelineType is returned when binding to a kernel that is not a compute pipeline or
	// a program that is not a render pipeline.
	ErrPipelineType = errors.New("wrong pipeline type")
)
