package allocator

import "errors"

var (
	// ErrHeapExhausted indicates that the break could not be extended any further.
	ErrHeapExhausted = errors.New("allocator: heap exhausted")

	// ErrCorrupted indicates that the block chain or the free list violates an invariant.
	ErrCorrupted = errors.New("allocator: heap corrupted")

	// ErrUnsupported indicates that the requested break source is not available on this platform.
	ErrUnsupported = errors.New("allocator: break source not supported")
)
