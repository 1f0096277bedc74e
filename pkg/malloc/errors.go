package malloc

import "errors"

var (
	// ErrOutOfMemory is returned when no free block can hold the request.
	// The arena has a fixed size, so retrying the same request will fail
	// until memory is freed.
	ErrOutOfMemory = errors.New("malloc: out of memory")

	// ErrOverflow is returned by Calloc when count*size does not fit in an int.
	ErrOverflow = errors.New("malloc: size overflow")

	// ErrNegativeSize is returned for a negative size or count.
	ErrNegativeSize = errors.New("malloc: negative size")

	// ErrClosed is returned by every call after Close.
	ErrClosed = errors.New("malloc: allocator closed")
)
