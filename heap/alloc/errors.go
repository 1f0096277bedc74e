package alloc

import "errors"

var (
	// ErrNoSpace indicates that no free block is large enough for the request.
	// The arena never grows, so this is final for the request size.
	ErrNoSpace = errors.New("alloc: no free block large enough")

	// ErrBadRef indicates a reference that does not name a block in the arena.
	ErrBadRef = errors.New("alloc: bad block reference")

	// ErrNotAllocated indicates Free was handed a block that is not allocated,
	// most often a double free.
	ErrNotAllocated = errors.New("alloc: block is not allocated")

	// ErrBadSize indicates a negative request size.
	ErrBadSize = errors.New("alloc: request size must be >= 0")
)
