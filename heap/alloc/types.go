package alloc

// Ref is the offset of a payload from the start of the arena mapping. It is
// what the allocator hands out in place of a raw pointer.
type Ref = uint64

// NilRef is the null reference. Offset 0 holds the start fencepost, so no
// payload can ever live there.
const NilRef Ref = 0

// Allocator defines the block allocation surface the public wrapper drives.
//
// Implementations:
//   - FirstFitAllocator: single free list, first fit, boundary-tag coalescing
type Allocator interface {
	// Alloc allocates a block whose payload holds at least size bytes.
	// Returns the payload reference, the payload slice, and any error.
	Alloc(size int) (Ref, []byte, error)

	// Free returns the block behind ref to the free list, merging it with
	// any free neighbours.
	Free(ref Ref) error

	// UsableSize returns the payload capacity of the allocated block at ref.
	UsableSize(ref Ref) (int, error)

	// Payload returns the payload slice of the allocated block at ref.
	Payload(ref Ref) ([]byte, error)
}

// FreeBlock describes one free-list entry.
type FreeBlock struct {
	// Offset is the header offset relative to the first block, matching the
	// offsets printed by the free-list dump.
	Offset int    `json:"offset"`
	Size   uint64 `json:"size"`
}
