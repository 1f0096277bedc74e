// Package alloc implements the free-space engine of the arena allocator.
//
// # Overview
//
// FirstFitAllocator tracks every free block of a heap.Heap on one circular,
// doubly linked free list. Links are arena offsets stored in the free block's
// own header, so the list costs no memory outside the arena.
//
// # Free List
//
// The list is anchored by a sentinel that has no backing storage: offset 0,
// which is always the start fencepost's footer and can never be a header.
// Its links live in the allocator struct. A search that comes back to the
// anchor has found nothing. Freed blocks that do not merge with a neighbour
// are appended in front of the anchor, so list order is insertion order.
//
// # Allocation
//
//	need := Align8(size + HeaderSize + FooterSize)
//
// The list is scanned from the anchor's successor for the first block with
// size >= need. If the remainder can hold a block of its own (MinBlockSize),
// the tail of the free block is handed out and the head keeps its place in
// the list with a smaller size. Otherwise the whole block is unlinked and
// handed out. Nothing found returns ErrNoSpace; the arena never grows.
//
// # Deallocation
//
// Free flips both tags to free and then looks at the footer just before the
// header and the header just after the footer:
//
//	prev free, next free  → next is unlinked, prev absorbs block and next
//	prev free             → prev absorbs block, keeps its list position
//	next free             → block absorbs next and takes over its links
//	neither               → block is appended to the list
//
// The fenceposts are stamped with the sentinel state, so neither look can
// step outside the arena.
//
// # Thread Safety
//
// FirstFitAllocator is not thread-safe. pkg/malloc wraps it in one mutex.
//
// # Debugging
//
// Set MALLOC_LOG_ALLOC to trace splits, merges and exhaustion to stderr.
package alloc
