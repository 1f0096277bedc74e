// Package heap owns the single arena the allocator carves blocks from.
//
// # Layout
//
// New asks the OS for ArenaSize + 2×HeaderSize + 2×FooterSize bytes and lays
// them out as:
//
//	0                 start fencepost footer   (size = FencepostSize, sentinel)
//	FooterSize        first block header        (one free block spanning the arena)
//	...
//	len-HeaderSize    end fencepost header     (size = FencepostSize, sentinel)
//
// The initial block is ArenaSize + HeaderSize + FooterSize bytes. Every block
// after it is found by adding sizes, and every block before it by reading the
// footer that sits immediately in front of its header. The fenceposts carry
// the sentinel state so neither walk ever leaves the arena.
//
// # Offsets
//
// Blocks are addressed by the offset of their header from the start of the
// mapping. Offset 0 is the start fencepost footer, so no header or payload can
// ever live there; the alloc package uses it as the free-list anchor.
//
// # Thread Safety
//
// Heap is not thread-safe. pkg/malloc serialises every call behind one mutex.
package heap
