// Package format describes the in-arena encoding of blocks: the boundary tags
// written at both ends of every block and the constants that size them.
// Nothing here knows about free lists or locking; it only reads and writes
// bytes at offsets the caller has already validated.
package format

import "math"

// Block layout (little-endian):
//
//	header  0x00  size   u64   total block bytes, header and footer included
//	        0x08  state  u32
//	        0x0C  (pad)
//	        0x10  next   u64   arena offset of the next free block (free only)
//	        0x18  prev   u64   arena offset of the previous free block (free only)
//
//	footer  0x00  size   u64   copy of header size
//	        0x08  state  u32   copy of header state
//	        0x0C  (pad)
const (
	// HeaderSize is the number of bytes in front of every payload.
	HeaderSize = 0x20

	// FooterSize is the number of bytes after every payload.
	FooterSize = 0x10

	// BlockOverhead is the tag space a block costs on top of its payload.
	BlockOverhead = HeaderSize + FooterSize

	// MinBlockSize is the smallest block that can exist on its own: a header
	// and a footer around an empty payload. A split remainder smaller than
	// this stays attached to the allocation.
	MinBlockSize = BlockOverhead

	HeaderSizeOffset  = 0x00
	HeaderStateOffset = 0x08
	HeaderNextOffset  = 0x10
	HeaderPrevOffset  = 0x18

	FooterSizeOffset  = 0x00
	FooterStateOffset = 0x08
)

const (
	// Alignment is the granularity of every block size and payload offset.
	Alignment = 8

	// AlignmentMask is used for rounding to Alignment.
	AlignmentMask = Alignment - 1
)

const (
	// DefaultArenaSize is the usable capacity of an arena when none is given (2 MiB).
	DefaultArenaSize = 2 << 20

	// FencepostSize is stamped into both fenceposts. No request can round up
	// to it, so a fencepost can never look like a candidate block.
	FencepostSize uint64 = math.MaxUint64
)

// State is the block state stored in both tags.
type State uint32

const (
	StateFree      State = 0
	StateAllocated State = 1
	// StateSentinel marks the fenceposts and the free-list anchor.
	StateSentinel State = 2
)

func (s State) String() string {
	switch s {
	case StateFree:
		return "free"
	case StateAllocated:
		return "allocated"
	case StateSentinel:
		return "sentinel"
	default:
		return "invalid"
	}
}

// Valid reports whether s is one of the known states.
func (s State) Valid() bool {
	return s <= StateSentinel
}
