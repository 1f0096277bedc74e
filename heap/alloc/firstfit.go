package alloc

import (
	"errors"
	"fmt"
	"io"

	"github.com/joshuapare/tagalloc/heap"
	"github.com/joshuapare/tagalloc/internal/buf"
	"github.com/joshuapare/tagalloc/internal/format"
)

// FirstFitAllocator serves requests from a single free list using first fit
// and merges freed blocks with their neighbours through the boundary tags.
type FirstFitAllocator struct {
	h    *heap.Heap
	free freeList

	stats Stats

	// Test hook: called when a request cannot be satisfied (nil in production).
	onNoSpace func(need uint64)
}

var _ Allocator = (*FirstFitAllocator)(nil)

// NewFirstFit builds the free list by scanning h for free blocks in address
// order. For a freshly created heap this is the single block spanning the arena.
func NewFirstFit(h *heap.Heap) (*FirstFitAllocator, error) {
	fa := &FirstFitAllocator{
		h:    h,
		free: newFreeList(h),
	}
	if err := fa.initializeFreeList(); err != nil {
		return nil, err
	}
	return fa, nil
}

func (fa *FirstFitAllocator) initializeFreeList() error {
	it := fa.h.Blocks()
	for {
		b, err := it.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		switch b.State {
		case format.StateFree:
			fa.free.pushBack(b.Off)
		case format.StateAllocated:
			fa.stats.LiveBlocks++
			fa.stats.LiveBytes += b.Size
		}
	}
}

// Heap returns the arena the allocator manages.
func (fa *FirstFitAllocator) Heap() *heap.Heap {
	return fa.h
}

// Alloc carves a block for a payload of at least size bytes.
func (fa *FirstFitAllocator) Alloc(size int) (Ref, []byte, error) {
	fa.stats.AllocCalls++

	if size < 0 {
		return NilRef, nil, fmt.Errorf("%w: %d", ErrBadSize, size)
	}
	gross, ok := buf.AddOverflowSafe(size, format.BlockOverhead+format.AlignmentMask)
	if !ok || gross > fa.h.Len() {
		return NilRef, nil, fa.noSpace(size, uint64(fa.h.Len()))
	}
	need := uint64(format.BlockSizeFor(size))

	off, found := fa.free.firstFit(need)
	if !found {
		return NilRef, nil, fa.noSpace(size, need)
	}

	blockSize := fa.h.BlockSize(off)
	allocOff := off
	if rem := blockSize - need; rem >= format.MinBlockSize {
		// The head stays on the list where it is; the tail is handed out.
		fa.stats.SplitCount++
		fa.h.SetTags(off, rem, format.StateFree)
		allocOff = off + int(rem)
		tracef("split", "block", off, "size", blockSize, "need", need, "remainder", rem)
	} else {
		fa.free.remove(off)
		need = blockSize
	}

	fa.h.SetTags(allocOff, need, format.StateAllocated)
	fa.h.SetLinks(allocOff, anchor, anchor)

	fa.stats.LiveBlocks++
	fa.stats.LiveBytes += need

	return Ref(heap.PayloadOffset(allocOff)), fa.h.Payload(allocOff), nil
}

func (fa *FirstFitAllocator) noSpace(size int, need uint64) error {
	fa.stats.NoSpace++
	tracef("no space", "size", size, "need", need, "free_blocks", fa.free.count)
	if fa.onNoSpace != nil {
		fa.onNoSpace(need)
	}
	return fmt.Errorf("%w: %d bytes requested", ErrNoSpace, size)
}

// Free releases the block behind ref and coalesces it with free neighbours
// on both sides.
func (fa *FirstFitAllocator) Free(ref Ref) error {
	fa.stats.FreeCalls++

	b, err := fa.lookup(ref)
	if err != nil {
		return err
	}

	off, size := b.Off, b.Size
	fa.stats.LiveBlocks--
	fa.stats.LiveBytes -= size
	fa.h.SetTags(off, size, format.StateFree)

	prev, prevFree := fa.h.PrevBlock(off)
	prevFree = prevFree && prev.State == format.StateFree
	next, nextFree := fa.h.NextBlock(off)
	nextFree = nextFree && next.State == format.StateFree

	switch {
	case prevFree && nextFree:
		fa.stats.CoalesceBackward++
		fa.stats.CoalesceForward++
		fa.free.remove(next.Off)
		fa.h.SetTags(prev.Off, prev.Size+size+next.Size, format.StateFree)
		tracef("coalesce both", "prev", prev.Off, "block", off, "next", next.Off, "size", prev.Size+size+next.Size)

	case prevFree:
		fa.stats.CoalesceBackward++
		fa.h.SetTags(prev.Off, prev.Size+size, format.StateFree)
		tracef("coalesce backward", "prev", prev.Off, "block", off, "size", prev.Size+size)

	case nextFree:
		fa.stats.CoalesceForward++
		fa.free.replace(next.Off, off)
		fa.h.SetTags(off, size+next.Size, format.StateFree)
		tracef("coalesce forward", "block", off, "next", next.Off, "size", size+next.Size)

	default:
		fa.free.pushBack(off)
	}
	return nil
}

// lookup resolves ref to an allocated block.
func (fa *FirstFitAllocator) lookup(ref Ref) (heap.Block, error) {
	if ref == NilRef || ref > Ref(fa.h.Len()) {
		return heap.Block{}, fmt.Errorf("%w: 0x%X", ErrBadRef, ref)
	}
	b, err := fa.h.HeaderAt(int(ref))
	if err != nil {
		return heap.Block{}, fmt.Errorf("%w: %w", ErrBadRef, err)
	}
	// State first: a block freed into its predecessor keeps a stale Free
	// header whose footer now belongs to the merged block.
	if b.State != format.StateAllocated {
		return heap.Block{}, fmt.Errorf("%w: 0x%X is %s", ErrNotAllocated, ref, b.State)
	}
	if err := fa.h.CheckFooter(b); err != nil {
		return heap.Block{}, fmt.Errorf("%w: %w", ErrBadRef, err)
	}
	return b, nil
}

// UsableSize returns the payload capacity of the allocated block at ref.
func (fa *FirstFitAllocator) UsableSize(ref Ref) (int, error) {
	b, err := fa.lookup(ref)
	if err != nil {
		return 0, err
	}
	return b.UsableSize(), nil
}

// Payload returns the payload of the allocated block at ref.
func (fa *FirstFitAllocator) Payload(ref Ref) ([]byte, error) {
	b, err := fa.lookup(ref)
	if err != nil {
		return nil, err
	}
	return fa.h.Payload(b.Off), nil
}

// FreeBlocks returns the free list in list order.
func (fa *FirstFitAllocator) FreeBlocks() []FreeBlock {
	out := make([]FreeBlock, 0, fa.free.count)
	fa.free.walk(func(off int) bool {
		out = append(out, FreeBlock{
			Offset: off - fa.h.FirstBlock(),
			Size:   fa.h.BlockSize(off),
		})
		return true
	})
	return out
}

// WalkFree calls fn with the header offset and size of each free-list entry
// in list order until fn returns false. Offsets are absolute within the
// mapping, as used by heap.Heap.
func (fa *FirstFitAllocator) WalkFree(fn func(off int, size uint64) bool) {
	fa.free.walk(func(off int) bool {
		return fn(off, fa.h.BlockSize(off))
	})
}
