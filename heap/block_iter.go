package heap

import (
	"fmt"
	"io"

	"github.com/joshuapare/tagalloc/internal/buf"
	"github.com/joshuapare/tagalloc/internal/format"
)

// BlockIterator walks blocks in address order from the first block up to the
// end fencepost.
type BlockIterator struct {
	h    *Heap
	off  int
	done bool
}

// Blocks returns an iterator positioned at the first block.
func (h *Heap) Blocks() *BlockIterator {
	return &BlockIterator{
		h:   h,
		off: h.FirstBlock(),
	}
}

// Next returns the next block, io.EOF once the end fencepost is reached, or
// an error if the size chain is broken.
func (it *BlockIterator) Next() (Block, error) {
	if it.done {
		return Block{}, io.EOF
	}

	end := it.h.EndFencepost()
	if it.off == end {
		it.done = true
		return Block{}, io.EOF
	}

	hdr, err := format.DecodeHeader(it.h.data, it.off)
	if err != nil {
		it.done = true
		return Block{}, err
	}
	if hdr.State == format.StateSentinel {
		it.done = true
		return Block{}, fmt.Errorf("heap: sentinel header inside arena at %d: %w", it.off, ErrBadOffset)
	}
	if hdr.Size < format.MinBlockSize || hdr.Size%format.Alignment != 0 {
		it.done = true
		return Block{}, fmt.Errorf("heap: block at %d has size %d: %w", it.off, hdr.Size, ErrBadOffset)
	}
	if hdr.Size > uint64(end-it.off) || !buf.Within(it.off, int(hdr.Size), it.h.FirstBlock(), end) {
		it.done = true
		return Block{}, fmt.Errorf("heap: block at %d (size %d) runs past end fencepost at %d: %w",
			it.off, hdr.Size, end, ErrBadOffset)
	}

	b := Block{Off: it.off, Size: hdr.Size, State: hdr.State}
	it.off += int(hdr.Size)
	return b, nil
}
