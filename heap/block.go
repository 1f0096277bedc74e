package heap

import (
	"fmt"

	"github.com/joshuapare/tagalloc/internal/buf"
	"github.com/joshuapare/tagalloc/internal/format"
)

// Block is a decoded view of one block's header.
type Block struct {
	Off   int
	Size  uint64
	State format.State
}

// End returns the offset just past the block's footer.
func (b Block) End() int {
	return b.Off + int(b.Size)
}

// PayloadOff returns the offset of the first usable byte.
func (b Block) PayloadOff() int {
	return b.Off + format.HeaderSize
}

// UsableSize returns the payload capacity of the block.
func (b Block) UsableSize() int {
	return int(b.Size) - format.BlockOverhead
}

// PayloadOffset converts a header offset into a payload offset.
func PayloadOffset(off int) int {
	return off + format.HeaderSize
}

// HeaderOffset converts a payload offset back into its header offset.
func HeaderOffset(payload int) int {
	return payload - format.HeaderSize
}

// Block decodes the header at off.
func (h *Heap) Block(off int) Block {
	return Block{
		Off:   off,
		Size:  h.BlockSize(off),
		State: h.BlockState(off),
	}
}

// BlockSize reads the size recorded in the header at off.
func (h *Heap) BlockSize(off int) uint64 {
	return format.ReadU64(h.data, off+format.HeaderSizeOffset)
}

// BlockState reads the state recorded in the header at off.
func (h *Heap) BlockState(off int) format.State {
	return format.State(format.ReadU32(h.data, off+format.HeaderStateOffset))
}

// SetTags stamps size and state into both the header at off and the footer
// that size places at the block's end. Links are not touched.
func (h *Heap) SetTags(off int, size uint64, st format.State) {
	format.PutHeaderTag(h.data, off, size, st)
	format.PutFooter(h.data, format.FooterOffset(off, size), format.Footer{Size: size, State: st})
}

// Footer decodes the footer of the block at off, using the header's size.
func (h *Heap) Footer(off int) format.Footer {
	return format.ReadFooter(h.data, format.FooterOffset(off, h.BlockSize(off)))
}

// Links returns the free-list links stored in the header at off.
func (h *Heap) Links(off int) (next, prev int) {
	return int(format.ReadU64(h.data, off+format.HeaderNextOffset)),
		int(format.ReadU64(h.data, off+format.HeaderPrevOffset))
}

// SetLinks stores both free-list links in the header at off.
func (h *Heap) SetLinks(off, next, prev int) {
	format.PutLinks(h.data, off, uint64(next), uint64(prev))
}

// SetNext stores the next link of the header at off.
func (h *Heap) SetNext(off, next int) {
	format.PutU64(h.data, off+format.HeaderNextOffset, uint64(next))
}

// SetPrev stores the prev link of the header at off.
func (h *Heap) SetPrev(off, prev int) {
	format.PutU64(h.data, off+format.HeaderPrevOffset, uint64(prev))
}

// PrevFooter decodes the footer immediately in front of the header at off.
// For the first block this is the start fencepost.
func (h *Heap) PrevFooter(off int) format.Footer {
	return format.ReadFooter(h.data, off-format.FooterSize)
}

// PrevBlock returns the block that ends where the block at off begins, or
// false when off is the first block.
func (h *Heap) PrevBlock(off int) (Block, bool) {
	f := h.PrevFooter(off)
	if f.State == format.StateSentinel {
		return Block{}, false
	}
	return Block{Off: off - int(f.Size), Size: f.Size, State: f.State}, true
}

// NextBlock returns the block that starts where the block at off ends, or
// false when the end fencepost follows.
func (h *Heap) NextBlock(off int) (Block, bool) {
	next := h.Block(off + int(h.BlockSize(off)))
	if next.State == format.StateSentinel {
		return Block{}, false
	}
	return next, true
}

// Payload returns the usable bytes of the block at off.
func (h *Heap) Payload(off int) []byte {
	size := int(h.BlockSize(off))
	return h.data[off+format.HeaderSize : off+size-format.FooterSize : off+size-format.FooterSize]
}

// LookupPayload resolves a payload offset handed out earlier back to its
// block. It rejects offsets outside the arena, misaligned offsets and headers
// whose tags disagree. It cannot tell a stale offset that happens to land on
// a well-formed header from a live one.
func (h *Heap) LookupPayload(payload int) (Block, error) {
	b, err := h.HeaderAt(payload)
	if err != nil {
		return Block{}, err
	}
	if err := h.CheckFooter(b); err != nil {
		return Block{}, err
	}
	return b, nil
}

// HeaderAt decodes the header in front of payload after checking the offset
// and the recorded size. The footer is not consulted: a header left behind
// inside a merged block still decodes here.
func (h *Heap) HeaderAt(payload int) (Block, error) {
	off := HeaderOffset(payload)
	if !format.IsAligned(payload) || !buf.Within(off, format.MinBlockSize, h.FirstBlock(), h.EndFencepost()) {
		return Block{}, fmt.Errorf("%w: payload offset %d", ErrBadOffset, payload)
	}
	b := h.Block(off)
	if b.Size < format.MinBlockSize || b.Size%format.Alignment != 0 ||
		!buf.Within(off, int(min(b.Size, uint64(h.Len()))), h.FirstBlock(), h.EndFencepost()) {
		return Block{}, fmt.Errorf("%w: header at %d has size %d", ErrBadOffset, off, b.Size)
	}
	return b, nil
}

// CheckFooter reports whether b's footer repeats its header.
func (h *Heap) CheckFooter(b Block) error {
	f := h.Footer(b.Off)
	if f.Size != b.Size || f.State != b.State {
		return fmt.Errorf("%w: header at %d disagrees with footer (%d/%s vs %d/%s)",
			ErrBadOffset, b.Off, b.Size, b.State, f.Size, f.State)
	}
	return nil
}
