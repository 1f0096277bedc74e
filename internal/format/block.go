package format

import (
	"fmt"

	"github.com/joshuapare/tagalloc/internal/buf"
)

// Header is the decoded form of a block header.
type Header struct {
	Size  uint64
	State State
	Next  uint64
	Prev  uint64
}

// Footer is the decoded form of a block footer.
type Footer struct {
	Size  uint64
	State State
}

// ReadHeader decodes the header at off. It panics if off is out of range.
func ReadHeader(b []byte, off int) Header {
	return Header{
		Size:  ReadU64(b, off+HeaderSizeOffset),
		State: State(ReadU32(b, off+HeaderStateOffset)),
		Next:  ReadU64(b, off+HeaderNextOffset),
		Prev:  ReadU64(b, off+HeaderPrevOffset),
	}
}

// PutHeader encodes h at off, links included.
func PutHeader(b []byte, off int, h Header) {
	PutHeaderTag(b, off, h.Size, h.State)
	PutLinks(b, off, h.Next, h.Prev)
}

// PutHeaderTag writes size and state without touching the links.
func PutHeaderTag(b []byte, off int, size uint64, st State) {
	PutU64(b, off+HeaderSizeOffset, size)
	PutU32(b, off+HeaderStateOffset, uint32(st))
	PutU32(b, off+HeaderStateOffset+4, 0)
}

// PutLinks writes the free-list links of the header at off.
func PutLinks(b []byte, off int, next, prev uint64) {
	PutU64(b, off+HeaderNextOffset, next)
	PutU64(b, off+HeaderPrevOffset, prev)
}

// ReadFooter decodes the footer at off. It panics if off is out of range.
func ReadFooter(b []byte, off int) Footer {
	return Footer{
		Size:  ReadU64(b, off+FooterSizeOffset),
		State: State(ReadU32(b, off+FooterStateOffset)),
	}
}

// PutFooter encodes f at off.
func PutFooter(b []byte, off int, f Footer) {
	PutU64(b, off+FooterSizeOffset, f.Size)
	PutU32(b, off+FooterStateOffset, uint32(f.State))
	PutU32(b, off+FooterStateOffset+4, 0)
}

// DecodeHeader is the checked variant of ReadHeader used when walking an
// arena that may be corrupt.
func DecodeHeader(b []byte, off int) (Header, error) {
	if !buf.Has(b, off, HeaderSize) {
		return Header{}, fmt.Errorf("header at %d: %w", off, ErrTruncated)
	}
	h := ReadHeader(b, off)
	if !h.State.Valid() {
		return h, fmt.Errorf("header at %d: state %d: %w", off, h.State, ErrBadState)
	}
	return h, nil
}

// DecodeFooter is the checked variant of ReadFooter.
func DecodeFooter(b []byte, off int) (Footer, error) {
	if !buf.Has(b, off, FooterSize) {
		return Footer{}, fmt.Errorf("footer at %d: %w", off, ErrTruncated)
	}
	f := ReadFooter(b, off)
	if !f.State.Valid() {
		return f, fmt.Errorf("footer at %d: state %d: %w", off, f.State, ErrBadState)
	}
	return f, nil
}

// FooterOffset returns where the footer of the block at off with the given
// size begins.
func FooterOffset(off int, size uint64) int {
	return off + int(size) - FooterSize
}
