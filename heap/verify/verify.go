package verify

import (
	"errors"
	"fmt"
	"io"

	"github.com/joshuapare/tagalloc/heap"
	"github.com/joshuapare/tagalloc/internal/format"
)

// ValidationError describes the first invariant violation found.
type ValidationError struct {
	Type    string
	Message string
	Offset  int
	Details map[string]any
}

func (e *ValidationError) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("%s at offset 0x%X: %s", e.Type, e.Offset, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// FreeListWalker exposes the free list in list order, including back links.
type FreeListWalker interface {
	WalkFree(fn func(off int, size uint64) bool)
}

// AllInvariants runs every check. Returns the first error encountered, or
// nil if all checks pass.
func AllInvariants(h *heap.Heap, fl FreeListWalker) error {
	if err := Fenceposts(h); err != nil {
		return err
	}
	if err := BoundaryTags(h); err != nil {
		return err
	}
	return FreeList(h, fl)
}

// Fenceposts checks both sentinels.
func Fenceposts(h *heap.Heap) error {
	start, err := format.DecodeFooter(h.Bytes(), h.StartFencepost())
	if err != nil || start.Size != format.FencepostSize || start.State != format.StateSentinel {
		return &ValidationError{
			Type:    "Fenceposts",
			Message: fmt.Sprintf("start fencepost damaged: %+v (%v)", start, err),
			Offset:  h.StartFencepost(),
		}
	}
	end, err := format.DecodeHeader(h.Bytes(), h.EndFencepost())
	if err != nil || end.Size != format.FencepostSize || end.State != format.StateSentinel {
		return &ValidationError{
			Type:    "Fenceposts",
			Message: fmt.Sprintf("end fencepost damaged: size=%d state=%s (%v)", end.Size, end.State, err),
			Offset:  h.EndFencepost(),
		}
	}
	return nil
}

// BoundaryTags walks the arena in address order and checks every block's
// tags, alignment, and that no two free blocks touch.
func BoundaryTags(h *heap.Heap) error {
	_, err := scan(h)
	return err
}

// scan walks the arena and returns the offsets of all free blocks.
func scan(h *heap.Heap) (map[int]uint64, error) {
	free := make(map[int]uint64)
	prevFree := false

	it := h.Blocks()
	for {
		b, err := it.Next()
		if errors.Is(err, io.EOF) {
			return free, nil
		}
		if err != nil {
			return nil, &ValidationError{
				Type:    "BoundaryTags",
				Message: err.Error(),
				Offset:  -1,
			}
		}

		if !format.IsAligned(b.Off) || !format.IsAligned(b.PayloadOff()) {
			return nil, &ValidationError{
				Type:    "BoundaryTags",
				Message: "block is not aligned",
				Offset:  b.Off,
			}
		}

		f, err := format.DecodeFooter(h.Bytes(), format.FooterOffset(b.Off, b.Size))
		if err != nil || f.Size != b.Size || f.State != b.State {
			return nil, &ValidationError{
				Type:    "BoundaryTags",
				Message: "header and footer disagree",
				Offset:  b.Off,
				Details: map[string]any{
					"header_size":  b.Size,
					"header_state": b.State.String(),
					"footer_size":  f.Size,
					"footer_state": f.State.String(),
				},
			}
		}

		switch b.State {
		case format.StateFree:
			if prevFree {
				return nil, &ValidationError{
					Type:    "Coalescing",
					Message: "free block follows another free block",
					Offset:  b.Off,
				}
			}
			free[b.Off] = b.Size
			prevFree = true
		case format.StateAllocated:
			prevFree = false
		default:
			return nil, &ValidationError{
				Type:    "BoundaryTags",
				Message: fmt.Sprintf("unexpected state %s inside arena", b.State),
				Offset:  b.Off,
			}
		}
	}
}

// FreeList checks that the list and the arena agree on the set of free blocks.
func FreeList(h *heap.Heap, fl FreeListWalker) error {
	free, err := scan(h)
	if err != nil {
		return err
	}

	seen := make(map[int]bool, len(free))
	var verr *ValidationError
	steps := 0
	fl.WalkFree(func(off int, size uint64) bool {
		steps++
		switch {
		case steps > len(free):
			verr = &ValidationError{
				Type:    "FreeList",
				Message: fmt.Sprintf("list is longer than the %d free blocks in the arena", len(free)),
				Offset:  off,
			}
		case seen[off]:
			verr = &ValidationError{
				Type:    "FreeList",
				Message: "block appears twice",
				Offset:  off,
			}
		default:
			arenaSize, ok := free[off]
			switch {
			case !ok:
				verr = &ValidationError{
					Type:    "FreeList",
					Message: fmt.Sprintf("entry is not a free block (state %s)", h.BlockState(off)),
					Offset:  off,
				}
			case arenaSize != size:
				verr = &ValidationError{
					Type:    "FreeList",
					Message: fmt.Sprintf("entry size %d, block size %d", size, arenaSize),
					Offset:  off,
				}
			}
		}
		seen[off] = true
		return verr == nil
	})
	if verr != nil {
		return verr
	}

	for off := range free {
		if !seen[off] {
			return &ValidationError{
				Type:    "FreeList",
				Message: "free block missing from list",
				Offset:  off,
			}
		}
	}
	return backLinks(h, fl)
}

// backLinks checks that each entry's prev link names the entry before it.
func backLinks(h *heap.Heap, fl FreeListWalker) error {
	prev := 0
	var verr *ValidationError
	fl.WalkFree(func(off int, _ uint64) bool {
		if _, p := h.Links(off); p != prev {
			verr = &ValidationError{
				Type:    "FreeList",
				Message: fmt.Sprintf("prev link is %d, expected %d", p, prev),
				Offset:  off,
			}
			return false
		}
		prev = off
		return true
	})
	if verr != nil {
		return verr
	}
	return nil
}
