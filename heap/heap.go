package heap

import (
	"fmt"
	"math"

	"github.com/joshuapare/tagalloc/internal/buf"
	"github.com/joshuapare/tagalloc/internal/format"
	"github.com/joshuapare/tagalloc/internal/osmem"
)

// maxArenaSize keeps every offset and tag size far from int overflow.
const maxArenaSize = math.MaxInt / 4

// Heap is a mapped arena bounded by two fenceposts.
type Heap struct {
	data      []byte
	release   func() error
	arenaSize int

	// OS accounting, reported by the exit statistics.
	chunks      int
	mappedBytes int64
}

// New maps an arena of arenaSize usable bytes and installs the fenceposts and
// the initial free block. A nil mapFn uses osmem.Map. arenaSize is rounded
// up to the block alignment.
func New(arenaSize int, mapFn osmem.MapFunc) (*Heap, error) {
	if arenaSize <= 0 || arenaSize > maxArenaSize {
		return nil, fmt.Errorf("%w: %d", ErrArenaSize, arenaSize)
	}
	if mapFn == nil {
		mapFn = osmem.Map
	}
	arenaSize = format.Align8(arenaSize)

	total, ok := buf.AddOverflowSafe(arenaSize, 2*format.HeaderSize+2*format.FooterSize)
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrArenaSize, arenaSize)
	}

	data, release, err := mapFn(total)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMapFailed, err)
	}
	if len(data) < total {
		_ = release()
		return nil, fmt.Errorf("%w: got %d bytes, asked for %d", ErrMapFailed, len(data), total)
	}

	h := &Heap{
		data:        data[:total:total],
		release:     release,
		arenaSize:   arenaSize,
		chunks:      1,
		mappedBytes: int64(total),
	}
	h.install()
	return h, nil
}

// install writes both fenceposts and the single free block between them.
// The free block's links are left zero; the free list owns them.
func (h *Heap) install() {
	format.PutFooter(h.data, h.StartFencepost(), format.Footer{
		Size:  format.FencepostSize,
		State: format.StateSentinel,
	})
	format.PutHeader(h.data, h.EndFencepost(), format.Header{
		Size:  format.FencepostSize,
		State: format.StateSentinel,
	})
	h.SetTags(h.FirstBlock(), h.InitialBlockSize(), format.StateFree)
	h.SetLinks(h.FirstBlock(), 0, 0)
}

// Bytes returns the whole mapping, fenceposts included.
func (h *Heap) Bytes() []byte {
	return h.data
}

// Len returns the size of the mapping in bytes.
func (h *Heap) Len() int {
	return len(h.data)
}

// ArenaSize returns the usable capacity the heap was created with.
func (h *Heap) ArenaSize() int {
	return h.arenaSize
}

// InitialBlockSize is the size of the single free block New creates.
func (h *Heap) InitialBlockSize() uint64 {
	return uint64(h.arenaSize + format.BlockOverhead)
}

// Chunks returns how many times memory was requested from the OS.
func (h *Heap) Chunks() int {
	return h.chunks
}

// MappedBytes returns the total bytes obtained from the OS.
func (h *Heap) MappedBytes() int64 {
	return h.mappedBytes
}

// StartFencepost is the offset of the leading sentinel footer.
func (h *Heap) StartFencepost() int {
	return 0
}

// FirstBlock is the offset of the first real block header.
func (h *Heap) FirstBlock() int {
	return format.FooterSize
}

// EndFencepost is the offset of the trailing sentinel header.
func (h *Heap) EndFencepost() int {
	return len(h.data) - format.HeaderSize
}

// Close returns the arena to the OS. Further use of the heap panics.
func (h *Heap) Close() error {
	if h.data == nil {
		return ErrClosed
	}
	h.data = nil
	return h.release()
}

// Closed reports whether Close has been called.
func (h *Heap) Closed() bool {
	return h.data == nil
}
