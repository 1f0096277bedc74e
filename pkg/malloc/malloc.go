package malloc

import (
	"errors"
	"fmt"
	"sync"

	"github.com/joshuapare/tagalloc/heap"
	"github.com/joshuapare/tagalloc/heap/alloc"
	"github.com/joshuapare/tagalloc/heap/verify"
	"github.com/joshuapare/tagalloc/internal/buf"
)

// Ptr is the arena offset of a payload. Offset 0 holds the start fencepost,
// so no payload is ever at Nil.
type Ptr = alloc.Ref

// Nil is the null Ptr.
const Nil Ptr = alloc.NilRef

// Allocator is a thread-safe handle on one arena. The arena is mapped on the
// first call that needs it.
type Allocator struct {
	mu  sync.Mutex
	cfg config

	h      *heap.Heap
	fa     *alloc.FirstFitAllocator
	closed bool

	mallocs  int
	reallocs int
	callocs  int
	frees    int
}

// New returns an Allocator configured by opts. A nil opts uses defaults.
func New(opts *Options) *Allocator {
	return &Allocator{cfg: opts.withDefaults()}
}

// ensure maps the arena if needed. Must be called with a.mu held. A failed
// attempt leaves the Allocator uninitialised so the next call retries.
func (a *Allocator) ensure() error {
	if a.closed {
		return ErrClosed
	}
	if a.fa != nil {
		return nil
	}
	h, err := heap.New(a.cfg.arenaSize, a.cfg.mapper)
	if err != nil {
		a.cfg.logger.Error("arena init failed", "arena_size", a.cfg.arenaSize, "error", err)
		return fmt.Errorf("malloc: init arena: %w", err)
	}
	fa, err := alloc.NewFirstFit(h)
	if err != nil {
		_ = h.Close()
		return fmt.Errorf("malloc: init free list: %w", err)
	}
	a.h, a.fa = h, fa
	a.cfg.logger.Debug("arena mapped", "arena_size", h.ArenaSize(), "mapped", h.MappedBytes())
	return nil
}

// Malloc returns a block with at least size usable bytes. The contents are
// unspecified.
func (a *Allocator) Malloc(size int) (Ptr, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.mallocs++
	if a.closed {
		return Nil, ErrClosed
	}
	if size < 0 {
		return Nil, fmt.Errorf("%w: %d", ErrNegativeSize, size)
	}
	if err := a.ensure(); err != nil {
		return Nil, err
	}
	p, _, err := a.alloc(size)
	return p, err
}

// alloc serves one request. Must be called with a.mu held after ensure.
func (a *Allocator) alloc(size int) (Ptr, []byte, error) {
	ref, payload, err := a.fa.Alloc(size)
	if err != nil {
		if errors.Is(err, alloc.ErrNoSpace) {
			a.cfg.logger.Debug("out of memory", "size", size)
			return Nil, nil, fmt.Errorf("%w: %d bytes", ErrOutOfMemory, size)
		}
		return Nil, nil, err
	}
	return ref, payload, nil
}

// Free releases p. Freeing Nil does nothing. Pointers that were not returned
// by this Allocator, or were already freed, are reported when detected;
// detection is best effort and such calls remain a caller error.
func (a *Allocator) Free(p Ptr) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.frees++
	if a.closed {
		return ErrClosed
	}
	if p == Nil {
		return nil
	}
	if a.fa == nil {
		return fmt.Errorf("%w: 0x%X", alloc.ErrBadRef, p)
	}
	if err := a.fa.Free(p); err != nil {
		a.cfg.logger.Warn("bad free", "ptr", p, "error", err)
		return err
	}
	return nil
}

// Realloc moves the contents of p into a block of at least size bytes and
// frees p. A Nil p behaves like Malloc. If the new block cannot be
// allocated, p is left untouched and the error is returned.
func (a *Allocator) Realloc(p Ptr, size int) (Ptr, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.reallocs++
	if a.closed {
		return Nil, ErrClosed
	}
	if size < 0 {
		return Nil, fmt.Errorf("%w: %d", ErrNegativeSize, size)
	}
	if err := a.ensure(); err != nil {
		return Nil, err
	}

	var old []byte
	if p != Nil {
		var err error
		if old, err = a.fa.Payload(p); err != nil {
			a.cfg.logger.Warn("bad realloc", "ptr", p, "error", err)
			return Nil, err
		}
	}

	np, payload, err := a.alloc(size)
	if err != nil {
		return Nil, err
	}
	if p == Nil {
		return np, nil
	}
	copy(payload, old[:min(len(old), size)])
	if err := a.fa.Free(p); err != nil {
		return Nil, err
	}
	return np, nil
}

// Calloc allocates count elements of size bytes each and zeroes the block.
func (a *Allocator) Calloc(count, size int) (Ptr, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.callocs++
	if a.closed {
		return Nil, ErrClosed
	}
	if count < 0 || size < 0 {
		return Nil, fmt.Errorf("%w: %d x %d", ErrNegativeSize, count, size)
	}
	total, ok := buf.MulOverflowSafe(count, size)
	if !ok {
		return Nil, fmt.Errorf("%w: %d x %d", ErrOverflow, count, size)
	}
	if err := a.ensure(); err != nil {
		return Nil, err
	}
	p, payload, err := a.alloc(total)
	if err != nil {
		return Nil, err
	}
	clear(payload)
	return p, nil
}

// Bytes returns the payload of p. Its length is the usable size, which may
// exceed the size originally requested. The slice is valid until p is freed
// or the Allocator is closed. Close unmaps the arena, so touching the slice
// afterwards faults the process instead of panicking.
func (a *Allocator) Bytes(p Ptr) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.ready(p); err != nil {
		return nil, err
	}
	return a.fa.Payload(p)
}

// UsableSize returns how many bytes the block at p can hold.
func (a *Allocator) UsableSize(p Ptr) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := a.ready(p); err != nil {
		return 0, err
	}
	return a.fa.UsableSize(p)
}

// ready rejects lookups against a closed or never-initialised arena.
func (a *Allocator) ready(p Ptr) error {
	if a.closed {
		return ErrClosed
	}
	if a.fa == nil {
		return fmt.Errorf("%w: 0x%X", alloc.ErrBadRef, p)
	}
	return nil
}

// FreeList returns the free blocks in list order. Offsets are relative to
// the first block of the arena. It returns nil before the arena is mapped.
func (a *Allocator) FreeList() []alloc.FreeBlock {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.fa == nil || a.closed {
		return nil
	}
	return a.fa.FreeBlocks()
}

// Verify checks the arena and free list for consistency.
func (a *Allocator) Verify() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrClosed
	}
	if a.fa == nil {
		return nil
	}
	return verify.AllInvariants(a.h, a.fa)
}

// Close writes the statistics report if verbose and unmaps the arena.
// Every later call returns ErrClosed. Slices obtained from Bytes must not be
// used after Close: the memory behind them is returned to the OS.
func (a *Allocator) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrClosed
	}
	a.closed = true

	var reportErr error
	if a.cfg.verbose {
		reportErr = writeReport(a.cfg.report, a.statsLocked())
	}
	if a.h == nil {
		return reportErr
	}
	err := a.h.Close()
	a.h, a.fa = nil, nil
	return errors.Join(reportErr, err)
}
