package alloc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/tagalloc/heap"
	"github.com/joshuapare/tagalloc/heap/verify"
	"github.com/joshuapare/tagalloc/internal/format"
	"github.com/joshuapare/tagalloc/internal/osmem"
)

// ============================================================================
// Test Helpers
// ============================================================================

// newTestAllocator creates an allocator over a Go-heap backed arena.
func newTestAllocator(t testing.TB, arenaSize int) *FirstFitAllocator {
	t.Helper()
	h, err := heap.New(arenaSize, osmem.Heap)
	require.NoError(t, err)
	t.Cleanup(func() {
		if !h.Closed() {
			_ = h.Close()
		}
	})
	fa, err := NewFirstFit(h)
	require.NoError(t, err)
	return fa
}

// requireInvariants fails the test if the arena or the free list is inconsistent.
func requireInvariants(t testing.TB, fa *FirstFitAllocator) {
	t.Helper()
	require.NoError(t, verify.AllInvariants(fa.h, fa))
}

// mustAlloc allocates size bytes and fails the test on error.
func mustAlloc(t testing.TB, fa *FirstFitAllocator, size int) (Ref, []byte) {
	t.Helper()
	ref, payload, err := fa.Alloc(size)
	require.NoError(t, err, "Alloc(%d)", size)
	require.GreaterOrEqual(t, len(payload), size)
	return ref, payload
}

// headerOf returns the header offset of the block behind ref.
func headerOf(ref Ref) int {
	return heap.HeaderOffset(int(ref))
}

// blockSizeOf returns the gross size of the block behind ref.
func blockSizeOf(fa *FirstFitAllocator, ref Ref) uint64 {
	return fa.h.BlockSize(headerOf(ref))
}

// freeCapacity is the total of all free block sizes.
func freeCapacity(fa *FirstFitAllocator) uint64 {
	var total uint64
	fa.WalkFree(func(_ int, size uint64) bool {
		total += size
		return true
	})
	return total
}

// fill writes a recognisable pattern into p.
func fill(p []byte, seed byte) {
	for i := range p {
		p[i] = seed + byte(i)
	}
}

// requirePattern checks a pattern written by fill.
func requirePattern(t testing.TB, p []byte, seed byte) {
	t.Helper()
	for i := range p {
		if p[i] != seed+byte(i) {
			t.Fatalf("payload corrupted at byte %d: got 0x%02x want 0x%02x", i, p[i], seed+byte(i))
		}
	}
}

// gross is the block size for a payload of n bytes.
func gross(n int) uint64 {
	return uint64(format.BlockSizeFor(n))
}
