package alloc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/tagalloc/heap"
	"github.com/joshuapare/tagalloc/internal/format"
	"github.com/joshuapare/tagalloc/internal/osmem"
)

// Test_Alloc_SplitsTail verifies the allocation is carved from the tail of
// the free block and the head keeps its place on the list.
func Test_Alloc_SplitsTail(t *testing.T) {
	fa := newTestAllocator(t, 4096)
	h := fa.h
	initial := h.InitialBlockSize()

	ref, payload := mustAlloc(t, fa, 100)

	off := headerOf(ref)
	require.Equal(t, gross(100), blockSizeOf(fa, ref))
	require.Equal(t, h.EndFencepost(), off+int(gross(100)), "allocation sits at the tail")
	require.Len(t, payload, int(gross(100))-format.BlockOverhead)

	require.Equal(t, []int{h.FirstBlock()}, order(&fa.free), "head remainder stays in place")
	require.Equal(t, initial-gross(100), h.BlockSize(h.FirstBlock()))
	require.Equal(t, 1, fa.Stats().SplitCount)
	requireInvariants(t, fa)
}

// Test_Alloc_Alignment verifies every payload offset and size is 8-aligned.
func Test_Alloc_Alignment(t *testing.T) {
	fa := newTestAllocator(t, 64<<10)
	for size := 0; size < 200; size++ {
		ref, payload := mustAlloc(t, fa, size)
		require.Zero(t, ref%format.Alignment, "payload offset for size %d", size)
		require.Zero(t, blockSizeOf(fa, ref)%format.Alignment)
		require.GreaterOrEqual(t, len(payload), size)
	}
	requireInvariants(t, fa)
}

// Test_Alloc_RealAddressesAligned verifies alignment holds for actual memory
// addresses, not only for offsets, when the arena comes from the OS.
func Test_Alloc_RealAddressesAligned(t *testing.T) {
	h, err := heap.New(64<<10, osmem.Map)
	require.NoError(t, err)
	defer h.Close()
	fa, err := NewFirstFit(h)
	require.NoError(t, err)

	for _, size := range []int{1, 7, 13, 100, 1000} {
		_, payload := mustAlloc(t, fa, size)
		require.Zero(t, uintptrOf(payload)%format.Alignment)
	}
}

// Test_Alloc_AbsorbsSmallRemainder verifies that a remainder too small for a
// block of its own is handed out with the allocation.
func Test_Alloc_AbsorbsSmallRemainder(t *testing.T) {
	fa := newTestAllocator(t, 4096)
	initial := fa.h.InitialBlockSize()

	// Leave exactly 40 bytes, less than MinBlockSize.
	size := int(initial) - format.BlockOverhead - 40
	ref, payload := mustAlloc(t, fa, size)

	require.Equal(t, initial, blockSizeOf(fa, ref), "whole block handed out")
	require.Equal(t, fa.h.FirstBlock(), headerOf(ref))
	require.Len(t, payload, size+40)
	require.True(t, fa.free.empty())
	requireInvariants(t, fa)
}

// Test_Alloc_ExactFit verifies a request that matches the block exactly.
func Test_Alloc_ExactFit(t *testing.T) {
	fa := newTestAllocator(t, 4096)
	ref, _ := mustAlloc(t, fa, fa.h.ArenaSize())
	require.Equal(t, fa.h.InitialBlockSize(), blockSizeOf(fa, ref))
	require.True(t, fa.free.empty())

	_, _, err := fa.Alloc(0)
	require.ErrorIs(t, err, ErrNoSpace)
	requireInvariants(t, fa)
}

// Test_Alloc_ZeroSize verifies zero-byte requests get a distinct minimal block.
func Test_Alloc_ZeroSize(t *testing.T) {
	fa := newTestAllocator(t, 4096)
	a, pa := mustAlloc(t, fa, 0)
	b, _ := mustAlloc(t, fa, 0)
	require.NotEqual(t, a, b)
	require.Empty(t, pa)
	require.Equal(t, uint64(format.MinBlockSize), blockSizeOf(fa, a))
	requireInvariants(t, fa)
}

// Test_Alloc_NegativeSize verifies negative sizes are rejected.
func Test_Alloc_NegativeSize(t *testing.T) {
	fa := newTestAllocator(t, 4096)
	_, _, err := fa.Alloc(-1)
	require.ErrorIs(t, err, ErrBadSize)
	requireInvariants(t, fa)
}

// Test_Alloc_NoSpaceLeavesArenaIntact verifies exhaustion is reported
// without touching the arena.
func Test_Alloc_NoSpaceLeavesArenaIntact(t *testing.T) {
	fa := newTestAllocator(t, 4096)
	var hooked []uint64
	fa.onNoSpace = func(need uint64) { hooked = append(hooked, need) }

	before := append([]byte(nil), fa.h.Bytes()...)

	for _, size := range []int{4097, 1 << 20, math.MaxInt, math.MaxInt - format.BlockOverhead} {
		ref, payload, err := fa.Alloc(size)
		require.ErrorIs(t, err, ErrNoSpace, "size %d", size)
		require.Equal(t, NilRef, ref)
		require.Nil(t, payload)
	}
	require.Equal(t, before, fa.h.Bytes(), "failed requests must not write to the arena")
	require.Len(t, hooked, 4)
	require.Equal(t, 4, fa.Stats().NoSpace)
	requireInvariants(t, fa)
}

// Test_Alloc_PayloadIsolation verifies writes to one payload never reach
// another block or its tags.
func Test_Alloc_PayloadIsolation(t *testing.T) {
	fa := newTestAllocator(t, 16<<10)
	var refs []Ref
	for i := range 20 {
		ref, p := mustAlloc(t, fa, 50+i*13)
		fill(p, byte(i))
		refs = append(refs, ref)
	}
	requireInvariants(t, fa)
	for i, ref := range refs {
		p, err := fa.Payload(ref)
		require.NoError(t, err)
		requirePattern(t, p, byte(i))
	}
}

// Test_UsableSize verifies the payload capacity excludes both tags.
func Test_UsableSize(t *testing.T) {
	fa := newTestAllocator(t, 4096)
	ref, _ := mustAlloc(t, fa, 13)
	n, err := fa.UsableSize(ref)
	require.NoError(t, err)
	require.Equal(t, int(gross(13))-format.BlockOverhead, n)
	require.GreaterOrEqual(t, n, 13)
}

// Test_Free_BadRefs verifies obviously invalid references are rejected
// without modifying the arena.
func Test_Free_BadRefs(t *testing.T) {
	fa := newTestAllocator(t, 4096)
	ref, _ := mustAlloc(t, fa, 64)
	before := append([]byte(nil), fa.h.Bytes()...)

	for _, bad := range []Ref{NilRef, 8, ref + 4, ref + 8, Ref(fa.h.Len()), math.MaxUint64} {
		require.ErrorIs(t, fa.Free(bad), ErrBadRef, "ref 0x%X", bad)
	}
	require.Equal(t, before, fa.h.Bytes())

	// The free block's payload offset is well-formed but not allocated.
	freePayload := Ref(heap.PayloadOffset(fa.h.FirstBlock()))
	require.ErrorIs(t, fa.Free(freePayload), ErrNotAllocated)
	_, err := fa.UsableSize(freePayload)
	require.ErrorIs(t, err, ErrNotAllocated)
	requireInvariants(t, fa)
}

// Test_Free_DoubleFree verifies the common double free is caught.
func Test_Free_DoubleFree(t *testing.T) {
	fa := newTestAllocator(t, 4096)
	keep, _ := mustAlloc(t, fa, 32) // keeps ref away from the head block
	ref, _ := mustAlloc(t, fa, 64)
	_, _ = mustAlloc(t, fa, 32)

	require.NoError(t, fa.Free(ref))
	require.ErrorIs(t, fa.Free(ref), ErrNotAllocated)
	require.NoError(t, fa.Free(keep))
	requireInvariants(t, fa)
}

// Test_NewFirstFit_RebuildsFromArena verifies a second allocator over the
// same arena sees the same free blocks and live counts.
func Test_NewFirstFit_RebuildsFromArena(t *testing.T) {
	fa := newTestAllocator(t, 8192)
	a, _ := mustAlloc(t, fa, 100)
	_, _ = mustAlloc(t, fa, 200)
	c, _ := mustAlloc(t, fa, 300)
	_, _ = mustAlloc(t, fa, 400)
	require.NoError(t, fa.Free(a))
	require.NoError(t, fa.Free(c))

	rebuilt, err := NewFirstFit(fa.h)
	require.NoError(t, err)
	require.NoError(t, verifyWith(rebuilt))
	require.ElementsMatch(t, fa.FreeBlocks(), rebuilt.FreeBlocks())
	require.Equal(t, fa.Stats().LiveBlocks, rebuilt.Stats().LiveBlocks)
	require.Equal(t, fa.Stats().LiveBytes, rebuilt.Stats().LiveBytes)
}

// Test_Stats verifies counters track calls, live blocks and free space.
func Test_Stats(t *testing.T) {
	fa := newTestAllocator(t, 4096)
	a, _ := mustAlloc(t, fa, 100)
	b, _ := mustAlloc(t, fa, 200)
	_, _, _ = fa.Alloc(1 << 20)

	s := fa.Stats()
	require.Equal(t, 3, s.AllocCalls)
	require.Equal(t, 1, s.NoSpace)
	require.Equal(t, 2, s.LiveBlocks)
	require.Equal(t, gross(100)+gross(200), s.LiveBytes)
	require.Equal(t, 1, s.FreeBlocks)
	require.Equal(t, fa.h.InitialBlockSize()-s.LiveBytes, s.FreeBytes)
	require.Equal(t, s.FreeBytes, s.LargestFree)

	require.NoError(t, fa.Free(a))
	require.NoError(t, fa.Free(b))
	s = fa.Stats()
	require.Equal(t, 2, s.FreeCalls)
	require.Zero(t, s.LiveBlocks)
	require.Zero(t, s.LiveBytes)
	require.Equal(t, fa.h.InitialBlockSize(), s.FreeBytes)
}

// Test_FreeBlocks_Offsets verifies dump offsets are relative to the first block.
func Test_FreeBlocks_Offsets(t *testing.T) {
	fa := newTestAllocator(t, 4096)
	require.Equal(t, []FreeBlock{{Offset: 0, Size: fa.h.InitialBlockSize()}}, fa.FreeBlocks())
}
