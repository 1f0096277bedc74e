package alloc

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/tagalloc/internal/format"
)

// order returns the list's header offsets in list order.
func order(l *freeList) []int {
	var out []int
	l.walk(func(off int) bool {
		out = append(out, off)
		return true
	})
	return out
}

// reverse returns the list's header offsets following prev links.
func reverse(l *freeList) []int {
	var out []int
	for off := l.tail; off != anchor; off = l.prev(off) {
		out = append(out, off)
	}
	return out
}

// threeBlocks carves the arena into three free blocks that are not on the list yet.
func threeBlocks(t *testing.T) (*FirstFitAllocator, []int) {
	t.Helper()
	fa := newTestAllocator(t, 4096)
	h := fa.h
	first := h.FirstBlock()
	fa.free.remove(first)
	require.True(t, fa.free.empty())

	offs := []int{first, first + 128, first + 256}
	h.SetTags(offs[0], 128, format.StateFree)
	h.SetTags(offs[1], 128, format.StateFree)
	h.SetTags(offs[2], h.InitialBlockSize()-256, format.StateFree)
	return fa, offs
}

func TestFreeList_FreshHeapHasOneEntry(t *testing.T) {
	fa := newTestAllocator(t, 4096)
	require.Equal(t, []int{fa.h.FirstBlock()}, order(&fa.free))
	require.Equal(t, 1, fa.free.count)

	next, prev := fa.h.Links(fa.h.FirstBlock())
	require.Equal(t, anchor, next, "sole entry links back to the anchor")
	require.Equal(t, anchor, prev)
	require.Equal(t, fa.h.FirstBlock(), fa.free.head)
	require.Equal(t, fa.h.FirstBlock(), fa.free.tail)
}

func TestFreeList_PushBackKeepsInsertionOrder(t *testing.T) {
	fa, offs := threeBlocks(t)
	fa.free.pushBack(offs[1])
	fa.free.pushBack(offs[0])
	fa.free.pushBack(offs[2])

	require.Equal(t, []int{offs[1], offs[0], offs[2]}, order(&fa.free))
	require.Equal(t, []int{offs[2], offs[0], offs[1]}, reverse(&fa.free))
	require.Equal(t, 3, fa.free.count)
}

func TestFreeList_Remove(t *testing.T) {
	tests := []struct {
		name   string
		remove int // index into offs
		want   []int
	}{
		{"head", 0, []int{1, 2}},
		{"middle", 1, []int{0, 2}},
		{"tail", 2, []int{0, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fa, offs := threeBlocks(t)
			for _, off := range offs {
				fa.free.pushBack(off)
			}
			fa.free.remove(offs[tt.remove])

			want := make([]int, len(tt.want))
			for i, idx := range tt.want {
				want[i] = offs[idx]
			}
			require.Equal(t, want, order(&fa.free))
			require.Equal(t, []int{want[1], want[0]}, reverse(&fa.free))
			require.Equal(t, 2, fa.free.count)

			next, prev := fa.h.Links(offs[tt.remove])
			require.Equal(t, anchor, next)
			require.Equal(t, anchor, prev)
		})
	}
}

func TestFreeList_RemoveLast(t *testing.T) {
	fa := newTestAllocator(t, 4096)
	fa.free.remove(fa.h.FirstBlock())
	require.True(t, fa.free.empty())
	require.Equal(t, anchor, fa.free.tail)
	_, found := fa.free.firstFit(0)
	require.False(t, found, "empty list must not match the anchor")
}

func TestFreeList_Replace(t *testing.T) {
	fa, offs := threeBlocks(t)
	fa.free.pushBack(offs[0])
	fa.free.pushBack(offs[2])

	// offs[1] takes over offs[2]'s slot (the tail).
	fa.free.replace(offs[2], offs[1])
	require.Equal(t, []int{offs[0], offs[1]}, order(&fa.free))
	require.Equal(t, []int{offs[1], offs[0]}, reverse(&fa.free))
	require.Equal(t, 2, fa.free.count)
}

func TestFreeList_FirstFitIsListOrder(t *testing.T) {
	fa, offs := threeBlocks(t)
	fa.free.pushBack(offs[2]) // large
	fa.free.pushBack(offs[0]) // 128

	off, found := fa.free.firstFit(64)
	require.True(t, found)
	require.Equal(t, offs[2], off, "first fit takes the first match, not the best one")

	_, found = fa.free.firstFit(fa.h.InitialBlockSize())
	require.False(t, found)
}
