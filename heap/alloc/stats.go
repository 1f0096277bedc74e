package alloc

// Stats holds allocator counters. All byte counts include block tags.
type Stats struct {
	AllocCalls       int    `json:"alloc_calls"`
	FreeCalls        int    `json:"free_calls"`
	NoSpace          int    `json:"no_space"`
	SplitCount       int    `json:"splits"`
	CoalesceForward  int    `json:"coalesce_forward"`
	CoalesceBackward int    `json:"coalesce_backward"`
	LiveBlocks       int    `json:"live_blocks"`
	LiveBytes        uint64 `json:"live_bytes"`
	FreeBlocks       int    `json:"free_blocks"`
	FreeBytes        uint64 `json:"free_bytes"`
	LargestFree      uint64 `json:"largest_free"`
}

// Stats returns a snapshot of the counters. FreeBlocks, FreeBytes and
// LargestFree are computed by walking the free list.
func (fa *FirstFitAllocator) Stats() Stats {
	s := fa.stats
	s.FreeBlocks = 0
	s.FreeBytes = 0
	s.LargestFree = 0
	fa.free.walk(func(off int) bool {
		size := fa.h.BlockSize(off)
		s.FreeBlocks++
		s.FreeBytes += size
		s.LargestFree = max(s.LargestFree, size)
		return true
	})
	return s
}
