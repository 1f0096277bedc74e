// Package verify checks the structural invariants of an arena.
//
// # Overview
//
// The allocator keeps no redundant index; corruption of a single tag or link
// is silent until something walks over it. This package walks everything and
// reports the first inconsistency. It is used by tests after every mutating
// step and by mallocctl after stress runs.
//
// Validation categories:
//   - Fenceposts: both sentinels carry FencepostSize and the sentinel state
//   - BoundaryTags: the size chain reaches the end fencepost exactly, every
//     size and offset is aligned, header and footer agree
//   - Coalescing: no two free blocks are adjacent
//   - FreeList: every free block is on the list exactly once, nothing else is,
//     and the back links mirror the forward links
//
// # Quick Start
//
//	if err := verify.AllInvariants(h, fa); err != nil {
//	    fmt.Printf("arena corrupt: %v\n", err)
//	}
//
// # ValidationError
//
// All checks return *ValidationError on failure:
//
//	type ValidationError struct {
//	    Type    string         // category, e.g. "BoundaryTags"
//	    Message string         // human-readable description
//	    Offset  int            // arena offset, -1 if not applicable
//	    Details map[string]any // extra context
//	}
package verify
