// Package malloc is the public face of the boundary-tag allocator.
//
// An Allocator owns one fixed-size arena obtained from the operating system
// on first use. Every call takes the same mutex, so a single Allocator may be
// shared by any number of goroutines. Pointers are arena-relative offsets
// (Ptr); Bytes turns one into the payload slice.
//
// # Basic usage
//
//	a := malloc.New(nil)
//	defer a.Close()
//
//	p, err := a.Malloc(100)
//	if err != nil {
//	    return err
//	}
//	buf, _ := a.Bytes(p)
//	copy(buf, "hello")
//	_ = a.Free(p)
//
// # Process-wide allocator
//
// The package functions Malloc, Free, Realloc and Calloc use a default
// Allocator configured from the environment:
//
//	MALLOCVERBOSE=NO         suppress the statistics report at exit
//	MALLOC_ARENA_SIZE=4MiB   arena size (default 2 MiB)
//	MALLOC_LOG_ALLOC=1       trace splits and merges to stderr
//
// Call AtExit before the process ends to print the report.
package malloc
