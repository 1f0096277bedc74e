package malloc

import (
	"log/slog"
	"sync"
)

var (
	defaultOnce  sync.Once
	defaultAlloc *Allocator
)

// Default returns the process-wide Allocator, configured from the
// environment on first use. An unparsable environment falls back to the
// built-in defaults.
func Default() *Allocator {
	defaultOnce.Do(func() {
		opts, err := OptionsFromEnv()
		if err != nil {
			slog.Warn("malloc: ignoring environment", "error", err)
			opts = nil
		}
		defaultAlloc = New(opts)
	})
	return defaultAlloc
}

// Malloc allocates from the default Allocator.
func Malloc(size int) (Ptr, error) { return Default().Malloc(size) }

// Free releases p to the default Allocator.
func Free(p Ptr) error { return Default().Free(p) }

// Realloc resizes p in the default Allocator.
func Realloc(p Ptr, size int) (Ptr, error) { return Default().Realloc(p, size) }

// Calloc allocates zeroed memory from the default Allocator.
func Calloc(count, size int) (Ptr, error) { return Default().Calloc(count, size) }

// Bytes returns the payload of p in the default Allocator.
func Bytes(p Ptr) ([]byte, error) { return Default().Bytes(p) }

// AtExit closes the default Allocator, printing its report unless
// MALLOCVERBOSE=NO. Call it once, typically deferred in main.
func AtExit() error {
	return Default().Close()
}
