// Package osmem obtains raw read/write memory from the operating system for
// the allocator arena. It is the only place the module talks to the OS about
// memory; everything above it sees a []byte and an unmap function.
package osmem

import (
	"errors"
	"fmt"
)

// ErrBadSize is returned for a non-positive mapping request.
var ErrBadSize = errors.New("osmem: mapping size must be positive")

// MapFunc obtains size bytes of zeroed, writable memory. The returned
// release function gives the memory back; calling it twice is a no-op.
type MapFunc func(size int) ([]byte, func() error, error)

// Heap returns memory from the Go heap instead of the OS. Tests use it to
// build many small arenas without touching the process mapping table.
func Heap(size int) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, fmt.Errorf("%w: %d", ErrBadSize, size)
	}
	return make([]byte, size), func() error { return nil }, nil
}

// once wraps release so a second call does nothing.
func once(release func() error) func() error {
	done := false
	return func() error {
		if done {
			return nil
		}
		done = true
		return release()
	}
}
