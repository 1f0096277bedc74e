package malloc

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshuapare/tagalloc/internal/osmem"
)

// newTestAllocator returns a quiet Allocator over Go-heap memory that is
// closed when the test ends.
func newTestAllocator(t testing.TB, arenaSize int) *Allocator {
	t.Helper()
	quiet := false
	a := New(&Options{
		ArenaSize: arenaSize,
		Verbose:   &quiet,
		Mapper:    osmem.Heap,
	})
	t.Cleanup(func() { _ = a.Close() })
	return a
}

// write copies s into the payload of p.
func write(t testing.TB, a *Allocator, p Ptr, s []byte) {
	t.Helper()
	b, err := a.Bytes(p)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(b), len(s))
	copy(b, s)
}

// read returns the first n payload bytes of p.
func read(t testing.TB, a *Allocator, p Ptr, n int) []byte {
	t.Helper()
	b, err := a.Bytes(p)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(b), n)
	return bytes.Clone(b[:n])
}
