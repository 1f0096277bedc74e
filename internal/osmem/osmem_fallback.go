//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly) && !windows

package osmem

// Map falls back to the Go heap where anonymous mappings are not available.
func Map(size int) ([]byte, func() error, error) {
	return Heap(size)
}
