//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package osmem

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Map returns an anonymous private mapping of size bytes.
func Map(size int) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, fmt.Errorf("%w: %d", ErrBadSize, size)
	}
	data, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, nil, fmt.Errorf("osmem: mmap %d bytes: %w", size, err)
	}
	release := once(func() error {
		if err := unix.Munmap(data); err != nil {
			return fmt.Errorf("osmem: munmap: %w", err)
		}
		return nil
	})
	return data, release, nil
}
