//go:build windows

package osmem

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Map reserves and commits size bytes with VirtualAlloc.
func Map(size int) ([]byte, func() error, error) {
	if size <= 0 {
		return nil, nil, fmt.Errorf("%w: %d", ErrBadSize, size)
	}
	addr, err := windows.VirtualAlloc(0, uintptr(size), windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return nil, nil, fmt.Errorf("osmem: VirtualAlloc %d bytes: %w", size, err)
	}
	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), size)
	release := once(func() error {
		if err := windows.VirtualFree(addr, 0, windows.MEM_RELEASE); err != nil {
			return fmt.Errorf("osmem: VirtualFree: %w", err)
		}
		return nil
	})
	return data, release, nil
}
