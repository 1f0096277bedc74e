package alloc

import (
	"unsafe"

	"github.com/joshuapare/tagalloc/heap/verify"
)

func uintptrOf(p []byte) uintptr {
	return uintptr(unsafe.Pointer(unsafe.SliceData(p)))
}

func verifyWith(fa *FirstFitAllocator) error {
	return verify.AllInvariants(fa.h, fa)
}
