package format

import "encoding/binary"

// Tag fields are read and written with encoding/binary. The compiler inlines
// these calls and the bounds check doubles as a guard against a bad offset.

// PutU32 writes a little-endian uint32 at off.
func PutU32(b []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(b[off:off+4], v)
}

// PutU64 writes a little-endian uint64 at off.
func PutU64(b []byte, off int, v uint64) {
	binary.LittleEndian.PutUint64(b[off:off+8], v)
}

// ReadU32 reads a little-endian uint32 at off.
func ReadU32(b []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(b[off : off+4])
}

// ReadU64 reads a little-endian uint64 at off.
func ReadU64(b []byte, off int) uint64 {
	return binary.LittleEndian.Uint64(b[off : off+8])
}
