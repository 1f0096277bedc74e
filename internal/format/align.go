package format

// Align8 returns n rounded up to the next multiple of Alignment.
//
// Example:
//
//	Align8(0)  = 0
//	Align8(1)  = 8
//	Align8(8)  = 8
//	Align8(49) = 56
func Align8(n int) int {
	return (n + AlignmentMask) &^ AlignmentMask
}

// Align8U64 is Align8 for tag-sized values.
func Align8U64(n uint64) uint64 {
	return (n + AlignmentMask) &^ AlignmentMask
}

// IsAligned reports whether off is a multiple of Alignment.
func IsAligned(off int) bool {
	return off&AlignmentMask == 0
}

// BlockSizeFor returns the block size needed to carry a payload of n bytes.
// The caller is responsible for checking that n+BlockOverhead does not overflow.
func BlockSizeFor(n int) int {
	return Align8(n + BlockOverhead)
}
