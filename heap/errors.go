package heap

import "errors"

var (
	// ErrMapFailed indicates the OS could not supply memory for the arena.
	ErrMapFailed = errors.New("heap: arena mapping failed")

	// ErrArenaSize indicates an unusable arena size was requested.
	ErrArenaSize = errors.New("heap: invalid arena size")

	// ErrClosed indicates the arena memory has already been released.
	ErrClosed = errors.New("heap: arena closed")
)

// ErrBadOffset indicates an offset that does not name a well-formed block.
var ErrBadOffset = errors.New("heap: offset does not name a block")
