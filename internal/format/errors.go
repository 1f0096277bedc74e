package format

import "errors"

var (
	// ErrTruncated indicates the buffer lacked the bytes required for a tag.
	ErrTruncated = errors.New("format: truncated buffer")
	// ErrBadState indicates a tag carried an unknown state value.
	ErrBadState = errors.New("format: invalid block state")
)
