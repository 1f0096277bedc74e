package malloc

import "errors"

var errCorrupt = errors.New("payload overwritten by another block")
