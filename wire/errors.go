// File: wire/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package wire

import "errors"

// Errors returned by the frame codec and padded-buffer helpers.
var (
	ErrBufferNotPadded  = errors.New("buffer lacks required pre/post padding")
	ErrFrameTooLarge    = errors.New("frame payload exceeds maximum allowed size")
	ErrIncompleteFrame  = errors.New("frame incomplete, more bytes needed")
	ErrReservedOpcode   = errors.New("reserved opcode")
)
