// File: transport/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package transport

import "errors"

// ErrNoRawFD is returned when a Transport wraps a connection kind that
// cannot expose a syscall-level file descriptor (e.g. an in-memory
// net.Pipe used by tests).
var ErrNoRawFD = errors.New("transport: underlying connection exposes no raw file descriptor")
