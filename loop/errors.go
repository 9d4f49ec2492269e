// File: loop/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package loop

import "errors"

var (
	// ErrNoProtocols means a Context was constructed with an empty
	// protocol registry, which leaves the HTTP-fallback and default
	// upgrade path with nowhere to dispatch.
	ErrNoProtocols = errors.New("loop: at least one protocol must be registered")
	// ErrAlreadyRunning is returned by Run when called on a Context
	// whose loop goroutine is already active.
	ErrAlreadyRunning = errors.New("loop: already running")
	// ErrNotRunning is returned by Shutdown when the loop is not active.
	ErrNotRunning = errors.New("loop: not running")
)
