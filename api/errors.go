// File: api/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Sentinel errors returned by the loop and server packages, kept in one
// leaf package so none of them need to import each other just to
// compare an error value.

package api

import "errors"

var (
	ErrTransportClosed  = errors.New("transport is closed")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrOverload         = errors.New("connection table is full")
	ErrListenerDead     = errors.New("listener socket is dead")
	ErrNotSupported     = errors.New("operation not supported on this platform")
	ErrHandshakeFailed  = errors.New("transport-level handshake failed")
	ErrProtocolNotFound = errors.New("no protocol registered with that name")
	ErrAlreadyRunning   = errors.New("server already running")
)
