// File: protocol/errors.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package protocol

import "errors"

var (
	// ErrNoIngress is returned by Broadcast when called before the
	// loop has bound a broadcast-ingress listener to the protocol.
	ErrNoIngress = errors.New("protocol: no broadcast-ingress address bound")
	// ErrUpgradeFailed indicates the handshake request could not be
	// parsed or did not request a protocol upgrade this registry knows.
	ErrUpgradeFailed = errors.New("protocol: websocket upgrade handshake failed")
	// ErrNoProtocolsRegistered indicates a registry with zero entries,
	// which cannot serve an HTTP fallback callback either.
	ErrNoProtocolsRegistered = errors.New("protocol: registry has no protocols")
)
