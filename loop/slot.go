// File: loop/slot.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The event loop's slot table. Grounded on original_source's
// libwebsockets.c fds[]/wsi[] parallel arrays, replaced with a single
// tagged slice so a slot's kind is explicit instead of inferred from a
// tagged pointer value stashed in the fd array (spec §9).

package loop

import (
	"net"

	"github.com/momentics/wsmux/protocol"
)

// SlotKind tags what a poll slot represents.
type SlotKind int

const (
	// SlotListener is the server's main accept listener.
	SlotListener SlotKind = iota
	// SlotBroadcastIngress is a per-protocol loopback listener that
	// accepts external broadcast-writer connections.
	SlotBroadcastIngress
	// SlotBroadcastWriter is one accepted connection on a
	// broadcast-ingress listener; bytes read from it are fanned out via
	// Protocol.BroadcastInLoop without any WebSocket framing.
	SlotBroadcastWriter
	// SlotConnection is an accepted client connection running the
	// HTTP-upgrade/WebSocket state machine.
	SlotConnection
	// SlotShutdown is the read end of the loop's self-pipe, used to
	// wake a blocked poll(2) call on Shutdown.
	SlotShutdown
)

func (k SlotKind) String() string {
	switch k {
	case SlotListener:
		return "LISTENER"
	case SlotBroadcastIngress:
		return "BROADCAST_INGRESS"
	case SlotBroadcastWriter:
		return "BROADCAST_WRITER"
	case SlotConnection:
		return "CONNECTION"
	case SlotShutdown:
		return "SHUTDOWN"
	default:
		return "UNKNOWN"
	}
}

// slot is one entry of the loop's poll table.
type slot struct {
	kind SlotKind
	fd   uintptr

	listener net.Listener      // SlotListener, SlotBroadcastIngress
	protocol *protocol.Protocol // SlotBroadcastIngress, SlotBroadcastWriter

	writerConn net.Conn // SlotBroadcastWriter

	conn *protocol.Connection // SlotConnection
}
