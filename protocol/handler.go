// File: protocol/handler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Grounded on the teacher's api/handler.go Handler/Callback shape,
// generalized to the five dispatch reasons original_source's
// libwebsockets.c delivers through a single callback function pointer.

package protocol

// CallbackReason identifies why a Protocol's Callback is being invoked,
// mirroring the original core's LWS_CALLBACK_* enum (spec §4.4).
type CallbackReason int

const (
	// ReasonEstablished fires once, right after a Connection completes
	// the upgrade handshake and is bound to this protocol.
	ReasonEstablished CallbackReason = iota
	// ReasonClosed fires once, right before an ESTABLISHED Connection's
	// transport is torn down.
	ReasonClosed
	// ReasonReceive fires once per complete WebSocket frame received
	// from an ESTABLISHED connection; in carries the frame payload.
	ReasonReceive
	// ReasonBroadcast fires once per ESTABLISHED connection during a
	// broadcast fan-out; in carries the broadcast payload.
	ReasonBroadcast
	// ReasonHTTP fires for a plain HTTP request that did not request a
	// WebSocket upgrade, delivered to the registry's first protocol.
	ReasonHTTP
)

func (r CallbackReason) String() string {
	switch r {
	case ReasonEstablished:
		return "ESTABLISHED"
	case ReasonClosed:
		return "CLOSED"
	case ReasonReceive:
		return "RECEIVE"
	case ReasonBroadcast:
		return "BROADCAST"
	case ReasonHTTP:
		return "HTTP"
	default:
		return "UNKNOWN"
	}
}

// Callback is the single entry point through which a Protocol receives
// all lifecycle and data events for its connections, matching the
// original core's one-function-pointer-per-protocol design (spec §4.4,
// §9). userData is the connection's opaque per-session slot; in is the
// reason-specific payload and is nil for ESTABLISHED and CLOSED.
type Callback func(conn *Connection, reason CallbackReason, userData []byte, in []byte)

// FrameHandler drives one Connection's transport-level protocol: the
// HTTP upgrade handshake while in StateHTTP, then WebSocket framing
// while in StateEstablished. The loop package calls Ingest once per
// readable poll event with whatever bytes Read returned.
type FrameHandler interface {
	// Ingest consumes newly read bytes for conn, driving its state
	// machine and invoking its bound protocol's Callback as frames or
	// lifecycle transitions complete. closed reports whether the
	// connection should be torn down (on protocol error or an explicit
	// close handshake); the loop calls conn.Destroy() when true.
	Ingest(conn *Connection, data []byte) (closed bool, err error)
}
