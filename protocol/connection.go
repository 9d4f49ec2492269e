// File: protocol/connection.go
// Package protocol implements the Connection lifecycle, the Protocol
// registry, and the default RFC6455 frame handler that the event loop
// in package loop drives.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package protocol

import (
	"log"
	"sync/atomic"

	"github.com/momentics/wsmux/transport"
)

// State is a Connection's position in its lifecycle state machine.
type State int32

const (
	// StateHTTP is the initial state: the connection is accumulating an
	// HTTP request and has not yet completed (or failed) the upgrade
	// negotiation.
	StateHTTP State = iota
	// StateEstablished is reached once the frame handler completes the
	// WebSocket upgrade and selects a protocol. RECEIVE and BROADCAST
	// callbacks fire only in this state.
	StateEstablished
	// StateDead is terminal. No transition leaves it.
	StateDead
)

func (s State) String() string {
	switch s {
	case StateHTTP:
		return "HTTP"
	case StateEstablished:
		return "ESTABLISHED"
	case StateDead:
		return "DEAD"
	default:
		return "UNKNOWN"
	}
}

// TokenKind indexes the fixed-size array of accumulated handshake
// tokens a Connection carries while it is in StateHTTP.
type TokenKind int

const (
	TokenHost TokenKind = iota
	TokenConnection
	TokenUpgrade
	TokenOrigin
	TokenSecWebSocketKey
	TokenSecWebSocketVersion
	TokenSecWebSocketProtocol
	TokenGetURI
	tokenCount
)

// Token is one accumulated handshake header value. A nil Value means
// the header was absent; Value is otherwise an owned copy of the
// header's bytes.
type Token struct {
	Value []byte
}

// DefaultRevision is the wire-revision a freshly accepted connection is
// assigned before any handshake header has been examined, matching the
// original core's default of 76 (spec §3, §6).
const DefaultRevision = 76

// Connection is a per-accepted-socket record. It is created on accept
// of the listener and mutated only by the event-loop goroutine that
// owns it; its state is stored atomically so the loop's
// WalkEstablished can check State() without racing the owning loop.
type Connection struct {
	transport transport.Transport
	state     State

	protocol *Protocol

	tokens [tokenCount]Token
	// accum holds bytes read so far while in StateHTTP that have not
	// yet resolved into a complete request line + header block.
	accum []byte

	userData []byte
	revision int

	// readBuf holds bytes read in StateEstablished that have not yet
	// been consumed into complete frames by the frame handler.
	readBuf []byte

	logger *log.Logger
}

// NewConnection wraps a freshly accepted transport. head is the
// registry's first protocol, to which the tentative protocol pointer
// is bound until (and unless) the handshake rebinds it.
func NewConnection(tr transport.Transport, head *Protocol, logger *log.Logger) *Connection {
	if logger == nil {
		logger = log.Default()
	}
	return &Connection{
		transport: tr,
		state:     StateHTTP,
		protocol:  head,
		revision:  DefaultRevision,
		logger:    logger,
	}
}

// State returns the connection's current lifecycle state.
func (c *Connection) State() State { return State(atomic.LoadInt32((*int32)(&c.state))) }

func (c *Connection) setState(s State) { atomic.StoreInt32((*int32)(&c.state), int32(s)) }

// Protocol returns the connection's currently bound protocol: the
// registry head before a handshake completes, the negotiated protocol
// afterward.
func (c *Connection) Protocol() *Protocol { return c.protocol }

// Transport exposes the underlying transport so a frame handler can
// issue writes (e.g. a Pong reply) directly.
func (c *Connection) Transport() transport.Transport { return c.transport }

// Revision returns the negotiated wire-revision integer.
func (c *Connection) Revision() int { return c.revision }

// SetRevision lets the frame handler revise the wire revision based on
// a client header.
func (c *Connection) SetRevision(rev int) { c.revision = rev }

// Token returns the accumulated handshake token of the given kind.
func (c *Connection) Token(kind TokenKind) Token { return c.tokens[kind] }

// SetToken stores an owned copy of value under kind.
func (c *Connection) SetToken(kind TokenKind, value []byte) {
	if value == nil {
		c.tokens[kind] = Token{}
		return
	}
	owned := make([]byte, len(value))
	copy(owned, value)
	c.tokens[kind] = Token{Value: owned}
}

// AppendAccum appends to the in-progress HTTP accumulation buffer,
// returning the buffer's new contents.
func (c *Connection) AppendAccum(b []byte) []byte {
	c.accum = append(c.accum, b...)
	return c.accum
}

// ResetAccum discards the HTTP accumulation buffer, e.g. once the
// request has been fully parsed.
func (c *Connection) ResetAccum() { c.accum = nil }

// AppendReadBuf appends newly read bytes to the in-progress frame
// accumulation buffer.
func (c *Connection) AppendReadBuf(b []byte) []byte {
	c.readBuf = append(c.readBuf, b...)
	return c.readBuf
}

// ConsumeReadBuf drops the first n bytes of the frame accumulation
// buffer, called after a frame handler successfully decodes a frame.
func (c *Connection) ConsumeReadBuf(n int) {
	c.readBuf = c.readBuf[n:]
}

// readBufView returns the current frame accumulation buffer, for use
// by a FrameHandler re-reading it after a ConsumeReadBuf call within
// the same Ingest invocation.
func (c *Connection) readBufView() []byte { return c.readBuf }

// UserData returns the connection's opaque per-session slot, allocated
// lazily at size protocol.UserDataSize on first ESTABLISHED dispatch.
func (c *Connection) UserData() []byte { return c.userData }

func (c *Connection) allocUserData() {
	if c.userData == nil && c.protocol != nil && c.protocol.UserDataSize > 0 {
		c.userData = make([]byte, c.protocol.UserDataSize)
	}
}

// establish transitions HTTP -> ESTABLISHED, rebinds the protocol
// pointer to the negotiated protocol, allocates the per-session
// user-data slot, and invokes the ESTABLISHED callback. It is called
// by the frame handler once the upgrade handshake succeeds.
func (c *Connection) establish(p *Protocol) {
	c.protocol = p
	c.setState(StateEstablished)
	c.allocUserData()
	if p.Callback != nil {
		p.Callback(c, ReasonEstablished, c.userData, nil)
	}
}

// Destroy runs the full teardown sequence from spec §4.3: if the
// connection was ESTABLISHED it first receives a CLOSED callback, then
// moves to DEAD, releases its token buffers and user-data slot, and
// shuts down then closes the transport. Destroy is idempotent: calling
// it on an already-DEAD connection is a no-op.
func (c *Connection) Destroy() {
	if c.State() == StateDead {
		return
	}
	wasEstablished := c.State() == StateEstablished
	c.setState(StateDead)

	if wasEstablished && c.protocol != nil && c.protocol.Callback != nil {
		c.protocol.Callback(c, ReasonClosed, c.userData, nil)
	}

	for i := range c.tokens {
		c.tokens[i] = Token{}
	}
	c.userData = nil
	c.accum = nil
	c.readBuf = nil

	if err := c.transport.Shutdown(); err != nil {
		c.logger.Printf("wsmux: transport shutdown: %v", err)
	}
	if err := c.transport.Close(); err != nil {
		c.logger.Printf("wsmux: transport close: %v", err)
	}
}
