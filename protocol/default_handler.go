// File: protocol/default_handler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// DefaultFrameHandler drives the per-Connection state machine: HTTP
// request accumulation and upgrade negotiation while StateHTTP, then
// RFC6455 frame decode/dispatch while StateEstablished. Grounded on
// original_source/lib/libwebsockets.c's libwebsocket_read, generalized
// from its tagged-pointer-driven switch into an explicit Go state
// machine over Connection.state.

package protocol

import (
	"net/http"
	"strings"

	"github.com/momentics/wsmux/control"
	"github.com/momentics/wsmux/wire"
)

// DefaultFrameHandler is the registry-driven FrameHandler every server
// uses unless an embedder supplies its own.
type DefaultFrameHandler struct {
	registry []*Protocol
	metrics  *control.Metrics
}

// NewDefaultFrameHandler binds handler to registry, the server's full
// protocol table in registration order. registry[0] is both the
// upgrade negotiation's default and the HTTP-fallback recipient (spec
// §4.4, §6).
func NewDefaultFrameHandler(registry []*Protocol) *DefaultFrameHandler {
	return &DefaultFrameHandler{registry: registry}
}

// SetMetrics attaches the server's metric set so received data frames
// are counted per protocol. Called once by the façade during server
// construction; a handler with no metrics bound simply skips the
// increment.
func (h *DefaultFrameHandler) SetMetrics(m *control.Metrics) { h.metrics = m }

// Ingest implements FrameHandler.
func (h *DefaultFrameHandler) Ingest(conn *Connection, data []byte) (bool, error) {
	switch conn.State() {
	case StateHTTP:
		return h.ingestHandshake(conn, data)
	case StateEstablished:
		return h.ingestFrames(conn, data)
	default:
		return true, nil
	}
}

func (h *DefaultFrameHandler) ingestHandshake(conn *Connection, data []byte) (bool, error) {
	accum := conn.AppendAccum(data)

	req, isUpgrade, err := parseHandshake(accum)
	if err != nil {
		return true, err
	}
	if req == nil {
		// Header block incomplete; wait for more bytes.
		return false, nil
	}
	conn.ResetAccum()
	conn.SetToken(TokenGetURI, []byte(req.URL.RequestURI()))
	conn.SetToken(TokenHost, []byte(req.Host))
	conn.SetToken(TokenOrigin, []byte(req.Header.Get("Origin")))

	if len(h.registry) == 0 {
		return true, ErrNoProtocolsRegistered
	}

	if !isUpgrade {
		h.registry[0].Callback(conn, ReasonHTTP, nil, []byte(req.URL.RequestURI()))
		return true, nil
	}

	acceptKey, err := validateUpgrade(req)
	if err != nil {
		return true, err
	}
	conn.SetToken(TokenConnection, []byte(req.Header.Get(headerConnection)))
	conn.SetToken(TokenUpgrade, []byte(req.Header.Get(headerUpgrade)))
	conn.SetToken(TokenSecWebSocketVersion, []byte(req.Header.Get(headerSecWebSocketVer)))
	conn.SetToken(TokenSecWebSocketProtocol, []byte(req.Header.Get(headerSecWebSocketProto)))

	selected := h.selectProtocol(req)
	respProto := ""
	if headerContainsToken(req.Header, headerSecWebSocketProto, selected.Name) {
		respProto = selected.Name
	}
	resp := buildUpgradeResponse(acceptKey, respProto)
	if _, err := conn.Transport().Write(resp); err != nil {
		return true, err
	}

	conn.SetToken(TokenSecWebSocketKey, []byte(req.Header.Get(headerSecWebSocketKey)))
	conn.establish(selected)
	return false, nil
}

// selectProtocol matches the client's requested Sec-WebSocket-Protocol
// list, in order, against the registry; it falls back to registry[0]
// when the client offered none or none matched, matching the original
// core's "first protocol is the default" convention.
func (h *DefaultFrameHandler) selectProtocol(req *http.Request) *Protocol {
	requested := req.Header.Get(headerSecWebSocketProto)
	if requested == "" {
		return h.registry[0]
	}
	for _, name := range strings.Split(requested, ",") {
		name = strings.TrimSpace(name)
		for _, p := range h.registry {
			if p.Name == name {
				return p
			}
		}
	}
	return h.registry[0]
}

func (h *DefaultFrameHandler) ingestFrames(conn *Connection, data []byte) (bool, error) {
	buf := conn.AppendReadBuf(data)

	for {
		frame, n, err := wire.DecodeFrame(buf)
		if err != nil {
			return true, err
		}
		if frame == nil {
			break
		}
		conn.ConsumeReadBuf(n)
		buf = conn.readBufView()

		closed, err := h.dispatchFrame(conn, frame)
		if closed || err != nil {
			return closed, err
		}
	}
	return false, nil
}

func (h *DefaultFrameHandler) dispatchFrame(conn *Connection, f *wire.Frame) (bool, error) {
	p := conn.Protocol()
	switch f.Opcode {
	case wire.OpcodeText, wire.OpcodeBinary, wire.OpcodeContinuation:
		if h.metrics != nil && p != nil {
			h.metrics.FramesReceived.WithLabelValues(p.Name).Inc()
		}
		if p != nil && p.Callback != nil {
			p.Callback(conn, ReasonReceive, conn.UserData(), f.Payload)
		}
		return false, nil
	case wire.OpcodePing:
		pong := &wire.Frame{IsFinal: true, Opcode: wire.OpcodePong, PayloadLen: int64(len(f.Payload)), Payload: f.Payload}
		out, err := wire.EncodeFrame(pong, false)
		if err != nil {
			return true, err
		}
		_, err = conn.Transport().Write(out)
		return false, err
	case wire.OpcodePong:
		return false, nil
	case wire.OpcodeClose:
		closeFrame := &wire.Frame{IsFinal: true, Opcode: wire.OpcodeClose, PayloadLen: int64(len(f.Payload)), Payload: f.Payload}
		out, err := wire.EncodeFrame(closeFrame, false)
		if err == nil {
			_, _ = conn.Transport().Write(out)
		}
		return true, nil
	default:
		return true, nil
	}
}
