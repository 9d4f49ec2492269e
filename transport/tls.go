// File: transport/tls.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// TLS-wrapped transport. Certificate/key loading is explicitly out of
// core scope (spec §1): the loop package only ever receives a ready
// *tls.Config and hands it to Handshake at accept time; how that
// config was built (file paths, SNI, ACME, ...) is the embedder's
// concern.

package transport

import (
	"crypto/tls"
	"net"
	"syscall"
)

// TLSTransport implements Transport over a *tls.Conn.
type TLSTransport struct {
	conn *tls.Conn
}

// NewTLSTransport wraps a server-side tls.Conn that has already
// completed (or is about to complete) its handshake via Handshake.
func NewTLSTransport(conn *tls.Conn) *TLSTransport {
	return &TLSTransport{conn: conn}
}

// Handshake performs the TLS server handshake over an already-accepted
// raw connection, matching the original's synchronous SSL_accept call
// at accept time (spec §4.2: "complete the transport handshake if TLS
// is enabled"). On failure the caller discards the connection.
func Handshake(raw net.Conn, cfg *tls.Config) (*TLSTransport, error) {
	tconn := tls.Server(raw, cfg)
	if err := tconn.Handshake(); err != nil {
		return nil, err
	}
	return NewTLSTransport(tconn), nil
}

func (t *TLSTransport) Read(p []byte) (int, error)  { return t.conn.Read(p) }
func (t *TLSTransport) Write(p []byte) (int, error) { return t.conn.Write(p) }

// Shutdown sends a TLS close_notify, then half-closes both directions
// of the underlying TCP connection; tls.Conn.CloseWrite alone does not
// touch the TCP socket.
func (t *TLSTransport) Shutdown() error {
	_ = t.conn.CloseWrite()
	if tcp, ok := t.conn.NetConn().(*net.TCPConn); ok {
		_ = tcp.CloseWrite()
		_ = tcp.CloseRead()
	}
	return nil
}

func (t *TLSTransport) Close() error { return t.conn.Close() }

// RawFD reaches through to the underlying TCP connection's file
// descriptor via tls.Conn.NetConn (available since Go 1.21), so the
// loop can still multiplex TLS sockets with the same poll(2) set used
// for plaintext ones.
func (t *TLSTransport) RawFD() (uintptr, error) {
	nc := t.conn.NetConn()
	sc, ok := nc.(syscall.Conn)
	if !ok {
		return 0, ErrNoRawFD
	}
	return rawFD(sc)
}
