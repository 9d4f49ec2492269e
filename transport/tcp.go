// File: transport/tcp.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Plain TCP transport. Grounded on the teacher's
// lowlevel/server/listener.go bufferedConnTransport and
// internal/transport/transport_linux.go's SO_REUSEADDR/TCP_NODELAY
// setup, adapted to wrap net.TCPConn instead of a raw unix.Socket fd so
// the rest of the standard library (crypto/tls, net.Listener) composes
// with it directly.

package transport

import (
	"net"
	"syscall"
)

// TCPTransport implements Transport over a *net.TCPConn.
type TCPTransport struct {
	conn *net.TCPConn
}

// NewTCPTransport wraps an already-accepted TCP connection, disabling
// Nagle's algorithm the way the teacher's linuxTransport does for
// low-latency framed traffic.
func NewTCPTransport(conn *net.TCPConn) *TCPTransport {
	_ = conn.SetNoDelay(true)
	return &TCPTransport{conn: conn}
}

func (t *TCPTransport) Read(p []byte) (int, error)  { return t.conn.Read(p) }
func (t *TCPTransport) Write(p []byte) (int, error) { return t.conn.Write(p) }

// Shutdown half-closes both directions, mirroring shutdown(fd,
// SHUT_RDWR) in the original C core. Errors from an already-closed
// connection are ignored since destruction is idempotent by design.
func (t *TCPTransport) Shutdown() error {
	_ = t.conn.CloseRead()
	_ = t.conn.CloseWrite()
	return nil
}

func (t *TCPTransport) Close() error { return t.conn.Close() }

// RawFD extracts the kernel file descriptor via SyscallConn, the
// standard-library-sanctioned way to hand a net.Conn's fd to an
// unrelated poll(2)/epoll(2) call without disturbing Go's own runtime
// netpoller bookkeeping for that connection.
func (t *TCPTransport) RawFD() (uintptr, error) {
	return rawFD(t.conn)
}

func rawFD(conn syscall.Conn) (uintptr, error) {
	raw, err := conn.SyscallConn()
	if err != nil {
		return 0, err
	}
	var fd uintptr
	ctrlErr := raw.Control(func(f uintptr) { fd = f })
	if ctrlErr != nil {
		return 0, ctrlErr
	}
	return fd, nil
}

// tcpDialer implements Dialer by dialing plain TCP. Used by the
// protocol package to lazily connect a broadcast writer to a
// protocol's loopback ingress listener.
type tcpDialer struct{}

// TCPDialer is the default Dialer used by broadcast writer connections.
var TCPDialer Dialer = tcpDialer{}

func (tcpDialer) Dial(network, addr string) (Transport, error) {
	conn, err := net.Dial(network, addr)
	if err != nil {
		return nil, err
	}
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return &genericTransport{conn: conn}, nil
	}
	return NewTCPTransport(tcpConn), nil
}

// genericTransport is a fallback Transport for net.Conn values that
// are not *net.TCPConn (e.g. in-memory pipes used by tests).
type genericTransport struct {
	conn net.Conn
}

func (g *genericTransport) Read(p []byte) (int, error)  { return g.conn.Read(p) }
func (g *genericTransport) Write(p []byte) (int, error) { return g.conn.Write(p) }
func (g *genericTransport) Shutdown() error             { return nil }
func (g *genericTransport) Close() error                { return g.conn.Close() }
func (g *genericTransport) RawFD() (uintptr, error) {
	if sc, ok := g.conn.(syscall.Conn); ok {
		return rawFD(sc)
	}
	return 0, ErrNoRawFD
}
