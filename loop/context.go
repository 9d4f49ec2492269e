// File: loop/context.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Context is the server's poll(2)-driven event loop. Grounded on
// original_source/lib/libwebsockets.c's libwebsocket_create_server and
// libwebsocket_poll_connections, adapted from the tagged fds[]/wsi[]
// arrays into an explicit []slot table and from a forked worker
// process into a single dedicated goroutine (spec §9).

package loop

import (
	"context"
	"crypto/tls"
	"errors"
	"log"
	"net"
	"os"
	"sync"
	"time"

	"github.com/momentics/wsmux/control"
	"github.com/momentics/wsmux/protocol"
	"github.com/momentics/wsmux/transport"
)

// Config configures a Context's listener binding, TLS, and backpressure
// policy.
type Config struct {
	// ListenAddr is the main accept listener's bind address.
	ListenAddr string
	// MaxClients caps the number of simultaneous connections; a new
	// connection accepted while at capacity is closed immediately
	// (spec §4.2 overload behavior). Zero means unbounded.
	MaxClients int
	// TLSConfig, if non-nil, is used to perform a synchronous TLS
	// server handshake on every accepted client connection before it
	// is admitted to the slot table.
	TLSConfig *tls.Config
	// AcceptTimeout bounds how long a TLS handshake performed at
	// accept time may take before the connection is abandoned.
	AcceptTimeout time.Duration
	Logger        *log.Logger
	// Metrics, if non-nil, receives accept/reject/handshake-failure
	// counts and the live connection gauge as the loop runs.
	Metrics *control.Metrics
	// DropGID and DropUID change the process's group/user id once the
	// listen sockets are bound, so a server that must bind a
	// privileged port can still drop root afterward. -1 leaves the
	// corresponding id unchanged.
	DropGID int
	DropUID int
}

// DefaultConfig returns the loop's zero-configuration defaults: no TLS,
// no client cap, a generous handshake timeout, no privilege drop.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:    ":9000",
		MaxClients:    0,
		AcceptTimeout: 10 * time.Second,
		Logger:        log.Default(),
		DropGID:       -1,
		DropUID:       -1,
	}
}

// Context owns the slot table, the registered protocols, and the
// goroutine that drives them. All slot-table mutation happens on that
// one goroutine; Registrar and metrics reads from other goroutines
// take mu.
type Context struct {
	cfg      *Config
	registry []*protocol.Protocol
	handler  protocol.FrameHandler

	mu    sync.Mutex
	slots []*slot

	shutdownR, shutdownW *os.File
	running              bool
	done                 chan struct{}
}

// NewContext binds the main listener and one broadcast-ingress
// listener per registered protocol, and returns a Context ready for
// Run. The listener bindings happen here, synchronously, so a caller
// learns about a bad ListenAddr before spawning the loop goroutine.
func NewContext(cfg *Config, registry []*protocol.Protocol, handler protocol.FrameHandler) (*Context, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if len(registry) == 0 {
		return nil, ErrNoProtocols
	}

	ln, err := reuseAddrListenConfig.Listen(context.Background(), "tcp", cfg.ListenAddr)
	if err != nil {
		return nil, err
	}

	ctx := &Context{
		cfg:      cfg,
		registry: registry,
		handler:  handler,
		done:     make(chan struct{}),
	}
	ctx.slots = append(ctx.slots, &slot{kind: SlotListener, listener: ln})

	for _, p := range registry {
		ingressLn, err := reuseAddrListenConfig.Listen(context.Background(), "tcp", "127.0.0.1:0")
		if err != nil {
			ctx.closeAllListeners()
			return nil, err
		}
		p.BindIngress(ingressLn.Addr().String())
		p.BindRegistrar(ctx)
		ctx.slots = append(ctx.slots, &slot{kind: SlotBroadcastIngress, listener: ingressLn, protocol: p})
	}

	if err := dropPrivileges(cfg.DropGID, cfg.DropUID); err != nil {
		ctx.closeAllListeners()
		return nil, err
	}

	return ctx, nil
}

func (c *Context) closeAllListeners() {
	for _, s := range c.slots {
		if s.listener != nil {
			s.listener.Close()
		}
	}
}

// WalkEstablished implements protocol.Registrar.
func (c *Context) WalkEstablished(protocolIndex int, fn func(*protocol.Connection)) {
	c.mu.Lock()
	matches := make([]*protocol.Connection, 0, len(c.slots))
	for _, s := range c.slots {
		if s.kind != SlotConnection {
			continue
		}
		conn := s.conn
		if conn.State() == protocol.StateEstablished && conn.Protocol() != nil && conn.Protocol().Index == protocolIndex {
			matches = append(matches, conn)
		}
	}
	c.mu.Unlock()

	for _, conn := range matches {
		fn(conn)
	}
}

// ListenAddr returns the main listener's bound address, useful when
// Config.ListenAddr used a ":0" ephemeral port.
func (c *Context) ListenAddr() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range c.slots {
		if s.kind == SlotListener {
			return s.listener.Addr().String()
		}
	}
	return ""
}

// ActiveConnections returns the current number of accepted connections
// (any state), for metrics reporting.
func (c *Context) ActiveConnections() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, s := range c.slots {
		if s.kind == SlotConnection {
			n++
		}
	}
	return n
}

// acceptTransport wraps a connection accepted by serviceListener: a plain
// TCP transport when cfg is nil, otherwise the result of a synchronous
// TLS server handshake bounded by timeout.
func acceptTransport(raw net.Conn, cfg *tls.Config, timeout time.Duration) (transport.Transport, error) {
	if cfg == nil {
		tcpConn, ok := raw.(*net.TCPConn)
		if !ok {
			return nil, errors.New("loop: accepted connection is not TCP")
		}
		return transport.NewTCPTransport(tcpConn), nil
	}
	if timeout > 0 {
		_ = raw.SetDeadline(time.Now().Add(timeout))
	}
	tr, err := transport.Handshake(raw, cfg)
	if err != nil {
		return nil, err
	}
	if timeout > 0 {
		_ = raw.SetDeadline(time.Time{})
	}
	return tr, nil
}
