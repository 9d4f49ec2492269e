// File: protocol/protocol.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The Protocol registry. Grounded on the teacher's protocol/connection.go
// libwebsocket_protocol table and on original_source/lib/libwebsockets.c's
// libwebsockets_get_protocol / broadcast socketpair setup, generalized so
// each protocol's broadcast-ingress listener is a real loopback TCP
// listener (assigned by the loop at construction) instead of the
// original's per-process socketpair.

package protocol

import (
	"sync"

	"github.com/momentics/wsmux/control"
	"github.com/momentics/wsmux/transport"
)

// Registrar is implemented by the event loop that owns a server's slot
// table. It lets a Protocol fan a broadcast out to every ESTABLISHED
// connection bound to it without the protocol package importing loop
// (which would create an import cycle, since loop drives protocol).
type Registrar interface {
	// WalkEstablished invokes fn, in slot order, for every connection
	// currently ESTABLISHED under the protocol at protocolIndex. fn
	// must not be retained past the call.
	WalkEstablished(protocolIndex int, fn func(*Connection))
}

// Spec describes one protocol at registration time; NewRegistry turns a
// slice of Spec into bound *Protocol entries with populated Index
// fields, mirroring the original's null-callback-terminated array
// without needing a sentinel in Go.
type Spec struct {
	Name         string
	Callback     Callback
	UserDataSize int
}

// Protocol is one named entry in a server's protocol table: the
// callback its connections dispatch through, the per-session user-data
// size it requests, and the loopback broadcast-ingress address an
// external goroutine writes to via Broadcast.
type Protocol struct {
	Name         string
	Callback     Callback
	UserDataSize int
	Index        int

	registrar Registrar

	// ingressAddr is the loopback address of this protocol's
	// broadcast-ingress listener, e.g. "127.0.0.1:54321". It is set by
	// the loop package once that listener is bound.
	ingressAddr string
	dialer      transport.Dialer

	writerMu sync.Mutex
	writer   transport.Transport

	metrics *control.Metrics
}

// NewRegistry builds the bound Protocol table for specs, in order.
func NewRegistry(specs []Spec) []*Protocol {
	protos := make([]*Protocol, len(specs))
	for i, s := range specs {
		protos[i] = &Protocol{
			Name:         s.Name,
			Callback:     s.Callback,
			UserDataSize: s.UserDataSize,
			Index:        i,
			dialer:       transport.TCPDialer,
		}
	}
	return protos
}

// BindRegistrar attaches the event loop's slot-table walker. Called
// once by the loop during server construction.
func (p *Protocol) BindRegistrar(r Registrar) { p.registrar = r }

// BindMetrics attaches the server's metric set so broadcast fan-out is
// counted. Called once by the façade during server construction; a
// Protocol with no metrics bound simply skips the increment.
func (p *Protocol) BindMetrics(m *control.Metrics) { p.metrics = m }

// BindIngress records the loopback address this protocol's
// broadcast-ingress listener is bound to. Called once by the loop
// during server construction.
func (p *Protocol) BindIngress(addr string) { p.ingressAddr = addr }

// IngressAddr returns the loopback address a Broadcast call dials.
func (p *Protocol) IngressAddr() string { return p.ingressAddr }

// BroadcastInLoop delivers payload to every ESTABLISHED connection
// bound to p with reason BROADCAST, synchronously, without a kernel
// round-trip. It is only safe to call from the goroutine that is
// currently running the event loop (spec §4.5, §9): typically from
// inside a callback the loop itself is invoking. Calling it from any
// other goroutine races the loop's slot table; use Broadcast instead.
func (p *Protocol) BroadcastInLoop(payload []byte) {
	if p.registrar == nil || p.Callback == nil {
		return
	}
	if p.metrics != nil {
		p.metrics.BroadcastsSent.WithLabelValues(p.Name).Inc()
	}
	p.registrar.WalkEstablished(p.Index, func(c *Connection) {
		p.Callback(c, ReasonBroadcast, c.userData, payload)
	})
}

// Broadcast delivers payload to every ESTABLISHED connection bound to
// p from any goroutine. It writes payload to the protocol's loopback
// broadcast-ingress listener; the event loop reads it back on its next
// poll iteration and performs the actual fan-out via BroadcastInLoop
// (spec §4.5). The writer connection is dialed lazily and kept open
// across calls; a write failure drops it so the next call redials.
func (p *Protocol) Broadcast(payload []byte) error {
	if p.ingressAddr == "" {
		return ErrNoIngress
	}
	p.writerMu.Lock()
	defer p.writerMu.Unlock()

	if p.writer == nil {
		w, err := p.dialer.Dial("tcp", p.ingressAddr)
		if err != nil {
			return err
		}
		p.writer = w
	}
	if _, err := p.writer.Write(payload); err != nil {
		p.writer.Close()
		p.writer = nil
		return err
	}
	return nil
}

// CloseWriter tears down a lazily-dialed broadcast writer connection,
// if one is open. Called during server shutdown.
func (p *Protocol) CloseWriter() {
	p.writerMu.Lock()
	defer p.writerMu.Unlock()
	if p.writer != nil {
		p.writer.Close()
		p.writer = nil
	}
}
