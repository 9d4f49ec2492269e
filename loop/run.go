//go:build !windows
// +build !windows

// File: loop/run.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The poll(2) loop itself. Grounded on
// original_source/lib/libwebsockets.c's libwebsocket_poll_connections:
// one pass over every ready slot (accepting on listeners, servicing
// writers and connections), then compact dead slots before the next
// iteration. The original's fds[0] double-close bug (closing the
// listener's fd on every iteration of its teardown loop) is fixed here
// by never putting a listener through the generic per-connection
// destroy path; teardown closes each listener exactly once.

package loop

import (
	"errors"
	"os"

	"github.com/eapache/queue"
	"golang.org/x/sys/unix"

	"github.com/momentics/wsmux/api"
	"github.com/momentics/wsmux/protocol"
	"github.com/momentics/wsmux/wire"
)

// Run binds the self-pipe, then blocks servicing the poll loop until
// Shutdown is called or an unrecoverable error occurs on the main
// listener. It must be called at most once per Context.
func (c *Context) Run() error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	r, w, err := os.Pipe()
	if err != nil {
		c.mu.Unlock()
		return err
	}
	c.shutdownR, c.shutdownW = r, w
	c.slots = append(c.slots, &slot{kind: SlotShutdown})
	c.running = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		close(c.done)
	}()

	for {
		pollFds, slots, err := c.buildPollSet()
		if err != nil {
			return err
		}

		n, err := unix.Poll(pollFds, -1)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return err
		}
		if n == 0 {
			continue
		}

		stop := false
		dead := queue.New()
		for i, pfd := range pollFds {
			if pfd.Revents == 0 {
				continue
			}
			s := slots[i]
			switch s.kind {
			case SlotShutdown:
				stop = true
			case SlotListener:
				if pfd.Revents&(unix.POLLHUP|unix.POLLERR) != 0 {
					c.teardown()
					return api.ErrListenerDead
				}
				c.serviceListener(s, pfd.Revents)
			case SlotBroadcastIngress:
				c.serviceBroadcastIngress(s, pfd.Revents)
			case SlotBroadcastWriter:
				if c.serviceBroadcastWriter(s, pfd.Revents) {
					dead.Add(i)
				}
			case SlotConnection:
				if c.serviceConnection(s, pfd.Revents) {
					dead.Add(i)
				}
			}
		}

		c.compact(dead)
		if c.cfg.Metrics != nil && dead.Length() > 0 {
			c.cfg.Metrics.ConnectionsActive.Set(float64(c.ActiveConnections()))
		}

		if stop {
			c.teardown()
			return nil
		}
	}
}

// buildPollSet takes a stable snapshot of the current slot table and
// its corresponding unix.PollFd entries, in lockstep order.
func (c *Context) buildPollSet() ([]unix.PollFd, []*slot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	pollFds := make([]unix.PollFd, 0, len(c.slots))
	slots := make([]*slot, 0, len(c.slots))

	for _, s := range c.slots {
		fd, err := c.slotFD(s)
		if err != nil {
			continue
		}
		s.fd = fd
		pollFds = append(pollFds, unix.PollFd{Fd: int32(fd), Events: unix.POLLIN})
		slots = append(slots, s)
	}
	return pollFds, slots, nil
}

func (c *Context) slotFD(s *slot) (uintptr, error) {
	switch s.kind {
	case SlotShutdown:
		return c.shutdownR.Fd(), nil
	case SlotListener, SlotBroadcastIngress:
		return listenerFD(s.listener)
	case SlotBroadcastWriter:
		return connFD(s.writerConn)
	case SlotConnection:
		return s.conn.Transport().RawFD()
	default:
		return 0, errors.New("loop: unknown slot kind")
	}
}

// compact removes every slot index queued in dead, highest index
// first, so removing one never invalidates another pending index
// (spec §9 testable property: compaction is order-preserving for the
// slots that survive).
func (c *Context) compact(dead *queue.Queue) {
	if dead.Length() == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := dead.Length() - 1; i >= 0; i-- {
		idx := dead.Get(i).(int)
		if idx < 0 || idx >= len(c.slots) {
			continue
		}
		c.slots = append(c.slots[:idx], c.slots[idx+1:]...)
	}
}

func (c *Context) teardown() {
	c.mu.Lock()
	slots := c.slots
	c.slots = nil
	c.mu.Unlock()

	for _, s := range slots {
		switch s.kind {
		case SlotConnection:
			s.conn.Destroy()
		case SlotBroadcastWriter:
			s.writerConn.Close()
		case SlotListener, SlotBroadcastIngress:
			s.listener.Close()
		}
	}
	for _, p := range c.registry {
		p.CloseWriter()
	}
	c.shutdownR.Close()
	c.shutdownW.Close()
}

// Shutdown wakes a blocked Run and waits for it to finish tearing
// every slot down.
func (c *Context) Shutdown() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return ErrNotRunning
	}
	w := c.shutdownW
	c.mu.Unlock()

	if _, err := w.Write([]byte{0}); err != nil {
		return err
	}
	<-c.done
	return nil
}

func (c *Context) serviceListener(s *slot, revents int16) {
	if revents&unix.POLLIN == 0 {
		return
	}
	raw, err := s.listener.Accept()
	if err != nil {
		return
	}

	c.mu.Lock()
	n := 0
	for _, sl := range c.slots {
		if sl.kind == SlotConnection {
			n++
		}
	}
	c.mu.Unlock()
	if c.cfg.MaxClients > 0 && n >= c.cfg.MaxClients {
		if c.cfg.Metrics != nil {
			c.cfg.Metrics.ConnectionsRejected.Inc()
		}
		raw.Close()
		return
	}

	tr, err := acceptTransport(raw, c.cfg.TLSConfig, c.cfg.AcceptTimeout)
	if err != nil {
		if c.cfg.Metrics != nil {
			c.cfg.Metrics.HandshakeFailures.Inc()
		}
		c.cfg.Logger.Printf("wsmux: accept handshake: %v", err)
		raw.Close()
		return
	}

	conn := protocol.NewConnection(tr, c.registry[0], c.cfg.Logger)
	c.mu.Lock()
	c.slots = append(c.slots, &slot{kind: SlotConnection, conn: conn})
	c.mu.Unlock()
	if c.cfg.Metrics != nil {
		c.cfg.Metrics.ConnectionsAccepted.Inc()
		c.cfg.Metrics.ConnectionsActive.Set(float64(n + 1))
	}
}

func (c *Context) serviceBroadcastIngress(s *slot, revents int16) {
	if revents&unix.POLLIN == 0 {
		return
	}
	conn, err := s.listener.Accept()
	if err != nil {
		return
	}
	c.mu.Lock()
	c.slots = append(c.slots, &slot{kind: SlotBroadcastWriter, writerConn: conn, protocol: s.protocol})
	c.mu.Unlock()
}

// serviceBroadcastWriter reads one chunk from an accepted
// broadcast-ingress connection and fans it out in-loop. A read error
// or EOF tears down only this writer slot; per the SUPPLEMENTED
// FEATURES resolution of the original's ambiguous teardown order, the
// owning SlotBroadcastIngress listener is never touched.
func (c *Context) serviceBroadcastWriter(s *slot, revents int16) bool {
	if revents&(unix.POLLHUP|unix.POLLERR) != 0 {
		s.writerConn.Close()
		return true
	}
	// Read into the payload region of a padded buffer (spec §4.2 step
	// 3, §6's padded-buffer ABI): PrePadding/PostPadding slack around
	// the payload is reserved for a framing header/trailer a callback
	// may write in place before forwarding.
	const maxPayload = 64 * 1024
	raw := make([]byte, wire.PrePadding+maxPayload+wire.PostPadding)
	n, err := s.writerConn.Read(raw[wire.PrePadding : wire.PrePadding+maxPayload])
	if n > 0 {
		padded, perr := wire.WrapPadded(raw, n)
		if perr == nil {
			s.protocol.BroadcastInLoop(padded.Payload())
		}
	}
	if err != nil {
		s.writerConn.Close()
		return true
	}
	return false
}

func (c *Context) serviceConnection(s *slot, revents int16) bool {
	conn := s.conn
	if revents&(unix.POLLHUP|unix.POLLERR) != 0 {
		conn.Destroy()
		return true
	}
	buf := make([]byte, 64*1024)
	n, err := conn.Transport().Read(buf)
	if err != nil || n == 0 {
		conn.Destroy()
		return true
	}

	closed, err := c.handler.Ingest(conn, buf[:n])
	if err != nil {
		c.cfg.Logger.Printf("wsmux: ingest: %v", err)
	}
	if closed {
		conn.Destroy()
		return true
	}
	return false
}
