package transport

import (
	"net"
	"testing"
)

func TestTCPTransportReadWrite(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	accepted := make(chan *TCPTransport, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		accepted <- NewTCPTransport(c.(*net.TCPConn))
	}()

	clientConn, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer clientConn.Close()
	client := NewTCPTransport(clientConn.(*net.TCPConn))

	server := <-accepted
	defer server.Close()

	if _, err := client.Write([]byte("ping")); err != nil {
		t.Fatalf("write: %v", err)
	}
	buf := make([]byte, 4)
	if _, err := server.Read(buf); err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(buf) != "ping" {
		t.Fatalf("got %q, want %q", buf, "ping")
	}

	fd, err := server.RawFD()
	if err != nil {
		t.Fatalf("RawFD: %v", err)
	}
	if fd == 0 {
		t.Error("expected non-zero raw fd")
	}

	if err := server.Shutdown(); err != nil {
		t.Errorf("shutdown: %v", err)
	}
}

func TestTCPDialer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go func() {
		c, err := ln.Accept()
		if err == nil {
			c.Close()
		}
	}()

	tr, err := TCPDialer.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer tr.Close()
}
