package loop

import (
	"bufio"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/momentics/wsmux/protocol"
	"github.com/momentics/wsmux/wire"
)

func startTestContext(t *testing.T, specs []protocol.Spec) (*Context, []*protocol.Protocol) {
	t.Helper()
	registry := protocol.NewRegistry(specs)
	handler := protocol.NewDefaultFrameHandler(registry)

	cfg := DefaultConfig()
	cfg.ListenAddr = "127.0.0.1:0"

	ctx, err := NewContext(cfg, registry, handler)
	if err != nil {
		t.Fatalf("new context: %v", err)
	}

	go func() {
		if err := ctx.Run(); err != nil {
			t.Logf("run exited: %v", err)
		}
	}()
	t.Cleanup(func() { ctx.Shutdown() })

	return ctx, registry
}

func mainListenerAddr(t *testing.T, ctx *Context) string {
	t.Helper()
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	for _, s := range ctx.slots {
		if s.kind == SlotListener {
			return s.listener.Addr().String()
		}
	}
	t.Fatal("no main listener slot found")
	return ""
}

func TestLoopEchoRoundTrip(t *testing.T) {
	received := make(chan string, 1)
	specs := []protocol.Spec{{
		Name: "echo",
		Callback: func(c *protocol.Connection, reason protocol.CallbackReason, userData []byte, in []byte) {
			if reason == protocol.ReasonReceive {
				received <- string(in)
			}
		},
	}}
	ctx, _ := startTestContext(t, specs)

	// Give the loop goroutine a moment to enter its first Poll call.
	time.Sleep(20 * time.Millisecond)
	addr := mainListenerAddr(t, ctx)

	client, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	req := "GET / HTTP/1.1\r\n" +
		"Host: localhost\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n" +
		"Sec-WebSocket-Version: 13\r\n\r\n"
	if _, err := client.Write([]byte(req)); err != nil {
		t.Fatalf("write handshake: %v", err)
	}

	br := bufio.NewReader(client)
	resp, err := http.ReadResponse(br, nil)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	if resp.StatusCode != 101 {
		t.Fatalf("status = %d, want 101", resp.StatusCode)
	}

	frame := &wire.Frame{IsFinal: true, Opcode: wire.OpcodeText, PayloadLen: 5, Payload: []byte("hello")}
	encoded, err := wire.EncodeFrame(frame, true)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := client.Write(encoded); err != nil {
		t.Fatalf("write frame: %v", err)
	}

	select {
	case got := <-received:
		if got != "hello" {
			t.Fatalf("received %q, want %q", got, "hello")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for RECEIVE callback")
	}
}

func TestLoopBroadcastCrossContext(t *testing.T) {
	established := make(chan struct{}, 1)
	broadcasts := make(chan string, 1)
	specs := []protocol.Spec{{
		Name: "chat",
		Callback: func(c *protocol.Connection, reason protocol.CallbackReason, userData []byte, in []byte) {
			switch reason {
			case protocol.ReasonEstablished:
				established <- struct{}{}
			case protocol.ReasonBroadcast:
				broadcasts <- string(in)
			}
		},
	}}
	ctx, registry := startTestContext(t, specs)

	time.Sleep(20 * time.Millisecond)
	addr := mainListenerAddr(t, ctx)

	client, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer client.Close()

	req := "GET / HTTP/1.1\r\n" +
		"Host: localhost\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n" +
		"Sec-WebSocket-Version: 13\r\n\r\n"
	if _, err := client.Write([]byte(req)); err != nil {
		t.Fatalf("write handshake: %v", err)
	}
	br := bufio.NewReader(client)
	if _, err := http.ReadResponse(br, nil); err != nil {
		t.Fatalf("read response: %v", err)
	}

	select {
	case <-established:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for ESTABLISHED callback")
	}

	if err := registry[0].Broadcast([]byte("hi all")); err != nil {
		t.Fatalf("broadcast: %v", err)
	}

	select {
	case got := <-broadcasts:
		if got != "hi all" {
			t.Fatalf("broadcast payload = %q, want %q", got, "hi all")
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for BROADCAST callback")
	}
}
