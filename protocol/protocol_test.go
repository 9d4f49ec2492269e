package protocol

import (
	"net"
	"testing"
	"time"
)

type fakeRegistrar struct {
	conns []*Connection
}

func (f *fakeRegistrar) WalkEstablished(protocolIndex int, fn func(*Connection)) {
	for _, c := range f.conns {
		if c.State() == StateEstablished && c.Protocol() != nil && c.Protocol().Index == protocolIndex {
			fn(c)
		}
	}
}

func TestBroadcastInLoop(t *testing.T) {
	var got []string
	specs := []Spec{{
		Name: "chat",
		Callback: func(c *Connection, reason CallbackReason, userData []byte, in []byte) {
			if reason == ReasonBroadcast {
				got = append(got, string(in))
			}
		},
	}}
	registry := NewRegistry(specs)

	srv, client := pipeTransports()
	defer client.Close()
	defer srv.Close()

	conn := NewConnection(srv, registry[0], nil)
	conn.establish(registry[0])

	reg := &fakeRegistrar{conns: []*Connection{conn}}
	registry[0].BindRegistrar(reg)

	registry[0].BroadcastInLoop([]byte("hi"))

	if len(got) != 1 || got[0] != "hi" {
		t.Fatalf("got %v, want [hi]", got)
	}
}

func TestBroadcastWithoutIngressFails(t *testing.T) {
	registry := NewRegistry([]Spec{{Name: "chat"}})
	if err := registry[0].Broadcast([]byte("x")); err != ErrNoIngress {
		t.Fatalf("expected ErrNoIngress, got %v", err)
	}
}

func TestBroadcastDialsIngress(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	received := make(chan []byte, 1)
	go func() {
		c, err := ln.Accept()
		if err != nil {
			return
		}
		defer c.Close()
		buf := make([]byte, 64)
		n, _ := c.Read(buf)
		received <- buf[:n]
	}()

	registry := NewRegistry([]Spec{{Name: "chat"}})
	registry[0].BindIngress(ln.Addr().String())

	if err := registry[0].Broadcast([]byte("payload")); err != nil {
		t.Fatalf("broadcast: %v", err)
	}
	defer registry[0].CloseWriter()

	select {
	case b := <-received:
		if string(b) != "payload" {
			t.Fatalf("got %q, want %q", b, "payload")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for broadcast write")
	}
}
