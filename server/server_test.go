// File: server/server_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"net"
	"testing"
	"time"

	"github.com/momentics/wsmux/protocol"
)

func TestNewAndShutdown(t *testing.T) {
	specs := []protocol.Spec{{Name: "echo"}}
	srv, err := New(specs, func(s *Server) { s.cfg.ListenAddr = "127.0.0.1:0" })
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- srv.Run() }()
	time.Sleep(20 * time.Millisecond)

	if srv.ListenAddr() == "" {
		t.Fatal("expected a bound listen address")
	}

	if err := srv.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Shutdown")
	}
}

func TestGetProtocolUnknown(t *testing.T) {
	specs := []protocol.Spec{{Name: "echo"}}
	srv, err := New(specs, func(s *Server) { s.cfg.ListenAddr = "127.0.0.1:0" })
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer srv.Shutdown()
	go srv.Run()
	time.Sleep(20 * time.Millisecond)

	if _, err := srv.GetProtocol("nope"); err == nil {
		t.Fatal("expected an error for an unknown protocol name")
	}
}

func TestWithDebugServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve debug addr: %v", err)
	}
	debugAddr := ln.Addr().String()
	ln.Close()

	specs := []protocol.Spec{{Name: "echo"}}
	srv, err := New(specs,
		func(s *Server) { s.cfg.ListenAddr = "127.0.0.1:0" },
		WithDebugServer(debugAddr),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer srv.Shutdown()

	if srv.Metrics() == nil {
		t.Fatal("expected metrics to be initialized when debug server is enabled")
	}
	if srv.ConfigStore() == nil {
		t.Fatal("expected a config store to be initialized when debug server is enabled")
	}
}
