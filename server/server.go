// File: server/server.go
// Package server is the high-level façade embedders use instead of
// wiring loop, protocol, and control together by hand. Grounded on
// server/types.go's Config/Server split and facade/hioload.go's
// construct-then-Start lifecycle.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"crypto/tls"
	"log"
	"net/http"
	"time"

	"github.com/momentics/wsmux/api"
	"github.com/momentics/wsmux/control"
	"github.com/momentics/wsmux/loop"
	"github.com/momentics/wsmux/protocol"
)

// Config holds every server-side configuration parameter a caller may
// want to override through an Option.
type Config struct {
	ListenAddr      string
	MaxClients      int
	TLSConfig       *tls.Config
	AcceptTimeout   time.Duration
	ShutdownTimeout time.Duration
	Logger          *log.Logger
	EnableDebug     bool
	DebugAddr       string
	DropGID         int
	DropUID         int
}

// DefaultConfig returns the façade's zero-configuration defaults.
func DefaultConfig() *Config {
	return &Config{
		ListenAddr:      ":9000",
		MaxClients:      0,
		AcceptTimeout:   10 * time.Second,
		ShutdownTimeout: 30 * time.Second,
		Logger:          log.Default(),
		EnableDebug:     false,
		DebugAddr:       ":9090",
		DropGID:         -1,
		DropUID:         -1,
	}
}

// Option customizes a Server before it is wired up.
type Option func(*Server)

// WithListenAddr overrides the main listener's bind address.
func WithListenAddr(addr string) Option {
	return func(s *Server) { s.cfg.ListenAddr = addr }
}

// WithTLS installs a TLS server config for the main listener.
func WithTLS(cfg *tls.Config) Option {
	return func(s *Server) { s.cfg.TLSConfig = cfg }
}

// WithMaxClients caps simultaneous connections (spec §4.2 overload
// behavior); zero means unbounded.
func WithMaxClients(n int) Option {
	return func(s *Server) { s.cfg.MaxClients = n }
}

// WithLogger overrides the default logger used by the loop and by
// connection teardown diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.cfg.Logger = l }
}

// WithDebugServer enables the metrics/config/probes HTTP server and
// sets its bind address.
func WithDebugServer(addr string) Option {
	return func(s *Server) {
		s.cfg.EnableDebug = true
		s.cfg.DebugAddr = addr
	}
}

// WithDropPrivileges changes the process's group/user id once the
// listen sockets are bound, letting a server bind a privileged port
// and then drop root. Pass -1 for either id to leave it unchanged.
func WithDropPrivileges(gid, uid int) Option {
	return func(s *Server) {
		s.cfg.DropGID = gid
		s.cfg.DropUID = uid
	}
}

// Server wires a protocol registry and frame handler into a running
// event loop, plus the optional control-plane debug server.
type Server struct {
	cfg      *Config
	ctx      *loop.Context
	registry []*protocol.Protocol
	metrics  *control.Metrics
	config   *control.ConfigStore
	probes   *control.DebugProbes
	debug    *control.DebugServer
}

// New builds a Server from a set of protocol specs and options. The
// first spec in specs is both the upgrade negotiation's default and
// the HTTP-fallback recipient (spec §4.4, §6).
func New(specs []protocol.Spec, opts ...Option) (*Server, error) {
	cfg := DefaultConfig()
	s := &Server{cfg: cfg}
	for _, opt := range opts {
		opt(s)
	}

	registry := protocol.NewRegistry(specs)
	s.registry = registry
	handler := protocol.NewDefaultFrameHandler(registry)

	if cfg.EnableDebug {
		s.metrics = control.NewMetrics()
		s.config = control.NewConfigStore()
		s.probes = control.NewDebugProbes()
		control.RegisterPlatformProbes(s.probes)
		handler.SetMetrics(s.metrics)
		for _, p := range registry {
			p.BindMetrics(s.metrics)
		}
	}

	loopCfg := &loop.Config{
		ListenAddr:    cfg.ListenAddr,
		MaxClients:    cfg.MaxClients,
		TLSConfig:     cfg.TLSConfig,
		AcceptTimeout: cfg.AcceptTimeout,
		Logger:        cfg.Logger,
		Metrics:       s.metrics,
		DropGID:       cfg.DropGID,
		DropUID:       cfg.DropUID,
	}
	ctx, err := loop.NewContext(loopCfg, registry, handler)
	if err != nil {
		return nil, err
	}
	s.ctx = ctx

	if cfg.EnableDebug {
		s.probes.RegisterProbe("server.active_connections", func() any {
			return s.ctx.ActiveConnections()
		})
		s.debug = control.NewDebugServer(s.metrics, s.config, s.probes)
	}

	return s, nil
}

// Run blocks servicing the event loop (and, if enabled, the debug HTTP
// server) until Shutdown is called.
func (s *Server) Run() error {
	if s.debug != nil {
		go func() {
			srv := &http.Server{Addr: s.cfg.DebugAddr, Handler: s.debug.Handler()}
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				s.cfg.Logger.Printf("wsmux: debug server: %v", err)
			}
		}()
	}
	return s.ctx.Run()
}

// Shutdown stops the event loop and waits for it to finish tearing
// down every slot.
func (s *Server) Shutdown() error {
	return s.ctx.Shutdown()
}

// Metrics returns the façade's Prometheus metrics, or nil if the debug
// server was never enabled.
func (s *Server) Metrics() *control.Metrics { return s.metrics }

// ConfigStore returns the façade's hot-reloadable config store, or nil
// if the debug server was never enabled.
func (s *Server) ConfigStore() *control.ConfigStore { return s.config }

// ListenAddr returns the main listener's bound address.
func (s *Server) ListenAddr() string { return s.ctx.ListenAddr() }

// GetProtocol returns the registered protocol with the given name.
func (s *Server) GetProtocol(name string) (*protocol.Protocol, error) {
	for _, p := range s.registry {
		if p.Name == name {
			return p, nil
		}
	}
	return nil, api.ErrProtocolNotFound
}

// Broadcast dials the named protocol's broadcast-ingress listener and
// writes payload, to be picked up and fanned out by the event loop on
// its next pass (spec §4.5 cross-context broadcast).
func (s *Server) Broadcast(protocolName string, payload []byte) error {
	p, err := s.GetProtocol(protocolName)
	if err != nil {
		return err
	}
	return p.Broadcast(payload)
}
