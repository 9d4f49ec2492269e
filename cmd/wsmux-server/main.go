// File: cmd/wsmux-server/main.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// wsmux-server is the standalone binary wrapping the server façade: an
// echo protocol by default, with flags mirroring server.Config.

package main

import (
	"crypto/tls"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/momentics/wsmux/protocol"
	"github.com/momentics/wsmux/server"
	"github.com/momentics/wsmux/wire"
)

var (
	listenAddr  string
	debugAddr   string
	maxClients  int
	enableDebug bool
	certFile    string
	keyFile     string
	dropUID     int
	dropGID     int
)

func main() {
	root := &cobra.Command{
		Use:   "wsmux-server",
		Short: "Run a wsmux WebSocket server core",
	}
	root.AddCommand(newServeCmd())
	root.AddCommand(newVersionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start a server that echoes frames back to the sender",
		RunE:  runServe,
	}
	cmd.Flags().StringVar(&listenAddr, "listen", ":9000", "WebSocket listen address")
	cmd.Flags().StringVar(&debugAddr, "debug-listen", ":9090", "debug/metrics HTTP listen address")
	cmd.Flags().IntVar(&maxClients, "max-clients", 0, "maximum simultaneous connections (0 = unbounded)")
	cmd.Flags().BoolVar(&enableDebug, "debug", true, "enable the /metrics, /debug/config, /debug/probes HTTP server")
	cmd.Flags().StringVar(&certFile, "cert", "", "TLS certificate file; enables TLS together with --key")
	cmd.Flags().StringVar(&keyFile, "key", "", "TLS private key file; enables TLS together with --cert")
	cmd.Flags().IntVar(&dropUID, "uid", -1, "user id to change to once the listen socket is bound (-1 = unchanged)")
	cmd.Flags().IntVar(&dropGID, "gid", -1, "group id to change to once the listen socket is bound (-1 = unchanged)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the wsmux-server version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("wsmux-server (development build)")
		},
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	specs := []protocol.Spec{{
		Name: "echo",
		Callback: func(c *protocol.Connection, reason protocol.CallbackReason, userData []byte, in []byte) {
			if reason != protocol.ReasonReceive {
				return
			}
			frame := &wire.Frame{IsFinal: true, Opcode: wire.OpcodeBinary, PayloadLen: int64(len(in)), Payload: in}
			out, err := wire.EncodeFrame(frame, false)
			if err != nil {
				log.Printf("encode: %v", err)
				return
			}
			if _, err := c.Transport().Write(out); err != nil {
				log.Printf("write: %v", err)
			}
		},
	}}

	opts := []server.Option{
		server.WithListenAddr(listenAddr),
		server.WithMaxClients(maxClients),
	}
	if enableDebug {
		opts = append(opts, server.WithDebugServer(debugAddr))
	}
	if certFile != "" || keyFile != "" {
		cert, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return fmt.Errorf("load TLS keypair: %w", err)
		}
		opts = append(opts, server.WithTLS(&tls.Config{Certificates: []tls.Certificate{cert}}))
	}
	if dropUID != -1 || dropGID != -1 {
		opts = append(opts, server.WithDropPrivileges(dropGID, dropUID))
	}

	srv, err := server.New(specs, opts...)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run() }()
	log.Printf("wsmux-server listening on %s", listenAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Println("shutdown signal received")
		return srv.Shutdown()
	}
}
