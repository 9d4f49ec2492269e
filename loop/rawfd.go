// File: loop/rawfd.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package loop

import (
	"net"
	"syscall"
)

// listenerFD extracts a *net.TCPListener's kernel file descriptor via
// SyscallConn, the same mechanism transport.TCPTransport uses for
// accepted connections, so both listeners and connections can be
// multiplexed in the same unix.Poll set.
func listenerFD(ln net.Listener) (uintptr, error) {
	sc, ok := ln.(syscall.Conn)
	if !ok {
		return 0, syscall.EINVAL
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return 0, err
	}
	var fd uintptr
	if err := raw.Control(func(f uintptr) { fd = f }); err != nil {
		return 0, err
	}
	return fd, nil
}

func connFD(conn net.Conn) (uintptr, error) {
	sc, ok := conn.(syscall.Conn)
	if !ok {
		return 0, syscall.EINVAL
	}
	raw, err := sc.SyscallConn()
	if err != nil {
		return 0, err
	}
	var fd uintptr
	if err := raw.Control(func(f uintptr) { fd = f }); err != nil {
		return 0, err
	}
	return fd, nil
}
