//go:build !windows
// +build !windows

// File: loop/listen_unix.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// SO_REUSEADDR setup, grounded on original_source/lib/libwebsockets.c's
// setsockopt call before bind: a restarted server can rebind over a
// socket still in TIME_WAIT instead of failing to start.

package loop

import (
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

var reuseAddrListenConfig = net.ListenConfig{
	Control: func(network, address string, c syscall.RawConn) error {
		var sockErr error
		ctrlErr := c.Control(func(fd uintptr) {
			sockErr = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
		})
		if ctrlErr != nil {
			return ctrlErr
		}
		return sockErr
	},
}

// dropPrivileges changes the process's group and user id after the
// listen sockets are bound, matching the original's "change to after
// setting listen socket" ordering (gid, then uid). A value of -1 for
// either leaves that id unchanged.
func dropPrivileges(gid, uid int) error {
	if gid != -1 {
		if err := unix.Setgid(gid); err != nil {
			return err
		}
	}
	if uid != -1 {
		if err := unix.Setuid(uid); err != nil {
			return err
		}
	}
	return nil
}
