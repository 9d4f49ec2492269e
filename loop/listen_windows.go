//go:build windows
// +build windows

// File: loop/listen_windows.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// NewContext still binds listeners on Windows so construction fails
// fast on a bad address, even though Run itself is unsupported there;
// SO_REUSEADDR has different, looser semantics on Windows so it is
// left at the platform default here rather than ported.

package loop

import (
	"net"

	"github.com/momentics/wsmux/api"
)

var reuseAddrListenConfig = net.ListenConfig{}

// dropPrivileges has no Windows equivalent to the original's
// setgid/setuid pair; a request to actually change ids fails fast
// rather than silently doing nothing.
func dropPrivileges(gid, uid int) error {
	if gid != -1 || uid != -1 {
		return api.ErrNotSupported
	}
	return nil
}
