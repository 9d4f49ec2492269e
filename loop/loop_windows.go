//go:build windows
// +build windows

// File: loop/loop_windows.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The event loop is built on golang.org/x/sys/unix.Poll and raw fd
// polling (spec §9's literal poll(2) design); Windows has no poll(2)
// and IOCP is out of scope for this core. NewContext still binds the
// listeners so an embedder gets a clean error at construction rather
// than at first Run.

package loop

import "github.com/momentics/wsmux/api"

// Run always returns api.ErrNotSupported on Windows.
func (c *Context) Run() error { return api.ErrNotSupported }

// Shutdown always returns api.ErrNotSupported on Windows.
func (c *Context) Shutdown() error { return api.ErrNotSupported }
