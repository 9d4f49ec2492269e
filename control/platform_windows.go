//go:build windows
// +build windows

// File: control/platform_windows.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// The loop package's poll(2)-based event loop is Linux/unix-only (spec
// §9); this file exists so the control package still builds on
// Windows for a caller that only needs metrics/config/debug, not the
// server itself.

package control

import "runtime"

// RegisterPlatformProbes adds Windows-specific debug probes.
func RegisterPlatformProbes(dp *DebugProbes) {
	dp.RegisterProbe("platform.cpus", func() any { return runtime.NumCPU() })
	dp.RegisterProbe("platform.os", func() any { return "windows" })
}
