// Package control provides the runtime control plane surrounding a
// wsmux server: hot-reloadable configuration, Prometheus metrics, and
// debug probe introspection, exposed together by DebugServer.
package control
