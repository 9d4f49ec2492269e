// File: control/metrics.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Prometheus-backed replacement for the teacher's map-based
// MetricsRegistry: every counter/gauge a server needs to report is
// defined up front and typed, instead of keyed by an any-valued map,
// so a scrape target gets real Prometheus metric families.

package control

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every counter and gauge a running server updates.
// Construct with NewMetrics and register the returned *Metrics'
// Registry with an HTTP exporter (see DebugServer).
type Metrics struct {
	Registry *prometheus.Registry

	ConnectionsAccepted prometheus.Counter
	ConnectionsActive   prometheus.Gauge
	ConnectionsRejected prometheus.Counter
	FramesReceived      *prometheus.CounterVec
	BroadcastsSent      *prometheus.CounterVec
	HandshakeFailures   prometheus.Counter
}

// NewMetrics builds and registers the full metric set against a fresh
// registry, namespaced "wsmux".
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		Registry: reg,
		ConnectionsAccepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wsmux", Name: "connections_accepted_total",
			Help: "Total connections accepted by the main listener.",
		}),
		ConnectionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "wsmux", Name: "connections_active",
			Help: "Connections currently tracked in the loop's slot table.",
		}),
		ConnectionsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wsmux", Name: "connections_rejected_total",
			Help: "Connections closed immediately due to MaxClients overload.",
		}),
		FramesReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wsmux", Name: "frames_received_total",
			Help: "WebSocket data frames delivered via the RECEIVE callback, by protocol.",
		}, []string{"protocol"}),
		BroadcastsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wsmux", Name: "broadcasts_sent_total",
			Help: "Broadcast payloads fanned out, by protocol.",
		}, []string{"protocol"}),
		HandshakeFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "wsmux", Name: "handshake_failures_total",
			Help: "Accepted connections that failed the accept-time TLS handshake.",
		}),
	}

	reg.MustRegister(
		m.ConnectionsAccepted,
		m.ConnectionsActive,
		m.ConnectionsRejected,
		m.FramesReceived,
		m.BroadcastsSent,
		m.HandshakeFailures,
	)
	return m
}
