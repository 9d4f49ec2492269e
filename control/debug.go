// File: control/debug.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// DebugServer exposes a server's metrics, config snapshot, and
// registered debug probes over plain HTTP. Grounded on the teacher's
// control/debug.go DebugProbes registry, routed with chi the way the
// rest of the pack's HTTP-facing examples do instead of bare
// http.ServeMux.

package control

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DebugProbes holds registered probe functions, each returning an
// arbitrary JSON-serializable snapshot of internal state.
type DebugProbes struct {
	probes map[string]func() any
}

// NewDebugProbes creates an empty probe registry.
func NewDebugProbes() *DebugProbes {
	return &DebugProbes{probes: make(map[string]func() any)}
}

// RegisterProbe inserts a named debug hook.
func (dp *DebugProbes) RegisterProbe(name string, fn func() any) {
	dp.probes[name] = fn
}

// DumpState runs every registered probe and collects its output.
func (dp *DebugProbes) DumpState() map[string]any {
	out := make(map[string]any, len(dp.probes))
	for k, fn := range dp.probes {
		out[k] = fn()
	}
	return out
}

// DebugServer mounts /metrics (Prometheus exposition), /debug/config
// (a ConfigStore snapshot), and /debug/probes (a DebugProbes dump) on
// one chi.Router, separate from the application's own WebSocket
// listener.
type DebugServer struct {
	router *chi.Mux
}

// NewDebugServer wires metrics, cfg, and probes into their respective
// routes. Any of the three may be nil to omit that route.
func NewDebugServer(metrics *Metrics, cfg *ConfigStore, probes *DebugProbes) *DebugServer {
	r := chi.NewRouter()

	if metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	}
	if cfg != nil {
		r.Get("/debug/config", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, cfg.Snapshot())
		})
	}
	if probes != nil {
		r.Get("/debug/probes", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, probes.DumpState())
		})
	}

	return &DebugServer{router: r}
}

// Handler returns the server's http.Handler, e.g. for http.Server.
func (d *DebugServer) Handler() http.Handler { return d.router }

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
