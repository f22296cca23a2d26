// Package metrics exposes pipeline counters on a Prometheus endpoint.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "screener_ticks_total", Help: "Count of market ticks processed by the decision loop"},
		[]string{"symbol"},
	)
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "screener_signals_total", Help: "Signals emitted"},
		[]string{"symbol", "action"},
	)
	RegimeTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "screener_regime_transitions_total", Help: "Regime state changes"},
		[]string{"symbol", "to"},
	)
	DroppedWritesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "screener_dropped_writes_total", Help: "Ticks dropped by the persistence writer"},
		[]string{"symbol"},
	)
	DroppedTicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "screener_dropped_ticks_total", Help: "Ticks dropped by the feed queue overflow policy"},
		[]string{"symbol"},
	)
	FeedReconnectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "screener_feed_reconnects_total", Help: "Feed reconnect attempts"},
		[]string{"symbol"},
	)
)

func init() {
	prometheus.MustRegister(
		TicksTotal,
		SignalsTotal,
		RegimeTransitionsTotal,
		DroppedWritesTotal,
		DroppedTicksTotal,
		FeedReconnectsTotal,
	)
}

// Serve starts the /metrics endpoint in the background.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
