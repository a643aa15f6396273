package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CyclesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "pairsbot_cycles_total", Help: "Completed evaluation cycles"},
	)
	CycleDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "pairsbot_cycle_duration_seconds", Help: "Wall time of one cycle across all pairs", Buckets: prometheus.DefBuckets},
	)
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pairsbot_decisions_total", Help: "Pair decisions by outcome"},
		[]string{"pair", "decision"},
	)
	OrdersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pairsbot_orders_total", Help: "Orders submitted"},
		[]string{"symbol", "side", "outcome"},
	)
	FetchFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pairsbot_fetch_failures_total", Help: "Failed price history fetches"},
		[]string{"symbol"},
	)
	OpenPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "pairsbot_open_positions", Help: "Pairs currently holding a position"},
	)
)

func init() {
	prometheus.MustRegister(CyclesTotal, CycleDuration, DecisionsTotal, OrdersTotal, FetchFailuresTotal, OpenPositions)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
