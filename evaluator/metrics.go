package evaluator

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type evalMetrics struct {
	evaluations  *prometheus.CounterVec
	probeLatency *prometheus.HistogramVec
}

func newEvalMetrics(stats prometheus.Registerer) *evalMetrics {
	return &evalMetrics{
		evaluations: promauto.With(stats).NewCounterVec(prometheus.CounterOpts{
			Name: "ev_evaluations_total",
			Help: "Number of completed EV evaluations, by status and reason",
		}, []string{"status", "reason"}),
		probeLatency: promauto.With(stats).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ev_probe_latency_seconds",
			Help:    "Time taken to fetch a leaf certificate, by outcome",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 3, 5, 8},
		}, []string{"outcome"}),
	}
}
