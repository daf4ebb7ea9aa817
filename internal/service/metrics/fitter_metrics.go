package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	FitterLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pricecast",
			Subsystem: "remote_fitter",
			Name:      "latency_seconds",
			Help:      "Latency of remote model-fitting endpoints",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"endpoint"},
	)

	FitterErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pricecast",
			Subsystem: "remote_fitter",
			Name:      "errors_total",
			Help:      "Errors by remote model-fitting endpoint",
		},
		[]string{"endpoint"},
	)

	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "pricecast",
			Subsystem: "remote_fitter",
			Name:      "breaker_state",
			Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)
)

func Register() {
	once.Do(func() {
		prometheus.MustRegister(FitterLatency, FitterErrors, BreakerState)
	})
}
