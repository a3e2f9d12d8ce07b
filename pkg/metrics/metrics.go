package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the wallet's prometheus collectors
type Metrics struct {
	transfers        *prometheus.CounterVec
	transferDuration prometheus.Histogram
	balanceFetches   *prometheus.CounterVec
	registry         *prometheus.Registry
}

// New creates the collectors and registers them on a dedicated registry
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.transfers = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "evm_wallet",
		Name:      "transfers_total",
		Help:      "Transfer attempts by outcome",
	}, []string{"network", "outcome"})
	m.transferDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "evm_wallet",
		Name:      "transfer_duration_seconds",
		Help:      "Time from submission until the transfer settled",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300},
	})
	m.balanceFetches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "evm_wallet",
		Name:      "balance_fetches_total",
		Help:      "Balance queries by status",
	}, []string{"network", "status"})

	m.registry.MustRegister(m.transfers, m.transferDuration, m.balanceFetches)

	return m
}

// ObserveTransfer records the outcome of a settled transfer attempt
func (m *Metrics) ObserveTransfer(network, outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.transfers.WithLabelValues(network, outcome).Inc()
	m.transferDuration.Observe(took.Seconds())
}

// ObserveBalanceFetch records a balance query result
func (m *Metrics) ObserveBalanceFetch(network string, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.balanceFetches.WithLabelValues(network, status).Inc()
}

// TransferCount returns the counter for a network and outcome
func (m *Metrics) TransferCount(network, outcome string) prometheus.Counter {
	return m.transfers.WithLabelValues(network, outcome)
}

// BalanceFetchCount returns the counter for a network and status
func (m *Metrics) BalanceFetchCount(network, status string) prometheus.Counter {
	return m.balanceFetches.WithLabelValues(network, status)
}

// Handler serves the registry in the prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
