package http

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the wallet auth counters. A nil *Metrics records nothing.
type Metrics struct {
	registry      *prometheus.Registry
	challenges    *prometheus.CounterVec
	verifications *prometheus.CounterVec
	limited       *prometheus.CounterVec
}

// NewMetrics registers the walletgate collectors on a fresh registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		challenges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "walletgate",
			Name:      "challenges_issued_total",
			Help:      "Wallet challenges issued, by wallet type.",
		}, []string{"wallet_type"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "walletgate",
			Name:      "verifications_total",
			Help:      "Wallet proof submissions, by flow and outcome code.",
		}, []string{"flow", "wallet_type", "outcome"}),
		limited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "walletgate",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter, by bucket.",
		}, []string{"bucket"}),
	}
	m.registry.MustRegister(
		m.challenges,
		m.verifications,
		m.limited,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) challengeIssued(walletType string) {
	if m == nil {
		return
	}
	m.challenges.WithLabelValues(walletType).Inc()
}

func (m *Metrics) verification(flow, walletType, outcome string) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(flow, walletType, outcome).Inc()
}

func (m *Metrics) rateLimited(bucket string) {
	if m == nil {
		return
	}
	m.limited.WithLabelValues(bucket).Inc()
}
