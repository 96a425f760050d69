// internal/utils/metrics/rpc.go
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// RPC записывает задержку и ошибки RPC-запросов по методам. Безопасен для nil.
type RPC struct {
	latency *prometheus.HistogramVec
	errors  *prometheus.CounterVec
}

// NewRPC создает метрики RPC и регистрирует их в reg, если он задан.
func NewRPC(reg prometheus.Registerer) *RPC {
	m := &RPC{
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "solana_relay_rpc_latency_seconds",
			Help:    "RPC request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "solana_relay_rpc_errors_total",
			Help: "Total number of failed RPC requests",
		}, []string{"method"}),
	}
	if reg != nil {
		reg.MustRegister(m.latency, m.errors)
	}
	return m
}

// RecordRPCLatency записывает метрики RPC-запроса
func (m *RPC) RecordRPCLatency(method string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.latency.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		m.errors.WithLabelValues(method).Inc()
	}
}
