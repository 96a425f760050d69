// internal/submit/metrics.go
package submit

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics - счётчики отправок. Все методы безопасны для nil.
type Metrics struct {
	submissions       *prometheus.CounterVec
	attempts          prometheus.Counter
	finalityHits      *prometheus.CounterVec
	durationHistogram prometheus.Histogram
	lastFee           prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg when it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "solana_relay_submissions_total",
			Help: "Total number of finished submissions by outcome",
		}, []string{"outcome"}),
		attempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "solana_relay_attempts_total",
			Help: "Total number of submission attempts",
		}),
		finalityHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "solana_relay_finality_hits_total",
			Help: "Transactions located by ledger lookup instead of confirmation",
		}, []string{"stage"}),
		durationHistogram: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "solana_relay_submission_duration_seconds",
			Help:    "Submission duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
		}),
		lastFee: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "solana_relay_last_priority_fee_micro_lamports",
			Help: "Priority fee of the last built transaction",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.submissions, m.attempts, m.finalityHits, m.durationHistogram, m.lastFee)
	}
	return m
}

func (m *Metrics) trackSubmission(outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
	m.durationHistogram.Observe(time.Since(start).Seconds())
}

func (m *Metrics) trackAttempt() {
	if m == nil {
		return
	}
	m.attempts.Inc()
}

func (m *Metrics) trackFinalityHit(stage string) {
	if m == nil {
		return
	}
	m.finalityHits.WithLabelValues(stage).Inc()
}

func (m *Metrics) trackFee(microLamports uint64) {
	if m == nil {
		return
	}
	m.lastFee.Set(float64(microLamports))
}
