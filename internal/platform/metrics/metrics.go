package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the claims engine.
type Metrics struct {
	ClaimsReceived        prometheus.Counter
	NormalizationFailures prometheus.Counter
	VerdictsByState       *prometheus.CounterVec
	FindingsBySeverity    *prometheus.CounterVec
	CheckDuration         *prometheus.HistogramVec
	SupervisorDecisions   *prometheus.CounterVec
	PostingFailures       prometheus.Counter
	AggregateRetries      prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		ClaimsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bordero_claims_received_total",
			Help: "Total number of claim submissions accepted for processing",
		}),
		NormalizationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bordero_normalization_failures_total",
			Help: "Total number of submissions rejected during normalization",
		}),
		VerdictsByState: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bordero_verdicts_total",
			Help: "Verdicts reached, by resulting state",
		}, []string{"state"}),
		FindingsBySeverity: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bordero_findings_total",
			Help: "Check findings produced, by check and severity",
		}, []string{"check", "severity"}),
		CheckDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bordero_check_duration_seconds",
			Help:    "Latency of individual validation checks",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"check"}),
		SupervisorDecisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bordero_supervisor_decisions_total",
			Help: "Supervisor decisions recorded, by outcome",
		}, []string{"outcome"}),
		PostingFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bordero_posting_failures_total",
			Help: "Total number of failed posting attempts to the downstream ledger",
		}),
		AggregateRetries: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bordero_aggregate_retries_total",
			Help: "Total number of aggregate apply retries due to version conflicts",
		}),
	}
}

// ObserveCheck records one check execution.
func (m *Metrics) ObserveCheck(check string, d time.Duration) {
	m.CheckDuration.WithLabelValues(check).Observe(d.Seconds())
}
