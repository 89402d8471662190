package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "archive", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "archive", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	Operations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "archive", Name: "operations_total", Help: "Catalog operations by name and outcome."},
		[]string{"operation", "outcome"},
	)
	PersistSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "archive", Name: "persist_seconds", Help: "Time spent writing the collection snapshot.", Buckets: prometheus.DefBuckets},
		[]string{"mirror", "outcome"},
	)
	Documents = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "archive", Name: "documents", Help: "Documents currently in the collection."},
	)
	OnLoan = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "archive", Name: "documents_on_loan", Help: "Documents currently borrowed."},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(Operations)
	reg.MustRegister(PersistSeconds)
	reg.MustRegister(Documents)
	reg.MustRegister(OnLoan)
}

// ObservePersist records one snapshot write.
func ObservePersist(mirror string, took time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	PersistSeconds.WithLabelValues(mirror, outcome).Observe(took.Seconds())
}
