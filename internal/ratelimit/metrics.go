package ratelimit

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ChecksTotal counts admission checks.
	// Labels: key (governed key), result (allowed, denied)
	ChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "toolgate",
			Subsystem: "ratelimit",
			Name:      "checks_total",
			Help:      "Total number of rate limit admission checks",
		},
		[]string{"key", "result"},
	)

	// WindowSize tracks the number of calls retained in a key's window
	// after the most recent check.
	WindowSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "toolgate",
			Subsystem: "ratelimit",
			Name:      "window_size",
			Help:      "Calls retained in the sliding window after the last check",
		},
		[]string{"key"},
	)

	// BackoffSeconds observes how long throttled callers were delayed.
	BackoffSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "toolgate",
			Subsystem: "ratelimit",
			Name:      "backoff_seconds",
			Help:      "Back-off delay imposed on throttled calls in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"key"},
	)

	// CancelledTotal counts throttled calls abandoned during back-off.
	CancelledTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "toolgate",
			Subsystem: "ratelimit",
			Name:      "cancelled_total",
			Help:      "Throttled calls whose context ended during back-off",
		},
		[]string{"key"},
	)
)

func recordCheck(key string, allowed bool, size int) {
	result := "allowed"
	if !allowed {
		result = "denied"
	}
	ChecksTotal.WithLabelValues(key, result).Inc()
	WindowSize.WithLabelValues(key).Set(float64(size))
}

func recordBackoff(key string, wait time.Duration) {
	BackoffSeconds.WithLabelValues(key).Observe(wait.Seconds())
}

func recordCancelled(key string) {
	CancelledTotal.WithLabelValues(key).Inc()
}
