package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingSubmitted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "frizerino_widget",
			Name:      "booking_submitted_total",
			Help:      "Count of booking submissions by outcome.",
		},
		[]string{"outcome"},
	)

	apiRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "frizerino_widget",
			Name:      "api_requests_total",
			Help:      "Count of remote API calls by operation and result.",
		},
		[]string{"operation", "result"},
	)

	apiRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "frizerino_widget",
			Name:      "api_retries_total",
			Help:      "Count of automatic retries of remote API calls.",
		},
	)

	staleDiscarded = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "frizerino_widget",
			Name:      "stale_responses_discarded_total",
			Help:      "Count of late availability responses dropped by race guards.",
		},
		[]string{"kind"},
	)

	sessionsStarted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "frizerino_widget",
			Name:      "sessions_started_total",
			Help:      "Count of booking flow sessions started.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingSubmitted, apiRequests, apiRetries, staleDiscarded, sessionsStarted)
	})
}

func IncBookingSubmitted(outcome string) {
	bookingSubmitted.WithLabelValues(outcome).Inc()
}

func IncAPIRequest(operation, result string) {
	apiRequests.WithLabelValues(operation, result).Inc()
}

func IncAPIRetry() {
	apiRetries.Inc()
}

func IncStaleDiscarded(kind string) {
	staleDiscarded.WithLabelValues(kind).Inc()
}

func IncSessionStarted() {
	sessionsStarted.Inc()
}
