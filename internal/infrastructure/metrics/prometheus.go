// Package metrics exposes the service's Prometheus collectors.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "expense_approval"

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	claimsSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claims_submitted_total",
			Help:      "Claims submitted, by status right after submission",
		},
		[]string{"status"},
	)

	claimsUnroutedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claims_unrouted_total",
			Help:      "Claims left in Submitted because the owner has no active rule",
		},
	)

	decisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Approval decisions recorded, by outcome",
		},
		[]string{"outcome"},
	)

	statusTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "claim_status_transitions_total",
			Help:      "Claim status changes",
		},
		[]string{"from", "to"},
	)

	rateLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_lookups_total",
			Help:      "Exchange rate lookups, by result (cache_hit, fetched, failed)",
		},
		[]string{"result"},
	)

	rateLookupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rate_lookup_duration_seconds",
			Help:      "Duration of remote exchange rate fetches",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
	)

	rateDegradedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_degraded_total",
			Help:      "Submissions that fell back to a 1.0 exchange rate",
		},
	)
)

// RecordHTTPRequest records an HTTP request
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, statusClass(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	}
	return "unknown"
}

// RecordClaimSubmitted counts a submission by its resulting status
func RecordClaimSubmitted(status string) {
	claimsSubmittedTotal.WithLabelValues(status).Inc()
}

// RecordClaimUnrouted counts a claim that no rule will pick up
func RecordClaimUnrouted() {
	claimsUnroutedTotal.Inc()
}

// RecordDecision counts a recorded decision
func RecordDecision(outcome string) {
	decisionsTotal.WithLabelValues(outcome).Inc()
}

// RecordStatusTransition counts a claim status change
func RecordStatusTransition(from, to string) {
	statusTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordRateLookup counts a rate lookup by result
func RecordRateLookup(result string) {
	rateLookupsTotal.WithLabelValues(result).Inc()
}

// ObserveRateFetch records the duration of a remote rate fetch
func ObserveRateFetch(d time.Duration) {
	rateLookupDuration.Observe(d.Seconds())
}

// RecordRateDegraded counts a submission that used the fallback rate
func RecordRateDegraded() {
	rateDegradedTotal.Inc()
}

// Handler returns the Prometheus metrics handler
func Handler() http.Handler {
	return promhttp.Handler()
}
