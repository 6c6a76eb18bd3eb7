package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Classification outcomes: accepted, rejected, failed, skipped
	ClassificationCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "email_classifications_total",
			Help: "Total number of email classifications by outcome",
		},
		[]string{"outcome", "label"},
	)

	MailProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mail_provider_requests_total",
			Help: "Total number of mail provider calls",
		},
		[]string{"provider", "operation", "status"},
	)

	LLMCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llm_call_duration_seconds",
			Help:    "Generation model call duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		},
		[]string{"provider", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15), // 1ms to ~16s
		},
		[]string{"method", "path", "status"},
	)
)

func RecordClassification(outcome, label string) {
	ClassificationCount.WithLabelValues(outcome, label).Inc()
}

func RecordMailProviderRequest(provider, operation string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	MailProviderRequests.WithLabelValues(provider, operation, status).Inc()
}

func RecordLLMCall(provider string, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	LLMCallDuration.WithLabelValues(provider, status).Observe(duration.Seconds())
}

func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}
