package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fetchpipe_requests_total",
		Help: "Total pipeline executions by endpoint and outcome",
	}, []string{"endpoint", "outcome"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fetchpipe_request_duration_seconds",
		Help:    "Pipeline execution duration in seconds by endpoint",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fetchpipe_retries_total",
		Help: "Total retry attempts by error kind",
	}, []string{"kind"})

	retryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fetchpipe_retry_exhausted_total",
		Help: "Executions that spent their whole retry budget, by error kind",
	}, []string{"kind"})

	sinkEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fetchpipe_events_total",
		Help: "Pipeline events reported through the counters sink",
	}, []string{"event"})
)

// PrometheusSink is the default CountersSink. Events land in the
// fetchpipe_events_total counter; tags are carried for custom sinks and
// not mapped to labels here (Prometheus label sets are fixed).
type PrometheusSink struct{}

// Increment implements CountersSink.
func (PrometheusSink) Increment(name string, _ map[string]string) {
	sinkEventsTotal.WithLabelValues(name).Inc()
}
