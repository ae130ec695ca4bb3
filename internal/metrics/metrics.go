// Package metrics holds Prometheus instruments for the send/retry path.  All
// collectors are registered with the global registry.  A CLI process lives
// for one command, so instead of serving /metrics the registry is written
// to a node-exporter textfile when a path is configured.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RequestsRecordedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "apibot_requests_recorded_total",
			Help: "Cumulative number of request rows written before dispatch.",
		})

	ResponsesRecordedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apibot_responses_recorded_total",
			Help: "Cumulative number of response rows written, by operation.",
		}, []string{"op"})

	TransportFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "apibot_transport_failures_total",
			Help: "Cumulative number of dispatches that got no response, by operation.",
		}, []string{"op"})

	DispatchSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "apibot_dispatch_seconds",
			Help:    "Wall time from dispatch to fully drained response body.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"})
)

func init() {
	prometheus.MustRegister(
		RequestsRecordedTotal,
		ResponsesRecordedTotal,
		TransportFailuresTotal,
		DispatchSeconds,
	)
}

// WriteTextfile dumps the default registry to path.  An empty path is a
// no-op.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
