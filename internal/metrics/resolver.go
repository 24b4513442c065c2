package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Invocations counts handler invocations by trigger ("lambda", "http", "cli")
	// and whether the invocation was the first in this process.
	Invocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kvsplayback_invocations_total",
		Help: "Total number of resolver invocations by trigger and cold start",
	}, []string{"trigger", "cold_start"})

	// StreamsListed counts streams returned by the prefix-filtered listing call.
	StreamsListed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kvsplayback_streams_listed_total",
		Help: "Total number of streams matched by the name prefix filter",
	})

	// URLsResolved counts playback session URLs handed back to callers.
	URLsResolved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "kvsplayback_urls_resolved_total",
		Help: "Total number of HLS session URLs resolved",
	})

	// ResolveFailures counts failures by stage (list_streams, data_endpoint,
	// session_url) and classified reason.
	ResolveFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "kvsplayback_resolve_failures_total",
		Help: "Total number of resolution failures by stage and reason",
	}, []string{"stage", "reason"})

	// KVSCallDuration tracks latency of each Kinesis Video API call.
	KVSCallDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "kvsplayback_kvs_call_duration_seconds",
		Help:    "Latency of Kinesis Video API calls",
		Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"operation", "result"})
)

// IncInvocation records one handler invocation.
func IncInvocation(trigger string, coldStart bool) {
	Invocations.WithLabelValues(trigger, strconv.FormatBool(coldStart)).Inc()
}

// AddStreamsListed records the number of streams matched by one listing.
func AddStreamsListed(n int) {
	if n > 0 {
		StreamsListed.Add(float64(n))
	}
}

// AddURLsResolved records the number of URLs returned by one invocation.
func AddURLsResolved(n int) {
	if n > 0 {
		URLsResolved.Add(float64(n))
	}
}

// IncResolveFailure records a failed stage.
func IncResolveFailure(stage, reason string) {
	if reason == "" {
		reason = "unknown"
	}
	ResolveFailures.WithLabelValues(stage, reason).Inc()
}

// ObserveKVSCall records the latency and outcome of one API call.
func ObserveKVSCall(operation string, success bool, duration time.Duration) {
	result := "failure"
	if success {
		result = "success"
	}
	KVSCallDuration.WithLabelValues(operation, result).Observe(duration.Seconds())
}
