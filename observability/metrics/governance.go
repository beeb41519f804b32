// Package metrics exposes Prometheus collectors for governance engine and
// daemon activity.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// GovernanceMetrics tracks request outcomes and latency, votes cast, status
// changes, dispatch activity and throttles for the governance engine.
type GovernanceMetrics struct {
	requests       *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	votesCast      *prometheus.CounterVec
	statusChanges  *prometheus.CounterVec
	instructions   *prometheus.CounterVec
	throttles      *prometheus.CounterVec
}

var (
	governanceOnce     sync.Once
	governanceRegistry *GovernanceMetrics
)

// Governance returns the lazily-initialised governance metrics registry.
func Governance() *GovernanceMetrics {
	governanceOnce.Do(func() {
		governanceRegistry = &GovernanceMetrics{
			requests: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "stakegov",
				Subsystem: "engine",
				Name:      "requests_total",
				Help:      "Total governance requests segmented by kind and outcome.",
			}, []string{"kind", "outcome"}),
			requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
				Namespace: "stakegov",
				Subsystem: "engine",
				Name:      "request_duration_seconds",
				Help:      "Latency distribution for governance request handling.",
				Buckets:   prometheus.DefBuckets,
			}, []string{"kind"}),
			votesCast: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "stakegov",
				Subsystem: "engine",
				Name:      "votes_cast_total",
				Help:      "Total votes cast or switched, segmented by election.",
			}, []string{"election"}),
			statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "stakegov",
				Subsystem: "engine",
				Name:      "proposal_status_changes_total",
				Help:      "Total proposal status transitions, segmented by resulting status.",
			}, []string{"status"}),
			instructions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "stakegov",
				Subsystem: "engine",
				Name:      "instructions_processed_total",
				Help:      "Total downstream instructions dispatched, segmented by outcome.",
			}, []string{"outcome"}),
			throttles: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "stakegov",
				Subsystem: "engine",
				Name:      "throttles_total",
				Help:      "Count of requests rejected by rate limiting, segmented by reason.",
			}, []string{"reason"}),
		}
		prometheus.MustRegister(
			governanceRegistry.requests,
			governanceRegistry.requestLatency,
			governanceRegistry.votesCast,
			governanceRegistry.statusChanges,
			governanceRegistry.instructions,
			governanceRegistry.throttles,
		)
	})
	return governanceRegistry
}

// ObserveRequest records the outcome and latency of a request by kind.
func (m *GovernanceMetrics) ObserveRequest(kind string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.requests.WithLabelValues(kind, outcome).Inc()
	m.requestLatency.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordVote increments the vote counter for the given election.
func (m *GovernanceMetrics) RecordVote(election string) {
	if m == nil {
		return
	}
	m.votesCast.WithLabelValues(election).Inc()
}

// RecordStatusChange increments the status-transition counter.
func (m *GovernanceMetrics) RecordStatusChange(status string) {
	if m == nil {
		return
	}
	m.statusChanges.WithLabelValues(status).Inc()
}

// RecordInstruction increments the instruction-dispatch counter.
func (m *GovernanceMetrics) RecordInstruction(err error) {
	if m == nil {
		return
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.instructions.WithLabelValues(outcome).Inc()
}

// RecordThrottle increments the throttle counter for the supplied reason.
func (m *GovernanceMetrics) RecordThrottle(reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unspecified"
	}
	m.throttles.WithLabelValues(reason).Inc()
}
