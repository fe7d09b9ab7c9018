// Package metrics exposes Prometheus collectors for route guarding and
// authentication checks. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "chat"

type Metrics struct {
	guardDecisions    *prometheus.CounterVec
	authChecks        *prometheus.CounterVec
	authCheckDuration prometheus.Histogram
	authWatchers      prometheus.Gauge
}

// New registers the collectors with reg. Passing a fresh prometheus.NewRegistry
// keeps tests isolated from the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		guardDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guard_decisions_total",
			Help:      "Route guard decisions by visibility class and outcome",
		}, []string{"visibility", "decision"}),

		authChecks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "auth_checks_total",
			Help:      "Session authentication checks by result",
		}, []string{"result"}),

		authCheckDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "auth_check_duration_seconds",
			Help:      "Time taken to resolve a session authentication check",
			Buckets:   prometheus.DefBuckets,
		}),

		authWatchers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "auth_watchers",
			Help:      "Open subscriptions to authentication state changes",
		}),
	}
}

func (m *Metrics) ObserveDecision(visibility, decision string) {
	if m == nil {
		return
	}
	m.guardDecisions.WithLabelValues(visibility, decision).Inc()
}

func (m *Metrics) ObserveAuthCheck(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.authChecks.WithLabelValues(result).Inc()
	m.authCheckDuration.Observe(d.Seconds())
}

func (m *Metrics) WatcherAdded() {
	if m == nil {
		return
	}
	m.authWatchers.Inc()
}

func (m *Metrics) WatcherRemoved() {
	if m == nil {
		return
	}
	m.authWatchers.Dec()
}
