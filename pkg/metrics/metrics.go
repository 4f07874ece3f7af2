// Package metrics exposes the relayer's operational counters and gauges
// over Prometheus's client_golang, served by promhttp on the metrics
// listen address.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry bundles every metric the supervisor, scanner, and submitter
// update during a run.
type Registry struct {
	TicksTotal          prometheus.Counter
	EventsScannedTotal  prometheus.Counter
	ReleasesTotal       *prometheus.CounterVec
	CheckpointHeight    prometheus.Gauge
	SourceHeadHeight    prometheus.Gauge
	ReleaseDurationSecs prometheus.Histogram
}

// New registers every metric against its own prometheus.Registry so
// multiple Registry instances (e.g. in tests) never collide on the
// default global registry.
func New() *Registry {
	reg := prometheus.NewRegistry()
	return NewWithRegisterer(reg)
}

// NewWithRegisterer registers metrics against a caller-supplied registerer,
// used in main with prometheus.DefaultRegisterer so promhttp.Handler()
// serves these metrics.
func NewWithRegisterer(reg prometheus.Registerer) *Registry {
	factory := promauto.With(reg)
	return &Registry{
		TicksTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_relayer_ticks_total",
			Help: "Total number of supervisor loop ticks.",
		}),
		EventsScannedTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "bridge_relayer_events_scanned_total",
			Help: "Total number of TokensLocked events decoded by the scanner.",
		}),
		ReleasesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_relayer_releases_total",
			Help: "Total number of release submissions, by outcome class.",
		}, []string{"class"}),
		CheckpointHeight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bridge_relayer_checkpoint_height",
			Help: "Last source block height persisted to the checkpoint store.",
		}),
		SourceHeadHeight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bridge_relayer_source_head_height",
			Help: "Most recently observed source chain head height.",
		}),
		ReleaseDurationSecs: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "bridge_relayer_release_duration_seconds",
			Help:    "Time spent signing, submitting, and confirming one release.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// ObserveRelease records the outcome class of one submission.
func (r *Registry) ObserveRelease(class string) {
	r.ReleasesTotal.WithLabelValues(class).Inc()
}
