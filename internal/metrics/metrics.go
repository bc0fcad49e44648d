// Package metrics exposes Prometheus instruments for the tracking engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReportsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "termtrack_reports_ingested_total",
		Help: "Telemetry reports processed, labelled by outcome (ok, invalid).",
	}, []string{"outcome"})

	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "termtrack_transitions_total",
		Help: "Geofence transition events emitted, labelled by kind (enter, exit).",
	}, []string{"kind"})

	PublishDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "termtrack_publish_dropped_total",
		Help: "Events dropped at the publisher boundary, labelled by subscriber.",
	}, []string{"subscriber"})

	ResolveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "termtrack_resolve_duration_seconds",
		Help:    "Membership resolution latency per report.",
		Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
	})

	TerminalsTracked = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "termtrack_terminals_tracked",
		Help: "Number of terminals with a known state.",
	})

	GeofencesActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "termtrack_geofences_active",
		Help: "Number of registered geofences.",
	})

	DispatchQueueDepth = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "termtrack_dispatch_queue_depth",
		Help: "Reports waiting in each dispatcher shard queue.",
	}, []string{"shard"})

	StoreWriteFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "termtrack_store_write_failures_total",
		Help: "Telemetry history writes that failed after retries.",
	})
)
