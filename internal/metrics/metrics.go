package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PacketsProcessed counts every packet record entering the pipeline.
	PacketsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "netsentry_packets_processed_total",
			Help: "Total number of packet records processed",
		},
	)

	// PacketsAllowed counts packets passed by the mitigation engine.
	PacketsAllowed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "netsentry_packets_allowed_total",
			Help: "Total number of packets allowed",
		},
	)

	// PacketsDenied counts packets dropped for denylisted sources.
	PacketsDenied = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "netsentry_packets_denied_total",
			Help: "Total number of packets denied",
		},
	)

	// LateDropped counts packets targeting already-finalized windows.
	LateDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "netsentry_packets_late_dropped_total",
			Help: "Total number of late packets dropped at the window boundary",
		},
	)

	// MalformedSkipped counts packets the parser could not decode.
	MalformedSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "netsentry_packets_malformed_total",
			Help: "Total number of malformed packets skipped",
		},
	)

	// VectorsEmitted counts feature vectors handed to the scorer.
	VectorsEmitted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "netsentry_feature_vectors_emitted_total",
			Help: "Total number of feature vectors emitted for scoring",
		},
	)

	// ScorerErrors counts scorer calls that failed or timed out (fail-open).
	ScorerErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "netsentry_scorer_errors_total",
			Help: "Total number of failed scorer invocations",
		},
	)

	// ScorerLatency observes scorer call duration in seconds.
	ScorerLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "netsentry_scorer_latency_seconds",
			Help:    "Scorer invocation latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)

	// DenylistSize tracks the current number of denylisted sources.
	DenylistSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "netsentry_denylist_size",
			Help: "Current number of denylisted sources",
		},
	)
)
