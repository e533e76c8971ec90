package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the platform-level metrics of the knowledge core. Domain
// components receive this struct and record through the typed helpers;
// anything more specific goes through the registrar.
type Metrics struct {
	// Write path
	SaveOutcomes  *prometheus.CounterVec
	SaveDuration  *prometheus.HistogramVec
	ChangeEntries *prometheus.CounterVec

	// Changefeed
	FeedPublished prometheus.Counter
	FeedFailures  prometheus.Counter

	// Closure engine
	ClosureTraversals *prometheus.CounterVec
	ClosureDepth      *prometheus.HistogramVec
	ClosureCeilingHit prometheus.Counter

	// Store boundary
	StoreQueries *prometheus.CounterVec
	StoreErrors  *prometheus.CounterVec

	// Term name cache
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter
}

// NewMetrics creates a Metrics instance with all platform metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		SaveOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "zukunft",
				Subsystem: "save",
				Name:      "outcomes_total",
				Help:      "Save operations by table and outcome (created, updated, forked, redirected, excluded)",
			},
			[]string{"table", "outcome"},
		),

		SaveDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "zukunft",
				Subsystem: "save",
				Name:      "duration_seconds",
				Help:      "Save operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"table"},
		),

		ChangeEntries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "zukunft",
				Subsystem: "changelog",
				Name:      "entries_total",
				Help:      "Recorded change-log entries by table and action",
			},
			[]string{"table", "action"},
		),

		FeedPublished: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "zukunft",
				Subsystem: "changefeed",
				Name:      "published_total",
				Help:      "Change entries published to the changefeed",
			},
		),

		FeedFailures: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "zukunft",
				Subsystem: "changefeed",
				Name:      "failures_total",
				Help:      "Changefeed publish failures (the durable audit row is unaffected)",
			},
		),

		ClosureTraversals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "zukunft",
				Subsystem: "closure",
				Name:      "traversals_total",
				Help:      "Graph closure traversals by operation (parents, children, are, contains, are_and_contains)",
			},
			[]string{"operation"},
		),

		ClosureDepth: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "zukunft",
				Subsystem: "closure",
				Name:      "depth_levels",
				Help:      "Levels expanded per closure traversal",
				Buckets:   []float64{1, 2, 3, 5, 8, 13, 21, 50, 100},
			},
			[]string{"operation"},
		),

		ClosureCeilingHit: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "zukunft",
				Subsystem: "closure",
				Name:      "ceiling_hits_total",
				Help:      "Traversals cut off by the loop ceiling, usually a graph cycle",
			},
		),

		StoreQueries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "zukunft",
				Subsystem: "store",
				Name:      "queries_total",
				Help:      "Row store operations by table and kind",
			},
			[]string{"table", "op"},
		),

		StoreErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "zukunft",
				Subsystem: "store",
				Name:      "errors_total",
				Help:      "Row store failures by table and kind",
			},
			[]string{"table", "op"},
		),

		CacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "zukunft",
				Subsystem: "termcache",
				Name:      "hits_total",
				Help:      "Term name cache hits",
			},
		),

		CacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "zukunft",
				Subsystem: "termcache",
				Name:      "misses_total",
				Help:      "Term name cache misses",
			},
		),
	}
}

// RecordSave counts one save outcome and its duration.
func (c *Metrics) RecordSave(table, outcome string, duration time.Duration) {
	c.SaveOutcomes.WithLabelValues(table, outcome).Inc()
	c.SaveDuration.WithLabelValues(table).Observe(duration.Seconds())
}

// RecordChangeEntry counts one recorded change-log entry.
func (c *Metrics) RecordChangeEntry(table, action string) {
	c.ChangeEntries.WithLabelValues(table, action).Inc()
}

// RecordFeedPublish counts a changefeed publish attempt.
func (c *Metrics) RecordFeedPublish(ok bool) {
	if ok {
		c.FeedPublished.Inc()
	} else {
		c.FeedFailures.Inc()
	}
}

// RecordTraversal counts one closure traversal and its expanded depth.
func (c *Metrics) RecordTraversal(operation string, levels int) {
	c.ClosureTraversals.WithLabelValues(operation).Inc()
	c.ClosureDepth.WithLabelValues(operation).Observe(float64(levels))
}

// RecordCeilingHit counts a traversal stopped by the loop ceiling.
func (c *Metrics) RecordCeilingHit() {
	c.ClosureCeilingHit.Inc()
}

// RecordStoreQuery counts one row store operation.
func (c *Metrics) RecordStoreQuery(table, op string) {
	c.StoreQueries.WithLabelValues(table, op).Inc()
}

// RecordStoreError counts one row store failure.
func (c *Metrics) RecordStoreError(table, op string) {
	c.StoreErrors.WithLabelValues(table, op).Inc()
}

// RecordCacheLookup counts a term name cache lookup.
func (c *Metrics) RecordCacheLookup(hit bool) {
	if hit {
		c.CacheHits.Inc()
	} else {
		c.CacheMisses.Inc()
	}
}
