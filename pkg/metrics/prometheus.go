// Package metrics provides Prometheus metrics for the trackwave engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the engine.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Cache behavior
	cacheHits          prometheus.Counter
	cacheMisses        prometheus.Counter
	cacheStaleServed   prometheus.Counter
	cacheRefreshErrors prometheus.Counter
	cacheEntries       prometheus.Gauge

	// Identity resolution
	identityCacheHits   prometheus.Counter
	identityCacheMisses prometheus.Counter
	tracksMapped        prometheus.Counter
	tracksUnmapped      prometheus.Counter

	// Aggregation and scoring
	aggregateFallbacks prometheus.Counter
	fetchLatency       prometheus.Histogram
	scoringLatency     prometheus.Histogram
	reactivityGrades   *prometheus.CounterVec

	// Batch runs
	batchRuns            prometheus.Counter
	batchArtistsOK       prometheus.Counter
	batchArtistsFailed   prometheus.Counter
	batchRunDuration     prometheus.Histogram
	batchInFlightWorkers prometheus.Gauge
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// customRegistry keeps engine metrics separate from the default registry so
// the exposition endpoint serves exactly what the engine emits.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // paired with globalManager

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "trackwave",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.cacheHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_hits_total",
		Help:      "Weekly comparison reads served from a fresh cache entry",
	})
	m.cacheMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_misses_total",
		Help:      "Weekly comparison reads that required a recomputation",
	})
	m.cacheStaleServed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_stale_served_total",
		Help:      "Reads served from an expired entry after a failed refresh",
	})
	m.cacheRefreshErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_refresh_errors_total",
		Help:      "Failed cache refreshes",
	})
	m.cacheEntries = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cache_entries",
		Help:      "Entries currently held by the comparison cache",
	})

	m.identityCacheHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "identity_cache_hits_total",
		Help:      "External reference resolutions served from the identity cache",
	})
	m.identityCacheMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "identity_cache_misses_total",
		Help:      "External reference resolutions that queried the directory",
	})
	m.tracksMapped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tracks_mapped_total",
		Help:      "Tracks with a unified song mapping seen during resolution",
	})
	m.tracksUnmapped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tracks_unmapped_total",
		Help:      "Tracks without a unified song mapping seen during resolution",
	})

	m.aggregateFallbacks = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "aggregate_fallbacks_total",
		Help:      "Aggregations that fell back to the account-level record",
	})
	m.fetchLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "fetch_latency_ms",
		Help:      "Warehouse fetch latency in milliseconds",
		Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	})
	m.scoringLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scoring_latency_ms",
		Help:      "Reactivity scoring latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})
	m.reactivityGrades = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reactivity_grades_total",
		Help:      "Computed reactivity results by grade",
	}, []string{"grade"})

	m.batchRuns = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "batch_runs_total",
		Help:      "Completed batch recomputation runs",
	})
	m.batchArtistsOK = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "batch_artists_processed_total",
		Help:      "Artists fully processed by batch runs",
	})
	m.batchArtistsFailed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "batch_artists_failed_total",
		Help:      "Artists that failed during batch runs",
	})
	m.batchRunDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "batch_run_duration_seconds",
		Help:      "Wall-clock duration of a batch run",
		Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
	})
	m.batchInFlightWorkers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "batch_in_flight_workers",
		Help:      "Workers currently processing a batch item",
	})
}

// RecordCacheHit increments the cache hit counter.
func RecordCacheHit() {
	globalManager.cacheHits.Inc()
}

// RecordCacheMiss increments the cache miss counter.
func RecordCacheMiss() {
	globalManager.cacheMisses.Inc()
}

// RecordCacheStaleServed increments the stale-entry-served counter.
func RecordCacheStaleServed() {
	globalManager.cacheStaleServed.Inc()
}

// RecordCacheRefreshError increments the failed-refresh counter.
func RecordCacheRefreshError() {
	globalManager.cacheRefreshErrors.Inc()
}

// UpdateCacheEntries sets the current cache entry count.
func UpdateCacheEntries(count int) {
	globalManager.cacheEntries.Set(float64(count))
}

// RecordIdentityCacheHit increments the identity cache hit counter.
func RecordIdentityCacheHit() {
	globalManager.identityCacheHits.Inc()
}

// RecordIdentityCacheMiss increments the identity cache miss counter.
func RecordIdentityCacheMiss() {
	globalManager.identityCacheMisses.Inc()
}

// RecordTrackMapping records how many of an artist's tracks carried a
// unified song mapping.
func RecordTrackMapping(mapped, total int) {
	globalManager.tracksMapped.Add(float64(mapped))
	globalManager.tracksUnmapped.Add(float64(total - mapped))
}

// RecordAggregateFallback increments the account-level fallback counter.
func RecordAggregateFallback() {
	globalManager.aggregateFallbacks.Inc()
}

// RecordFetchLatency records a warehouse fetch latency in milliseconds.
func RecordFetchLatency(latencyMs float64) {
	globalManager.fetchLatency.Observe(latencyMs)
}

// RecordScoringLatency records scoring latency in milliseconds.
func RecordScoringLatency(latencyMs float64) {
	globalManager.scoringLatency.Observe(latencyMs)
}

// RecordReactivityGrade counts a computed result by grade.
func RecordReactivityGrade(grade string) {
	globalManager.reactivityGrades.WithLabelValues(grade).Inc()
}

// RecordBatchRun records a completed batch run and its duration.
func RecordBatchRun(durationSeconds float64) {
	globalManager.batchRuns.Inc()
	globalManager.batchRunDuration.Observe(durationSeconds)
}

// RecordBatchArtistProcessed increments the processed-artist counter.
func RecordBatchArtistProcessed() {
	globalManager.batchArtistsOK.Inc()
}

// RecordBatchArtistFailed increments the failed-artist counter.
func RecordBatchArtistFailed() {
	globalManager.batchArtistsFailed.Inc()
}

// UpdateBatchInFlightWorkers sets the number of busy batch workers.
func UpdateBatchInFlightWorkers(count int) {
	globalManager.batchInFlightWorkers.Set(float64(count))
}

// GetRegistry returns the registry the engine metrics are registered on.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
