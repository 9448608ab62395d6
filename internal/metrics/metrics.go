// Package metrics provides Prometheus metrics for sweeps, imports and the tracking store.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	sweepsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medialib_sweeps_total",
			Help: "Total number of sweeps by completion (finished, aborted, failed)",
		},
		[]string{"completion"},
	)

	sweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "medialib_sweep_duration_seconds",
			Help:    "Wall time of a sweep including pre- and post-marking",
			Buckets: prometheus.ExponentialBuckets(0.01, 4, 10),
		},
	)

	sweepDirectories = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medialib_sweep_directories_total",
			Help: "Directories classified by sweeps, by outcome",
		},
		[]string{"outcome"},
	)

	walkEntries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medialib_walk_entries_total",
			Help: "Filesystem entries seen by walks (finished, skipped)",
		},
		[]string{"result"},
	)

	confirmationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medialib_confirmations_total",
			Help: "Directory confirmations by result (accepted, rejected)",
		},
		[]string{"result"},
	)

	sourcesRegistered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "medialib_sources_registered_total",
			Help: "Media sources registered by the importer",
		},
	)

	purgeSources = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medialib_purge_sources_total",
			Help: "Untracked media sources handled by purges (relinked, dangling)",
		},
		[]string{"result"},
	)

	storeQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "medialib_store_query_duration_seconds",
			Help:    "Tracking store round-trip duration by operation",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	storeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "medialib_store_errors_total",
			Help: "Tracking store operations that returned an error",
		},
		[]string{"operation"},
	)

	lastSweepTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "medialib_last_sweep_timestamp_seconds",
			Help: "Unix time of the last finished sweep per collection",
		},
		[]string{"collection"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordSweep records a sweep's completion and duration.
func RecordSweep(completion string, duration time.Duration) {
	sweepsTotal.WithLabelValues(completion).Inc()
	sweepDuration.Observe(duration.Seconds())
}

// AddSweepDirectories adds n directories classified with outcome.
func AddSweepDirectories(outcome string, n uint64) {
	if n == 0 {
		return
	}
	sweepDirectories.WithLabelValues(outcome).Add(float64(n))
}

func AddWalkEntries(finished, skipped uint64) {
	walkEntries.WithLabelValues("finished").Add(float64(finished))
	walkEntries.WithLabelValues("skipped").Add(float64(skipped))
}

func RecordConfirmation(accepted bool) {
	if accepted {
		confirmationsTotal.WithLabelValues("accepted").Inc()
		return
	}
	confirmationsTotal.WithLabelValues("rejected").Inc()
}

func RecordSourceRegistered() {
	sourcesRegistered.Inc()
}

func RecordPurge(relinked, dangling int) {
	purgeSources.WithLabelValues("relinked").Add(float64(relinked))
	purgeSources.WithLabelValues("dangling").Add(float64(dangling))
}

// RecordStoreQuery records the duration of a store operation and counts it as
// failed when err is non-nil.
func RecordStoreQuery(operation string, duration time.Duration, err error) {
	storeQueryDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if err != nil {
		storeErrors.WithLabelValues(operation).Inc()
	}
}

func SetLastSweep(collection string, at time.Time) {
	lastSweepTimestamp.WithLabelValues(collection).Set(float64(at.Unix()))
}
