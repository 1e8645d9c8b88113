// Package metrics exposes Prometheus collectors for the scanner service.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scannerJobsTotal            *prometheus.CounterVec
	scannerResultsTotal         prometheus.Counter
	scannerCitiesScannedTotal   prometheus.Counter
	scannerSearchHitsTotal      prometheus.Counter
	scannerFetchFailuresTotal   prometheus.Counter
	scannerFetchDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		scannerJobsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scanner_jobs_total",
				Help: "Total number of scan jobs finished, labeled by terminal status.",
			},
			[]string{"status"},
		)

		scannerResultsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scanner_results_total",
				Help: "Total number of keyword hits persisted.",
			},
		)

		scannerCitiesScannedTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scanner_cities_scanned_total",
				Help: "Total number of cities fully processed across all jobs.",
			},
		)

		scannerSearchHitsTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scanner_search_hits_total",
				Help: "Total raw search results returned by the provider.",
			},
		)

		scannerFetchFailuresTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "scanner_fetch_failures_total",
				Help: "Total candidate URLs skipped due to fetch errors.",
			},
		)

		scannerFetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "scanner_fetch_duration_seconds",
				Help:    "Histogram of candidate fetch latencies, labeled by document type.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
			},
			[]string{"document_type"},
		)
	})
}

// Handler returns the HTTP handler serving the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// JobFinished counts a terminal job transition.
func JobFinished(status string) {
	if scannerJobsTotal != nil {
		scannerJobsTotal.WithLabelValues(status).Inc()
	}
}

// ResultRecorded counts one persisted keyword hit.
func ResultRecorded() {
	if scannerResultsTotal != nil {
		scannerResultsTotal.Inc()
	}
}

// CityScanned counts one fully processed city.
func CityScanned() {
	if scannerCitiesScannedTotal != nil {
		scannerCitiesScannedTotal.Inc()
	}
}

// SearchHits counts raw provider results.
func SearchHits(n int) {
	if scannerSearchHitsTotal != nil && n > 0 {
		scannerSearchHitsTotal.Add(float64(n))
	}
}

// FetchFailed counts one skipped URL.
func FetchFailed() {
	if scannerFetchFailuresTotal != nil {
		scannerFetchFailuresTotal.Inc()
	}
}

// ObserveFetchDuration records one fetch latency sample.
func ObserveFetchDuration(docType string, d time.Duration) {
	if scannerFetchDurationSeconds != nil {
		scannerFetchDurationSeconds.WithLabelValues(docType).Observe(d.Seconds())
	}
}
