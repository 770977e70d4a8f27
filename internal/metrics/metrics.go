// Package metrics exposes Prometheus instrumentation for the propagation
// core and the pass detector.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	propagationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbtrack_propagations_total",
			Help: "Total propagator calls, by model.",
		},
		[]string{"model"},
	)

	propagationErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbtrack_propagation_errors_total",
			Help: "Failed propagator calls, by model and error kind.",
		},
		[]string{"model", "kind"},
	)

	passScanSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "orbtrack_pass_scan_seconds",
			Help:    "Wall time of one pass-detection window scan.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
	)

	passesFound = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orbtrack_passes_found_total",
			Help: "Passes emitted by the detector.",
		},
	)

	datasetBodies = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "orbtrack_dataset_bodies",
			Help: "Bodies in the currently loaded element dataset.",
		},
	)
)

func init() {
	prometheus.MustRegister(propagationsTotal)
	prometheus.MustRegister(propagationErrorsTotal)
	prometheus.MustRegister(passScanSeconds)
	prometheus.MustRegister(passesFound)
	prometheus.MustRegister(datasetBodies)
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordPropagation counts one propagator call for the named model.
func RecordPropagation(model string) {
	propagationsTotal.WithLabelValues(model).Inc()
}

// RecordPropagationError counts one failed propagator call. kind is a short
// stable tag such as "eccentricity" or "mean_motion".
func RecordPropagationError(model, kind string) {
	propagationErrorsTotal.WithLabelValues(model, kind).Inc()
}

// ObservePassScan records the duration of one detection window and the
// number of passes it produced.
func ObservePassScan(d time.Duration, passes int) {
	passScanSeconds.Observe(d.Seconds())
	passesFound.Add(float64(passes))
}

// SetDatasetBodies publishes the size of the loaded element dataset.
func SetDatasetBodies(n int) {
	datasetBodies.Set(float64(n))
}
