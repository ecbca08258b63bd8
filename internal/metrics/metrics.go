// Package metrics holds the Prometheus collectors for classification runs.
// Collectors live on a private registry so that several recorders (tests,
// watch-mode reruns) never collide, and are exported as a node-exporter
// textfile rather than served.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"bioclas/internal/logging"
)

const namespace = "bioclas"

// Recorder collects per-point and per-run metrics. A nil *Recorder is valid
// and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	classified *prometheus.CounterVec
	failed     *prometheus.CounterVec
	evalTime   *prometheus.HistogramVec
	lastRun    prometheus.Gauge
	runPoints  prometheus.Gauge
}

// NewRecorder creates a recorder on a fresh registry.
func NewRecorder() *Recorder {
	r := &Recorder{registry: prometheus.NewRegistry()}

	r.classified = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_classified_total",
			Help:      "Points classified successfully",
		},
		[]string{"mode"},
	)
	r.failed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_failed_total",
			Help:      "Points whose classification failed",
		},
		[]string{"mode"},
	)
	r.evalTime = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "point_eval_seconds",
			Help:      "Time to classify a single point",
			Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 10),
		},
		[]string{"mode"},
	)
	r.lastRun = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix time the last batch run finished",
	})
	r.runPoints = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "last_run_points",
		Help:      "Number of points in the last batch run",
	})

	r.registry.MustRegister(r.classified, r.failed, r.evalTime, r.lastRun, r.runPoints)
	return r
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// ObservePoint records one classification attempt.
func (r *Recorder) ObservePoint(mode string, elapsed time.Duration, err error) {
	if r == nil {
		return
	}
	r.evalTime.WithLabelValues(mode).Observe(elapsed.Seconds())
	if err != nil {
		r.failed.WithLabelValues(mode).Inc()
		return
	}
	r.classified.WithLabelValues(mode).Inc()
}

// RunFinished records the end of a batch run.
func (r *Recorder) RunFinished(at time.Time, points int) {
	if r == nil {
		return
	}
	r.lastRun.Set(float64(at.UnixNano()) / 1e9)
	r.runPoints.Set(float64(points))
}

// WriteTextfile writes the current metric values in the text exposition
// format. The write is atomic, as the node-exporter textfile collector
// requires.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		logging.MetricsWarn("failed to write textfile %s: %v", path, err)
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	logging.Metrics("metrics written to %s", path)
	return nil
}
