// Package metrics records copy and verification counters for the
// node_exporter textfile collector.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "fanout"

// Recorder owns a private registry so repeated runs in one process never
// collide with the default registry. A nil *Recorder is valid and records
// nothing.
type Recorder struct {
	registry      *prometheus.Registry
	filesCopied   prometheus.Counter
	bytesCopied   prometheus.Counter
	filesVerified prometheus.Counter
	inconsistent  prometheus.Gauge
	failures      *prometheus.CounterVec
	phaseDuration *prometheus.HistogramVec
}

// New creates a recorder with every collector registered.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		filesCopied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_copied_total",
			Help:      "Files copied to every destination.",
		}),
		bytesCopied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_copied_total",
			Help:      "Source bytes copied, counted once per file regardless of destination count.",
		}),
		filesVerified: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_verified_total",
			Help:      "Files whose source and destination hashes were computed.",
		}),
		inconsistent: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "inconsistent_files",
			Help:      "Files with at least one destination differing from the source in the last verification.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "phase_failures_total",
			Help:      "Phases aborted by an error.",
		}, []string{"phase"}),
		phaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Wall-clock duration of copy and verify phases.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 4, 10),
		}, []string{"phase"}),
	}

	r.registry.MustRegister(
		r.filesCopied,
		r.bytesCopied,
		r.filesVerified,
		r.inconsistent,
		r.failures,
		r.phaseDuration,
	)
	return r
}

func (r *Recorder) FileCopied(bytes int64) {
	if r == nil {
		return
	}
	r.filesCopied.Inc()
	r.bytesCopied.Add(float64(bytes))
}

func (r *Recorder) FileVerified(consistent bool) {
	if r == nil {
		return
	}
	r.filesVerified.Inc()
	if !consistent {
		r.inconsistent.Inc()
	}
}

// VerifyStarted resets the inconsistency gauge for a new verification.
func (r *Recorder) VerifyStarted() {
	if r == nil {
		return
	}
	r.inconsistent.Set(0)
}

func (r *Recorder) PhaseFailed(phase string) {
	if r == nil {
		return
	}
	r.failures.WithLabelValues(phase).Inc()
}

func (r *Recorder) ObservePhase(phase string, d time.Duration) {
	if r == nil {
		return
	}
	r.phaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// Gatherer exposes the registry, mainly for tests.
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile atomically writes the metrics in text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
