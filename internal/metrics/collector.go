/**
 * Pipeline Metrics.
 *
 * Prometheus collectors for the fingerprinting pipeline: per-stage file
 * outcomes and durations, emitted sessions, and the signature count.
 *
 * Author: KleaSCM
 * Email: KleaSCM@gmail.com
 */

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "iotscope"
	subsystem = "pipeline"
)

// Label names.
const (
	labelStage  = "stage"
	labelResult = "result"
)

// Result label values.
const (
	ResultOK   = "ok"
	ResultFail = "fail"
)

// Collector holds all pipeline Prometheus metrics.
type Collector struct {
	// FilesProcessed counts files per stage and outcome.
	FilesProcessed *prometheus.CounterVec

	// StageDuration observes wall-clock seconds per stage run.
	StageDuration *prometheus.HistogramVec

	// SessionsEmitted counts sessions written by the splitter.
	SessionsEmitted prometheus.Counter

	// Signatures tracks the number of signatures in the current bank.
	Signatures prometheus.Gauge

	// DevicesMatched counts positive device verdicts during matching.
	DevicesMatched prometheus.Counter
}

// NewCollector creates a Collector with all metrics registered against
// the provided prometheus.Registerer. If reg is nil,
// prometheus.DefaultRegisterer is used.
func NewCollector(reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	c := &Collector{
		FilesProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "files_processed_total",
			Help:      "Files processed per stage and outcome.",
		}, []string{labelStage, labelResult}),

		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "stage_duration_seconds",
			Help:      "Wall-clock duration of each stage run.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 14),
		}, []string{labelStage}),

		SessionsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sessions_emitted_total",
			Help:      "Sessions written by the splitter.",
		}),

		Signatures: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "signatures",
			Help:      "Signatures in the current bank.",
		}),

		DevicesMatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "devices_matched_total",
			Help:      "Positive device verdicts produced by the matcher.",
		}),
	}

	reg.MustRegister(
		c.FilesProcessed,
		c.StageDuration,
		c.SessionsEmitted,
		c.Signatures,
		c.DevicesMatched,
	)

	return c
}

// Records one file outcome for a stage. Safe on a nil collector.
func (c *Collector) ObserveFile(stage string, ok bool) {
	if c == nil {
		return
	}
	result := ResultOK
	if !ok {
		result = ResultFail
	}
	c.FilesProcessed.WithLabelValues(stage, result).Inc()
}

// Records a stage run duration. Safe on a nil collector.
func (c *Collector) ObserveStage(stage string, seconds float64) {
	if c == nil {
		return
	}
	c.StageDuration.WithLabelValues(stage).Observe(seconds)
}
