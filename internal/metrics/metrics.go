// Package metrics provides Prometheus metrics for the recognition pipeline.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains the recognizer and session metrics.
type Metrics struct {
	Frames          *prometheus.CounterVec
	InvalidFrames   *prometheus.CounterVec
	RawLabels       *prometheus.CounterVec
	Confirmations   *prometheus.CounterVec
	ActiveSessions  prometheus.Gauge
	PublishFailures prometheus.Counter
	FrameLatency    prometheus.Histogram
	registry        *prometheus.Registry
}

// New creates Metrics and registers them with registry.
func New(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}
	return m, nil
}

// NewUnregistered creates Metrics backed by a private registry, for tests
// and for callers that do not expose /metrics.
func NewUnregistered() *Metrics {
	m, err := New(prometheus.NewRegistry())
	if err != nil {
		// A fresh registry cannot hold a conflicting collector.
		panic(err)
	}
	return m
}

func (m *Metrics) initMetrics() {
	m.Frames = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mudra_frames_total",
		Help: "Total number of frames processed, by source",
	}, []string{"source"})

	m.InvalidFrames = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mudra_invalid_frames_total",
		Help: "Total number of frames rejected as malformed, by field",
	}, []string{"field"})

	m.RawLabels = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mudra_raw_labels_total",
		Help: "Total number of per-frame classifications, by label",
	}, []string{"label"})

	m.Confirmations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "mudra_confirmed_changes_total",
		Help: "Total number of confirmed label changes, by label",
	}, []string{"label"})

	m.ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "mudra_active_sessions",
		Help: "Number of live recognizer sessions",
	})

	m.PublishFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "mudra_publish_failures_total",
		Help: "Total number of label changes that could not be delivered to a sink",
	})

	m.FrameLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "mudra_frame_duration_seconds",
		Help:    "Time spent classifying one frame",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 8),
	})
}

// Describe sends the descriptors of each metric to the provided channel.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.Frames.Describe(ch)
	m.InvalidFrames.Describe(ch)
	m.RawLabels.Describe(ch)
	m.Confirmations.Describe(ch)
	m.ActiveSessions.Describe(ch)
	m.PublishFailures.Describe(ch)
	m.FrameLatency.Describe(ch)
}

// Collect sends each metric to the provided channel.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.Frames.Collect(ch)
	m.InvalidFrames.Collect(ch)
	m.RawLabels.Collect(ch)
	m.Confirmations.Collect(ch)
	m.ActiveSessions.Collect(ch)
	m.PublishFailures.Collect(ch)
	m.FrameLatency.Collect(ch)
}

// Registry returns the registry the metrics are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveFrame records one processed frame.
func (m *Metrics) ObserveFrame(source, raw string, seconds float64) {
	m.Frames.WithLabelValues(source).Inc()
	m.RawLabels.WithLabelValues(labelValue(raw)).Inc()
	m.FrameLatency.Observe(seconds)
}

// ObserveInvalid records a rejected frame.
func (m *Metrics) ObserveInvalid(field string) {
	m.InvalidFrames.WithLabelValues(labelValue(field)).Inc()
}

// ObserveConfirmed records a confirmed label change.
func (m *Metrics) ObserveConfirmed(label string) {
	m.Confirmations.WithLabelValues(labelValue(label)).Inc()
}

// ObservePublishError records a sink failure. Nil errors are ignored.
func (m *Metrics) ObservePublishError(err error) {
	if err == nil {
		return
	}
	m.PublishFailures.Inc()
}

func labelValue(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
