package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics carries the replay session's Prometheus instruments. Registration
// happens against an injected registry so tests can instantiate freely.
type Metrics struct {
	SamplesProcessed    prometheus.Counter
	CorrectPredictions  prometheus.Counter
	PersistenceFailures prometheus.Counter
	TelemetryDrops      prometheus.Counter
	InferenceLatency    prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SamplesProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "heartstream_samples_processed_total",
			Help: "Total validation samples replayed through the classifier.",
		}),
		CorrectPredictions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "heartstream_correct_predictions_total",
			Help: "Predictions matching the ground-truth label.",
		}),
		PersistenceFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "heartstream_persistence_failures_total",
			Help: "Audit rows that could not be written to the database.",
		}),
		TelemetryDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "heartstream_telemetry_drops_total",
			Help: "Snapshots dropped after exhausting telemetry retries.",
		}),
		InferenceLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "heartstream_inference_latency_seconds",
			Help:    "Latency of individual inference calls.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}),
	}

	reg.MustRegister(
		m.SamplesProcessed,
		m.CorrectPredictions,
		m.PersistenceFailures,
		m.TelemetryDrops,
		m.InferenceLatency,
	)

	return m
}
