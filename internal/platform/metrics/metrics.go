// Package metrics registers the process-wide Prometheus instruments
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesSubmitted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warden_messages_submitted_total",
		Help: "Total number of messages accepted onto the pipeline queue.",
	})

	MessagesProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_messages_processed_total",
		Help: "Total number of messages drained from the queue, labelled by outcome.",
	}, []string{"outcome"})

	BatchesFlushed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_batches_flushed_total",
		Help: "Total number of batch flushes, labelled by trigger (size or timeout).",
	}, []string{"trigger"})

	BatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "warden_batch_size",
		Help:    "Number of messages per flushed batch.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500},
	})

	QueueUtilization = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "warden_queue_utilization_ratio",
		Help: "Current pipeline queue utilization (0-1).",
	})

	EventsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_events_recorded_total",
		Help: "Total number of scored events persisted, labelled by profile.",
	}, []string{"profile"})

	ScoreDistribution = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "warden_event_score",
		Help:    "Anomaly score distribution per profile and reporter.",
		Buckets: []float64{0, 0.1, 0.25, 0.5, 0.75, 0.9, 1},
	}, []string{"profile", "reporter"})

	WindowsAnalyzed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "warden_investigation_windows_total",
		Help: "Total number of time windows analyzed by the investigator.",
	})

	AnomaliesFlagged = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warden_anomalies_flagged_total",
		Help: "Total number of events flagged anomalous, labelled by analyzer.",
	}, []string{"analyzer"})

	ShipDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "warden_ship_duration_ms",
		Help:    "Time spent shipping flagged anomalies, in milliseconds.",
		Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
	}, []string{"shipper"})
)
