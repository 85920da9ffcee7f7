package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roster_jobs_processed_total",
		Help: "Total number of roster jobs processed, by status",
	}, []string{"status"})

	JobProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "roster_job_processing_duration_seconds",
		Help:    "Duration of roster job stages",
		Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})

	FramesSampledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roster_frames_sampled_total",
		Help: "Total number of video frames sampled across all jobs",
	})

	FramesSkippedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roster_frames_skipped_total",
		Help: "Sampled frames without a club header",
	})

	RowsDetectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roster_rows_detected_total",
		Help: "Roster rows segmented from frames",
	})

	RowsUnparseableTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roster_rows_unparseable_total",
		Help: "Rows whose OCR text did not form a record",
	})

	OCRDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "roster_ocr_duration_seconds",
		Help:    "Duration of OCR per row crop",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 10),
	})

	EdgesDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "roster_order_edges_dropped_total",
		Help: "Order edges removed to break cycles or branches",
	})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "roster_active_workers",
		Help: "Number of currently active workers processing jobs",
	})

	RetryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "roster_retry_total",
		Help: "Total number of retries",
	}, []string{"attempt"})
)
