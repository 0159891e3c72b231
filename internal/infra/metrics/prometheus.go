package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	JobsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "palette_jobs_processed_total",
		Help: "Total number of palette jobs processed, by status",
	}, []string{"status"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "palette_stage_duration_seconds",
		Help:    "Duration of palette pipeline stages",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
	}, []string{"stage"})

	FramesSampledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "palette_frames_sampled_total",
		Help: "Total number of frames selected by the sampler",
	})

	FramesSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "palette_frames_skipped_total",
		Help: "Sampled frames dropped because they could not be decoded or clustered",
	}, []string{"stage"})

	PaletteSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "palette_colors",
		Help:    "Number of colors in exported palettes",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	ActiveJobs = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "palette_active_jobs",
		Help: "Number of palette jobs currently being processed",
	})

	BusyFrameWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "palette_busy_frame_workers",
		Help: "Number of frame workers currently decoding or clustering",
	})

	RetryTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "palette_retry_total",
		Help: "Total number of retries",
	}, []string{"attempt"})
)
