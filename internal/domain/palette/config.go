package palette

import (
	"fmt"
	"math"
	"runtime"

	"github.com/fiapx/fiapx-palette-service/internal/domain/entity"
)

// Algorithm selects how a frame is reduced to colors.
type Algorithm string

const (
	// AlgorithmKMeans clusters pixels with deterministically seeded k-means.
	AlgorithmKMeans Algorithm = "kmeans"
	// AlgorithmMean reduces a frame to its average color.
	AlgorithmMean Algorithm = "mean"
	// AlgorithmProminent delegates to the prominentcolor library. Its k-means++
	// seeding is not guaranteed to be reproducible between runs.
	AlgorithmProminent Algorithm = "prominent"
)

// DedupMetric selects the distance used when collapsing adjacent colors.
type DedupMetric string

const (
	MetricRGB   DedupMetric = "rgb"
	MetricCIE76 DedupMetric = "cie76"
)

const (
	DefaultClusterColors  = 6
	DefaultColorsPerFrame = 1
	DefaultDedupThreshold = 8.0
	DefaultMaxIterations  = 20

	// fallbackSampleCount is used when neither a sample count nor a frame rate is known.
	fallbackSampleCount = 100
)

// Config is the tuning surface of the extraction pipeline.
type Config struct {
	// SampleCount is the number of frames to sample. Zero samples one frame
	// per second of video.
	SampleCount int
	// ClusterColors is the maximum number of colors kept per frame.
	ClusterColors int
	// ColorsPerFrame is how many of a frame's top colors reach the global palette.
	ColorsPerFrame int
	// DedupThreshold collapses adjacent colors closer than this. Zero disables.
	DedupThreshold float64
	DedupMetric    DedupMetric
	MaxIterations  int
	// Workers bounds concurrent decode+cluster jobs. Zero uses every CPU.
	Workers   int
	Algorithm Algorithm
}

func DefaultConfig() Config {
	return Config{
		ClusterColors:  DefaultClusterColors,
		ColorsPerFrame: DefaultColorsPerFrame,
		DedupThreshold: DefaultDedupThreshold,
		DedupMetric:    MetricRGB,
		MaxIterations:  DefaultMaxIterations,
		Algorithm:      AlgorithmKMeans,
	}
}

func (c Config) Validate() error {
	if c.SampleCount < 0 {
		return fmt.Errorf("sample count must not be negative, got %d", c.SampleCount)
	}
	if c.ClusterColors < 1 {
		return fmt.Errorf("cluster colors must be at least 1, got %d", c.ClusterColors)
	}
	if c.ColorsPerFrame < 1 || c.ColorsPerFrame > c.ClusterColors {
		return fmt.Errorf("colors per frame must be in [1, %d], got %d", c.ClusterColors, c.ColorsPerFrame)
	}
	if c.DedupThreshold < 0 {
		return fmt.Errorf("dedup threshold must not be negative, got %v", c.DedupThreshold)
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("max iterations must be at least 1, got %d", c.MaxIterations)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	switch c.DedupMetric {
	case MetricRGB, MetricCIE76:
	default:
		return fmt.Errorf("unknown dedup metric %q", c.DedupMetric)
	}
	switch c.Algorithm {
	case AlgorithmKMeans, AlgorithmMean, AlgorithmProminent:
	default:
		return fmt.Errorf("unknown algorithm %q", c.Algorithm)
	}
	return nil
}

// WorkerCount resolves Workers against the available CPUs.
func (c Config) WorkerCount() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

// SampleTarget resolves how many frames to sample from the video.
func (c Config) SampleTarget(info entity.VideoInfo) int {
	if c.SampleCount > 0 {
		return c.SampleCount
	}
	fps := math.Round(info.FrameRate)
	if fps < 1 {
		return fallbackSampleCount
	}
	return int(math.Ceil(float64(info.FrameCount) / fps))
}
