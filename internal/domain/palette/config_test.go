package palette

import (
	"errors"
	"fmt"
	"runtime"
	"testing"

	"github.com/fiapx/fiapx-palette-service/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1, cfg.ColorsPerFrame)
	assert.Equal(t, AlgorithmKMeans, cfg.Algorithm)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative samples", func(c *Config) { c.SampleCount = -1 }},
		{"no cluster colors", func(c *Config) { c.ClusterColors = 0 }},
		{"too many per frame", func(c *Config) { c.ColorsPerFrame = c.ClusterColors + 1 }},
		{"negative threshold", func(c *Config) { c.DedupThreshold = -1 }},
		{"no iterations", func(c *Config) { c.MaxIterations = 0 }},
		{"negative workers", func(c *Config) { c.Workers = -2 }},
		{"bad metric", func(c *Config) { c.DedupMetric = "hsv" }},
		{"bad algorithm", func(c *Config) { c.Algorithm = "median" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestConfigWorkerCount(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, runtime.NumCPU(), cfg.WorkerCount())
	cfg.Workers = 3
	assert.Equal(t, 3, cfg.WorkerCount())
}

func TestConfigSampleTarget(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 4, cfg.SampleTarget(entity.VideoInfo{FrameCount: 100, FrameRate: 30}))
	assert.Equal(t, 3, cfg.SampleTarget(entity.VideoInfo{FrameCount: 75, FrameRate: 25}))
	assert.Equal(t, fallbackSampleCount, cfg.SampleTarget(entity.VideoInfo{FrameCount: 75}))

	cfg.SampleCount = 50
	assert.Equal(t, 50, cfg.SampleTarget(entity.VideoInfo{FrameCount: 1000, FrameRate: 30}))
}

func TestStageError(t *testing.T) {
	err := Fail(StageAggregate, ErrEmptyPalette)
	assert.EqualError(t, err, "aggregate stage: palette is empty")
	assert.ErrorIs(t, err, ErrEmptyPalette)

	stage, ok := StageOf(fmt.Errorf("run: %w", err))
	require.True(t, ok)
	assert.Equal(t, StageAggregate, stage)

	_, ok = StageOf(errors.New("plain"))
	assert.False(t, ok)
	assert.NoError(t, Fail(StageWrite, nil))
}
