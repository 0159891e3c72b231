package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fiapx/fiapx-palette-service/internal/domain/entity"
	"github.com/fiapx/fiapx-palette-service/internal/domain/palette"
	"github.com/fiapx/fiapx-palette-service/internal/domain/port"
	"github.com/fiapx/fiapx-palette-service/internal/infra/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// PaletteExtractor turns a local video file into its global palette.
type PaletteExtractor interface {
	Execute(ctx context.Context, videoPath string) (*ExtractionResult, error)
}

type ExtractionResult struct {
	Palette entity.GlobalPalette
	Stats   entity.ExtractionStats
}

type ExtractOption func(*ExtractPaletteUseCase)

// WithFrameTrace logs every clustered frame at debug level.
func WithFrameTrace(enabled bool) ExtractOption {
	return func(uc *ExtractPaletteUseCase) {
		uc.traceFrames = enabled
	}
}

// ExtractPaletteUseCase samples frames, clusters them on a bounded worker
// pool and merges the results in frame order.
type ExtractPaletteUseCase struct {
	decoder     port.VideoDecoder
	clusterer   palette.Clusterer
	aggregator  *palette.Aggregator
	cfg         palette.Config
	logger      *zap.Logger
	traceFrames bool
}

func NewExtractPaletteUseCase(
	decoder port.VideoDecoder,
	clusterer palette.Clusterer,
	cfg palette.Config,
	logger *zap.Logger,
	opts ...ExtractOption,
) (*ExtractPaletteUseCase, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("palette config: %w", err)
	}
	uc := &ExtractPaletteUseCase{
		decoder:    decoder,
		clusterer:  clusterer,
		aggregator: palette.NewAggregator(cfg),
		cfg:        cfg,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc, nil
}

func (uc *ExtractPaletteUseCase) Execute(ctx context.Context, videoPath string) (*ExtractionResult, error) {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ExtractPaletteUseCase.Execute")
	defer span.End()

	start := time.Now()
	info, err := uc.decoder.Probe(ctx, videoPath)
	if err != nil {
		return nil, palette.Fail(palette.StageProbe, err)
	}
	metrics.StageDuration.WithLabelValues(string(palette.StageProbe)).Observe(time.Since(start).Seconds())

	target := uc.cfg.SampleTarget(*info)
	indices, err := palette.SampleIndices(info.FrameCount, target)
	if err != nil {
		return nil, palette.Fail(palette.StageSample, err)
	}
	metrics.FramesSampledTotal.Add(float64(len(indices)))

	span.SetAttributes(
		attribute.Int("video.frame_count", info.FrameCount),
		attribute.Float64("video.fps", info.FrameRate),
		attribute.Int("palette.samples", len(indices)),
	)

	log := uc.logger.With(zap.String("video", videoPath))
	log.Debug("frames sampled",
		zap.Int("frame_count", info.FrameCount),
		zap.Int("target", target),
		zap.Int("sampled", len(indices)),
		zap.Int("workers", uc.cfg.WorkerCount()),
	)

	clusterStart := time.Now()
	frames, err := uc.clusterFrames(ctx, videoPath, *info, indices, log)
	if err != nil {
		return nil, palette.Fail(palette.StageCluster, err)
	}
	metrics.StageDuration.WithLabelValues(string(palette.StageCluster)).Observe(time.Since(clusterStart).Seconds())

	skipped := len(indices) - len(frames)
	if len(frames) == 0 {
		return nil, palette.Fail(palette.StageAggregate,
			fmt.Errorf("%w: all %d sampled frames failed", palette.ErrEmptyPalette, len(indices)))
	}

	global, err := uc.aggregator.Aggregate(frames)
	if err != nil {
		return nil, palette.Fail(palette.StageAggregate, err)
	}

	log.Debug("palette aggregated",
		zap.Int("frames", len(frames)),
		zap.Int("skipped", skipped),
		zap.Int("colors", global.Len()),
	)

	return &ExtractionResult{
		Palette: global,
		Stats: entity.ExtractionStats{
			TotalFrames:   info.FrameCount,
			SampledFrames: len(indices),
			SkippedFrames: skipped,
			ColorCount:    global.Len(),
			VideoDuration: info.Duration,
		},
	}, nil
}

// clusterFrames fills one slot per sampled frame and drains the slots in
// index order, so completion order never reaches the aggregator.
func (uc *ExtractPaletteUseCase) clusterFrames(
	ctx context.Context,
	videoPath string,
	info entity.VideoInfo,
	indices []int,
	log *zap.Logger,
) ([]entity.FramePalette, error) {
	slots := make([]*entity.FramePalette, len(indices))

	var g errgroup.Group
	g.SetLimit(uc.cfg.WorkerCount())

	for slot, index := range indices {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			metrics.BusyFrameWorkers.Inc()
			defer metrics.BusyFrameWorkers.Dec()

			fp, err := uc.processFrame(ctx, videoPath, info, index)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				stage, _ := palette.StageOf(err)
				metrics.FramesSkippedTotal.WithLabelValues(string(stage)).Inc()
				log.Warn("skipping frame", zap.Int("frame", index), zap.Error(err))
				return nil
			}
			slots[slot] = fp
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	frames := make([]entity.FramePalette, 0, len(slots))
	for _, fp := range slots {
		if fp != nil {
			frames = append(frames, *fp)
		}
	}
	return frames, nil
}

func (uc *ExtractPaletteUseCase) processFrame(ctx context.Context, videoPath string, info entity.VideoInfo, index int) (*entity.FramePalette, error) {
	frame, err := uc.decoder.DecodeFrame(ctx, videoPath, info, index)
	if err != nil {
		if !errors.Is(err, palette.ErrDecodeFailure) {
			err = fmt.Errorf("%w: %v", palette.ErrDecodeFailure, err)
		}
		return nil, palette.Fail(palette.StageDecode, err)
	}

	fp, err := uc.clusterer.Cluster(frame)
	if err != nil {
		return nil, palette.Fail(palette.StageCluster, err)
	}
	fp.FrameIndex = index

	if uc.traceFrames && len(fp.Colors) > 0 {
		uc.logger.Debug("frame clustered",
			zap.Int("frame", index),
			zap.Duration("timestamp", frame.Timestamp),
			zap.String("dominant", fp.Colors[0].Hex()),
			zap.Int("colors", len(fp.Colors)),
		)
	}
	return &fp, nil
}
