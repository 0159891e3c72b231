package usecase

import (
	"context"
	"time"

	"github.com/fiapx/fiapx-palette-service/internal/domain/entity"
	"github.com/fiapx/fiapx-palette-service/internal/domain/palette"
	"github.com/fiapx/fiapx-palette-service/internal/domain/port"
	"github.com/fiapx/fiapx-palette-service/internal/infra/metrics"
	"go.uber.org/zap"
)

// ExportFileUseCase extracts a local video's palette and writes the JSON document to disk.
type ExportFileUseCase struct {
	extractor PaletteExtractor
	writer    port.PaletteWriter
	history   port.JobRepository
	logger    *zap.Logger
}

// NewExportFileUseCase wires the file export. history may be nil.
func NewExportFileUseCase(
	extractor PaletteExtractor,
	writer port.PaletteWriter,
	history port.JobRepository,
	logger *zap.Logger,
) *ExportFileUseCase {
	return &ExportFileUseCase{
		extractor: extractor,
		writer:    writer,
		history:   history,
		logger:    logger,
	}
}

func (uc *ExportFileUseCase) Execute(ctx context.Context, input, output string) (*ExtractionResult, error) {
	job := uc.startRun(ctx, input)

	result, err := uc.run(ctx, input, output)
	if err != nil {
		uc.finishRun(ctx, job, "", nil, err)
		return nil, err
	}

	uc.finishRun(ctx, job, output, &result.Stats, nil)
	return result, nil
}

func (uc *ExportFileUseCase) run(ctx context.Context, input, output string) (*ExtractionResult, error) {
	result, err := uc.extractor.Execute(ctx, input)
	if err != nil {
		return nil, err
	}

	data, err := palette.Encode(result.Palette)
	if err != nil {
		return nil, palette.Fail(palette.StageExport, err)
	}

	uc.logger.Debug("writing palette",
		zap.String("colors", palette.Preview(result.Palette)),
		zap.String("path", output),
	)

	start := time.Now()
	if err := uc.writer.WritePalette(ctx, output, data); err != nil {
		return nil, palette.Fail(palette.StageWrite, err)
	}
	metrics.StageDuration.WithLabelValues(string(palette.StageWrite)).Observe(time.Since(start).Seconds())
	metrics.PaletteSize.Observe(float64(result.Palette.Len()))

	return result, nil
}

func (uc *ExportFileUseCase) startRun(ctx context.Context, input string) *entity.Job {
	if uc.history == nil {
		return nil
	}
	job := entity.NewJob("local", input, 0, 1)
	job.MarkProcessing()
	if err := uc.history.Create(ctx, job); err != nil {
		uc.logger.Warn("failed to record run", zap.Error(err))
		return nil
	}
	return job
}

func (uc *ExportFileUseCase) finishRun(ctx context.Context, job *entity.Job, output string, stats *entity.ExtractionStats, runErr error) {
	if job == nil {
		return
	}
	if runErr != nil {
		job.MarkFailed(runErr.Error())
	} else {
		job.MarkCompleted(output, *stats)
	}
	if err := uc.history.Update(ctx, job); err != nil {
		uc.logger.Warn("failed to update run record", zap.String("job_id", job.ID.String()), zap.Error(err))
	}
}
