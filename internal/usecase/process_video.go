package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/fiapx/fiapx-palette-service/internal/domain/entity"
	"github.com/fiapx/fiapx-palette-service/internal/domain/palette"
	"github.com/fiapx/fiapx-palette-service/internal/domain/port"
	"github.com/fiapx/fiapx-palette-service/internal/infra/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ProcessVideoUseCase handles one palette request delivered by the queue.
type ProcessVideoUseCase struct {
	repo      port.JobRepository
	storage   port.VideoStorage
	extractor PaletteExtractor
	publisher port.StatusPublisher
	dlq       port.DLQPublisher
	notifier  port.FailureNotifier
	logger    *zap.Logger
	tempDir   string
	maxRetry  int
}

type ProcessVideoConfig struct {
	TempDir    string
	MaxRetries int
}

func NewProcessVideoUseCase(
	repo port.JobRepository,
	storage port.VideoStorage,
	extractor PaletteExtractor,
	publisher port.StatusPublisher,
	dlq port.DLQPublisher,
	notifier port.FailureNotifier,
	logger *zap.Logger,
	cfg ProcessVideoConfig,
) *ProcessVideoUseCase {
	return &ProcessVideoUseCase{
		repo:      repo,
		storage:   storage,
		extractor: extractor,
		publisher: publisher,
		dlq:       dlq,
		notifier:  notifier,
		logger:    logger,
		tempDir:   cfg.TempDir,
		maxRetry:  cfg.MaxRetries,
	}
}

func (uc *ProcessVideoUseCase) Execute(ctx context.Context, rawMsg []byte) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ProcessVideoUseCase.Execute")
	defer span.End()

	totalTimer := time.Now()

	var msg entity.PaletteRequestMessage
	if err := json.Unmarshal(rawMsg, &msg); err != nil {
		uc.logger.Error("failed to unmarshal message", zap.Error(err), zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "unmarshal_error: "+err.Error())
		metrics.JobsProcessedTotal.WithLabelValues("dlq").Inc()
		return nil
	}

	span.SetAttributes(
		attribute.String("job.id", msg.JobID.String()),
		attribute.String("job.video_key", msg.VideoKey),
	)

	log := uc.logger.With(zap.String("job_id", msg.JobID.String()), zap.String("video_key", msg.VideoKey))

	job, err := uc.repo.FindByID(ctx, msg.JobID)
	if errors.Is(err, port.ErrJobNotFound) {
		job = entity.NewJob(msg.UserID, msg.VideoKey, msg.FileSize, uc.maxRetry)
		job.ID = msg.JobID
		if err := uc.repo.Create(ctx, job); err != nil {
			log.Error("failed to create job record", zap.Error(err))
			return fmt.Errorf("create job: %w", err)
		}
	} else if err != nil {
		log.Error("failed to load job record", zap.Error(err))
		return fmt.Errorf("find job: %w", err)
	}

	if job.Status == entity.JobStatusCompleted {
		err := uc.verifyStoredPalette(ctx, job)
		if err == nil {
			log.Info("job already completed, acknowledging redelivery")
			return nil
		}
		log.Warn("completed job has no usable palette, reprocessing",
			zap.String("palette_key", job.PaletteKey), zap.Error(err))
	}

	if !job.CanRetry() {
		log.Warn("job exhausted retries, sending to DLQ")
		_ = uc.handlePermanentFailure(ctx, job, msg, rawMsg, "max retries exceeded", log)
		return nil
	}

	job.MarkProcessing()
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to PROCESSING", zap.Error(err))
		return fmt.Errorf("update job: %w", err)
	}

	metrics.ActiveJobs.Inc()
	defer metrics.ActiveJobs.Dec()

	if err := uc.processPalettePipeline(ctx, job, msg, rawMsg, log); err != nil {
		return err
	}

	metrics.StageDuration.WithLabelValues("total").Observe(time.Since(totalTimer).Seconds())
	return nil
}

func (uc *ProcessVideoUseCase) processPalettePipeline(
	ctx context.Context,
	job *entity.Job,
	msg entity.PaletteRequestMessage,
	rawMsg []byte,
	log *zap.Logger,
) error {
	tracer := otel.Tracer("usecase")

	workDir := filepath.Join(uc.tempDir, job.ID.String())
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return fmt.Errorf("create workdir: %w", err)
	}
	defer os.RemoveAll(workDir)

	// Download video from MinIO
	dlStart := time.Now()
	ctx2, spanDl := tracer.Start(ctx, "download_video")
	videoPath := filepath.Join(workDir, "input"+path.Ext(msg.VideoKey))
	if err := uc.storage.DownloadVideo(ctx2, msg.VideoKey, videoPath); err != nil {
		spanDl.End()
		log.Error("failed to download video", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "download_video: "+err.Error(), log)
	}
	spanDl.End()
	metrics.StageDuration.WithLabelValues("download").Observe(time.Since(dlStart).Seconds())

	// Extract the palette
	ctx3, spanEx := tracer.Start(ctx, "extract_palette")
	result, err := uc.extractor.Execute(ctx3, videoPath)
	spanEx.End()
	if err != nil {
		log.Error("palette extraction failed", zap.Error(err))
		if permanent(err) {
			return uc.handlePermanentFailure(ctx, job, msg, rawMsg, err.Error(), log)
		}
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, err.Error(), log)
	}

	data, err := palette.Encode(result.Palette)
	if err != nil {
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, palette.Fail(palette.StageExport, err).Error(), log)
	}

	// Upload palette JSON to MinIO
	upStart := time.Now()
	ctx4, spanUp := tracer.Start(ctx, "upload_palette")
	paletteKey := PaletteKey(msg.UserID, msg.VideoKey, job.ID.String())
	if err := uc.storage.UploadPalette(ctx4, paletteKey, bytes.NewReader(data), int64(len(data))); err != nil {
		spanUp.End()
		log.Error("palette upload failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "upload_palette: "+err.Error(), log)
	}
	spanUp.End()
	metrics.StageDuration.WithLabelValues("upload").Observe(time.Since(upStart).Seconds())
	metrics.PaletteSize.Observe(float64(result.Palette.Len()))

	// Mark completed
	job.MarkCompleted(paletteKey, result.Stats)
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to COMPLETED", zap.Error(err))
		return fmt.Errorf("update job completed: %w", err)
	}

	uc.publishStatus(ctx, job, log)
	metrics.JobsProcessedTotal.WithLabelValues("completed").Inc()

	log.Info("job completed successfully",
		zap.Int("sampled_frames", result.Stats.SampledFrames),
		zap.Int("skipped_frames", result.Stats.SkippedFrames),
		zap.Int("colors", result.Stats.ColorCount),
		zap.String("palette_key", paletteKey),
	)

	return nil
}

// verifyStoredPalette checks that a completed job's palette is still readable.
func (uc *ProcessVideoUseCase) verifyStoredPalette(ctx context.Context, job *entity.Job) error {
	data, err := uc.storage.ReadPalette(ctx, job.PaletteKey)
	if err != nil {
		return err
	}
	_, err = palette.Decode(data)
	return err
}

// permanent reports failures that a retry cannot fix.
func permanent(err error) bool {
	return errors.Is(err, palette.ErrEmptyVideo) || errors.Is(err, palette.ErrEmptyPalette)
}

// PaletteKey names the object a job's palette is stored under.
func PaletteKey(userID, videoKey, jobID string) string {
	base := strings.TrimSuffix(path.Base(videoKey), path.Ext(videoKey))
	return fmt.Sprintf("%s/%s_%s.json", userID, base, jobID)
}

func (uc *ProcessVideoUseCase) handleRetryableFailure(
	ctx context.Context,
	job *entity.Job,
	msg entity.PaletteRequestMessage,
	rawMsg []byte,
	errMsg string,
	log *zap.Logger,
) error {
	job.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, job)

	if !job.CanRetry() {
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, errMsg, log)
	}

	metrics.RetryTotal.WithLabelValues(strconv.Itoa(job.Attempt)).Inc()
	uc.publishStatus(ctx, job, log)

	return fmt.Errorf("retryable failure (attempt %d/%d): %s", job.Attempt, job.MaxAttempts, errMsg)
}

func (uc *ProcessVideoUseCase) handlePermanentFailure(
	ctx context.Context,
	job *entity.Job,
	msg entity.PaletteRequestMessage,
	rawMsg []byte,
	errMsg string,
	log *zap.Logger,
) error {
	job.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, job)

	_ = uc.dlq.PublishToDLQ(ctx, rawMsg, errMsg)

	uc.publishStatus(ctx, job, log)

	metrics.JobsProcessedTotal.WithLabelValues("dlq").Inc()

	if msg.UserEmail != "" {
		if err := uc.notifier.NotifyFailure(ctx, msg.UserEmail, job); err != nil {
			log.Warn("failure notification not sent", zap.Error(err))
		}
	}

	return nil
}

func (uc *ProcessVideoUseCase) publishStatus(ctx context.Context, job *entity.Job, log *zap.Logger) {
	statusMsg := entity.PaletteStatusMessage{
		JobID:         job.ID,
		UserID:        job.UserID,
		Status:        job.Status,
		VideoKey:      job.VideoKey,
		PaletteKey:    job.PaletteKey,
		SampledFrames: job.SampledFrames,
		SkippedFrames: job.SkippedFrames,
		ColorCount:    job.ColorCount,
		Duration:      job.VideoDuration,
		ErrorMessage:  job.ErrorMessage,
		Attempt:       job.Attempt,
		MaxAttempts:   job.MaxAttempts,
	}
	if err := uc.publisher.PublishStatus(ctx, statusMsg); err != nil {
		log.Error("failed to publish status", zap.Error(err))
	}
}
