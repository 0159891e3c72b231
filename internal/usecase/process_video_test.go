package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/fiapx/fiapx-palette-service/internal/domain/entity"
	"github.com/fiapx/fiapx-palette-service/internal/domain/palette"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type processFixture struct {
	repo      *memRepo
	storage   *memStorage
	extractor *stubExtractor
	publisher *recordingPublisher
	dlq       *recordingDLQ
	notifier  *recordingNotifier
	uc        *ProcessVideoUseCase
}

func newProcessFixture(t *testing.T, maxRetries int) *processFixture {
	t.Helper()
	f := &processFixture{
		repo:      newMemRepo(),
		storage:   newMemStorage(),
		extractor: &stubExtractor{result: samplePaletteResult()},
		publisher: &recordingPublisher{},
		dlq:       &recordingDLQ{},
		notifier:  &recordingNotifier{},
	}
	f.uc = NewProcessVideoUseCase(
		f.repo, f.storage, f.extractor,
		f.publisher, f.dlq, f.notifier,
		zap.NewNop(),
		ProcessVideoConfig{TempDir: t.TempDir(), MaxRetries: maxRetries},
	)
	return f
}

func samplePaletteResult() *ExtractionResult {
	return &ExtractionResult{
		Palette: entity.GlobalPalette{Entries: []entity.PaletteEntry{
			{Color: entity.Color{R: 255, Weight: 0.8}, FrameIndex: 0},
			{Color: entity.Color{G: 255, Weight: 0.6}, FrameIndex: 30},
		}},
		Stats: entity.ExtractionStats{TotalFrames: 60, SampledFrames: 2, ColorCount: 2, VideoDuration: 2},
	}
}

func requestBody(t *testing.T, jobID uuid.UUID) []byte {
	t.Helper()
	body, err := json.Marshal(entity.PaletteRequestMessage{
		JobID:     jobID,
		UserID:    "user-1",
		VideoKey:  "user-1/holiday.mp4",
		FileSize:  1024,
		UserEmail: "user@fiapx.local",
	})
	require.NoError(t, err)
	return body
}

func TestProcessVideoSuccess(t *testing.T) {
	f := newProcessFixture(t, 3)
	jobID := uuid.New()

	require.NoError(t, f.uc.Execute(context.Background(), requestBody(t, jobID)))

	key := PaletteKey("user-1", "user-1/holiday.mp4", jobID.String())
	require.Contains(t, f.storage.uploads, key)
	assert.JSONEq(t, `{"colors":[[255,0,0],[0,255,0]]}`, string(f.storage.uploads[key]))
	assert.Equal(t, ".mp4", filepath.Ext(f.extractor.path))

	job := f.repo.Get(jobID)
	assert.Equal(t, entity.JobStatusCompleted, job.Status)
	assert.Equal(t, key, job.PaletteKey)
	assert.Equal(t, 2, job.ColorCount)
	assert.Equal(t, 1, job.Attempt)

	status := f.publisher.Last()
	assert.Equal(t, entity.JobStatusCompleted, status.Status)
	assert.Equal(t, key, status.PaletteKey)
	assert.Empty(t, f.dlq.entries)
}

func TestProcessVideoMalformedMessage(t *testing.T) {
	f := newProcessFixture(t, 3)

	require.NoError(t, f.uc.Execute(context.Background(), []byte(`{invalid json`)))

	require.Len(t, f.dlq.entries, 1)
	assert.Equal(t, `{invalid json`, string(f.dlq.entries[0].body))
	assert.Contains(t, f.dlq.entries[0].reason, "unmarshal_error")
	assert.Empty(t, f.repo.All())
}

func TestProcessVideoDownloadFailureIsRetried(t *testing.T) {
	f := newProcessFixture(t, 3)
	f.storage.downloadErr = errors.New("connection reset")
	jobID := uuid.New()

	err := f.uc.Execute(context.Background(), requestBody(t, jobID))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "attempt 1/3")

	job := f.repo.Get(jobID)
	assert.Equal(t, entity.JobStatusFailed, job.Status)
	assert.Contains(t, job.ErrorMessage, "download_video")
	assert.Equal(t, entity.JobStatusFailed, f.publisher.Last().Status)
	assert.Empty(t, f.dlq.entries)
}

func TestProcessVideoEmptyVideoIsPermanent(t *testing.T) {
	f := newProcessFixture(t, 3)
	f.extractor.err = palette.Fail(palette.StageSample, palette.ErrEmptyVideo)
	f.extractor.result = nil
	jobID := uuid.New()

	require.NoError(t, f.uc.Execute(context.Background(), requestBody(t, jobID)))

	require.Len(t, f.dlq.entries, 1)
	assert.Contains(t, f.dlq.entries[0].reason, "sample stage")
	assert.Equal(t, []string{"user@fiapx.local:" + jobID.String()}, f.notifier.sent)
	assert.Equal(t, entity.JobStatusFailed, f.repo.Get(jobID).Status)
	assert.Empty(t, f.storage.uploads)
}

func TestProcessVideoExhaustedRetries(t *testing.T) {
	f := newProcessFixture(t, 1)
	f.storage.uploadErr = errors.New("bucket unavailable")
	jobID := uuid.New()

	require.NoError(t, f.uc.Execute(context.Background(), requestBody(t, jobID)))

	require.Len(t, f.dlq.entries, 1)
	assert.Contains(t, f.dlq.entries[0].reason, "upload_palette")
	assert.Len(t, f.notifier.sent, 1)
}

func TestProcessVideoSkipsCompletedJob(t *testing.T) {
	f := newProcessFixture(t, 3)
	jobID := uuid.New()
	require.NoError(t, f.uc.Execute(context.Background(), requestBody(t, jobID)))
	published := len(f.publisher.statuses)

	require.NoError(t, f.uc.Execute(context.Background(), requestBody(t, jobID)))
	assert.Len(t, f.publisher.statuses, published)
	assert.Equal(t, 1, f.repo.Get(jobID).Attempt)
}

func TestProcessVideoReprocessesCompletedJobWithoutPalette(t *testing.T) {
	for name, damage := range map[string]func(s *memStorage, key string){
		"missing": func(s *memStorage, key string) { delete(s.uploads, key) },
		"corrupt": func(s *memStorage, key string) { s.uploads[key] = []byte(`{"colors":[[1,2]]}`) },
	} {
		t.Run(name, func(t *testing.T) {
			f := newProcessFixture(t, 3)
			jobID := uuid.New()
			require.NoError(t, f.uc.Execute(context.Background(), requestBody(t, jobID)))

			key := PaletteKey("user-1", "user-1/holiday.mp4", jobID.String())
			damage(f.storage, key)

			require.NoError(t, f.uc.Execute(context.Background(), requestBody(t, jobID)))

			assert.JSONEq(t, `{"colors":[[255,0,0],[0,255,0]]}`, string(f.storage.uploads[key]))
			job := f.repo.Get(jobID)
			assert.Equal(t, entity.JobStatusCompleted, job.Status)
			assert.Equal(t, 2, job.Attempt)
			assert.Len(t, f.publisher.statuses, 2)
		})
	}
}

func TestProcessVideoRepositoryError(t *testing.T) {
	f := newProcessFixture(t, 3)
	f.repo.findErr = errors.New("connection refused")

	err := f.uc.Execute(context.Background(), requestBody(t, uuid.New()))
	assert.ErrorContains(t, err, "find job")
}

func TestPaletteKey(t *testing.T) {
	assert.Equal(t, "u/holiday_42.json", PaletteKey("u", "u/holiday.mp4", "42"))
	assert.Equal(t, "u/clip_1.json", PaletteKey("u", "clip", "1"))
}
