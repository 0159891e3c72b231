package entity

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// Job tracks one palette extraction from queue delivery to completion.
type Job struct {
	ID            uuid.UUID
	UserID        string
	VideoKey      string
	PaletteKey    string
	Status        JobStatus
	SampledFrames int
	SkippedFrames int
	ColorCount    int
	FileSize      int64
	VideoDuration float64
	Attempt       int
	MaxAttempts   int
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CompletedAt   *time.Time
}

func NewJob(userID, videoKey string, fileSize int64, maxAttempts int) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:          uuid.New(),
		UserID:      userID,
		VideoKey:    videoKey,
		FileSize:    fileSize,
		Status:      JobStatusPending,
		Attempt:     0,
		MaxAttempts: maxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (j *Job) MarkProcessing() {
	j.Status = JobStatusProcessing
	j.Attempt++
	j.UpdatedAt = time.Now().UTC()
}

func (j *Job) MarkCompleted(paletteKey string, stats ExtractionStats) {
	now := time.Now().UTC()
	j.Status = JobStatusCompleted
	j.PaletteKey = paletteKey
	j.SampledFrames = stats.SampledFrames
	j.SkippedFrames = stats.SkippedFrames
	j.ColorCount = stats.ColorCount
	j.VideoDuration = stats.VideoDuration
	j.ErrorMessage = ""
	j.UpdatedAt = now
	j.CompletedAt = &now
}

func (j *Job) MarkFailed(errMsg string) {
	j.Status = JobStatusFailed
	j.ErrorMessage = errMsg
	j.UpdatedAt = time.Now().UTC()
}

func (j *Job) CanRetry() bool {
	return j.Attempt < j.MaxAttempts
}

// ExtractionStats summarizes one pipeline run.
type ExtractionStats struct {
	TotalFrames   int
	SampledFrames int
	SkippedFrames int
	ColorCount    int
	VideoDuration float64
}
