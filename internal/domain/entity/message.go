package entity

import "github.com/google/uuid"

// PaletteRequestMessage is the inbound message from the palette.processing queue.
type PaletteRequestMessage struct {
	JobID     uuid.UUID `json:"job_id"`
	UserID    string    `json:"user_id"`
	VideoKey  string    `json:"video_key"`
	FileSize  int64     `json:"file_size"`
	UserEmail string    `json:"user_email"`
}

// PaletteStatusMessage is the outbound message published to the palette.status queue.
type PaletteStatusMessage struct {
	JobID         uuid.UUID `json:"job_id"`
	UserID        string    `json:"user_id"`
	Status        JobStatus `json:"status"`
	VideoKey      string    `json:"video_key"`
	PaletteKey    string    `json:"palette_key,omitempty"`
	SampledFrames int       `json:"sampled_frames,omitempty"`
	SkippedFrames int       `json:"skipped_frames,omitempty"`
	ColorCount    int       `json:"color_count,omitempty"`
	Duration      float64   `json:"duration_seconds,omitempty"`
	ErrorMessage  string    `json:"error_message,omitempty"`
	Attempt       int       `json:"attempt"`
	MaxAttempts   int       `json:"max_attempts"`
}
