package port

import (
	"context"

	"github.com/fiapx/fiapx-palette-service/internal/domain/entity"
)

// VideoDecoder exposes a video's stream metadata and random access to decoded frames.
type VideoDecoder interface {
	Probe(ctx context.Context, videoPath string) (*entity.VideoInfo, error)
	DecodeFrame(ctx context.Context, videoPath string, info entity.VideoInfo, index int) (*entity.Frame, error)
}
