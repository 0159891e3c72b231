package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"

	"github.com/fiapx/fiapx-palette-service/internal/domain/entity"
	"github.com/fiapx/fiapx-palette-service/internal/domain/palette"
	"go.uber.org/zap"
)

// Decoder shells out to ffprobe/ffmpeg. Each DecodeFrame call runs its own
// ffmpeg process, so calls are safe to make from concurrent workers.
type Decoder struct {
	ffmpeg      string
	ffprobe     string
	width       int
	countFrames bool
	logger      *zap.Logger
}

type DecoderConfig struct {
	FFmpegPath  string
	FFprobePath string
	// Width downscales decoded frames to at most this many columns. Zero keeps native size.
	Width int
	// CountFrames asks ffprobe to decode the stream to count frames exactly.
	CountFrames bool
}

func NewDecoder(cfg DecoderConfig, logger *zap.Logger) *Decoder {
	d := &Decoder{
		ffmpeg:      cfg.FFmpegPath,
		ffprobe:     cfg.FFprobePath,
		width:       cfg.Width,
		countFrames: cfg.CountFrames,
		logger:      logger,
	}
	if d.ffmpeg == "" {
		d.ffmpeg = "ffmpeg"
	}
	if d.ffprobe == "" {
		d.ffprobe = "ffprobe"
	}
	return d
}

// DecodeFrame seeks to the frame's timestamp and reads one rgb24 image.
func (d *Decoder) DecodeFrame(ctx context.Context, videoPath string, info entity.VideoInfo, index int) (*entity.Frame, error) {
	w, h := d.outputSize(info)
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w: frame %d: unknown frame size %dx%d", palette.ErrDecodeFailure, index, info.Width, info.Height)
	}
	ts := info.TimestampOf(index)

	cmd := exec.CommandContext(ctx, d.ffmpeg,
		"-v", "error",
		"-ss", seekOffset(info, index),
		"-i", videoPath,
		"-frames:v", "1",
		"-vf", fmt.Sprintf("scale=%d:%d", w, h),
		"-f", "rawvideo",
		"-pix_fmt", "rgb24",
		"pipe:1",
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%w: frame %d: ffmpeg: %v, output: %s", palette.ErrDecodeFailure, index, err, stderr.String())
	}

	size := w * h * 3
	if len(out) < size {
		return nil, fmt.Errorf("%w: frame %d: got %d bytes, want %d", palette.ErrDecodeFailure, index, len(out), size)
	}

	return &entity.Frame{
		Index:     index,
		Timestamp: ts,
		Width:     w,
		Height:    h,
		Pix:       out[:size],
	}, nil
}

// seekOffset points half a frame before the frame's nominal timestamp.
// Input seeking discards every frame stamped before the offset, so the
// previous frame is dropped and the requested one is the first kept, even
// when the container rounds timestamps or the rate is fractional.
func seekOffset(info entity.VideoInfo, index int) string {
	if info.FrameRate <= 0 {
		return "0"
	}
	sec := max((float64(index)-0.5)/info.FrameRate, 0)
	return strconv.FormatFloat(sec, 'f', 6, 64)
}

// outputSize keeps the aspect ratio and an even height when downscaling.
func (d *Decoder) outputSize(info entity.VideoInfo) (int, int) {
	if d.width <= 0 || info.Width <= d.width || info.Width <= 0 {
		return info.Width, info.Height
	}
	h := int(math.Round(float64(info.Height)*float64(d.width)/float64(info.Width)/2)) * 2
	return d.width, max(h, 2)
}
