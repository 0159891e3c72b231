package ffmpeg

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"github.com/fiapx/fiapx-palette-service/internal/domain/entity"
	"github.com/fiapx/fiapx-palette-service/internal/domain/palette"
	"go.uber.org/zap"
)

type probeOutput struct {
	Streams []struct {
		Width        int    `json:"width"`
		Height       int    `json:"height"`
		RFrameRate   string `json:"r_frame_rate"`
		AvgFrameRate string `json:"avg_frame_rate"`
		NbFrames     string `json:"nb_frames"`
		NbReadFrames string `json:"nb_read_frames"`
	} `json:"streams"`
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

// Probe reads the first video stream's geometry, frame rate and frame count.
func (d *Decoder) Probe(ctx context.Context, videoPath string) (*entity.VideoInfo, error) {
	args := []string{"-v", "error", "-select_streams", "v:0"}
	if d.countFrames {
		args = append(args, "-count_frames")
	}
	args = append(args,
		"-show_entries", "stream=width,height,r_frame_rate,avg_frame_rate,nb_frames,nb_read_frames:format=duration",
		"-of", "json",
		videoPath,
	)

	out, err := exec.CommandContext(ctx, d.ffprobe, args...).Output()
	if err != nil {
		return nil, fmt.Errorf("ffprobe %s: %w", videoPath, err)
	}

	info, err := parseProbe(out)
	if err != nil {
		return nil, err
	}
	d.logProbe(info, videoPath)
	return info, nil
}

func parseProbe(raw []byte) (*entity.VideoInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(out.Streams) == 0 {
		return nil, fmt.Errorf("%w: no video stream", palette.ErrEmptyVideo)
	}
	s := out.Streams[0]

	fps := parseRate(s.AvgFrameRate)
	if fps <= 0 {
		fps = parseRate(s.RFrameRate)
	}
	if fps <= 0 {
		return nil, fmt.Errorf("unknown frame rate (r=%q avg=%q)", s.RFrameRate, s.AvgFrameRate)
	}

	duration, _ := strconv.ParseFloat(strings.TrimSpace(out.Format.Duration), 64)

	count := parseCount(s.NbReadFrames)
	if count == 0 {
		count = parseCount(s.NbFrames)
	}
	if count == 0 && duration > 0 {
		count = int(math.Round(duration * fps))
	}

	return &entity.VideoInfo{
		FrameCount: count,
		FrameRate:  fps,
		Width:      s.Width,
		Height:     s.Height,
		Duration:   duration,
	}, nil
}

// parseRate parses ffprobe rationals such as "30000/1001".
func parseRate(s string) float64 {
	num, den, found := strings.Cut(strings.TrimSpace(s), "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !found {
		return n
	}
	dv, err := strconv.ParseFloat(den, 64)
	if err != nil || dv == 0 {
		return 0
	}
	return n / dv
}

func parseCount(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

func (d *Decoder) logProbe(info *entity.VideoInfo, videoPath string) {
	d.logger.Debug("video probed",
		zap.String("path", videoPath),
		zap.Int("frame_count", info.FrameCount),
		zap.Float64("fps", info.FrameRate),
		zap.Int("width", info.Width),
		zap.Int("height", info.Height),
		zap.Float64("duration", info.Duration),
	)
}
