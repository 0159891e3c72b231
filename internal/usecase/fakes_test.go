package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/fiapx/fiapx-palette-service/internal/domain/entity"
	"github.com/fiapx/fiapx-palette-service/internal/domain/palette"
	"github.com/fiapx/fiapx-palette-service/internal/domain/port"
	"github.com/google/uuid"
)

// syntheticDecoder serves in-memory frames painted by colorAt.
type syntheticDecoder struct {
	info     entity.VideoInfo
	probeErr error
	colorAt  func(index int) [3]uint8
	failAt   map[int]bool
	delay    func(index int) time.Duration

	mu        sync.Mutex
	requested []int
}

func newSyntheticDecoder(frames int, colorAt func(int) [3]uint8) *syntheticDecoder {
	return &syntheticDecoder{
		info:    entity.VideoInfo{FrameCount: frames, FrameRate: 10, Width: 4, Height: 3, Duration: float64(frames) / 10},
		colorAt: colorAt,
		failAt:  map[int]bool{},
	}
}

func (d *syntheticDecoder) Probe(_ context.Context, _ string) (*entity.VideoInfo, error) {
	if d.probeErr != nil {
		return nil, d.probeErr
	}
	info := d.info
	return &info, nil
}

func (d *syntheticDecoder) DecodeFrame(ctx context.Context, _ string, info entity.VideoInfo, index int) (*entity.Frame, error) {
	d.mu.Lock()
	d.requested = append(d.requested, index)
	d.mu.Unlock()

	if d.delay != nil {
		select {
		case <-time.After(d.delay(index)):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if d.failAt[index] {
		return nil, fmt.Errorf("corrupt packet at frame %d", index)
	}

	c := d.colorAt(index)
	pix := make([]uint8, info.Width*info.Height*3)
	for p := 0; p < len(pix); p += 3 {
		pix[p], pix[p+1], pix[p+2] = c[0], c[1], c[2]
	}
	return &entity.Frame{
		Index:     index,
		Timestamp: info.TimestampOf(index),
		Width:     info.Width,
		Height:    info.Height,
		Pix:       pix,
	}, nil
}

func (d *syntheticDecoder) Requested() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]int, len(d.requested))
	copy(out, d.requested)
	return out
}

type failingWriter struct{}

func (failingWriter) WritePalette(_ context.Context, path string, _ []byte) error {
	return fmt.Errorf("%w: disk full writing %s", palette.ErrIOFailure, path)
}

type memRepo struct {
	mu      sync.Mutex
	jobs    map[uuid.UUID]entity.Job
	findErr error
}

func newMemRepo() *memRepo {
	return &memRepo{jobs: map[uuid.UUID]entity.Job{}}
}

func (r *memRepo) Create(_ context.Context, job *entity.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = *job
	return nil
}

func (r *memRepo) Update(_ context.Context, job *entity.Job) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.jobs[job.ID]; !ok {
		return port.ErrJobNotFound
	}
	r.jobs[job.ID] = *job
	return nil
}

func (r *memRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	job, ok := r.jobs[id]
	if !ok {
		return nil, fmt.Errorf("find %s: %w", id, port.ErrJobNotFound)
	}
	return &job, nil
}

func (r *memRepo) Get(id uuid.UUID) entity.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.jobs[id]
}

func (r *memRepo) All() []entity.Job {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]entity.Job, 0, len(r.jobs))
	for _, j := range r.jobs {
		out = append(out, j)
	}
	return out
}

type memStorage struct {
	downloadErr error
	uploadErr   error
	uploads     map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{uploads: map[string][]byte{}}
}

func (s *memStorage) DownloadVideo(_ context.Context, objectKey string, destPath string) error {
	if s.downloadErr != nil {
		return s.downloadErr
	}
	return os.WriteFile(destPath, []byte("video:"+objectKey), 0644)
}

func (s *memStorage) UploadPalette(_ context.Context, objectKey string, reader io.Reader, size int64) error {
	if s.uploadErr != nil {
		return s.uploadErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return errors.New("size mismatch")
	}
	s.uploads[objectKey] = data
	return nil
}

func (s *memStorage) ReadPalette(_ context.Context, objectKey string) ([]byte, error) {
	data, ok := s.uploads[objectKey]
	if !ok {
		return nil, fmt.Errorf("object %s not found", objectKey)
	}
	return data, nil
}

type recordingPublisher struct {
	statuses []entity.PaletteStatusMessage
}

func (p *recordingPublisher) PublishStatus(_ context.Context, msg entity.PaletteStatusMessage) error {
	p.statuses = append(p.statuses, msg)
	return nil
}

func (p *recordingPublisher) Last() entity.PaletteStatusMessage {
	return p.statuses[len(p.statuses)-1]
}

type dlqEntry struct {
	body   []byte
	reason string
}

type recordingDLQ struct {
	entries []dlqEntry
}

func (d *recordingDLQ) PublishToDLQ(_ context.Context, body []byte, reason string) error {
	d.entries = append(d.entries, dlqEntry{body: body, reason: reason})
	return nil
}

type recordingNotifier struct {
	sent []string
}

func (n *recordingNotifier) NotifyFailure(_ context.Context, userEmail string, job *entity.Job) error {
	n.sent = append(n.sent, userEmail+":"+job.ID.String())
	return nil
}

// stubExtractor returns a canned result or error and remembers the path it was given.
type stubExtractor struct {
	result *ExtractionResult
	err    error
	path   string
}

func (s *stubExtractor) Execute(_ context.Context, videoPath string) (*ExtractionResult, error) {
	s.path = videoPath
	if _, err := os.Stat(videoPath); err != nil {
		return nil, err
	}
	return s.result, s.err
}
