package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fiapx/fiapx-palette-service/internal/domain/palette"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWritePalette(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.json")

	err := NewWriter().WritePalette(context.Background(), path, []byte(`{"colors":[[1,2,3]]}`))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `{"colors":[[1,2,3]]}`, string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}

func TestWritePaletteMissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "clip.json")

	err := NewWriter().WritePalette(context.Background(), path, []byte(`{}`))
	assert.ErrorIs(t, err, palette.ErrIOFailure)
}

func TestWritePaletteCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewWriter().WritePalette(ctx, filepath.Join(t.TempDir(), "clip.json"), []byte(`{}`))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDefaultOutputPath(t *testing.T) {
	tests := map[string]string{
		"movie.mp4":       "movie.json",
		"/videos/a.b.mkv": "/videos/a.b.json",
		"noext":           "noext.json",
		"dir.d/noext":     "dir.d/noext.json",
		"/tmp/clip.MOV":   "/tmp/clip.json",
	}
	for in, want := range tests {
		assert.Equal(t, want, DefaultOutputPath(in), in)
	}
}
