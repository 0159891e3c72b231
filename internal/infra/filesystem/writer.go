package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fiapx/fiapx-palette-service/internal/domain/palette"
)

// Writer stores palette documents on local disk. Files are written to a
// temporary sibling and renamed so readers never see a partial document.
type Writer struct {
	perm os.FileMode
}

func NewWriter() *Writer {
	return &Writer{perm: 0644}
}

func (w *Writer) WritePalette(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: create temp file in %s: %v", palette.ErrIOFailure, dir, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write %s: %v", palette.ErrIOFailure, tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", palette.ErrIOFailure, tmpName, err)
	}
	if err := os.Chmod(tmpName, w.perm); err != nil {
		return fmt.Errorf("%w: chmod %s: %v", palette.ErrIOFailure, tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: rename to %s: %v", palette.ErrIOFailure, path, err)
	}
	return nil
}

// DefaultOutputPath replaces the input's extension with ".json".
func DefaultOutputPath(input string) string {
	ext := filepath.Ext(input)
	if ext == "" {
		return input + ".json"
	}
	return strings.TrimSuffix(input, ext) + ".json"
}
