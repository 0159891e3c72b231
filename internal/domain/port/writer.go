package port

import "context"

type PaletteWriter interface {
	WritePalette(ctx context.Context, path string, data []byte) error
}
