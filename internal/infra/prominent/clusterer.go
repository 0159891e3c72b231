package prominent

import (
	"fmt"
	"image"

	"github.com/EdlinOrg/prominentcolor"
	"github.com/fiapx/fiapx-palette-service/internal/domain/entity"
	"github.com/fiapx/fiapx-palette-service/internal/domain/palette"
)

// Clusterer extracts frame colors with prominentcolor's k-means.
type Clusterer struct {
	k    int
	size uint
}

func NewClusterer(k int) *Clusterer {
	if k < 1 {
		k = prominentcolor.DefaultK
	}
	return &Clusterer{k: k, size: prominentcolor.DefaultSize}
}

func (c *Clusterer) Cluster(frame *entity.Frame) (entity.FramePalette, error) {
	img, err := toImage(frame)
	if err != nil {
		return entity.FramePalette{}, err
	}

	items, err := prominentcolor.KmeansWithAll(c.k, img, prominentcolor.ArgumentNoCropping, c.size, []prominentcolor.ColorBackgroundMask{})
	if err != nil {
		return entity.FramePalette{}, fmt.Errorf("prominentcolor frame %d: %w", frame.Index, err)
	}

	total := 0
	for _, it := range items {
		total += it.Cnt
	}
	if total == 0 {
		return entity.FramePalette{FrameIndex: frame.Index}, nil
	}

	colors := make([]entity.Color, 0, len(items))
	for _, it := range items {
		if it.Cnt == 0 {
			continue
		}
		colors = append(colors, entity.Color{
			R:      uint8(it.Color.R),
			G:      uint8(it.Color.G),
			B:      uint8(it.Color.B),
			Weight: float64(it.Cnt) / float64(total),
		})
	}
	palette.SortByWeight(colors)

	return entity.FramePalette{FrameIndex: frame.Index, Colors: colors}, nil
}

func toImage(frame *entity.Frame) (*image.RGBA, error) {
	if frame == nil || frame.Width <= 0 || frame.Height <= 0 || len(frame.Pix) != frame.PixelCount()*3 {
		return nil, fmt.Errorf("%w: cannot build image", palette.ErrInvalidFrame)
	}

	img := image.NewRGBA(image.Rect(0, 0, frame.Width, frame.Height))
	for p, q := 0, 0; p < len(frame.Pix); p, q = p+3, q+4 {
		img.Pix[q] = frame.Pix[p]
		img.Pix[q+1] = frame.Pix[p+1]
		img.Pix[q+2] = frame.Pix[p+2]
		img.Pix[q+3] = 0xff
	}
	return img, nil
}
