package palette

import (
	"sort"

	"github.com/fiapx/fiapx-palette-service/internal/domain/entity"
)

// Aggregator merges frame palettes into the global palette.
type Aggregator struct {
	colorsPerFrame int
	threshold      float64
	metric         DedupMetric
}

func NewAggregator(cfg Config) *Aggregator {
	perFrame := cfg.ColorsPerFrame
	if perFrame < 1 {
		perFrame = DefaultColorsPerFrame
	}
	return &Aggregator{
		colorsPerFrame: perFrame,
		threshold:      cfg.DedupThreshold,
		metric:         cfg.DedupMetric,
	}
}

// Aggregate takes the top colors of each frame in frame-index order and
// collapses runs of near-identical neighbours into their first occurrence.
func (a *Aggregator) Aggregate(frames []entity.FramePalette) (entity.GlobalPalette, error) {
	ordered := make([]entity.FramePalette, len(frames))
	copy(ordered, frames)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].FrameIndex < ordered[j].FrameIndex
	})

	var out entity.GlobalPalette
	for _, fp := range ordered {
		for _, c := range a.top(fp.Colors) {
			entry := entity.PaletteEntry{Color: c, FrameIndex: fp.FrameIndex}
			if n := len(out.Entries); n > 0 && a.duplicate(out.Entries[n-1].Color, c) {
				continue
			}
			out.Entries = append(out.Entries, entry)
		}
	}

	if len(out.Entries) == 0 {
		return entity.GlobalPalette{}, ErrEmptyPalette
	}
	return out, nil
}

func (a *Aggregator) top(colors []entity.Color) []entity.Color {
	ranked := make([]entity.Color, 0, len(colors))
	for _, c := range colors {
		if c.Weight > 0 {
			ranked = append(ranked, c)
		}
	}
	SortByWeight(ranked)
	if len(ranked) > a.colorsPerFrame {
		ranked = ranked[:a.colorsPerFrame]
	}
	return ranked
}

func (a *Aggregator) duplicate(kept, next entity.Color) bool {
	if a.threshold <= 0 {
		return false
	}
	if a.metric == MetricCIE76 {
		return kept.DistanceLab(next) < a.threshold
	}
	return kept.Distance(next) < a.threshold
}
