package palette

import (
	"testing"

	"github.com/fiapx/fiapx-palette-service/internal/domain/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fp(index int, colors ...entity.Color) entity.FramePalette {
	return entity.FramePalette{FrameIndex: index, Colors: colors}
}

func rgbw(r, g, b uint8, w float64) entity.Color {
	return entity.Color{R: r, G: g, B: b, Weight: w}
}

func TestAggregateDominantPerFrame(t *testing.T) {
	agg := NewAggregator(DefaultConfig())

	got, err := agg.Aggregate([]entity.FramePalette{
		fp(0, rgbw(255, 0, 0, 0.6), rgbw(0, 0, 0, 0.4)),
		fp(10, rgbw(0, 255, 0, 0.9)),
		fp(20, rgbw(1, 1, 1, 0.2), rgbw(0, 0, 255, 0.8)),
	})
	require.NoError(t, err)

	assert.Equal(t, [][3]uint8{{255, 0, 0}, {0, 255, 0}, {0, 0, 255}}, got.Triples())
	assert.Equal(t, []int{0, 10, 20}, frameIndices(got))
}

func TestAggregateRestoresFrameOrder(t *testing.T) {
	agg := NewAggregator(DefaultConfig())

	got, err := agg.Aggregate([]entity.FramePalette{
		fp(20, rgbw(0, 0, 255, 1)),
		fp(0, rgbw(255, 0, 0, 1)),
		fp(10, rgbw(0, 255, 0, 1)),
	})
	require.NoError(t, err)
	assert.Equal(t, []int{0, 10, 20}, frameIndices(got))
}

func TestAggregateTopColorsPerFrame(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ColorsPerFrame = 2
	cfg.DedupThreshold = 0

	got, err := NewAggregator(cfg).Aggregate([]entity.FramePalette{
		fp(0, rgbw(1, 1, 1, 0.1), rgbw(2, 2, 2, 0.5), rgbw(3, 3, 3, 0.4)),
		fp(5, rgbw(9, 9, 9, 1)),
	})
	require.NoError(t, err)

	assert.Equal(t, [][3]uint8{{2, 2, 2}, {3, 3, 3}, {9, 9, 9}}, got.Triples())
	assert.Equal(t, []int{0, 0, 5}, frameIndices(got))
}

func TestAggregateDedup(t *testing.T) {
	agg := NewAggregator(DefaultConfig())

	got, err := agg.Aggregate([]entity.FramePalette{
		fp(0, rgbw(100, 100, 100, 1)),
		fp(1, rgbw(102, 101, 100, 1)),
		fp(2, rgbw(104, 102, 100, 1)),
		fp(3, rgbw(200, 0, 0, 1)),
		fp(4, rgbw(100, 100, 100, 1)),
	})
	require.NoError(t, err)

	// (104,102,100) is 4.5 from the kept head, so the run collapses into frame 0.
	assert.Equal(t, [][3]uint8{{100, 100, 100}, {200, 0, 0}, {100, 100, 100}}, got.Triples())
	assert.Equal(t, []int{0, 3, 4}, frameIndices(got))
}

func TestAggregateDedupComparesAgainstKeptEntry(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DedupThreshold = 5

	// Each step is 4 away from its neighbour, but the fade drifts away from the head.
	got, err := NewAggregator(cfg).Aggregate([]entity.FramePalette{
		fp(0, rgbw(0, 0, 0, 1)),
		fp(1, rgbw(4, 0, 0, 1)),
		fp(2, rgbw(8, 0, 0, 1)),
		fp(3, rgbw(12, 0, 0, 1)),
	})
	require.NoError(t, err)
	assert.Equal(t, [][3]uint8{{0, 0, 0}, {8, 0, 0}}, got.Triples())
}

func TestAggregateCIE76(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DedupMetric = MetricCIE76
	cfg.DedupThreshold = 2

	got, err := NewAggregator(cfg).Aggregate([]entity.FramePalette{
		fp(0, rgbw(10, 20, 30, 1)),
		fp(1, rgbw(10, 20, 31, 1)),
		fp(2, rgbw(240, 240, 240, 1)),
	})
	require.NoError(t, err)
	assert.Equal(t, [][3]uint8{{10, 20, 30}, {240, 240, 240}}, got.Triples())
}

func TestAggregateUniform(t *testing.T) {
	frames := make([]entity.FramePalette, 0, 10)
	for i := 0; i < 10; i++ {
		frames = append(frames, fp(i*3, rgbw(10, 20, 30, 1)))
	}

	got, err := NewAggregator(DefaultConfig()).Aggregate(frames)
	require.NoError(t, err)
	assert.Equal(t, [][3]uint8{{10, 20, 30}}, got.Triples())
}

func TestAggregateEmpty(t *testing.T) {
	agg := NewAggregator(DefaultConfig())

	_, err := agg.Aggregate(nil)
	assert.ErrorIs(t, err, ErrEmptyPalette)

	_, err = agg.Aggregate([]entity.FramePalette{fp(0), fp(1, rgbw(1, 2, 3, 0))})
	assert.ErrorIs(t, err, ErrEmptyPalette)
}

func frameIndices(p entity.GlobalPalette) []int {
	out := make([]int, len(p.Entries))
	for i, e := range p.Entries {
		out[i] = e.FrameIndex
	}
	return out
}
