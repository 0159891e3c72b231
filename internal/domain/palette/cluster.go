package palette

import (
	"fmt"
	"math"
	"sort"

	"github.com/fiapx/fiapx-palette-service/internal/domain/entity"
)

// Clusterer reduces a frame to a weighted palette ordered by descending weight.
type Clusterer interface {
	Cluster(frame *entity.Frame) (entity.FramePalette, error)
}

// KMeans clusters frame pixels in RGB space. Centroids are seeded from
// evenly spaced pixels in scan order so the result is reproducible.
type KMeans struct {
	k             int
	maxIterations int
}

func NewKMeans(k, maxIterations int) *KMeans {
	if k < 1 {
		k = DefaultClusterColors
	}
	if maxIterations < 1 {
		maxIterations = DefaultMaxIterations
	}
	return &KMeans{k: k, maxIterations: maxIterations}
}

func (km *KMeans) Cluster(frame *entity.Frame) (entity.FramePalette, error) {
	if err := validateFrame(frame); err != nil {
		return entity.FramePalette{}, err
	}

	pix := frame.Pix
	n := frame.PixelCount()
	k := min(km.k, n)

	centroids := make([][3]float64, k)
	for i := range centroids {
		p := (i * n / k) * 3
		centroids[i] = [3]float64{float64(pix[p]), float64(pix[p+1]), float64(pix[p+2])}
	}

	assign := make([]int, n)
	for i := range assign {
		assign[i] = -1
	}
	sums := make([][3]float64, k)
	counts := make([]int, k)

	for iter := 0; iter < km.maxIterations; iter++ {
		changed := false
		for p := 0; p < n; p++ {
			c := nearest(centroids, pix[p*3], pix[p*3+1], pix[p*3+2])
			if assign[p] != c {
				assign[p] = c
				changed = true
			}
		}
		if !changed {
			break
		}

		clear(sums)
		clear(counts)
		for p, c := range assign {
			sums[c][0] += float64(pix[p*3])
			sums[c][1] += float64(pix[p*3+1])
			sums[c][2] += float64(pix[p*3+2])
			counts[c]++
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			cnt := float64(counts[c])
			centroids[c] = [3]float64{sums[c][0] / cnt, sums[c][1] / cnt, sums[c][2] / cnt}
		}
	}

	clear(counts)
	for _, c := range assign {
		counts[c]++
	}

	colors := make([]entity.Color, 0, k)
	for c, cnt := range counts {
		if cnt == 0 {
			continue
		}
		colors = append(colors, entity.Color{
			R:      channel(centroids[c][0]),
			G:      channel(centroids[c][1]),
			B:      channel(centroids[c][2]),
			Weight: float64(cnt) / float64(n),
		})
	}
	SortByWeight(colors)

	return entity.FramePalette{FrameIndex: frame.Index, Colors: colors}, nil
}

// nearest returns the closest centroid; ties go to the lowest index.
func nearest(centroids [][3]float64, r, g, b uint8) int {
	best, bestDist := 0, math.MaxFloat64
	fr, fg, fb := float64(r), float64(g), float64(b)
	for i, c := range centroids {
		dr, dg, db := fr-c[0], fg-c[1], fb-c[2]
		d := dr*dr + dg*dg + db*db
		if d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// Mean reduces a frame to its average color.
type Mean struct{}

func NewMean() *Mean {
	return &Mean{}
}

func (Mean) Cluster(frame *entity.Frame) (entity.FramePalette, error) {
	if err := validateFrame(frame); err != nil {
		return entity.FramePalette{}, err
	}

	var r, g, b uint64
	for p := 0; p+2 < len(frame.Pix); p += 3 {
		r += uint64(frame.Pix[p])
		g += uint64(frame.Pix[p+1])
		b += uint64(frame.Pix[p+2])
	}
	n := float64(frame.PixelCount())

	return entity.FramePalette{
		FrameIndex: frame.Index,
		Colors: []entity.Color{{
			R:      channel(float64(r) / n),
			G:      channel(float64(g) / n),
			B:      channel(float64(b) / n),
			Weight: 1,
		}},
	}, nil
}

// SortByWeight orders colors by descending weight, keeping the original order on ties.
func SortByWeight(colors []entity.Color) {
	sort.SliceStable(colors, func(i, j int) bool {
		return colors[i].Weight > colors[j].Weight
	})
}

func validateFrame(frame *entity.Frame) error {
	if frame == nil {
		return fmt.Errorf("%w: nil frame", ErrInvalidFrame)
	}
	if frame.Width <= 0 || frame.Height <= 0 {
		return fmt.Errorf("%w: frame %d has size %dx%d", ErrInvalidFrame, frame.Index, frame.Width, frame.Height)
	}
	if want := frame.PixelCount() * 3; len(frame.Pix) != want {
		return fmt.Errorf("%w: frame %d has %d bytes, want %d", ErrInvalidFrame, frame.Index, len(frame.Pix), want)
	}
	return nil
}

func channel(v float64) uint8 {
	return uint8(math.Max(0, math.Min(255, math.Round(v))))
}
