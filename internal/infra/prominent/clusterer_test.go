package prominent

import (
	"testing"

	"github.com/fiapx/fiapx-palette-service/internal/domain/entity"
	"github.com/fiapx/fiapx-palette-service/internal/domain/palette"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToImage(t *testing.T) {
	frame := &entity.Frame{Width: 2, Height: 1, Pix: []uint8{1, 2, 3, 4, 5, 6}}

	img, err := toImage(frame)
	require.NoError(t, err)
	assert.Equal(t, []uint8{1, 2, 3, 255, 4, 5, 6, 255}, img.Pix)

	_, err = toImage(&entity.Frame{Width: 2, Height: 2, Pix: []uint8{1}})
	assert.ErrorIs(t, err, palette.ErrInvalidFrame)
}

func TestClusterWeights(t *testing.T) {
	w, h := 40, 40
	frame := &entity.Frame{Index: 4, Width: w, Height: h, Pix: make([]uint8, w*h*3)}
	for p := 0; p < w*h; p++ {
		if p < w*h/4 {
			frame.Pix[p*3] = 250
		} else {
			frame.Pix[p*3+2] = 250
		}
	}

	fp, err := NewClusterer(2).Cluster(frame)
	require.NoError(t, err)
	require.NotEmpty(t, fp.Colors)
	assert.Equal(t, 4, fp.FrameIndex)

	sum := 0.0
	for _, c := range fp.Colors {
		assert.Greater(t, c.Weight, 0.0)
		sum += c.Weight
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Greater(t, int(fp.Colors[0].B), 200, "blue covers most of the frame")
}
