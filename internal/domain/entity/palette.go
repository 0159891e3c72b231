package entity

import (
	"math"
	"time"

	"github.com/lucasb-eyer/go-colorful"
)

// VideoInfo describes the decoded video stream.
type VideoInfo struct {
	FrameCount int
	FrameRate  float64
	Width      int
	Height     int
	Duration   float64
}

// TimestampOf returns the presentation time of a frame index at the nominal frame rate.
func (v VideoInfo) TimestampOf(index int) time.Duration {
	if v.FrameRate <= 0 {
		return 0
	}
	return time.Duration(float64(index) / v.FrameRate * float64(time.Second))
}

// Frame is one decoded image. Pix holds packed RGB triples in scan order,
// len(Pix) == Width*Height*3.
type Frame struct {
	Index     int
	Timestamp time.Duration
	Width     int
	Height    int
	Pix       []uint8
}

func (f *Frame) PixelCount() int {
	return f.Width * f.Height
}

// Color is an RGB centroid weighted by the fraction of frame pixels it represents.
type Color struct {
	R, G, B uint8
	Weight  float64
}

// RGB returns the channels as a triple.
func (c Color) RGB() [3]uint8 {
	return [3]uint8{c.R, c.G, c.B}
}

// Distance is the Euclidean distance in RGB space.
func (c Color) Distance(o Color) float64 {
	dr := float64(c.R) - float64(o.R)
	dg := float64(c.G) - float64(o.G)
	db := float64(c.B) - float64(o.B)
	return math.Sqrt(dr*dr + dg*dg + db*db)
}

// DistanceLab is the CIE76 delta E between the two colors, L in [0, 100].
func (c Color) DistanceLab(o Color) float64 {
	return c.colorful().DistanceLab(o.colorful()) * 100
}

func (c Color) Hex() string {
	return c.colorful().Hex()
}

func (c Color) colorful() colorful.Color {
	return colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
}

// FramePalette holds one frame's colors, most dominant first.
type FramePalette struct {
	FrameIndex int
	Colors     []Color
}

// PaletteEntry is one slot of the global palette together with the frame it came from.
type PaletteEntry struct {
	Color
	FrameIndex int
}

// GlobalPalette is the temporally ordered palette for a whole video.
type GlobalPalette struct {
	Entries []PaletteEntry
}

func (p *GlobalPalette) Len() int {
	return len(p.Entries)
}

// Triples returns the entries as RGB triples in palette order.
func (p *GlobalPalette) Triples() [][3]uint8 {
	out := make([][3]uint8, len(p.Entries))
	for i, e := range p.Entries {
		out[i] = e.RGB()
	}
	return out
}
