package palette

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fiapx/fiapx-palette-service/internal/domain/entity"
)

// Document is the JSON contract consumed by the mosaic renderer.
type Document struct {
	Colors [][3]uint8 `json:"colors"`
}

// Encode serializes the palette as {"colors": [[r,g,b], ...]}.
func Encode(p entity.GlobalPalette) ([]byte, error) {
	if p.Len() == 0 {
		return nil, ErrEmptyPalette
	}
	data, err := json.Marshal(Document{Colors: p.Triples()})
	if err != nil {
		return nil, fmt.Errorf("marshal palette: %w", err)
	}
	return data, nil
}

// Decode parses a palette document. Every color must be exactly three
// integers in [0, 255].
func Decode(data []byte) ([][3]uint8, error) {
	var doc struct {
		Colors [][]int `json:"colors"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPalette, err)
	}
	if len(doc.Colors) == 0 {
		return nil, fmt.Errorf("%w: no colors", ErrInvalidPalette)
	}

	colors := make([][3]uint8, len(doc.Colors))
	for i, c := range doc.Colors {
		if len(c) != 3 {
			return nil, fmt.Errorf("%w: color %d has %d components, want 3", ErrInvalidPalette, i, len(c))
		}
		for ch, v := range c {
			if v < 0 || v > 255 {
				return nil, fmt.Errorf("%w: color %d component %d out of range: %d", ErrInvalidPalette, i, ch, v)
			}
			colors[i][ch] = uint8(v)
		}
	}
	return colors, nil
}

// Preview renders the first three and last two colors for log lines.
func Preview(p entity.GlobalPalette) string {
	triples := p.Triples()
	format := func(ts [][3]uint8) string {
		parts := make([]string, len(ts))
		for i, t := range ts {
			parts[i] = fmt.Sprintf("[%d, %d, %d]", t[0], t[1], t[2])
		}
		return strings.Join(parts, ", ")
	}
	if len(triples) <= 5 {
		return "[" + format(triples) + "]"
	}
	return "[" + format(triples[:3]) + ", ... " + format(triples[len(triples)-2:]) + "]"
}
