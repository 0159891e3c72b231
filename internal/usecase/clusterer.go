package usecase

import (
	"fmt"

	"github.com/fiapx/fiapx-palette-service/internal/domain/palette"
	"github.com/fiapx/fiapx-palette-service/internal/infra/prominent"
)

// NewClusterer builds the frame clusterer selected by cfg.Algorithm.
func NewClusterer(cfg palette.Config) (palette.Clusterer, error) {
	switch cfg.Algorithm {
	case palette.AlgorithmKMeans, "":
		return palette.NewKMeans(cfg.ClusterColors, cfg.MaxIterations), nil
	case palette.AlgorithmMean:
		return palette.NewMean(), nil
	case palette.AlgorithmProminent:
		return prominent.NewClusterer(cfg.ClusterColors), nil
	default:
		return nil, fmt.Errorf("unknown algorithm %q", cfg.Algorithm)
	}
}
