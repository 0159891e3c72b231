package palette

import "fmt"

// SampleIndices picks min(k, n) strictly increasing frame indices spread
// evenly over [0, n-1]. The first and last frame are included whenever k > 1.
func SampleIndices(n, k int) ([]int, error) {
	if n <= 0 {
		return nil, ErrEmptyVideo
	}
	if k <= 0 {
		return nil, fmt.Errorf("sample count must be positive, got %d", k)
	}
	if k > n {
		k = n
	}
	if k == 1 {
		return []int{0}, nil
	}

	// index_j = round(j * (n-1) / (k-1)), in integers so results never drift.
	span, steps := int64(n-1), int64(k-1)
	indices := make([]int, k)
	for j := range indices {
		indices[j] = int((2*int64(j)*span + steps) / (2 * steps))
	}
	return indices, nil
}
