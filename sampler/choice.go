package sampler

import (
	"fmt"
	"math/rand"

	"github.com/snow-ghost/geosynth/core"
)

// WeightedIndex draws an index proportionally to weights. A nil slice means
// uniform over n. Returns -1 when nothing has positive weight.
func WeightedIndex(rng *rand.Rand, weights []float64, n int) int {
	if n == 0 {
		return -1
	}
	if weights == nil {
		return rng.Intn(n)
	}
	total := 0.0
	for _, w := range weights[:n] {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return -1
	}
	r := rng.Float64() * total
	last := -1
	for i, w := range weights[:n] {
		if w <= 0 {
			continue
		}
		last = i
		if r < w {
			return i
		}
		r -= w
	}
	return last
}

// Choices draws k indices with replacement.
func Choices(rng *rand.Rand, weights []float64, k int) []int {
	out := make([]int, 0, k)
	for i := 0; i < k; i++ {
		idx := WeightedIndex(rng, weights, len(weights))
		if idx < 0 {
			break
		}
		out = append(out, idx)
	}
	return out
}

// UniqueChoices draws k distinct elements, weighted, without replacement.
// weights may be nil for a uniform draw.
func UniqueChoices[T any](rng *rand.Rand, population []T, weights []float64, k int) ([]T, error) {
	if k > len(population) {
		return nil, fmt.Errorf("%w: want %d of %d", core.ErrInsufficientPoints, k, len(population))
	}
	if weights != nil && len(weights) != len(population) {
		return nil, fmt.Errorf("weights length %d does not match population %d", len(weights), len(population))
	}

	pool := append([]T(nil), population...)
	var w []float64
	if weights != nil {
		w = append([]float64(nil), weights...)
	}

	out := make([]T, 0, k)
	for len(out) < k {
		idx := WeightedIndex(rng, w, len(pool))
		if idx < 0 {
			return nil, fmt.Errorf("%w: only zero-weight candidates left", core.ErrInsufficientPoints)
		}
		out = append(out, pool[idx])
		pool = append(pool[:idx], pool[idx+1:]...)
		if w != nil {
			w = append(w[:idx], w[idx+1:]...)
		}
	}
	return out, nil
}
