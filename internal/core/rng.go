package core

import "math/rand"

// Tolerance absorbs floating-point rounding when walking cumulative
// probability masses.
const Tolerance = 1e-10

// NewRNG creates a deterministic RNG using the provided seed. A single RNG
// instance is threaded through a whole run so that the draw order is
// reproducible.
func NewRNG(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// Within returns a uniform draw in [min, max).
func Within(r *rand.Rand, min, max float64) float64 {
	return min + r.Float64()*(max-min)
}

// ProbabilityTest reports whether an event with the given probability occurs.
func ProbabilityTest(r *rand.Rand, probability float64) bool {
	return r.Float64() < probability
}

// RouletteWheel draws an index from the weight list, each entry selected
// proportionally to its weight. total must be the sum of the weights.
// Returns -1 when the draw exhausts the list (rounding) or total is zero.
func RouletteWheel(r *rand.Rand, weights []float64, total float64) int {
	if total <= 0 {
		return -1
	}
	draw := Within(r, 0, total)
	cumulative := 0.0
	for i, w := range weights {
		cumulative += w
		if draw <= cumulative+Tolerance {
			return i
		}
	}
	return -1
}
