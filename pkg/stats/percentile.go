// Package stats holds the small numeric utilities used by simulation
// reports: nearest-rank percentiles and batch fidelity classification.
package stats

import "slices"

// Percentile returns the nearest-rank percentile of samples: the value
// at floor(p/100 * (n-1)) in ascending order, clamped to the sample
// range. No interpolation. An empty sample returns 0.
func Percentile(samples []float64, p float64) float64 {
	if len(samples) == 0 {
		return 0
	}

	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	slices.Sort(sorted)

	idx := int(p / 100 * float64(len(sorted)-1))
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
