package decompose

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// median of values, averaging the two middle elements for even counts.
// NaN for an empty input.
func median(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// meanDefined averages the non-NaN values, NaN when there are none
func meanDefined(values []float64) float64 {
	defined := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) {
			defined = append(defined, v)
		}
	}
	if len(defined) == 0 {
		return math.NaN()
	}
	return stat.Mean(defined, nil)
}

func undefined(v float64) bool {
	return math.IsNaN(v) || math.IsInf(v, 0)
}
