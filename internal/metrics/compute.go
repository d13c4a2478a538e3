package metrics

import (
	"math"
	"sort"
)

// computeMean calculates the arithmetic mean.
func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computeStddev calculates the population standard deviation (n denominator).
func computeStddev(values []float64, mean float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sumSq := 0.0
	for _, v := range values {
		diff := v - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n))
}

// Percentile returns sorted[floor(p/100*n)], clamped to the last element.
// sorted must be pre-sorted ASC. p is in percent (5 = 5th percentile).
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(math.Floor(p / 100 * float64(n)))
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	return sorted[idx]
}

// sortedCopy returns an ascending copy of values.
func sortedCopy(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	sort.Float64s(out)
	return out
}

// computeDownsideDeviation is the root mean square of negative values only.
// Returns 0 and false when no value is negative.
func computeDownsideDeviation(values []float64) (float64, bool) {
	sumSq := 0.0
	n := 0
	for _, v := range values {
		if v < 0 {
			sumSq += v * v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return math.Sqrt(sumSq / float64(n)), true
}

// safeRatio divides, resolving a zero denominator to 0.
func safeRatio(num, den float64) float64 {
	if den == 0 || math.IsNaN(num) || math.IsNaN(den) {
		return 0
	}
	return num / den
}

// pct returns count/total*100, 0 for an empty total.
func pct(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}
