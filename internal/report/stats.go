package report

import (
	"math"
	"slices"
)

// Stats summarizes a set of compensation values
type Stats struct {
	Count  int
	Mean   float64
	Median float64
	Min    float64
	Max    float64
	P25    float64
	P75    float64
	P90    float64
}

// Percentile returns the q-th quantile (0 <= q <= 1) of sorted using linear
// interpolation between the closest ranks. It returns NaN for an empty slice.
func Percentile(sorted []float64, q float64) float64 {
	n := len(sorted)
	switch {
	case n == 0:
		return math.NaN()
	case n == 1 || q <= 0:
		return sorted[0]
	case q >= 1:
		return sorted[n-1]
	}

	pos := q * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}

func computeStats(values []float64) Stats {
	if len(values) == 0 {
		return Stats{}
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)

	var sum float64
	for _, v := range sorted {
		sum += v
	}

	return Stats{
		Count:  len(sorted),
		Mean:   sum / float64(len(sorted)),
		Median: Percentile(sorted, 0.5),
		Min:    sorted[0],
		Max:    sorted[len(sorted)-1],
		P25:    Percentile(sorted, 0.25),
		P75:    Percentile(sorted, 0.75),
		P90:    Percentile(sorted, 0.90),
	}
}
