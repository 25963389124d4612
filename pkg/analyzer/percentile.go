package analyzer

import (
	"math"
	"sort"

	"github.com/opscart/finops-scan/pkg/models"
)

// Percentile computes the linearly-interpolated value at rank (n-1)*p/100.
// The input is not mutated; a copy is sorted. An empty input returns 0,
// the sentinel used consistently across the engine for "no data".
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	if len(values) == 1 {
		return values[0]
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	rank := (p / 100.0) * float64(len(sorted)-1)
	lower := int(math.Floor(rank))
	upper := int(math.Ceil(rank))
	if lower == upper {
		return sorted[lower]
	}

	fraction := rank - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*fraction
}

// Summary holds the basic statistics of one sample sequence.
type Summary struct {
	Average float64
	P95     float64
	Peak    float64
	Min     float64
	Sum     float64
	Count   int
}

// Summarize computes average, p95, peak, min and sum over a sample sequence.
// Every higher-level claim the engine makes rests on these numbers.
func Summarize(samples []models.MetricSample) Summary {
	if len(samples) == 0 {
		return Summary{}
	}

	values := make([]float64, len(samples))
	sum := 0.0
	for i, s := range samples {
		values[i] = s.Value
		sum += s.Value
	}
	sort.Float64s(values)

	return Summary{
		Average: sum / float64(len(values)),
		P95:     Percentile(values, 95),
		Peak:    values[len(values)-1],
		Min:     values[0],
		Sum:     sum,
		Count:   len(values),
	}
}

// CoefficientOfVariation measures relative variability of a sample sequence.
// High CV (>0.5) means a spiky load, low CV (<0.2) a steady one.
func CoefficientOfVariation(samples []models.MetricSample) float64 {
	if len(samples) < 2 {
		return 0
	}

	sum := 0.0
	for _, s := range samples {
		sum += s.Value
	}
	mean := sum / float64(len(samples))
	if mean == 0 {
		return 0
	}

	sumSquaredDiff := 0.0
	for _, s := range samples {
		diff := s.Value - mean
		sumSquaredDiff += diff * diff
	}
	variance := sumSquaredDiff / float64(len(samples))

	return math.Sqrt(variance) / mean
}
