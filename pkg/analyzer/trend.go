package analyzer

import (
	"github.com/opscart/finops-scan/pkg/models"
)

// trendMinSamples is the minimum sample count before a regression slope is
// considered meaningful.
const trendMinSamples = 100

// GrowthTrend describes how a metric drifts over the lookback window.
type GrowthTrend struct {
	RatePerMonth float64 // % growth per month relative to the window average
	R2           float64 // regression fit, 0..1
	Growing      bool
}

// ComputeGrowthTrend fits a line through the samples and converts the slope
// into percent growth per month. Too few samples yield a zero trend.
func ComputeGrowthTrend(samples []models.MetricSample) GrowthTrend {
	if len(samples) < trendMinSamples {
		return GrowthTrend{}
	}

	start := samples[0].Timestamp
	x := make([]float64, len(samples))
	y := make([]float64, len(samples))
	for i, s := range samples {
		x[i] = s.Timestamp.Sub(start).Hours()
		y[i] = s.Value
	}

	slope, _, r2 := linearRegression(x, y)

	sum := 0.0
	for _, v := range y {
		sum += v
	}
	mean := sum / float64(len(y))

	var ratePerMonth float64
	if mean > 0 {
		ratePerMonth = slope * 24 * 30 / mean * 100
	}

	return GrowthTrend{
		RatePerMonth: ratePerMonth,
		R2:           r2,
		Growing:      ratePerMonth > 3.0 && r2 > 0.3,
	}
}

// linearRegression returns slope, intercept and R² for y = mx + b.
func linearRegression(x, y []float64) (slope, intercept, r2 float64) {
	n := float64(len(x))
	if n == 0 {
		return 0, 0, 0
	}

	meanX, meanY := 0.0, 0.0
	for i := range x {
		meanX += x[i]
		meanY += y[i]
	}
	meanX /= n
	meanY /= n

	numerator, denominator := 0.0, 0.0
	for i := range x {
		numerator += (x[i] - meanX) * (y[i] - meanY)
		denominator += (x[i] - meanX) * (x[i] - meanX)
	}
	if denominator == 0 {
		return 0, meanY, 0
	}
	slope = numerator / denominator
	intercept = meanY - slope*meanX

	ssTotal, ssRes := 0.0, 0.0
	for i := range x {
		predicted := slope*x[i] + intercept
		ssRes += (y[i] - predicted) * (y[i] - predicted)
		ssTotal += (y[i] - meanY) * (y[i] - meanY)
	}
	if ssTotal == 0 {
		return slope, intercept, 0
	}
	r2 = 1.0 - ssRes/ssTotal
	if r2 < 0 {
		r2 = 0
	} else if r2 > 1 {
		r2 = 1
	}
	return slope, intercept, r2
}
