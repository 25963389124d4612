package analyzer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/opscart/finops-scan/pkg/models"
)

func makeSamples(n int, start time.Time, step time.Duration, value float64) []models.MetricSample {
	samples := make([]models.MetricSample, n)
	for i := range samples {
		samples[i] = models.MetricSample{Timestamp: start.Add(time.Duration(i) * step), Value: value}
	}
	return samples
}

func TestBuildAggregateFullCoverage(t *testing.T) {
	w := WindowSpec{Name: "1d", Duration: 24 * time.Hour, Granularity: time.Hour}
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	samples := makeSamples(24, start, time.Hour, 5)

	agg := BuildAggregate(samples, w, time.Hour, 0.9)
	assert.Equal(t, "1d", agg.Window)
	assert.Equal(t, 24, agg.SampleCount)
	assert.Equal(t, 24, agg.ExpectedSamples)
	assert.True(t, agg.CoverageOK)
	assert.True(t, agg.HasData())
	assert.InDelta(t, 1.0, agg.Coverage(), 1e-9)
	assert.Equal(t, 5.0, agg.Average)
	assert.Equal(t, 120.0, agg.Sum)
	assert.Equal(t, time.Hour, agg.Granularity)
}

func TestBuildAggregateSparseCoverage(t *testing.T) {
	w := WindowSpec{Name: "1d", Duration: 24 * time.Hour, Granularity: time.Hour}
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	samples := makeSamples(10, start, time.Hour, 5)

	agg := BuildAggregate(samples, w, time.Hour, 0.9)
	assert.False(t, agg.CoverageOK)
	assert.True(t, agg.HasData())
	assert.InDelta(t, 10.0/24.0, agg.Coverage(), 1e-9)
}

func TestBuildAggregateCoverageBoundary(t *testing.T) {
	w := WindowSpec{Name: "1d", Duration: 24 * time.Hour, Granularity: time.Hour}
	start := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	// 24 expected at threshold 0.9: 22 of 24 passes (22 >= 21.6), 21 fails.
	assert.True(t, BuildAggregate(makeSamples(22, start, time.Hour, 1), w, time.Hour, 0.9).CoverageOK)
	assert.False(t, BuildAggregate(makeSamples(21, start, time.Hour, 1), w, time.Hour, 0.9).CoverageOK)
}

func TestBuildAggregateEmpty(t *testing.T) {
	w := WindowSpec{Name: "1d", Duration: 24 * time.Hour, Granularity: time.Hour}
	agg := BuildAggregate(nil, w, time.Hour, 0.9)

	assert.False(t, agg.HasData())
	assert.False(t, agg.CoverageOK)
	assert.Equal(t, 0, agg.SampleCount)
	assert.Equal(t, 24, agg.ExpectedSamples)
	assert.Equal(t, 0.0, agg.Sum)
}

func TestCoverageWithoutExpectation(t *testing.T) {
	agg := MetricAggregate{SampleCount: 5}
	assert.Equal(t, 0.0, agg.Coverage())
}
