package analyzer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opscart/finops-scan/pkg/models"
)

func TestPercentileEmpty(t *testing.T) {
	assert.Equal(t, 0.0, Percentile(nil, 95))
	assert.Equal(t, 0.0, Percentile([]float64{}, 50))
}

func TestPercentileSingleValue(t *testing.T) {
	assert.Equal(t, 42.0, Percentile([]float64{42}, 0))
	assert.Equal(t, 42.0, Percentile([]float64{42}, 95))
	assert.Equal(t, 42.0, Percentile([]float64{42}, 100))
}

func TestPercentileInterpolation(t *testing.T) {
	values := []float64{10, 20, 30, 40}

	// rank = 0.5 * 3 = 1.5, halfway between 20 and 30
	assert.InDelta(t, 25.0, Percentile(values, 50), 1e-9)
	// rank = 0.95 * 3 = 2.85
	assert.InDelta(t, 38.5, Percentile(values, 95), 1e-9)
	assert.Equal(t, 10.0, Percentile(values, 0))
	assert.Equal(t, 40.0, Percentile(values, 100))
}

func TestPercentileDoesNotMutateInput(t *testing.T) {
	values := []float64{3, 1, 2}
	Percentile(values, 50)
	assert.Equal(t, []float64{3, 1, 2}, values)
}

func TestPercentileWithinBounds(t *testing.T) {
	values := []float64{7, 3, 9, 1, 5, 8, 2}
	for _, p := range []float64{0, 25, 50, 75, 95, 99, 100} {
		v := Percentile(values, p)
		assert.GreaterOrEqual(t, v, 1.0, "p%.0f below min", p)
		assert.LessOrEqual(t, v, 9.0, "p%.0f above max", p)
	}
}

func TestSummarize(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	samples := []models.MetricSample{
		{Timestamp: base, Value: 10},
		{Timestamp: base.Add(time.Minute), Value: 30},
		{Timestamp: base.Add(2 * time.Minute), Value: 20},
	}

	s := Summarize(samples)
	require.Equal(t, 3, s.Count)
	assert.InDelta(t, 20.0, s.Average, 1e-9)
	assert.Equal(t, 30.0, s.Peak)
	assert.Equal(t, 10.0, s.Min)
	assert.Equal(t, 60.0, s.Sum)
	assert.InDelta(t, 29.0, s.P95, 1e-9)
}

func TestSummarizeEmpty(t *testing.T) {
	assert.Equal(t, Summary{}, Summarize(nil))
}

func TestCoefficientOfVariation(t *testing.T) {
	base := time.Now()
	flat := []models.MetricSample{
		{Timestamp: base, Value: 5},
		{Timestamp: base, Value: 5},
		{Timestamp: base, Value: 5},
	}
	assert.Equal(t, 0.0, CoefficientOfVariation(flat))

	spiky := []models.MetricSample{
		{Timestamp: base, Value: 1},
		{Timestamp: base, Value: 1},
		{Timestamp: base, Value: 100},
	}
	assert.Greater(t, CoefficientOfVariation(spiky), 1.0)

	assert.Equal(t, 0.0, CoefficientOfVariation(flat[:1]))
}
