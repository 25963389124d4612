package analyzer

import (
	"time"

	"github.com/opscart/finops-scan/pkg/models"
)

// DefaultCoverageThreshold is the fraction of expected samples a window must
// deliver before its statistics are trusted downstream.
const DefaultCoverageThreshold = 0.9

// MetricAggregate is the statistical rollup of one (resource, metric, window)
// tuple. It is created once per fetch and never mutated afterwards.
type MetricAggregate struct {
	Window      string
	Average     float64
	P95         float64
	Peak        float64
	Min         float64
	Sum         float64
	SampleCount int

	// ExpectedSamples is floor(window duration / effective granularity).
	ExpectedSamples int

	// CoverageOK is false when the window delivered fewer samples than
	// ExpectedSamples * coverage threshold. Downstream classification must
	// defer judgment rather than emit a false idle/healthy verdict.
	CoverageOK bool

	// Fallback marks an aggregate built from the fallback dimension set,
	// i.e. resolution was coarser than requested.
	Fallback bool

	// Granularity is the effective sampling period used for the fetch.
	Granularity time.Duration

	// CV and Trend enrich the rollup with burstiness and drift signals;
	// both are zero when the window has too few samples.
	CV    float64
	Trend GrowthTrend
}

// HasData reports whether the window delivered any samples at all.
func (a MetricAggregate) HasData() bool {
	return a.SampleCount > 0
}

// Coverage is the ratio of delivered to expected samples.
func (a MetricAggregate) Coverage() float64 {
	if a.ExpectedSamples == 0 {
		return 0
	}
	return float64(a.SampleCount) / float64(a.ExpectedSamples)
}

// BuildAggregate rolls a sample sequence up into a MetricAggregate for the
// given window. An empty sequence yields a zero aggregate with CoverageOK
// false, which is the expected shape for telemetry gaps.
func BuildAggregate(samples []models.MetricSample, window WindowSpec, granularity time.Duration, coverageThreshold float64) MetricAggregate {
	if coverageThreshold <= 0 {
		coverageThreshold = DefaultCoverageThreshold
	}

	summary := Summarize(samples)
	expected := window.ExpectedSamples(granularity)

	return MetricAggregate{
		Window:          window.Name,
		Average:         summary.Average,
		P95:             summary.P95,
		Peak:            summary.Peak,
		Min:             summary.Min,
		Sum:             summary.Sum,
		SampleCount:     summary.Count,
		ExpectedSamples: expected,
		CoverageOK:      expected > 0 && float64(summary.Count) >= float64(expected)*coverageThreshold,
		Granularity:     granularity,
		CV:              CoefficientOfVariation(samples),
		Trend:           ComputeGrowthTrend(samples),
	}
}
