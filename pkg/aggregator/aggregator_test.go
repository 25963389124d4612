package aggregator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opscart/finops-scan/pkg/analyzer"
	"github.com/opscart/finops-scan/pkg/models"
	"github.com/opscart/finops-scan/pkg/telemetry"
)

// scriptedSource serves canned sample sets keyed by metric name and records
// every query it sees.
type scriptedSource struct {
	samples map[string][]models.MetricSample
	errs    map[string]error
	queries []telemetry.Query
}

func (s *scriptedSource) FetchSeries(ctx context.Context, q telemetry.Query) ([]models.MetricSample, error) {
	s.queries = append(s.queries, q)
	if err, ok := s.errs[q.Metric]; ok {
		return nil, err
	}
	return s.samples[q.Metric], nil
}

func (s *scriptedSource) Name() string { return "scripted" }

func window(name string, d, g time.Duration) analyzer.WindowSpec {
	return analyzer.WindowSpec{Name: name, Duration: d, Granularity: g}
}

func fullSeries(n int, end time.Time, step time.Duration, value float64) []models.MetricSample {
	samples := make([]models.MetricSample, n)
	for i := range samples {
		samples[i] = models.MetricSample{
			Timestamp: end.Add(-time.Duration(n-i) * step),
			Value:     value,
		}
	}
	return samples
}

func TestCollectBuildsPerWindowAggregates(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	short := window("1d", 24*time.Hour, time.Hour)
	long := window("2d", 48*time.Hour, time.Hour)

	src := &scriptedSource{samples: map[string][]models.MetricSample{
		"reads": fullSeries(48, now, time.Hour, 10),
	}}
	agg := New(src, Config{Now: now})

	out, err := agg.Collect(context.Background(), Request{Metric: "reads", Statistic: models.StatSum}, []analyzer.WindowSpec{short, long})
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, 48, out["1d"].SampleCount)
	assert.True(t, out["2d"].CoverageOK)
	assert.False(t, out["1d"].Fallback)
}

func TestCollectInvalidWindowFails(t *testing.T) {
	src := &scriptedSource{}
	agg := New(src, Config{})

	_, err := agg.Collect(context.Background(), Request{Metric: "m"}, []analyzer.WindowSpec{{Name: "bad"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid window spec")
	assert.Empty(t, src.queries)
}

func TestCollectDegradesSourceErrorsToEmptyWindow(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	src := &scriptedSource{errs: map[string]error{"m": errors.New("backend down")}}
	agg := New(src, Config{Now: now})

	out, err := agg.Collect(context.Background(), Request{Metric: "m"}, []analyzer.WindowSpec{window("1d", 24*time.Hour, time.Hour)})
	require.NoError(t, err)
	got := out["1d"]
	assert.False(t, got.HasData())
	assert.False(t, got.CoverageOK)
}

func TestCollectFallbackUsedWhenPrimaryEmpty(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	src := &scriptedSource{samples: map[string][]models.MetricSample{
		"cluster_cpu": fullSeries(24, now, time.Hour, 50),
	}}
	agg := New(src, Config{Now: now})

	req := Request{
		Metric:             "node_cpu",
		Dimensions:         map[string]string{"node": "n1"},
		FallbackMetric:     "cluster_cpu",
		FallbackDimensions: map[string]string{"cluster": "c1"},
		Statistic:          models.StatAverage,
	}
	out, err := agg.Collect(context.Background(), req, []analyzer.WindowSpec{window("1d", 24*time.Hour, time.Hour)})
	require.NoError(t, err)

	got := out["1d"]
	assert.True(t, got.HasData())
	assert.True(t, got.Fallback)

	require.Len(t, src.queries, 2)
	assert.Equal(t, "node_cpu", src.queries[0].Metric)
	assert.Equal(t, "cluster_cpu", src.queries[1].Metric)
	assert.Equal(t, map[string]string{"cluster": "c1"}, src.queries[1].Dimensions)
}

func TestCollectFallbackNotUsedWhenPrimaryHasData(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	src := &scriptedSource{samples: map[string][]models.MetricSample{
		"node_cpu":    fullSeries(24, now, time.Hour, 50),
		"cluster_cpu": fullSeries(24, now, time.Hour, 70),
	}}
	agg := New(src, Config{Now: now})

	req := Request{Metric: "node_cpu", FallbackMetric: "cluster_cpu", Statistic: models.StatAverage}
	out, err := agg.Collect(context.Background(), req, []analyzer.WindowSpec{window("1d", 24*time.Hour, time.Hour)})
	require.NoError(t, err)

	assert.False(t, out["1d"].Fallback)
	assert.Len(t, src.queries, 1)
}

func TestCollectClampsGranularityToPointCeiling(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	src := &scriptedSource{}
	agg := New(src, Config{MaxPointsPerCall: 1440, MinGranularity: 60 * time.Second, Now: now})

	// 30d at 60s would be 43200 points per call.
	w := window("30d", 30*24*time.Hour, 60*time.Second)
	_, err := agg.Collect(context.Background(), Request{Metric: "m"}, []analyzer.WindowSpec{w})
	require.NoError(t, err)

	require.Len(t, src.queries, 1)
	q := src.queries[0]
	assert.Equal(t, 30*time.Minute, q.Period)
	assert.Equal(t, now.Add(-30*24*time.Hour), q.Start)
	assert.Equal(t, now, q.End)
}

func TestCollectSum(t *testing.T) {
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	src := &scriptedSource{samples: map[string][]models.MetricSample{
		"throttles": fullSeries(10, now, time.Hour, 3),
	}}
	agg := New(src, Config{Now: now})

	sum, err := agg.CollectSum(context.Background(), Request{Metric: "throttles", Statistic: models.StatSum}, window("1d", 24*time.Hour, time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 30.0, sum)
}
