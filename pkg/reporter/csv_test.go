package reporter

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opscart/finops-scan/pkg/analyzer"
	"github.com/opscart/finops-scan/pkg/classifier"
	"github.com/opscart/finops-scan/pkg/models"
	"github.com/opscart/finops-scan/pkg/profile"
	"github.com/opscart/finops-scan/pkg/review"
)

func reportProfile() profile.Profile {
	return profile.Profile{
		Service:      "table",
		DimensionKey: "table",
		Channels: []profile.Channel{
			{Name: "read", Metric: "read_units", Statistic: models.StatSum},
		},
		Windows: []analyzer.WindowSpec{
			{Name: "7d", Duration: 7 * 24 * time.Hour, Granularity: 15 * time.Minute},
			{Name: "30d", Duration: 30 * 24 * time.Hour, Granularity: time.Hour},
		},
	}
}

func sampleRow() review.Row {
	return review.Row{
		Resource: models.Resource{
			ID: "t-orders", Name: "orders", Partition: "eu-west-1", Service: "table",
			BillingMode: "PAY_PER_REQUEST", SizeBytes: 5 * 1024 * 1024, ItemCount: 1200,
		},
		Aggregates: map[string]map[string]analyzer.MetricAggregate{
			"read": {
				"7d":  {Window: "7d", Average: 10, P95: 18, Peak: 20, Sum: 6720, SampleCount: 672, ExpectedSamples: 672, CoverageOK: true},
				"30d": {Window: "30d", Average: 9, P95: 17, Peak: 25, Sum: 6480, SampleCount: 720, ExpectedSamples: 720, CoverageOK: true},
			},
		},
		Indicators: analyzer.IndicatorSet{
			Channels: map[string]analyzer.ChannelIndicators{
				"read": {
					Stability: analyzer.Known(2.0),
					Spike:     analyzer.Unknown,
					Headroom:  analyzer.Known(0.72),
					AvgRate:   analyzer.Known(0.0025),
				},
			},
			AvgOpsPerSec: analyzer.Known(0.0025),
		},
		CoverageOK: true,
		Result: classifier.Result{
			Label:      classifier.LabelOnDemand,
			Reasons:    []string{"bursty or low sustained load; elastic capacity is the safe default"},
			Confidence: 0.6,
		},
		CollectedAt: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, reportProfile(), []review.Row{sampleRow()}))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)

	header, record := records[0], records[1]
	require.Equal(t, len(header), len(record))

	byName := make(map[string]string, len(header))
	for i, col := range header {
		byName[col] = record[i]
	}

	assert.Equal(t, "eu-west-1", byName["partition"])
	assert.Equal(t, "orders", byName["name"])
	assert.Equal(t, "5.00", byName["size_mb"])
	assert.Equal(t, "672", byName["read_7d_samples"])
	assert.Equal(t, "true", byName["read_7d_coverage_ok"])
	assert.Equal(t, "ON_DEMAND", byName["label"])

	// Unknown indicators render as the word, never as a fake zero.
	assert.Equal(t, "unknown", byName["read_spike"])
	assert.Equal(t, "2.0000", byName["read_stability"])
}

func TestWriteCSVEmptyRows(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, reportProfile(), nil))

	out := strings.TrimSpace(buf.String())
	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 1, "header only")
}

func TestPrintSummary(t *testing.T) {
	rows := []review.Row{
		sampleRow(),
		sampleRow(),
	}
	idle := sampleRow()
	idle.Result.Label = classifier.LabelIdle
	rows = append(rows, idle)

	var buf bytes.Buffer
	PrintSummary(&buf, rows)
	out := buf.String()

	assert.Contains(t, out, "Rows: 3")
	assert.Contains(t, out, "ON_DEMAND")
	assert.Contains(t, out, "IDLE")
}
