package reporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/opscart/finops-scan/pkg/analyzer"
	"github.com/opscart/finops-scan/pkg/profile"
	"github.com/opscart/finops-scan/pkg/review"
)

// WriteCSV renders review rows as CSV. The column set is derived from the
// profile's channels and windows so every per-window aggregate field the
// engine computed lands in the output.
func WriteCSV(w io.Writer, prof profile.Profile, rows []review.Row) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := buildHeader(prof)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, row := range rows {
		record := buildRecord(prof, row)
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func buildHeader(prof profile.Profile) []string {
	header := []string{
		"partition", "service", "resource_id", "name", "sub_resource",
		"engine", "instance_class", "storage_type", "billing_mode",
		"size_mb", "item_count",
	}

	for _, ch := range prof.Channels {
		for _, win := range prof.Windows {
			prefix := ch.Name + "_" + win.Name + "_"
			header = append(header,
				prefix+"avg", prefix+"p95", prefix+"peak", prefix+"sum",
				prefix+"samples", prefix+"expected", prefix+"coverage_ok", prefix+"fallback",
			)
		}
		header = append(header,
			ch.Name+"_stability", ch.Name+"_spike", ch.Name+"_headroom", ch.Name+"_avg_rate",
		)
	}

	header = append(header,
		"avg_ops_sec", "coverage_ok", "throttle_sum",
		"top_sub_by_peak", "top_sub_peak", "top_sub_by_throttle", "top_sub_throttle_sum",
		"label", "confidence", "reasons",
	)
	return header
}

func buildRecord(prof profile.Profile, row review.Row) []string {
	record := []string{
		row.Resource.Partition,
		row.Resource.Service,
		row.Resource.ID,
		row.Resource.Name,
		row.SubResource,
		row.Resource.Engine,
		row.Resource.InstanceClass,
		row.Resource.StorageType,
		row.Resource.BillingMode,
		fmt.Sprintf("%.2f", float64(row.Resource.SizeBytes)/(1024*1024)),
		strconv.FormatInt(row.Resource.ItemCount, 10),
	}

	for _, ch := range prof.Channels {
		windowAggs := row.Aggregates[ch.Name]
		for _, win := range prof.Windows {
			agg := windowAggs[win.Name]
			record = append(record,
				formatFloat(agg.Average),
				formatFloat(agg.P95),
				formatFloat(agg.Peak),
				formatFloat(agg.Sum),
				strconv.Itoa(agg.SampleCount),
				strconv.Itoa(agg.ExpectedSamples),
				strconv.FormatBool(agg.CoverageOK),
				strconv.FormatBool(agg.Fallback),
			)
		}
		ind := row.Indicators.Channels[ch.Name]
		record = append(record,
			formatScalar(ind.Stability),
			formatScalar(ind.Spike),
			formatScalar(ind.Headroom),
			formatScalar(ind.AvgRate),
		)
	}

	record = append(record,
		formatScalar(row.Indicators.AvgOpsPerSec),
		strconv.FormatBool(row.CoverageOK),
		fmt.Sprintf("%.0f", row.ThrottleSum),
		row.TopSubByPeak,
		formatFloat(row.TopSubPeak),
		row.TopSubByThrottle,
		fmt.Sprintf("%.0f", row.TopSubThrottleSum),
		string(row.Result.Label),
		fmt.Sprintf("%.2f", row.Result.Confidence),
		strings.Join(row.Result.Reasons, "; "),
	)
	return record
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}

func formatScalar(s analyzer.Scalar) string {
	if !s.Known {
		return "unknown"
	}
	return strconv.FormatFloat(s.Value, 'f', 4, 64)
}
