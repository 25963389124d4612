package models

import "time"

// MetricSample is a single datapoint returned by a telemetry source.
// Samples within one window are ordered by timestamp ascending.
type MetricSample struct {
	Timestamp time.Time
	Value     float64
}

// Statistic selects how the telemetry source rolls up raw datapoints
// inside one granularity bucket.
type Statistic string

const (
	StatAverage Statistic = "Average"
	StatSum     Statistic = "Sum"
	StatMaximum Statistic = "Maximum"
)
