package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/opscart/finops-scan/pkg/models"
)

var (
	// ErrRateLimited marks transient throttling by the telemetry backend.
	// It is the only error class the retry decorator acts on.
	ErrRateLimited = errors.New("telemetry source rate limited")

	// ErrAccessDenied marks missing permission for a metric or dimension.
	ErrAccessDenied = errors.New("telemetry access denied")

	// ErrBadQuery marks a malformed metric name or dimension set.
	ErrBadQuery = errors.New("malformed telemetry query")
)

// Query names one series fetch. Dimensions narrow the series to a single
// resource (or sub-resource); Period is the sampling granularity.
type Query struct {
	Metric     string
	Dimensions map[string]string
	Start      time.Time
	End        time.Time
	Period     time.Duration
	Statistic  models.Statistic
}

// Source is the external system providing raw time-series datapoints.
// Implementations paginate transparently and return samples ordered by
// timestamp ascending. An empty result is not an error: telemetry absence
// is expected and common.
type Source interface {
	FetchSeries(ctx context.Context, q Query) ([]models.MetricSample, error)
	Name() string
}

// IsRetryable reports whether an error is in the rate-limit class.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
