package telemetry

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/opscart/finops-scan/pkg/models"
	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
)

// PrometheusSource fetches series through the Prometheus HTTP API.
type PrometheusSource struct {
	promAPI v1.API
	url     string
}

// NewPrometheusSource creates a source for the given Prometheus base URL.
func NewPrometheusSource(url string) (*PrometheusSource, error) {
	client, err := api.NewClient(api.Config{Address: url})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}
	return &PrometheusSource{
		promAPI: v1.NewAPI(client),
		url:     url,
	}, nil
}

// NewPrometheusSourceWithClient wraps an existing API client, mainly for tests.
func NewPrometheusSourceWithClient(client api.Client) *PrometheusSource {
	return &PrometheusSource{promAPI: v1.NewAPI(client)}
}

// FetchSeries runs a range query with the statistic applied per granularity
// bucket. Multiple matching series are merged; the result is ordered by
// timestamp ascending.
func (p *PrometheusSource) FetchSeries(ctx context.Context, q Query) ([]models.MetricSample, error) {
	query := buildRangeQuery(q)

	result, warnings, err := p.promAPI.QueryRange(ctx, query, v1.Range{
		Start: q.Start,
		End:   q.End,
		Step:  q.Period,
	})
	if err != nil {
		return nil, classifyError(err)
	}
	_ = warnings // warnings carry no data-quality signal for range rollups

	matrix, ok := result.(model.Matrix)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected result type %T", ErrBadQuery, result)
	}

	var samples []models.MetricSample
	for _, series := range matrix {
		for _, value := range series.Values {
			samples = append(samples, models.MetricSample{
				Timestamp: value.Timestamp.Time(),
				Value:     float64(value.Value),
			})
		}
	}
	sort.Slice(samples, func(i, j int) bool {
		return samples[i].Timestamp.Before(samples[j].Timestamp)
	})
	return samples, nil
}

// IsAvailable probes the backend with a trivial query.
func (p *PrometheusSource) IsAvailable(ctx context.Context) bool {
	_, _, err := p.promAPI.Query(ctx, "up", time.Now())
	return err == nil
}

func (p *PrometheusSource) Name() string {
	return "prometheus"
}

// buildRangeQuery maps the abstract query to PromQL: the dimension set
// becomes label matchers and the statistic an *_over_time rollup per bucket.
func buildRangeQuery(q Query) string {
	matchers := make([]string, 0, len(q.Dimensions))
	for name, value := range q.Dimensions {
		matchers = append(matchers, fmt.Sprintf(`%s=%q`, name, value))
	}
	sort.Strings(matchers)

	selector := q.Metric
	if len(matchers) > 0 {
		selector = fmt.Sprintf("%s{%s}", q.Metric, strings.Join(matchers, ","))
	}

	window := model.Duration(q.Period).String()
	switch q.Statistic {
	case models.StatSum:
		return fmt.Sprintf("sum_over_time(%s[%s])", selector, window)
	case models.StatMaximum:
		return fmt.Sprintf("max_over_time(%s[%s])", selector, window)
	default:
		return fmt.Sprintf("avg_over_time(%s[%s])", selector, window)
	}
}

// classifyError maps Prometheus API failures onto the engine's taxonomy so
// that only genuine throttling is retried.
func classifyError(err error) error {
	apiErr, ok := err.(*v1.Error)
	if !ok {
		return err
	}

	msg := strings.ToLower(apiErr.Msg + " " + apiErr.Detail)
	switch {
	case strings.Contains(msg, fmt.Sprint(http.StatusTooManyRequests)) ||
		strings.Contains(msg, "too many requests") ||
		strings.Contains(msg, "throttl"):
		return fmt.Errorf("%w: %s", ErrRateLimited, apiErr.Msg)
	case strings.Contains(msg, "unauthorized") || strings.Contains(msg, "forbidden"):
		return fmt.Errorf("%w: %s", ErrAccessDenied, apiErr.Msg)
	case apiErr.Type == v1.ErrBadData:
		return fmt.Errorf("%w: %s", ErrBadQuery, apiErr.Msg)
	default:
		return err
	}
}
