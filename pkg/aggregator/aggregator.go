package aggregator

import (
	"context"
	"fmt"
	"time"

	"github.com/opscart/finops-scan/pkg/analyzer"
	"github.com/opscart/finops-scan/pkg/logger"
	"github.com/opscart/finops-scan/pkg/models"
	"github.com/opscart/finops-scan/pkg/telemetry"
)

// Request names one metric fetch for a resource: the primary dimension set
// and an optional coarser fallback tried only when the primary comes back
// empty.
type Request struct {
	Metric             string
	Dimensions         map[string]string
	FallbackMetric     string
	FallbackDimensions map[string]string
	Statistic          models.Statistic

	// ResourceID is used for skip logging only.
	ResourceID string
	Partition  string
}

// Aggregator turns raw telemetry into per-window MetricAggregates with
// coverage tracking. Fetch failures degrade to empty windows; the only error
// it ever returns is a malformed WindowSpec, which is a programming error.
type Aggregator struct {
	source            telemetry.Source
	maxPoints         int
	minGranularity    time.Duration
	coverageThreshold float64
	now               time.Time
}

// Config tunes the aggregator against the telemetry source's limits.
type Config struct {
	MaxPointsPerCall  int
	MinGranularity    time.Duration
	CoverageThreshold float64

	// Now anchors every window's time range so that identical fetches within
	// one run are cacheable. Zero means time.Now at construction.
	Now time.Time
}

// New creates an aggregator over the given source.
func New(source telemetry.Source, cfg Config) *Aggregator {
	if cfg.MaxPointsPerCall <= 0 {
		cfg.MaxPointsPerCall = analyzer.DefaultMaxPointsPerCall
	}
	if cfg.MinGranularity <= 0 {
		cfg.MinGranularity = analyzer.DefaultMinGranularity
	}
	if cfg.CoverageThreshold <= 0 {
		cfg.CoverageThreshold = analyzer.DefaultCoverageThreshold
	}
	if cfg.Now.IsZero() {
		cfg.Now = time.Now().UTC()
	}
	return &Aggregator{
		source:            source,
		maxPoints:         cfg.MaxPointsPerCall,
		minGranularity:    cfg.MinGranularity,
		coverageThreshold: cfg.CoverageThreshold,
		now:               cfg.Now,
	}
}

// Collect produces one MetricAggregate per window, keyed by window name.
func (a *Aggregator) Collect(ctx context.Context, req Request, windows []analyzer.WindowSpec) (map[string]analyzer.MetricAggregate, error) {
	out := make(map[string]analyzer.MetricAggregate, len(windows))
	for _, window := range windows {
		agg, err := a.collectWindow(ctx, req, window)
		if err != nil {
			return nil, err
		}
		out[window.Name] = agg
	}
	return out, nil
}

// CollectSum fetches the metric over one window and returns the total sum,
// the shape throttle/error counters are consumed in.
func (a *Aggregator) CollectSum(ctx context.Context, req Request, window analyzer.WindowSpec) (float64, error) {
	agg, err := a.collectWindow(ctx, req, window)
	if err != nil {
		return 0, err
	}
	return agg.Sum, nil
}

func (a *Aggregator) collectWindow(ctx context.Context, req Request, window analyzer.WindowSpec) (analyzer.MetricAggregate, error) {
	if err := window.Validate(); err != nil {
		return analyzer.MetricAggregate{}, fmt.Errorf("invalid window spec: %w", err)
	}

	granularity := window.EffectiveGranularity(a.maxPoints, a.minGranularity)
	start, end := window.Range(a.now)

	samples := a.fetch(ctx, req.Metric, req.Dimensions, start, end, granularity, req.Statistic, req, window)

	fallback := false
	if len(samples) == 0 && req.FallbackMetric != "" {
		samples = a.fetch(ctx, req.FallbackMetric, req.FallbackDimensions, start, end, granularity, req.Statistic, req, window)
		fallback = len(samples) > 0
	}

	agg := analyzer.BuildAggregate(samples, window, granularity, a.coverageThreshold)
	agg.Fallback = fallback
	return agg, nil
}

// fetch degrades every source failure to an empty sample set, logged as a
// skip. Telemetry absence is expected (new resources, disabled metrics,
// missing permission) and must never abort the resource or the batch.
func (a *Aggregator) fetch(ctx context.Context, metric string, dims map[string]string, start, end time.Time, period time.Duration, stat models.Statistic, req Request, window analyzer.WindowSpec) []models.MetricSample {
	samples, err := a.source.FetchSeries(ctx, telemetry.Query{
		Metric:     metric,
		Dimensions: dims,
		Start:      start,
		End:        end,
		Period:     period,
		Statistic:  stat,
	})
	if err != nil {
		logger.WithResource(req.Partition, req.ResourceID).WithFields(map[string]interface{}{
			"metric": metric,
			"window": window.Name,
		}).Warnf("telemetry fetch skipped: %v", err)
		return nil
	}
	return samples
}
