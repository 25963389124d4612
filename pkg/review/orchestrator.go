package review

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/opscart/finops-scan/pkg/aggregator"
	"github.com/opscart/finops-scan/pkg/analyzer"
	"github.com/opscart/finops-scan/pkg/classifier"
	"github.com/opscart/finops-scan/pkg/inventory"
	"github.com/opscart/finops-scan/pkg/logger"
	"github.com/opscart/finops-scan/pkg/models"
	"github.com/opscart/finops-scan/pkg/profile"
	"github.com/opscart/finops-scan/pkg/telemetry"
)

// Config tunes one review run.
type Config struct {
	Workers           int
	PartitionTimeout  time.Duration
	MaxPointsPerCall  int
	MinGranularity    time.Duration
	CoverageThreshold float64
	CacheSize         int

	// SubResourceRows emits one extra row per sub-resource (broker node,
	// secondary index) in addition to the resource-level row.
	SubResourceRows bool
}

// Orchestrator drives a review run: enumerate resources per partition, fetch
// and roll up telemetry, derive indicators, classify, and collect one row per
// resource. It is the only component with side effects beyond the collaborator
// calls themselves.
type Orchestrator struct {
	inventory  inventory.Source
	telemetry  telemetry.Source
	thresholds classifier.Thresholds
	cfg        Config
}

// New creates an orchestrator over the given collaborators.
func New(inv inventory.Source, tel telemetry.Source, thresholds classifier.Thresholds, cfg Config) *Orchestrator {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &Orchestrator{
		inventory:  inv,
		telemetry:  tel,
		thresholds: thresholds,
		cfg:        cfg,
	}
}

// Run reviews every resource of every partition under the given profile.
// Partition and resource failures are logged and skipped; the run always
// completes and returns whatever rows it could compute. The returned error
// is reserved for invalid profiles, a programming error.
func (o *Orchestrator) Run(ctx context.Context, prof profile.Profile, partitions []string) ([]Row, error) {
	if err := prof.Validate(); err != nil {
		return nil, err
	}

	thresholds := o.thresholds
	if prof.Thresholds != nil {
		thresholds = *prof.Thresholds
	}
	engine := classifier.New(thresholds)

	// One bounded cache and one time anchor per run, so identical fetches
	// (sub-resource signals vs sub-resource rows) dedupe.
	source := newCachedSource(o.telemetry, o.cfg.CacheSize)
	now := time.Now().UTC()

	// Single appender: the only serialization point for rows.
	rowCh := make(chan Row)
	done := make(chan struct{})
	var rows []Row
	go func() {
		defer close(done)
		for row := range rowCh {
			rows = append(rows, row)
		}
	}()

	for _, partition := range partitions {
		o.runPartition(ctx, partition, prof, engine, source, now, rowCh)
	}

	close(rowCh)
	<-done

	hits, misses := source.Stats()
	logger.Infof("review complete: %d rows, cache %d hits / %d misses", len(rows), hits, misses)
	return rows, nil
}

// runPartition enumerates one partition and fans resources out to a bounded
// worker pool. The partition timeout cancels only in-flight fetches here;
// rows already sent to the appender are kept.
func (o *Orchestrator) runPartition(ctx context.Context, partition string, prof profile.Profile, engine *classifier.Engine, source telemetry.Source, now time.Time, rowCh chan<- Row) {
	pctx := ctx
	if o.cfg.PartitionTimeout > 0 {
		var cancel context.CancelFunc
		pctx, cancel = context.WithTimeout(ctx, o.cfg.PartitionTimeout)
		defer cancel()
	}

	resources, err := o.inventory.ListResources(pctx, partition)
	if err != nil {
		logger.WithPartition(partition).Warnf("partition skipped: %v", err)
		return
	}
	logger.WithPartition(partition).Infof("reviewing %d %s resources", len(resources), prof.Service)

	agg := aggregator.New(source, aggregator.Config{
		MaxPointsPerCall:  o.cfg.MaxPointsPerCall,
		MinGranularity:    o.cfg.MinGranularity,
		CoverageThreshold: o.cfg.CoverageThreshold,
		Now:               now,
	})

	resCh := make(chan models.Resource)
	var wg sync.WaitGroup
	for i := 0; i < o.cfg.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for res := range resCh {
				rows, err := o.reviewResource(pctx, agg, engine, prof, res)
				if err != nil {
					logger.WithResource(partition, res.ID).Warnf("resource skipped: %v", err)
					continue
				}
				for _, row := range rows {
					rowCh <- row
				}
			}
		}()
	}

	for _, res := range resources {
		select {
		case <-pctx.Done():
			logger.WithPartition(partition).Warnf("partition timed out, remaining resources skipped")
			close(resCh)
			wg.Wait()
			return
		case resCh <- res:
		}
	}
	close(resCh)
	wg.Wait()
}

// reviewResource runs aggregation, indicators and classification for one
// resource, plus optional per-sub-resource rows. All state is locally owned;
// nothing is shared between resources.
func (o *Orchestrator) reviewResource(ctx context.Context, agg *aggregator.Aggregator, engine *classifier.Engine, prof profile.Profile, res models.Resource) ([]Row, error) {
	detailed, err := o.inventory.DescribeResource(ctx, res.Partition, res.ID)
	switch {
	case errors.Is(err, inventory.ErrNotFound):
		return nil, fmt.Errorf("disappeared from inventory: %w", err)
	case err != nil:
		// Keep reviewing on the listed snapshot; describe is an enrichment.
		logger.WithResource(res.Partition, res.ID).Warnf("describe failed, using listed attributes: %v", err)
	default:
		res = *detailed
	}

	row, err := o.buildRow(ctx, agg, engine, prof, res, "")
	if err != nil {
		return nil, err
	}

	subs := res.SubResourceNames(prof.SubResourceKind)
	if prof.SubResourceKind != "" && len(subs) > 0 {
		o.collectSubSignals(ctx, agg, prof, res, subs, &row)
	}

	rows := []Row{row}
	if o.cfg.SubResourceRows {
		for _, sub := range subs {
			subRow, err := o.buildRow(ctx, agg, engine, prof, res, sub)
			if err != nil {
				logger.WithResource(res.Partition, res.ID).Warnf("sub-resource %s skipped: %v", sub, err)
				continue
			}
			rows = append(rows, subRow)
		}
	}
	return rows, nil
}

// buildRow assembles one row for the resource, or for one of its
// sub-resources when sub is non-empty.
func (o *Orchestrator) buildRow(ctx context.Context, agg *aggregator.Aggregator, engine *classifier.Engine, prof profile.Profile, res models.Resource, sub string) (Row, error) {
	shortSpec, longSpec := prof.ShortWindow(), prof.LongWindow()

	aggregates := make(map[string]map[string]analyzer.MetricAggregate, len(prof.Channels))
	channels := make(map[string]analyzer.ChannelIndicators, len(prof.Channels))
	coverageOK := true
	growing := false

	for _, ch := range prof.Channels {
		// A cancelled partition must skip the resource, not emit a row built
		// from aborted fetches.
		if err := ctx.Err(); err != nil {
			return Row{}, err
		}
		req := o.channelRequest(prof, ch, res, sub)
		windowAggs, err := agg.Collect(ctx, req, prof.Windows)
		if err != nil {
			return Row{}, err
		}
		aggregates[ch.Name] = windowAggs

		short, long := windowAggs[shortSpec.Name], windowAggs[longSpec.Name]
		channels[ch.Name] = analyzer.ComputeChannel(short, long, shortSpec, longSpec)
		if !long.CoverageOK {
			coverageOK = false
		}
		if long.Trend.Growing {
			growing = true
		}
	}

	throttleSum := o.collectThrottles(ctx, agg, prof, res, sub)

	indicators := analyzer.ComputeIndicators(channels)
	result := engine.Classify(classifier.Input{
		Indicators:  indicators,
		CoverageOK:  coverageOK,
		ThrottleSum: throttleSum,
		Growing:     growing,
		Resource:    &res,
	})

	return Row{
		Resource:    res,
		SubResource: sub,
		Aggregates:  aggregates,
		Indicators:  indicators,
		ThrottleSum: throttleSum,
		CoverageOK:  coverageOK,
		Result:      result,
		CollectedAt: time.Now().UTC(),
	}, nil
}

// channelRequest maps a profile channel onto a concrete fetch request for
// the resource (or sub-resource).
func (o *Orchestrator) channelRequest(prof profile.Profile, ch profile.Channel, res models.Resource, sub string) aggregator.Request {
	dims := map[string]string{prof.DimensionKey: res.Name}
	if sub != "" && prof.SubDimensionKey != "" {
		dims[prof.SubDimensionKey] = sub
	}

	req := aggregator.Request{
		Metric:     ch.MetricFor(res.Engine),
		Dimensions: dims,
		Statistic:  ch.Statistic,
		ResourceID: res.ID,
		Partition:  res.Partition,
	}
	if ch.FallbackMetric != "" {
		req.FallbackMetric = ch.FallbackMetric
		req.FallbackDimensions = map[string]string{ch.FallbackDimensionKey: res.Name}
	}
	return req
}

// collectThrottles sums every throttle metric over every window. Gaps count
// as zero: absence of a throttle series is not a problem signal.
func (o *Orchestrator) collectThrottles(ctx context.Context, agg *aggregator.Aggregator, prof profile.Profile, res models.Resource, sub string) float64 {
	total := 0.0
	for _, metric := range prof.ThrottleMetrics {
		dims := map[string]string{prof.DimensionKey: res.Name}
		if sub != "" && prof.SubDimensionKey != "" {
			dims[prof.SubDimensionKey] = sub
		}
		req := aggregator.Request{
			Metric:     metric,
			Dimensions: dims,
			Statistic:  models.StatSum,
			ResourceID: res.ID,
			Partition:  res.Partition,
		}
		for _, window := range prof.Windows {
			sum, err := agg.CollectSum(ctx, req, window)
			if err != nil {
				continue
			}
			total += sum
		}
	}
	return total
}

// collectSubSignals fills the hot-spot columns: the sub-resource with the
// highest long-window peak on the first channel, and the one with the most
// throttle events.
func (o *Orchestrator) collectSubSignals(ctx context.Context, agg *aggregator.Aggregator, prof profile.Profile, res models.Resource, subs []string, row *Row) {
	longSpec := prof.LongWindow()
	lead := prof.Channels[0]

	for _, sub := range subs {
		req := o.channelRequest(prof, lead, res, sub)
		windowAggs, err := agg.Collect(ctx, req, []analyzer.WindowSpec{longSpec})
		if err == nil {
			if peak := windowAggs[longSpec.Name].Peak; peak > row.TopSubPeak {
				row.TopSubPeak = peak
				row.TopSubByPeak = sub
			}
		}

		if throttles := o.collectThrottles(ctx, agg, prof, res, sub); throttles > row.TopSubThrottleSum {
			row.TopSubThrottleSum = throttles
			row.TopSubByThrottle = sub
		}
	}
}
