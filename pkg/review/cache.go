package review

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/opscart/finops-scan/pkg/models"
	"github.com/opscart/finops-scan/pkg/telemetry"
)

// cachedSource memoizes successful fetches for the lifetime of one run,
// keyed by (metric, dimensions, window). It replaces the ad hoc module-level
// memoization dictionaries of the scripts this engine consolidates: the
// cache is explicit, bounded, and dies with the run. Errors are not cached.
type cachedSource struct {
	source telemetry.Source
	max    int

	mu      sync.Mutex
	entries map[string][]models.MetricSample
	order   []string
	hits    int
	misses  int
}

func newCachedSource(source telemetry.Source, max int) *cachedSource {
	if max <= 0 {
		max = 4096
	}
	return &cachedSource{
		source:  source,
		max:     max,
		entries: make(map[string][]models.MetricSample),
	}
}

func (c *cachedSource) FetchSeries(ctx context.Context, q telemetry.Query) ([]models.MetricSample, error) {
	key := cacheKey(q)

	c.mu.Lock()
	if samples, ok := c.entries[key]; ok {
		c.hits++
		c.mu.Unlock()
		return samples, nil
	}
	c.misses++
	c.mu.Unlock()

	samples, err := c.source.FetchSeries(ctx, q)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if _, ok := c.entries[key]; !ok {
		if len(c.order) >= c.max {
			oldest := c.order[0]
			c.order = c.order[1:]
			delete(c.entries, oldest)
		}
		c.entries[key] = samples
		c.order = append(c.order, key)
	}
	c.mu.Unlock()
	return samples, nil
}

func (c *cachedSource) Name() string {
	return c.source.Name()
}

// Stats returns hit/miss counters for end-of-run logging.
func (c *cachedSource) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

func cacheKey(q telemetry.Query) string {
	dims := make([]string, 0, len(q.Dimensions))
	for k, v := range q.Dimensions {
		dims = append(dims, k+"="+v)
	}
	sort.Strings(dims)
	return fmt.Sprintf("%s|%s|%d|%d|%d|%s",
		q.Metric, strings.Join(dims, ","), q.Start.Unix(), q.End.Unix(), int(q.Period.Seconds()), q.Statistic)
}
