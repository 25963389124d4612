package telemetry

import (
	"context"
	"time"

	"github.com/opscart/finops-scan/pkg/logger"
	"github.com/opscart/finops-scan/pkg/models"
)

// RetrySource decorates a Source with capped exponential backoff for
// rate-limit-class errors. All other errors pass through on the first
// attempt: access-denied and malformed queries do not heal with time.
type RetrySource struct {
	source      Source
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration
}

// RetryConfig tunes the backoff schedule.
type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// NewRetrySource wraps a source with the given retry policy. Zero-valued
// fields fall back to 5 attempts starting at 500ms capped at 30s.
func NewRetrySource(source Source, cfg RetryConfig) *RetrySource {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = 500 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	return &RetrySource{
		source:      source,
		maxAttempts: cfg.MaxAttempts,
		baseDelay:   cfg.BaseDelay,
		maxDelay:    cfg.MaxDelay,
	}
}

// FetchSeries fetches with retries on throttling, honoring ctx cancellation
// between attempts.
func (r *RetrySource) FetchSeries(ctx context.Context, q Query) ([]models.MetricSample, error) {
	var lastErr error
	delay := r.baseDelay

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		samples, err := r.source.FetchSeries(ctx, q)
		if err == nil {
			return samples, nil
		}
		if !IsRetryable(err) {
			return nil, err
		}

		lastErr = err
		logger.WithField("metric", q.Metric).Warnf(
			"rate limited, attempt %d/%d, backing off %s", attempt, r.maxAttempts, delay)

		if attempt == r.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if delay > r.maxDelay {
			delay = r.maxDelay
		}
	}
	return nil, lastErr
}

func (r *RetrySource) Name() string {
	return r.source.Name()
}
