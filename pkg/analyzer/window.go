package analyzer

import (
	"fmt"
	"time"
)

// Telemetry source limits shared by every window. MaxPointsPerCall matches
// the per-call datapoint ceiling of the usual sources; MinGranularity is the
// smallest addressable period.
const (
	DefaultMaxPointsPerCall = 1440
	DefaultMinGranularity   = 60 * time.Second
)

// WindowSpec names a lookback period paired with a sampling granularity.
type WindowSpec struct {
	Name        string
	Duration    time.Duration
	Granularity time.Duration
}

// Validate rejects malformed specs. Violations are programming errors and
// must surface at startup, not be patched at runtime.
func (w WindowSpec) Validate() error {
	if w.Name == "" {
		return fmt.Errorf("window spec has no name")
	}
	if w.Duration <= 0 {
		return fmt.Errorf("window %q: duration must be positive, got %s", w.Name, w.Duration)
	}
	if w.Granularity <= 0 {
		return fmt.Errorf("window %q: granularity must be positive, got %s", w.Name, w.Granularity)
	}
	return nil
}

// EffectiveGranularity raises the requested granularity, if needed, so that
// Duration/Granularity never exceeds maxPoints, then rounds the result up to
// a multiple of minGranularity. Callers never receive a "too many points"
// failure from the underlying source.
func (w WindowSpec) EffectiveGranularity(maxPoints int, minGranularity time.Duration) time.Duration {
	if maxPoints <= 0 {
		maxPoints = DefaultMaxPointsPerCall
	}
	if minGranularity <= 0 {
		minGranularity = DefaultMinGranularity
	}

	granularity := w.Granularity
	floor := (w.Duration + time.Duration(maxPoints) - 1) / time.Duration(maxPoints)
	if granularity < floor {
		granularity = floor
	}
	if rem := granularity % minGranularity; rem != 0 {
		granularity += minGranularity - rem
	}
	if granularity < minGranularity {
		granularity = minGranularity
	}
	return granularity
}

// ExpectedSamples is the number of datapoints a fully covered window yields.
func (w WindowSpec) ExpectedSamples(granularity time.Duration) int {
	if granularity <= 0 {
		return 0
	}
	return int(w.Duration / granularity)
}

// Range returns the [start, end) time range of the window ending at now.
func (w WindowSpec) Range(now time.Time) (time.Time, time.Time) {
	return now.Add(-w.Duration), now
}

// DefaultWindows are the short/long window pair used by the built-in review
// profiles: 7 days at 15 minutes and 30 days at 1 hour.
func DefaultWindows() []WindowSpec {
	return []WindowSpec{
		{Name: "7d", Duration: 7 * 24 * time.Hour, Granularity: 15 * time.Minute},
		{Name: "30d", Duration: 30 * 24 * time.Hour, Granularity: time.Hour},
	}
}
