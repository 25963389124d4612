package analyzer

import (
	"fmt"
	"time"
)

// Scalar is a derived value that knows whether it was computable at all.
// A literal zero is a valid idle signal; absent data must propagate as
// unknown instead of silently becoming zero inside a ratio.
type Scalar struct {
	Value float64
	Known bool
}

// Known wraps a computed value.
func Known(v float64) Scalar {
	return Scalar{Value: v, Known: true}
}

// Unknown is the scalar for values that could not be computed.
var Unknown = Scalar{}

func (s Scalar) String() string {
	if !s.Known {
		return "unknown"
	}
	return fmt.Sprintf("%.4f", s.Value)
}

// Stability is the peak-to-average ratio within one window. Low values mean
// steady load, high values spiky load. A zero average resolves to 0.
func Stability(peak, avg Scalar) Scalar {
	if !peak.Known || !avg.Known {
		return Unknown
	}
	if avg.Value <= 0 {
		return Known(0)
	}
	return Known(peak.Value / avg.Value)
}

// SpikeRatio is peak-over-average computed across windows of different
// length, detecting whether a short burst is representative of the trend.
func SpikeRatio(peak, longAvg Scalar) Scalar {
	return Stability(peak, longAvg)
}

// Headroom relates a recent short-window p95 to the long-window historical
// peak. Low headroom with stable load is the strongest resize-down signal.
// A zero long peak resolves to 0.
func Headroom(shortP95, longPeak Scalar) Scalar {
	if !shortP95.Known || !longPeak.Known {
		return Unknown
	}
	if longPeak.Value <= 0 {
		return Known(0)
	}
	return Known(shortP95.Value / longPeak.Value)
}

// ChannelIndicators are the derived ratios for one traffic channel
// (e.g. read, write, cpu) computed from its short and long window rollups.
type ChannelIndicators struct {
	Stability Scalar // short-window peak / short-window average
	Spike     Scalar // long-window peak / long-window average
	Headroom  Scalar // short-window p95 / long-window peak
	AvgRate   Scalar // long-window sum / window seconds
	Peak      Scalar // long-window peak
}

// IndicatorSet bundles per-channel indicators with the cross-channel
// aggregate rate used by the sustained-load check.
type IndicatorSet struct {
	Channels     map[string]ChannelIndicators
	AvgOpsPerSec Scalar
}

// ComputeChannel derives the ratios for one channel. Windows that delivered
// zero samples yield unknown scalars, never zero.
func ComputeChannel(short, long MetricAggregate, shortSpec, longSpec WindowSpec) ChannelIndicators {
	ind := ChannelIndicators{
		AvgRate: averageRate(long, longSpec.Duration),
	}
	if short.HasData() {
		ind.Stability = Stability(Known(short.Peak), Known(short.Average))
	}
	if long.HasData() {
		ind.Peak = Known(long.Peak)
		ind.Spike = SpikeRatio(Known(long.Peak), Known(long.Average))
	}
	if short.HasData() && long.HasData() {
		ind.Headroom = Headroom(Known(short.P95), Known(long.Peak))
	}
	return ind
}

// ComputeIndicators assembles the indicator set over all channels and sums
// the per-channel average rates into the overall ops/sec figure. The total
// is unknown only when every channel is unknown.
func ComputeIndicators(channels map[string]ChannelIndicators) IndicatorSet {
	set := IndicatorSet{Channels: channels}

	total := 0.0
	anyKnown := false
	for _, ch := range channels {
		if ch.AvgRate.Known {
			total += ch.AvgRate.Value
			anyKnown = true
		}
	}
	if anyKnown {
		set.AvgOpsPerSec = Known(total)
	}
	return set
}

func averageRate(agg MetricAggregate, duration time.Duration) Scalar {
	if !agg.HasData() {
		return Unknown
	}
	seconds := duration.Seconds()
	if seconds <= 0 {
		return Unknown
	}
	return Known(agg.Sum / seconds)
}
