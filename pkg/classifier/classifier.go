package classifier

import (
	"fmt"

	"github.com/opscart/finops-scan/pkg/analyzer"
	"github.com/opscart/finops-scan/pkg/models"
)

// Label is the final verdict for one resource.
type Label string

const (
	LabelNeedMoreData        Label = "NEED_MORE_DATA"
	LabelOnDemandThrottles   Label = "ON_DEMAND_THROTTLES"
	LabelIdle                Label = "IDLE"
	LabelProvisionedStrong   Label = "PROVISIONED_STRONG"
	LabelProvisionedCautious Label = "PROVISIONED_CAUTIOUS"
	LabelOnDemand            Label = "ON_DEMAND"
)

// Thresholds are the tunable decision constants. Values vary per deployment;
// defaults follow the most common tuning of the review fleet.
type Thresholds struct {
	StableMax       float64 `mapstructure:"stable_max"`        // stability <= this is "stable"
	SemiStableMax   float64 `mapstructure:"semi_stable_max"`   // stability <= this is "semi-stable"
	SpikeLowMax     float64 `mapstructure:"spike_low_max"`     // spike ratio <= this is low burst
	SpikeMediumMax  float64 `mapstructure:"spike_medium_max"`  // spike ratio <= this is medium burst
	SustainedMinOps float64 `mapstructure:"sustained_min_ops"` // avg ops/sec floor for "sustained"
	HeadroomMax     float64 `mapstructure:"headroom_max"`      // headroom <= this is "low headroom"
	IdleAvgMax      float64 `mapstructure:"idle_avg_max"`      // avg rate below this is idle
	IdlePeakMax     float64 `mapstructure:"idle_peak_max"`     // peak below this is idle
}

// DefaultThresholds returns the stock tuning.
func DefaultThresholds() Thresholds {
	return Thresholds{
		StableMax:       2.0,
		SemiStableMax:   3.0,
		SpikeLowMax:     2.0,
		SpikeMediumMax:  4.0,
		SustainedMinOps: 10.0,
		HeadroomMax:     0.6,
		IdleAvgMax:      0.05,
		IdlePeakMax:     1.0,
	}
}

// Input is everything a classification depends on. Classify is a pure
// function of this struct: same input, same result.
type Input struct {
	Indicators analyzer.IndicatorSet

	// CoverageOK is the primary-window coverage verdict across channels.
	CoverageOK bool

	// ThrottleSum is the total count of throttle/backpressure events
	// observed in any lookback window.
	ThrottleSum float64

	// Growing is true when the long-window trend shows sustained growth.
	Growing bool

	Resource *models.Resource
}

// Result is the structured verdict: label plus the ordered list of
// contributing reasons, so the output is auditable. String rendering is the
// reporter's concern.
type Result struct {
	Label      Label
	Reasons    []string
	Confidence float64
}

// Engine evaluates a strictly ordered rule list, first match wins. The order
// is the tie-break policy: throttling outranks steadiness, coverage outranks
// everything.
type Engine struct {
	thresholds Thresholds
}

// New creates an engine with the given thresholds.
func New(t Thresholds) *Engine {
	return &Engine{thresholds: t}
}

// Classify maps indicators plus static attributes to one label.
func (e *Engine) Classify(in Input) Result {
	t := e.thresholds

	// Rule 1: never judge a window we barely saw.
	if !in.CoverageOK {
		return Result{
			Label:      LabelNeedMoreData,
			Reasons:    []string{"insufficient telemetry coverage for the primary window"},
			Confidence: 1.0,
		}
	}

	// Rule 2: observed backpressure means capacity is already wrong in the
	// unsafe direction. Do not recommend any change that reduces it.
	if in.ThrottleSum > 0 {
		return Result{
			Label: LabelOnDemandThrottles,
			Reasons: []string{
				fmt.Sprintf("throttles observed (%.0f events in lookback)", in.ThrottleSum),
				"keep elastic capacity until throttling is resolved",
			},
			Confidence: 0.95,
		}
	}

	// Rule 3: idle across all indicators.
	if e.isIdle(in.Indicators) {
		return Result{
			Label: LabelIdle,
			Reasons: []string{
				fmt.Sprintf("average load below %.2f ops/sec and peak below %.2f across all windows", t.IdleAvgMax, t.IdlePeakMax),
				"review whether the resource is still needed",
			},
			Confidence: 0.9,
		}
	}

	stable := e.allChannels(in.Indicators, func(ch analyzer.ChannelIndicators) (analyzer.Scalar, float64) {
		return ch.Stability, t.StableMax
	})
	semiStable := e.allChannels(in.Indicators, func(ch analyzer.ChannelIndicators) (analyzer.Scalar, float64) {
		return ch.Stability, t.SemiStableMax
	})
	lowBurst := e.allChannels(in.Indicators, func(ch analyzer.ChannelIndicators) (analyzer.Scalar, float64) {
		return ch.Spike, t.SpikeLowMax
	})
	medBurst := e.allChannels(in.Indicators, func(ch analyzer.ChannelIndicators) (analyzer.Scalar, float64) {
		return ch.Spike, t.SpikeMediumMax
	})
	lowHeadroom := e.allChannels(in.Indicators, func(ch analyzer.ChannelIndicators) (analyzer.Scalar, float64) {
		return ch.Headroom, t.HeadroomMax
	})
	sustained := in.Indicators.AvgOpsPerSec.Known && in.Indicators.AvgOpsPerSec.Value >= t.SustainedMinOps

	// Rule 4: steady, sustained, close to its own historical ceiling.
	if stable && lowBurst && sustained && lowHeadroom {
		reasons := []string{
			fmt.Sprintf("stable load (peak/avg <= %.1f in the short window)", t.StableMax),
			fmt.Sprintf("sustained traffic (avg %.2f ops/sec >= %.1f)", in.Indicators.AvgOpsPerSec.Value, t.SustainedMinOps),
			fmt.Sprintf("low headroom (recent p95 within %.0f%% of the historical peak)", t.HeadroomMax*100),
			"rightsize to steady provisioned capacity, autoscaling target ~70%",
		}
		reasons = e.appendBillingReason(reasons, in.Resource)
		return Result{Label: LabelProvisionedStrong, Reasons: reasons, Confidence: 0.9}
	}

	// Rule 5: still sustained, but with bursts that demand alarms.
	if sustained && (semiStable || medBurst) {
		reasons := []string{
			fmt.Sprintf("sustained traffic (avg %.2f ops/sec >= %.1f)", in.Indicators.AvgOpsPerSec.Value, t.SustainedMinOps),
			"moderately bursty load; provision with autoscaling alarms and monitor",
		}
		reasons = e.appendBillingReason(reasons, in.Resource)
		return Result{Label: LabelProvisionedCautious, Reasons: reasons, Confidence: 0.75}
	}

	// Rule 6: the safe default.
	reasons := []string{"bursty or low sustained load; elastic capacity is the safe default"}
	if in.Growing {
		reasons = append(reasons, "load is growing; revisit after the trend settles")
	}
	return Result{Label: LabelOnDemand, Reasons: reasons, Confidence: 0.6}
}

// isIdle requires every channel with a known rate to sit below the idle
// thresholds, and at least one channel to be known at all.
func (e *Engine) isIdle(set analyzer.IndicatorSet) bool {
	anyKnown := false
	for _, ch := range set.Channels {
		if !ch.AvgRate.Known {
			continue
		}
		anyKnown = true
		if ch.AvgRate.Value > e.thresholds.IdleAvgMax {
			return false
		}
		if ch.Peak.Known && ch.Peak.Value > e.thresholds.IdlePeakMax {
			return false
		}
	}
	return anyKnown
}

// allChannels is true when the selected scalar is known and below its limit
// for every channel. Unknown indicators never satisfy a positive rule.
func (e *Engine) allChannels(set analyzer.IndicatorSet, pick func(analyzer.ChannelIndicators) (analyzer.Scalar, float64)) bool {
	if len(set.Channels) == 0 {
		return false
	}
	for _, ch := range set.Channels {
		scalar, limit := pick(ch)
		if !scalar.Known || scalar.Value > limit {
			return false
		}
	}
	return true
}

// appendBillingReason annotates provisioned verdicts with the billing-mode
// change they imply, when the static attributes reveal one.
func (e *Engine) appendBillingReason(reasons []string, res *models.Resource) []string {
	if res == nil {
		return reasons
	}
	switch res.BillingMode {
	case "PAY_PER_REQUEST", "ON_DEMAND":
		return append(reasons, "currently on-demand; switching to provisioned capacity realizes the savings")
	case "PROVISIONED":
		return append(reasons, "already provisioned; review the autoscaling target instead")
	}
	return reasons
}
