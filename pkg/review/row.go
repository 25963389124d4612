package review

import (
	"time"

	"github.com/opscart/finops-scan/pkg/analyzer"
	"github.com/opscart/finops-scan/pkg/classifier"
	"github.com/opscart/finops-scan/pkg/models"
)

// Row is one line of review output: resource identity and static attributes,
// the per-window rollups the engine computed, the derived indicators, and the
// final classification. Serialization of the row is the reporter's concern.
type Row struct {
	Resource models.Resource

	// SubResource is set on per-node/per-index rows and empty on the
	// resource-level row.
	SubResource string

	// Aggregates is keyed by channel name, then window name.
	Aggregates map[string]map[string]analyzer.MetricAggregate

	Indicators  analyzer.IndicatorSet
	ThrottleSum float64

	// Top sub-resource hot-spot signals (empty when the profile defines no
	// sub-resource dimension).
	TopSubByPeak      string
	TopSubPeak        float64
	TopSubByThrottle  string
	TopSubThrottleSum float64

	// CoverageOK is the primary-window coverage verdict across channels.
	CoverageOK bool

	Result classifier.Result

	CollectedAt time.Time
}
