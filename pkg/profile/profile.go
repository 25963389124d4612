package profile

import (
	"fmt"
	"time"

	"github.com/opscart/finops-scan/pkg/analyzer"
	"github.com/opscart/finops-scan/pkg/classifier"
	"github.com/opscart/finops-scan/pkg/models"
)

// Channel is one traffic dimension of a service (reads, writes, cpu...).
// Telemetry for a channel is fetched per window with the channel's statistic.
type Channel struct {
	Name      string           `mapstructure:"name"`
	Metric    string           `mapstructure:"metric"`
	Statistic models.Statistic `mapstructure:"statistic"`

	// EngineMetrics overrides Metric per engine family, mirroring services
	// that expose different metric names per engine (e.g. RabbitMQ vs
	// ActiveMQ brokers).
	EngineMetrics map[string]string `mapstructure:"engine_metrics"`

	// FallbackMetric, when set, is tried with FallbackDimensionKey once the
	// primary fetch returns zero samples — typically a coarser, cluster-level
	// series substituted for a node-level one.
	FallbackMetric       string `mapstructure:"fallback_metric"`
	FallbackDimensionKey string `mapstructure:"fallback_dimension_key"`
}

// MetricFor resolves the channel's metric name for an engine family.
func (c Channel) MetricFor(engine string) string {
	if m, ok := c.EngineMetrics[engine]; ok {
		return m
	}
	return c.Metric
}

// Profile is the declarative review table for one service kind: metric
// names, dimension shapes, windows and threshold overrides. Profiles replace
// the per-script duplication of the scripts this engine consolidates.
type Profile struct {
	Service     string `mapstructure:"service"`
	Description string `mapstructure:"description"`

	// DimensionKey is the telemetry label that carries the resource
	// identifier (e.g. "table", "broker", "instance").
	DimensionKey string `mapstructure:"dimension_key"`

	// SubResourceKind/SubDimensionKey describe the optional finer-grained
	// child dimension (secondary index, broker node).
	SubResourceKind string `mapstructure:"sub_resource_kind"`
	SubDimensionKey string `mapstructure:"sub_dimension_key"`

	Channels []Channel `mapstructure:"channels"`

	// ThrottleMetrics are summed over every window; any non-zero total is a
	// "problem observed" signal that outranks all sizing rules.
	ThrottleMetrics []string `mapstructure:"throttle_metrics"`

	Windows []analyzer.WindowSpec `mapstructure:"windows"`

	// Thresholds, when non-nil, override the deployment-wide tuning.
	Thresholds *classifier.Thresholds `mapstructure:"thresholds"`
}

// Validate checks the profile and its windows; malformed window specs are
// programming errors and fail fast.
func (p Profile) Validate() error {
	if p.Service == "" {
		return fmt.Errorf("profile has no service name")
	}
	if p.DimensionKey == "" {
		return fmt.Errorf("profile %q: dimension_key is required", p.Service)
	}
	if len(p.Channels) == 0 {
		return fmt.Errorf("profile %q: at least one channel is required", p.Service)
	}
	if len(p.Windows) < 2 {
		return fmt.Errorf("profile %q: short and long windows are required", p.Service)
	}
	for _, w := range p.Windows {
		if err := w.Validate(); err != nil {
			return fmt.Errorf("profile %q: %w", p.Service, err)
		}
	}
	return nil
}

// ShortWindow is the first (recent, fine-grained) window of the profile.
func (p Profile) ShortWindow() analyzer.WindowSpec { return p.Windows[0] }

// LongWindow is the last (historical, coarse) window of the profile.
func (p Profile) LongWindow() analyzer.WindowSpec { return p.Windows[len(p.Windows)-1] }

// Builtins returns the stock profiles for the common service shapes.
func Builtins() []Profile {
	return []Profile{
		{
			Service:         "table",
			Description:     "Key-value table with consumed read/write capacity and per-index telemetry",
			DimensionKey:    "table",
			SubResourceKind: "index",
			SubDimensionKey: "index",
			Channels: []Channel{
				{Name: "read", Metric: "table_consumed_read_capacity_units", Statistic: models.StatSum},
				{Name: "write", Metric: "table_consumed_write_capacity_units", Statistic: models.StatSum},
			},
			ThrottleMetrics: []string{
				"table_read_throttle_events",
				"table_write_throttle_events",
			},
			Windows: analyzer.DefaultWindows(),
		},
		{
			Service:         "broker",
			Description:     "Message broker with engine-specific CPU/connection metrics and per-node telemetry",
			DimensionKey:    "broker",
			SubResourceKind: "node",
			SubDimensionKey: "node",
			Channels: []Channel{
				{
					Name:      "cpu",
					Metric:    "broker_cpu_utilization",
					Statistic: models.StatAverage,
					EngineMetrics: map[string]string{
						"rabbitmq": "broker_system_cpu_utilization",
					},
					FallbackMetric:       "broker_cluster_cpu_utilization",
					FallbackDimensionKey: "cluster",
				},
				{
					Name:      "messages",
					Metric:    "broker_enqueue_count",
					Statistic: models.StatSum,
					EngineMetrics: map[string]string{
						"rabbitmq": "broker_message_count",
					},
				},
			},
			ThrottleMetrics: []string{"broker_queue_depth_exceeded"},
			Windows: []analyzer.WindowSpec{
				{Name: "7d", Duration: 7 * 24 * time.Hour, Granularity: 5 * time.Minute},
				{Name: "30d", Duration: 30 * 24 * time.Hour, Granularity: time.Hour},
			},
		},
		{
			Service:      "instance",
			Description:  "Compute/database instance reviewed on CPU and IOPS utilization",
			DimensionKey: "instance",
			Channels: []Channel{
				{Name: "cpu", Metric: "instance_cpu_utilization", Statistic: models.StatAverage},
				{Name: "read_iops", Metric: "instance_read_iops", Statistic: models.StatAverage},
				{Name: "write_iops", Metric: "instance_write_iops", Statistic: models.StatAverage},
			},
			Windows: analyzer.DefaultWindows(),
		},
	}
}

// Find returns the built-in or provided profile with the given service key.
func Find(profiles []Profile, service string) (Profile, error) {
	for _, p := range profiles {
		if p.Service == service {
			return p, nil
		}
	}
	return Profile{}, fmt.Errorf("unknown review profile %q", service)
}
