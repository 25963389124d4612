package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/opscart/finops-scan/pkg/models"
	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
)

// PrometheusSource discovers resources from series metadata: identifiers
// come from label values, static attributes from an info-style metric whose
// labels carry the configuration. Useful where no dedicated inventory API
// exists but everything under review already emits telemetry.
type PrometheusSource struct {
	promAPI v1.API

	// dimensionKey is the label carrying the resource identifier;
	// infoMetric the info-style series with static attribute labels.
	dimensionKey   string
	partitionLabel string
	infoMetric     string
	service        string
	lookback       time.Duration
}

// PrometheusConfig binds the discovery to a profile's label shape.
type PrometheusConfig struct {
	URL            string
	DimensionKey   string
	PartitionLabel string // label carrying the partition, e.g. "region"
	InfoMetric     string
	Service        string
	Lookback       time.Duration
}

// NewPrometheusSource creates a discovery-backed inventory.
func NewPrometheusSource(cfg PrometheusConfig) (*PrometheusSource, error) {
	client, err := api.NewClient(api.Config{Address: cfg.URL})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = 3 * time.Hour
	}
	if cfg.PartitionLabel == "" {
		cfg.PartitionLabel = "region"
	}
	return &PrometheusSource{
		promAPI:        v1.NewAPI(client),
		dimensionKey:   cfg.DimensionKey,
		partitionLabel: cfg.PartitionLabel,
		infoMetric:     cfg.InfoMetric,
		service:        cfg.Service,
		lookback:       cfg.Lookback,
	}, nil
}

func (p *PrometheusSource) ListResources(ctx context.Context, partition string) ([]models.Resource, error) {
	end := time.Now()
	start := end.Add(-p.lookback)

	match := fmt.Sprintf(`{__name__=%q,%s=%q}`, p.infoMetric, p.partitionLabel, partition)
	values, warnings, err := p.promAPI.LabelValues(ctx, p.dimensionKey, []string{match}, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to discover resources for %s: %w", partition, err)
	}
	_ = warnings

	resources := make([]models.Resource, 0, len(values))
	for _, v := range values {
		resources = append(resources, models.Resource{
			ID:        string(v),
			Name:      string(v),
			Partition: partition,
			Service:   p.service,
		})
	}
	return resources, nil
}

// DescribeResource enriches one resource from the info metric's labels.
func (p *PrometheusSource) DescribeResource(ctx context.Context, partition, id string) (*models.Resource, error) {
	end := time.Now()
	start := end.Add(-p.lookback)

	match := fmt.Sprintf(`{__name__=%q,%s=%q,%s=%q}`,
		p.infoMetric, p.partitionLabel, partition, p.dimensionKey, id)
	sets, warnings, err := p.promAPI.Series(ctx, []string{match}, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to describe %s/%s: %w", partition, id, err)
	}
	_ = warnings
	if len(sets) == 0 {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, partition, id)
	}

	res := &models.Resource{
		ID:        id,
		Name:      id,
		Partition: partition,
		Service:   p.service,
		Tags:      map[string]string{},
	}
	for name, value := range sets[0] {
		switch name {
		case model.MetricNameLabel, model.LabelName(p.dimensionKey), model.LabelName(p.partitionLabel):
			// identity labels already captured
		case "engine":
			res.Engine = string(value)
		case "instance_class":
			res.InstanceClass = string(value)
		case "storage_type":
			res.StorageType = string(value)
		case "billing_mode":
			res.BillingMode = string(value)
		default:
			res.Tags[string(name)] = string(value)
		}
	}
	return res, nil
}

func (p *PrometheusSource) Name() string {
	return "prometheus-discovery"
}
