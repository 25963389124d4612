package config

import (
	"fmt"
	"time"

	"github.com/opscart/finops-scan/pkg/classifier"
)

// Config holds application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Inventory InventoryConfig `mapstructure:"inventory"`
	Review    ReviewConfig    `mapstructure:"review"`
	Storage   StorageConfig   `mapstructure:"storage"`

	Thresholds classifier.Thresholds `mapstructure:"thresholds"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	Mode     string `mapstructure:"mode"`
	LogLevel string `mapstructure:"log_level"`
}

// TelemetryConfig points at the metrics backend.
type TelemetryConfig struct {
	PrometheusURL string        `mapstructure:"prometheus_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
	Retry         RetryConfig   `mapstructure:"retry"`
}

type RetryConfig struct {
	MaxAttempts int           `mapstructure:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay"`
	MaxDelay    time.Duration `mapstructure:"max_delay"`
}

// InventoryConfig selects where the resource listing comes from. Type is
// "file" (a JSON inventory snapshot) or "prometheus" (label discovery).
type InventoryConfig struct {
	Type           string        `mapstructure:"type"`
	File           string        `mapstructure:"file"`
	InfoMetric     string        `mapstructure:"info_metric"`
	PartitionLabel string        `mapstructure:"partition_label"`
	Lookback       time.Duration `mapstructure:"lookback"`
}

// ReviewConfig tunes the orchestrator.
type ReviewConfig struct {
	Workers           int           `mapstructure:"workers"`
	PartitionTimeout  time.Duration `mapstructure:"partition_timeout"`
	MaxPointsPerCall  int           `mapstructure:"max_points_per_call"`
	MinGranularity    time.Duration `mapstructure:"min_granularity"`
	CoverageThreshold float64       `mapstructure:"coverage_threshold"`
	CacheSize         int           `mapstructure:"cache_size"`
	SubResourceRows   bool          `mapstructure:"sub_resource_rows"`
}

type StorageConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	DatabaseURL string `mapstructure:"database_url"`
}

// Validate checks if configuration is valid.
func (c *Config) Validate() error {
	if c.Telemetry.PrometheusURL == "" {
		return fmt.Errorf("telemetry.prometheus_url must be set")
	}
	switch c.Inventory.Type {
	case "file":
		if c.Inventory.File == "" {
			return fmt.Errorf("inventory.file must be set when inventory.type is file")
		}
	case "prometheus":
		if c.Inventory.InfoMetric == "" {
			return fmt.Errorf("inventory.info_metric must be set when inventory.type is prometheus")
		}
	default:
		return fmt.Errorf("unknown inventory.type %q", c.Inventory.Type)
	}
	if c.Review.Workers < 1 {
		return fmt.Errorf("review.workers must be at least 1")
	}
	if c.Review.CoverageThreshold <= 0 || c.Review.CoverageThreshold > 1 {
		return fmt.Errorf("review.coverage_threshold must be in (0, 1]")
	}
	if c.Storage.Enabled && c.Storage.DatabaseURL == "" {
		return fmt.Errorf("storage.database_url must be set when storage is enabled")
	}
	return nil
}
