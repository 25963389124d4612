package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from an optional YAML file, layered under
// FINOPS_* environment variables, layered under defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/finops-scan")
	}

	v.SetEnvPrefix("FINOPS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file, defaults and env vars only.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "finops-scan")
	v.SetDefault("app.mode", "production")
	v.SetDefault("app.log_level", "info")

	// Telemetry defaults
	v.SetDefault("telemetry.prometheus_url", "http://localhost:9090")
	v.SetDefault("telemetry.timeout", "30s")
	v.SetDefault("telemetry.retry.max_attempts", 5)
	v.SetDefault("telemetry.retry.base_delay", "500ms")
	v.SetDefault("telemetry.retry.max_delay", "30s")

	// Inventory defaults
	v.SetDefault("inventory.type", "prometheus")
	v.SetDefault("inventory.partition_label", "region")
	v.SetDefault("inventory.lookback", "3h")

	// Review defaults
	v.SetDefault("review.workers", 4)
	v.SetDefault("review.partition_timeout", "10m")
	v.SetDefault("review.max_points_per_call", 1440)
	v.SetDefault("review.min_granularity", "60s")
	v.SetDefault("review.coverage_threshold", 0.9)
	v.SetDefault("review.cache_size", 4096)
	v.SetDefault("review.sub_resource_rows", false)

	// Storage defaults
	v.SetDefault("storage.enabled", false)
	v.SetDefault("storage.database_url", "host=localhost port=5432 user=finops password=devpassword dbname=finops sslmode=disable")

	// Classification thresholds
	v.SetDefault("thresholds.stable_max", 2.0)
	v.SetDefault("thresholds.semi_stable_max", 3.0)
	v.SetDefault("thresholds.spike_low_max", 2.0)
	v.SetDefault("thresholds.spike_medium_max", 4.0)
	v.SetDefault("thresholds.sustained_min_ops", 10.0)
	v.SetDefault("thresholds.headroom_max", 0.6)
	v.SetDefault("thresholds.idle_avg_max", 0.05)
	v.SetDefault("thresholds.idle_peak_max", 1.0)
}
