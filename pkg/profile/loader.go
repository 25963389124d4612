package profile

import (
	"fmt"

	"github.com/spf13/viper"
)

// Load reads additional profiles from a YAML file. Loaded profiles extend
// the built-ins and may shadow them by service key.
func Load(path string) ([]Profile, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read profile file: %w", err)
	}

	var out struct {
		Profiles []Profile `mapstructure:"profiles"`
	}
	if err := v.Unmarshal(&out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profiles: %w", err)
	}

	for _, p := range out.Profiles {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}
	return out.Profiles, nil
}

// Merge overlays loaded profiles on top of the built-ins, shadowing by
// service key.
func Merge(base, extra []Profile) []Profile {
	byService := make(map[string]int, len(base))
	merged := make([]Profile, len(base))
	copy(merged, base)
	for i, p := range merged {
		byService[p.Service] = i
	}
	for _, p := range extra {
		if i, ok := byService[p.Service]; ok {
			merged[i] = p
			continue
		}
		byService[p.Service] = len(merged)
		merged = append(merged, p)
	}
	return merged
}
